package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/payment"
	"github.com/zologic/city-ride/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is an in-memory implementation of RideRepository.
type MockRideRepository struct {
	mu     sync.RWMutex
	rides  map[int64]*domain.Ride
	nextID int64

	// Counters for verification
	CreateCallCount       int32
	UpdateCallCount       int32
	BatchUpdateCallCount  int32
	DashboardCallCount    int32
	PeakHoursCallCount    int32
	DistributionCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{rides: make(map[int64]*domain.Ride)}
}

// AddRide seeds a ride, assigning an id if missing.
func (m *MockRideRepository) AddRide(ride *domain.Ride) *domain.Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ride.ID == 0 {
		m.nextID++
		ride.ID = m.nextID
	} else if ride.ID > m.nextID {
		m.nextID = ride.ID
	}
	m.rides[ride.ID] = ride
	return ride
}

// Count returns the number of persisted rides.
func (m *MockRideRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rides)
}

// GetRide returns the stored ride for test assertions.
func (m *MockRideRepository) GetRide(id int64) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rides {
		if existing.PaymentIntentID == ride.PaymentIntentID {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	ride.ID = m.nextID
	m.rides[ride.ID] = ride
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ride
	return &cp, nil
}

func (m *MockRideRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ride := range m.rides {
		if ride.PaymentIntentID == paymentIntentID {
			cp := *ride
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockRideRepository) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Ride, 0, len(m.rides))
	for _, ride := range m.rides {
		if filter.Status != "" && ride.Status != filter.Status {
			continue
		}
		cp := *ride
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[ride.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *ride
	m.rides[ride.ID] = &cp
	return nil
}

func (m *MockRideRepository) LinkSMSMessage(ctx context.Context, rideID int64, messageID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	ride.SMSMessageID = messageID
	ride.SMSDeliveryStatus = domain.SMSStatusPending
	ride.SMSDeliveryUpdatedAt = at
	return nil
}

func (m *MockRideRepository) GetBySMSMessageIDs(ctx context.Context, ids []string) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var result []*domain.Ride
	for _, ride := range m.rides {
		if ride.SMSMessageID != "" && wanted[ride.SMSMessageID] {
			cp := *ride
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockRideRepository) BatchUpdateSMSDelivery(ctx context.Context, statuses map[int64]domain.SMSDeliveryStatus, at time.Time) (int64, error) {
	atomic.AddInt32(&m.BatchUpdateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for id, status := range statuses {
		if ride, ok := m.rides[id]; ok {
			ride.SMSDeliveryStatus = status
			ride.SMSDeliveryUpdatedAt = at
			updated++
		}
	}
	return updated, nil
}

func (m *MockRideRepository) DashboardStats(ctx context.Context, now time.Time) (*domain.DashboardStats, error) {
	atomic.AddInt32(&m.DashboardCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &domain.DashboardStats{}
	for _, ride := range m.rides {
		switch ride.Status {
		case domain.RideStatusUnassigned:
			stats.PendingRides++
		case domain.RideStatusAssigned:
			stats.AssignedRides++
		}
	}
	return stats, nil
}

func (m *MockRideRepository) KeyMetrics(ctx context.Context, now time.Time) (*domain.KeyMetrics, error) {
	return &domain.KeyMetrics{}, nil
}

func (m *MockRideRepository) Analytics(ctx context.Context, from, to time.Time, groupBy string) ([]domain.AnalyticsRow, error) {
	return nil, nil
}

func (m *MockRideRepository) PeakHours(ctx context.Context, now time.Time) (*domain.PeakHours, error) {
	atomic.AddInt32(&m.PeakHoursCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	data := &domain.PeakHours{
		Hours:  make([]string, 24),
		Counts: make([]int64, 24),
	}
	for i := range data.Hours {
		data.Hours[i] = time.Date(2000, 1, 1, i, 0, 0, 0, time.UTC).Format("15:04")
	}
	cutoff := now.AddDate(0, 0, -30)
	for _, ride := range m.rides {
		if ride.CreatedAt.Before(cutoff) {
			continue
		}
		data.Counts[ride.CreatedAt.Hour()]++
	}
	return data, nil
}

func (m *MockRideRepository) StatusDistribution(ctx context.Context, now time.Time) (*domain.StatusDistribution, error) {
	atomic.AddInt32(&m.DistributionCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := now.AddDate(0, 0, -30)
	counts := make(map[domain.RideStatus]int64)
	for _, ride := range m.rides {
		if ride.CreatedAt.Before(cutoff) {
			continue
		}
		counts[ride.Status]++
	}
	dist := &domain.StatusDistribution{}
	for _, status := range []domain.RideStatus{
		domain.RideStatusUnassigned, domain.RideStatusAssigned,
		domain.RideStatusCompleted, domain.RideStatusCancelled, domain.RideStatusNoShow,
	} {
		if counts[status] == 0 {
			continue
		}
		dist.Labels = append(dist.Labels, status.Label())
		dist.Counts = append(dist.Counts, counts[status])
	}
	return dist, nil
}

func (m *MockRideRepository) CompletedByVehicle(ctx context.Context, vehicleNumber string, from, to time.Time) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, ride := range m.rides {
		if ride.CabDriverID == vehicleNumber && ride.Status == domain.RideStatusCompleted {
			cp := *ride
			result = append(result, &cp)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is an in-memory implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[int64]*domain.Driver
	nextID  int64

	IncrementCallCount int32
	IncrementError     error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{drivers: make(map[int64]*domain.Driver)}
}

// AddDriver seeds a driver, assigning an id if missing.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) *domain.Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	if driver.ID == 0 {
		m.nextID++
		driver.ID = m.nextID
	} else if driver.ID > m.nextID {
		m.nextID = driver.ID
	}
	m.drivers[driver.ID] = driver
	return driver
}

// GetDriver returns the stored driver for test assertions.
func (m *MockDriverRepository) GetDriver(id int64) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.drivers {
		if existing.VehicleNumber == driver.VehicleNumber {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	driver.ID = m.nextID
	m.drivers[driver.ID] = driver
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id int64) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *driver
	return &cp, nil
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		cp := *d
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockDriverRepository) ListActive(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Driver
	for _, d := range m.drivers {
		if d.Status == domain.DriverStatusActive {
			cp := *d
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockDriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[driver.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *driver
	m.drivers[driver.ID] = &cp
	return nil
}

func (m *MockDriverRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.drivers, id)
	return nil
}

func (m *MockDriverRepository) IncrementEarnings(ctx context.Context, vehicleNumber string, amount float64, at time.Time) error {
	atomic.AddInt32(&m.IncrementCallCount, 1)
	if m.IncrementError != nil {
		return m.IncrementError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, driver := range m.drivers {
		if driver.VehicleNumber == vehicleNumber {
			driver.TotalRides++
			driver.TotalEarnings += amount
		}
	}
	return nil
}

func (m *MockDriverRepository) Stats(ctx context.Context) (*domain.DriverStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &domain.DriverStats{TotalDrivers: int64(len(m.drivers))}
	var top float64
	for _, d := range m.drivers {
		if d.Status == domain.DriverStatusActive {
			stats.ActiveDrivers++
		}
		stats.TotalEarnings += d.TotalEarnings
		if d.TotalEarnings >= top {
			top = d.TotalEarnings
			stats.TopDriver = d.Name
		}
	}
	return stats, nil
}

// ──────────────────────────────────────────────
// MOCK DISCOUNT REPOSITORY
// ──────────────────────────────────────────────

// MockDiscountRepository is an in-memory implementation of DiscountRepository.
type MockDiscountRepository struct {
	mu     sync.RWMutex
	codes  map[int64]*domain.DiscountCode
	nextID int64

	IncrementUsageCallCount int32
}

// NewMockDiscountRepository creates a new mock discount repository.
func NewMockDiscountRepository() *MockDiscountRepository {
	return &MockDiscountRepository{codes: make(map[int64]*domain.DiscountCode)}
}

// AddCode seeds a discount code, assigning an id if missing.
func (m *MockDiscountRepository) AddCode(code *domain.DiscountCode) *domain.DiscountCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if code.ID == 0 {
		m.nextID++
		code.ID = m.nextID
	} else if code.ID > m.nextID {
		m.nextID = code.ID
	}
	m.codes[code.ID] = code
	return code
}

// GetCode returns the stored code for test assertions.
func (m *MockDiscountRepository) GetCode(id int64) *domain.DiscountCode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.codes[id]
}

func (m *MockDiscountRepository) Create(ctx context.Context, code *domain.DiscountCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.codes {
		if existing.Code == code.Code {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	code.ID = m.nextID
	m.codes[code.ID] = code
	return nil
}

func (m *MockDiscountRepository) GetByID(ctx context.Context, id int64) (*domain.DiscountCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	code, ok := m.codes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *code
	return &cp, nil
}

func (m *MockDiscountRepository) GetActiveByCode(ctx context.Context, codeValue string) (*domain.DiscountCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, code := range m.codes {
		if code.Code == codeValue && code.IsActive {
			cp := *code
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDiscountRepository) GetAll(ctx context.Context) ([]*domain.DiscountCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.DiscountCode, 0, len(m.codes))
	for _, code := range m.codes {
		cp := *code
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockDiscountRepository) Update(ctx context.Context, code *domain.DiscountCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[code.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *code
	m.codes[code.ID] = &cp
	return nil
}

func (m *MockDiscountRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.codes, id)
	return nil
}

func (m *MockDiscountRepository) SetActive(ctx context.Context, id int64, active bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[id]
	if !ok {
		return repository.ErrNotFound
	}
	code.IsActive = active
	return nil
}

func (m *MockDiscountRepository) IncrementUsage(ctx context.Context, id int64, at time.Time) error {
	atomic.AddInt32(&m.IncrementUsageCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[id]
	if !ok {
		return repository.ErrNotFound
	}
	if code.UsageLimit > 0 && code.UsageCount >= code.UsageLimit {
		return repository.ErrLimitReached
	}
	code.UsageCount++
	return nil
}

// ──────────────────────────────────────────────
// MOCK SIDE-EFFECT COLLABORATORS
// ──────────────────────────────────────────────

// SentEvent records one webhook notification.
type SentEvent struct {
	RideID int64
	Event  domain.EventType
}

// MockNotifier records webhook events instead of delivering them.
type MockNotifier struct {
	mu     sync.Mutex
	Events []SentEvent

	SendError error
}

func (m *MockNotifier) SendEvent(ctx context.Context, ride *domain.Ride, driver *domain.Driver, event domain.EventType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendError != nil {
		return m.SendError
	}
	m.Events = append(m.Events, SentEvent{RideID: ride.ID, Event: event})
	return nil
}

// EventCount returns how many events of the given type were sent.
func (m *MockNotifier) EventCount(event domain.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// MockBookingNotifier records plain booking notifications instead of
// delivering them.
type MockBookingNotifier struct {
	mu      sync.Mutex
	RideIDs []int64

	NotifyError error
}

func (m *MockBookingNotifier) Notify(ctx context.Context, ride *domain.Ride) error {
	if m.NotifyError != nil {
		return m.NotifyError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RideIDs = append(m.RideIDs, ride.ID)
	return nil
}

// NotifyCount returns the number of recorded notifications.
func (m *MockBookingNotifier) NotifyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RideIDs)
}

// MockStatusStore keeps legacy delivery outcomes in memory.
type MockStatusStore struct {
	mu         sync.Mutex
	Deliveries []domain.WebhookDelivery
}

func (m *MockStatusStore) SaveDelivery(ctx context.Context, delivery domain.WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deliveries = append(m.Deliveries, delivery)
	return nil
}

func (m *MockStatusStore) LastDelivery(ctx context.Context) (*domain.WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Deliveries) == 0 {
		return nil, nil
	}
	last := m.Deliveries[len(m.Deliveries)-1]
	return &last, nil
}

// SentPush records one push notification.
type SentPush struct {
	SubscriberID string
	Title        string
	Message      string
}

// MockPushSender records push notifications instead of delivering them.
type MockPushSender struct {
	mu   sync.Mutex
	Sent []SentPush

	SendError error
}

func (m *MockPushSender) Send(ctx context.Context, subscriberID, title, message string) error {
	if m.SendError != nil {
		return m.SendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentPush{SubscriberID: subscriberID, Title: title, Message: message})
	return nil
}

// SentCount returns the number of recorded pushes.
func (m *MockPushSender) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// MockPaymentProvider records refunds and serves canned intents.
type MockPaymentProvider struct {
	mu      sync.Mutex
	Refunds []string

	RefundError error
}

func (m *MockPaymentProvider) CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*payment.Intent, error) {
	return &payment.Intent{ID: "pi_mock", Status: "requires_payment_method", Amount: amount, Currency: currency}, nil
}

func (m *MockPaymentProvider) RetrieveIntent(ctx context.Context, id string) (*payment.Intent, error) {
	return &payment.Intent{ID: id, Status: "succeeded"}, nil
}

func (m *MockPaymentProvider) Refund(ctx context.Context, paymentIntentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RefundError != nil {
		return m.RefundError
	}
	m.Refunds = append(m.Refunds, paymentIntentID)
	return nil
}

func (m *MockPaymentProvider) VerifyEvent(payload []byte, signature string) (*payment.Event, error) {
	if signature == "" {
		return nil, errors.New("missing signature")
	}
	return &payment.Event{Type: "payment_intent.succeeded", Raw: payload}, nil
}

// RefundCount returns the number of successful refunds.
func (m *MockPaymentProvider) RefundCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Refunds)
}

// MockCacheStore is an in-memory cache tier with counters.
type MockCacheStore struct {
	mu     sync.Mutex
	values map[string][]byte

	GetCallCount    int32
	SetCallCount    int32
	DeleteCallCount int32
	Deleted         []string

	GetError error
}

// NewMockCacheStore creates a new in-memory cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{values: make(map[string][]byte)}
}

func (m *MockCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MockCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MockCacheStore) Delete(ctx context.Context, keys ...string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
		m.Deleted = append(m.Deleted, key)
	}
	return nil
}

// Has reports whether a key is cached.
func (m *MockCacheStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// ──────────────────────────────────────────────
// MOCK WEBHOOK SCHEDULER AND JOURNAL
// ──────────────────────────────────────────────

// ScheduledTask is one payload captured by the mock scheduler.
type ScheduledTask struct {
	Payload []byte
	Due     time.Time
}

// MockScheduler captures scheduled retries instead of queueing them.
type MockScheduler struct {
	mu    sync.Mutex
	Tasks []ScheduledTask
}

func (m *MockScheduler) Schedule(ctx context.Context, payload []byte, due time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = append(m.Tasks, ScheduledTask{Payload: payload, Due: due})
	return nil
}

// Take removes and returns the oldest scheduled task, or nil.
func (m *MockScheduler) Take() *ScheduledTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Tasks) == 0 {
		return nil
	}
	task := m.Tasks[0]
	m.Tasks = m.Tasks[1:]
	return &task
}

// MockJournal records webhook failures in memory.
type MockJournal struct {
	mu       sync.Mutex
	Failures []domain.WebhookFailure
}

func (m *MockJournal) Record(ctx context.Context, failure domain.WebhookFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures = append(m.Failures, failure)
	return nil
}

func (m *MockJournal) Recent(ctx context.Context) ([]domain.WebhookFailure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.WebhookFailure, len(m.Failures))
	copy(out, m.Failures)
	return out, nil
}

// FailureCount returns the number of recorded failures.
func (m *MockJournal) FailureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Failures)
}
