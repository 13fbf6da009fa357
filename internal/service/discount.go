package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/repository"
)

// DiscountService validates and applies discount codes, and backs the
// dispatcher's code management screens.
type DiscountService struct {
	discountRepo repository.DiscountRepository
}

// NewDiscountService creates a new DiscountService.
func NewDiscountService(discountRepo repository.DiscountRepository) *DiscountService {
	return &DiscountService{discountRepo: discountRepo}
}

// Validate checks a code against its rules for the given order amount. Each
// rejection reason is a distinct error.
func (s *DiscountService) Validate(ctx context.Context, code string, orderAmount float64, now time.Time) (*domain.DiscountCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrDiscountNotFound
	}

	dc, err := s.discountRepo.GetActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDiscountNotFound
		}
		return nil, err
	}

	if !dc.ValidFrom.IsZero() && now.Before(dc.ValidFrom) {
		return nil, ErrDiscountNotYetValid
	}
	if !dc.ValidUntil.IsZero() && now.After(dc.ValidUntil) {
		return nil, ErrDiscountExpired
	}
	if dc.UsageLimit > 0 && dc.UsageCount >= dc.UsageLimit {
		return nil, ErrDiscountExhausted
	}
	if orderAmount < dc.MinOrderAmount {
		return nil, &MinOrderError{Minimum: dc.MinOrderAmount}
	}
	return dc, nil
}

// Application is the result of applying a discount code to a price.
type Application struct {
	Code           string  `json:"code"`
	DiscountAmount float64 `json:"discount_amount"`
	OriginalPrice  float64 `json:"original_price"`
	FinalPrice     float64 `json:"final_price"`
	UnitAmount     int64   `json:"unit_amount"`
}

// Apply validates the code and computes the discounted price. The final price
// never goes below zero; percent discounts respect the code's cap.
func (s *DiscountService) Apply(ctx context.Context, code string, price float64, now time.Time) (*Application, error) {
	dc, err := s.Validate(ctx, code, price, now)
	if err != nil {
		return nil, err
	}

	var amount float64
	switch dc.DiscountType {
	case domain.DiscountTypePercent:
		amount = price * dc.DiscountValue / 100
		if dc.MaxDiscountAmount > 0 {
			amount = math.Min(amount, dc.MaxDiscountAmount)
		}
	case domain.DiscountTypeFixed:
		amount = math.Min(dc.DiscountValue, price)
	}
	amount = round2(amount)

	final := round2(math.Max(price-amount, 0))
	return &Application{
		Code:           dc.Code,
		DiscountAmount: amount,
		OriginalPrice:  round2(price),
		FinalPrice:     final,
		UnitAmount:     unitAmount(final),
	}, nil
}

// SaveDiscountRequest contains the fields for creating or updating a code.
type SaveDiscountRequest struct {
	Code              string
	DiscountType      domain.DiscountType
	DiscountValue     float64
	MinOrderAmount    float64
	MaxDiscountAmount float64
	UsageLimit        int64
	ValidFrom         time.Time
	ValidUntil        time.Time
	IsActive          bool
}

func (r SaveDiscountRequest) validate() error {
	if strings.TrimSpace(r.Code) == "" || r.DiscountValue <= 0 {
		return ErrInvalidDiscount
	}
	switch r.DiscountType {
	case domain.DiscountTypePercent, domain.DiscountTypeFixed:
	default:
		return ErrInvalidDiscount
	}
	if !r.ValidFrom.IsZero() && !r.ValidUntil.IsZero() && r.ValidUntil.Before(r.ValidFrom) {
		return ErrInvalidDateRange
	}
	return nil
}

// Create registers a new discount code.
func (s *DiscountService) Create(ctx context.Context, req SaveDiscountRequest) (*domain.DiscountCode, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	dc := &domain.DiscountCode{
		Code:              strings.ToUpper(strings.TrimSpace(req.Code)),
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MinOrderAmount:    req.MinOrderAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		UsageLimit:        req.UsageLimit,
		ValidFrom:         req.ValidFrom,
		ValidUntil:        req.ValidUntil,
		IsActive:          req.IsActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.discountRepo.Create(ctx, dc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return dc, nil
}

// Update edits an existing discount code.
func (s *DiscountService) Update(ctx context.Context, id int64, req SaveDiscountRequest) (*domain.DiscountCode, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	dc, err := s.discountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDiscountNotFound
		}
		return nil, err
	}

	dc.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	dc.DiscountType = req.DiscountType
	dc.DiscountValue = req.DiscountValue
	dc.MinOrderAmount = req.MinOrderAmount
	dc.MaxDiscountAmount = req.MaxDiscountAmount
	dc.UsageLimit = req.UsageLimit
	dc.ValidFrom = req.ValidFrom
	dc.ValidUntil = req.ValidUntil
	dc.IsActive = req.IsActive
	dc.UpdatedAt = time.Now()

	if err := s.discountRepo.Update(ctx, dc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return dc, nil
}

// SetActive toggles a code.
func (s *DiscountService) SetActive(ctx context.Context, id int64, active bool) error {
	err := s.discountRepo.SetActive(ctx, id, active, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrDiscountNotFound
	}
	return err
}

// Delete removes a code.
func (s *DiscountService) Delete(ctx context.Context, id int64) error {
	err := s.discountRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrDiscountNotFound
	}
	return err
}

// List returns all discount codes.
func (s *DiscountService) List(ctx context.Context) ([]*domain.DiscountCode, error) {
	return s.discountRepo.GetAll(ctx)
}
