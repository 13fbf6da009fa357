package service

import (
	"context"
	"math"
	"time"

	"github.com/zologic/city-ride/internal/maps"
	"github.com/zologic/city-ride/internal/settings"
)

// PricingService computes ride quotes from the configured tariff. Pricing is
// pure computation over the tariff and request time; it has no side effects.
type PricingService struct {
	settings settings.Provider
	routes   maps.RouteProvider
}

// NewPricingService creates a new PricingService. routes may be nil when
// quotes are only ever requested with a known distance.
func NewPricingService(provider settings.Provider, routes maps.RouteProvider) *PricingService {
	return &PricingService{settings: provider, routes: routes}
}

// SurchargeLine is one applied surcharge in a quote breakdown.
type SurchargeLine struct {
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
	Amount  float64 `json:"amount"`
}

// Quote is a priced ride before any discount.
type Quote struct {
	DistanceKm   float64         `json:"distance_km"`
	BasePrice    float64         `json:"base_price"`
	FlooredPrice float64         `json:"floored_price"`
	Surcharges   []SurchargeLine `json:"surcharges,omitempty"`
	TotalPrice   float64         `json:"total_price"`
	Currency     string          `json:"currency"`
	UnitAmount   int64           `json:"unit_amount"`
}

// QuoteRequest contains the parameters for pricing a ride.
type QuoteRequest struct {
	DistanceKm float64
	At         time.Time // zero means now in the configured timezone
}

// Quote prices a ride of the given distance at the given time.
//
// Surcharges are computed independently against the floored price and summed,
// never compounded on each other.
func (s *PricingService) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if req.DistanceKm <= 0 {
		return nil, ErrInvalidDistance
	}

	tariff := settings.LoadTariff(ctx, s.settings)

	loc, err := time.LoadLocation(tariff.Timezone)
	if err != nil {
		loc = time.UTC
	}
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.In(loc)

	base := tariff.StartTariff + req.DistanceKm*tariff.PricePerKm
	floored := math.Max(base, tariff.MinimumFare)

	quote := &Quote{
		DistanceKm:   req.DistanceKm,
		BasePrice:    round2(base),
		FlooredPrice: round2(floored),
		Currency:     tariff.Currency,
	}

	total := floored
	addSurcharge := func(name string, rule settings.SurchargeRule, matches bool) {
		if !rule.Enabled || !matches || rule.Percent <= 0 {
			return
		}
		amount := floored * rule.Percent / 100
		quote.Surcharges = append(quote.Surcharges, SurchargeLine{
			Name:    name,
			Percent: rule.Percent,
			Amount:  round2(amount),
		})
		total += amount
	}

	addSurcharge("night", tariff.Night, inNightWindow(at, tariff.NightStart, tariff.NightEnd))
	addSurcharge("weekend", tariff.Weekend, isWeekend(at))
	addSurcharge("holiday", tariff.Holiday, isHoliday(at, tariff.HolidayDates))

	quote.TotalPrice = round2(total)
	quote.UnitAmount = unitAmount(quote.TotalPrice)
	return quote, nil
}

// QuoteRoute resolves the driving distance between two addresses and prices
// the resulting ride.
func (s *PricingService) QuoteRoute(ctx context.Context, addressFrom, addressTo string, at time.Time) (*Quote, error) {
	if addressFrom == "" || addressTo == "" {
		return nil, ErrMissingAddress
	}

	distance, err := s.routes.Distance(ctx, addressFrom, addressTo)
	if err != nil {
		return nil, err
	}
	if distance <= 0 {
		return nil, ErrInvalidDistance
	}
	return s.Quote(ctx, QuoteRequest{DistanceKm: distance, At: at})
}

// inNightWindow reports whether t falls inside the HH:MM window, supporting
// overnight wraparound when start > end.
func inNightWindow(t time.Time, start, end string) bool {
	hhmm := t.Format("15:04")
	if start > end {
		return hhmm >= start || hhmm < end
	}
	return hhmm >= start && hhmm < end
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func isHoliday(t time.Time, dates []string) bool {
	date := t.Format("2006-01-02")
	for _, d := range dates {
		if d == date {
			return true
		}
	}
	return false
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// unitAmount converts a price to the smallest currency unit for the payment
// processor.
func unitAmount(price float64) int64 {
	return int64(math.Round(price * 100))
}
