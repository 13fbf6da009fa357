package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/service"
)

func activeCode(code *domain.DiscountCode) *domain.DiscountCode {
	code.IsActive = true
	return code
}

func TestApplyPercentDiscount(t *testing.T) {
	t.Parallel()

	repo := NewMockDiscountRepository()
	repo.AddCode(activeCode(&domain.DiscountCode{
		Code:          "SUMMER10",
		DiscountType:  domain.DiscountTypePercent,
		DiscountValue: 10,
	}))
	svc := service.NewDiscountService(repo)

	app, err := svc.Apply(context.Background(), "SUMMER10", 17.50, tuesdayNoon)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if app.DiscountAmount != 1.75 {
		t.Errorf("Expected discount 1.75, got %v", app.DiscountAmount)
	}
	if app.OriginalPrice != 17.50 {
		t.Errorf("Expected original 17.50, got %v", app.OriginalPrice)
	}
	if app.FinalPrice != 15.75 {
		t.Errorf("Expected final 15.75, got %v", app.FinalPrice)
	}
	if app.UnitAmount != 1575 {
		t.Errorf("Expected unit amount 1575, got %v", app.UnitAmount)
	}
}

func TestApplyPercentDiscountCap(t *testing.T) {
	t.Parallel()

	repo := NewMockDiscountRepository()
	repo.AddCode(activeCode(&domain.DiscountCode{
		Code:              "HALF",
		DiscountType:      domain.DiscountTypePercent,
		DiscountValue:     50,
		MaxDiscountAmount: 20,
	}))
	svc := service.NewDiscountService(repo)

	app, err := svc.Apply(context.Background(), "HALF", 100, tuesdayNoon)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if app.DiscountAmount != 20 {
		t.Errorf("Expected capped discount 20, got %v", app.DiscountAmount)
	}
	if app.FinalPrice != 80 {
		t.Errorf("Expected final 80, got %v", app.FinalPrice)
	}
}

func TestApplyFixedDiscountNeverNegative(t *testing.T) {
	t.Parallel()

	repo := NewMockDiscountRepository()
	repo.AddCode(activeCode(&domain.DiscountCode{
		Code:          "FIXED50",
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: 50,
	}))
	svc := service.NewDiscountService(repo)

	app, err := svc.Apply(context.Background(), "FIXED50", 20, tuesdayNoon)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if app.DiscountAmount != 20 {
		t.Errorf("Expected discount clamped to 20, got %v", app.DiscountAmount)
	}
	if app.FinalPrice != 0 {
		t.Errorf("Expected final price 0, got %v", app.FinalPrice)
	}
}

func TestApplyNormalizesCode(t *testing.T) {
	t.Parallel()

	repo := NewMockDiscountRepository()
	repo.AddCode(activeCode(&domain.DiscountCode{
		Code:          "SUMMER10",
		DiscountType:  domain.DiscountTypePercent,
		DiscountValue: 10,
	}))
	svc := service.NewDiscountService(repo)

	app, err := svc.Apply(context.Background(), "  summer10 ", 100, tuesdayNoon)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if app.Code != "SUMMER10" {
		t.Errorf("Expected normalized code SUMMER10, got %s", app.Code)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	now := tuesdayNoon

	testCases := []struct {
		name    string
		code    *domain.DiscountCode
		input   string
		amount  float64
		wantErr error
	}{
		{
			name:    "unknown code",
			code:    nil,
			input:   "NOPE",
			amount:  50,
			wantErr: service.ErrDiscountNotFound,
		},
		{
			name: "inactive code",
			code: &domain.DiscountCode{
				Code:          "OFF",
				DiscountType:  domain.DiscountTypePercent,
				DiscountValue: 10,
				IsActive:      false,
			},
			input:   "OFF",
			amount:  50,
			wantErr: service.ErrDiscountNotFound,
		},
		{
			name: "not yet valid",
			code: activeCode(&domain.DiscountCode{
				Code:          "SOON",
				DiscountType:  domain.DiscountTypePercent,
				DiscountValue: 10,
				ValidFrom:     now.Add(24 * time.Hour),
			}),
			input:   "SOON",
			amount:  50,
			wantErr: service.ErrDiscountNotYetValid,
		},
		{
			name: "expired",
			code: activeCode(&domain.DiscountCode{
				Code:          "OLD",
				DiscountType:  domain.DiscountTypePercent,
				DiscountValue: 10,
				ValidUntil:    now.Add(-24 * time.Hour),
			}),
			input:   "OLD",
			amount:  50,
			wantErr: service.ErrDiscountExpired,
		},
		{
			name: "exhausted",
			code: activeCode(&domain.DiscountCode{
				Code:          "GONE",
				DiscountType:  domain.DiscountTypePercent,
				DiscountValue: 10,
				UsageLimit:    2,
				UsageCount:    2,
			}),
			input:   "GONE",
			amount:  50,
			wantErr: service.ErrDiscountExhausted,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := NewMockDiscountRepository()
			if tc.code != nil {
				repo.AddCode(tc.code)
			}
			svc := service.NewDiscountService(repo)

			_, err := svc.Validate(context.Background(), tc.input, tc.amount, now)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateMinOrderAmount(t *testing.T) {
	t.Parallel()

	repo := NewMockDiscountRepository()
	repo.AddCode(activeCode(&domain.DiscountCode{
		Code:           "BIG",
		DiscountType:   domain.DiscountTypePercent,
		DiscountValue:  10,
		MinOrderAmount: 30,
	}))
	svc := service.NewDiscountService(repo)

	_, err := svc.Validate(context.Background(), "BIG", 20, tuesdayNoon)

	var minErr *service.MinOrderError
	if !errors.As(err, &minErr) {
		t.Fatalf("Expected MinOrderError, got %v", err)
	}
	if minErr.Minimum != 30 {
		t.Errorf("Expected minimum 30 in error, got %v", minErr.Minimum)
	}

	// Exactly the minimum passes.
	if _, err := svc.Validate(context.Background(), "BIG", 30, tuesdayNoon); err != nil {
		t.Errorf("Expected order at the minimum to pass, got %v", err)
	}
}

func TestCreateDiscountValidation(t *testing.T) {
	t.Parallel()

	repo := NewMockDiscountRepository()
	svc := service.NewDiscountService(repo)

	testCases := []struct {
		name    string
		req     service.SaveDiscountRequest
		wantErr error
	}{
		{
			name:    "empty code",
			req:     service.SaveDiscountRequest{DiscountType: domain.DiscountTypePercent, DiscountValue: 10},
			wantErr: service.ErrInvalidDiscount,
		},
		{
			name:    "zero value",
			req:     service.SaveDiscountRequest{Code: "X", DiscountType: domain.DiscountTypePercent},
			wantErr: service.ErrInvalidDiscount,
		},
		{
			name:    "unknown type",
			req:     service.SaveDiscountRequest{Code: "X", DiscountType: "bogus", DiscountValue: 10},
			wantErr: service.ErrInvalidDiscount,
		},
		{
			name: "inverted validity window",
			req: service.SaveDiscountRequest{
				Code:          "X",
				DiscountType:  domain.DiscountTypePercent,
				DiscountValue: 10,
				ValidFrom:     tuesdayNoon,
				ValidUntil:    tuesdayNoon.Add(-time.Hour),
			},
			wantErr: service.ErrInvalidDateRange,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateDiscountDuplicateCode(t *testing.T) {
	t.Parallel()

	repo := NewMockDiscountRepository()
	svc := service.NewDiscountService(repo)

	req := service.SaveDiscountRequest{
		Code:          "summer10",
		DiscountType:  domain.DiscountTypePercent,
		DiscountValue: 10,
		IsActive:      true,
	}
	created, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Code != "SUMMER10" {
		t.Errorf("Expected code stored uppercase, got %s", created.Code)
	}

	if _, err := svc.Create(context.Background(), req); !errors.Is(err, service.ErrDuplicateCode) {
		t.Errorf("Expected ErrDuplicateCode, got %v", err)
	}
}
