package domain

import "time"

// DiscountType represents how a discount code reduces the price.
type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

// DiscountCode represents a promotional code. Code is stored uppercase.
type DiscountCode struct {
	ID                int64
	Code              string
	DiscountType      DiscountType
	DiscountValue     float64
	MinOrderAmount    float64
	MaxDiscountAmount float64 // percent-type cap; 0 = no cap
	UsageLimit        int64   // 0 = unlimited
	UsageCount        int64
	ValidFrom         time.Time // zero = open-ended
	ValidUntil        time.Time // zero = open-ended
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
