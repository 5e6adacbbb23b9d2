package checkout

import (
	"context"
	"errors"
)

// CouponInfo is the validated coupon view returned to callers. Usage
// counters stay server-side.
type CouponInfo struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	DiscountType  string  `json:"discountType"`
	DiscountValue float64 `json:"discountValue"`
}

type CouponResult struct {
	Valid   bool        `json:"valid"`
	Message string      `json:"message,omitempty"`
	Coupon  *CouponInfo `json:"coupon,omitempty"`
}

// ValidateCoupon checks existence, expiry and the usage limit, in that
// order. A coupon whose expiresAt equals now is already expired.
func (s *Service) ValidateCoupon(ctx context.Context, code string) (*CouponResult, error) {
	if code == "" {
		return &CouponResult{Valid: false, Message: "No code provided"}, nil
	}

	coupon, err := s.store.CouponByCode(ctx, code)
	if errors.Is(err, ErrCouponNotFound) {
		return &CouponResult{Valid: false, Message: "Invalid coupon code"}, nil
	}
	if err != nil {
		return nil, err
	}

	if coupon.ExpiresAt != nil && !s.now().Before(*coupon.ExpiresAt) {
		return &CouponResult{Valid: false, Message: "Coupon has expired"}, nil
	}

	if coupon.UsedCount >= coupon.MaxUsage {
		return &CouponResult{Valid: false, Message: "Coupon usage limit reached"}, nil
	}

	return &CouponResult{
		Valid: true,
		Coupon: &CouponInfo{
			ID:            coupon.ID,
			Code:          coupon.Code,
			DiscountType:  coupon.DiscountType,
			DiscountValue: coupon.DiscountValue,
		},
	}, nil
}
