package checkout

import "errors"

var (
	ErrAuthRequired         = errors.New("checkout: user session required")
	ErrEmptyCart            = errors.New("checkout: cart is empty")
	ErrNoValidItems         = errors.New("checkout: no valid items found")
	ErrPaymentNotConfirmed  = errors.New("checkout: payment not successful")
	ErrCouponNotFound       = errors.New("checkout: coupon not found")
	ErrDuplicateTransaction = errors.New("checkout: transaction already recorded")
)

// InvalidCouponError aborts the whole checkout, unlike line-item resolution
// failures which are skipped. Message is safe to show to the buyer.
type InvalidCouponError struct {
	Message string
}

func (e *InvalidCouponError) Error() string {
	return "checkout: invalid coupon: " + e.Message
}
