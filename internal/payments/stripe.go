package payments

import (
	"context"
	"errors"
	"log"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/coupon"
	"github.com/stripe/stripe-go/v79/customer"
)

var shippingCountries = []string{"US", "CA", "GB", "ES", "FR", "DE"}

// StripeProvider implements Provider over the Stripe hosted checkout API.
type StripeProvider struct{}

func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (*CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.LineItems))
	for _, li := range in.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:     stripe.String(li.Name),
			Metadata: li.Metadata,
		}
		if li.Description != "" {
			productData.Description = stripe.String(li.Description)
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				ProductData: productData,
				UnitAmount:  stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(in.SuccessURL),
		CancelURL:          stripe.String(in.CancelURL),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(shippingCountries),
		},
		BillingAddressCollection: stripe.String("required"),
	}
	params.Context = ctx
	for key, value := range in.Metadata {
		params.AddMetadata(key, value)
	}
	if in.CouponID != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(in.CouponID)},
		}
	}
	if in.CustomerID != "" {
		params.Customer = stripe.String(in.CustomerID)
		params.CustomerUpdate = &stripe.CheckoutSessionCustomerUpdateParams{
			Address:  stripe.String("auto"),
			Shipping: stripe.String("auto"),
		}
	} else if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}

	s, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	s, err := session.Get(sessionID, params)
	if err != nil {
		return nil, err
	}

	out := &Session{
		ID:            s.ID,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	if s.ShippingDetails != nil {
		out.ShippingName = s.ShippingDetails.Name
		out.ShippingAddress = fromStripeAddress(s.ShippingDetails.Address)
	}
	if s.CustomerDetails != nil {
		out.BillingAddress = fromStripeAddress(s.CustomerDetails.Address)
	}
	return out, nil
}

func (p *StripeProvider) SessionLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx
	params.AddExpand("data.price.product")

	items := make([]SessionLineItem, 0)
	iter := session.ListLineItems(params)
	for iter.Next() {
		li := iter.LineItem()
		item := SessionLineItem{
			Quantity:    li.Quantity,
			AmountTotal: li.AmountTotal,
		}
		if li.Price != nil && li.Price.Product != nil {
			item.Metadata = li.Price.Product.Metadata
		}
		items = append(items, item)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *StripeProvider) EnsureCustomer(ctx context.Context, in CustomerParams) (string, error) {
	listParams := &stripe.CustomerListParams{
		Email: stripe.String(in.Email),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := customer.List(listParams)
	if iter.Next() {
		existing := iter.Customer()
		if in.Shipping != nil {
			updateParams := &stripe.CustomerParams{
				Name:     stripe.String(in.Name),
				Address:  toStripeAddress(in.Shipping),
				Shipping: &stripe.CustomerShippingParams{Name: stripe.String(in.Name), Address: toStripeAddress(in.Shipping)},
			}
			updateParams.Context = ctx
			if _, err := customer.Update(existing.ID, updateParams); err != nil {
				log.Println("[STRIPE] [WARN] customer update failed:", err)
			}
		}
		return existing.ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", err
	}

	createParams := &stripe.CustomerParams{
		Email: stripe.String(in.Email),
		Name:  stripe.String(in.Name),
	}
	createParams.Context = ctx
	if in.Shipping != nil {
		createParams.Address = toStripeAddress(in.Shipping)
		createParams.Shipping = &stripe.CustomerShippingParams{
			Name:    stripe.String(in.Name),
			Address: toStripeAddress(in.Shipping),
		}
	}
	created, err := customer.New(createParams)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (p *StripeProvider) EnsureCoupon(ctx context.Context, in CouponParams) (string, error) {
	getParams := &stripe.CouponParams{}
	getParams.Context = ctx
	if existing, err := coupon.Get(in.ID, getParams); err == nil {
		return existing.ID, nil
	}

	createParams := &stripe.CouponParams{
		ID:       stripe.String(in.ID),
		Name:     stripe.String(in.Name),
		Duration: stripe.String(string(stripe.CouponDurationOnce)),
	}
	createParams.Context = ctx
	if in.PercentOff > 0 {
		createParams.PercentOff = stripe.Float64(in.PercentOff)
	} else {
		createParams.AmountOff = stripe.Int64(in.AmountOff)
		createParams.Currency = stripe.String(string(stripe.CurrencyUSD))
	}

	created, err := coupon.New(createParams)
	if err != nil {
		// A concurrent checkout may have created the same derived id.
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceAlreadyExists {
			return in.ID, nil
		}
		return "", err
	}
	return created.ID, nil
}

func toStripeAddress(a *Address) *stripe.AddressParams {
	if a == nil {
		return nil
	}
	params := &stripe.AddressParams{
		Line1:      stripe.String(a.Line1),
		City:       stripe.String(a.City),
		State:      stripe.String(a.State),
		Country:    stripe.String(a.Country),
		PostalCode: stripe.String(a.PostalCode),
	}
	if a.Line2 != "" {
		params.Line2 = stripe.String(a.Line2)
	}
	return params
}

func fromStripeAddress(a *stripe.Address) *Address {
	if a == nil {
		return nil
	}
	return &Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		Country:    a.Country,
		PostalCode: a.PostalCode,
	}
}
