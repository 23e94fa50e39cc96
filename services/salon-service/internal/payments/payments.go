package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

var (
	ErrCardUnavailable       = errors.New("card payments are not configured")
	ErrPaymentDeclined       = errors.New("payment was not completed")
	ErrPaymentMethodRequired = errors.New("payment_method_id is required for card checkout")
	ErrUnsupportedMethod     = errors.New("unsupported payment method")
)

type ChargeRequest struct {
	AppointmentID string
	Amount        float64
	Method        string
	// PaymentMethod is the provider's payment method token, used for card charges.
	PaymentMethod string
}

type Receipt struct {
	Ref string
}

type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (Receipt, error)
}

// CashCharger records nothing with a provider.
type CashCharger struct{}

func (CashCharger) Charge(context.Context, ChargeRequest) (Receipt, error) {
	return Receipt{}, nil
}

// Router dispatches by payment method. Card is nil when no provider is configured.
type Router struct {
	Cash Charger
	Card Charger
}

func (r Router) Charge(ctx context.Context, req ChargeRequest) (Receipt, error) {
	switch req.Method {
	case "", model.PaymentMethodCash:
		if r.Cash == nil {
			return CashCharger{}.Charge(ctx, req)
		}
		return r.Cash.Charge(ctx, req)
	case model.PaymentMethodCard:
		if r.Card == nil {
			return Receipt{}, ErrCardUnavailable
		}
		if strings.TrimSpace(req.PaymentMethod) == "" {
			return Receipt{}, ErrPaymentMethodRequired
		}
		return r.Card.Charge(ctx, req)
	default:
		return Receipt{}, fmt.Errorf("%w %q", ErrUnsupportedMethod, req.Method)
	}
}

type StripeCharger struct {
	sc       *client.API
	currency string
}

func NewStripeCharger(secretKey, currency string) *StripeCharger {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	if strings.TrimSpace(currency) == "" {
		currency = "usd"
	}
	return &StripeCharger{sc: sc, currency: strings.ToLower(currency)}
}

// Charge creates and confirms a PaymentIntent keyed by IdempotencyKey, so a
// retried checkout with the same card never charges twice.
func (c *StripeCharger) Charge(ctx context.Context, req ChargeRequest) (Receipt, error) {
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return Receipt{}, ErrPaymentMethodRequired
	}
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(MinorUnits(req.Amount)),
		Currency:           stripe.String(c.currency),
		PaymentMethod:      stripe.String(req.PaymentMethod),
		PaymentMethodTypes: []*string{stripe.String("card")},
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("appointment_id", req.AppointmentID)
	params.IdempotencyKey = stripe.String(IdempotencyKey(req))

	pi, err := c.sc.PaymentIntents.New(params)
	if err != nil {
		return Receipt{}, fmt.Errorf("stripe payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return Receipt{Ref: pi.ID}, fmt.Errorf("%w: status %s", ErrPaymentDeclined, pi.Status)
	}
	return Receipt{Ref: pi.ID}, nil
}

// IdempotencyKey scopes a charge to the appointment and the payment method.
// Stripe replays the stored result for a reused key, declines included, so a
// new card for the same appointment needs a key of its own.
func IdempotencyKey(req ChargeRequest) string {
	return "checkout:" + req.AppointmentID + ":" + strings.TrimSpace(req.PaymentMethod)
}

func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
