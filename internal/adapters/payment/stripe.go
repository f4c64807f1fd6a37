package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	domain "academy/internal/domain/payment"
)

// StripeGateway creates checkout sessions via the Stripe API.
type StripeGateway struct {
	client *client.API
}

// NewStripeGateway creates a gateway with the given secret key.
// PRE: secretKey is a valid Stripe secret key
// POST: Returns a ready-to-use gateway
func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{client: api}
}

// CreateCheckoutSession submits a single-line-item, card, one-time
// checkout session. Amounts are already in the gateway's smallest-unit
// representation via req.MinorUnitAmount.
// PRE: req has passed Validate and carries resolved redirect URLs
// POST: Returns the provider session or ErrGateway; no session exists on error
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(domain.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:     stripe.String(req.CourseTitle),
						Metadata: map[string]string{"courseId": req.CourseID},
					},
					UnitAmount: stripe.Int64(req.MinorUnitAmount()),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		CustomerEmail:     stripe.String(req.UserEmail),
	}
	// Session metadata drives reconciliation when the user returns.
	params.AddMetadata("courseId", req.CourseID)
	params.AddMetadata("userId", req.UserID)

	sess, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		slog.Error("stripe_session_failed", "course_id", req.CourseID, "user_id", req.UserID, "error", err.Error())
		return domain.CheckoutSession{}, fmt.Errorf("%w: %s", domain.ErrGateway, providerMessage(err))
	}

	slog.Info("stripe_session_created", "session_id", sess.ID, "course_id", req.CourseID, "user_id", req.UserID, "amount", req.MinorUnitAmount())
	return domain.CheckoutSession{
		ID:         sess.ID,
		URL:        sess.URL,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		CourseID:   req.CourseID,
		UserID:     req.UserID,
	}, nil
}

// providerMessage extracts Stripe's human-readable message when present.
func providerMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}
