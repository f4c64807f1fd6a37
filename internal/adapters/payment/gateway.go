package payment

import (
	"context"

	domain "academy/internal/domain/payment"
)

// Gateway is the interface for creating checkout sessions with an
// external payment provider. Sessions are owned by the provider; this
// system never persists them. A failed call means no session exists —
// there is no partial-creation state to clean up.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error)
}
