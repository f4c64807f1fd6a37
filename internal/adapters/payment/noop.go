package payment

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	domain "academy/internal/domain/payment"
)

// NoopGateway is used when no payment provider is configured (local
// development). It fabricates a session whose checkout URL is the
// success redirect, so the flow can be exercised end to end without
// charging anyone.
type NoopGateway struct{}

// NewNoopGateway creates a no-op gateway.
func NewNoopGateway() *NoopGateway {
	return &NoopGateway{}
}

// CreateCheckoutSession logs the would-be session and returns a fake
// one that skips straight to the success redirect.
func (g *NoopGateway) CreateCheckoutSession(_ context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	id := "noop_" + uuid.New().String()
	slog.Info("noop_checkout_session",
		"session_id", id,
		"course_id", req.CourseID,
		"user_id", req.UserID,
		"amount", req.MinorUnitAmount(),
		"currency", domain.Currency,
	)
	return domain.CheckoutSession{
		ID:         id,
		URL:        req.SuccessURL,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		CourseID:   req.CourseID,
		UserID:     req.UserID,
	}, nil
}
