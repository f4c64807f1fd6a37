package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	gateway "academy/internal/adapters/payment"
	"academy/internal/domain/payment"
)

// LocalBaseURL is the redirect base used in local development, where
// the public site runs on its dev server port.
const LocalBaseURL = "http://localhost:3000"

// FallbackBaseURL is the production site address used when no base URL
// is configured explicitly.
const FallbackBaseURL = "https://kovaszakademia.hu"

// BaseURLConfig carries the deployment settings the redirect base is
// resolved from.
type BaseURLConfig struct {
	Local         bool   // local development mode
	PublicBaseURL string // operator-configured, takes precedence
	DeployURL     string // platform-provided, may lack a scheme
}

// CreateCheckoutInput carries the checkout request fields as received
// from the client.
type CreateCheckoutInput struct {
	CourseID    string
	CourseTitle string
	CoursePrice int // major currency units
	UserID      string
	UserEmail   string
}

// CreateCheckoutDeps holds dependencies for CreateCheckout.
type CreateCheckoutDeps struct {
	Gateway gateway.Gateway
	BaseURL BaseURLConfig
}

// ResolveBaseURL determines the absolute base URL that payment
// redirects are built on. Precedence: local mode, then the configured
// public URL, then the platform deploy URL, then the production
// fallback. A scheme-less candidate gets https:// prepended; the
// result must parse as an absolute URL with a host.
// POST: Returns a base with no trailing slash, or ErrBaseURL
func ResolveBaseURL(cfg BaseURLConfig) (string, error) {
	if cfg.Local {
		return LocalBaseURL, nil
	}

	candidate := cfg.PublicBaseURL
	if candidate == "" {
		candidate = cfg.DeployURL
	}
	if candidate == "" {
		candidate = FallbackBaseURL
	}

	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %q", payment.ErrBaseURL, candidate)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", payment.ErrBaseURL, candidate)
	}

	return strings.TrimRight(candidate, "/"), nil
}

// RedirectURLs builds the success and cancel URLs for one course. Both
// land on the course page; the payment query flag tells the page which
// way the flow ended.
func RedirectURLs(base, courseID string) (successURL, cancelURL string) {
	page := fmt.Sprintf("%s/courses/%s", base, courseID)
	successURL = fmt.Sprintf("%s?%s=%s", page, payment.ReturnParam, payment.StatusSuccess)
	cancelURL = fmt.Sprintf("%s?%s=%s", page, payment.ReturnParam, payment.StatusCanceled)
	return successURL, cancelURL
}

// ExecuteCreateCheckout validates the request, resolves redirect URLs
// and opens a checkout session with the payment gateway.
// PRE: Gateway dependency is set
// POST: Returns a session with a hosted checkout URL, or exactly one of
// the validation errors, ErrBaseURL, or ErrGateway; no session exists
// on error
// INVARIANT: The gateway is never called when validation or base URL
// resolution fails
func ExecuteCreateCheckout(ctx context.Context, input CreateCheckoutInput, deps CreateCheckoutDeps) (payment.CheckoutSession, error) {
	req := payment.CheckoutRequest{
		CourseID:       input.CourseID,
		CourseTitle:    input.CourseTitle,
		UnitPriceMajor: input.CoursePrice,
		UserID:         input.UserID,
		UserEmail:      input.UserEmail,
	}
	if err := req.Validate(); err != nil {
		return payment.CheckoutSession{}, err
	}

	base, err := ResolveBaseURL(deps.BaseURL)
	if err != nil {
		slog.Error("payment_event", "event", "base_url_invalid", "course_id", input.CourseID, "error", err.Error())
		return payment.CheckoutSession{}, err
	}
	req.SuccessURL, req.CancelURL = RedirectURLs(base, input.CourseID)

	session, err := deps.Gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		slog.Error("payment_event", "event", "checkout_failed", "course_id", input.CourseID, "user_id", input.UserID, "error", err.Error())
		return payment.CheckoutSession{}, err
	}

	slog.Info("payment_event", "event", "checkout_created",
		"session_id", session.ID, "course_id", input.CourseID, "user_id", input.UserID,
		"amount_minor", req.MinorUnitAmount())

	return session, nil
}
