package payment

import (
	"errors"
	"strings"
)

// Currency is the only currency this deployment charges in.
const Currency = "huf"

// MinorUnitFactor converts major currency units to the gateway's
// smallest-unit representation. The gateway API treats HUF as a
// two-decimal currency even though cash has no fillér subdivision, so
// the ×100 is the gateway's convention, not an assumption of ours.
const MinorUnitFactor = 100

// Redirect query contract. The course page inspects this flag when the
// user's browser returns from the payment flow.
const (
	ReturnParam    = "payment"
	StatusSuccess  = "success"
	StatusCanceled = "canceled"
)

// Validation errors (no external call is made once any of these fire).
var (
	ErrMissingCourseID    = errors.New("courseId is required")
	ErrMissingCourseTitle = errors.New("courseTitle is required")
	ErrInvalidPrice       = errors.New("coursePrice must be a positive integer")
	ErrMissingUserID      = errors.New("userId is required")
	ErrMissingUserEmail   = errors.New("userEmail is required")
)

// Configuration and provider errors.
var (
	// ErrBaseURL means the redirect base URL could not be resolved to a
	// well-formed absolute URL. Surfaced before any gateway call.
	ErrBaseURL = errors.New("checkout base URL is invalid")

	// ErrGateway wraps the payment provider's failure message. The
	// session is never considered created when this is returned.
	ErrGateway = errors.New("payment gateway error")
)

// CheckoutRequest is everything needed to open one checkout session.
type CheckoutRequest struct {
	CourseID       string
	CourseTitle    string
	UnitPriceMajor int // major currency units
	UserID         string
	UserEmail      string
	SuccessURL     string
	CancelURL      string
}

// Validate checks the fields the gateway call depends on. Redirect URLs
// are resolved after validation and are not checked here.
// PRE: CheckoutRequest is populated from the client request
// POST: Returns the first validation error, or nil
func (r *CheckoutRequest) Validate() error {
	if strings.TrimSpace(r.CourseID) == "" {
		return ErrMissingCourseID
	}
	if strings.TrimSpace(r.CourseTitle) == "" {
		return ErrMissingCourseTitle
	}
	if r.UnitPriceMajor <= 0 {
		return ErrInvalidPrice
	}
	if strings.TrimSpace(r.UserID) == "" {
		return ErrMissingUserID
	}
	if strings.TrimSpace(r.UserEmail) == "" {
		return ErrMissingUserEmail
	}
	return nil
}

// MinorUnitAmount returns the line-item amount in the gateway's
// smallest-unit representation.
// INVARIANT: CheckoutRequest fields are not mutated
func (r *CheckoutRequest) MinorUnitAmount() int64 {
	return int64(r.UnitPriceMajor) * MinorUnitFactor
}

// CheckoutSession is the gateway's view of one payment attempt. It is
// ephemeral from this system's perspective: the gateway owns it and we
// never persist it.
type CheckoutSession struct {
	ID         string // opaque gateway session id
	URL        string // hosted checkout page to redirect the user to
	SuccessURL string
	CancelURL  string
	CourseID   string // metadata echoed back for reconciliation
	UserID     string
}
