package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"academy/internal/domain/course"
	"academy/internal/domain/payment"
)

// ReconcilePaymentInput carries the state observed when a browser
// lands back on a course page from the payment flow.
type ReconcilePaymentInput struct {
	CourseID      string
	PaymentStatus string // value of the payment query flag, may be empty
	UID           string // empty when nobody is signed in
	DisplayName   string
	Email         string
}

// ReconcilePaymentResult reports what reconciliation did.
type ReconcilePaymentResult struct {
	Registered bool // true when this call added the membership
	Outcome    course.AddOutcome
}

// ExecuteReconcilePayment turns a successful payment return into a
// membership. It fires only when the return flag says success and a
// signed-in user is present; every other combination is a no-op. The
// whole operation is idempotent: reloading the success URL finds the
// uid already in the member set and changes nothing.
// PRE: CourseID is non-empty
// POST: On success+authenticated, uid is a member; otherwise state is unchanged
// INVARIANT: Reconciliation never removes members and never runs on a canceled return
func ExecuteReconcilePayment(ctx context.Context, input ReconcilePaymentInput, deps RegisterForCourseDeps) (ReconcilePaymentResult, error) {
	if input.PaymentStatus != payment.StatusSuccess {
		return ReconcilePaymentResult{}, nil
	}
	if input.UID == "" {
		// Paid while signed out, or the session expired mid-flow. The
		// page asks the user to sign in; reconciliation reruns on the
		// next load.
		slog.Warn("payment_event", "event", "reconcile_skipped_unauthenticated", "course_id", input.CourseID)
		return ReconcilePaymentResult{}, nil
	}

	result, err := ExecuteRegisterForCourse(ctx, RegisterForCourseInput{
		CourseID:    input.CourseID,
		UID:         input.UID,
		DisplayName: input.DisplayName,
		Email:       input.Email,
	}, deps)
	if err != nil {
		if errors.Is(err, course.ErrCourseFull) {
			// Paid but the course filled up first. Surface it; refunds
			// are handled out of band by the operator.
			slog.Error("payment_event", "event", "reconcile_course_full", "course_id", input.CourseID, "uid", input.UID)
		}
		return ReconcilePaymentResult{}, err
	}

	if result.Outcome == course.AddOutcomeAdded {
		slog.Info("payment_event", "event", "reconcile_registered", "course_id", input.CourseID, "uid", input.UID)
	}

	return ReconcilePaymentResult{
		Registered: result.Outcome == course.AddOutcomeAdded,
		Outcome:    result.Outcome,
	}, nil
}
