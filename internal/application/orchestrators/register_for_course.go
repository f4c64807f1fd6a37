package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	outboxStore "academy/internal/adapters/storage/outbox"
	"academy/internal/domain/course"
	"academy/internal/domain/outbox"

	"github.com/google/uuid"
)

// CourseStoreForRegister defines the store interface needed by RegisterForCourse.
type CourseStoreForRegister interface {
	GetByID(ctx context.Context, id string) (course.Course, error)
}

// MembershipStoreForRegister defines the membership operations needed by RegisterForCourse.
type MembershipStoreForRegister interface {
	ListMembers(ctx context.Context, courseID string) ([]course.Member, error)
	AddMemberIfUnderCapacity(ctx context.Context, courseID string, m course.Member, maxCapacity int) (course.AddOutcome, error)
}

// RegisterForCourseInput carries input for the orchestrator.
type RegisterForCourseInput struct {
	CourseID    string
	UID         string
	DisplayName string
	Email       string // optional; no confirmation is queued when empty
}

// RegisterForCourseDeps holds dependencies for RegisterForCourse.
type RegisterForCourseDeps struct {
	CourseStore     CourseStoreForRegister
	MembershipStore MembershipStoreForRegister
	OutboxStore     outboxStore.Store // optional
	GenerateID      func() string     // optional, defaults to uuid
	Now             func() time.Time  // optional, defaults to time.Now
}

// RegisterForCourseResult reports what the registration did.
type RegisterForCourseResult struct {
	Outcome        course.AddOutcome
	RemainingSpots int
}

var ErrEmptyUID = errors.New("uid cannot be empty")

// ExecuteRegisterForCourse adds a user to a course's member set.
// The admission decision runs on a fresh read; the insert itself is
// conditional on capacity at the storage layer, so a race between two
// registrations can never overfill the course. Registering twice is a
// success no-op.
// PRE: CourseID and UID are non-empty
// POST: uid is a member, or ErrCourseFull; member count never exceeds MaxCapacity
// INVARIANT: a failed confirmation email never rolls back the membership
func ExecuteRegisterForCourse(ctx context.Context, input RegisterForCourseInput, deps RegisterForCourseDeps) (RegisterForCourseResult, error) {
	if input.CourseID == "" {
		return RegisterForCourseResult{}, course.ErrNotFound
	}
	if input.UID == "" {
		return RegisterForCourseResult{}, ErrEmptyUID
	}
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	c, err := deps.CourseStore.GetByID(ctx, input.CourseID)
	if err != nil {
		return RegisterForCourseResult{}, err
	}

	// Advisory admission decision on a fresh member list. Classifies
	// the failure before touching anything; the conditional insert
	// below re-checks capacity atomically.
	members, err := deps.MembershipStore.ListMembers(ctx, input.CourseID)
	if err != nil {
		return RegisterForCourseResult{}, fmt.Errorf("list members: %w", err)
	}
	switch course.DecideAdmission(c, members, input.UID) {
	case course.AdmissionDenyAlreadyMember:
		return RegisterForCourseResult{
			Outcome:        course.AddOutcomeAlreadyMember,
			RemainingSpots: c.RemainingSpots(len(members)),
		}, nil
	case course.AdmissionDenyFull:
		return RegisterForCourseResult{Outcome: course.AddOutcomeFull}, course.ErrCourseFull
	}

	m := course.NewMember(input.UID, input.DisplayName, deps.Now())
	outcome, err := deps.MembershipStore.AddMemberIfUnderCapacity(ctx, input.CourseID, m, c.MaxCapacity)
	if err != nil {
		return RegisterForCourseResult{}, fmt.Errorf("add member: %w", err)
	}
	if outcome == course.AddOutcomeFull {
		// Lost the race to the last spot.
		return RegisterForCourseResult{Outcome: outcome}, course.ErrCourseFull
	}

	count := len(members)
	if outcome == course.AddOutcomeAdded {
		count++
		slog.Info("enrollment_event", "event", "member_registered", "course_id", input.CourseID, "uid", input.UID)
		queueConfirmationEmail(ctx, input, c, deps)
	}

	return RegisterForCourseResult{
		Outcome:        outcome,
		RemainingSpots: c.RemainingSpots(count),
	}, nil
}

// queueConfirmationEmail records a confirmation email in the outbox.
// Best-effort: a failure here is logged and never surfaced to the
// registration caller.
func queueConfirmationEmail(ctx context.Context, input RegisterForCourseInput, c course.Course, deps RegisterForCourseDeps) {
	if deps.OutboxStore == nil || input.Email == "" {
		return
	}

	payload, err := json.Marshal(ConfirmationEmailPayload{
		To:          input.Email,
		CourseID:    c.ID,
		CourseTitle: c.Title,
		StartsAt:    c.StartsAt,
		Location:    c.Location,
	})
	if err != nil {
		slog.Error("enrollment_event", "event", "confirmation_queue_failed", "course_id", c.ID, "error", err.Error())
		return
	}

	entry := outbox.Entry{
		ID:          deps.GenerateID(),
		ActionType:  outbox.ActionTypeEmail,
		Payload:     string(payload),
		Status:      outbox.StatusPending,
		MaxAttempts: outbox.DefaultMaxAttempts,
		CreatedAt:   deps.Now(),
	}
	if err := deps.OutboxStore.Save(ctx, entry); err != nil {
		slog.Error("enrollment_event", "event", "confirmation_queue_failed", "course_id", c.ID, "error", err.Error())
	}
}
