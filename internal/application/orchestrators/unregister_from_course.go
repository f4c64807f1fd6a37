package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"academy/internal/domain/course"
)

// MembershipStoreForUnregister defines the membership operations needed by UnregisterFromCourse.
type MembershipStoreForUnregister interface {
	RemoveMember(ctx context.Context, courseID, uid string) error
	CountMembers(ctx context.Context, courseID string) (int, error)
}

// UnregisterFromCourseInput carries input for the orchestrator.
type UnregisterFromCourseInput struct {
	CourseID string
	UID      string
}

// UnregisterFromCourseDeps holds dependencies for UnregisterFromCourse.
type UnregisterFromCourseDeps struct {
	CourseStore     CourseStoreForRegister
	MembershipStore MembershipStoreForUnregister
}

// UnregisterFromCourseResult reports the member count after removal.
type UnregisterFromCourseResult struct {
	RemainingSpots int
}

// ExecuteUnregisterFromCourse removes a user from a course's member set.
// Removing a uid that is not a member succeeds as a no-op, so retried
// or concurrent unregistrations converge to the same state.
// PRE: CourseID and UID are non-empty
// POST: uid is not a member of the course
func ExecuteUnregisterFromCourse(ctx context.Context, input UnregisterFromCourseInput, deps UnregisterFromCourseDeps) (UnregisterFromCourseResult, error) {
	if input.CourseID == "" {
		return UnregisterFromCourseResult{}, course.ErrNotFound
	}
	if input.UID == "" {
		return UnregisterFromCourseResult{}, ErrEmptyUID
	}

	c, err := deps.CourseStore.GetByID(ctx, input.CourseID)
	if err != nil {
		return UnregisterFromCourseResult{}, err
	}

	if err := deps.MembershipStore.RemoveMember(ctx, input.CourseID, input.UID); err != nil {
		return UnregisterFromCourseResult{}, fmt.Errorf("remove member: %w", err)
	}

	count, err := deps.MembershipStore.CountMembers(ctx, input.CourseID)
	if err != nil {
		return UnregisterFromCourseResult{}, fmt.Errorf("count members: %w", err)
	}

	slog.Info("enrollment_event", "event", "member_unregistered", "course_id", input.CourseID, "uid", input.UID)

	return UnregisterFromCourseResult{RemainingSpots: c.RemainingSpots(count)}, nil
}
