package orchestrators

import (
	"context"
	"log/slog"

	"academy/internal/domain/course"
)

// CourseStoreForDelete defines the store interface needed by DeleteCourse.
type CourseStoreForDelete interface {
	GetByID(ctx context.Context, id string) (course.Course, error)
	Delete(ctx context.Context, id string) error
}

// DeleteCourseDeps holds dependencies for DeleteCourse.
type DeleteCourseDeps struct {
	CourseStore CourseStoreForDelete
}

// ExecuteDeleteCourse removes a course and, via the schema's cascade,
// its member set.
// PRE: Caller is an admin (enforced at the transport layer)
// POST: Course and its memberships are gone
func ExecuteDeleteCourse(ctx context.Context, courseID string, deps DeleteCourseDeps) error {
	if courseID == "" {
		return course.ErrNotFound
	}

	// Confirm existence so a bad id surfaces as not-found rather than
	// a silent no-op delete.
	if _, err := deps.CourseStore.GetByID(ctx, courseID); err != nil {
		return err
	}

	if err := deps.CourseStore.Delete(ctx, courseID); err != nil {
		return err
	}

	slog.Info("course_event", "event", "course_deleted", "course_id", courseID)
	return nil
}
