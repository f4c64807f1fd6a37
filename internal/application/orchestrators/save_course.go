package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"academy/internal/domain/course"

	"github.com/google/uuid"
)

// CourseStoreForSave defines the store interface needed by SaveCourse.
type CourseStoreForSave interface {
	GetByID(ctx context.Context, id string) (course.Course, error)
	Save(ctx context.Context, c course.Course) error
}

// SaveCourseInput carries input for course creation and editing.
type SaveCourseInput struct {
	ID          string // empty for create
	Title       string
	Lead        string
	Description string // markdown
	Instructor  string
	Location    string
	Categories  []string
	StartsAt    time.Time
	Price       int // major currency units
	MaxCapacity int // 0 means default
}

// SaveCourseDeps holds dependencies for SaveCourse.
type SaveCourseDeps struct {
	CourseStore CourseStoreForSave
	GenerateID  func() string    // optional, defaults to uuid
	Now         func() time.Time // optional, defaults to time.Now
}

// ExecuteSaveCourse creates or updates a course.
// PRE: Caller is an admin (enforced at the transport layer)
// POST: Course persisted with defaults applied; returns its id
// INVARIANT: CreatedAt of an existing course is preserved
func ExecuteSaveCourse(ctx context.Context, input SaveCourseInput, deps SaveCourseDeps) (string, error) {
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	c := course.Course{
		ID:          input.ID,
		Title:       input.Title,
		Lead:        input.Lead,
		Description: input.Description,
		Instructor:  input.Instructor,
		Location:    input.Location,
		Categories:  input.Categories,
		StartsAt:    input.StartsAt,
		Price:       input.Price,
		MaxCapacity: input.MaxCapacity,
	}

	if c.ID == "" {
		c.ID = deps.GenerateID()
		c.CreatedAt = deps.Now()
	} else {
		existing, err := deps.CourseStore.GetByID(ctx, c.ID)
		if err != nil {
			return "", err
		}
		c.CreatedAt = existing.CreatedAt
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return "", err
	}

	if err := deps.CourseStore.Save(ctx, c); err != nil {
		return "", err
	}

	slog.Info("course_event", "event", "course_saved", "course_id", c.ID, "title", c.Title)
	return c.ID, nil
}
