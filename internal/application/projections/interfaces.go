package projections

import (
	"context"

	courseStore "academy/internal/adapters/storage/course"
	domainCourse "academy/internal/domain/course"
)

// CourseStore interface for course queries.
type CourseStore interface {
	GetByID(ctx context.Context, id string) (domainCourse.Course, error)
	List(ctx context.Context, filter courseStore.ListFilter) ([]domainCourse.Course, error)
	Count(ctx context.Context, filter courseStore.ListFilter) (int, error)
}

// MembershipStore interface for member-set queries.
type MembershipStore interface {
	ListMembers(ctx context.Context, courseID string) ([]domainCourse.Member, error)
	CountMembers(ctx context.Context, courseID string) (int, error)
	IsMember(ctx context.Context, courseID, uid string) (bool, error)
}
