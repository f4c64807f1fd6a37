package course

import (
	"context"

	domain "academy/internal/domain/course"
)

// Store persists Course state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Course, error)
	Save(ctx context.Context, value domain.Course) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Course, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// MembershipStore owns the persisted member set per course. Add and
// remove are commutative and idempotent: two concurrent adds (or an add
// racing a remove) converge to the same set regardless of interleaving,
// and repeating either operation is a success no-op.
type MembershipStore interface {
	// AddMember merges a member into the set. Adding a member that is
	// already present is a no-op and still succeeds. Does NOT enforce
	// capacity — run the admission decision first, or use
	// AddMemberIfUnderCapacity for a hard bound.
	AddMember(ctx context.Context, courseID string, m domain.Member) error

	// AddMemberIfUnderCapacity inserts the member only while the member
	// count is below maxCapacity, in a single statement, closing the
	// check-then-act window at the storage layer.
	AddMemberIfUnderCapacity(ctx context.Context, courseID string, m domain.Member, maxCapacity int) (domain.AddOutcome, error)

	// RemoveMember removes a member from the set. Removing an absent
	// member is a no-op and still succeeds.
	RemoveMember(ctx context.Context, courseID, uid string) error

	ListMembers(ctx context.Context, courseID string) ([]domain.Member, error)
	CountMembers(ctx context.Context, courseID string) (int, error)
	IsMember(ctx context.Context, courseID, uid string) (bool, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit    int
	Offset   int
	Category string
	Search   string
}
