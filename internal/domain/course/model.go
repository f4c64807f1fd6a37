package course

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxTitleLength = 200
	MaxLeadLength  = 500
)

// DefaultMaxCapacity is applied at the store boundary when a course row
// carries no capacity. The original data occasionally lacked the field;
// 8 is the value the registration path has always assumed.
const DefaultMaxCapacity = 8

// DisplayNameFallback is stored for members whose account carries no
// display name.
const DisplayNameFallback = "Névtelen"

// Admission is the outcome of the capacity guard for one uid.
type Admission string

// Admission outcomes.
const (
	AdmissionAllow             Admission = "allow"
	AdmissionDenyFull          Admission = "full"
	AdmissionDenyAlreadyMember Admission = "already_member"
)

// AddOutcome reports what a conditional membership insert did.
type AddOutcome string

// Conditional add outcomes.
const (
	AddOutcomeAdded         AddOutcome = "added"
	AddOutcomeAlreadyMember AddOutcome = "already_member"
	AddOutcomeFull          AddOutcome = "full"
)

// Domain errors
var (
	ErrEmptyTitle      = errors.New("course title cannot be empty")
	ErrTitleTooLong    = errors.New("course title cannot exceed 200 characters")
	ErrNegativePrice   = errors.New("course price cannot be negative")
	ErrInvalidCapacity = errors.New("course capacity must be at least 1")
	ErrCourseFull      = errors.New("course is full")
	ErrNotFound        = errors.New("course not found")
)

// Course holds state for a bookable course.
type Course struct {
	ID          string
	Title       string
	Lead        string
	Description string // markdown, rendered in the web layer
	Instructor  string
	Location    string
	Categories  []string
	StartsAt    time.Time // zero value means no scheduled date yet
	Price       int       // major currency units (HUF), 0 means free
	MaxCapacity int
	CreatedAt   time.Time
}

// Member is one enrolled user within a course. UID is the identity;
// DisplayName is display-only and never compared.
type Member struct {
	UID          string
	DisplayName  string
	RegisteredAt time.Time
}

// NewMember builds a Member, substituting the display-name fallback.
// PRE: uid is non-empty
// POST: Returns a Member with a non-empty DisplayName
func NewMember(uid, displayName string, registeredAt time.Time) Member {
	if strings.TrimSpace(displayName) == "" {
		displayName = DisplayNameFallback
	}
	return Member{UID: uid, DisplayName: displayName, RegisteredAt: registeredAt}
}

// Validate checks if the Course has valid data.
// PRE: Course struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: MaxCapacity >= 1, Price >= 0
func (c *Course) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyTitle
	}
	if len(c.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if len(c.Lead) > MaxLeadLength {
		return errors.New("course lead cannot exceed 500 characters")
	}
	if c.Price < 0 {
		return ErrNegativePrice
	}
	if c.MaxCapacity < 1 {
		return ErrInvalidCapacity
	}
	return nil
}

// ApplyDefaults fills optional fields that older records left unset.
// PRE: Course has been loaded from storage or an authoring form
// POST: MaxCapacity >= 1
func (c *Course) ApplyDefaults() {
	if c.MaxCapacity == 0 {
		c.MaxCapacity = DefaultMaxCapacity
	}
	if c.Price < 0 {
		c.Price = 0
	}
}

// RemainingSpots returns how many seats are left given the current
// member count. Can be negative if the soft bound was ever exceeded.
// INVARIANT: Course fields are not mutated
func (c *Course) RemainingSpots(memberCount int) int {
	return c.MaxCapacity - memberCount
}

// DecideAdmission is the capacity guard: it answers whether uid may
// join given a freshly read member set. Purely advisory — it has no
// side effects, and the decision can go stale the moment it is made
// (see the conditional insert in the membership store for the atomic
// variant).
// PRE: members reflects current persisted state for this course
// POST: Returns exactly one Admission outcome
func DecideAdmission(c Course, members []Member, uid string) Admission {
	for _, m := range members {
		if m.UID == uid {
			return AdmissionDenyAlreadyMember
		}
	}
	if len(members) >= c.MaxCapacity {
		return AdmissionDenyFull
	}
	return AdmissionAllow
}
