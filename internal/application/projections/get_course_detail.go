package projections

import (
	"bytes"
	"context"
	"html/template"
	"time"

	domainAccount "academy/internal/domain/account"
	domainCourse "academy/internal/domain/course"

	"github.com/yuin/goldmark"
)

// GetCourseDetailQuery carries query parameters.
type GetCourseDetailQuery struct {
	CourseID   string
	ViewerID   string // empty when nobody is signed in
	ViewerRole string // gates the roster; only admins receive it
}

// CourseDetail aggregates everything the course page renders.
type CourseDetail struct {
	ID              string
	Title           string
	Lead            string
	Description     string        // raw markdown
	DescriptionHTML template.HTML // rendered
	Instructor      string
	Location        string
	Categories      []string
	StartsAt        time.Time
	Price           int
	MaxCapacity     int
	Members         []domainCourse.Member // nil unless the viewer is an admin
	MemberCount     int
	RemainingSpots  int
	Full            bool
	ViewerIsMember  bool
}

// GetCourseDetailDeps holds dependencies for GetCourseDetail.
type GetCourseDetailDeps struct {
	CourseStore     CourseStore
	MembershipStore MembershipStore
}

// QueryGetCourseDetail retrieves one course with its member set and
// rendered description.
// PRE: CourseID is non-empty
// POST: Returns course detail, or ErrNotFound
func QueryGetCourseDetail(ctx context.Context, query GetCourseDetailQuery, deps GetCourseDetailDeps) (CourseDetail, error) {
	c, err := deps.CourseStore.GetByID(ctx, query.CourseID)
	if err != nil {
		return CourseDetail{}, err
	}

	members, err := deps.MembershipStore.ListMembers(ctx, c.ID)
	if err != nil {
		return CourseDetail{}, err
	}

	viewerIsMember := false
	if query.ViewerID != "" {
		viewerIsMember, err = deps.MembershipStore.IsMember(ctx, c.ID, query.ViewerID)
		if err != nil {
			return CourseDetail{}, err
		}
	}

	// The roster (uid + display name) is personal data; only admins
	// get it back. Everyone else sees aggregate occupancy only.
	var roster []domainCourse.Member
	if query.ViewerRole == domainAccount.RoleAdmin {
		roster = members
	}

	remaining := c.RemainingSpots(len(members))
	full := remaining <= 0
	if remaining < 0 {
		remaining = 0
	}
	return CourseDetail{
		ID:              c.ID,
		Title:           c.Title,
		Lead:            c.Lead,
		Description:     c.Description,
		DescriptionHTML: renderMarkdown(c.Description),
		Instructor:      c.Instructor,
		Location:        c.Location,
		Categories:      c.Categories,
		StartsAt:        c.StartsAt,
		Price:           c.Price,
		MaxCapacity:     c.MaxCapacity,
		Members:         roster,
		MemberCount:     len(members),
		RemainingSpots:  remaining,
		Full:            full,
		ViewerIsMember:  viewerIsMember,
	}, nil
}

// renderMarkdown converts a course description to HTML. Content is
// admin-authored, so goldmark's default sanitization stance is enough.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
