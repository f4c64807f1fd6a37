package projections

import (
	"context"
	"time"

	courseStore "academy/internal/adapters/storage/course"
)

// GetCourseListQuery carries query parameters.
type GetCourseListQuery struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

// CourseListItem is one course row on the catalog page.
type CourseListItem struct {
	ID             string
	Title          string
	Lead           string
	Instructor     string
	Location       string
	Categories     []string
	StartsAt       time.Time
	Price          int
	MaxCapacity    int
	MemberCount    int
	RemainingSpots int
	Full           bool
}

// GetCourseListResult carries the query result.
type GetCourseListResult struct {
	Courses []CourseListItem
	Total   int
}

// GetCourseListDeps holds dependencies for GetCourseList.
type GetCourseListDeps struct {
	CourseStore     CourseStore
	MembershipStore MembershipStore
}

// QueryGetCourseList retrieves the course catalog with occupancy.
// PRE: Valid query parameters
// POST: Returns courses with member counts and remaining spots
// INVARIANT: RemainingSpots is clamped to >= 0; Full is true whenever
// the member count has reached or passed MaxCapacity
func QueryGetCourseList(ctx context.Context, query GetCourseListQuery, deps GetCourseListDeps) (GetCourseListResult, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	filter := courseStore.ListFilter{
		Limit:    limit,
		Offset:   query.Offset,
		Category: query.Category,
		Search:   query.Search,
	}

	courses, err := deps.CourseStore.List(ctx, filter)
	if err != nil {
		return GetCourseListResult{}, err
	}
	total, err := deps.CourseStore.Count(ctx, filter)
	if err != nil {
		return GetCourseListResult{}, err
	}

	items := make([]CourseListItem, 0, len(courses))
	for _, c := range courses {
		count, err := deps.MembershipStore.CountMembers(ctx, c.ID)
		if err != nil {
			return GetCourseListResult{}, err
		}
		// An admin may lower maxCapacity below the member count, so the
		// raw value can go negative; the catalog clamps it for display.
		remaining := c.RemainingSpots(count)
		full := remaining <= 0
		if remaining < 0 {
			remaining = 0
		}
		items = append(items, CourseListItem{
			ID:             c.ID,
			Title:          c.Title,
			Lead:           c.Lead,
			Instructor:     c.Instructor,
			Location:       c.Location,
			Categories:     c.Categories,
			StartsAt:       c.StartsAt,
			Price:          c.Price,
			MaxCapacity:    c.MaxCapacity,
			MemberCount:    count,
			RemainingSpots: remaining,
			Full:           full,
		})
	}

	return GetCourseListResult{Courses: items, Total: total}, nil
}
