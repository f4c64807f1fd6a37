package projections

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	courseStore "academy/internal/adapters/storage/course"
	"academy/internal/domain/account"
	"academy/internal/domain/course"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// mockCourseStore implements CourseStore over a slice.
type mockCourseStore struct {
	courses []course.Course
}

func (m *mockCourseStore) GetByID(_ context.Context, id string) (course.Course, error) {
	for _, c := range m.courses {
		if c.ID == id {
			return c, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (m *mockCourseStore) List(_ context.Context, filter courseStore.ListFilter) ([]course.Course, error) {
	var out []course.Course
	for _, c := range m.courses {
		if filter.Category != "" && !hasCategory(c, filter.Category) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCourseStore) Count(ctx context.Context, filter courseStore.ListFilter) (int, error) {
	cs, err := m.List(ctx, filter)
	return len(cs), err
}

func hasCategory(c course.Course, cat string) bool {
	for _, got := range c.Categories {
		if strings.EqualFold(got, cat) {
			return true
		}
	}
	return false
}

// mockMembershipStore implements MembershipStore over a map of uid sets.
type mockMembershipStore struct {
	members map[string][]course.Member
}

func (m *mockMembershipStore) ListMembers(_ context.Context, courseID string) ([]course.Member, error) {
	return m.members[courseID], nil
}

func (m *mockMembershipStore) CountMembers(_ context.Context, courseID string) (int, error) {
	return len(m.members[courseID]), nil
}

func (m *mockMembershipStore) IsMember(_ context.Context, courseID, uid string) (bool, error) {
	for _, mem := range m.members[courseID] {
		if mem.UID == uid {
			return true, nil
		}
	}
	return false, nil
}

func fixtureCourses() *mockCourseStore {
	return &mockCourseStore{courses: []course.Course{
		{ID: "c1", Title: "Bread 101", Categories: []string{"baking"}, Price: 15000, MaxCapacity: 2, StartsAt: fixedTime},
		{ID: "c2", Title: "Pastry Lab", Categories: []string{"pastry"}, Price: 22000, MaxCapacity: 8, StartsAt: fixedTime},
	}}
}

// TestQueryGetCourseList tests occupancy aggregation.
func TestQueryGetCourseList(t *testing.T) {
	ms := &mockMembershipStore{members: map[string][]course.Member{
		"c1": {course.NewMember("u1", "Kata", fixedTime), course.NewMember("u2", "Bence", fixedTime)},
	}}

	result, err := QueryGetCourseList(context.Background(), GetCourseListQuery{}, GetCourseListDeps{
		CourseStore:     fixtureCourses(),
		MembershipStore: ms,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Courses) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(result.Courses))
	}

	c1 := result.Courses[0]
	if c1.MemberCount != 2 || !c1.Full || c1.RemainingSpots != 0 {
		t.Errorf("expected c1 full with 2 members, got %+v", c1)
	}
	c2 := result.Courses[1]
	if c2.MemberCount != 0 || c2.Full || c2.RemainingSpots != 8 {
		t.Errorf("expected c2 empty with 8 spots, got %+v", c2)
	}
}

// TestQueryGetCourseList_CategoryFilter tests category filtering.
func TestQueryGetCourseList_CategoryFilter(t *testing.T) {
	result, err := QueryGetCourseList(context.Background(), GetCourseListQuery{Category: "pastry"}, GetCourseListDeps{
		CourseStore:     fixtureCourses(),
		MembershipStore: &mockMembershipStore{members: map[string][]course.Member{}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Courses) != 1 || result.Courses[0].ID != "c2" {
		t.Errorf("expected only c2, got %+v", result.Courses)
	}
}

// TestQueryGetCourseDetail tests the detail aggregation including
// markdown rendering and viewer membership.
func TestQueryGetCourseDetail(t *testing.T) {
	cs := &mockCourseStore{courses: []course.Course{{
		ID:          "c1",
		Title:       "Bread 101",
		Description: "**Kneading** and folding",
		MaxCapacity: 2,
		StartsAt:    fixedTime,
	}}}
	ms := &mockMembershipStore{members: map[string][]course.Member{
		"c1": {course.NewMember("u1", "Kata", fixedTime)},
	}}

	detail, err := QueryGetCourseDetail(context.Background(), GetCourseDetailQuery{
		CourseID: "c1",
		ViewerID: "u1",
	}, GetCourseDetailDeps{CourseStore: cs, MembershipStore: ms})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !detail.ViewerIsMember {
		t.Error("expected viewer to be a member")
	}
	if detail.RemainingSpots != 1 {
		t.Errorf("expected 1 remaining spot, got %d", detail.RemainingSpots)
	}
	if !strings.Contains(string(detail.DescriptionHTML), "<strong>Kneading</strong>") {
		t.Errorf("expected rendered markdown, got %s", detail.DescriptionHTML)
	}
}

// TestQueryGetCourseList_OverCapacity tests a course whose capacity was
// lowered below its member count: it reports full, never negative spots.
func TestQueryGetCourseList_OverCapacity(t *testing.T) {
	cs := &mockCourseStore{courses: []course.Course{
		{ID: "c1", Title: "Bread 101", MaxCapacity: 1, StartsAt: fixedTime},
	}}
	ms := &mockMembershipStore{members: map[string][]course.Member{
		"c1": {
			course.NewMember("u1", "Kata", fixedTime),
			course.NewMember("u2", "Bence", fixedTime),
			course.NewMember("u3", "Peti", fixedTime),
		},
	}}

	result, err := QueryGetCourseList(context.Background(), GetCourseListQuery{}, GetCourseListDeps{
		CourseStore:     cs,
		MembershipStore: ms,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c1 := result.Courses[0]
	if !c1.Full {
		t.Error("expected over-capacity course to report full")
	}
	if c1.RemainingSpots != 0 {
		t.Errorf("expected 0 remaining spots, got %d", c1.RemainingSpots)
	}

	detail, err := QueryGetCourseDetail(context.Background(), GetCourseDetailQuery{CourseID: "c1"}, GetCourseDetailDeps{
		CourseStore:     cs,
		MembershipStore: ms,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !detail.Full || detail.RemainingSpots != 0 {
		t.Errorf("expected full detail with 0 spots, got full=%v spots=%d", detail.Full, detail.RemainingSpots)
	}
}

// TestQueryGetCourseDetail_RosterOnlyForAdmins tests that member names
// and uids are withheld from everyone but admins.
func TestQueryGetCourseDetail_RosterOnlyForAdmins(t *testing.T) {
	cs := &mockCourseStore{courses: []course.Course{{ID: "c1", Title: "Bread 101", MaxCapacity: 8}}}
	ms := &mockMembershipStore{members: map[string][]course.Member{
		"c1": {course.NewMember("u1", "Kata", fixedTime)},
	}}
	deps := GetCourseDetailDeps{CourseStore: cs, MembershipStore: ms}

	tests := []struct {
		name       string
		viewerRole string
		wantRoster bool
	}{
		{"anonymous", "", false},
		{"learner", account.RoleLearner, false},
		{"admin", account.RoleAdmin, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, err := QueryGetCourseDetail(context.Background(), GetCourseDetailQuery{
				CourseID:   "c1",
				ViewerRole: tt.viewerRole,
			}, deps)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := len(detail.Members) > 0; got != tt.wantRoster {
				t.Errorf("roster visible = %v, want %v", got, tt.wantRoster)
			}
			if detail.MemberCount != 1 {
				t.Errorf("member count must stay visible, got %d", detail.MemberCount)
			}
		})
	}
}

// TestQueryGetCourseDetail_NotFound tests the missing-course path.
func TestQueryGetCourseDetail_NotFound(t *testing.T) {
	_, err := QueryGetCourseDetail(context.Background(), GetCourseDetailQuery{CourseID: "ghost"}, GetCourseDetailDeps{
		CourseStore:     &mockCourseStore{},
		MembershipStore: &mockMembershipStore{},
	})
	if !errors.Is(err, course.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
