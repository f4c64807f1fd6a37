package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"academy/internal/domain/course"
	"academy/internal/domain/outbox"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func fixedID() string { return "test-id-001" }

// mockCourseStore implements the course lookup interfaces for testing.
type mockCourseStore struct {
	courses map[string]course.Course
}

func newMockCourseStore(cs ...course.Course) *mockCourseStore {
	s := &mockCourseStore{courses: make(map[string]course.Course)}
	for _, c := range cs {
		s.courses[c.ID] = c
	}
	return s
}

func (m *mockCourseStore) GetByID(_ context.Context, id string) (course.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (m *mockCourseStore) Save(_ context.Context, c course.Course) error {
	m.courses[c.ID] = c
	return nil
}

func (m *mockCourseStore) Delete(_ context.Context, id string) error {
	delete(m.courses, id)
	return nil
}

// mockMembershipStore holds per-course member sets keyed by uid.
type mockMembershipStore struct {
	members map[string]map[string]course.Member
}

func newMockMembershipStore() *mockMembershipStore {
	return &mockMembershipStore{members: make(map[string]map[string]course.Member)}
}

func (m *mockMembershipStore) set(courseID string) map[string]course.Member {
	if m.members[courseID] == nil {
		m.members[courseID] = make(map[string]course.Member)
	}
	return m.members[courseID]
}

func (m *mockMembershipStore) ListMembers(_ context.Context, courseID string) ([]course.Member, error) {
	var out []course.Member
	for _, mem := range m.members[courseID] {
		out = append(out, mem)
	}
	return out, nil
}

func (m *mockMembershipStore) CountMembers(_ context.Context, courseID string) (int, error) {
	return len(m.members[courseID]), nil
}

func (m *mockMembershipStore) AddMemberIfUnderCapacity(_ context.Context, courseID string, mem course.Member, maxCapacity int) (course.AddOutcome, error) {
	set := m.set(courseID)
	if _, ok := set[mem.UID]; ok {
		return course.AddOutcomeAlreadyMember, nil
	}
	if len(set) >= maxCapacity {
		return course.AddOutcomeFull, nil
	}
	set[mem.UID] = mem
	return course.AddOutcomeAdded, nil
}

func (m *mockMembershipStore) RemoveMember(_ context.Context, courseID, uid string) error {
	delete(m.members[courseID], uid)
	return nil
}

// mockOutboxStore records saved entries.
type mockOutboxStore struct {
	entries map[string]outbox.Entry
	saveErr error
}

func newMockOutboxStore() *mockOutboxStore {
	return &mockOutboxStore{entries: make(map[string]outbox.Entry)}
}

func (m *mockOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return outbox.Entry{}, errors.New("not found")
	}
	return e, nil
}

func (m *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutboxStore) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for _, e := range m.entries {
		if e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying {
			out = append(out, e)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockOutboxStore) Delete(_ context.Context, id string) error {
	delete(m.entries, id)
	return nil
}

func testCourse() course.Course {
	return course.Course{
		ID:          "c1",
		Title:       "Bread 101",
		Instructor:  "Anna",
		Location:    "Budapest",
		StartsAt:    fixedTime.AddDate(0, 1, 0),
		Price:       15000,
		MaxCapacity: 2,
		CreatedAt:   fixedTime,
	}
}

func registerDeps(cs *mockCourseStore, ms *mockMembershipStore, os *mockOutboxStore) RegisterForCourseDeps {
	deps := RegisterForCourseDeps{
		CourseStore:     cs,
		MembershipStore: ms,
		GenerateID:      fixedID,
		Now:             fixedNow,
	}
	if os != nil {
		deps.OutboxStore = os
	}
	return deps
}

// TestExecuteRegisterForCourse_Added tests the first registration of a uid.
func TestExecuteRegisterForCourse_Added(t *testing.T) {
	cs := newMockCourseStore(testCourse())
	ms := newMockMembershipStore()
	ob := newMockOutboxStore()

	result, err := ExecuteRegisterForCourse(context.Background(), RegisterForCourseInput{
		CourseID:    "c1",
		UID:         "user-1",
		DisplayName: "Kata",
		Email:       "kata@example.com",
	}, registerDeps(cs, ms, ob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != course.AddOutcomeAdded {
		t.Errorf("expected outcome=added, got %s", result.Outcome)
	}
	if result.RemainingSpots != 1 {
		t.Errorf("expected 1 remaining spot, got %d", result.RemainingSpots)
	}
	if _, ok := ms.members["c1"]["user-1"]; !ok {
		t.Error("expected user-1 to be a member")
	}
}

// TestExecuteRegisterForCourse_QueuesConfirmation tests that a new
// registration with an email records an outbox entry.
func TestExecuteRegisterForCourse_QueuesConfirmation(t *testing.T) {
	cs := newMockCourseStore(testCourse())
	ms := newMockMembershipStore()
	ob := newMockOutboxStore()

	_, err := ExecuteRegisterForCourse(context.Background(), RegisterForCourseInput{
		CourseID:    "c1",
		UID:         "user-1",
		DisplayName: "Kata",
		Email:       "kata@example.com",
	}, registerDeps(cs, ms, ob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, ok := ob.entries["test-id-001"]
	if !ok {
		t.Fatal("expected a queued outbox entry")
	}
	if entry.ActionType != outbox.ActionTypeEmail {
		t.Errorf("expected action_type=email, got %s", entry.ActionType)
	}
	var payload ConfirmationEmailPayload
	if err := json.Unmarshal([]byte(entry.Payload), &payload); err != nil {
		t.Fatalf("payload did not unmarshal: %v", err)
	}
	if payload.To != "kata@example.com" {
		t.Errorf("expected recipient kata@example.com, got %s", payload.To)
	}
	if payload.CourseTitle != "Bread 101" {
		t.Errorf("expected course title Bread 101, got %s", payload.CourseTitle)
	}
}

// TestExecuteRegisterForCourse_AlreadyMember tests that repeating a
// registration is a success no-op and queues nothing.
func TestExecuteRegisterForCourse_AlreadyMember(t *testing.T) {
	cs := newMockCourseStore(testCourse())
	ms := newMockMembershipStore()
	ob := newMockOutboxStore()
	deps := registerDeps(cs, ms, ob)
	input := RegisterForCourseInput{CourseID: "c1", UID: "user-1", DisplayName: "Kata", Email: "kata@example.com"}

	if _, err := ExecuteRegisterForCourse(context.Background(), input, deps); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	result, err := ExecuteRegisterForCourse(context.Background(), input, deps)
	if err != nil {
		t.Fatalf("repeat registration should succeed: %v", err)
	}
	if result.Outcome != course.AddOutcomeAlreadyMember {
		t.Errorf("expected outcome=already_member, got %s", result.Outcome)
	}
	if len(ms.members["c1"]) != 1 {
		t.Errorf("expected 1 member, got %d", len(ms.members["c1"]))
	}
	if len(ob.entries) != 1 {
		t.Errorf("expected 1 outbox entry (from first registration), got %d", len(ob.entries))
	}
}

// TestExecuteRegisterForCourse_Full tests the capacity bound.
func TestExecuteRegisterForCourse_Full(t *testing.T) {
	cs := newMockCourseStore(testCourse())
	ms := newMockMembershipStore()
	deps := registerDeps(cs, ms, nil)

	for _, uid := range []string{"user-1", "user-2"} {
		if _, err := ExecuteRegisterForCourse(context.Background(), RegisterForCourseInput{CourseID: "c1", UID: uid}, deps); err != nil {
			t.Fatalf("registration for %s failed: %v", uid, err)
		}
	}

	_, err := ExecuteRegisterForCourse(context.Background(), RegisterForCourseInput{CourseID: "c1", UID: "user-3"}, deps)
	if !errors.Is(err, course.ErrCourseFull) {
		t.Errorf("expected ErrCourseFull, got %v", err)
	}
	if len(ms.members["c1"]) != 2 {
		t.Errorf("expected member count to stay at 2, got %d", len(ms.members["c1"]))
	}
}

// TestExecuteRegisterForCourse_AlreadyMemberOnFullCourse tests that a
// member of a full course still gets the no-op success, not the full error.
func TestExecuteRegisterForCourse_AlreadyMemberOnFullCourse(t *testing.T) {
	cs := newMockCourseStore(testCourse())
	ms := newMockMembershipStore()
	deps := registerDeps(cs, ms, nil)

	for _, uid := range []string{"user-1", "user-2"} {
		if _, err := ExecuteRegisterForCourse(context.Background(), RegisterForCourseInput{CourseID: "c1", UID: uid}, deps); err != nil {
			t.Fatalf("registration for %s failed: %v", uid, err)
		}
	}

	result, err := ExecuteRegisterForCourse(context.Background(), RegisterForCourseInput{CourseID: "c1", UID: "user-1"}, deps)
	if err != nil {
		t.Fatalf("expected success for existing member, got %v", err)
	}
	if result.Outcome != course.AddOutcomeAlreadyMember {
		t.Errorf("expected outcome=already_member, got %s", result.Outcome)
	}
}

// TestExecuteRegisterForCourse_OutboxFailureDoesNotRollBack tests that
// a broken outbox leaves the membership intact.
func TestExecuteRegisterForCourse_OutboxFailureDoesNotRollBack(t *testing.T) {
	cs := newMockCourseStore(testCourse())
	ms := newMockMembershipStore()
	ob := newMockOutboxStore()
	ob.saveErr = errors.New("disk full")

	result, err := ExecuteRegisterForCourse(context.Background(), RegisterForCourseInput{
		CourseID: "c1",
		UID:      "user-1",
		Email:    "kata@example.com",
	}, registerDeps(cs, ms, ob))
	if err != nil {
		t.Fatalf("registration should succeed despite outbox failure: %v", err)
	}
	if result.Outcome != course.AddOutcomeAdded {
		t.Errorf("expected outcome=added, got %s", result.Outcome)
	}
	if _, ok := ms.members["c1"]["user-1"]; !ok {
		t.Error("expected membership to survive the outbox failure")
	}
}

// TestExecuteRegisterForCourse_UnknownCourse tests the not-found path.
func TestExecuteRegisterForCourse_UnknownCourse(t *testing.T) {
	deps := registerDeps(newMockCourseStore(), newMockMembershipStore(), nil)
	_, err := ExecuteRegisterForCourse(context.Background(), RegisterForCourseInput{CourseID: "ghost", UID: "user-1"}, deps)
	if !errors.Is(err, course.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestExecuteRegisterForCourse_EmptyUID tests input validation.
func TestExecuteRegisterForCourse_EmptyUID(t *testing.T) {
	deps := registerDeps(newMockCourseStore(testCourse()), newMockMembershipStore(), nil)
	_, err := ExecuteRegisterForCourse(context.Background(), RegisterForCourseInput{CourseID: "c1"}, deps)
	if !errors.Is(err, ErrEmptyUID) {
		t.Errorf("expected ErrEmptyUID, got %v", err)
	}
}
