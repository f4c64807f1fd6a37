package outbox

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"academy/internal/adapters/storage"
	domain "academy/internal/domain/outbox"
)

// newTestStore creates a SQLiteStore over an in-memory database.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// A pooled second connection would see a fresh empty :memory: database.
	db.SetMaxOpenConns(1)
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return NewSQLiteStore(db)
}

func seedEntry(t *testing.T, store *SQLiteStore, id, status string, createdAt time.Time) domain.Entry {
	t.Helper()
	e := domain.Entry{
		ID:          id,
		ActionType:  domain.ActionTypeEmail,
		Payload:     `{"to":"kata@example.com"}`,
		Status:      status,
		MaxAttempts: domain.DefaultMaxAttempts,
		CreatedAt:   createdAt,
	}
	if err := store.Save(context.Background(), e); err != nil {
		t.Fatalf("failed to seed entry: %v", err)
	}
	return e
}

func TestOutboxStore_SaveAndGetByID(t *testing.T) {
	store := newTestStore(t)
	createdAt := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	seedEntry(t, store, "e1", domain.StatusPending, createdAt)

	got, err := store.GetByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ActionType != domain.ActionTypeEmail {
		t.Errorf("expected action type %q, got %q", domain.ActionTypeEmail, got.ActionType)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("expected status pending, got %q", got.Status)
	}
	if !got.CreatedAt.Equal(createdAt) {
		t.Errorf("expected created_at %v, got %v", createdAt, got.CreatedAt)
	}
	if !got.LastAttemptedAt.IsZero() {
		t.Errorf("expected zero last_attempted_at, got %v", got.LastAttemptedAt)
	}
}

func TestOutboxStore_GetByID_NotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetByID(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing entry")
	}
}

func TestOutboxStore_SaveUpdatesDeliveryState(t *testing.T) {
	store := newTestStore(t)
	e := seedEntry(t, store, "e1", domain.StatusPending, time.Now().UTC())

	e.Status = domain.StatusDone
	e.Attempts = 1
	e.LastAttemptedAt = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	e.ExternalID = "msg_123"
	if err := store.Save(context.Background(), e); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := store.GetByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.StatusDone || got.Attempts != 1 || got.ExternalID != "msg_123" {
		t.Errorf("update not persisted: %+v", got)
	}
	if !got.LastAttemptedAt.Equal(e.LastAttemptedAt) {
		t.Errorf("expected last_attempted_at %v, got %v", e.LastAttemptedAt, got.LastAttemptedAt)
	}
}

func TestOutboxStore_ListPending(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	seedEntry(t, store, "e-old", domain.StatusPending, base)
	seedEntry(t, store, "e-retry", domain.StatusRetrying, base.Add(time.Minute))
	seedEntry(t, store, "e-done", domain.StatusDone, base.Add(2*time.Minute))
	seedEntry(t, store, "e-failed", domain.StatusFailed, base.Add(3*time.Minute))

	entries, err := store.ListPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 deliverable entries, got %d", len(entries))
	}
	// Oldest first
	if entries[0].ID != "e-old" || entries[1].ID != "e-retry" {
		t.Errorf("unexpected order: %s, %s", entries[0].ID, entries[1].ID)
	}
}

func TestOutboxStore_ListPending_Limit(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		seedEntry(t, store, id, domain.StatusPending, base.Add(time.Duration(i)*time.Minute))
	}

	entries, err := store.ListPending(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected limit of 2, got %d", len(entries))
	}
}

func TestOutboxStore_Delete(t *testing.T) {
	store := newTestStore(t)
	seedEntry(t, store, "e1", domain.StatusDone, time.Now().UTC())

	if err := store.Delete(context.Background(), "e1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(context.Background(), "e1"); err == nil {
		t.Error("expected entry to be gone")
	}
}
