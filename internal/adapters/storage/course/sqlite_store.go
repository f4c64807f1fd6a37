package course

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"academy/internal/adapters/storage"
	domain "academy/internal/domain/course"
)

// SQLiteStore implements Store and MembershipStore using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new course store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const courseColumns = "id, title, lead, description, instructor, location, categories, starts_at, price, max_capacity, created_at"

// scanCourse reads one course row, converting the loosely-typed record
// into the strict domain entity and applying defaults for optional
// fields (missing max_capacity becomes domain.DefaultMaxCapacity).
func scanCourse(row interface{ Scan(...any) error }) (domain.Course, error) {
	var entity domain.Course
	var instructor, location, startsAt sql.NullString
	var categories, createdAt string
	err := row.Scan(
		&entity.ID,
		&entity.Title,
		&entity.Lead,
		&entity.Description,
		&instructor,
		&location,
		&categories,
		&startsAt,
		&entity.Price,
		&entity.MaxCapacity,
		&createdAt,
	)
	if err != nil {
		return domain.Course{}, err
	}
	if instructor.Valid {
		entity.Instructor = instructor.String
	}
	if location.Valid {
		entity.Location = location.String
	}
	if categories != "" {
		entity.Categories = strings.Split(categories, ",")
	}
	if startsAt.Valid && startsAt.String != "" {
		if ts, err := time.Parse(time.RFC3339, startsAt.String); err == nil {
			entity.StartsAt = ts
		}
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		entity.CreatedAt = ts
	}
	entity.ApplyDefaults()
	return entity, nil
}

// GetByID retrieves a Course by its ID.
// PRE: id is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Course, error) {
	query := "SELECT " + courseColumns + " FROM course WHERE id = ?"
	entity, err := scanCourse(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Course{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("get course %s: %w", id, err)
	}
	return entity, nil
}

// Save persists a Course to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Course) error {
	query := `INSERT INTO course (id, title, lead, description, instructor, location, categories, starts_at, price, max_capacity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, lead=excluded.lead, description=excluded.description,
			instructor=excluded.instructor, location=excluded.location, categories=excluded.categories,
			starts_at=excluded.starts_at, price=excluded.price, max_capacity=excluded.max_capacity`

	var instructor, location, startsAt any
	if entity.Instructor != "" {
		instructor = entity.Instructor
	}
	if entity.Location != "" {
		location = entity.Location
	}
	if !entity.StartsAt.IsZero() {
		startsAt = entity.StartsAt.Format(time.RFC3339)
	}
	createdAt := entity.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		entity.Title,
		entity.Lead,
		entity.Description,
		instructor,
		location,
		strings.Join(entity.Categories, ","),
		startsAt,
		entity.Price,
		entity.MaxCapacity,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save course %s: %w", entity.ID, err)
	}
	return nil
}

// Delete removes a Course; its membership rows cascade.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM course WHERE id = ?", id)
	return err
}

// listWhereClause builds the WHERE clause and args for List/Count queries.
func listWhereClause(filter ListFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any

	if filter.Category != "" {
		where += " AND (',' || categories || ',') LIKE ?"
		args = append(args, "%,"+filter.Category+",%")
	}
	if filter.Search != "" {
		where += " AND (title LIKE ? OR lead LIKE ?)"
		term := "%" + filter.Search + "%"
		args = append(args, term, term)
	}
	return where, args
}

// Count returns the total number of courses matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhereClause(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM course"+where, args...).Scan(&count)
	return count, err
}

// List retrieves Courses based on the filter, soonest-starting first.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Course, error) {
	where, args := listWhereClause(filter)
	query := "SELECT " + courseColumns + " FROM course" + where + " ORDER BY starts_at IS NULL, starts_at, title"

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Course
	for rows.Next() {
		entity, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// AddMember merges a member into the course's member set. The
// INSERT OR IGNORE on the (course_id, uid) primary key makes the
// operation commutative and idempotent: concurrent adds from
// independent processes converge, and re-adding is a success no-op.
// PRE: courseID and m.UID are non-empty
// POST: m is in the set; duplicate adds leave exactly one row
func (s *SQLiteStore) AddMember(ctx context.Context, courseID string, m domain.Member) error {
	registeredAt := m.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO course_member (course_id, uid, display_name, registered_at) VALUES (?, ?, ?, ?)",
		courseID, m.UID, m.DisplayName, registeredAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("add member %s to course %s: %w", m.UID, courseID, err)
	}
	return nil
}

// AddMemberIfUnderCapacity inserts the member only while the current
// member count is below maxCapacity. The count and insert happen in one
// statement, so concurrent registrations cannot both slip under the
// bound the way a separate check-then-act pair can.
// PRE: courseID and m.UID are non-empty, maxCapacity >= 1
// POST: Returns added, already_member, or full; the set is unchanged
// unless the outcome is added
func (s *SQLiteStore) AddMemberIfUnderCapacity(ctx context.Context, courseID string, m domain.Member, maxCapacity int) (domain.AddOutcome, error) {
	registeredAt := m.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO course_member (course_id, uid, display_name, registered_at)
		SELECT ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM course_member WHERE course_id = ?) < ?
		ON CONFLICT(course_id, uid) DO NOTHING`,
		courseID, m.UID, m.DisplayName, registeredAt.Format(time.RFC3339),
		courseID, maxCapacity,
	)
	if err != nil {
		return "", fmt.Errorf("conditional add member %s to course %s: %w", m.UID, courseID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected > 0 {
		return domain.AddOutcomeAdded, nil
	}

	// Nothing inserted: either the uid was already present or the
	// course is at capacity. Distinguish for the caller.
	isMember, err := s.IsMember(ctx, courseID, m.UID)
	if err != nil {
		return "", err
	}
	if isMember {
		return domain.AddOutcomeAlreadyMember, nil
	}
	return domain.AddOutcomeFull, nil
}

// RemoveMember removes a member from the course's member set. Removing
// an absent member is a no-op and still succeeds (commutative diff).
// PRE: courseID and uid are non-empty
// POST: No row for (courseID, uid) remains
func (s *SQLiteStore) RemoveMember(ctx context.Context, courseID, uid string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM course_member WHERE course_id = ? AND uid = ?",
		courseID, uid,
	)
	if err != nil {
		return fmt.Errorf("remove member %s from course %s: %w", uid, courseID, err)
	}
	return nil
}

// ListMembers returns the member set for a course in registration order.
func (s *SQLiteStore) ListMembers(ctx context.Context, courseID string) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT uid, display_name, registered_at FROM course_member WHERE course_id = ? ORDER BY registered_at, uid",
		courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		var registeredAt string
		if err := rows.Scan(&m.UID, &m.DisplayName, &registeredAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, registeredAt); err == nil {
			m.RegisteredAt = ts
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CountMembers returns the current size of the member set.
func (s *SQLiteStore) CountMembers(ctx context.Context, courseID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM course_member WHERE course_id = ?", courseID,
	).Scan(&count)
	return count, err
}

// IsMember reports whether uid is in the course's member set.
func (s *SQLiteStore) IsMember(ctx context.Context, courseID, uid string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM course_member WHERE course_id = ? AND uid = ?", courseID, uid,
	).Scan(&n)
	return n > 0, err
}
