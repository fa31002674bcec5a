package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yaksh9737/event-manager/internal/domain"
)

// eventColumns selects the event row together with its attendee count so
// every read is a consistent snapshot of occupancy.
const eventColumns = `e.id, e.owner_id, e.title, e.description, e.date, e.location,
	e.max_attendees, COALESCE(e.image_url, '') as image_url, e.created_at, e.updated_at,
	(SELECT COUNT(*) FROM event_attendees a WHERE a.event_id = e.id) as attendee_count`

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	event := &domain.Event{}
	err := row.Scan(
		&event.ID,
		&event.OwnerID,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.Location,
		&event.MaxAttendees,
		&event.ImageURL,
		&event.CreatedAt,
		&event.UpdatedAt,
		&event.AttendeeCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// Create inserts a new event
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (id, owner_id, title, description, date, location, max_attendees, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var imageURL interface{}
	if event.ImageURL != "" {
		imageURL = event.ImageURL
	}

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.OwnerID,
		event.Title,
		event.Description,
		event.Date,
		event.Location,
		event.MaxAttendees,
		imageURL,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID retrieves an event with its attendee count
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

// List retrieves events matching the filter, newest first, with pagination
func (r *PostgresEventRepository) List(ctx context.Context, filter domain.EventFilter, limit, offset int) ([]*domain.Event, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argN := 1

	if filter.Search != "" {
		where += fmt.Sprintf(" AND (e.title ILIKE $%d OR e.description ILIKE $%d)", argN, argN)
		args = append(args, "%"+filter.Search+"%")
		argN++
	}
	if filter.Location != "" {
		where += fmt.Sprintf(" AND e.location ILIKE $%d", argN)
		args = append(args, "%"+filter.Location+"%")
		argN++
	}
	if filter.DateFrom != nil {
		where += fmt.Sprintf(" AND e.date >= $%d", argN)
		args = append(args, *filter.DateFrom)
		argN++
	}
	if filter.DateTo != nil {
		where += fmt.Sprintf(" AND e.date <= $%d", argN)
		args = append(args, *filter.DateTo)
		argN++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM events e` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := `SELECT ` + eventColumns + ` FROM events e` + where +
		fmt.Sprintf(` ORDER BY e.date ASC LIMIT $%d OFFSET $%d`, argN, argN+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// ListByOwner retrieves events created by the given user
func (r *PostgresEventRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Event, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events e WHERE e.owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := `SELECT ` + eventColumns + ` FROM events e
		WHERE e.owner_id = $1
		ORDER BY e.date ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list events by owner: %w", err)
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func collectEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event
	for rows.Next() {
		event := &domain.Event{}
		err := rows.Scan(
			&event.ID,
			&event.OwnerID,
			&event.Title,
			&event.Description,
			&event.Date,
			&event.Location,
			&event.MaxAttendees,
			&event.ImageURL,
			&event.CreatedAt,
			&event.UpdatedAt,
			&event.AttendeeCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Update persists event fields. The row is locked for the duration of the
// transaction so a capacity shrink is checked against the attendee count
// without racing concurrent enrollments.
//
// The lock and the count are separate statements on purpose. Under READ
// COMMITTED each statement sees a snapshot taken at its own start; folding
// the count into the locking statement would count against a snapshot from
// before any enrollment this statement blocked on, letting a stale-low count
// slip a shrink below the true attendee count. Counting after the lock is
// acquired reads the attendee set as the committed enrollments left it, the
// same way Enroll sequences its own check.
func (r *PostgresEventRepository) Update(ctx context.Context, event *domain.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var one int
	err = tx.QueryRow(ctx, `SELECT 1 FROM events WHERE id = $1 FOR UPDATE`, event.ID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	var currentCount int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM event_attendees WHERE event_id = $1`, event.ID).Scan(&currentCount)
	if err != nil {
		return fmt.Errorf("read attendee count: %w", err)
	}

	if event.MaxAttendees < currentCount {
		err = ErrCapacityBelowAttendees
		return err
	}

	event.UpdatedAt = time.Now()
	var imageURL interface{}
	if event.ImageURL != "" {
		imageURL = event.ImageURL
	}

	_, err = tx.Exec(ctx, `
		UPDATE events
		SET title = $2, description = $3, date = $4, location = $5, max_attendees = $6, image_url = $7, updated_at = $8
		WHERE id = $1`,
		event.ID,
		event.Title,
		event.Description,
		event.Date,
		event.Location,
		event.MaxAttendees,
		imageURL,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	event.AttendeeCount = currentCount
	return nil
}

// Delete removes an event; attendee rows go with it via ON DELETE CASCADE
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Enroll admits a user into the attendee set inside a serialized transaction.
//
// The event row is locked with SELECT ... FOR UPDATE, which blocks any
// concurrent enrollment on the same event until this transaction resolves.
// Membership and occupancy are then read under the lock, so the
// check-then-insert cannot race: two simultaneous enrollments for the last
// slot are admitted one at a time, and the loser sees the event full. The
// composite primary key on event_attendees is a hard backstop against
// duplicate membership even outside this code path.
func (r *PostgresEventRepository) Enroll(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	event := &domain.Event{}
	err = tx.QueryRow(ctx, `
		SELECT id, owner_id, title, description, date, location, max_attendees,
			COALESCE(image_url, '') as image_url, created_at, updated_at
		FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(
		&event.ID,
		&event.OwnerID,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.Location,
		&event.MaxAttendees,
		&event.ImageURL,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	var count int
	var enrolled bool
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(BOOL_OR(user_id = $2), false)
		FROM event_attendees WHERE event_id = $1`,
		eventID, userID,
	).Scan(&count, &enrolled)
	if err != nil {
		return nil, fmt.Errorf("read attendee set: %w", err)
	}

	if enrolled {
		err = ErrAlreadyEnrolled
		return nil, err
	}
	if count >= event.MaxAttendees {
		err = ErrCapacityReached
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO event_attendees (event_id, user_id, created_at)
		VALUES ($1, $2, $3)`,
		eventID, userID, time.Now(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			err = ErrAlreadyEnrolled
			return nil, err
		}
		return nil, fmt.Errorf("insert attendee: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	event.AttendeeCount = count + 1
	return event, nil
}

// Withdraw removes a user from the attendee set. Withdrawing a user who is
// not enrolled leaves the set unchanged.
func (r *PostgresEventRepository) Withdraw(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("delete attendee: %w", err)
	}
	return r.GetByID(ctx, eventID)
}

// Occupancy returns the attendee count and capacity from one snapshot
func (r *PostgresEventRepository) Occupancy(ctx context.Context, eventID string) (int, int, error) {
	var count, capacity int
	err := r.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM event_attendees a WHERE a.event_id = e.id), e.max_attendees
		FROM events e WHERE e.id = $1`,
		eventID,
	).Scan(&count, &capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrNotFound
		}
		return 0, 0, fmt.Errorf("read occupancy: %w", err)
	}
	return count, capacity, nil
}

// ListAttendees returns enrolled users in enrollment order
func (r *PostgresEventRepository) ListAttendees(ctx context.Context, eventID string) ([]*domain.Attendee, error) {
	if _, err := r.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT a.user_id, u.name, u.email, a.created_at
		FROM event_attendees a
		JOIN users u ON u.id = a.user_id
		WHERE a.event_id = $1
		ORDER BY a.created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []*domain.Attendee
	for rows.Next() {
		a := &domain.Attendee{}
		if err := rows.Scan(&a.UserID, &a.Name, &a.Email, &a.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}
