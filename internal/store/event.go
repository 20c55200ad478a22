package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gatherly/apiserver/types"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event types.Event) (types.Event, error) {
	event.CreatedAt = time.Now()

	const query = `
		INSERT INTO events (owner_id, title, description, date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		event.OwnerID,
		event.Title,
		event.Description,
		event.Date,
		event.CreatedAt,
	).Scan(&event.ID); err != nil {
		return types.Event{}, err
	}
	return event, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int) (types.Event, error) {
	const query = `
		SELECT id, owner_id, title, description, date, created_at
		FROM events
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetOwned looks an event up by id and owner in a single predicate. An event
// owned by someone else is indistinguishable from a non-existent one.
func (r *EventRepository) GetOwned(ctx context.Context, id, ownerID int) (types.Event, error) {
	const query = `
		SELECT id, owner_id, title, description, date, created_at
		FROM events
		WHERE id = $1 AND owner_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *EventRepository) ListAll(ctx context.Context) ([]types.Event, error) {
	const query = `
		SELECT id, owner_id, title, description, date, created_at
		FROM events
		ORDER BY id`
	return r.list(ctx, query)
}

func (r *EventRepository) ListByOwner(ctx context.Context, ownerID int) ([]types.Event, error) {
	const query = `
		SELECT id, owner_id, title, description, date, created_at
		FROM events
		WHERE owner_id = $1
		ORDER BY id`
	return r.list(ctx, query, ownerID)
}

// Update replaces title, description, and date of an owned event. The owner
// predicate is part of the statement, so a non-owner update reports ErrNotFound.
func (r *EventRepository) Update(ctx context.Context, event types.Event) (types.Event, error) {
	const query = `
		UPDATE events
		SET title = $1,
			description = $2,
			date = $3
		WHERE id = $4 AND owner_id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		event.Title,
		event.Description,
		event.Date,
		event.ID,
		event.OwnerID,
	)
	if err != nil {
		return types.Event{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Event{}, err
	}
	if affected == 0 {
		return types.Event{}, ErrNotFound
	}
	return r.GetOwned(ctx, event.ID, event.OwnerID)
}

// Delete removes an owned event, same combined predicate as Update.
func (r *EventRepository) Delete(ctx context.Context, id, ownerID int) error {
	const query = `DELETE FROM events WHERE id = $1 AND owner_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *EventRepository) scanOne(row *sql.Row) (types.Event, error) {
	var event types.Event
	err := row.Scan(
		&event.ID,
		&event.OwnerID,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Event{}, ErrNotFound
		}
		return types.Event{}, err
	}
	return event, nil
}

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]types.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var event types.Event
		if err := rows.Scan(
			&event.ID,
			&event.OwnerID,
			&event.Title,
			&event.Description,
			&event.Date,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
