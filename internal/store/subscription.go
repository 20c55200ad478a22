package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/gatherly/apiserver/types"
)

// SubscriptionRepository handles persistence for the (event, subscriber)
// join records.
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts a subscription row with the current timestamp. A concurrent
// duplicate trips the unique (event_id, subscriber_id) index and surfaces as
// ErrDuplicate.
func (r *SubscriptionRepository) Create(ctx context.Context, eventID, subscriberID int) (types.Subscription, error) {
	sub := types.Subscription{
		EventID:      eventID,
		SubscriberID: subscriberID,
		SubscribedAt: time.Now(),
	}

	const query = `
		INSERT INTO subscriptions (event_id, subscriber_id, subscribed_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, sub.EventID, sub.SubscriberID, sub.SubscribedAt).Scan(&sub.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Subscription{}, ErrDuplicate
		}
		return types.Subscription{}, err
	}
	return sub, nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, eventID, subscriberID int) error {
	const query = `DELETE FROM subscriptions WHERE event_id = $1 AND subscriber_id = $2`
	result, err := r.db.ExecContext(ctx, query, eventID, subscriberID)
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

func (r *SubscriptionRepository) Exists(ctx context.Context, eventID, subscriberID int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE event_id = $1 AND subscriber_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, eventID, subscriberID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListSubscribers returns the users subscribed to an event,
// most-recently-subscribed first.
func (r *SubscriptionRepository) ListSubscribers(ctx context.Context, eventID int) ([]types.User, error) {
	const query = `
		SELECT u.id, u.name, u.email, u.created_at
		FROM users u
		JOIN subscriptions s ON s.subscriber_id = u.id
		WHERE s.event_id = $1
		ORDER BY s.subscribed_at DESC`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var user types.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListEvents returns the events a user is subscribed to,
// most-recently-subscribed first.
func (r *SubscriptionRepository) ListEvents(ctx context.Context, subscriberID int) ([]types.Event, error) {
	const query = `
		SELECT e.id, e.owner_id, e.title, e.description, e.date, e.created_at
		FROM events e
		JOIN subscriptions s ON s.event_id = e.id
		WHERE s.subscriber_id = $1
		ORDER BY s.subscribed_at DESC`
	rows, err := r.db.QueryContext(ctx, query, subscriberID)
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
