package types

import "time"

// Event is a published event owned by the organiser that created it.
// The owner is immutable after creation.
type Event struct {
	// ID is the unique identifier of the event.
	ID int `json:"id" db:"id"`

	// OwnerID references the user that created the event.
	OwnerID int `json:"owner_id" db:"owner_id"`

	// Title is the event's title.
	Title string `json:"title" db:"title"`

	// Description is an optional free-form description.
	Description string `json:"description" db:"description"`

	// Date is when the event takes place.
	Date time.Time `json:"date" db:"date"`

	// CreatedAt is the timestamp when the event was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Subscription is a join record linking one subscriber to one event.
// At most one row exists per (event, subscriber) pair at any time.
type Subscription struct {
	ID           int       `json:"id" db:"id"`
	EventID      int       `json:"event_id" db:"event_id"`
	SubscriberID int       `json:"subscriber_id" db:"subscriber_id"`
	SubscribedAt time.Time `json:"subscribed_at" db:"subscribed_at"`
}
