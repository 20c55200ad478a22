package services

import (
	"context"
	"time"

	"github.com/gatherly/apiserver/types"
)

// EventRepository defines persistence operations for events. Lookups that
// mutate or inspect an event combine existence and ownership in a single
// predicate so a non-owner cannot distinguish "not yours" from "not there".
type EventRepository interface {
	Create(ctx context.Context, event types.Event) (types.Event, error)
	GetByID(ctx context.Context, id int) (types.Event, error)
	GetOwned(ctx context.Context, id, ownerID int) (types.Event, error)
	ListAll(ctx context.Context) ([]types.Event, error)
	ListByOwner(ctx context.Context, ownerID int) ([]types.Event, error)
	Update(ctx context.Context, event types.Event) (types.Event, error)
	Delete(ctx context.Context, id, ownerID int) error
}

// SubscriberLister exposes the subscriber listing the ownership model needs.
type SubscriberLister interface {
	ListSubscribers(ctx context.Context, eventID int) ([]types.User, error)
}

// EventService enforces the event ownership model.
type EventService struct {
	events EventRepository
	subs   SubscriberLister
}

func NewEventService(events EventRepository, subs SubscriberLister) *EventService {
	return &EventService{events: events, subs: subs}
}

// Create publishes an event owned by the authenticated creator. The owner is
// immutable afterwards.
func (s *EventService) Create(ctx context.Context, ownerID int, title, description string, date time.Time) (types.Event, error) {
	return s.events.Create(ctx, types.Event{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Date:        date,
	})
}

// ListPublic returns all events regardless of owner.
func (s *EventService) ListPublic(ctx context.Context) ([]types.Event, error) {
	return s.events.ListAll(ctx)
}

// ListOwn returns exactly the requester's events.
func (s *EventService) ListOwn(ctx context.Context, requesterID int) ([]types.Event, error) {
	return s.events.ListByOwner(ctx, requesterID)
}

// Update replaces title, description, and date wholesale. store.ErrNotFound
// covers both a missing event and one owned by someone else.
func (s *EventService) Update(ctx context.Context, eventID, requesterID int, title, description string, date time.Time) (types.Event, error) {
	return s.events.Update(ctx, types.Event{
		ID:          eventID,
		OwnerID:     requesterID,
		Title:       title,
		Description: description,
		Date:        date,
	})
}

// Delete removes an owned event and returns its prior representation.
func (s *EventService) Delete(ctx context.Context, eventID, requesterID int) (types.Event, error) {
	event, err := s.events.GetOwned(ctx, eventID, requesterID)
	if err != nil {
		return types.Event{}, err
	}
	if err := s.events.Delete(ctx, eventID, requesterID); err != nil {
		return types.Event{}, err
	}
	return event, nil
}

// Subscribers returns the owned event and its subscribers,
// most-recently-subscribed first.
func (s *EventService) Subscribers(ctx context.Context, eventID, requesterID int) (types.Event, []types.User, error) {
	event, err := s.events.GetOwned(ctx, eventID, requesterID)
	if err != nil {
		return types.Event{}, nil, err
	}
	subscribers, err := s.subs.ListSubscribers(ctx, eventID)
	if err != nil {
		return types.Event{}, nil, err
	}
	return event, subscribers, nil
}
