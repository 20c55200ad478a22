package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatherly/apiserver/internal/notify"
	"github.com/gatherly/apiserver/internal/store"
	"github.com/gatherly/apiserver/types"
	"github.com/rs/zerolog"
)

// SubscriptionRepository defines persistence operations for subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, eventID, subscriberID int) (types.Subscription, error)
	Delete(ctx context.Context, eventID, subscriberID int) error
	Exists(ctx context.Context, eventID, subscriberID int) (bool, error)
	ListEvents(ctx context.Context, subscriberID int) ([]types.Event, error)
}

// EventGetter exposes the existence lookup subscribe/unsubscribe need.
// Ownership is irrelevant here; any existing event is subscribable.
type EventGetter interface {
	GetByID(ctx context.Context, id int) (types.Event, error)
}

// SubscriptionService drives the per-(event, subscriber) state machine:
// Unsubscribed -> Subscribed -> Unsubscribed. Transitions are explicit;
// repeating one is rejected rather than silently absorbed.
type SubscriptionService struct {
	events        EventGetter
	subs          SubscriptionRepository
	notifier      notify.Notifier
	notifyTimeout time.Duration
	logger        zerolog.Logger
}

func NewSubscriptionService(
	events EventGetter,
	subs SubscriptionRepository,
	notifier notify.Notifier,
	notifyTimeout time.Duration,
	logger zerolog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		events:        events,
		subs:          subs,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		logger:        logger.With().Str("component", "subscriptions").Logger(),
	}
}

// Subscribe creates the subscription row and attempts a best-effort
// notification. The returned flag reports delivery; a failed notification
// never rolls the subscription back.
func (s *SubscriptionService) Subscribe(ctx context.Context, eventID int, subscriber types.User) (types.Event, bool, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return types.Event{}, false, err
	}

	exists, err := s.subs.Exists(ctx, eventID, subscriber.ID)
	if err != nil {
		return types.Event{}, false, fmt.Errorf("check subscription: %w", err)
	}
	if exists {
		return types.Event{}, false, ErrAlreadySubscribed
	}

	if _, err := s.subs.Create(ctx, eventID, subscriber.ID); err != nil {
		// A concurrent subscribe can win between the check and the insert;
		// the unique pair index reports it here.
		if errors.Is(err, store.ErrDuplicate) {
			return types.Event{}, false, ErrAlreadySubscribed
		}
		return types.Event{}, false, fmt.Errorf("create subscription: %w", err)
	}

	emailSent := notify.BestEffort(
		s.notifier, s.logger, s.notifyTimeout,
		subscriber.Email,
		"Event Subscribed - "+event.Title,
		"You have subscribed to event "+event.Title,
	)

	return event, emailSent, nil
}

// Unsubscribe deletes the subscription row with the same notification
// semantics as Subscribe.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, eventID int, subscriber types.User) (types.Event, bool, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return types.Event{}, false, err
	}

	if err := s.subs.Delete(ctx, eventID, subscriber.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Event{}, false, ErrNotSubscribed
		}
		return types.Event{}, false, fmt.Errorf("delete subscription: %w", err)
	}

	emailSent := notify.BestEffort(
		s.notifier, s.logger, s.notifyTimeout,
		subscriber.Email,
		"Event Unsubscribed - "+event.Title,
		"You have unsubscribed to event "+event.Title,
	)

	return event, emailSent, nil
}

// ListForSubscriber returns the events behind the subscriber's active
// subscriptions, most-recently-subscribed first.
func (s *SubscriptionService) ListForSubscriber(ctx context.Context, subscriberID int) ([]types.Event, error) {
	return s.subs.ListEvents(ctx, subscriberID)
}
