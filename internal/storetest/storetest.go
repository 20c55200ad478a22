// Package storetest provides in-memory repository implementations with the
// same contracts as internal/store, for tests that exercise services and
// handlers without a database.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gatherly/apiserver/internal/store"
	"github.com/gatherly/apiserver/types"
)

// UserRepo is an in-memory store.UserRepository equivalent seeded with the
// fixed role set.
type UserRepo struct {
	mu     sync.Mutex
	users  map[int]types.User
	roles  map[string]types.Role
	nextID int
}

func NewUserRepo() *UserRepo {
	repo := &UserRepo{
		users:  make(map[int]types.User),
		roles:  make(map[string]types.Role),
		nextID: 1,
	}
	for i, name := range []string{"admin", "organiser", "participant"} {
		repo.roles[name] = types.Role{ID: i + 1, Name: name}
	}
	return repo
}

func (r *UserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepo) GetRoleByName(_ context.Context, name string) (types.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[name]
	if !ok {
		return types.Role{}, store.ErrNotFound
	}
	return role, nil
}

func (r *UserRepo) Create(_ context.Context, user types.User, roles []types.Role) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.Roles = roles
	user.CreatedAt = time.Now()
	r.users[user.ID] = user
	return user, nil
}

// Delete removes a user so tests can cover the stale-token path.
func (r *UserRepo) Delete(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// EventRepo is an in-memory store.EventRepository equivalent.
type EventRepo struct {
	mu     sync.Mutex
	events map[int]types.Event
	nextID int
}

func NewEventRepo() *EventRepo {
	return &EventRepo{events: make(map[int]types.Event), nextID: 1}
}

func (r *EventRepo) Create(_ context.Context, event types.Event) (types.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = r.nextID
	r.nextID++
	event.CreatedAt = time.Now()
	r.events[event.ID] = event
	return event, nil
}

func (r *EventRepo) GetByID(_ context.Context, id int) (types.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return types.Event{}, store.ErrNotFound
	}
	return event, nil
}

func (r *EventRepo) GetOwned(_ context.Context, id, ownerID int) (types.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok || event.OwnerID != ownerID {
		return types.Event{}, store.ErrNotFound
	}
	return event, nil
}

func (r *EventRepo) ListAll(_ context.Context) ([]types.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(types.Event) bool { return true }), nil
}

func (r *EventRepo) ListByOwner(_ context.Context, ownerID int) ([]types.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(e types.Event) bool { return e.OwnerID == ownerID }), nil
}

func (r *EventRepo) Update(_ context.Context, event types.Event) (types.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.events[event.ID]
	if !ok || current.OwnerID != event.OwnerID {
		return types.Event{}, store.ErrNotFound
	}
	current.Title = event.Title
	current.Description = event.Description
	current.Date = event.Date
	r.events[event.ID] = current
	return current, nil
}

func (r *EventRepo) Delete(_ context.Context, id, ownerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok || event.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *EventRepo) sorted(keep func(types.Event) bool) []types.Event {
	var events []types.Event
	for _, event := range r.events {
		if keep(event) {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events
}

type subscriptionRow struct {
	types.Subscription
	seq int
}

// SubscriptionRepo is an in-memory store.SubscriptionRepository equivalent.
// Listings come back most-recently-subscribed first.
type SubscriptionRepo struct {
	mu     sync.Mutex
	rows   []subscriptionRow
	users  *UserRepo
	events *EventRepo
	nextID int
	seq    int
}

func NewSubscriptionRepo(users *UserRepo, events *EventRepo) *SubscriptionRepo {
	return &SubscriptionRepo{users: users, events: events, nextID: 1}
}

func (r *SubscriptionRepo) Create(_ context.Context, eventID, subscriberID int) (types.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.EventID == eventID && row.SubscriberID == subscriberID {
			return types.Subscription{}, store.ErrDuplicate
		}
	}
	r.seq++
	sub := types.Subscription{
		ID:           r.nextID,
		EventID:      eventID,
		SubscriberID: subscriberID,
		SubscribedAt: time.Now(),
	}
	r.nextID++
	r.rows = append(r.rows, subscriptionRow{Subscription: sub, seq: r.seq})
	return sub, nil
}

func (r *SubscriptionRepo) Delete(_ context.Context, eventID, subscriberID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, row := range r.rows {
		if row.EventID == eventID && row.SubscriberID == subscriberID {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *SubscriptionRepo) Exists(_ context.Context, eventID, subscriberID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.EventID == eventID && row.SubscriberID == subscriberID {
			return true, nil
		}
	}
	return false, nil
}

func (r *SubscriptionRepo) ListSubscribers(ctx context.Context, eventID int) ([]types.User, error) {
	r.mu.Lock()
	rows := r.matching(func(row subscriptionRow) bool { return row.EventID == eventID })
	r.mu.Unlock()

	users := make([]types.User, 0, len(rows))
	for _, row := range rows {
		user, err := r.users.GetByID(ctx, row.SubscriberID)
		if err != nil {
			return nil, err
		}
		user.Roles = nil
		users = append(users, user)
	}
	return users, nil
}

func (r *SubscriptionRepo) ListEvents(ctx context.Context, subscriberID int) ([]types.Event, error) {
	r.mu.Lock()
	rows := r.matching(func(row subscriptionRow) bool { return row.SubscriberID == subscriberID })
	r.mu.Unlock()

	events := make([]types.Event, 0, len(rows))
	for _, row := range rows {
		event, err := r.events.GetByID(ctx, row.EventID)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// matching returns rows newest-first; the caller must hold the lock.
func (r *SubscriptionRepo) matching(keep func(subscriptionRow) bool) []subscriptionRow {
	var rows []subscriptionRow
	for _, row := range r.rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	return rows
}
