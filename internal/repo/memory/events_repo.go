package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smais007/eventora/internal/domain/event"
)

type EventsRepo struct {
	mu    sync.RWMutex
	items map[string]event.Event
}

func NewEventsRepo() *EventsRepo {
	return &EventsRepo{items: make(map[string]event.Event)}
}

func (r *EventsRepo) Create(ctx context.Context, e event.Event) (event.Event, error) {
	r.mu.Lock()
	r.items[e.ID] = e
	r.mu.Unlock()

	return e, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	return clone(e), nil
}

func (r *EventsRepo) List(ctx context.Context) ([]event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot(func(event.Event) bool { return true }), nil
}

func (r *EventsRepo) ListByOwner(ctx context.Context, ownerID string) ([]event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot(func(e event.Event) bool { return e.OwnerID == ownerID }), nil
}

func (r *EventsRepo) Update(ctx context.Context, id, ownerID string, req event.UpdateEventRequest) (event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	if e.OwnerID != ownerID {
		return event.Event{}, event.ErrForbidden
	}

	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Name != nil {
		e.OrganizerName = *req.Name
	}
	if req.DateTime != nil {
		e.DateTime = *req.DateTime
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	e.UpdatedAt = time.Now().UTC()

	r.items[id] = e

	return clone(e), nil
}

func (r *EventsRepo) Delete(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[id]
	if !ok {
		return event.ErrNotFound
	}

	if e.OwnerID != ownerID {
		return event.ErrForbidden
	}

	delete(r.items, id)

	return nil
}

// Join mirrors the postgres semantics: first join by a user increments the
// count exactly once, a repeat join is rejected without touching it.
func (r *EventsRepo) Join(ctx context.Context, eventID, userID string) (event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[eventID]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	for _, joined := range e.JoinedUserIDs {
		if joined == userID {
			return event.Event{}, event.ErrAlreadyJoined
		}
	}

	e.JoinedUserIDs = append(append([]string{}, e.JoinedUserIDs...), userID)
	e.AttendeeCount++
	e.UpdatedAt = time.Now().UTC()

	r.items[eventID] = e

	return clone(e), nil
}

// callers hold the lock
func (r *EventsRepo) snapshot(keep func(event.Event) bool) []event.Event {
	out := make([]event.Event, 0, len(r.items))

	for _, e := range r.items {
		if keep(e) {
			out = append(out, clone(e))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DateTime.Equal(out[j].DateTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].DateTime.After(out[j].DateTime)
	})

	return out
}

func clone(e event.Event) event.Event {
	e.JoinedUserIDs = append([]string{}, e.JoinedUserIDs...)
	return e
}
