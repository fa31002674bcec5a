package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yaksh9737/event-manager/internal/domain"
)

// MemoryEventRepository implements EventRepository with in-process state.
// It is used for development without a database and for concurrency tests.
// A single mutex serializes the check-then-insert of Enroll, giving the same
// admission guarantees as the row lock in the Postgres implementation.
type MemoryEventRepository struct {
	mu        sync.Mutex
	events    map[string]*domain.Event
	attendees map[string][]memoryAttendee // eventID -> enrollment order
	users     *MemoryUserRepository       // optional, for attendee profiles
}

type memoryAttendee struct {
	userID     string
	enrolledAt time.Time
}

// NewMemoryEventRepository creates a new MemoryEventRepository. The user
// repository may be nil; attendee listings then carry IDs only.
func NewMemoryEventRepository(users *MemoryUserRepository) *MemoryEventRepository {
	return &MemoryEventRepository{
		events:    make(map[string]*domain.Event),
		attendees: make(map[string][]memoryAttendee),
		users:     users,
	}
}

func (r *MemoryEventRepository) snapshot(event *domain.Event) *domain.Event {
	copied := *event
	copied.AttendeeCount = len(r.attendees[event.ID])
	return &copied
}

// Create stores a new event
func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *event
	r.events[event.ID] = &copied
	return nil
}

// GetByID returns an event snapshot or ErrNotFound
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.snapshot(event), nil
}

func matchesFilter(event *domain.Event, filter domain.EventFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(event.Title), s) &&
			!strings.Contains(strings.ToLower(event.Description), s) {
			return false
		}
	}
	if filter.Location != "" &&
		!strings.Contains(strings.ToLower(event.Location), strings.ToLower(filter.Location)) {
		return false
	}
	if filter.DateFrom != nil && event.Date.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && event.Date.After(*filter.DateTo) {
		return false
	}
	return true
}

// List returns events matching the filter ordered by date
func (r *MemoryEventRepository) List(ctx context.Context, filter domain.EventFilter, limit, offset int) ([]*domain.Event, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Event
	for _, event := range r.events {
		if matchesFilter(event, filter) {
			matched = append(matched, r.snapshot(event))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.Before(matched[j].Date) })

	return paginate(matched, limit, offset), len(matched), nil
}

// ListByOwner returns events created by the given user ordered by date
func (r *MemoryEventRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Event, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Event
	for _, event := range r.events {
		if event.OwnerID == ownerID {
			matched = append(matched, r.snapshot(event))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.Before(matched[j].Date) })

	return paginate(matched, limit, offset), len(matched), nil
}

func paginate(events []*domain.Event, limit, offset int) []*domain.Event {
	if offset >= len(events) {
		return nil
	}
	end := offset + limit
	if end > len(events) {
		end = len(events)
	}
	return events[offset:end]
}

// Update replaces event fields, rejecting capacity shrinks below the
// current attendee count
func (r *MemoryEventRepository) Update(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.events[event.ID]
	if !ok {
		return ErrNotFound
	}
	if event.MaxAttendees < len(r.attendees[event.ID]) {
		return ErrCapacityBelowAttendees
	}

	event.UpdatedAt = time.Now()
	event.CreatedAt = stored.CreatedAt
	copied := *event
	r.events[event.ID] = &copied
	event.AttendeeCount = len(r.attendees[event.ID])
	return nil
}

// Delete removes an event and its attendee set
func (r *MemoryEventRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return ErrNotFound
	}
	delete(r.events, id)
	delete(r.attendees, id)
	return nil
}

// Enroll admits a user under the store mutex, so the membership and capacity
// checks and the insertion are one atomic step.
func (r *MemoryEventRepository) Enroll(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}

	set := r.attendees[eventID]
	for _, a := range set {
		if a.userID == userID {
			return nil, ErrAlreadyEnrolled
		}
	}
	if len(set) >= event.MaxAttendees {
		return nil, ErrCapacityReached
	}

	r.attendees[eventID] = append(set, memoryAttendee{userID: userID, enrolledAt: time.Now()})
	return r.snapshot(event), nil
}

// Withdraw removes a user from the attendee set; absent users are a no-op
func (r *MemoryEventRepository) Withdraw(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}

	set := r.attendees[eventID]
	for i, a := range set {
		if a.userID == userID {
			r.attendees[eventID] = append(set[:i], set[i+1:]...)
			break
		}
	}
	return r.snapshot(event), nil
}

// Occupancy returns the attendee count and capacity atomically
func (r *MemoryEventRepository) Occupancy(ctx context.Context, eventID string) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return 0, 0, ErrNotFound
	}
	return len(r.attendees[eventID]), event.MaxAttendees, nil
}

// ListAttendees returns enrolled users in enrollment order
func (r *MemoryEventRepository) ListAttendees(ctx context.Context, eventID string) ([]*domain.Attendee, error) {
	r.mu.Lock()
	if _, ok := r.events[eventID]; !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	set := make([]memoryAttendee, len(r.attendees[eventID]))
	copy(set, r.attendees[eventID])
	r.mu.Unlock()

	attendees := make([]*domain.Attendee, 0, len(set))
	for _, a := range set {
		attendee := &domain.Attendee{UserID: a.userID, EnrolledAt: a.enrolledAt}
		if r.users != nil {
			if user, err := r.users.GetByID(ctx, a.userID); err == nil {
				attendee.Name = user.Name
				attendee.Email = user.Email
			}
		}
		attendees = append(attendees, attendee)
	}
	return attendees, nil
}
