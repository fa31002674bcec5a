// Package repository implements persistence for users, events, and attendee
// sets. Admission control is enforced at this boundary: every implementation
// of EventRepository guarantees that the attendee count never exceeds the
// event capacity and that a user appears in an attendee set at most once,
// regardless of concurrent callers.
package repository

import (
	"context"
	"errors"

	"github.com/yaksh9737/event-manager/internal/domain"
)

var (
	// ErrNotFound is returned when a requested resource does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyEnrolled is returned when a user enrolls twice in one event
	ErrAlreadyEnrolled = errors.New("user already enrolled in this event")
	// ErrCapacityReached is returned when an event has no remaining slots
	ErrCapacityReached = errors.New("event capacity reached")
	// ErrCapacityBelowAttendees is returned when an update would shrink
	// capacity below the current attendee count
	ErrCapacityBelowAttendees = errors.New("capacity cannot be reduced below current attendee count")
	// ErrEmailExists is returned when registering an already-used email
	ErrEmailExists = errors.New("email already registered")
)

// EventRepository handles persistence for events and their attendee sets
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, filter domain.EventFilter, limit, offset int) ([]*domain.Event, int, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Event, int, error)
	// Update persists the given event. When the update shrinks capacity it is
	// checked against the attendee count atomically and rejected with
	// ErrCapacityBelowAttendees if the count would exceed the new capacity.
	Update(ctx context.Context, event *domain.Event) error
	Delete(ctx context.Context, id string) error

	// Enroll atomically admits a user into the attendee set. It returns the
	// updated event snapshot on success, ErrAlreadyEnrolled if the user is a
	// member, ErrCapacityReached if the event is full, or ErrNotFound.
	Enroll(ctx context.Context, eventID, userID string) (*domain.Event, error)
	// Withdraw removes a user from the attendee set. Withdrawing a user who
	// is not enrolled is a no-op; the current snapshot is returned either way.
	Withdraw(ctx context.Context, eventID, userID string) (*domain.Event, error)
	// Occupancy returns (attendeeCount, capacity) from a single consistent
	// snapshot of the event.
	Occupancy(ctx context.Context, eventID string) (int, int, error)
	ListAttendees(ctx context.Context, eventID string) ([]*domain.Attendee, error)
}

// UserRepository handles persistence for user accounts
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
