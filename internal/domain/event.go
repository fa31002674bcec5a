package domain

import "time"

// Event represents an event in the system
type Event struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Location     string    `json:"location"`
	MaxAttendees int       `json:"max_attendees"`
	ImageURL     string    `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// AttendeeCount is the current number of enrolled attendees. It is
	// populated by the repository from the same snapshot as the event row.
	AttendeeCount int `json:"attendee_count"`
}

// Remaining returns the number of free attendee slots
func (e *Event) Remaining() int {
	remaining := e.MaxAttendees - e.AttendeeCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsFull reports whether the event has reached its attendee capacity
func (e *Event) IsFull() bool {
	return e.AttendeeCount >= e.MaxAttendees
}

// IsOwner reports whether the given user owns this event
func (e *Event) IsOwner(userID string) bool {
	return e.OwnerID == userID
}

// Attendee represents a user enrolled in an event
type Attendee struct {
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// EventFilter holds optional filters for listing events
type EventFilter struct {
	Search   string
	Location string
	DateFrom *time.Time
	DateTo   *time.Time
}
