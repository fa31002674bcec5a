package dto

import (
	"strings"
	"time"
)

// MaxEventCapacity bounds max_attendees to keep events within a single venue's
// plausible range and guard against accidental huge allocations.
const MaxEventCapacity = 100000

// CreateEventRequest represents request to create an event.
// Bound from multipart/form-data because the request may carry an image part.
type CreateEventRequest struct {
	Title        string `form:"title" binding:"required,min=2,max=255"`
	Description  string `form:"description" binding:"required,max=5000"`
	Date         string `form:"date" binding:"required"`
	Location     string `form:"location" binding:"required,max=255"`
	MaxAttendees int    `form:"max_attendees" binding:"required"`

	parsedDate time.Time
}

// Validate checks field semantics and parses the date
func (r *CreateEventRequest) Validate() (bool, string) {
	if strings.TrimSpace(r.Title) == "" {
		return false, "Title must not be blank"
	}
	if r.MaxAttendees <= 0 {
		return false, "max_attendees must be a positive integer"
	}
	if r.MaxAttendees > MaxEventCapacity {
		return false, "max_attendees exceeds the allowed maximum"
	}
	parsed, err := time.Parse(time.RFC3339, r.Date)
	if err != nil {
		return false, "date must be an RFC3339 timestamp"
	}
	r.parsedDate = parsed
	return true, ""
}

// ParsedDate returns the parsed event date. Valid only after Validate.
func (r *CreateEventRequest) ParsedDate() time.Time {
	return r.parsedDate
}

// UpdateEventRequest represents request to update an event.
// All fields optional; pointer fields distinguish absent from zero.
type UpdateEventRequest struct {
	Title        *string `form:"title" binding:"omitempty,min=2,max=255"`
	Description  *string `form:"description" binding:"omitempty,max=5000"`
	Date         *string `form:"date" binding:"omitempty"`
	Location     *string `form:"location" binding:"omitempty,max=255"`
	MaxAttendees *int    `form:"max_attendees" binding:"omitempty"`

	parsedDate *time.Time
}

// Validate validates provided fields and requires at least one
func (r *UpdateEventRequest) Validate() (bool, string) {
	if r.Title == nil && r.Description == nil && r.Date == nil && r.Location == nil && r.MaxAttendees == nil {
		return false, "At least one field must be provided for update"
	}
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return false, "Title must not be blank"
	}
	if r.MaxAttendees != nil {
		if *r.MaxAttendees <= 0 {
			return false, "max_attendees must be a positive integer"
		}
		if *r.MaxAttendees > MaxEventCapacity {
			return false, "max_attendees exceeds the allowed maximum"
		}
	}
	if r.Date != nil {
		parsed, err := time.Parse(time.RFC3339, *r.Date)
		if err != nil {
			return false, "date must be an RFC3339 timestamp"
		}
		r.parsedDate = &parsed
	}
	return true, ""
}

// ParsedDate returns the parsed date if provided. Valid only after Validate.
func (r *UpdateEventRequest) ParsedDate() *time.Time {
	return r.parsedDate
}

// EventResponse represents event data in responses
type EventResponse struct {
	ID            string `json:"id"`
	OwnerID       string `json:"owner_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Date          string `json:"date"`
	Location      string `json:"location"`
	MaxAttendees  int    `json:"max_attendees"`
	AttendeeCount int    `json:"attendee_count"`
	Remaining     int    `json:"remaining"`
	ImageURL      string `json:"image_url,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// AttendeeResponse represents an enrolled user in responses
type AttendeeResponse struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	EnrolledAt string `json:"enrolled_at"`
}

// ListEventsQuery represents query parameters for listing events
type ListEventsQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search" binding:"omitempty,max=255"`
	Location string `form:"location" binding:"omitempty,max=255"`
	DateFrom string `form:"date_from" binding:"omitempty"`
	DateTo   string `form:"date_to" binding:"omitempty"`
}

// SetDefaults sets default values for query parameters
func (q *ListEventsQuery) SetDefaults() {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
}

// Validate parses the optional date range filters
func (q *ListEventsQuery) Validate() (bool, string) {
	if q.DateFrom != "" {
		if _, err := time.Parse(time.RFC3339, q.DateFrom); err != nil {
			return false, "date_from must be an RFC3339 timestamp"
		}
	}
	if q.DateTo != "" {
		if _, err := time.Parse(time.RFC3339, q.DateTo); err != nil {
			return false, "date_to must be an RFC3339 timestamp"
		}
	}
	return true, ""
}

// ListEventsResponse represents a paginated list of events
type ListEventsResponse struct {
	Events     []EventResponse `json:"events"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}
