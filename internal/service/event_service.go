package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yaksh9737/event-manager/internal/domain"
	"github.com/yaksh9737/event-manager/internal/dto"
	"github.com/yaksh9737/event-manager/internal/repository"
)

// ErrForbidden is returned when a caller mutates an event they do not own
var ErrForbidden = errors.New("only the event owner may perform this action")

// EventService defines event management and enrollment operations
type EventService interface {
	Create(ctx context.Context, ownerID string, req *dto.CreateEventRequest, imageURL string) (*dto.EventResponse, error)
	GetByID(ctx context.Context, id string) (*dto.EventResponse, error)
	List(ctx context.Context, query *dto.ListEventsQuery) (*dto.ListEventsResponse, error)
	ListByOwner(ctx context.Context, ownerID string, query *dto.ListEventsQuery) (*dto.ListEventsResponse, error)
	// Update applies the requested changes. Only the owner may update; a
	// capacity shrink below the current attendee count is rejected.
	Update(ctx context.Context, id, requesterID string, req *dto.UpdateEventRequest, imageURL string) (*dto.EventResponse, error)
	// Delete removes an event and its attendee set. Owner only.
	Delete(ctx context.Context, id, requesterID string) error

	// Enroll admits the user into the attendee set, subject to capacity
	Enroll(ctx context.Context, eventID, userID string) (*dto.EventResponse, error)
	// Withdraw removes the user from the attendee set
	Withdraw(ctx context.Context, eventID, userID string) (*dto.EventResponse, error)
	// Attendees lists enrolled users. Owner only.
	Attendees(ctx context.Context, eventID, requesterID string) ([]dto.AttendeeResponse, error)
}

type eventService struct {
	eventRepo repository.EventRepository
}

// NewEventService creates a new EventService
func NewEventService(eventRepo repository.EventRepository) EventService {
	return &eventService{eventRepo: eventRepo}
}

// Create creates a new event owned by the caller
func (s *eventService) Create(ctx context.Context, ownerID string, req *dto.CreateEventRequest, imageURL string) (*dto.EventResponse, error) {
	now := time.Now()
	event := &domain.Event{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Title:        req.Title,
		Description:  req.Description,
		Date:         req.ParsedDate(),
		Location:     req.Location,
		MaxAttendees: req.MaxAttendees,
		ImageURL:     imageURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}
	return toEventResponse(event), nil
}

// GetByID retrieves an event with its current occupancy
func (s *eventService) GetByID(ctx context.Context, id string) (*dto.EventResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toEventResponse(event), nil
}

// List retrieves public events matching the query filters
func (s *eventService) List(ctx context.Context, query *dto.ListEventsQuery) (*dto.ListEventsResponse, error) {
	query.SetDefaults()
	filter := toEventFilter(query)

	events, total, err := s.eventRepo.List(ctx, filter, query.Limit, (query.Page-1)*query.Limit)
	if err != nil {
		return nil, err
	}
	return toListResponse(events, total, query), nil
}

// ListByOwner retrieves events created by the caller
func (s *eventService) ListByOwner(ctx context.Context, ownerID string, query *dto.ListEventsQuery) (*dto.ListEventsResponse, error) {
	query.SetDefaults()

	events, total, err := s.eventRepo.ListByOwner(ctx, ownerID, query.Limit, (query.Page-1)*query.Limit)
	if err != nil {
		return nil, err
	}
	return toListResponse(events, total, query), nil
}

// Update applies changes to an owned event
func (s *eventService) Update(ctx context.Context, id, requesterID string, req *dto.UpdateEventRequest, imageURL string) (*dto.EventResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.IsOwner(requesterID) {
		return nil, ErrForbidden
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.ParsedDate() != nil {
		event.Date = *req.ParsedDate()
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.MaxAttendees != nil {
		event.MaxAttendees = *req.MaxAttendees
	}
	if imageURL != "" {
		event.ImageURL = imageURL
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}
	return toEventResponse(event), nil
}

// Delete removes an owned event
func (s *eventService) Delete(ctx context.Context, id, requesterID string) error {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !event.IsOwner(requesterID) {
		return ErrForbidden
	}
	return s.eventRepo.Delete(ctx, id)
}

// Enroll admits the user. The admission decision is delegated entirely to
// the repository's atomic primitive; no capacity check happens here.
func (s *eventService) Enroll(ctx context.Context, eventID, userID string) (*dto.EventResponse, error) {
	event, err := s.eventRepo.Enroll(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	return toEventResponse(event), nil
}

// Withdraw removes the user from the attendee set
func (s *eventService) Withdraw(ctx context.Context, eventID, userID string) (*dto.EventResponse, error) {
	event, err := s.eventRepo.Withdraw(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	return toEventResponse(event), nil
}

// Attendees lists enrolled users for the event owner
func (s *eventService) Attendees(ctx context.Context, eventID, requesterID string) ([]dto.AttendeeResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOwner(requesterID) {
		return nil, ErrForbidden
	}

	attendees, err := s.eventRepo.ListAttendees(ctx, eventID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AttendeeResponse, 0, len(attendees))
	for _, a := range attendees {
		responses = append(responses, dto.AttendeeResponse{
			UserID:     a.UserID,
			Name:       a.Name,
			Email:      a.Email,
			EnrolledAt: a.EnrolledAt.Format(time.RFC3339),
		})
	}
	return responses, nil
}

func toEventFilter(query *dto.ListEventsQuery) domain.EventFilter {
	filter := domain.EventFilter{
		Search:   query.Search,
		Location: query.Location,
	}
	if query.DateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, query.DateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if query.DateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, query.DateTo); err == nil {
			filter.DateTo = &parsed
		}
	}
	return filter
}

func toListResponse(events []*domain.Event, total int, query *dto.ListEventsQuery) *dto.ListEventsResponse {
	responses := make([]dto.EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, *toEventResponse(event))
	}
	return &dto.ListEventsResponse{
		Events:     responses,
		TotalCount: total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(query.Limit))),
	}
}

func toEventResponse(event *domain.Event) *dto.EventResponse {
	return &dto.EventResponse{
		ID:            event.ID,
		OwnerID:       event.OwnerID,
		Title:         event.Title,
		Description:   event.Description,
		Date:          event.Date.Format(time.RFC3339),
		Location:      event.Location,
		MaxAttendees:  event.MaxAttendees,
		AttendeeCount: event.AttendeeCount,
		Remaining:     event.Remaining(),
		ImageURL:      event.ImageURL,
		CreatedAt:     event.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     event.UpdatedAt.Format(time.RFC3339),
	}
}
