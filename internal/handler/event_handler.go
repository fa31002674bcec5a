package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yaksh9737/event-manager/internal/dto"
	"github.com/yaksh9737/event-manager/internal/repository"
	"github.com/yaksh9737/event-manager/internal/service"
	"github.com/yaksh9737/event-manager/internal/upload"
	"github.com/yaksh9737/event-manager/pkg/middleware"
	"github.com/yaksh9737/event-manager/pkg/response"
)

// EventHandler handles event management and RSVP HTTP requests
type EventHandler struct {
	eventService service.EventService
	images       *upload.LocalStore
}

// NewEventHandler creates a new EventHandler. The image store may be nil,
// in which case uploads are ignored.
func NewEventHandler(eventService service.EventService, images *upload.LocalStore) *EventHandler {
	return &EventHandler{eventService: eventService, images: images}
}

// saveImage extracts and stores the optional image part of a multipart
// request, returning the public URL or "" when no image was sent.
func (h *EventHandler) saveImage(c *gin.Context) (string, bool) {
	file, err := c.FormFile("image")
	if err != nil {
		// No image part is fine; the field is optional
		return "", true
	}
	if h.images == nil {
		return "", true
	}

	url, err := h.images.Save(file)
	if err != nil {
		if errors.Is(err, upload.ErrNotAnImage) || errors.Is(err, upload.ErrTooLarge) {
			c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeValidationFailed, err.Error()))
			return "", false
		}
		c.JSON(http.StatusInternalServerError, response.InternalError("Failed to store image"))
		return "", false
	}
	return url, true
}

// Create handles event creation
// POST /api/v1/events
func (h *EventHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Authentication required"))
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	if valid, msg := req.Validate(); !valid {
		c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeValidationFailed, msg))
		return
	}

	imageURL, ok := h.saveImage(c)
	if !ok {
		return
	}

	event, err := h.eventService.Create(c.Request.Context(), userID, &req, imageURL)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Event storage is temporarily unavailable"))
		return
	}

	c.JSON(http.StatusCreated, response.Success(event))
}

// List handles the public event listing
// GET /api/v1/events/all
func (h *EventHandler) List(c *gin.Context) {
	var query dto.ListEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	if valid, msg := query.Validate(); !valid {
		c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeValidationFailed, msg))
		return
	}

	result, err := h.eventService.List(c.Request.Context(), &query)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Event storage is temporarily unavailable"))
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// MyEvents handles listing events owned by the caller
// GET /api/v1/events/my-events
func (h *EventHandler) MyEvents(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Authentication required"))
		return
	}

	var query dto.ListEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	if valid, msg := query.Validate(); !valid {
		c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeValidationFailed, msg))
		return
	}

	result, err := h.eventService.ListByOwner(c.Request.Context(), userID, &query)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Event storage is temporarily unavailable"))
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// GetByID handles retrieving one event with occupancy
// GET /api/v1/events/:id
func (h *EventHandler) GetByID(c *gin.Context) {
	event, err := h.eventService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
			return
		}
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Event storage is temporarily unavailable"))
		return
	}

	c.JSON(http.StatusOK, response.Success(event))
}

// Update handles editing an owned event
// PUT /api/v1/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Authentication required"))
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	if valid, msg := req.Validate(); !valid {
		c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeValidationFailed, msg))
		return
	}

	imageURL, ok := h.saveImage(c)
	if !ok {
		return
	}

	event, err := h.eventService.Update(c.Request.Context(), c.Param("id"), userID, &req, imageURL)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, response.Forbidden("Only the event owner may edit this event"))
		case errors.Is(err, repository.ErrCapacityBelowAttendees):
			c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeValidationFailed,
				"Capacity cannot be reduced below the current attendee count"))
		default:
			c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Event storage is temporarily unavailable"))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(event))
}

// Delete handles removing an owned event
// DELETE /api/v1/events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Authentication required"))
		return
	}

	err := h.eventService.Delete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, response.Forbidden("Only the event owner may delete this event"))
		default:
			c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Event storage is temporarily unavailable"))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(gin.H{"message": "Event deleted successfully"}))
}

// Enroll handles RSVP
// POST /api/v1/events/:id/rsvp
func (h *EventHandler) Enroll(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Authentication required"))
		return
	}

	event, err := h.eventService.Enroll(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
		case errors.Is(err, repository.ErrAlreadyEnrolled):
			c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeAlreadyEnrolled,
				"You are already enrolled in this event"))
		case errors.Is(err, repository.ErrCapacityReached):
			c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeCapacityReached,
				"This event has reached its maximum capacity"))
		default:
			c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Enrollment is temporarily unavailable"))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(event))
}

// Withdraw handles RSVP cancellation
// DELETE /api/v1/events/:id/rsvp
func (h *EventHandler) Withdraw(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Authentication required"))
		return
	}

	event, err := h.eventService.Withdraw(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
			return
		}
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Enrollment is temporarily unavailable"))
		return
	}

	c.JSON(http.StatusOK, response.Success(event))
}

// Attendees handles the owner-only attendee listing
// GET /api/v1/events/:id/attendees
func (h *EventHandler) Attendees(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Authentication required"))
		return
	}

	attendees, err := h.eventService.Attendees(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, response.Forbidden("Only the event owner may view attendees"))
		default:
			c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Event storage is temporarily unavailable"))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(gin.H{"attendees": attendees, "count": len(attendees)}))
}
