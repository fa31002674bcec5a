package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yaksh9737/event-manager/internal/dto"
	"github.com/yaksh9737/event-manager/internal/repository"
	"github.com/yaksh9737/event-manager/internal/service"
	"github.com/yaksh9737/event-manager/pkg/middleware"
	"github.com/yaksh9737/event-manager/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// authAs injects an authenticated identity, standing in for the JWT middleware
func authAs(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Set(middleware.ContextKeyEmail, userID+"@example.com")
		c.Next()
	}
}

type testEnv struct {
	router *gin.Engine
	svc    service.EventService
}

func newTestEnv(userID string) *testEnv {
	repo := repository.NewMemoryEventRepository(nil)
	svc := service.NewEventService(repo)
	h := NewEventHandler(svc, nil)

	router := gin.New()
	group := router.Group("/api/v1")
	if userID != "" {
		group.Use(authAs(userID))
	}
	group.POST("/events", h.Create)
	group.GET("/events/all", h.List)
	group.GET("/events/my-events", h.MyEvents)
	group.GET("/events/:id", h.GetByID)
	group.PUT("/events/:id", h.Update)
	group.DELETE("/events/:id", h.Delete)
	group.POST("/events/:id/rsvp", h.Enroll)
	group.DELETE("/events/:id/rsvp", h.Withdraw)
	group.GET("/events/:id/attendees", h.Attendees)

	return &testEnv{router: router, svc: svc}
}

func (e *testEnv) createEvent(t *testing.T, ownerID string, capacity int) string {
	t.Helper()
	req := &dto.CreateEventRequest{
		Title:        "Launch Party",
		Description:  "Product launch",
		Date:         time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		Location:     "Lisbon",
		MaxAttendees: capacity,
	}
	if ok, msg := req.Validate(); !ok {
		t.Fatalf("invalid fixture: %s", msg)
	}
	event, err := e.svc.Create(context.Background(), ownerID, req, "")
	if err != nil {
		t.Fatalf("create fixture event: %v", err)
	}
	return event.ID
}

func (e *testEnv) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, w.Body.String())
	}
	return resp
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Errorf("expected status %d, got %d (body: %s)", wantStatus, w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil {
		t.Fatalf("expected error envelope, got %s", w.Body.String())
	}
	if resp.Error.Code != wantCode {
		t.Errorf("expected error code %s, got %s", wantCode, resp.Error.Code)
	}
}

// downEventService fails every operation with an opaque store error
type downEventService struct{}

var errStoreDown = errors.New("connection refused")

func (downEventService) Create(context.Context, string, *dto.CreateEventRequest, string) (*dto.EventResponse, error) {
	return nil, errStoreDown
}
func (downEventService) GetByID(context.Context, string) (*dto.EventResponse, error) {
	return nil, errStoreDown
}
func (downEventService) List(context.Context, *dto.ListEventsQuery) (*dto.ListEventsResponse, error) {
	return nil, errStoreDown
}
func (downEventService) ListByOwner(context.Context, string, *dto.ListEventsQuery) (*dto.ListEventsResponse, error) {
	return nil, errStoreDown
}
func (downEventService) Update(context.Context, string, string, *dto.UpdateEventRequest, string) (*dto.EventResponse, error) {
	return nil, errStoreDown
}
func (downEventService) Delete(context.Context, string, string) error {
	return errStoreDown
}
func (downEventService) Enroll(context.Context, string, string) (*dto.EventResponse, error) {
	return nil, errStoreDown
}
func (downEventService) Withdraw(context.Context, string, string) (*dto.EventResponse, error) {
	return nil, errStoreDown
}
func (downEventService) Attendees(context.Context, string, string) ([]dto.AttendeeResponse, error) {
	return nil, errStoreDown
}

func newDownEnv(userID string) *testEnv {
	h := NewEventHandler(downEventService{}, nil)

	router := gin.New()
	group := router.Group("/api/v1")
	group.Use(authAs(userID))
	group.POST("/events", h.Create)
	group.GET("/events/all", h.List)
	group.GET("/events/my-events", h.MyEvents)
	group.GET("/events/:id", h.GetByID)
	group.PUT("/events/:id", h.Update)
	group.DELETE("/events/:id", h.Delete)
	group.POST("/events/:id/rsvp", h.Enroll)
	group.DELETE("/events/:id/rsvp", h.Withdraw)
	group.GET("/events/:id/attendees", h.Attendees)

	return &testEnv{router: router}
}

// Every route maps an unreachable store to 503 so clients know to retry
func TestEventHandlerStoreUnavailable(t *testing.T) {
	validForm := url.Values{
		"title":         {"Launch Party"},
		"description":   {"Product launch"},
		"date":          {time.Now().Add(24 * time.Hour).Format(time.RFC3339)},
		"location":      {"Lisbon"},
		"max_attendees": {"10"},
	}

	tests := []struct {
		name   string
		method string
		path   string
		form   url.Values
	}{
		{name: "create", method: http.MethodPost, path: "/api/v1/events", form: validForm},
		{name: "list", method: http.MethodGet, path: "/api/v1/events/all"},
		{name: "my events", method: http.MethodGet, path: "/api/v1/events/my-events"},
		{name: "get by id", method: http.MethodGet, path: "/api/v1/events/some-id"},
		{name: "update", method: http.MethodPut, path: "/api/v1/events/some-id", form: url.Values{"title": {"Renamed"}}},
		{name: "delete", method: http.MethodDelete, path: "/api/v1/events/some-id"},
		{name: "enroll", method: http.MethodPost, path: "/api/v1/events/some-id/rsvp"},
		{name: "withdraw", method: http.MethodDelete, path: "/api/v1/events/some-id/rsvp"},
		{name: "attendees", method: http.MethodGet, path: "/api/v1/events/some-id/attendees"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newDownEnv("user-1")
			w := env.do(tt.method, tt.path, tt.form)
			assertErrorCode(t, w, http.StatusServiceUnavailable, response.ErrCodeServiceUnavailable)
		})
	}
}

func TestEventHandlerCreate(t *testing.T) {
	t.Run("valid multipart-free create", func(t *testing.T) {
		env := newTestEnv("owner-1")
		form := url.Values{
			"title":         {"Launch Party"},
			"description":   {"Product launch"},
			"date":          {time.Now().Add(24 * time.Hour).Format(time.RFC3339)},
			"location":      {"Lisbon"},
			"max_attendees": {"10"},
		}
		w := env.do(http.MethodPost, "/api/v1/events", form)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (body: %s)", w.Code, w.Body.String())
		}
	})

	t.Run("invalid capacity", func(t *testing.T) {
		env := newTestEnv("owner-1")
		form := url.Values{
			"title":         {"Launch Party"},
			"description":   {"Product launch"},
			"date":          {time.Now().Add(24 * time.Hour).Format(time.RFC3339)},
			"location":      {"Lisbon"},
			"max_attendees": {"-1"},
		}
		w := env.do(http.MethodPost, "/api/v1/events", form)
		assertErrorCode(t, w, http.StatusBadRequest, response.ErrCodeValidationFailed)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		env := newTestEnv("")
		w := env.do(http.MethodPost, "/api/v1/events", url.Values{})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}

func TestEventHandlerEnroll(t *testing.T) {
	t.Run("successful rsvp", func(t *testing.T) {
		env := newTestEnv("user-1")
		eventID := env.createEvent(t, "owner-1", 5)

		w := env.do(http.MethodPost, "/api/v1/events/"+eventID+"/rsvp", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (body: %s)", w.Code, w.Body.String())
		}
		resp := decodeEnvelope(t, w)
		if !resp.Success {
			t.Error("expected success envelope")
		}
	})

	t.Run("duplicate rsvp", func(t *testing.T) {
		env := newTestEnv("user-1")
		eventID := env.createEvent(t, "owner-1", 5)

		env.do(http.MethodPost, "/api/v1/events/"+eventID+"/rsvp", nil)
		w := env.do(http.MethodPost, "/api/v1/events/"+eventID+"/rsvp", nil)
		assertErrorCode(t, w, http.StatusBadRequest, response.ErrCodeAlreadyEnrolled)
	})

	t.Run("full event", func(t *testing.T) {
		env := newTestEnv("late-user")
		eventID := env.createEvent(t, "owner-1", 2)
		for i := 0; i < 2; i++ {
			if _, err := env.svc.Enroll(context.Background(), eventID, fmt.Sprintf("early-%d", i)); err != nil {
				t.Fatalf("seed enroll: %v", err)
			}
		}

		w := env.do(http.MethodPost, "/api/v1/events/"+eventID+"/rsvp", nil)
		assertErrorCode(t, w, http.StatusBadRequest, response.ErrCodeCapacityReached)
	})

	t.Run("unknown event", func(t *testing.T) {
		env := newTestEnv("user-1")
		w := env.do(http.MethodPost, "/api/v1/events/does-not-exist/rsvp", nil)
		assertErrorCode(t, w, http.StatusNotFound, response.ErrCodeNotFound)
	})

	t.Run("withdraw", func(t *testing.T) {
		env := newTestEnv("user-1")
		eventID := env.createEvent(t, "owner-1", 5)
		env.do(http.MethodPost, "/api/v1/events/"+eventID+"/rsvp", nil)

		w := env.do(http.MethodDelete, "/api/v1/events/"+eventID+"/rsvp", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}

func TestEventHandlerOwnership(t *testing.T) {
	t.Run("non-owner update", func(t *testing.T) {
		env := newTestEnv("intruder")
		eventID := env.createEvent(t, "owner-1", 5)

		form := url.Values{"title": {"Hijacked"}}
		w := env.do(http.MethodPut, "/api/v1/events/"+eventID, form)
		assertErrorCode(t, w, http.StatusForbidden, response.ErrCodeForbidden)
	})

	t.Run("non-owner delete", func(t *testing.T) {
		env := newTestEnv("intruder")
		eventID := env.createEvent(t, "owner-1", 5)

		w := env.do(http.MethodDelete, "/api/v1/events/"+eventID, nil)
		assertErrorCode(t, w, http.StatusForbidden, response.ErrCodeForbidden)
	})

	t.Run("owner update", func(t *testing.T) {
		env := newTestEnv("owner-1")
		eventID := env.createEvent(t, "owner-1", 5)

		form := url.Values{"title": {"Renamed"}}
		w := env.do(http.MethodPut, "/api/v1/events/"+eventID, form)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (body: %s)", w.Code, w.Body.String())
		}
	})

	t.Run("capacity shrink below attendees", func(t *testing.T) {
		env := newTestEnv("owner-1")
		eventID := env.createEvent(t, "owner-1", 5)
		for i := 0; i < 3; i++ {
			env.svc.Enroll(context.Background(), eventID, fmt.Sprintf("user-%d", i))
		}

		form := url.Values{"max_attendees": {"2"}}
		w := env.do(http.MethodPut, "/api/v1/events/"+eventID, form)
		assertErrorCode(t, w, http.StatusBadRequest, response.ErrCodeValidationFailed)
	})

	t.Run("attendees owner-only", func(t *testing.T) {
		env := newTestEnv("intruder")
		eventID := env.createEvent(t, "owner-1", 5)

		w := env.do(http.MethodGet, "/api/v1/events/"+eventID+"/attendees", nil)
		assertErrorCode(t, w, http.StatusForbidden, response.ErrCodeForbidden)
	})
}

func TestEventHandlerReads(t *testing.T) {
	t.Run("get by id", func(t *testing.T) {
		env := newTestEnv("user-1")
		eventID := env.createEvent(t, "owner-1", 5)

		w := env.do(http.MethodGet, "/api/v1/events/"+eventID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		env := newTestEnv("user-1")
		w := env.do(http.MethodGet, "/api/v1/events/missing", nil)
		assertErrorCode(t, w, http.StatusNotFound, response.ErrCodeNotFound)
	})

	t.Run("public list", func(t *testing.T) {
		env := newTestEnv("user-1")
		env.createEvent(t, "owner-1", 5)
		env.createEvent(t, "owner-2", 5)

		w := env.do(http.MethodGet, "/api/v1/events/all?limit=1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("my events invalid date filter", func(t *testing.T) {
		env := newTestEnv("owner-1")

		w := env.do(http.MethodGet, "/api/v1/events/my-events?date_from=not-a-date", nil)
		assertErrorCode(t, w, http.StatusBadRequest, response.ErrCodeValidationFailed)
	})

	t.Run("my events", func(t *testing.T) {
		env := newTestEnv("owner-1")
		env.createEvent(t, "owner-1", 5)
		env.createEvent(t, "someone-else", 5)

		w := env.do(http.MethodGet, "/api/v1/events/my-events", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp struct {
			Data struct {
				TotalCount int `json:"total_count"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Data.TotalCount != 1 {
			t.Errorf("expected 1 owned event, got %d", resp.Data.TotalCount)
		}
	})
}
