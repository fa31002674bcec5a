package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yaksh9737/event-manager/internal/domain"
)

func newTestEvent(capacity int) *domain.Event {
	now := time.Now()
	return &domain.Event{
		ID:           uuid.New().String(),
		OwnerID:      uuid.New().String(),
		Title:        "Test Event",
		Description:  "A test event",
		Date:         now.Add(24 * time.Hour),
		Location:     "Test Hall",
		MaxAttendees: capacity,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMemoryEventRepositoryEnroll(t *testing.T) {
	ctx := context.Background()

	t.Run("successful enrollment", func(t *testing.T) {
		repo := NewMemoryEventRepository(nil)
		event := newTestEvent(10)
		if err := repo.Create(ctx, event); err != nil {
			t.Fatalf("create event: %v", err)
		}

		got, err := repo.Enroll(ctx, event.ID, "user-1")
		if err != nil {
			t.Fatalf("enroll: %v", err)
		}
		if got.AttendeeCount != 1 {
			t.Errorf("expected attendee count 1, got %d", got.AttendeeCount)
		}
	})

	t.Run("duplicate enrollment rejected and count unchanged", func(t *testing.T) {
		repo := NewMemoryEventRepository(nil)
		event := newTestEvent(10)
		repo.Create(ctx, event)

		if _, err := repo.Enroll(ctx, event.ID, "user-1"); err != nil {
			t.Fatalf("first enroll: %v", err)
		}
		_, err := repo.Enroll(ctx, event.ID, "user-1")
		if !errors.Is(err, ErrAlreadyEnrolled) {
			t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
		}

		count, _, err := repo.Occupancy(ctx, event.ID)
		if err != nil {
			t.Fatalf("occupancy: %v", err)
		}
		if count != 1 {
			t.Errorf("expected count 1 after duplicate enroll, got %d", count)
		}
	})

	t.Run("capacity reached", func(t *testing.T) {
		repo := NewMemoryEventRepository(nil)
		event := newTestEvent(2)
		repo.Create(ctx, event)

		repo.Enroll(ctx, event.ID, "user-1")
		repo.Enroll(ctx, event.ID, "user-2")

		_, err := repo.Enroll(ctx, event.ID, "user-3")
		if !errors.Is(err, ErrCapacityReached) {
			t.Fatalf("expected ErrCapacityReached, got %v", err)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		repo := NewMemoryEventRepository(nil)
		_, err := repo.Enroll(ctx, "missing", "user-1")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("withdraw then re-enroll", func(t *testing.T) {
		repo := NewMemoryEventRepository(nil)
		event := newTestEvent(1)
		repo.Create(ctx, event)

		repo.Enroll(ctx, event.ID, "user-1")
		got, err := repo.Withdraw(ctx, event.ID, "user-1")
		if err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		if got.AttendeeCount != 0 {
			t.Errorf("expected count 0 after withdraw, got %d", got.AttendeeCount)
		}

		if _, err := repo.Enroll(ctx, event.ID, "user-2"); err != nil {
			t.Errorf("expected freed slot to be reusable, got %v", err)
		}
	})

	t.Run("withdraw of non-member is a no-op", func(t *testing.T) {
		repo := NewMemoryEventRepository(nil)
		event := newTestEvent(5)
		repo.Create(ctx, event)
		repo.Enroll(ctx, event.ID, "user-1")

		got, err := repo.Withdraw(ctx, event.ID, "user-2")
		if err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		if got.AttendeeCount != 1 {
			t.Errorf("expected count unchanged at 1, got %d", got.AttendeeCount)
		}
	})
}

// Many goroutines hammer one event; accepted enrollments must never exceed
// capacity and every accepted user must be a distinct member.
func TestMemoryEventRepositoryConcurrentEnroll(t *testing.T) {
	ctx := context.Background()
	const capacity = 25
	const contenders = 200

	repo := NewMemoryEventRepository(nil)
	event := newTestEvent(capacity)
	if err := repo.Create(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}

	var wg sync.WaitGroup
	var accepted, full int64
	var mu sync.Mutex

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := repo.Enroll(ctx, event.ID, fmt.Sprintf("user-%d", n))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrCapacityReached):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if accepted != capacity {
		t.Errorf("expected exactly %d accepted, got %d", capacity, accepted)
	}
	if full != contenders-capacity {
		t.Errorf("expected %d rejections, got %d", contenders-capacity, full)
	}

	count, cap_, err := repo.Occupancy(ctx, event.ID)
	if err != nil {
		t.Fatalf("occupancy: %v", err)
	}
	if count != capacity || count > cap_ {
		t.Errorf("occupancy %d/%d violates capacity bound", count, cap_)
	}

	attendees, err := repo.ListAttendees(ctx, event.ID)
	if err != nil {
		t.Fatalf("list attendees: %v", err)
	}
	seen := make(map[string]bool, len(attendees))
	for _, a := range attendees {
		if seen[a.UserID] {
			t.Errorf("duplicate attendee %s", a.UserID)
		}
		seen[a.UserID] = true
	}
}

// Two racers, one slot: exactly one wins.
func TestMemoryEventRepositoryLastSlotRace(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		repo := NewMemoryEventRepository(nil)
		event := newTestEvent(1)
		repo.Create(ctx, event)

		var wg sync.WaitGroup
		results := make([]error, 2)
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, results[n] = repo.Enroll(ctx, event.ID, fmt.Sprintf("racer-%d", n))
			}(j)
		}
		wg.Wait()

		var wins, losses int
		for _, err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrCapacityReached):
				losses++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 || losses != 1 {
			t.Fatalf("round %d: expected one winner and one loser, got %d/%d", i, wins, losses)
		}
	}
}

// The same user enrolling from multiple goroutines must be admitted once.
func TestMemoryEventRepositoryConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepository(nil)
	event := newTestEvent(100)
	repo.Create(ctx, event)

	var wg sync.WaitGroup
	var accepted int64
	var mu sync.Mutex
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Enroll(ctx, event.ID, "same-user"); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Errorf("expected exactly one accepted enrollment, got %d", accepted)
	}
	count, _, _ := repo.Occupancy(ctx, event.ID)
	if count != 1 {
		t.Errorf("expected attendee count 1, got %d", count)
	}
}

func TestMemoryEventRepositoryUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("capacity shrink below attendee count rejected", func(t *testing.T) {
		repo := NewMemoryEventRepository(nil)
		event := newTestEvent(5)
		repo.Create(ctx, event)
		for i := 0; i < 3; i++ {
			repo.Enroll(ctx, event.ID, fmt.Sprintf("user-%d", i))
		}

		updated := *event
		updated.MaxAttendees = 2
		err := repo.Update(ctx, &updated)
		if !errors.Is(err, ErrCapacityBelowAttendees) {
			t.Fatalf("expected ErrCapacityBelowAttendees, got %v", err)
		}

		got, _ := repo.GetByID(ctx, event.ID)
		if got.MaxAttendees != 5 {
			t.Errorf("expected capacity unchanged at 5, got %d", got.MaxAttendees)
		}
	})

	t.Run("capacity shrink to attendee count allowed", func(t *testing.T) {
		repo := NewMemoryEventRepository(nil)
		event := newTestEvent(5)
		repo.Create(ctx, event)
		repo.Enroll(ctx, event.ID, "user-1")
		repo.Enroll(ctx, event.ID, "user-2")

		updated := *event
		updated.MaxAttendees = 2
		if err := repo.Update(ctx, &updated); err != nil {
			t.Fatalf("update: %v", err)
		}

		_, err := repo.Enroll(ctx, event.ID, "user-3")
		if !errors.Is(err, ErrCapacityReached) {
			t.Errorf("expected event to be full after shrink, got %v", err)
		}
	})
}

func TestMemoryEventRepositoryListing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepository(nil)

	owner := uuid.New().String()
	base := time.Now()
	for i := 0; i < 5; i++ {
		event := newTestEvent(10)
		event.Title = fmt.Sprintf("Concert %d", i)
		event.Location = "Hamburg"
		event.Date = base.Add(time.Duration(i) * time.Hour)
		if i < 2 {
			event.OwnerID = owner
		}
		repo.Create(ctx, event)
	}

	t.Run("filter by search", func(t *testing.T) {
		events, total, err := repo.List(ctx, domain.EventFilter{Search: "concert 3"}, 20, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 1 || len(events) != 1 {
			t.Fatalf("expected 1 match, got total=%d len=%d", total, len(events))
		}
	})

	t.Run("pagination", func(t *testing.T) {
		events, total, err := repo.List(ctx, domain.EventFilter{}, 2, 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 5 {
			t.Errorf("expected total 5, got %d", total)
		}
		if len(events) != 2 {
			t.Errorf("expected page of 2, got %d", len(events))
		}
	})

	t.Run("ordered by date", func(t *testing.T) {
		events, _, err := repo.List(ctx, domain.EventFilter{}, 20, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for i := 1; i < len(events); i++ {
			if events[i].Date.Before(events[i-1].Date) {
				t.Errorf("events out of date order at index %d", i)
			}
		}
	})

	t.Run("list by owner", func(t *testing.T) {
		events, total, err := repo.ListByOwner(ctx, owner, 20, 0)
		if err != nil {
			t.Fatalf("list by owner: %v", err)
		}
		if total != 2 || len(events) != 2 {
			t.Fatalf("expected 2 owned events, got total=%d len=%d", total, len(events))
		}
	})
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup := *user
		dup.ID = uuid.New().String()
		if err := repo.Create(ctx, &dup); !errors.Is(err, ErrEmailExists) {
			t.Errorf("expected ErrEmailExists, got %v", err)
		}
	})

	t.Run("lookup by id and email", func(t *testing.T) {
		byID, err := repo.GetByID(ctx, user.ID)
		if err != nil || byID.Email != user.Email {
			t.Errorf("GetByID: err=%v", err)
		}
		byEmail, err := repo.GetByEmail(ctx, user.Email)
		if err != nil || byEmail.ID != user.ID {
			t.Errorf("GetByEmail: err=%v", err)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
