package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/family-scheduler/internal/persistence"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := Migrate(pool.DB()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func seedMember(t *testing.T, pool *ConnectionPool, id, email string) {
	t.Helper()

	repo := NewMemberRepository(pool)
	now := time.Now().UTC()
	err := repo.CreateMember(context.Background(), persistence.Member{
		ID:           id,
		Email:        email,
		DisplayName:  "Member " + id,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed member %s: %v", id, err)
	}
}

func TestEventRepository_SeriesLifecycle(t *testing.T) {
	pool := newTestPool(t)
	seedMember(t, pool, "member-1", "one@example.com")
	seedMember(t, pool, "member-2", "two@example.com")

	repo := NewEventRepository(pool)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	seriesID := "event-1"
	var events []persistence.Event
	for i := 0; i < 3; i++ {
		start := now.AddDate(0, 0, 7*i)
		events = append(events, persistence.Event{
			ID:        fmt.Sprintf("event-%d", i+1),
			SeriesID:  &seriesID,
			CreatorID: "member-1",
			Title:     "Swim practice",
			MemberIDs: []string{"member-2"},
			Start:     start,
			End:       start.Add(time.Hour),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := repo.CreateEvents(ctx, events); err != nil {
		t.Fatalf("create series: %v", err)
	}

	got, err := repo.GetEvent(ctx, "event-2")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.SeriesID == nil || *got.SeriesID != seriesID {
		t.Fatalf("series id not persisted: %+v", got.SeriesID)
	}
	if len(got.MemberIDs) != 1 || got.MemberIDs[0] != "member-2" {
		t.Fatalf("member tags not persisted: %v", got.MemberIDs)
	}

	listed, err := repo.ListEvents(ctx, persistence.EventFilter{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 events, got %d", len(listed))
	}
	for i := 1; i < len(listed); i++ {
		if !listed[i].Start.After(listed[i-1].Start) {
			t.Fatalf("events not ordered by start time")
		}
	}

	if err := repo.DeleteSeries(ctx, seriesID); err != nil {
		t.Fatalf("delete series: %v", err)
	}
	if _, err := repo.GetEvent(ctx, "event-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after series delete, got %v", err)
	}
	if err := repo.DeleteSeries(ctx, seriesID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestEventRepository_CreateEventsRollsBackOnFailure(t *testing.T) {
	pool := newTestPool(t)
	seedMember(t, pool, "member-1", "one@example.com")

	repo := NewEventRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	events := []persistence.Event{
		{
			ID: "ok", CreatorID: "member-1", Title: "First",
			Start: now, End: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now,
		},
		{
			// Unknown creator trips the foreign key and must undo the batch.
			ID: "bad", CreatorID: "missing", Title: "Second",
			Start: now, End: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now,
		},
	}
	if err := repo.CreateEvents(ctx, events); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected foreign key violation, got %v", err)
	}
	if _, err := repo.GetEvent(ctx, "ok"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("first event should have been rolled back, got %v", err)
	}
}

func TestEventRepository_ListFilters(t *testing.T) {
	pool := newTestPool(t)
	seedMember(t, pool, "member-1", "one@example.com")
	seedMember(t, pool, "member-2", "two@example.com")

	repo := NewEventRepository(pool)
	ctx := context.Background()
	base := time.Date(2026, 4, 6, 8, 0, 0, 0, time.UTC)

	mk := func(id string, creator string, offset time.Duration, tags ...string) persistence.Event {
		return persistence.Event{
			ID: id, CreatorID: creator, Title: id, MemberIDs: tags,
			Start: base.Add(offset), End: base.Add(offset + time.Hour),
			CreatedAt: base, UpdatedAt: base,
		}
	}
	all := []persistence.Event{
		mk("morning", "member-1", 0),
		mk("evening", "member-1", 10*time.Hour, "member-2"),
		mk("nextday", "member-2", 26*time.Hour),
	}
	if err := repo.CreateEvents(ctx, all); err != nil {
		t.Fatalf("create events: %v", err)
	}

	t.Run("time range", func(t *testing.T) {
		after := base.Add(9 * time.Hour)
		before := base.Add(24 * time.Hour)
		got, err := repo.ListEvents(ctx, persistence.EventFilter{StartsAfter: &after, EndsBefore: &before})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].ID != "evening" {
			t.Fatalf("expected only the evening event, got %+v", got)
		}
	})

	t.Run("member includes creator and tagged", func(t *testing.T) {
		got, err := repo.ListEvents(ctx, persistence.EventFilter{MemberIDs: []string{"member-2"}})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 events for member-2, got %d", len(got))
		}
	})
}

func TestEventRepository_UpdateEvent(t *testing.T) {
	pool := newTestPool(t)
	seedMember(t, pool, "member-1", "one@example.com")

	repo := NewEventRepository(pool)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	event := persistence.Event{
		ID: "event-1", CreatorID: "member-1", Title: "Dentist",
		Start: now, End: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.CreateEvents(ctx, []persistence.Event{event}); err != nil {
		t.Fatalf("create: %v", err)
	}

	event.Title = "Dentist (moved)"
	event.Completed = true
	event.Start = now.Add(2 * time.Hour)
	event.End = now.Add(3 * time.Hour)
	event.UpdatedAt = now.Add(time.Minute)
	if err := repo.UpdateEvent(ctx, event); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Dentist (moved)" || !got.Completed {
		t.Fatalf("update not applied: %+v", got)
	}

	missing := event
	missing.ID = "nope"
	if err := repo.UpdateEvent(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository_ZeroDurationEvent(t *testing.T) {
	pool := newTestPool(t)
	seedMember(t, pool, "member-1", "one@example.com")

	repo := NewEventRepository(pool)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 7, 30, 0, 0, time.UTC)

	// An instantaneous reminder has end == start and must persist.
	event := persistence.Event{
		ID: "event-1", CreatorID: "member-1", Title: "Take out the bins",
		Start: now, End: now, CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.CreateEvents(ctx, []persistence.Event{event}); err != nil {
		t.Fatalf("create zero-duration event: %v", err)
	}

	got, err := repo.GetEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Start.Equal(got.End) {
		t.Fatalf("expected zero duration, got start=%v end=%v", got.Start, got.End)
	}

	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.UpdateEvent(ctx, got); err != nil {
		t.Fatalf("update zero-duration event: %v", err)
	}

	inverted := persistence.Event{
		ID: "event-2", CreatorID: "member-1", Title: "Backwards",
		Start: now, End: now.Add(-time.Minute), CreatedAt: now, UpdatedAt: now,
	}
	err = repo.CreateEvents(ctx, []persistence.Event{inverted})
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for inverted range, got %v", err)
	}
}
