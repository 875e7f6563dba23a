package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/family-scheduler/internal/persistence"
)

type eventRepoStub struct {
	events    map[string]persistence.Event
	createErr error
	order     []string
}

func newEventRepoStub() *eventRepoStub {
	return &eventRepoStub{events: make(map[string]persistence.Event)}
}

func (s *eventRepoStub) CreateEvents(ctx context.Context, events []persistence.Event) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, event := range events {
		s.events[event.ID] = event
		s.order = append(s.order, event.ID)
	}
	return nil
}

func (s *eventRepoStub) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if _, ok := s.events[event.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.events[event.ID] = event
	return nil
}

func (s *eventRepoStub) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, nil
}

func (s *eventRepoStub) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	var out []persistence.Event
	for _, id := range s.order {
		event, ok := s.events[id]
		if !ok {
			continue
		}
		if filter.StartsAfter != nil && !event.End.After(*filter.StartsAfter) {
			continue
		}
		if filter.EndsBefore != nil && !event.Start.Before(*filter.EndsBefore) {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func (s *eventRepoStub) DeleteEvent(ctx context.Context, id string) error {
	if _, ok := s.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *eventRepoStub) DeleteSeries(ctx context.Context, seriesID string) error {
	deleted := 0
	for id, event := range s.events {
		if event.SeriesID != nil && *event.SeriesID == seriesID {
			delete(s.events, id)
			deleted++
		}
	}
	if deleted == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type memberRepoStub struct {
	members map[string]persistence.Member
}

func newMemberRepoStub(ids ...string) *memberRepoStub {
	stub := &memberRepoStub{members: make(map[string]persistence.Member)}
	for _, id := range ids {
		stub.members[id] = persistence.Member{ID: id, Email: id + "@example.com", DisplayName: id}
	}
	return stub
}

func (s *memberRepoStub) CreateMember(ctx context.Context, member persistence.Member) error {
	for _, existing := range s.members {
		if existing.Email == member.Email {
			return persistence.ErrDuplicate
		}
	}
	s.members[member.ID] = member
	return nil
}

func (s *memberRepoStub) UpdateMember(ctx context.Context, member persistence.Member) error {
	if _, ok := s.members[member.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.members[member.ID] = member
	return nil
}

func (s *memberRepoStub) GetMember(ctx context.Context, id string) (persistence.Member, error) {
	member, ok := s.members[id]
	if !ok {
		return persistence.Member{}, persistence.ErrNotFound
	}
	return member, nil
}

func (s *memberRepoStub) GetMemberByEmail(ctx context.Context, email string) (persistence.Member, error) {
	for _, member := range s.members {
		if member.Email == email {
			return member, nil
		}
	}
	return persistence.Member{}, persistence.ErrNotFound
}

func (s *memberRepoStub) ListMembers(ctx context.Context) ([]persistence.Member, error) {
	out := make([]persistence.Member, 0, len(s.members))
	for _, member := range s.members {
		out = append(out, member)
	}
	return out, nil
}

func (s *memberRepoStub) DeleteMember(ctx context.Context, id string) error {
	if _, ok := s.members[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.members, id)
	return nil
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEventService_CreateEvent_SingleEvent(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	members := newMemberRepoStub("member-1", "member-2")
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc := NewEventService(repo, members, sequentialIDs("event"), fixedNow(now))

	start := now.Add(24 * time.Hour)
	result, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{MemberID: "member-1"},
		Input: EventInput{
			Title:     "Dentist",
			Start:     start,
			End:       start.Add(time.Hour),
			MemberIDs: []string{"member-2"},
		},
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if len(result.Events) != 1 || result.Truncated {
		t.Fatalf("expected one occurrence, got %d (truncated=%v)", len(result.Events), result.Truncated)
	}
	if result.Events[0].SeriesID != nil {
		t.Fatalf("standalone event should have no series id")
	}
	if result.Events[0].CreatorID != "member-1" {
		t.Fatalf("creator defaulted wrong: %q", result.Events[0].CreatorID)
	}
}

func TestEventService_CreateEvent_WeeklySeries(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	members := newMemberRepoStub("member-1")
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc := NewEventService(repo, members, sequentialIDs("event"), fixedNow(now))

	start := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
	result, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal:  Principal{MemberID: "member-1"},
		Input:      EventInput{Title: "Swim practice", Start: start, End: start.Add(time.Hour)},
		Recurrence: &RecurrenceInput{Frequency: "weekly", Count: 4},
	})
	if err != nil {
		t.Fatalf("create series: %v", err)
	}
	if len(result.Events) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(result.Events))
	}

	seriesID := result.Events[0].ID
	for i, event := range result.Events {
		if event.SeriesID == nil || *event.SeriesID != seriesID {
			t.Fatalf("occurrence %d has wrong series id", i)
		}
		want := start.AddDate(0, 0, 7*i)
		if !event.Start.Equal(want) {
			t.Fatalf("occurrence %d start = %v, want %v", i, event.Start, want)
		}
	}
	if len(repo.events) != 4 {
		t.Fatalf("series not persisted, %d rows", len(repo.events))
	}
}

func TestEventService_CreateEvent_UnboundedDailyTruncates(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	members := newMemberRepoStub("member-1")
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc := NewEventService(repo, members, sequentialIDs("event"), fixedNow(now))

	start := now.Add(time.Hour)
	result, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal:  Principal{MemberID: "member-1"},
		Input:      EventInput{Title: "Medication", Start: start, End: start.Add(10 * time.Minute)},
		Recurrence: &RecurrenceInput{Frequency: "daily"},
	})
	if err != nil {
		t.Fatalf("create series: %v", err)
	}
	if !result.Truncated {
		t.Fatal("unbounded daily series must report truncation")
	}
	if len(result.Events) != 500 {
		t.Fatalf("expected 500 occurrences, got %d", len(result.Events))
	}
}

func TestEventService_CreateEvent_ValidationFailures(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)

	cases := []struct {
		name       string
		input      EventInput
		recurrence *RecurrenceInput
		field      string
	}{
		{
			name:  "missing title",
			input: EventInput{Start: start, End: start.Add(time.Hour)},
			field: "title",
		},
		{
			name:  "inverted range",
			input: EventInput{Title: "X", Start: start, End: start.Add(-time.Hour)},
			field: "time",
		},
		{
			name:       "bad frequency",
			input:      EventInput{Title: "X", Start: start, End: start.Add(time.Hour)},
			recurrence: &RecurrenceInput{Frequency: "hourly"},
			field:      "recurrence.frequency",
		},
		{
			name:       "count and until together",
			input:      EventInput{Title: "X", Start: start, End: start.Add(time.Hour)},
			recurrence: &RecurrenceInput{Frequency: "daily", Count: 3, Until: &start},
			field:      "recurrence",
		},
		{
			name:       "negative count",
			input:      EventInput{Title: "X", Start: start, End: start.Add(time.Hour)},
			recurrence: &RecurrenceInput{Frequency: "daily", Count: -1},
			field:      "recurrence.count",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := newEventRepoStub()
			svc := NewEventService(repo, newMemberRepoStub("member-1"), sequentialIDs("event"), fixedNow(now))
			_, err := svc.CreateEvent(context.Background(), CreateEventParams{
				Principal:  Principal{MemberID: "member-1"},
				Input:      tc.input,
				Recurrence: tc.recurrence,
			})

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected field %q in %v", tc.field, vErr.FieldErrors)
			}
			if len(repo.events) != 0 {
				t.Fatal("nothing should be persisted on validation failure")
			}
		})
	}
}

func TestEventService_CreateEvent_UnknownMembers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)
	svc := NewEventService(newEventRepoStub(), newMemberRepoStub("member-1"), sequentialIDs("event"), fixedNow(now))

	_, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{MemberID: "member-1"},
		Input: EventInput{
			Title: "Picnic", Start: start, End: start.Add(time.Hour),
			MemberIDs: []string{"ghost"},
		},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["members"]; !ok {
		t.Fatalf("expected members field error, got %v", vErr.FieldErrors)
	}
}

func TestEventService_DeleteEvent_Scopes(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	members := newMemberRepoStub("member-1")
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc := NewEventService(repo, members, sequentialIDs("event"), fixedNow(now))

	start := now.Add(time.Hour)
	result, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal:  Principal{MemberID: "member-1"},
		Input:      EventInput{Title: "Piano", Start: start, End: start.Add(time.Hour)},
		Recurrence: &RecurrenceInput{Frequency: "weekly", Count: 3},
	})
	if err != nil {
		t.Fatalf("create series: %v", err)
	}

	t.Run("single removes one occurrence", func(t *testing.T) {
		err := svc.DeleteEvent(context.Background(), DeleteEventParams{
			Principal: Principal{MemberID: "member-1"},
			EventID:   result.Events[1].ID,
			Scope:     DeleteScopeSingle,
		})
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if len(repo.events) != 2 {
			t.Fatalf("expected 2 remaining, got %d", len(repo.events))
		}
	})

	t.Run("series removes the rest", func(t *testing.T) {
		err := svc.DeleteEvent(context.Background(), DeleteEventParams{
			Principal: Principal{MemberID: "member-1"},
			EventID:   result.Events[0].ID,
			Scope:     DeleteScopeSeries,
		})
		if err != nil {
			t.Fatalf("delete series: %v", err)
		}
		if len(repo.events) != 0 {
			t.Fatalf("expected empty repo, got %d", len(repo.events))
		}
	})
}

func TestEventService_DeleteEvent_Unauthorized(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	members := newMemberRepoStub("member-1", "member-2")
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc := NewEventService(repo, members, sequentialIDs("event"), fixedNow(now))

	start := now.Add(time.Hour)
	result, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{MemberID: "member-1"},
		Input:     EventInput{Title: "Private", Start: start, End: start.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.DeleteEvent(context.Background(), DeleteEventParams{
		Principal: Principal{MemberID: "member-2"},
		EventID:   result.Events[0].ID,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// Admins can delete anyone's events.
	err = svc.DeleteEvent(context.Background(), DeleteEventParams{
		Principal: Principal{MemberID: "member-2", IsAdmin: true},
		EventID:   result.Events[0].ID,
	})
	if err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestEventService_UpdateEvent_DoesNotTouchSiblings(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	members := newMemberRepoStub("member-1")
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc := NewEventService(repo, members, sequentialIDs("event"), fixedNow(now))

	start := now.Add(time.Hour)
	result, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal:  Principal{MemberID: "member-1"},
		Input:      EventInput{Title: "Yoga", Start: start, End: start.Add(time.Hour)},
		Recurrence: &RecurrenceInput{Frequency: "weekly", Count: 2},
	})
	if err != nil {
		t.Fatalf("create series: %v", err)
	}

	first := result.Events[0]
	updated, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{MemberID: "member-1"},
		EventID:   first.ID,
		Input: EventInput{
			Title: "Yoga (moved)", Completed: true,
			Start: first.Start.Add(time.Hour), End: first.End.Add(time.Hour),
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Yoga (moved)" || !updated.Completed {
		t.Fatalf("update not applied: %+v", updated)
	}

	sibling, err := svc.GetEvent(context.Background(), result.Events[1].ID)
	if err != nil {
		t.Fatalf("get sibling: %v", err)
	}
	if sibling.Title != "Yoga" || sibling.Completed {
		t.Fatalf("sibling was modified: %+v", sibling)
	}
}

func TestEventService_ListEvents_PeriodPresets(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	members := newMemberRepoStub("member-1")
	reference := time.Date(2026, 3, 4, 12, 0, 0, 0, time.Local)
	svc := NewEventService(repo, members, sequentialIDs("event"), fixedNow(reference))

	mk := func(title string, start time.Time) {
		t.Helper()
		_, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: Principal{MemberID: "member-1"},
			Input:     EventInput{Title: title, Start: start, End: start.Add(time.Hour)},
		})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	mk("today", time.Date(2026, 3, 4, 9, 0, 0, 0, time.Local))
	mk("tomorrow", time.Date(2026, 3, 5, 9, 0, 0, 0, time.Local))
	mk("next month", time.Date(2026, 4, 10, 9, 0, 0, 0, time.Local))

	t.Run("day", func(t *testing.T) {
		events, err := svc.ListEvents(context.Background(), ListEventsParams{
			Principal: Principal{MemberID: "member-1"},
			Period:    ListPeriodDay, PeriodReference: reference,
		})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(events) != 1 || events[0].Title != "today" {
			t.Fatalf("day preset wrong: %+v", events)
		}
	})

	t.Run("week starts monday", func(t *testing.T) {
		events, err := svc.ListEvents(context.Background(), ListEventsParams{
			Principal: Principal{MemberID: "member-1"},
			Period:    ListPeriodWeek, PeriodReference: reference,
		})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("week preset wrong, got %d events", len(events))
		}
	})

	t.Run("month", func(t *testing.T) {
		events, err := svc.ListEvents(context.Background(), ListEventsParams{
			Principal: Principal{MemberID: "member-1"},
			Period:    ListPeriodMonth, PeriodReference: reference,
		})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("month preset wrong, got %d events", len(events))
		}
	})
}

func TestEventService_UpcomingEvents(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	members := newMemberRepoStub("member-1")
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc := NewEventService(repo, members, sequentialIDs("event"), fixedNow(now))

	mk := func(title string, offset time.Duration) {
		t.Helper()
		start := now.Add(offset)
		_, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: Principal{MemberID: "member-1"},
			Input:     EventInput{Title: title, Start: start, End: start.Add(30 * time.Minute)},
		})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	mk("soon", 5*time.Minute)
	mk("later", 3*time.Hour)

	events, err := svc.UpcomingEvents(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(events) != 1 || events[0].Title != "soon" {
		t.Fatalf("expected only the imminent event, got %+v", events)
	}
}
