package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/family-scheduler/internal/persistence"
	"github.com/example/family-scheduler/internal/recurrence"
)

// EventService orchestrates validation, recurrence expansion and persistence
// for calendar events.
type EventService struct {
	events      persistence.EventRepository
	members     persistence.MemberRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(events persistence.EventRepository, members persistence.MemberRepository, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, members, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an EventService with a specified logger.
func NewEventServiceWithLogger(events persistence.EventRepository, members persistence.MemberRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		members:     members,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates the request, expands any recurrence and stores the
// resulting occurrences atomically.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (result CreateEventResult, err error) {
	if s == nil {
		return CreateEventResult{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return CreateEventResult{}, fmt.Errorf("event repository not configured")
	}

	input := params.Input
	principal := params.Principal
	if input.CreatorID == "" {
		input.CreatorID = principal.MemberID
	}
	if input.CreatorID != principal.MemberID && !principal.IsAdmin {
		return CreateEventResult{}, ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "CreateEvent",
		"creator_id", input.CreatorID,
		"recurring", params.Recurrence != nil,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"occurrences", len(result.Events),
			"truncated", result.Truncated,
		).InfoContext(ctx, "event created")
	}()

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	rule, hasRule := validateRecurrence(params.Recurrence, vErr)
	if vErr.HasErrors() {
		return CreateEventResult{}, vErr
	}

	memberIDs := uniqueStrings(input.MemberIDs)
	if err = s.ensureMembersExist(ctx, append(append([]string(nil), memberIDs...), input.CreatorID)); err != nil {
		return CreateEventResult{}, err
	}

	createdAt := s.now()
	var stored []persistence.Event
	var truncated bool

	if hasRule {
		expander := recurrence.NewExpander(s.idGenerator)
		seed := recurrence.Seed{
			Title:       strings.TrimSpace(input.Title),
			Description: input.Description,
			Color:       input.Color,
			Completed:   input.Completed,
			MemberIDs:   memberIDs,
			Start:       input.Start,
			End:         input.End,
		}
		var series recurrence.Series
		series, err = expander.Expand(seed, rule)
		if err != nil {
			return CreateEventResult{}, mapRecurrenceError(err)
		}
		truncated = series.Truncated
		stored = make([]persistence.Event, 0, len(series.Occurrences))
		for _, occ := range series.Occurrences {
			seriesID := occ.SeriesID
			stored = append(stored, persistence.Event{
				ID:          occ.ID,
				SeriesID:    &seriesID,
				CreatorID:   input.CreatorID,
				Title:       occ.Title,
				Description: occ.Description,
				Color:       occ.Color,
				Completed:   occ.Completed,
				MemberIDs:   occ.MemberIDs,
				Start:       occ.Start,
				End:         occ.End,
				CreatedAt:   createdAt,
				UpdatedAt:   createdAt,
			})
		}
	} else {
		stored = []persistence.Event{{
			ID:          s.idGenerator(),
			CreatorID:   input.CreatorID,
			Title:       strings.TrimSpace(input.Title),
			Description: input.Description,
			Color:       input.Color,
			Completed:   input.Completed,
			MemberIDs:   memberIDs,
			Start:       input.Start,
			End:         input.End,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}}
	}

	if err = s.events.CreateEvents(ctx, stored); err != nil {
		err = mapEventRepoError(err)
		return CreateEventResult{}, err
	}

	events := make([]Event, 0, len(stored))
	for _, record := range stored {
		events = append(events, toApplicationEvent(record))
	}
	result = CreateEventResult{Events: events, Truncated: truncated}
	return result, nil
}

// GetEvent retrieves a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	record, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return toApplicationEvent(record), nil
}

// UpdateEvent applies validation and authorization before updating an event.
// Updating one occurrence of a series never touches its siblings.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (result Event, err error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateEvent", "event_id", params.EventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	var existing persistence.Event
	existing, err = s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		err = mapEventRepoError(err)
		return Event{}, err
	}

	principal := params.Principal
	if existing.CreatorID != principal.MemberID && !principal.IsAdmin {
		err = ErrUnauthorized
		return Event{}, err
	}

	input := params.Input
	vErr := &ValidationError{}
	if input.CreatorID != "" && input.CreatorID != existing.CreatorID {
		vErr.add("creator_id", "creator cannot be changed")
	}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		err = vErr
		return Event{}, err
	}

	memberIDs := uniqueStrings(input.MemberIDs)
	if err = s.ensureMembersExist(ctx, append(append([]string(nil), memberIDs...), existing.CreatorID)); err != nil {
		return Event{}, err
	}

	updated := existing
	updated.Title = strings.TrimSpace(input.Title)
	updated.Description = input.Description
	updated.Color = input.Color
	updated.Completed = input.Completed
	updated.MemberIDs = memberIDs
	updated.Start = input.Start
	updated.End = input.End
	updated.UpdatedAt = s.now()

	if err = s.events.UpdateEvent(ctx, updated); err != nil {
		err = mapEventRepoError(err)
		return Event{}, err
	}
	return toApplicationEvent(updated), nil
}

// DeleteEvent removes a single occurrence or a whole series depending on the
// requested scope.
func (s *EventService) DeleteEvent(ctx context.Context, params DeleteEventParams) (err error) {
	if s == nil || s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEvent", "event_id", params.EventID, "scope", string(params.Scope))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event deleted")
	}()

	var existing persistence.Event
	existing, err = s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		err = mapEventRepoError(err)
		return err
	}

	principal := params.Principal
	if existing.CreatorID != principal.MemberID && !principal.IsAdmin {
		err = ErrUnauthorized
		return err
	}

	switch params.Scope {
	case DeleteScopeSeries:
		if existing.SeriesID == nil {
			// A standalone event has no siblings; fall back to single delete.
			err = mapEventRepoError(s.events.DeleteEvent(ctx, params.EventID))
			return err
		}
		err = mapEventRepoError(s.events.DeleteSeries(ctx, *existing.SeriesID))
		return err
	case DeleteScopeSingle, "":
		err = mapEventRepoError(s.events.DeleteEvent(ctx, params.EventID))
		return err
	default:
		vErr := &ValidationError{}
		vErr.add("scope", "scope must be single or series")
		err = vErr
		return err
	}
}

// ListEvents enumerates events visible to the requesting principal, ordered
// by start time.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	filter := buildEventFilter(params)
	records, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	events := make([]Event, 0, len(records))
	for _, record := range records {
		events = append(events, toApplicationEvent(record))
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

// UpcomingEvents returns events starting within the window after now. The
// notification runner uses this as its polling source.
func (s *EventService) UpcomingEvents(ctx context.Context, window time.Duration) ([]Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}
	if window <= 0 {
		window = time.Hour
	}

	now := s.now()
	until := now.Add(window)
	records, err := s.events.ListEvents(ctx, persistence.EventFilter{
		StartsAfter: &now,
		EndsBefore:  &until,
	})
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(records))
	for _, record := range records {
		events = append(events, toApplicationEvent(record))
	}
	return events, nil
}

func (s *EventService) ensureMembersExist(ctx context.Context, ids []string) error {
	if s.members == nil {
		return nil
	}
	missing := make([]string, 0)
	for _, id := range uniqueStrings(ids) {
		if _, err := s.members.GetMember(ctx, id); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				missing = append(missing, id)
				continue
			}
			return err
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	vErr := &ValidationError{}
	vErr.add("members", fmt.Sprintf("unknown member ids: %s", strings.Join(missing, ", ")))
	return vErr
}

func validateEventCore(input EventInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && input.End.Before(input.Start) {
		vErr.add("time", "end must not precede start")
	}
}

// validateRecurrence translates a caller supplied recurrence request into an
// expansion rule. A nil request means the event does not repeat.
func validateRecurrence(input *RecurrenceInput, vErr *ValidationError) (recurrence.Rule, bool) {
	if input == nil {
		return recurrence.Rule{}, false
	}

	freq, err := recurrence.ParseFrequency(input.Frequency)
	if err != nil {
		vErr.add("recurrence.frequency", "frequency must be one of daily, weekly, biweekly, monthly, yearly")
	}
	if input.Count < 0 {
		vErr.add("recurrence.count", "count must not be negative")
	}
	if input.Count > 0 && input.Until != nil {
		vErr.add("recurrence", "count and until are mutually exclusive")
	}
	if input.Until != nil && input.Until.IsZero() {
		vErr.add("recurrence.until", "until must be a valid timestamp")
	}

	return recurrence.Rule{Frequency: freq, Count: input.Count, Until: input.Until}, true
}

func mapRecurrenceError(err error) error {
	if err == nil {
		return nil
	}
	vErr := &ValidationError{}
	switch {
	case errors.Is(err, recurrence.ErrInvalidFrequency):
		vErr.add("recurrence.frequency", "frequency must be one of daily, weekly, biweekly, monthly, yearly")
	case errors.Is(err, recurrence.ErrInvalidTimeRange):
		vErr.add("time", "end must not precede start")
	case errors.Is(err, recurrence.ErrInvalidEndCondition):
		vErr.add("recurrence", "end condition is invalid")
	default:
		return err
	}
	return vErr
}

func toApplicationEvent(record persistence.Event) Event {
	event := Event{
		ID:          record.ID,
		CreatorID:   record.CreatorID,
		Title:       record.Title,
		Description: record.Description,
		Color:       record.Color,
		Completed:   record.Completed,
		MemberIDs:   append([]string(nil), record.MemberIDs...),
		Start:       record.Start,
		End:         record.End,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
	if record.SeriesID != nil {
		seriesID := *record.SeriesID
		event.SeriesID = &seriesID
	}
	return event
}

func buildEventFilter(params ListEventsParams) persistence.EventFilter {
	memberIDs := uniqueStrings(params.MemberIDs)
	if len(memberIDs) == 0 {
		memberIDs = nil
	}

	startsAfter := params.StartsAfter
	endsBefore := params.EndsBefore
	if params.Period != ListPeriodNone {
		start, end := computePeriodRange(params.Period, params.PeriodReference)
		if startsAfter == nil {
			startsAfter = &start
		}
		if endsBefore == nil {
			endsBefore = &end
		}
	}

	return persistence.EventFilter{
		MemberIDs:   memberIDs,
		StartsAfter: startsAfter,
		EndsBefore:  endsBefore,
	}
}

func computePeriodRange(period ListPeriod, reference time.Time) (time.Time, time.Time) {
	switch period {
	case ListPeriodDay:
		start := startOfDay(reference)
		return start, start.AddDate(0, 0, 1)
	case ListPeriodWeek:
		start := startOfWeek(reference)
		return start, start.AddDate(0, 0, 7)
	case ListPeriodMonth:
		start := startOfMonth(reference)
		return start, start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

func startOfDay(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

func startOfWeek(t time.Time) time.Time {
	start := startOfDay(t)
	weekday := int(start.Weekday())
	// Adjust so Monday is start of week. In Go, Monday == 1, Sunday == 0.
	offset := (weekday + 6) % 7
	return start.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	start := startOfDay(t)
	return time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "end must not precede start")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("members", "related records are missing")
		return vErr
	}
	return err
}
