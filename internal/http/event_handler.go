package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/family-scheduler/internal/application"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.CreateEventResult, error)
	GetEvent(ctx context.Context, id string) (application.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	DeleteEvent(ctx context.Context, params application.DeleteEventParams) error
	ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, error)
}

type EventHandler struct {
	service   eventService
	responder responder
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: newResponder(logger)}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal:  principal,
		Input:      req.toInput(),
		Recurrence: req.Recurrence.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createEventResponse{
		Events:    toEventDTOs(result.Events),
		Truncated: result.Truncated,
	})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	scope := application.DeleteScope(strings.TrimSpace(r.URL.Query().Get("scope")))

	err := h.service.DeleteEvent(r.Context(), application.DeleteEventParams{
		Principal: principal,
		EventID:   eventID,
		Scope:     scope,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildListParams(r.URL.Query(), principal)

	events, err := h.service.ListEvents(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

type eventRequest struct {
	CreatorID   string             `json:"creator_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Color       string             `json:"color"`
	Completed   bool               `json:"completed"`
	Start       string             `json:"start"`
	End         string             `json:"end"`
	MemberIDs   []string           `json:"member_ids"`
	Recurrence  *recurrenceRequest `json:"recurrence,omitempty"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		CreatorID:   strings.TrimSpace(r.CreatorID),
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Color:       strings.TrimSpace(r.Color),
		Completed:   r.Completed,
		Start:       parseTime(r.Start),
		End:         parseTime(r.End),
		MemberIDs:   append([]string(nil), r.MemberIDs...),
	}
}

type recurrenceRequest struct {
	Frequency string `json:"frequency"`
	Count     int    `json:"count,omitempty"`
	Until     string `json:"until,omitempty"`
}

func (r *recurrenceRequest) toInput() *application.RecurrenceInput {
	if r == nil {
		return nil
	}
	input := &application.RecurrenceInput{
		Frequency: strings.TrimSpace(r.Frequency),
		Count:     r.Count,
	}
	if until := strings.TrimSpace(r.Until); until != "" {
		ts := parseTime(until)
		input.Until = &ts
	}
	return input
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type createEventResponse struct {
	Events    []eventDTO `json:"events"`
	Truncated bool       `json:"truncated"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventDTO struct {
	ID          string   `json:"id"`
	SeriesID    *string  `json:"series_id,omitempty"`
	CreatorID   string   `json:"creator_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Color       string   `json:"color,omitempty"`
	Completed   bool     `json:"completed"`
	MemberIDs   []string `json:"member_ids"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:          event.ID,
		SeriesID:    event.SeriesID,
		CreatorID:   event.CreatorID,
		Title:       event.Title,
		Description: event.Description,
		Color:       event.Color,
		Completed:   event.Completed,
		MemberIDs:   append([]string(nil), event.MemberIDs...),
		Start:       event.Start.UTC().Format(time.RFC3339Nano),
		End:         event.End.UTC().Format(time.RFC3339Nano),
		CreatedAt:   event.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   event.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toEventDTOs(events []application.Event) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

func buildListParams(values url.Values, principal application.Principal) application.ListEventsParams {
	params := application.ListEventsParams{Principal: principal}

	if members := strings.TrimSpace(values.Get("members")); members != "" {
		params.MemberIDs = parseCSV(members)
	}

	if after := strings.TrimSpace(values.Get("starts_after")); after != "" {
		if ts := parseTime(after); !ts.IsZero() {
			params.StartsAfter = &ts
		}
	}
	if before := strings.TrimSpace(values.Get("ends_before")); before != "" {
		if ts := parseTime(before); !ts.IsZero() {
			params.EndsBefore = &ts
		}
	}

	if day := strings.TrimSpace(values.Get("day")); day != "" {
		if ts, err := time.ParseInLocation("2006-01-02", day, time.Local); err == nil {
			params.Period = application.ListPeriodDay
			params.PeriodReference = ts
		}
	} else if week := strings.TrimSpace(values.Get("week")); week != "" {
		if ts, err := time.ParseInLocation("2006-01-02", week, time.Local); err == nil {
			params.Period = application.ListPeriodWeek
			params.PeriodReference = ts
		}
	} else if month := strings.TrimSpace(values.Get("month")); month != "" {
		if ts, err := time.ParseInLocation("2006-01", month, time.Local); err == nil {
			params.Period = application.ListPeriodMonth
			params.PeriodReference = ts
		}
	}

	return params
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
