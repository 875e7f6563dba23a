package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/family-scheduler/internal/application"
	"github.com/example/family-scheduler/internal/ics"
)

type CalendarHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service eventService, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base}
}

// Export renders the caller's events as an iCalendar document. The same
// query parameters as the event list endpoint narrow the exported range.
func (h *CalendarHandler) Export(w http.ResponseWriter, r *http.Request) {
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

	document, err := ics.Encode(events)
	if err != nil {
		h.log(r.Context()).ErrorContext(r.Context(), "failed to encode calendar", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="family-scheduler.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(document)); err != nil {
		h.log(r.Context()).ErrorContext(r.Context(), "failed to write calendar response", "error", err)
	}
}

func (h *CalendarHandler) log(ctx context.Context) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", "Export")
}
