package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/example/family-scheduler/internal/application"
)

type notificationFeed interface {
	Drain() []application.Notification
}

type NotificationHandler struct {
	feed      notificationFeed
	responder responder
}

func NewNotificationHandler(feed notificationFeed, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{feed: feed, responder: newResponder(logger)}
}

// List delivers and clears the pending due-signals. Delivery is
// at-most-once: a drained notification is not returned again.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.feed == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pending := h.feed.Drain()
	dtos := make([]notificationDTO, 0, len(pending))
	for _, notification := range pending {
		dtos = append(dtos, toNotificationDTO(notification))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listNotificationsResponse{Notifications: dtos})
}

type listNotificationsResponse struct {
	Notifications []notificationDTO `json:"notifications"`
}

type notificationDTO struct {
	EventID   string   `json:"event_id"`
	SeriesID  *string  `json:"series_id,omitempty"`
	Title     string   `json:"title"`
	Color     string   `json:"color,omitempty"`
	MemberIDs []string `json:"member_ids,omitempty"`
	Start     string   `json:"start"`
	EmittedAt string   `json:"emitted_at"`
}

func toNotificationDTO(notification application.Notification) notificationDTO {
	return notificationDTO{
		EventID:   notification.EventID,
		SeriesID:  notification.SeriesID,
		Title:     notification.Title,
		Color:     notification.Color,
		MemberIDs: append([]string(nil), notification.MemberIDs...),
		Start:     notification.Start.UTC().Format(time.RFC3339Nano),
		EmittedAt: notification.EmittedAt.UTC().Format(time.RFC3339Nano),
	}
}
