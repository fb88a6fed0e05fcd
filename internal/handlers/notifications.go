package handlers

import (
	"net/http"

	"github.com/Amine830/ReadSphere-sub000/internal/models"
)

// NotificationsResponse is the JSON response for the inbox listing.
type NotificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Cursor        string                `json:"cursor,omitempty"`
	UnreadCount   int                   `json:"unread_count"`
}

// HandleNotifications handles GET /api/notifications with cursor
// pagination.
func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 20)
	cursor := r.URL.Query().Get("cursor")

	notifications, nextCursor, err := h.inbox.List(r.Context(), actorID, limit, cursor)
	if err != nil {
		writeError(w, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	writeJSON(w, http.StatusOK, NotificationsResponse{
		Notifications: notifications,
		Cursor:        nextCursor,
		UnreadCount:   h.inbox.UnreadCount(r.Context(), actorID),
	})
}

// HandleNotificationsRead handles POST /api/notifications/read, marking
// the actor's whole inbox as read.
func (h *Handler) HandleNotificationsRead(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.inbox.MarkAllRead(r.Context(), actorID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
