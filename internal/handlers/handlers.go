// Package handlers implements the JSON HTTP surface over the moderation
// engine. Handlers do not enforce permissions beyond requiring an actor;
// authorization decisions live in the engine and the roles service.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Amine830/ReadSphere-sub000/internal/database/boltstore"
	"github.com/Amine830/ReadSphere-sub000/internal/database/sqlitestore"
	"github.com/Amine830/ReadSphere-sub000/internal/middleware"
	"github.com/Amine830/ReadSphere-sub000/internal/moderation"

	"github.com/rs/zerolog/log"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	engine *moderation.Engine
	store  *sqlitestore.Store
	roles  *moderation.Roles
	inbox  *boltstore.NotificationStore
}

func NewHandler(engine *moderation.Engine, store *sqlitestore.Store, roles *moderation.Roles, inbox *boltstore.NotificationStore) *Handler {
	return &Handler{engine: engine, store: store, roles: roles, inbox: inbox}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeJSON encodes and writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("handlers: failed to encode response")
	}
}

// writeError maps a moderation error kind to an HTTP status and writes
// the JSON error envelope. Unclassified errors become 500s with a
// generic message so internals do not leak.
func writeError(w http.ResponseWriter, err error) {
	kind := moderation.KindOf(err)

	var status int
	switch kind {
	case moderation.KindValidation:
		status = http.StatusBadRequest
	case moderation.KindForbidden:
		status = http.StatusForbidden
	case moderation.KindNotFound:
		status = http.StatusNotFound
	case moderation.KindConflict:
		status = http.StatusConflict
	case moderation.KindTransient:
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
	default:
		log.Error().Err(err).Msg("handlers: internal error")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind.String()})
}

// requireActor extracts the authenticated actor from the context or
// writes a 401.
func requireActor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	actorID, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return 0, false
	}
	return actorID, true
}

// pathID parses the {id} path value or writes a 400.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id in path"})
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// HandleHealthz reports liveness.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
