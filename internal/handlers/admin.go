package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Amine830/ReadSphere-sub000/internal/metrics"
	"github.com/Amine830/ReadSphere-sub000/internal/moderation"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// ResolutionResponse is the JSON response from resolving or rejecting a
// report.
type ResolutionResponse struct {
	ReportID  int64  `json:"report_id"`
	CommentID int64  `json:"comment_id"`
	Status    string `json:"status"`
}

// LogActionRequest is the JSON request for recording a standalone
// moderation action such as a warning or a ban.
type LogActionRequest struct {
	CommentID int64  `json:"comment_id"`
	Action    string `json:"action"`
	Reason    string `json:"reason"`
}

// AdminStats is the moderation dashboard statistics snapshot.
type AdminStats struct {
	PendingReports     int     `json:"pending_reports"`
	ReportsSubmitted   float64 `json:"reports_submitted"`
	AutoRemovals       float64 `json:"auto_removals"`
	AuditWriteFailures float64 `json:"audit_write_failures"`
	Moderators         int     `json:"moderators"`
}

// requireModerator checks the actor holds moderation privileges for the
// dashboard read endpoints.
func (h *Handler) requireModerator(w http.ResponseWriter, r *http.Request) (int64, bool) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return 0, false
	}
	if !h.roles.IsModerator(actorID) {
		log.Warn().Int64("actor_id", actorID).Str("path", r.URL.Path).Msg("handlers: denied, not a moderator")
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "moderator privileges required"})
		return 0, false
	}
	return actorID, true
}

// HandleListReports handles GET /_mod/reports with an optional status
// filter and pagination.
func (h *Handler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireModerator(w, r)
	if !ok {
		return
	}
	if !h.roles.HasPermission(actorID, moderation.PermissionViewReports) {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "you do not have permission to view reports"})
		return
	}

	status := moderation.ReportStatus(r.URL.Query().Get("status"))
	switch status {
	case "", moderation.ReportStatusPending, moderation.ReportStatusResolved, moderation.ReportStatusRejected:
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid status filter"})
		return
	}

	page, err := h.engine.ListReportedComments(r.Context(), status,
		queryInt(r, "page", 1), queryInt(r, "per_page", 20))
	if err != nil {
		writeError(w, err)
		return
	}
	if page.Items == nil {
		page.Items = []moderation.ReportedComment{}
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleResolveReport handles POST /_mod/reports/{id}/resolve.
func (h *Handler) HandleResolveReport(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	reportID, ok := pathID(w, r)
	if !ok {
		return
	}

	commentID, err := h.engine.ResolveReport(r.Context(), reportID, actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ResolutionResponse{
		ReportID:  reportID,
		CommentID: commentID,
		Status:    string(moderation.ReportStatusResolved),
	})
}

// HandleRejectReport handles POST /_mod/reports/{id}/reject.
func (h *Handler) HandleRejectReport(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	reportID, ok := pathID(w, r)
	if !ok {
		return
	}

	commentID, err := h.engine.RejectReport(r.Context(), reportID, actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ResolutionResponse{
		ReportID:  reportID,
		CommentID: commentID,
		Status:    string(moderation.ReportStatusRejected),
	})
}

// HandleAuditLog handles GET /_mod/audit.
func (h *Handler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireModerator(w, r)
	if !ok {
		return
	}
	if !h.roles.HasPermission(actorID, moderation.PermissionViewAuditLog) {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "you do not have permission to view the audit log"})
		return
	}

	actions, err := h.engine.ListActions(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, err)
		return
	}
	if actions == nil {
		actions = []moderation.ModerationAction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

// HandleLogAction handles POST /_mod/actions, recording a standalone
// audit entry (warn, ban, ignore).
func (h *Handler) HandleLogAction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req LogActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	err := h.engine.LogModerationAction(r.Context(), actorID, req.CommentID, moderation.ActionType(req.Action), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAdminStats handles GET /_mod/stats. Counters come from the
// process's own prometheus registry; the pending-report figure is read
// live from the database and pushed back into the gauge.
func (h *Handler) HandleAdminStats(w http.ResponseWriter, r *http.Request) {
	_, ok := h.requireModerator(w, r)
	if !ok {
		return
	}

	pending, err := h.store.CountPendingReports(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.ReportsPending.Set(float64(pending))

	stats := AdminStats{
		PendingReports:     pending,
		ReportsSubmitted:   getCounterValue(metrics.ReportsSubmittedTotal),
		AutoRemovals:       getCounterValue(metrics.AutoRemovalsTotal),
		AuditWriteFailures: getCounterValue(metrics.AuditWriteFailuresTotal),
		Moderators:         len(h.roles.ListModerators()),
	}
	writeJSON(w, http.StatusOK, stats)
}

// getCounterValue reads the current value of a prometheus.Counter.
func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil {
		return m.GetCounter().GetValue()
	}
	return 0
}
