package handlers

import (
	"encoding/json"
	"net/http"
)

// ReportRequest is the JSON request for submitting a report.
type ReportRequest struct {
	Reason string `json:"reason"`
}

// ReportResponse is the JSON response from report submission.
type ReportResponse struct {
	ReportID       int64  `json:"report_id"`
	Status         string `json:"status"`
	CommentRemoved bool   `json:"comment_removed"`
}

// HandleReportComment handles POST /api/comments/{id}/report.
func (h *Handler) HandleReportComment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	commentID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	receipt, err := h.engine.ReportComment(r.Context(), commentID, actorID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ReportResponse{
		ReportID:       receipt.Report.ID,
		Status:         string(receipt.Report.Status),
		CommentRemoved: receipt.TriggeredAutoRemoval,
	})
}
