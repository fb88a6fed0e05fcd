package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Amine830/ReadSphere-sub000/internal/middleware"
	"github.com/Amine830/ReadSphere-sub000/internal/models"
)

// UpdateCommentRequest is the JSON request for editing a comment.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// CommentsPage is the JSON response for a visible-comment listing.
type CommentsPage struct {
	Comments []models.Comment `json:"comments"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
}

// HandleCommentDelete handles DELETE /api/comments/{id}. With
// ?as_moderator=1 the delete is a moderator removal instead of an
// author self-delete.
func (h *Handler) HandleCommentDelete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	commentID, ok := pathID(w, r)
	if !ok {
		return
	}

	asModerator := r.URL.Query().Get("as_moderator") == "1"
	if err := h.engine.DeleteComment(r.Context(), commentID, actorID, asModerator); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleCommentUpdate handles PUT /api/comments/{id}.
func (h *Handler) HandleCommentUpdate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	commentID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	if err := h.engine.UpdateComment(r.Context(), commentID, req.Content, actorID); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.store.GetComment(r.Context(), commentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// HandleBookComments handles GET /api/books/{id}/comments. The listing
// is viewer-dependent: authors see their own moderated comments as
// placeholders, nobody else sees them at all.
func (h *Handler) HandleBookComments(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r)
	if !ok {
		return
	}

	// Anonymous viewers get the public view.
	viewerID, _ := middleware.ActorFrom(r.Context())

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)

	comments, total, err := h.engine.VisibleComments(r.Context(), bookID, viewerID, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	writeJSON(w, http.StatusOK, CommentsPage{
		Comments: comments,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
	})
}
