package handlers

import (
	"net/http"
)

// HandleBookDelete handles DELETE /api/books/{id}. The owner or an
// administrator may delete; comments are cascaded inside the engine.
func (h *Handler) HandleBookDelete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	bookID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.engine.DeleteBook(r.Context(), bookID, actorID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleBookRestore handles POST /api/books/{id}/restore.
func (h *Handler) HandleBookRestore(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	bookID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.engine.RestoreBook(r.Context(), bookID, actorID); err != nil {
		writeError(w, err)
		return
	}

	book, err := h.store.GetBook(r.Context(), bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}
