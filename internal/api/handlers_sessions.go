package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/berth-dev/hone/internal/loop"
	"github.com/berth-dev/hone/internal/orchestrator"
	"github.com/berth-dev/hone/internal/session"
)

// SessionHandler handles session HTTP requests.
type SessionHandler struct {
	orch *orchestrator.Orchestrator
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(orch *orchestrator.Orchestrator) *SessionHandler {
	return &SessionHandler{orch: orch}
}

// CreateRequest is the body of POST /sessions.
type CreateRequest struct {
	Prompt  string `json:"prompt"`
	Advance *bool  `json:"advance,omitempty"`
}

// ResumeRequest is the body of POST /sessions/{id}/resume.
type ResumeRequest struct {
	Choice   string `json:"choice,omitempty"`
	Feedback string `json:"feedback,omitempty"`
	Advance  *bool  `json:"advance,omitempty"`
}

// ChatResponse is the body returned by POST /sessions/{id}/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// advanceOrDefault treats a missing advance flag as true.
func advanceOrDefault(b *bool) bool {
	return b == nil || *b
}

// Create handles POST /sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.orch.Create(r.Context(), req.Prompt)
	if err != nil {
		writeErr(w, err)
		return
	}

	if !advanceOrDefault(req.Advance) {
		snap, err := h.orch.GetState(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap.State)
		return
	}

	st, err := h.orch.Advance(r.Context(), id)
	if err != nil {
		// The session is stored; hand back its id so the caller can resume.
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), SessionID: id})
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// List handles GET /sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	states, err := h.orch.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	summaries := make([]session.Summary, 0, len(states))
	for _, st := range states {
		summaries = append(summaries, session.Summarize(st))
	}
	writeJSON(w, http.StatusOK, summaries)
}

// Get handles GET /sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.orch.GetState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Resume handles POST /sessions/{id}/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	var req ResumeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	patch := loop.Patch{Choice: req.Choice, Feedback: req.Feedback}

	var (
		st  *loop.State
		err error
	)
	if advanceOrDefault(req.Advance) {
		st, err = h.orch.Answer(r.Context(), id, patch)
	} else {
		st, err = h.orch.Resume(r.Context(), id, patch)
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Advance handles POST /sessions/{id}/advance
func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	st, err := h.orch.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Chat handles POST /sessions/{id}/chat
func (h *SessionHandler) Chat(w http.ResponseWriter, r *http.Request) {
	st, err := h.orch.Chat(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: st.ChatResponse})
}

// Delete handles DELETE /sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
