package api

import (
	"encoding/json"
	"net/http"

	"github.com/odvcencio/reelview/pkg/movie"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.orch.ActiveSessionCount(),
		"metrics":         s.metrics.Snapshot(),
	})
}

// CreateSessionRequest is the request body for starting a session.
type CreateSessionRequest struct {
	ContentID string `json:"content_id"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, movie.NewError(movie.CodeInvalidInput, "invalid request body: "+err.Error()))
		return
	}

	sess, err := s.orch.StartSession(r.Context(), req.ContentID, req.Title, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.orch.StopSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionData(w http.ResponseWriter, r *http.Request) {
	sess, err := s.orch.SessionSnapshot(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handlePlaybackState(w http.ResponseWriter, r *http.Request) {
	state, err := s.orch.PlaybackState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleCaptureFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := s.orch.CaptureFrame(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, frame)
}

func (s *Server) handleCaptureSubtitles(w http.ResponseWriter, r *http.Request) {
	subs, err := s.orch.CaptureSubtitles(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if subs == nil {
		subs = []movie.Subtitle{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// AnalyzeRequest is the request body for content analysis.
type AnalyzeRequest struct {
	ContentType movie.ContentKind `json:"content_type"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, movie.NewError(movie.CodeInvalidInput, "invalid request body: "+err.Error()))
		return
	}

	mem, err := s.orch.Analyze(r.Context(), r.PathValue("id"), req.ContentType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mem)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	count, err := s.orch.StartConversation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "conversation_started",
		"memories": count,
	})
}
