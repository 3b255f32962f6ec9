package server

import (
	"net/http"

	"tunishield/internal/quiz"
)

func (s *Server) handleQuizStatus(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	status, err := s.Quiz.Status(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleQuizAttempt(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var in quiz.AttemptInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.Quiz.Record(r.Context(), user.ID, in); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
