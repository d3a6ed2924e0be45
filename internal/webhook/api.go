package webhook

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/sparring/internal/prep"
	"github.com/user/sparring/internal/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.subjects.List(r.Context())
	if err != nil {
		slog.Error("list subjects failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if subjects == nil {
		subjects = []*types.Subject{}
	}
	writeJSON(w, http.StatusOK, subjects)
}

// createSubjectRequest is the JSON body for POST /api/subjects.
type createSubjectRequest struct {
	UserID              string `json:"user_id"`
	Topic               string `json:"topic"`
	Position            string `json:"position"`
	ScenarioType        string `json:"scenario_type"`
	ResearchIntensity   string `json:"research_intensity"`
	AudienceDescription string `json:"audience_description"`
	AudienceDisposition string `json:"audience_disposition"`
	OpponentName        string `json:"opponent_name"`
	OpponentBackground  string `json:"opponent_background"`
	OpponentStyle       string `json:"opponent_style"`
	ResearchNotes       string `json:"research_notes"`
	ToneDirective       string `json:"tone_directive"`
	ExtraDirectives     string `json:"extra_directives"`
	NotifyKey           string `json:"notify_key"`
}

func (s *Server) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req createSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Topic == "" || req.ScenarioType == "" {
		writeError(w, http.StatusBadRequest, "topic and scenario_type are required")
		return
	}

	now := time.Now()
	subject := &types.Subject{
		ID:                  types.NewSubjectID(),
		UserID:              req.UserID,
		Topic:               req.Topic,
		Position:            req.Position,
		ScenarioType:        req.ScenarioType,
		ResearchIntensity:   req.ResearchIntensity,
		AudienceDescription: req.AudienceDescription,
		AudienceDisposition: req.AudienceDisposition,
		OpponentName:        req.OpponentName,
		OpponentBackground:  req.OpponentBackground,
		OpponentStyle:       req.OpponentStyle,
		ResearchNotes:       req.ResearchNotes,
		ToneDirective:       req.ToneDirective,
		ExtraDirectives:     req.ExtraDirectives,
		NotifyKey:           req.NotifyKey,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.subjects.Create(r.Context(), subject); err != nil {
		slog.Error("create subject failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, subject)
}

func (s *Server) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	subject, err := s.subjects.Get(r.Context(), types.SubjectID(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusNotFound, "subject not found")
		return
	}
	writeJSON(w, http.StatusOK, subject)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := types.SubjectID(r.PathValue("id"))
	subject, err := s.subjects.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "subject not found")
		return
	}

	kind := types.PipelinePrimary
	if subject.ScenarioType != "debate" {
		kind = types.PipelineGeneric
	}
	record, err := s.progress.Get(r.Context(), id, kind)
	if err != nil {
		slog.Error("get progress failed", "subject_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handlePrep(w http.ResponseWriter, r *http.Request) {
	id := types.SubjectID(r.PathValue("id"))
	subject, err := s.subjects.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "subject not found")
		return
	}

	if err := s.runner.Trigger(r.Context(), subject); err != nil {
		if errors.Is(err, prep.ErrRunInProgress) {
			writeError(w, http.StatusConflict, "prep run already in progress")
			return
		}
		slog.Error("trigger prep failed", "subject_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// createSessionRequest is the JSON body for POST /api/sessions.
type createSessionRequest struct {
	SubjectID string `json:"subject_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	subject, err := s.subjects.Get(r.Context(), types.SubjectID(req.SubjectID))
	if err != nil {
		writeError(w, http.StatusNotFound, "subject not found")
		return
	}

	now := time.Now()
	session := &types.Session{
		ID:           types.NewSessionID(),
		SubjectID:    subject.ID,
		UserID:       subject.UserID,
		ScenarioType: subject.ScenarioType,
		StartedAt:    &now,
		CreatedAt:    now,
	}
	if err := s.sessions.Create(r.Context(), session); err != nil {
		slog.Error("create session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// sessionResponse bundles the session record with its transcript.
type sessionResponse struct {
	*types.Session
	Exchanges []*types.Exchange `json:"exchanges"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := types.SessionID(r.PathValue("id"))
	session, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	exchanges, err := s.sessions.Exchanges(r.Context(), id)
	if err != nil {
		slog.Error("load exchanges failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if exchanges == nil {
		exchanges = []*types.Exchange{}
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session, Exchanges: exchanges})
}

// clientDurationRequest is the JSON body for POST /api/sessions/{id}/duration.
type clientDurationRequest struct {
	Seconds int `json:"seconds"`
}

// handleClientDuration stores the client-measured call duration. It beats
// the platform's figure when the end-of-call report arrives later.
func (s *Server) handleClientDuration(w http.ResponseWriter, r *http.Request) {
	var req clientDurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Seconds <= 0 {
		writeError(w, http.StatusBadRequest, "seconds must be a positive integer")
		return
	}

	id := types.SessionID(r.PathValue("id"))
	err := s.sessions.Update(r.Context(), id, func(sess *types.Session) error {
		sess.ClientDurationSec = req.Seconds
		return nil
	})
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}
