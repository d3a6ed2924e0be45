// Package webhook exposes the HTTP surface: the voice-platform callback and
// the JSON API the client polls.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/sparring/internal/prep"
	"github.com/user/sparring/internal/types"
)

const (
	// fallbackDurationSec is the last-resort call duration estimate when
	// neither the client, the platform, nor the timestamps provide one.
	fallbackDurationSec = 60

	// analysisDelay gives the platform time to deliver trailing transcript
	// events before analysis reads the exchange log.
	analysisDelay = 10 * time.Second
)

// SessionAnalyzer runs post-session analysis. *analysis.Analyzer satisfies it.
type SessionAnalyzer interface {
	Run(ctx context.Context, sessionID types.SessionID) error
}

// Server is the HTTP handler for the daemon.
type Server struct {
	subjects types.SubjectStore
	sessions types.SessionStore
	progress types.ProgressStore
	costs    types.CostStore
	quota    types.QuotaStore
	runner   *prep.Runner
	analyzer SessionAnalyzer

	// centsPerMinute prices live call time for the debate cost entries.
	centsPerMinute int

	// after schedules deferred work; tests replace it to run inline.
	after func(d time.Duration, f func())

	mux *http.ServeMux
}

// NewServer wires the HTTP surface.
func NewServer(
	subjects types.SubjectStore,
	sessions types.SessionStore,
	progress types.ProgressStore,
	costs types.CostStore,
	quota types.QuotaStore,
	runner *prep.Runner,
	analyzer SessionAnalyzer,
	centsPerMinute int,
) *Server {
	s := &Server{
		subjects:       subjects,
		sessions:       sessions,
		progress:       progress,
		costs:          costs,
		quota:          quota,
		runner:         runner,
		analyzer:       analyzer,
		centsPerMinute: centsPerMinute,
		after:          func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		mux:            http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /vapi-webhook", s.handleVapi)
	s.mux.HandleFunc("GET /api/subjects", s.handleListSubjects)
	s.mux.HandleFunc("POST /api/subjects", s.handleCreateSubject)
	s.mux.HandleFunc("GET /api/subjects/{id}", s.handleGetSubject)
	s.mux.HandleFunc("GET /api/subjects/{id}/progress", s.handleProgress)
	s.mux.HandleFunc("POST /api/subjects/{id}/prep", s.handlePrep)
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/duration", s.handleClientDuration)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// vapiEnvelope is the voice platform's callback payload. Only the fields the
// handler reads are declared.
type vapiEnvelope struct {
	Message vapiMessage `json:"message"`
}

type vapiMessage struct {
	Type            string  `json:"type"`
	Role            string  `json:"role"`
	Transcript      string  `json:"transcript"`
	TranscriptType  string  `json:"transcriptType"`
	DurationSeconds float64 `json:"durationSeconds"`
	StartedAt       string  `json:"startedAt"`
	EndedAt         string  `json:"endedAt"`
	RecordingURL    string  `json:"recordingUrl"`
	Call            struct {
		Metadata map[string]any `json:"metadata"`
	} `json:"call"`
}

// handleVapi always answers 200. The platform retries non-2xx responses, and
// a retried webhook cannot fix an internal failure, so everything inside is
// caught and logged.
func (s *Server) handleVapi(w http.ResponseWriter, r *http.Request) {
	defer func() {
		w.WriteHeader(http.StatusOK)
	}()

	var payload vapiEnvelope
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("vapi webhook: undecodable payload", "error", err)
		return
	}

	sessionID := s.resolveSession(r, &payload)
	if sessionID == "" {
		slog.Warn("vapi webhook: no session id in payload", "type", payload.Message.Type)
		return
	}

	switch payload.Message.Type {
	case "transcript":
		s.handleTranscript(r.Context(), sessionID, &payload.Message)
	case "end-of-call-report":
		s.handleEndOfCall(r.Context(), sessionID, &payload.Message)
	default:
		slog.Debug("vapi webhook: ignoring message type", "type", payload.Message.Type)
	}
}

// resolveSession reads the session id from call metadata, falling back to
// the ?debateId= query parameter older clients send.
func (s *Server) resolveSession(r *http.Request, payload *vapiEnvelope) types.SessionID {
	if raw, ok := payload.Message.Call.Metadata["debateId"]; ok {
		if id, ok := raw.(string); ok && id != "" {
			return types.SessionID(id)
		}
	}
	return types.SessionID(r.URL.Query().Get("debateId"))
}

func (s *Server) handleTranscript(ctx context.Context, sessionID types.SessionID, msg *vapiMessage) {
	// Partial transcripts are repeated and superseded; only finals are kept.
	if msg.TranscriptType != "final" || msg.Transcript == "" {
		return
	}
	speaker := "assistant"
	if msg.Role == "user" {
		speaker = "user"
	}
	err := s.sessions.AppendExchange(ctx, sessionID, &types.Exchange{
		Speaker: speaker,
		Text:    msg.Transcript,
		At:      time.Now(),
	})
	if err != nil {
		slog.Error("vapi webhook: append exchange failed", "session_id", sessionID, "error", err)
	}
}

func (s *Server) handleEndOfCall(ctx context.Context, sessionID types.SessionID, msg *vapiMessage) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		slog.Error("vapi webhook: session not found", "session_id", sessionID, "error", err)
		return
	}
	if session.Finalized {
		slog.Info("vapi webhook: session already finalized", "session_id", sessionID)
		return
	}

	duration := resolveDuration(session, msg)
	err = s.sessions.Update(ctx, sessionID, func(sess *types.Session) error {
		if sess.Finalized {
			return nil
		}
		sess.DurationSec = duration
		sess.Finalized = true
		return nil
	})
	if err != nil {
		slog.Error("vapi webhook: finalize failed", "session_id", sessionID, "error", err)
		return
	}

	s.recordCallCost(ctx, session, duration)
	if err := s.quota.Consume(ctx, session.UserID, duration); err != nil {
		slog.Error("vapi webhook: quota consume failed", "user_id", session.UserID, "error", err)
	}

	if msg.RecordingURL != "" {
		recordingURL := msg.RecordingURL
		s.after(analysisDelay, func() {
			err := s.sessions.Update(context.Background(), sessionID, func(sess *types.Session) error {
				sess.RecordingURL = recordingURL
				return nil
			})
			if err != nil {
				slog.Error("recording store failed", "session_id", sessionID, "error", err)
			}
		})
	}

	s.after(analysisDelay, func() {
		if err := s.analyzer.Run(context.Background(), sessionID); err != nil {
			slog.Error("post-call analysis failed", "session_id", sessionID, "error", err)
		}
	})
}

// resolveDuration picks the call duration from the most trusted source
// available: the client's own stored duration, then the platform's report,
// then the report timestamps, then a flat estimate.
func resolveDuration(session *types.Session, msg *vapiMessage) int {
	if session.ClientDurationSec > 0 {
		return session.ClientDurationSec
	}
	if msg.DurationSeconds > 0 {
		return int(msg.DurationSeconds + 0.5)
	}
	started, err1 := time.Parse(time.RFC3339, msg.StartedAt)
	ended, err2 := time.Parse(time.RFC3339, msg.EndedAt)
	if err1 == nil && err2 == nil && ended.After(started) {
		return int(ended.Sub(started).Seconds() + 0.5)
	}
	return fallbackDurationSec
}

func (s *Server) recordCallCost(ctx context.Context, session *types.Session, durationSec int) {
	cents := (durationSec*s.centsPerMinute + 59) / 60
	err := s.costs.Append(ctx, &types.CostRecord{
		Service:   "vapi",
		CostCents: cents,
		Phase:     types.PhaseDebate,
		UserID:    session.UserID,
		SubjectID: session.SubjectID,
		SessionID: session.ID,
		Details:   fmt.Sprintf("duration_sec=%d", durationSec),
	})
	if err != nil {
		slog.Error("vapi webhook: cost record failed", "session_id", session.ID, "error", err)
	}
}
