package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mikeboe/evidence-helper/pkg/database"
	"github.com/mikeboe/evidence-helper/pkg/research"
)

// SessionStore persists sessions, their event logs and their server logs.
// *database.PostgresDB implements it.
type SessionStore interface {
	LogWriter
	CreateSession(ctx context.Context, id uuid.UUID, query string) error
	FinishSession(ctx context.Context, id uuid.UUID, status, errMsg string) error
	GetSession(ctx context.Context, id uuid.UUID) (*database.Session, error)
	ListSessions(ctx context.Context, limit int) ([]database.Session, error)
	AppendEvents(ctx context.Context, id uuid.UUID, firstSeq int, events []json.RawMessage) error
	ListEvents(ctx context.Context, id uuid.UUID) ([]json.RawMessage, error)
	ListLogs(ctx context.Context, id uuid.UUID) ([]database.LogEntry, error)
}

var _ SessionStore = (*database.PostgresDB)(nil)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

type Service struct {
	Engine *research.Engine
	// Store is optional. Without it sessions are streamed but not recorded.
	Store  SessionStore
	Logger *slog.Logger
}

func NewService(engine *research.Engine, store SessionStore) *Service {
	s := &Service{
		Engine: engine,
		Store:  store,
		Logger: slog.Default(),
	}
	if store != nil {
		engine.SessionLogger = s.sessionLogger
	}
	return s
}

// Research runs one session and hands every event to send. A send error
// (usually a disconnected client) ends the session. When a store is configured
// the session, its events and its final status are recorded.
func (s *Service) Research(ctx context.Context, req research.Request, send func(research.Event) error) {
	id := uuid.New()
	req.SessionID = id.String()

	persist := s.Store != nil
	if persist {
		if err := s.Store.CreateSession(ctx, id, req.Query); err != nil {
			s.Logger.Error("Failed to record session", "session", id, "error", err)
			persist = false
		}
	}

	var recorded []json.RawMessage
	status, errMsg := StatusCancelled, ""
	for ev := range s.Engine.Run(ctx, req) {
		switch ev.Type {
		case research.EventDone:
			status = StatusCompleted
		case research.EventError:
			status, errMsg = StatusFailed, ev.Error
		}
		if persist {
			if raw, err := json.Marshal(ev); err == nil {
				recorded = append(recorded, raw)
			}
		}
		if err := send(ev); err != nil {
			s.Logger.Info("Client went away", "session", id, "error", err)
			break
		}
	}

	if !persist {
		return
	}
	bg := context.WithoutCancel(ctx)
	if err := s.Store.AppendEvents(bg, id, 0, recorded); err != nil {
		s.Logger.Error("Failed to save session events", "session", id, "error", err)
	}
	if err := s.Store.FinishSession(bg, id, status, errMsg); err != nil {
		s.Logger.Error("Failed to update session status", "session", id, "error", err)
	}
}

// Replay rebuilds the transcript of a recorded session.
func (s *Service) Replay(ctx context.Context, id uuid.UUID) ([]research.Event, research.Transcript, error) {
	raws, err := s.Store.ListEvents(ctx, id)
	if err != nil {
		return nil, research.Transcript{}, err
	}
	events := make([]research.Event, 0, len(raws))
	for _, raw := range raws {
		var ev research.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			s.Logger.Warn("Skipping unreadable event", "session", id, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, research.Reduce(events), nil
}

// sessionLogger logs to the console and to the session's log table.
func (s *Service) sessionLogger(sessionID string) *slog.Logger {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return s.Logger
	}
	return slog.New(NewTeeHandler(s.Logger.Handler(), NewDBLogHandler(s.Store, id)))
}
