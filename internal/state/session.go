// internal/state/session.go
package state

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/sparring/internal/types"
)

// SessionStore is a file-backed session store. Each session lives at
// sessions/<sessionID>.json with its transcript appended to
// sessions/<sessionID>/exchanges.jsonl.
type SessionStore struct {
	root string
	mu   sync.RWMutex
}

// NewSessionStore creates a file-backed SessionStore rooted at the given directory.
func NewSessionStore(root string) *SessionStore {
	return &SessionStore{root: root}
}

func (s *SessionStore) sessionsDir() string {
	return filepath.Join(s.root, "sessions")
}

func (s *SessionStore) sessionPath(id types.SessionID) string {
	return filepath.Join(s.sessionsDir(), string(id)+".json")
}

func (s *SessionStore) exchangesPath(id types.SessionID) string {
	return filepath.Join(s.sessionsDir(), string(id), "exchanges.jsonl")
}

func (s *SessionStore) read(id types.SessionID) (*types.Session, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session not found: %s", id)
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var session types.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Create persists a new session.
func (s *SessionStore) Create(_ context.Context, session *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		session.ID = types.NewSessionID()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	return writeAtomic(s.sessionPath(session.ID), session)
}

// Get returns the session with the given id.
func (s *SessionStore) Get(_ context.Context, id types.SessionID) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

// List returns all sessions sorted by creation time, newest first.
func (s *SessionStore) List(_ context.Context) ([]*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*types.Session{}, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	sessions := make([]*types.Session, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := types.SessionID(strings.TrimSuffix(entry.Name(), ".json"))
		session, err := s.read(id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// AppendExchange adds one transcript turn. Exchanges are immutable once written.
func (s *SessionStore) AppendExchange(_ context.Context, id types.SessionID, exchange *types.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.read(id); err != nil {
		return err
	}
	if exchange.At.IsZero() {
		exchange.At = time.Now()
	}
	return appendLine(s.exchangesPath(id), exchange)
}

// Exchanges returns the session transcript in append order.
func (s *SessionStore) Exchanges(_ context.Context, id types.SessionID) ([]*types.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.exchangesPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open exchanges file: %w", err)
	}
	defer f.Close()

	var exchanges []*types.Exchange
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var exchange types.Exchange
		if err := json.Unmarshal(scanner.Bytes(), &exchange); err != nil {
			return nil, fmt.Errorf("unmarshal exchange: %w", err)
		}
		exchanges = append(exchanges, &exchange)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan exchanges file: %w", err)
	}
	return exchanges, nil
}

// Update applies a read-modify-write mutation to the session record.
func (s *SessionStore) Update(_ context.Context, id types.SessionID, apply func(*types.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.read(id)
	if err != nil {
		return err
	}
	if err := apply(session); err != nil {
		return err
	}
	return writeAtomic(s.sessionPath(id), session)
}
