// internal/state/subject.go
package state

import (
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

// SubjectStore is a JSON-file-backed subject store. Each subject lives at
// subjects/<subjectID>.json; per-subject data (research batches) lives under
// subjects/<subjectID>/.
type SubjectStore struct {
	root string
	mu   sync.RWMutex
}

// NewSubjectStore creates a file-backed SubjectStore rooted at the given directory.
func NewSubjectStore(root string) *SubjectStore {
	return &SubjectStore{root: root}
}

func (s *SubjectStore) subjectsDir() string {
	return filepath.Join(s.root, "subjects")
}

func (s *SubjectStore) subjectPath(id types.SubjectID) string {
	return filepath.Join(s.subjectsDir(), string(id)+".json")
}

func (s *SubjectStore) read(id types.SubjectID) (*types.Subject, error) {
	data, err := os.ReadFile(s.subjectPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("subject not found: %s", id)
		}
		return nil, fmt.Errorf("read subject: %w", err)
	}

	var subject types.Subject
	if err := json.Unmarshal(data, &subject); err != nil {
		return nil, fmt.Errorf("unmarshal subject: %w", err)
	}
	return &subject, nil
}

// Create persists a new subject. Returns an error if the id already exists.
func (s *SubjectStore) Create(_ context.Context, subject *types.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.subjectPath(subject.ID)); err == nil {
		return fmt.Errorf("subject already exists: %s", subject.ID)
	}

	now := time.Now()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	return writeAtomic(s.subjectPath(subject.ID), subject)
}

// Get returns the subject with the given id.
func (s *SubjectStore) Get(_ context.Context, id types.SubjectID) (*types.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

// List returns all subjects sorted by creation time, newest first.
func (s *SubjectStore) List(_ context.Context) ([]*types.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.subjectsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*types.Subject{}, nil
		}
		return nil, fmt.Errorf("read subjects dir: %w", err)
	}

	subjects := make([]*types.Subject, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := types.SubjectID(strings.TrimSuffix(entry.Name(), ".json"))
		subject, err := s.read(id)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}

	sort.Slice(subjects, func(i, j int) bool {
		return subjects[i].CreatedAt.After(subjects[j].CreatedAt)
	})
	return subjects, nil
}

// Patch applies a read-modify-write mutation and persists the result with a
// refreshed UpdatedAt. Last writer wins across concurrent patchers.
func (s *SubjectStore) Patch(_ context.Context, id types.SubjectID, apply func(*types.Subject) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subject, err := s.read(id)
	if err != nil {
		return err
	}

	if err := apply(subject); err != nil {
		return err
	}
	subject.UpdatedAt = time.Now()

	return writeAtomic(s.subjectPath(id), subject)
}
