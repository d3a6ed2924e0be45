// internal/state/progress.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/sparring/internal/types"
)

// ProgressStore is a JSON-file-backed store for pipeline progress records,
// keyed by subject id + pipeline kind. All records live in progress.json.
type ProgressStore struct {
	path string
	mu   sync.RWMutex
}

// NewProgressStore creates a file-backed ProgressStore rooted at the given directory.
func NewProgressStore(root string) *ProgressStore {
	return &ProgressStore{path: filepath.Join(root, "progress.json")}
}

func progressKey(subjectID types.SubjectID, kind types.PipelineKind) string {
	return string(subjectID) + ":" + string(kind)
}

func (p *ProgressStore) load() (map[string]*types.ProgressRecord, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*types.ProgressRecord), nil
		}
		return nil, fmt.Errorf("read progress file: %w", err)
	}

	var records []*types.ProgressRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal progress records: %w", err)
	}

	index := make(map[string]*types.ProgressRecord, len(records))
	for _, rec := range records {
		index[progressKey(rec.SubjectID, rec.Kind)] = rec
	}
	return index, nil
}

func (p *ProgressStore) save(index map[string]*types.ProgressRecord) error {
	records := make([]*types.ProgressRecord, 0, len(index))
	for _, rec := range index {
		records = append(records, rec)
	}
	return writeAtomic(p.path, records)
}

// Set replaces the record for the subject+kind pair.
func (p *ProgressStore) Set(_ context.Context, record *types.ProgressRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	index, err := p.load()
	if err != nil {
		return err
	}

	record.UpdatedAt = time.Now()
	index[progressKey(record.SubjectID, record.Kind)] = record
	return p.save(index)
}

// Get returns the record for the subject+kind pair, or an idle record when
// no pipeline has run yet.
func (p *ProgressStore) Get(_ context.Context, subjectID types.SubjectID, kind types.PipelineKind) (*types.ProgressRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	index, err := p.load()
	if err != nil {
		return nil, err
	}

	if rec, ok := index[progressKey(subjectID, kind)]; ok {
		return rec, nil
	}
	return &types.ProgressRecord{
		SubjectID: subjectID,
		Kind:      kind,
		Status:    types.StageIdle,
	}, nil
}
