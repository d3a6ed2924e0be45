// internal/state/research.go
package state

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/sparring/internal/types"
)

// ResearchStore is a JSONL-backed append-only store for research batches.
// Batches are stored per-subject in subjects/<subjectID>/research.jsonl.
type ResearchStore struct {
	root  string
	mu    sync.Mutex
	locks map[types.SubjectID]*sync.Mutex
}

// NewResearchStore creates a file-backed ResearchStore rooted at the given directory.
func NewResearchStore(root string) *ResearchStore {
	return &ResearchStore{
		root:  root,
		locks: make(map[types.SubjectID]*sync.Mutex),
	}
}

func (r *ResearchStore) getLock(subjectID types.SubjectID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lock, ok := r.locks[subjectID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	r.locks[subjectID] = lock
	return lock
}

func (r *ResearchStore) batchesPath(subjectID types.SubjectID) string {
	return filepath.Join(r.root, "subjects", string(subjectID), "research.jsonl")
}

// AppendBatch adds one immutable research batch to the subject's log.
func (r *ResearchStore) AppendBatch(_ context.Context, batch *types.ResearchBatch) error {
	lock := r.getLock(batch.SubjectID)
	lock.Lock()
	defer lock.Unlock()

	if batch.ID == "" {
		batch.ID = types.NewBatchID()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}

	return appendLine(r.batchesPath(batch.SubjectID), batch)
}

// List returns all research batches for the subject in append order.
func (r *ResearchStore) List(_ context.Context, subjectID types.SubjectID) ([]*types.ResearchBatch, error) {
	lock := r.getLock(subjectID)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(r.batchesPath(subjectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open research file: %w", err)
	}
	defer f.Close()

	var batches []*types.ResearchBatch
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var batch types.ResearchBatch
		if err := json.Unmarshal(scanner.Bytes(), &batch); err != nil {
			return nil, fmt.Errorf("unmarshal research batch: %w", err)
		}
		batches = append(batches, &batch)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan research file: %w", err)
	}
	return batches, nil
}

// Latest returns the most recently appended batch, or nil when none exist.
func (r *ResearchStore) Latest(ctx context.Context, subjectID types.SubjectID) (*types.ResearchBatch, error) {
	batches, err := r.List(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return batches[len(batches)-1], nil
}
