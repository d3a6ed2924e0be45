// internal/state/cost.go
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

// CostStore is a JSONL-backed append-only cost ledger at costs.jsonl.
// Records are never updated or deleted.
type CostStore struct {
	path string
	mu   sync.Mutex
}

// NewCostStore creates a file-backed CostStore rooted at the given directory.
func NewCostStore(root string) *CostStore {
	return &CostStore{path: filepath.Join(root, "costs.jsonl")}
}

// Append adds one cost record to the ledger.
func (c *CostStore) Append(_ context.Context, record *types.CostRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if record.ID == "" {
		record.ID = types.NewCostID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	return appendLine(c.path, record)
}

// List returns all records for the given user, in append order. An empty
// userID returns every record.
func (c *CostStore) List(_ context.Context, userID string) ([]*types.CostRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open costs file: %w", err)
	}
	defer f.Close()

	var records []*types.CostRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec types.CostRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal cost record: %w", err)
		}
		if userID != "" && rec.UserID != userID {
			continue
		}
		records = append(records, &rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan costs file: %w", err)
	}
	return records, nil
}
