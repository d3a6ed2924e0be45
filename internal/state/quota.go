// internal/state/quota.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// QuotaStore tracks per-user practice-time balances in seconds, stored as a
// single JSON map at quota.json. Consuming past zero clamps at zero rather
// than failing, so an overrun call is still recorded against the user.
type QuotaStore struct {
	path string
	mu   sync.Mutex
}

// NewQuotaStore creates a file-backed QuotaStore rooted at the given directory.
func NewQuotaStore(root string) *QuotaStore {
	return &QuotaStore{path: filepath.Join(root, "quota.json")}
}

func (q *QuotaStore) load() (map[string]int, error) {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]int), nil
		}
		return nil, fmt.Errorf("read quota file: %w", err)
	}

	var balances map[string]int
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, fmt.Errorf("unmarshal quota: %w", err)
	}
	return balances, nil
}

// Grant adds seconds to the user's balance.
func (q *QuotaStore) Grant(_ context.Context, userID string, seconds int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	balances, err := q.load()
	if err != nil {
		return err
	}
	balances[userID] += seconds
	return writeAtomic(q.path, balances)
}

// Consume deducts seconds from the user's balance, clamping at zero.
func (q *QuotaStore) Consume(_ context.Context, userID string, seconds int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	balances, err := q.load()
	if err != nil {
		return err
	}
	balances[userID] -= seconds
	if balances[userID] < 0 {
		balances[userID] = 0
	}
	return writeAtomic(q.path, balances)
}

// Balance returns the user's remaining seconds.
func (q *QuotaStore) Balance(_ context.Context, userID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	balances, err := q.load()
	if err != nil {
		return 0, err
	}
	return balances[userID], nil
}
