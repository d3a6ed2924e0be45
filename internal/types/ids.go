// internal/types/ids.go
package types

import "github.com/google/uuid"

type SubjectID string
type SessionID string
type BatchID string
type CostID string

func NewSubjectID() SubjectID {
	return SubjectID(uuid.New().String())
}

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func NewBatchID() BatchID {
	return BatchID(uuid.New().String())
}

func NewCostID() CostID {
	return CostID(uuid.New().String())
}

// NewItemID returns a unique id for an individual prep artifact item.
// Item ids are stable across edits and unique within their collection.
func NewItemID() string {
	return uuid.New().String()
}
