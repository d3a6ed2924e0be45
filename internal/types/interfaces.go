// internal/types/interfaces.go
package types

import "context"

type SubjectStore interface {
	Create(ctx context.Context, subject *Subject) error
	Get(ctx context.Context, id SubjectID) (*Subject, error)
	List(ctx context.Context) ([]*Subject, error)
	// Patch applies a read-modify-write mutation to the subject. Writers
	// race last-write-wins; there is no version check.
	Patch(ctx context.Context, id SubjectID, apply func(*Subject) error) error
}

type ResearchStore interface {
	AppendBatch(ctx context.Context, batch *ResearchBatch) error
	Latest(ctx context.Context, subjectID SubjectID) (*ResearchBatch, error)
	List(ctx context.Context, subjectID SubjectID) ([]*ResearchBatch, error)
}

type ProgressStore interface {
	Set(ctx context.Context, record *ProgressRecord) error
	Get(ctx context.Context, subjectID SubjectID, kind PipelineKind) (*ProgressRecord, error)
}

type CostStore interface {
	Append(ctx context.Context, record *CostRecord) error
	List(ctx context.Context, userID string) ([]*CostRecord, error)
}

type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id SessionID) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	AppendExchange(ctx context.Context, id SessionID, exchange *Exchange) error
	Exchanges(ctx context.Context, id SessionID) ([]*Exchange, error)
	// Update applies a read-modify-write mutation to the session record.
	Update(ctx context.Context, id SessionID, apply func(*Session) error) error
}

type QuotaStore interface {
	Grant(ctx context.Context, userID string, seconds int) error
	Consume(ctx context.Context, userID string, seconds int) error
	Balance(ctx context.Context, userID string) (int, error)
}
