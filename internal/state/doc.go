// Package state provides filesystem-backed storage implementations.
package state

import "github.com/user/sparring/internal/types"

// Compile-time interface compliance checks.
var _ types.SubjectStore = (*SubjectStore)(nil)
var _ types.ResearchStore = (*ResearchStore)(nil)
var _ types.ProgressStore = (*ProgressStore)(nil)
var _ types.CostStore = (*CostStore)(nil)
var _ types.SessionStore = (*SessionStore)(nil)
var _ types.QuotaStore = (*QuotaStore)(nil)
