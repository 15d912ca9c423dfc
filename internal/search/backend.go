// Package search implements the Search Dispatcher (spec.md §4.5): routing
// a domain's filters to its SearchBackend, with progressive relaxation when
// too few candidates come back.
package search

import (
	"context"

	"convorec/internal/domain"
	"convorec/internal/session"
)

// SoftPreferences is the ranking-only signal passed to a backend, mirrored
// from session.SoftPreferences without the core's internal map types.
type SoftPreferences struct {
	Liked    []string
	Disliked []string
	Notes    string
}

// Result is what a SearchBackend returns for one query.
type Result struct {
	Candidates []session.ProductSummary
	Provenance string
}

// Backend is the collaborator contract consumed by the dispatcher
// (spec.md §6.4). Implementations are expected to be internally
// thread-safe; the core treats returned candidates as already ranked.
type Backend interface {
	Search(ctx context.Context, filters map[string]session.FilterValue, soft SoftPreferences, limit int) (Result, error)
}

// Registry binds a domain to its backend, the other half of the single
// extension point described in internal/domain (spec.md §4.1).
type Registry map[domain.Domain]Backend
