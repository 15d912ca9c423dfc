package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"convorec/internal/domain"
	"convorec/internal/session"
)

// Outcome is the dispatcher's result: the final candidate list plus a
// trace of which filters were applied and which were relaxed away to meet
// the result-count threshold (spec.md §4.5 step 4).
type Outcome struct {
	Candidates     []session.ProductSummary
	Provenance     string
	AppliedFilters map[string]session.FilterValue
	Relaxed        []string
}

// Dispatcher routes a domain's search to its registered Backend and
// applies progressive filter relaxation: LOW-priority filters are dropped
// first, one at a time, then MEDIUM; HIGH filters are never relaxed.
type Dispatcher struct {
	registry   *domain.Registry
	backends   Registry
	minResults int
	sems       map[domain.Domain]*semaphore.Weighted
}

// NewDispatcher builds a Dispatcher. concurrency bounds the number of
// in-flight searches per backend (spec.md §5 Backpressure).
func NewDispatcher(registry *domain.Registry, backends Registry, minResults int, concurrency int64) *Dispatcher {
	sems := make(map[domain.Domain]*semaphore.Weighted, len(backends))
	for d := range backends {
		sems[d] = semaphore.NewWeighted(concurrency)
	}
	return &Dispatcher{registry: registry, backends: backends, minResults: minResults, sems: sems}
}

// Dispatch runs the search with progressive relaxation.
func (d *Dispatcher) Dispatch(ctx context.Context, dom domain.Domain, filters map[string]session.FilterValue, soft SoftPreferences) (Outcome, error) {
	backend, ok := d.backends[dom]
	if !ok {
		return Outcome{}, fmt.Errorf("no search backend registered for domain %s", dom)
	}

	sem := d.sems[dom]
	if sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			return Outcome{}, err
		}
		defer sem.Release(1)
	}

	current := cloneFilters(filters)
	relaxable := d.relaxationOrder(dom, filters)

	result, err := backend.Search(ctx, current, soft, 0)
	if err != nil {
		return Outcome{}, err
	}

	var relaxed []string
	for len(result.Candidates) < d.minResults && len(relaxable) > 0 {
		nextKey := relaxable[0]
		relaxable = relaxable[1:]

		prevCount := len(result.Candidates)
		delete(current, nextKey)

		next, err := backend.Search(ctx, current, soft, 0)
		if err != nil {
			return Outcome{}, err
		}
		relaxed = append(relaxed, nextKey)

		if len(next.Candidates) <= prevCount {
			// This relaxation step didn't help; note it and stop
			// (spec.md §4.5 step 3).
			result = next
			break
		}
		result = next
	}

	return Outcome{
		Candidates:     result.Candidates,
		Provenance:     result.Provenance,
		AppliedFilters: current,
		Relaxed:        relaxed,
	}, nil
}

// relaxationOrder returns the keys present in filters, in the order they
// should be dropped: all LOW-priority slots first (declaration order),
// then MEDIUM. HIGH-priority slots are never included.
func (d *Dispatcher) relaxationOrder(dom domain.Domain, filters map[string]session.FilterValue) []string {
	var low, medium []string
	for _, slot := range d.registry.Slots(dom) {
		if _, present := filters[slot.Key()]; !present {
			continue
		}
		switch slot.Priority() {
		case domain.LOW:
			low = append(low, slot.Key())
		case domain.MEDIUM:
			medium = append(medium, slot.Key())
		}
	}
	return append(low, medium...)
}

func cloneFilters(filters map[string]session.FilterValue) map[string]session.FilterValue {
	out := make(map[string]session.FilterValue, len(filters))
	for k, v := range filters {
		out[k] = v
	}
	return out
}
