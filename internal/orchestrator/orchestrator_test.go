package orchestrator

import (
	"context"
	"testing"
	"time"

	"convorec/internal/diversify"
	"convorec/internal/domain"
	"convorec/internal/pipeline"
	"convorec/internal/refine"
	"convorec/internal/search"
	"convorec/internal/session"
	"convorec/internal/validate"
)

type stubBackend struct {
	candidates []session.ProductSummary
}

func (b stubBackend) Search(ctx context.Context, filters map[string]session.FilterValue, soft search.SoftPreferences, limit int) (search.Result, error) {
	var out []session.ProductSummary
	for _, c := range b.candidates {
		if budget, ok := filters["budget"]; ok {
			if n, isNum := budget.Int(); isNum && c.PriceMinor > n {
				continue
			}
		}
		out = append(out, c)
	}
	return search.Result{Candidates: out, Provenance: "stub"}, nil
}

func laptopCandidates() []session.ProductSummary {
	var out []session.ProductSummary
	brands := []string{"dell", "lenovo", "apple", "asus"}
	for i := 0; i < 12; i++ {
		out = append(out, session.ProductSummary{
			ID:         string(rune('a' + i)),
			Brand:      brands[i%len(brands)],
			PriceMinor: int64(80000 + i*5000),
			Rating:     4.5 - float64(i)*0.02,
			Detail:     map[string]any{"use_case": []string{"gaming", "work", "everyday"}[i%3]},
		})
	}
	return out
}

// laptopDetector answers every structured call with a confident laptops
// domain detection; the other stages cannot decode it and take their
// deterministic fallbacks.
type laptopDetector struct{}

func (laptopDetector) Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	return `{"domain":"laptops","confidence":0.9}`, nil
}

func newTestOrchestrator() *Orchestrator {
	registry := domain.NewRegistry()
	backends := search.Registry{domain.Laptops: stubBackend{candidates: laptopCandidates()}}
	dispatcher := search.NewDispatcher(registry, backends, 9, 8)
	pipe := pipeline.New(nil, "", registry, dispatcher, diversify.New())
	refiner := refine.New(nil, "", registry, nil, nil)
	store := session.NewMemoryStore(0, nil, nil)
	validator := validate.New(nil, "")
	return New(store, validator, pipe, refiner, 2*time.Second, 3)
}

func TestHandleTurn_GreetingReturnsQuickReplies(t *testing.T) {
	o := newTestOrchestrator()
	result, err := o.HandleTurn(context.Background(), "req-1", "sess-1", "hi", nil, nil)
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if result.ResponseType != pipeline.ResponseMessage {
		t.Fatalf("expected message response for greeting, got %s", result.ResponseType)
	}
	if len(result.QuickReplies) == 0 {
		t.Fatalf("expected quick replies offering domains after a greeting")
	}
}

func TestHandleTurn_InvalidMessageDoesNotAdvanceStage(t *testing.T) {
	o := newTestOrchestrator()
	result, err := o.HandleTurn(context.Background(), "req-1", "sess-2", "????", nil, nil)
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if result.ResponseType != pipeline.ResponseMessage {
		t.Fatalf("expected a message response for invalid input, got %s", result.ResponseType)
	}

	s, ok := o.store.Load(context.Background(), "sess-2")
	if !ok {
		t.Fatalf("expected session to be persisted even on an invalid turn")
	}
	if s.Stage != session.StageInterview {
		t.Fatalf("expected stage to remain INTERVIEW, got %s", s.Stage)
	}
}

func TestHandleTurn_SessionPersistsAcrossTurns(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()

	// Without a completer no domain is ever detected, so the pipeline gets
	// one that recognizes laptops.
	registry := domain.NewRegistry()
	backends := search.Registry{domain.Laptops: stubBackend{candidates: laptopCandidates()}}
	o.pipeline = pipeline.New(laptopDetector{}, "test-model", registry, search.NewDispatcher(registry, backends, 9, 8), diversify.New())

	if _, err := o.HandleTurn(ctx, "req-1", "sess-3", "I need a laptop for gaming under $1000", nil, nil); err != nil {
		t.Fatalf("HandleTurn 1: %v", err)
	}

	s, ok := o.store.Load(ctx, "sess-3")
	if !ok {
		t.Fatalf("expected session to exist after first turn")
	}
	if s.ActiveDomain != domain.Laptops {
		t.Fatalf("expected active_domain=laptops to persist across turns, got %s", s.ActiveDomain)
	}
}

func TestHandleTurn_FilterChangeRedispatchesSearch(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()

	s := session.New("sess-4", 3, time.Now())
	s.ActiveDomain = domain.Laptops
	s.Stage = session.StageRecommendations
	s.Filters["budget"] = session.IntValue(150000)
	s.Filters["use_case"] = session.StringValue("gaming")
	s.LastResults = laptopCandidates()
	if err := o.store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// No completer configured, so refine.Classify falls back to chat with
	// zero mutation; the search re-dispatch path is exercised directly via
	// pipeline.RunSearch instead, confirming the orchestrator wiring compiles
	// and behaves for the RECOMMENDATIONS branch.
	result, err := o.HandleTurn(ctx, "req-1", "sess-4", "anything cheaper?", nil, nil)
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if result.ResponseType != pipeline.ResponseMessage {
		t.Fatalf("expected a chat fallback without a completer, got %s", result.ResponseType)
	}

	saved, ok := o.store.Load(ctx, "sess-4")
	if !ok {
		t.Fatalf("expected session to exist")
	}
	redispatched, err := o.pipeline.RunSearch(ctx, saved)
	if err != nil {
		t.Fatalf("RunSearch: %v", err)
	}
	if redispatched.ResponseType != pipeline.ResponseRecommendations {
		t.Fatalf("expected re-dispatched search to return recommendations, got %s", redispatched.ResponseType)
	}
}

func TestHandleTurn_FavoriteActionIsIdempotent(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()

	actions := []UserAction{{Type: "favorite", ProductID: "p1"}}
	if _, err := o.HandleTurn(ctx, "req-1", "sess-5", "hello there", nil, actions); err != nil {
		t.Fatalf("HandleTurn 1: %v", err)
	}
	if _, err := o.HandleTurn(ctx, "req-2", "sess-5", "hello again", nil, actions); err != nil {
		t.Fatalf("HandleTurn 2: %v", err)
	}

	s, ok := o.store.Load(ctx, "sess-5")
	if !ok {
		t.Fatalf("expected session to exist")
	}
	if len(s.Favorites) != 1 {
		t.Fatalf("expected exactly one favorite after repeating the same action, got %d", len(s.Favorites))
	}
	if _, present := s.Favorites["p1"]; !present {
		t.Fatalf("expected favorite p1 to be present")
	}
}

func TestHandleTurn_ConcurrentSessionsDoNotDeadlock(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()

	done := make(chan error, 2)
	go func() {
		_, err := o.HandleTurn(ctx, "req-a", "sess-a", "I need a laptop for work", nil, nil)
		done <- err
	}()
	go func() {
		_, err := o.HandleTurn(ctx, "req-b", "sess-b", "I need a laptop for everyday use", nil, nil)
		done <- err
	}()

	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("concurrent HandleTurn: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for concurrent turns to finish")
		}
	}
}

func TestResearchSummary_EmptyResultsFallsBack(t *testing.T) {
	if got := researchSummary(nil); got == "" {
		t.Fatalf("expected a non-empty fallback summary for no results")
	}
}
