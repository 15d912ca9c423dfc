package pipeline

import (
	"context"
	"testing"
	"time"

	"convorec/internal/diversify"
	"convorec/internal/domain"
	"convorec/internal/search"
	"convorec/internal/session"
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

func newTestPipeline() *Pipeline {
	registry := domain.NewRegistry()
	backends := search.Registry{domain.Laptops: stubBackend{candidates: laptopCandidates()}}
	dispatcher := search.NewDispatcher(registry, backends, 9, 8)
	return New(nil, "", registry, dispatcher, diversify.New())
}

func TestRun_AsksQuestionWhenDomainUnknown(t *testing.T) {
	p := newTestPipeline()
	s := session.New("s1", 3, time.Unix(0, 0))

	result, err := p.Run(context.Background(), s, "I need something")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ResponseType != ResponseMessage {
		t.Fatalf("expected message response for unknown domain, got %s", result.ResponseType)
	}
}

func TestRun_ImpatientPhraseTriggersSearch(t *testing.T) {
	p := newTestPipeline()
	s := session.New("s1", 3, time.Unix(0, 0))
	s.ActiveDomain = domain.Laptops
	s.Filters["budget"] = session.IntValue(150000)

	result, err := p.Run(context.Background(), s, "just show me options")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ResponseType != ResponseRecommendations {
		t.Fatalf("expected recommendations from impatience phrase, got %s", result.ResponseType)
	}
	if s.Stage != session.StageRecommendations {
		t.Fatalf("expected stage transition to RECOMMENDATIONS")
	}
}

func TestRun_KLimitZeroGoesStraightToSearch(t *testing.T) {
	p := newTestPipeline()
	s := session.New("s1", 0, time.Unix(0, 0))
	s.ActiveDomain = domain.Laptops

	result, err := p.Run(context.Background(), s, "anything")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ResponseType != ResponseRecommendations {
		t.Fatalf("expected immediate recommendations with k_limit=0, got %s", result.ResponseType)
	}
}

func TestRun_AsksForRequiredSlotWhenMissing(t *testing.T) {
	p := newTestPipeline()
	s := session.New("s1", 3, time.Unix(0, 0))
	s.ActiveDomain = domain.Laptops

	result, err := p.Run(context.Background(), s, "I want a laptop for gaming")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ResponseType != ResponseQuestion {
		t.Fatalf("expected a follow-up question, got %s", result.ResponseType)
	}
	if s.QuestionCount != 1 {
		t.Fatalf("expected question_count=1, got %d", s.QuestionCount)
	}
}

func TestAllRequiredSlotsFilled(t *testing.T) {
	registry := domain.NewRegistry()
	s := session.New("s1", 3, time.Unix(0, 0))
	s.ActiveDomain = domain.Laptops

	if allRequiredSlotsFilled(registry, s) {
		t.Fatalf("expected false with no filters set")
	}
	s.Filters["budget"] = session.IntValue(100000)
	s.Filters["use_case"] = session.StringValue("gaming")
	if !allRequiredSlotsFilled(registry, s) {
		t.Fatalf("expected true once budget and use_case are set")
	}
}
