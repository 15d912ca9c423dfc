package refine

import (
	"context"
	"testing"
	"time"

	"convorec/internal/domain"
	"convorec/internal/llmproto"
	"convorec/internal/session"
)

type stubCompleter struct {
	response string
	err      error
}

func (s stubCompleter) Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	return s.response, s.err
}

func newRecommendingSession() *session.SessionState {
	s := session.New("sess-1", 3, time.Unix(0, 0))
	s.ActiveDomain = domain.Laptops
	s.Stage = session.StageRecommendations
	s.Filters["budget"] = session.IntValue(1500)
	s.LastResults = []session.ProductSummary{{ID: "p1"}, {ID: "p2"}}
	return s
}

func TestClassify_FilterChange(t *testing.T) {
	completer := stubCompleter{response: `{"intent":"filter_change","filter_delta":{"budget":"1000"},"target_product_ids":[],"target_domain":"","cart_action":"","chat_message":""}`}
	c := New(completer, "test-model", domain.NewRegistry(), nil, nil)
	s := newRecommendingSession()

	effect := c.Classify(context.Background(), s, "actually under $1000")
	if effect.Intent != llmproto.IntentFilterChange {
		t.Fatalf("expected filter_change, got %s", effect.Intent)
	}
	n, ok := s.Filters["budget"].Int()
	if !ok || n != 1000 {
		t.Fatalf("expected budget filter updated to 1000, got %v", s.Filters["budget"])
	}
}

func TestClassify_DomainSwitch(t *testing.T) {
	completer := stubCompleter{response: `{"intent":"domain_switch","filter_delta":{},"target_product_ids":[],"target_domain":"books","cart_action":"","chat_message":""}`}
	c := New(completer, "test-model", domain.NewRegistry(), nil, nil)
	s := newRecommendingSession()

	effect := c.Classify(context.Background(), s, "actually show me books")
	if effect.Intent != llmproto.IntentDomainSwitch {
		t.Fatalf("expected domain_switch, got %s", effect.Intent)
	}
	if s.ActiveDomain != domain.Books {
		t.Fatalf("expected active domain books, got %s", s.ActiveDomain)
	}
	if s.Stage != session.StageInterview {
		t.Fatalf("expected stage reset to INTERVIEW, got %s", s.Stage)
	}
	if len(s.Filters) != 0 || len(s.LastResults) != 0 {
		t.Fatalf("expected filters and last_results cleared on domain switch")
	}
}

func TestClassify_NewSearch(t *testing.T) {
	completer := stubCompleter{response: `{"intent":"new_search","filter_delta":{},"target_product_ids":[],"target_domain":"","cart_action":"","chat_message":""}`}
	c := New(completer, "test-model", domain.NewRegistry(), nil, nil)
	s := newRecommendingSession()

	effect := c.Classify(context.Background(), s, "actually something completely different")
	if effect.Intent != llmproto.IntentNewSearch {
		t.Fatalf("expected new_search, got %s", effect.Intent)
	}
	if len(s.Filters) != 0 {
		t.Fatalf("expected filters cleared on new_search")
	}
	if s.Stage != session.StageInterview {
		t.Fatalf("expected stage reset to INTERVIEW")
	}
}

func TestClassify_CartFavoriteIdempotent(t *testing.T) {
	completer := stubCompleter{response: `{"intent":"cart","filter_delta":{},"target_product_ids":["p1"],"target_domain":"","cart_action":"favorite","chat_message":""}`}
	c := New(completer, "test-model", domain.NewRegistry(), nil, nil)
	s := newRecommendingSession()

	c.Classify(context.Background(), s, "favorite the first one")
	c.Classify(context.Background(), s, "favorite the first one")

	if len(s.Favorites) != 1 {
		t.Fatalf("expected exactly one favorite after repeated favorite action, got %d", len(s.Favorites))
	}
}

func TestClassify_FallsBackToChatOnCompleterError(t *testing.T) {
	completer := stubCompleter{err: context.DeadlineExceeded}
	c := New(completer, "test-model", domain.NewRegistry(), nil, nil)
	s := newRecommendingSession()

	effect := c.Classify(context.Background(), s, "whatever")
	if effect.Intent != llmproto.IntentChat {
		t.Fatalf("expected chat fallback, got %s", effect.Intent)
	}
	if len(s.Filters) != 1 {
		t.Fatalf("expected no state mutation on fallback")
	}
}
