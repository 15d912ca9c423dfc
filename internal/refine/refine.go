// Package refine implements the Refinement Classifier (spec.md §4.7): once
// a session is in RECOMMENDATIONS, every turn is classified into one of
// seven intents and applied to session state before the orchestrator
// persists it.
package refine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"convorec/internal/cart"
	"convorec/internal/domain"
	"convorec/internal/llmproto"
	"convorec/internal/research"
	"convorec/internal/session"
)

// Effect is what happened to the session as a result of classifying one
// refinement turn; the orchestrator uses it to decide whether to re-dispatch
// a search or simply persist the updated state.
type Effect struct {
	Intent          llmproto.RefinementIntent
	NeedsResearch   bool
	CartResult      *cart.Result
	ResearchResults []research.Info
	ChatMessage     string
}

// Classifier runs the LLM refinement contract and applies its effects.
type Classifier struct {
	completer llmproto.Completer
	model     string
	registry  *domain.Registry
	cart      cart.Client
	research  research.Client
}

// New wires the classifier's collaborators. cart and research may be nil:
// without research, research/compare intents degrade to a chat fallback;
// without cart, cart intents only update favorites in the session.
func New(completer llmproto.Completer, model string, registry *domain.Registry, cartClient cart.Client, researchClient research.Client) *Classifier {
	return &Classifier{completer: completer, model: model, registry: registry, cart: cartClient, research: researchClient}
}

// Classify runs the post-recommendation refinement stage and mutates s
// in place according to the classified intent (spec.md §4.7).
func (c *Classifier) Classify(ctx context.Context, s *session.SessionState, message string) Effect {
	classification, err := c.classify(ctx, s, message)
	if err != nil {
		// Deterministic fallback (spec.md §7): treat as chat, no mutation.
		return Effect{Intent: llmproto.IntentChat, ChatMessage: "Got it."}
	}

	switch classification.Intent {
	case llmproto.IntentFilterChange:
		applyFilterDelta(s, c.registry, classification.FilterDelta)
		return Effect{Intent: llmproto.IntentFilterChange}

	case llmproto.IntentDomainSwitch:
		target := domain.Domain(classification.TargetDomain)
		if !target.Valid() || target == domain.Unknown {
			return Effect{Intent: llmproto.IntentChat, ChatMessage: "I didn't catch which category you'd like to switch to."}
		}
		s.SwitchDomain(target)
		return Effect{Intent: llmproto.IntentDomainSwitch}

	case llmproto.IntentNewSearch:
		s.ClearFilters()
		return Effect{Intent: llmproto.IntentNewSearch}

	case llmproto.IntentResearch, llmproto.IntentCompare:
		if c.research == nil {
			return Effect{Intent: llmproto.IntentChat, ChatMessage: "I can't pull up extra details right now."}
		}
		ids := classification.TargetProductIDs
		if len(ids) == 0 {
			ids = allLastResultIDs(s)
		}
		info, err := c.research.Lookup(ctx, ids)
		if err != nil {
			return Effect{Intent: llmproto.IntentChat, ChatMessage: "I couldn't look that up right now."}
		}
		return Effect{Intent: classification.Intent, NeedsResearch: true, ResearchResults: info}

	case llmproto.IntentCart:
		return c.applyCart(ctx, s, classification)

	default:
		return Effect{Intent: llmproto.IntentChat, ChatMessage: classification.ChatMessage}
	}
}

func (c *Classifier) classify(ctx context.Context, s *session.SessionState, message string) (llmproto.RefinementClassification, error) {
	if c.completer == nil {
		return llmproto.RefinementClassification{}, fmt.Errorf("no completer configured")
	}
	fingerprint := resultFingerprint(s.LastResults)
	filters := stringifyFilters(s.Filters)

	userPrompt, err := llmproto.BuildRefinementPrompt(message, fingerprint, filters)
	if err != nil {
		return llmproto.RefinementClassification{}, err
	}
	return llmproto.CompleteTyped[llmproto.RefinementClassification](
		ctx, c.completer, "refinement", llmproto.ContractRefinement, userPrompt, c.model,
	)
}

func (c *Classifier) applyCart(ctx context.Context, s *session.SessionState, classification llmproto.RefinementClassification) Effect {
	ids := classification.TargetProductIDs
	action := cart.Action(classification.CartAction)

	if action == cart.ActionFavorite {
		for _, id := range ids {
			if _, already := s.Favorites[id]; already {
				continue
			}
			s.Favorites[id] = struct{}{}
		}
	}

	if c.cart == nil {
		return Effect{Intent: llmproto.IntentCart}
	}
	result, err := c.cart.Apply(ctx, s.SessionID, action, ids)
	if err != nil {
		return Effect{Intent: llmproto.IntentCart, ChatMessage: "I couldn't update your cart just now."}
	}
	return Effect{Intent: llmproto.IntentCart, CartResult: &result}
}

// applyFilterDelta merges a refinement's filter_delta into the session. An
// empty value removes the filter. A value for a categorical slot is
// lowercased and kept only if the slot allows it, as the extractor does.
// Other numeric strings become session.IntValue as given, with no price
// scaling (the refinement prompt shows filters in their stored form);
// everything else becomes session.StringValue.
func applyFilterDelta(s *session.SessionState, registry *domain.Registry, delta map[string]string) {
	for key, raw := range delta {
		if raw == "" {
			delete(s.Filters, key)
			continue
		}
		if slot, ok := registry.Slot(s.ActiveDomain, key); ok {
			if categorical, isCat := slot.(domain.CategoricalSlot); isCat {
				lower := strings.ToLower(strings.TrimSpace(raw))
				if categorical.Accepts(lower) {
					s.Filters[key] = session.StringValue(lower)
				}
				continue
			}
		}
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			s.Filters[key] = session.IntValue(n)
			continue
		}
		s.Filters[key] = session.StringValue(raw)
	}
}

func stringifyFilters(filters map[string]session.FilterValue) map[string]string {
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		out[k] = v.String()
	}
	return out
}

func resultFingerprint(results []session.ProductSummary) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

func allLastResultIDs(s *session.SessionState) []string {
	return resultFingerprint(s.LastResults)
}
