package pipeline

import (
	"context"

	"convorec/internal/domain"
	"convorec/internal/llmproto"
	"convorec/internal/session"
)

// askQuestion implements stage 4 (spec.md §4.4 step 4): pick the next
// unasked, unfilled slot in priority order, generate a question, and
// record it against the session.
func (p *Pipeline) askQuestion(ctx context.Context, s *session.SessionState) (Result, error) {
	slot := nextSlot(p.registry, s)
	if slot == nil {
		// Every slot has been asked or filled but decideAction didn't
		// already choose search (e.g. no required slots at all); fall
		// through to search rather than asking nothing.
		return p.runSearch(ctx, s)
	}

	question, quickReplies := p.generateQuestion(ctx, s, slot)

	s.QuestionsAsked = append(s.QuestionsAsked, slot.Key())
	s.QuestionCount++

	return Result{
		ResponseType: ResponseQuestion,
		Message:      question,
		Domain:       s.ActiveDomain,
		QuickReplies: quickReplies,
	}, nil
}

func nextSlot(registry *domain.Registry, s *session.SessionState) domain.Slot {
	for _, slot := range registry.OrderedForInterview(s.ActiveDomain) {
		if s.HasAsked(slot.Key()) {
			continue
		}
		if _, filled := s.Filters[slot.Key()]; filled {
			continue
		}
		return slot
	}
	return nil
}

func (p *Pipeline) generateQuestion(ctx context.Context, s *session.SessionState, slot domain.Slot) (string, []string) {
	if p.completer != nil {
		if userPrompt, err := llmproto.BuildQuestionGenPrompt(string(s.ActiveDomain), slot.Key(), stringifyFilters(s.Filters), s.Conversation); err == nil {
			gen, err := llmproto.CompleteTyped[llmproto.QuestionGeneration](
				ctx, p.completer, "question_generation", llmproto.ContractQuestionGen, userPrompt, p.model,
			)
			if err == nil && gen.Question != "" {
				return gen.Question, gen.QuickReplies
			}
		}
	}
	// Fallback (spec.md §7): use the slot's example prompt/replies verbatim.
	return slot.ExamplePrompt(), slot.ExampleReplies()
}

func stringifyFilters(filters map[string]session.FilterValue) map[string]string {
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		out[k] = v.String()
	}
	return out
}
