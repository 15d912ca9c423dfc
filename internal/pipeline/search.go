package pipeline

import (
	"context"

	"convorec/internal/diversify"
	"convorec/internal/domain"
	"convorec/internal/llmproto"
	"convorec/internal/search"
	"convorec/internal/session"
)

// runSearch implements stage 5 (spec.md §4.4 step 5): dispatch the search,
// diversify the results, generate an explanation, and transition the
// session into RECOMMENDATIONS.
func (p *Pipeline) runSearch(ctx context.Context, s *session.SessionState) (Result, error) {
	soft := search.SoftPreferences{
		Liked:    setToSlice(s.SoftPreferences.Liked),
		Disliked: setToSlice(s.SoftPreferences.Disliked),
		Notes:    s.SoftPreferences.Notes,
	}

	outcome, err := p.dispatcher.Dispatch(ctx, s.ActiveDomain, s.Filters, soft)
	if err != nil {
		// Search itself failed/timed out: graceful retry message, state
		// unchanged (spec.md §5 Cancellation & timeouts).
		return Result{
			ResponseType: ResponseMessage,
			Domain:       s.ActiveDomain,
			Message:      "I'm having trouble searching right now, please try again in a moment.",
		}, nil
	}

	if len(outcome.Candidates) == 0 {
		// Empty after max relaxation (spec.md §7): stay in INTERVIEW.
		return Result{
			ResponseType: ResponseMessage,
			Domain:       s.ActiveDomain,
			Message:      "I couldn't find any matches, even after relaxing some filters. Want to try a broader search?",
			Relaxed:      outcome.Relaxed,
		}, nil
	}

	axes := axesFor(s.ActiveDomain)
	rows := p.diversifier.Diversify(outcome.Candidates, axes)

	message := p.explain(ctx, outcome.Candidates, s.Filters, s.SoftPreferences)

	s.LastResults = outcome.Candidates
	s.Stage = session.StageRecommendations

	return Result{
		ResponseType: ResponseRecommendations,
		Message:      message,
		Domain:       s.ActiveDomain,
		Rows:         rows,
		Provenance:   outcome.Provenance,
		Relaxed:      outcome.Relaxed,
	}, nil
}

// explain runs stage 5's recommendation-explanation call (spec.md §4.3.5),
// falling back to a generic template on failure (spec.md §7).
func (p *Pipeline) explain(ctx context.Context, candidates []session.ProductSummary, filters map[string]session.FilterValue, soft session.SoftPreferences) string {
	const fallback = "Here are some options I think match your needs."
	if p.completer == nil {
		return fallback
	}

	topK := candidates
	if len(topK) > 9 {
		topK = topK[:9]
	}
	briefs := make([]llmproto.ProductBrief, 0, len(topK))
	for _, c := range topK {
		briefs = append(briefs, llmproto.ProductBrief{ID: c.ID, Name: c.Name, Brand: c.Brand, Price: c.PriceMinor})
	}

	softMap := map[string]any{
		"liked":    setToSlice(soft.Liked),
		"disliked": setToSlice(soft.Disliked),
		"notes":    soft.Notes,
	}

	userPrompt, err := llmproto.BuildExplanationPrompt(briefs, stringifyFilters(filters), softMap)
	if err != nil {
		return fallback
	}
	explanation, err := llmproto.CompleteTyped[llmproto.Explanation](
		ctx, p.completer, "explanation", llmproto.ContractExplanation, userPrompt, p.model,
	)
	if err != nil || explanation.Message == "" {
		return fallback
	}
	return explanation.Message
}

// axesFor builds the Diversifier's categorical axes for a domain, reading
// each candidate's opaque Detail block for the domain's own slot keys plus
// the cross-domain brand field.
func axesFor(d domain.Domain) []diversify.Axis {
	brand := diversify.Axis{
		Name: "brand",
		Value: func(p session.ProductSummary) (string, bool) {
			return p.Brand, p.Brand != ""
		},
	}

	var detailKey string
	switch d {
	case domain.Vehicles:
		detailKey = "body_style"
	case domain.Laptops:
		detailKey = "use_case"
	case domain.Books:
		detailKey = "genre"
	}
	if detailKey == "" {
		return []diversify.Axis{brand}
	}

	detailAxis := diversify.Axis{
		Name: detailKey,
		Value: func(p session.ProductSummary) (string, bool) {
			v, ok := p.Detail[detailKey].(string)
			return v, ok
		},
	}
	return []diversify.Axis{detailAxis, brand}
}

func setToSlice(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
