package pipeline

import (
	"context"
	"strconv"
	"strings"

	"convorec/internal/domain"
	"convorec/internal/llmproto"
	"convorec/internal/session"
)

// extractSlots runs stage 2 (spec.md §4.3.2 / §4.4 step 2): extract filters
// and soft preferences from the raw message, merging them into the
// session. On failure it returns a zero-value extraction and leaves
// session state untouched, the deterministic fallback from spec.md §7.
func (p *Pipeline) extractSlots(ctx context.Context, s *session.SessionState, message string) llmproto.SlotExtraction {
	if p.completer == nil {
		return llmproto.SlotExtraction{}
	}

	slots := p.registry.Slots(s.ActiveDomain)
	userPrompt, err := llmproto.BuildSlotExtractionPrompt(message, string(s.ActiveDomain), slotSpecsFor(slots))
	if err != nil {
		return llmproto.SlotExtraction{}
	}

	extraction, err := llmproto.CompleteTyped[llmproto.SlotExtraction](
		ctx, p.completer, "slot_extraction", llmproto.ContractSlotExtraction, userPrompt, p.model,
	)
	if err != nil {
		return llmproto.SlotExtraction{}
	}

	mergeFilters(s, p.registry, extraction.Filters)
	s.SoftPreferences.Merge(extraction.Liked, extraction.Disliked, extraction.Notes)
	return extraction
}

func slotSpecsFor(slots []domain.Slot) []llmproto.SlotSpec {
	out := make([]llmproto.SlotSpec, 0, len(slots))
	for _, s := range slots {
		var allowed []string
		var unit string
		var scale int64
		var valueType string
		switch slot := s.(type) {
		case domain.CategoricalSlot:
			valueType = "categorical"
			allowed = slot.Allowed
		case domain.PriceRangeSlot:
			valueType = "price_range"
			unit = slot.Context.Unit
			scale = slot.Context.Scale
		case domain.FreeTextSlot:
			valueType = "free_text"
		case domain.IntegerSlot:
			valueType = "integer"
		}
		out = append(out, llmproto.NewSlotSpec(s.Key(), priorityName(s.Priority()), valueType, allowed, unit, scale))
	}
	return out
}

func priorityName(p domain.Priority) string {
	switch p {
	case domain.HIGH:
		return "HIGH"
	case domain.MEDIUM:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// mergeFilters snaps each extracted raw value to its slot's type, dropping
// anything that doesn't validate rather than propagating it (spec.md §9
// Design Note: "unknown fields in LLM output are dropped, not propagated").
func mergeFilters(s *session.SessionState, registry *domain.Registry, raw map[string]string) {
	for key, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		slot, ok := registry.Slot(s.ActiveDomain, key)
		if !ok {
			continue
		}
		switch typed := slot.(type) {
		case domain.CategoricalSlot:
			lower := strings.ToLower(value)
			if typed.Accepts(lower) {
				s.Filters[key] = session.StringValue(lower)
			}
		case domain.PriceRangeSlot:
			if n, ok := parsePriceMinorUnits(value, typed.Context); ok {
				s.Filters[key] = session.IntValue(n)
			}
		case domain.IntegerSlot:
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				s.Filters[key] = session.IntValue(n)
			}
		case domain.FreeTextSlot:
			s.Filters[key] = session.StringValue(value)
		}
	}
}

// parsePriceMinorUnits interprets a bare number through the slot's
// PriceContext (spec.md §4.1: "books interpret numeric budgets as dollars,
// vehicles as thousands") and converts to minor currency units (cents) to
// match ProductSummary.PriceMinor.
func parsePriceMinorUnits(raw string, ctx domain.PriceContext) (int64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || r == '$' {
			return -1
		}
		return r
	}, raw)
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	scale := ctx.Scale
	if scale == 0 {
		scale = 1
	}
	dollars := n * float64(scale)
	return int64(dollars * 100), true
}
