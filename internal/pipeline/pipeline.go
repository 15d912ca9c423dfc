// Package pipeline implements the Agent Pipeline (spec.md §4.4): the five
// LLM-backed stages that run while a session is in the INTERVIEW stage,
// stopping either at a follow-up question or a dispatched search.
package pipeline

import (
	"context"
	"strings"

	"convorec/internal/diversify"
	"convorec/internal/domain"
	"convorec/internal/llmproto"
	"convorec/internal/search"
	"convorec/internal/session"
)

// ResponseType mirrors spec.md §4.8's TurnResult.response_type.
type ResponseType string

const (
	ResponseQuestion        ResponseType = "question"
	ResponseRecommendations ResponseType = "recommendations"
	ResponseMessage         ResponseType = "message"
)

// Result is everything the orchestrator needs to shape a TurnResult after
// one pipeline run.
type Result struct {
	ResponseType ResponseType
	Message      string
	Domain       domain.Domain
	QuickReplies []string
	Rows         []diversify.Row
	Provenance   string
	Relaxed      []string
}

// Pipeline runs the five-stage interview flow against a session.
type Pipeline struct {
	completer   llmproto.Completer
	model       string
	registry    *domain.Registry
	dispatcher  *search.Dispatcher
	diversifier *diversify.Diversifier
	minConfidence float64
}

// New wires the pipeline's collaborators.
func New(completer llmproto.Completer, model string, registry *domain.Registry, dispatcher *search.Dispatcher, diversifier *diversify.Diversifier) *Pipeline {
	return &Pipeline{
		completer:     completer,
		model:         model,
		registry:      registry,
		dispatcher:    dispatcher,
		diversifier:   diversifier,
		minConfidence: 0.6,
	}
}

// Run executes the interview pipeline for one turn (spec.md §4.4 steps 1-5).
func (p *Pipeline) Run(ctx context.Context, s *session.SessionState, message string) (Result, error) {
	p.detectDomain(ctx, s, message)

	if s.ActiveDomain == domain.Unknown {
		return Result{
			ResponseType: ResponseMessage,
			Message:      "Which category are you shopping for?",
			QuickReplies: []string{"Vehicles", "Laptops", "Books"},
		}, nil
	}

	extraction := p.extractSlots(ctx, s, message)
	action := p.decideAction(s, extraction, message)

	if action == actionSearch {
		return p.runSearch(ctx, s)
	}
	return p.askQuestion(ctx, s)
}

// RunSearch re-dispatches stage 5 directly, bypassing domain detection and
// slot extraction. The orchestrator calls this after the refinement
// classifier applies a filter change while a session is already in
// RECOMMENDATIONS (spec.md §4.7).
func (p *Pipeline) RunSearch(ctx context.Context, s *session.SessionState) (Result, error) {
	return p.runSearch(ctx, s)
}

// detectDomain runs stage 1 and applies the domain-switch clearing
// invariant when the detected domain differs from the session's current
// one (spec.md §4.4 step 1).
func (p *Pipeline) detectDomain(ctx context.Context, s *session.SessionState, message string) {
	if p.completer == nil {
		return
	}
	userPrompt, err := llmproto.BuildDomainDetectionPrompt(message, s.Conversation, string(s.ActiveDomain))
	if err != nil {
		return
	}
	detection, err := llmproto.CompleteTyped[llmproto.DomainDetection](
		ctx, p.completer, "domain_detection", llmproto.ContractDomainDetection, userPrompt, p.model,
	)
	if err != nil {
		// Fallback (spec.md §7): keep current active_domain or unknown.
		return
	}

	detected := domain.Domain(strings.ToLower(detection.Domain))
	if detection.Confidence < p.minConfidence || !detected.Valid() {
		detected = domain.Unknown
	}
	if detected == domain.Unknown {
		return
	}
	if detected != s.ActiveDomain {
		s.SwitchDomain(detected)
	}
}

type interviewAction int

const (
	actionAsk interviewAction = iota
	actionSearch
)

// decideAction implements spec.md §4.4 step 3.
func (p *Pipeline) decideAction(s *session.SessionState, extraction llmproto.SlotExtraction, message string) interviewAction {
	if extraction.AsksForRecommendations {
		return actionSearch
	}
	if s.QuestionCount >= s.KLimit {
		return actionSearch
	}
	if allRequiredSlotsFilled(p.registry, s) {
		return actionSearch
	}
	if extraction.Impatience || isImpatientPhrase(message) {
		return actionSearch
	}
	return actionAsk
}

func allRequiredSlotsFilled(registry *domain.Registry, s *session.SessionState) bool {
	for _, slot := range registry.Slots(s.ActiveDomain) {
		if !slot.RequiredForSearch() {
			continue
		}
		if _, ok := s.Filters[slot.Key()]; !ok {
			return false
		}
	}
	return true
}

var impatiencePhrases = []string{
	"just show me", "show me options", "whatever works", "i don't care",
	"surprise me", "anything is fine", "just recommend",
}

// isImpatientPhrase is the explicit-phrase half of the two-heuristic
// impatience signal (spec.md §4.4 step 3); the LLM flag is the other half.
func isImpatientPhrase(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range impatiencePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
