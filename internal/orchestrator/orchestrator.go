// Package orchestrator implements the top-level Orchestrator (spec.md
// §4.8): one operation, HandleTurn, gluing the Validator, Session Store,
// Agent Pipeline, and Refinement Classifier together with per-session
// advisory locking, a per-turn budget, and trace assembly, the same
// instrumentation shape as the teacher's middleware.Logging.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"convorec/internal/diversify"
	"convorec/internal/domain"
	"convorec/internal/llmproto"
	"convorec/internal/pipeline"
	"convorec/internal/refine"
	"convorec/internal/research"
	"convorec/internal/session"
	"convorec/internal/validate"
)

// UserAction is one favorite-sync action submitted alongside a chat turn
// (spec.md §4.8 step 1).
type UserAction struct {
	Type      string // "favorite" | "unfavorite"
	ProductID string
}

// StageTrace is one entry of TurnResult.Trace.Stages (spec.md §6.2).
type StageTrace struct {
	Name string `json:"name"`
	Ms   int64  `json:"ms"`
	OK   bool   `json:"ok"`
}

// Trace is the envelope-level observability object attached to every
// TurnResult.
type Trace struct {
	RequestID         string
	Stages            []StageTrace
	BackendProvenance string
}

// TurnResult is the orchestrator's response to one handle_turn call
// (spec.md §4.8 step 6).
type TurnResult struct {
	ResponseType    pipeline.ResponseType
	Message         string
	Domain          domain.Domain
	Rows            []diversify.Row
	QuickReplies    []string
	FiltersSnapshot map[string]string
	QuestionCount   int
	SessionID       string
	Trace           Trace
}

// Orchestrator is the top-level gateway operation.
type Orchestrator struct {
	store      session.Store
	validator  *validate.Validator
	pipeline   *pipeline.Pipeline
	refiner    *refine.Classifier
	turnBudget time.Duration
	defaultK   int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New wires every collaborator the orchestrator glues together.
func New(store session.Store, validator *validate.Validator, pipe *pipeline.Pipeline, refiner *refine.Classifier, turnBudget time.Duration, defaultK int) *Orchestrator {
	return &Orchestrator{
		store:      store,
		validator:  validator,
		pipeline:   pipe,
		refiner:    refiner,
		turnBudget: turnBudget,
		defaultK:   defaultK,
		locks:      map[string]*sync.Mutex{},
	}
}

// HandleTurn runs one full turn: validate, load, dispatch to the pipeline
// or the refinement classifier depending on stage, persist, and shape the
// response envelope (spec.md §4.8).
func (o *Orchestrator) HandleTurn(ctx context.Context, requestID, sessionID, message string, k *int, actions []UserAction) (TurnResult, error) {
	if o.turnBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.turnBudget)
		defer cancel()
	}

	// Per-session advisory lock (spec.md §5): turns for the same session
	// are processed serially; turns for different sessions run in parallel.
	lock := o.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	trace := Trace{RequestID: requestID}

	s, existed := o.store.Load(ctx, sessionID)
	if !existed {
		s, existed = o.store.Recall(ctx, sessionID)
	}
	if !existed {
		kLimit := o.defaultK
		if k != nil {
			kLimit = *k
		}
		s = session.New(sessionID, kLimit, time.Now())
	}

	// user_actions are applied in submission order before the pipeline
	// runs (spec.md §5 Ordering).
	for _, action := range actions {
		applyUserAction(s, action)
	}

	s.AppendMessage("user", message, time.Now())

	validateStart := time.Now()
	verdict := o.validator.Validate(ctx, message)
	trace.Stages = append(trace.Stages, StageTrace{Name: "validate", Ms: time.Since(validateStart).Milliseconds(), OK: true})

	if !verdict.Valid {
		return o.finish(ctx, s, trace, pipeline.Result{
			ResponseType: pipeline.ResponseMessage,
			Message:      "I didn't quite catch that — could you describe what you're looking for?",
		})
	}
	if verdict.Empty {
		return o.finish(ctx, s, trace, pipeline.Result{
			ResponseType: pipeline.ResponseMessage,
			Message:      "Hi! What are you shopping for today?",
			QuickReplies: []string{"Vehicles", "Laptops", "Books"},
		})
	}

	effectiveMessage := verdict.CorrectedMessage
	if effectiveMessage == "" {
		effectiveMessage = message
	}

	pipelineStart := time.Now()
	result, err := o.runTurnStage(ctx, s, effectiveMessage)
	trace.Stages = append(trace.Stages, StageTrace{Name: "pipeline", Ms: time.Since(pipelineStart).Milliseconds(), OK: err == nil})
	if err != nil {
		return TurnResult{}, err
	}

	return o.finish(ctx, s, trace, result)
}

// runTurnStage dispatches to the agent pipeline or the refinement
// classifier depending on the session's stage (spec.md §4.8 step 4).
func (o *Orchestrator) runTurnStage(ctx context.Context, s *session.SessionState, message string) (pipeline.Result, error) {
	if s.Stage != session.StageRecommendations {
		return o.pipeline.Run(ctx, s, message)
	}

	effect := o.refiner.Classify(ctx, s, message)

	switch effect.Intent {
	case llmproto.IntentFilterChange:
		// A filter change re-dispatches the search in place (spec.md §4.7);
		// the pipeline's own search stage does the dispatch/diversify work.
		return o.pipeline.RunSearch(ctx, s)
	case llmproto.IntentDomainSwitch, llmproto.IntentNewSearch:
		return o.pipeline.Run(ctx, s, message)
	case llmproto.IntentResearch, llmproto.IntentCompare:
		return pipeline.Result{
			ResponseType: pipeline.ResponseMessage,
			Domain:       s.ActiveDomain,
			Message:      researchSummary(effect.ResearchResults),
		}, nil
	case llmproto.IntentCart:
		msg := "Done."
		if effect.CartResult != nil && effect.CartResult.Message != "" {
			msg = effect.CartResult.Message
		}
		return pipeline.Result{ResponseType: pipeline.ResponseMessage, Domain: s.ActiveDomain, Message: msg}, nil
	default:
		msg := effect.ChatMessage
		if msg == "" {
			msg = "Got it."
		}
		return pipeline.Result{ResponseType: pipeline.ResponseMessage, Domain: s.ActiveDomain, Message: msg}, nil
	}
}

func (o *Orchestrator) finish(ctx context.Context, s *session.SessionState, trace Trace, result pipeline.Result) (TurnResult, error) {
	s.AppendMessage("assistant", result.Message, time.Now())
	if err := o.store.Save(ctx, s); err != nil {
		trace.Stages = append(trace.Stages, StageTrace{Name: "save", Ms: 0, OK: false})
	}
	trace.BackendProvenance = result.Provenance

	return TurnResult{
		ResponseType:    result.ResponseType,
		Message:         result.Message,
		Domain:          result.Domain,
		Rows:            result.Rows,
		QuickReplies:    result.QuickReplies,
		FiltersSnapshot: stringifyFilters(s.Filters),
		QuestionCount:   s.QuestionCount,
		SessionID:       s.SessionID,
		Trace:           trace,
	}, nil
}

func (o *Orchestrator) lockFor(sessionID string) *sync.Mutex {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()
	lock, ok := o.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[sessionID] = lock
	}
	return lock
}

func applyUserAction(s *session.SessionState, action UserAction) {
	switch action.Type {
	case "favorite":
		s.Favorites[action.ProductID] = struct{}{}
	case "unfavorite":
		delete(s.Favorites, action.ProductID)
	}
}

func researchSummary(infos []research.Info) string {
	if len(infos) == 0 {
		return "I couldn't find any extra details on that."
	}
	parts := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Summary != "" {
			parts = append(parts, info.Summary)
		}
	}
	if len(parts) == 0 {
		return "I couldn't find any extra details on that."
	}
	return strings.Join(parts, " ")
}

func stringifyFilters(filters map[string]session.FilterValue) map[string]string {
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		out[k] = v.String()
	}
	return out
}
