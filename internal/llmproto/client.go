package llmproto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Completer is the StructuredCompletion capability consumed by the agent
// pipeline (spec.md §6.4): send a system+user prompt pair, get back raw
// text. Schema enforcement lives in the prompt itself (SystemPrompt) and in
// decode's post-hoc validation, the same split the teacher's
// llmcontracts/OpenRouterClient pair uses.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
}

// StageFailure is the error type every structured call fails with on
// timeout or contract violation. The stage that made the call (pipeline,
// refinement classifier, validator) converts it into a deterministic
// fallback rather than letting it propagate (spec.md §7 / §9 Design Note).
type StageFailure struct {
	Stage string
	Cause error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
}

func (e *StageFailure) Unwrap() error { return e.Cause }

// CompleteTyped runs one structured call end to end: builds the contract's
// system prompt, invokes the completer, and decodes the result into T.
// Go methods can't carry their own type parameters, so this is a
// package-level generic function rather than a method on Completer.
func CompleteTyped[T any](ctx context.Context, c Completer, stage string, name ContractName, userPrompt, model string) (T, error) {
	var zero T
	sysPrompt, err := SystemPrompt(name)
	if err != nil {
		return zero, &StageFailure{Stage: stage, Cause: err}
	}

	raw, err := c.Complete(ctx, sysPrompt, userPrompt, model)
	if err != nil {
		return zero, &StageFailure{Stage: stage, Cause: err}
	}

	out, err := decode[T](name, raw)
	if err != nil {
		return zero, &StageFailure{Stage: stage, Cause: err}
	}
	return out, nil
}

// IsStageFailure reports whether err is (or wraps) a StageFailure, and
// returns it.
func IsStageFailure(err error) (*StageFailure, bool) {
	var sf *StageFailure
	if errors.As(err, &sf) {
		return sf, true
	}
	return nil, false
}

// marshalUserPrompt is a small helper stages use to build a single JSON
// blob as the user message, keeping prompt construction declarative.
func marshalUserPrompt(payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
