// Package validate implements the Validator (spec.md §4.10): a cheap
// pre-pipeline filter that short-circuits gibberish and greetings before
// any LLM call, plus fuzzy domain-keyword correction so a typo like "boks"
// still resolves to "books" downstream.
package validate

import (
	"context"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"convorec/internal/llmproto"
)

// Outcome is the Validator's verdict on one message.
type Outcome struct {
	Valid               bool
	Empty               bool   // valid-but-empty: triggers a domain-selection response
	Intent              string // "price", "greeting", "chat", ...
	CorrectedMessage    string
}

var priceRangePattern = regexp.MustCompile(`(?i)\$?\d[\d,]*\s*(-|to|and)\s*\$?\d[\d,]*|\bunder\s+\$?\d|\bless than\s+\$?\d|\baround\s+\$?\d`)

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true, "yo": true,
	"good morning": true, "good afternoon": true, "good evening": true,
	"howdy": true, "sup": true,
}

// domainKeywords is the fuzzy-correction dictionary: every term a user
// might garble while naming a domain or a common slot value.
var domainKeywords = []string{
	"vehicles", "vehicle", "car", "cars", "suv", "truck", "sedan",
	"laptops", "laptop", "computer", "notebook",
	"books", "book", "novel", "ebook",
}

// Validator runs the five ordered rules from spec.md §4.10, falling back to
// an LLM classification only when every deterministic rule is inconclusive.
type Validator struct {
	completer llmproto.Completer
	model     string
}

// New builds a Validator. completer may be nil, in which case rule 5 always
// defaults to valid (no LLM fallback configured).
func New(completer llmproto.Completer, model string) *Validator {
	return &Validator{completer: completer, model: model}
}

// Validate runs the ordered rule pipeline against raw, applying fuzzy
// domain-keyword correction to the returned CorrectedMessage regardless of
// verdict, so downstream stages always see the corrected text.
func (v *Validator) Validate(ctx context.Context, raw string) Outcome {
	corrected := correctKeywords(raw)

	if priceRangePattern.MatchString(raw) {
		return Outcome{Valid: true, Intent: "price", CorrectedMessage: corrected}
	}

	if greetings[strings.ToLower(strings.TrimSpace(raw))] {
		return Outcome{Valid: true, Empty: true, Intent: "greeting", CorrectedMessage: corrected}
	}

	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < 2 || isPurelyDigits(trimmed) || isPurelyPunctuation(trimmed) {
		return Outcome{Valid: false, Intent: "invalid", CorrectedMessage: corrected}
	}

	if !vowelRatioInRange(trimmed, 0.2, 0.7) {
		return Outcome{Valid: false, Intent: "invalid", CorrectedMessage: corrected}
	}

	if v.completer == nil {
		return Outcome{Valid: true, Intent: "chat", CorrectedMessage: corrected}
	}

	userPrompt, err := llmproto.BuildValidatorPrompt(corrected)
	if err != nil {
		return Outcome{Valid: true, Intent: "chat", CorrectedMessage: corrected}
	}

	classification, err := llmproto.CompleteTyped[llmproto.ValidatorClassification](
		ctx, v.completer, "validate", llmproto.ContractValidator, userPrompt, v.model,
	)
	if err != nil {
		// Deterministic fallback (spec.md §7): treat as valid chat rather
		// than blocking the turn on a validator failure.
		return Outcome{Valid: true, Intent: "chat", CorrectedMessage: corrected}
	}

	out := Outcome{Valid: classification.Valid, Intent: classification.Intent, CorrectedMessage: corrected}
	if classification.SuggestedCorrection != "" {
		out.CorrectedMessage = classification.SuggestedCorrection
	}
	return out
}

func isPurelyDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isPurelyPunctuation(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func vowelRatioInRange(s string, lo, hi float64) bool {
	var letters, vowels int
	for _, r := range strings.ToLower(s) {
		if r < 'a' || r > 'z' {
			continue
		}
		letters++
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			vowels++
		}
	}
	if letters == 0 {
		return false
	}
	ratio := float64(vowels) / float64(letters)
	return ratio >= lo && ratio <= hi
}

// correctKeywords replaces each whitespace-delimited token that fuzzily
// matches a domain keyword with the canonical spelling, using a
// length-indexed Levenshtein tolerance and a 60% similarity floor
// (spec.md §4.10).
func correctKeywords(raw string) string {
	tokens := strings.Fields(raw)
	for i, tok := range tokens {
		lower := strings.ToLower(strings.Trim(tok, ".,!?"))
		if best, ok := bestKeywordMatch(lower); ok {
			tokens[i] = best
		}
	}
	return strings.Join(tokens, " ")
}

func bestKeywordMatch(token string) (string, bool) {
	tolerance := toleranceFor(len(token))
	if tolerance == 0 {
		return "", false
	}
	var best string
	bestSimilarity := 0.0
	for _, kw := range domainKeywords {
		if token == kw {
			return token, false // already canonical, no substitution needed
		}
		dist := levenshtein.ComputeDistance(token, kw)
		if dist > tolerance {
			continue
		}
		maxLen := len(token)
		if len(kw) > maxLen {
			maxLen = len(kw)
		}
		if maxLen == 0 {
			continue
		}
		similarity := 1.0 - float64(dist)/float64(maxLen)
		if similarity >= 0.6 && similarity > bestSimilarity {
			best = kw
			bestSimilarity = similarity
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// toleranceFor returns the Levenshtein distance tolerance for a token of
// the given length (spec.md §4.10: {3-5:2, 6-8:3, >=9:3}); tokens shorter
// than 3 characters are never fuzzy-corrected to avoid false positives.
func toleranceFor(length int) int {
	switch {
	case length >= 3 && length <= 5:
		return 2
	case length >= 6:
		return 3
	default:
		return 0
	}
}
