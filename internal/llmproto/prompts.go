package llmproto

import "convorec/internal/session"

// These small payload structs are marshaled as the user-message JSON for
// each stage; the contract's system prompt tells the model how to read
// them and what to produce.

type domainDetectionPrompt struct {
	Message        string            `json:"message"`
	ConversationTail []session.Message `json:"conversation_tail"`
	ActiveDomain   string            `json:"active_domain"`
}

// BuildDomainDetectionPrompt renders the user prompt for stage 1.
func BuildDomainDetectionPrompt(message string, tail []session.Message, activeDomain string) (string, error) {
	return marshalUserPrompt(domainDetectionPrompt{Message: message, ConversationTail: tail, ActiveDomain: activeDomain})
}

// SlotSpec describes one slot in the slot-extraction prompt: its key,
// priority tier, value type, and any type-specific constraints. Exported
// so callers outside this package (the pipeline) can build the slot list
// passed to BuildSlotExtractionPrompt.
type SlotSpec struct {
	Key           string   `json:"key"`
	Priority      string   `json:"priority"`
	ValueType     string   `json:"value_type"`
	AllowedValues []string `json:"allowed_values,omitempty"`
	PriceUnit     string   `json:"price_unit,omitempty"`
	PriceScale    int64    `json:"price_scale,omitempty"`
}

// NewSlotSpec constructs a SlotSpec.
func NewSlotSpec(key, priority, valueType string, allowed []string, priceUnit string, priceScale int64) SlotSpec {
	return SlotSpec{Key: key, Priority: priority, ValueType: valueType, AllowedValues: allowed, PriceUnit: priceUnit, PriceScale: priceScale}
}

type slotExtractionPrompt struct {
	Message string     `json:"message"`
	Domain  string     `json:"domain"`
	Slots   []SlotSpec `json:"slots"`
}

// BuildSlotExtractionPrompt renders the user prompt for stage 2.
func BuildSlotExtractionPrompt(message, domainName string, slots []SlotSpec) (string, error) {
	return marshalUserPrompt(slotExtractionPrompt{Message: message, Domain: domainName, Slots: slots})
}

type questionGenPrompt struct {
	Domain         string            `json:"domain"`
	NextSlot       string            `json:"next_slot"`
	Filters        map[string]string `json:"filters"`
	ConversationTail []session.Message `json:"conversation_tail"`
}

// BuildQuestionGenPrompt renders the user prompt for stage 4.
func BuildQuestionGenPrompt(domainName, nextSlot string, filters map[string]string, tail []session.Message) (string, error) {
	return marshalUserPrompt(questionGenPrompt{Domain: domainName, NextSlot: nextSlot, Filters: filters, ConversationTail: tail})
}

type explanationPrompt struct {
	TopK            []ProductBrief    `json:"top_k"`
	Filters         map[string]string `json:"filters"`
	SoftPreferences map[string]any    `json:"soft_preferences"`
}

// ProductBrief is the minimal product view given to the explanation stage.
type ProductBrief struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Brand string `json:"brand"`
	Price int64  `json:"price"`
}

// BuildExplanationPrompt renders the user prompt for stage 5.
func BuildExplanationPrompt(topK []ProductBrief, filters map[string]string, softPrefs map[string]any) (string, error) {
	return marshalUserPrompt(explanationPrompt{TopK: topK, Filters: filters, SoftPreferences: softPrefs})
}

type refinementPrompt struct {
	Message           string            `json:"message"`
	ResultFingerprint []string          `json:"result_fingerprint"`
	Filters           map[string]string `json:"filters"`
}

// BuildRefinementPrompt renders the user prompt for stage 6.
func BuildRefinementPrompt(message string, resultFingerprint []string, filters map[string]string) (string, error) {
	return marshalUserPrompt(refinementPrompt{Message: message, ResultFingerprint: resultFingerprint, Filters: filters})
}

type validatorPrompt struct {
	Message string `json:"message"`
}

// BuildValidatorPrompt renders the user prompt for the optional validator
// fallback (spec.md §4.10 rule 5).
func BuildValidatorPrompt(message string) (string, error) {
	return marshalUserPrompt(validatorPrompt{Message: message})
}
