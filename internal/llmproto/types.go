// Package llmproto is the LLM Prompt Suite: one prompt template and one
// JSON schema per structured call the agent pipeline makes, plus the
// StructuredCompletion client that executes them. It generalizes the
// teacher's single STRICT_JSON_V3 contract (internal/llmcontracts) into six
// named, independently schema'd contracts.
package llmproto

// DomainDetection is the output of the domain-detection stage (spec.md §4.3.1).
type DomainDetection struct {
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
}

// SlotExtraction is the output of the slot-extraction stage (spec.md §4.3.2).
type SlotExtraction struct {
	Filters              map[string]string `json:"filters"`
	Liked                []string          `json:"liked"`
	Disliked             []string          `json:"disliked"`
	Notes                string            `json:"notes"`
	Impatience           bool              `json:"impatience"`
	AsksForRecommendations bool            `json:"asks_for_recommendations"`
}

// QuestionGeneration is the output of the question-generation stage
// (spec.md §4.3.4).
type QuestionGeneration struct {
	Question     string   `json:"question"`
	QuickReplies []string `json:"quick_replies"`
	SlotKey      string   `json:"slot_key"`
}

// Explanation is the output of the recommendation-explanation stage
// (spec.md §4.3.5). Its contract is an object with a single message
// string, kept as a struct for symmetry with the other stages.
type Explanation struct {
	Message string `json:"message"`
}

// RefinementIntent enumerates the post-recommendation classification
// outcomes (spec.md §4.3.6 / §4.7).
type RefinementIntent string

const (
	IntentFilterChange RefinementIntent = "filter_change"
	IntentDomainSwitch RefinementIntent = "domain_switch"
	IntentNewSearch    RefinementIntent = "new_search"
	IntentResearch     RefinementIntent = "research"
	IntentCompare      RefinementIntent = "compare"
	IntentCart         RefinementIntent = "cart"
	IntentChat         RefinementIntent = "chat"
)

// RefinementClassification is the output of the post-recommendation
// refinement stage.
type RefinementClassification struct {
	Intent           RefinementIntent  `json:"intent"`
	FilterDelta      map[string]string `json:"filter_delta"`
	TargetProductIDs []string          `json:"target_product_ids"`
	TargetDomain     string            `json:"target_domain"`
	CartAction       string            `json:"cart_action"`
	ChatMessage      string            `json:"chat_message"`
}

// ValidatorClassification is the optional LLM fallback used by the
// Validator (spec.md §4.10 rule 5).
type ValidatorClassification struct {
	Valid               bool   `json:"valid"`
	Intent              string `json:"intent"`
	SuggestedCorrection string `json:"suggested_correction"`
}
