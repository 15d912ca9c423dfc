// Package session defines the per-conversation state record and its
// persistence contract. The in-memory map is authoritative for the life of
// the process; an optional remote store is written through to, never
// polled (see the "Session State" entry in DESIGN.md).
package session

import (
	"fmt"
	"time"

	"convorec/internal/domain"
)

// Stage is the session's high-level phase.
type Stage string

const (
	StageInterview      Stage = "INTERVIEW"
	StageRecommendations Stage = "RECOMMENDATIONS"
	StageCheckout        Stage = "CHECKOUT"
)

// SessionIntent captures the user's overall shopping posture, when known.
type SessionIntent string

const (
	IntentExplore          SessionIntent = "Explore"
	IntentDecideToday      SessionIntent = "Decide today"
	IntentExecutePurchase  SessionIntent = "Execute purchase"
)

// StepIntent captures what the user wants to do with the current result set.
type StepIntent string

const (
	StepResearch  StepIntent = "Research"
	StepCompare   StepIntent = "Compare"
	StepNegotiate StepIntent = "Negotiate"
	StepSchedule  StepIntent = "Schedule"
	StepReturn    StepIntent = "Return"
)

// FilterValue is the small sum type backing SessionState.Filters: a
// categorical/free-text string, an integer (for price/quantity slots), or
// absent. Callers never type-assert a bare interface{}; they use the
// accessor methods below.
type FilterValue struct {
	str     string
	num     int64
	hasNum  bool
	hasStr  bool
}

// StringValue constructs a string-backed FilterValue.
func StringValue(s string) FilterValue { return FilterValue{str: s, hasStr: true} }

// IntValue constructs an integer-backed FilterValue.
func IntValue(n int64) FilterValue { return FilterValue{num: n, hasNum: true} }

// String returns the value as a string, formatting an integer if needed.
func (v FilterValue) String() string {
	if v.hasStr {
		return v.str
	}
	if v.hasNum {
		return fmt.Sprintf("%d", v.num)
	}
	return ""
}

// Int returns the integer value and whether it was an integer-backed value.
func (v FilterValue) Int() (int64, bool) {
	if v.hasNum {
		return v.num, true
	}
	return 0, false
}

// Message is one turn in the bounded conversation log.
type Message struct {
	Role string // "user" or "assistant"
	Text string
	At   time.Time
}

// SoftPreferences is free-form preference signal used for ranking, never
// for hard filtering.
type SoftPreferences struct {
	Liked    map[string]struct{}
	Disliked map[string]struct{}
	Notes    string
}

func newSoftPreferences() SoftPreferences {
	return SoftPreferences{Liked: map[string]struct{}{}, Disliked: map[string]struct{}{}}
}

// Merge folds newly extracted soft preferences into the existing set.
func (p *SoftPreferences) Merge(liked, disliked []string, notes string) {
	for _, l := range liked {
		p.Liked[l] = struct{}{}
	}
	for _, d := range disliked {
		p.Disliked[d] = struct{}{}
	}
	if notes != "" {
		if p.Notes == "" {
			p.Notes = notes
		} else {
			p.Notes = p.Notes + "; " + notes
		}
	}
}

// ProductSummary is the cross-domain polymorphic record returned by any
// SearchBackend. Detail carries the domain-specific block verbatim and
// opaque to the core.
type ProductSummary struct {
	ID            string
	ProductType   domain.Domain
	Name          string
	Brand         string
	PriceMinor    int64 // smallest-unit integer, e.g. cents
	Currency      string
	ImageURL      string
	Available     bool
	Rating        float64
	ReviewsCount  int
	Description   string
	Detail        map[string]any // domain-specific block, opaque to the core
}

// MaxConversationLen bounds the per-session conversation log (spec.md: "N >= 10").
const MaxConversationLen = 20

// DefaultKLimit matches config's DEFAULT_K_LIMIT default; New substitutes it
// when given a negative k_limit.
const DefaultKLimit = 3

// SessionState is the per-conversation mutable record.
type SessionState struct {
	SessionID string

	Stage        Stage
	ActiveDomain domain.Domain

	Filters         map[string]FilterValue
	SoftPreferences SoftPreferences

	QuestionsAsked []string
	QuestionCount  int
	KLimit         int

	Conversation []Message

	LastResults []ProductSummary
	Favorites   map[string]struct{}

	SessionIntent SessionIntent
	StepIntent    StepIntent

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a fresh session in the initial INTERVIEW stage.
func New(sessionID string, kLimit int, now time.Time) *SessionState {
	if kLimit <= 0 && kLimit != 0 {
		kLimit = DefaultKLimit
	}
	return &SessionState{
		SessionID:       sessionID,
		Stage:           StageInterview,
		ActiveDomain:    domain.Unknown,
		Filters:         map[string]FilterValue{},
		SoftPreferences: newSoftPreferences(),
		Favorites:       map[string]struct{}{},
		KLimit:          kLimit,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AppendMessage appends a turn to the conversation log, dropping the oldest
// entries once MaxConversationLen is exceeded (spec.md §9: capped, not
// summarized).
func (s *SessionState) AppendMessage(role, text string, now time.Time) {
	s.Conversation = append(s.Conversation, Message{Role: role, Text: text, At: now})
	if len(s.Conversation) > MaxConversationLen {
		s.Conversation = s.Conversation[len(s.Conversation)-MaxConversationLen:]
	}
}

// SwitchDomain clears filters/interview progress/last results, the single
// implementation of the §3 invariant "changing active_domain clears
// filters, questions_asked, question_count, and last_results", shared by
// the agent pipeline's domain-switch detection and the refinement
// classifier's domain_switch intent.
func (s *SessionState) SwitchDomain(d domain.Domain) {
	s.ActiveDomain = d
	s.Filters = map[string]FilterValue{}
	s.QuestionsAsked = nil
	s.QuestionCount = 0
	s.LastResults = nil
	if s.Stage == StageRecommendations || s.Stage == StageCheckout {
		s.Stage = StageInterview
	}
}

// ClearFilters resets filters and interview progress without changing the
// active domain (used by the refinement classifier's new_search intent).
func (s *SessionState) ClearFilters() {
	s.Filters = map[string]FilterValue{}
	s.QuestionsAsked = nil
	s.QuestionCount = 0
	s.LastResults = nil
	s.Stage = StageInterview
}

// HasAsked reports whether slotKey has already been asked in this session.
func (s *SessionState) HasAsked(slotKey string) bool {
	for _, k := range s.QuestionsAsked {
		if k == slotKey {
			return true
		}
	}
	return false
}

// Clone returns a deep-enough copy for safe external exposure (GET /session).
func (s *SessionState) Clone() *SessionState {
	c := *s
	c.Filters = make(map[string]FilterValue, len(s.Filters))
	for k, v := range s.Filters {
		c.Filters[k] = v
	}
	c.Favorites = make(map[string]struct{}, len(s.Favorites))
	for k := range s.Favorites {
		c.Favorites[k] = struct{}{}
	}
	c.QuestionsAsked = append([]string(nil), s.QuestionsAsked...)
	c.Conversation = append([]Message(nil), s.Conversation...)
	c.LastResults = append([]ProductSummary(nil), s.LastResults...)
	c.SoftPreferences = SoftPreferences{
		Liked:    copySet(s.SoftPreferences.Liked),
		Disliked: copySet(s.SoftPreferences.Disliked),
		Notes:    s.SoftPreferences.Notes,
	}
	return &c
}

func copySet(m map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
