package session

import (
	"encoding/json"
	"time"

	"convorec/internal/domain"
)

// filterValueDTO is the wire shape for FilterValue: exactly one of Str/Num
// is set, mirroring the FilterValue sum type without exposing its private
// fields to the mirror's JSON codec.
type filterValueDTO struct {
	Str    string `json:"str,omitempty"`
	Num    int64  `json:"num,omitempty"`
	IsNum  bool   `json:"is_num,omitempty"`
}

func (v FilterValue) MarshalJSON() ([]byte, error) {
	dto := filterValueDTO{}
	if v.hasNum {
		dto.Num = v.num
		dto.IsNum = true
	} else {
		dto.Str = v.str
	}
	return json.Marshal(dto)
}

func (v *FilterValue) UnmarshalJSON(data []byte) error {
	var dto filterValueDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	if dto.IsNum {
		*v = IntValue(dto.Num)
	} else {
		*v = StringValue(dto.Str)
	}
	return nil
}

// sessionDTO is the wire shape persisted to the mirror (e.g. Redis). Sets
// are carried as sorted-free string slices since map keys don't round-trip
// through JSON in a stable way that matters here.
type sessionDTO struct {
	SessionID       string                 `json:"session_id"`
	Stage           Stage                  `json:"stage"`
	ActiveDomain    domain.Domain          `json:"active_domain"`
	Filters         map[string]FilterValue `json:"filters"`
	Liked           []string               `json:"liked"`
	Disliked        []string               `json:"disliked"`
	Notes           string                 `json:"notes"`
	QuestionsAsked  []string               `json:"questions_asked"`
	QuestionCount   int                    `json:"question_count"`
	KLimit          int                    `json:"k_limit"`
	Conversation    []Message              `json:"conversation"`
	LastResults     []ProductSummary       `json:"last_results"`
	Favorites       []string               `json:"favorites"`
	SessionIntent   SessionIntent          `json:"session_intent"`
	StepIntent      StepIntent             `json:"step_intent"`
	CreatedAtUnix   int64                  `json:"created_at_unix"`
	UpdatedAtUnix   int64                  `json:"updated_at_unix"`
}

// MarshalForMirror renders SessionState for the mirror store.
func (s *SessionState) MarshalForMirror() ([]byte, error) {
	dto := sessionDTO{
		SessionID:      s.SessionID,
		Stage:          s.Stage,
		ActiveDomain:   s.ActiveDomain,
		Filters:        s.Filters,
		Liked:          setToSlice(s.SoftPreferences.Liked),
		Disliked:       setToSlice(s.SoftPreferences.Disliked),
		Notes:          s.SoftPreferences.Notes,
		QuestionsAsked: s.QuestionsAsked,
		QuestionCount:  s.QuestionCount,
		KLimit:         s.KLimit,
		Conversation:   s.Conversation,
		LastResults:    s.LastResults,
		Favorites:      setToSlice(s.Favorites),
		SessionIntent:  s.SessionIntent,
		StepIntent:     s.StepIntent,
		CreatedAtUnix:  s.CreatedAt.Unix(),
		UpdatedAtUnix:  s.UpdatedAt.Unix(),
	}
	return json.Marshal(dto)
}

// UnmarshalFromMirror reconstructs a SessionState from mirror bytes.
func UnmarshalFromMirror(data []byte) (*SessionState, error) {
	var dto sessionDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	s := &SessionState{
		SessionID:      dto.SessionID,
		Stage:          dto.Stage,
		ActiveDomain:   dto.ActiveDomain,
		Filters:        dto.Filters,
		QuestionsAsked: dto.QuestionsAsked,
		QuestionCount:  dto.QuestionCount,
		KLimit:         dto.KLimit,
		Conversation:   dto.Conversation,
		LastResults:    dto.LastResults,
		Favorites:      sliceToSet(dto.Favorites),
		SessionIntent:  dto.SessionIntent,
		StepIntent:     dto.StepIntent,
		SoftPreferences: SoftPreferences{
			Liked:    sliceToSet(dto.Liked),
			Disliked: sliceToSet(dto.Disliked),
			Notes:    dto.Notes,
		},
	}
	if s.Filters == nil {
		s.Filters = map[string]FilterValue{}
	}
	s.CreatedAt = unixOrZero(dto.CreatedAtUnix)
	s.UpdatedAt = unixOrZero(dto.UpdatedAtUnix)
	return s, nil
}

func setToSlice(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sliceToSet(s []string) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for _, v := range s {
		out[v] = struct{}{}
	}
	return out
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
