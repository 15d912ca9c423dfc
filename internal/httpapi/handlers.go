// Package httpapi implements spec.md §6.1's HTTP surface: the four core
// endpoints plus thin cart/product-detail pass-throughs, routed through chi
// exactly like the teacher's internal/httpserver.NewRouter, reusing
// RequestID, Recover, and a generalized Logging middleware.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"convorec/internal/cart"
	"convorec/internal/orchestrator"
	"convorec/internal/research"
	"convorec/internal/session"
)

// Handler bundles the collaborators every HTTP endpoint needs.
type Handler struct {
	orch     *orchestrator.Orchestrator
	store    session.Store
	cart     cart.Client
	research research.Client
	backends map[string]bool // name -> healthy, surfaced on GET /health
}

// New wires a Handler.
func New(orch *orchestrator.Orchestrator, store session.Store, cartClient cart.Client, researchClient research.Client, backends map[string]bool) *Handler {
	return &Handler{orch: orch, store: store, cart: cartClient, research: researchClient, backends: backends}
}

type chatRequest struct {
	Message     string             `json:"message"`
	SessionID   string             `json:"session_id,omitempty"`
	K           *int               `json:"k,omitempty"`
	UserActions []userActionWire   `json:"user_actions,omitempty"`
}

type userActionWire struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
}

type chatResponse struct {
	ResponseType    string                 `json:"response_type"`
	Message         string                 `json:"message"`
	Domain          string                 `json:"domain,omitempty"`
	Rows            []rowWire              `json:"rows,omitempty"`
	QuickReplies    []string               `json:"quick_replies,omitempty"`
	FiltersSnapshot map[string]string      `json:"filters_snapshot,omitempty"`
	QuestionCount   int                    `json:"question_count"`
	SessionID       string                 `json:"session_id"`
	Trace           TraceEnvelope          `json:"trace"`
}

type rowWire struct {
	Label string                    `json:"label"`
	Items []session.ProductSummary `json:"items"`
}

// HandleChat implements POST /chat (spec.md §6.1).
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, CodeValidationError, "invalid request body")
		return
	}
	if req.Message == "" {
		writeJSONError(w, http.StatusBadRequest, CodeValidationError, "message is required")
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = requestID
	}

	actions := make([]orchestrator.UserAction, 0, len(req.UserActions))
	for _, a := range req.UserActions {
		actions = append(actions, orchestrator.UserAction{Type: a.Type, ProductID: a.ProductID})
	}

	result, err := h.orch.HandleTurn(r.Context(), requestID, sessionID, req.Message, req.K, actions)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			writeJSONError(w, http.StatusGatewayTimeout, CodeBackendUnavailable, "turn exceeded its budget")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, CodeInternalError, "internal error handling turn")
		return
	}

	rows := make([]rowWire, 0, len(result.Rows))
	for _, row := range result.Rows {
		rows = append(rows, rowWire{Label: row.Label, Items: row.Items})
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ResponseType:    string(result.ResponseType),
		Message:         result.Message,
		Domain:          string(result.Domain),
		Rows:            rows,
		QuickReplies:    result.QuickReplies,
		FiltersSnapshot: result.FiltersSnapshot,
		QuestionCount:   result.QuestionCount,
		SessionID:       result.SessionID,
		Trace:           traceFrom(requestID, result.Trace),
	})
}

// HandleGetSession implements GET /session/{id} (spec.md §6.1): a redacted
// view of session state, no internal lock or mirror details exposed.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.store.Load(r.Context(), id)
	if !ok {
		s, ok = h.store.Recall(r.Context(), id)
	}
	if !ok {
		writeJSONError(w, http.StatusNotFound, CodeValidationError, "session not found")
		return
	}
	snapshot := s.Clone()

	filters := make(map[string]string, len(snapshot.Filters))
	for k, v := range snapshot.Filters {
		filters[k] = v.String()
	}
	favorites := make([]string, 0, len(snapshot.Favorites))
	for id := range snapshot.Favorites {
		favorites = append(favorites, id)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":      snapshot.SessionID,
		"stage":           snapshot.Stage,
		"active_domain":   snapshot.ActiveDomain,
		"filters":         filters,
		"favorites":       favorites,
		"question_count":  snapshot.QuestionCount,
		"k_limit":         snapshot.KLimit,
		"last_result_ids": productIDs(snapshot.LastResults),
	})
}

func productIDs(results []session.ProductSummary) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

// HandleResetSession implements POST /session/reset (spec.md §6.1).
func (h *Handler) HandleResetSession(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeJSONError(w, http.StatusBadRequest, CodeValidationError, "session_id is required")
		return
	}
	if err := h.store.Delete(r.Context(), req.SessionID); err != nil {
		writeJSONError(w, http.StatusInternalServerError, CodeInternalError, "failed to reset session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleHealth implements GET /health (spec.md §6.1).
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"backends": h.backends,
	})
}

type cartActionRequest struct {
	SessionID  string   `json:"session_id"`
	ProductIDs []string `json:"product_ids"`
}

// HandleCartAction builds the thin POST /cart/{favorite,add,checkout}
// pass-throughs (spec.md §6.1: "exist but are thin pass-throughs").
func (h *Handler) HandleCartAction(action cart.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.cart == nil {
			writeJSONError(w, http.StatusServiceUnavailable, CodeBackendUnavailable, "no cart service configured")
			return
		}
		var req cartActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, CodeValidationError, "invalid request body")
			return
		}
		result, err := h.cart.Apply(r.Context(), req.SessionID, action, req.ProductIDs)
		if err != nil {
			writeJSONError(w, http.StatusBadGateway, CodeBackendUnavailable, "cart service unavailable")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// HandleProductDetail implements GET /product/{id}, a thin pass-through to
// the research collaborator (spec.md §6.1).
func (h *Handler) HandleProductDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.research == nil {
		writeJSONError(w, http.StatusServiceUnavailable, CodeBackendUnavailable, "no research service configured")
		return
	}
	infos, err := h.research.Lookup(r.Context(), []string{id})
	if err != nil || len(infos) == 0 {
		writeJSONError(w, http.StatusNotFound, CodeValidationError, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, infos[0])
}
