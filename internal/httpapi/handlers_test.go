package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"convorec/internal/diversify"
	"convorec/internal/domain"
	"convorec/internal/orchestrator"
	"convorec/internal/pipeline"
	"convorec/internal/refine"
	"convorec/internal/search"
	"convorec/internal/session"
	"convorec/internal/validate"
)

func newTestRouter() http.Handler {
	registry := domain.NewRegistry()
	dispatcher := search.NewDispatcher(registry, search.Registry{}, 9, 8)
	pipe := pipeline.New(nil, "", registry, dispatcher, diversify.New())
	refiner := refine.New(nil, "", registry, nil, nil)
	store := session.NewMemoryStore(0, nil, nil)
	validator := validate.New(nil, "")
	orch := orchestrator.New(store, validator, pipe, refiner, 2*time.Second, 3)

	h := New(orch, store, nil, nil, map[string]bool{})
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewRouter(RouterDeps{Logger: logger, Handler: h})
}

func TestHandleChat_ReturnsEnvelopeWithTrace(t *testing.T) {
	router := newTestRouter()

	body, _ := json.Marshal(map[string]any{"message": "hi", "session_id": "s1"})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Trace.RequestID == "" {
		t.Fatalf("expected a non-empty request id in the trace")
	}
	if len(resp.QuickReplies) == 0 {
		t.Fatalf("expected quick replies for a greeting")
	}
}

func TestHandleChat_EmptyMessageIsValidationError(t *testing.T) {
	router := newTestRouter()

	body, _ := json.Marshal(map[string]any{"message": ""})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if env.Error.Code != CodeValidationError {
		t.Fatalf("expected %s, got %s", CodeValidationError, env.Error.Code)
	}
}

func TestHandleGetSession_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/session/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleResetSession_OK(t *testing.T) {
	router := newTestRouter()

	body, _ := json.Marshal(map[string]any{"session_id": "s2"})
	req := httptest.NewRequest(http.MethodPost, "/session/reset", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleHealth_ReportsBackends(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
}

func TestHandleCartAction_NoCartServiceConfigured(t *testing.T) {
	router := newTestRouter()

	body, _ := json.Marshal(map[string]any{"session_id": "s1", "product_ids": []string{"p1"}})
	req := httptest.NewRequest(http.MethodPost, "/cart/favorite", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
