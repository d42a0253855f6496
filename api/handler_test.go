package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relaylabs/agentrelay/agent/agents"
	contractx "github.com/relaylabs/agentrelay/agent/contract"
	"github.com/relaylabs/agentrelay/agent/history"
	"github.com/relaylabs/agentrelay/agent/moderation"
	orchestratorx "github.com/relaylabs/agentrelay/agent/orchestrator"
	routerx "github.com/relaylabs/agentrelay/agent/router"
)

type cannedCompleter struct {
	responses map[contractx.CompletionPurpose]string
}

func (f *cannedCompleter) Complete(ctx context.Context, req contractx.CompletionRequest) (string, error) {
	if resp, ok := f.responses[req.Purpose]; ok {
		return resp, nil
	}
	return "", errors.New("unexpected completion purpose")
}

type unavailableDriver struct{}

func (d *unavailableDriver) Load(ctx context.Context, userID string) (*history.Entry, error) {
	return nil, errors.New("connection refused")
}

func (d *unavailableDriver) Save(ctx context.Context, entry *history.Entry) error {
	return errors.New("connection refused")
}

func (d *unavailableDriver) Delete(ctx context.Context, userID string) error {
	return errors.New("connection refused")
}

func (d *unavailableDriver) Close() error { return nil }

func newTestHandler(t *testing.T, driver history.Driver) http.Handler {
	t.Helper()

	completer := &cannedCompleter{responses: map[contractx.CompletionPurpose]string{
		contractx.PurposeRouting:    `{"agent": "conversation", "confidence": 0.7}`,
		contractx.PurposeResponse:   "glad to chat",
		contractx.PurposeSummary:    "a summary",
		contractx.PurposeModeration: `{"allowed": true}`,
	}}

	pool, err := agents.NewPool(completer, nil, nil, agents.Config{})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	if driver == nil {
		driver, err = history.NewDriver(history.DriverMemory)
		if err != nil {
			t.Fatalf("NewDriver() error = %v", err)
		}
	}
	store, err := history.NewTieredStore(driver, pool.Summarizer(), history.Config{})
	if err != nil {
		t.Fatalf("NewTieredStore() error = %v", err)
	}

	orc, err := orchestratorx.New(
		store,
		routerx.New(completer, "route", routerx.Config{}),
		pool,
		moderation.NewGate(moderation.NewLLMClassifier(completer, "moderate"), moderation.Config{}),
	)
	if err != nil {
		t.Fatalf("orchestrator.New() error = %v", err)
	}
	return NewHandler(orc).Routes()
}

func postChat(t *testing.T, handler http.Handler, userID, message string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]string{"user_id": userID, "message": message})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil)

	rec := postChat(t, handler, "u1", "Hello there!")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result contractx.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.AgentUsed != contractx.AgentConversation {
		t.Fatalf("expected conversation agent, got %s", result.AgentUsed)
	}
	if result.Response != "glad to chat" {
		t.Fatalf("unexpected response: %q", result.Response)
	}
}

func TestChatRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("{not json")))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatRejectsEmptyUser(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil)

	if rec := postChat(t, handler, "  ", "hello"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty user, got %d", rec.Code)
	}
	if rec := postChat(t, handler, "u1", "  "); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", rec.Code)
	}
}

func TestHistoryLifecycle(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil)

	if rec := postChat(t, handler, "u1", "Hello there!"); rec.Code != http.StatusOK {
		t.Fatalf("chat failed: %d", rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history/u1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from history, got %d", rec.Code)
	}
	var view orchestratorx.HistoryView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(view.Session) != 2 {
		t.Fatalf("expected 2 session turns, got %d", len(view.Session))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/history/u1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from delete, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/u1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from stats, got %d", rec.Code)
	}
	var stats history.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.SessionTurns != 0 || stats.MidTermTurns != 0 {
		t.Fatalf("expected zeroed stats after clear, got %+v", stats)
	}
}

func TestHistoryUnavailableMapsTo503(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &unavailableDriver{})

	if rec := postChat(t, handler, "u1", "Hello there!"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history/u1", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from history, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
