package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lynkr-ai/gateway/internal/policy"
	"github.com/lynkr-ai/gateway/internal/sessions"
	"github.com/lynkr-ai/gateway/pkg/models"
)

// testServerMinimal builds a Server with only the collaborators the
// count-tokens/debug-session handlers touch, leaving the heavier
// provider/agentloop wiring (exercised instead by agentloop's own
// loop_test.go fakes) out of scope for this package's tests.
func testServerMinimal(t *testing.T) *Server {
	t.Helper()
	store := sessions.NewMemoryStore()
	sessionMgr := sessions.NewManager(store, sessions.NewLocker(0), nil)
	return &Server{
		logger:     slog.Default(),
		sessionMgr: sessionMgr,
		registry:   &clientRegistry{clients: nil},
	}
}

func TestHandleHealthReportsOKWhenNotDraining(t *testing.T) {
	srv := testServerMinimal(t)
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	srv.handleHealth(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleHealthReportsDrainingAfterShutdown(t *testing.T) {
	srv := testServerMinimal(t)
	srv.shuttingDown.Store(true)
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	srv.handleHealth(rec, req)

	if rec.Code != 503 {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleCountTokensEstimatesTokens(t *testing.T) {
	srv := testServerMinimal(t)
	body, _ := json.Marshal(models.Payload{
		Model:    "claude-test",
		Messages: []models.Message{{Role: models.RoleUser, Content: models.Content{Text: "hello there, how are you today"}}},
	})
	req := httptest.NewRequest("POST", "/v1/messages/count_tokens", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleCountTokens(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		InputTokens int `json:"input_tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.InputTokens <= 0 {
		t.Errorf("input_tokens = %d, want > 0", out.InputTokens)
	}
}

func TestHandleCountTokensRejectsGet(t *testing.T) {
	srv := testServerMinimal(t)
	req := httptest.NewRequest("GET", "/v1/messages/count_tokens", nil)
	rec := httptest.NewRecorder()

	srv.handleCountTokens(rec, req)

	if rec.Code != 405 {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleDebugSessionRequiresSessionID(t *testing.T) {
	srv := testServerMinimal(t)
	req := httptest.NewRequest("GET", "/debug/session", nil)
	rec := httptest.NewRecorder()

	srv.handleDebugSession(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleDebugSessionReturnsHistory(t *testing.T) {
	srv := testServerMinimal(t)
	session := srv.sessionMgr.GetOrCreateSession("sess-1", false)
	_, err := srv.sessionMgr.AppendTurnToSession(context.Background(), session, models.Turn{
		Role: models.RoleUser, Type: models.TurnMessage, Content: models.Content{Text: "hi"},
	})
	if err != nil {
		t.Fatal(err)
	}

	request := httptest.NewRequest("GET", "/debug/session?session_id=sess-1", nil)
	rec := httptest.NewRecorder()
	srv.handleDebugSession(rec, request)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		SessionID string `json:"session_id"`
		History   []models.Turn
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.SessionID != "sess-1" || len(out.History) != 1 {
		t.Errorf("out = %+v", out)
	}
}

func TestHandleEventLoggingBatchAcceptsEvents(t *testing.T) {
	srv := testServerMinimal(t)
	body := []byte(`{"events":[{"type":"click"},{"type":"scroll"}]}`)
	req := httptest.NewRequest("POST", "/api/event_logging/batch", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleEventLoggingBatch(rec, req)

	if rec.Code != 202 {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
}

func TestRateLimitedPassesThroughWithoutLimiter(t *testing.T) {
	srv := testServerMinimal(t)
	called := false
	handler := srv.rateLimited(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest("GET", "/v1/messages", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if !called {
		t.Fatal("expected next handler to run when no rate limiter is configured")
	}
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRateLimitedRejectsOverBurst(t *testing.T) {
	srv := testServerMinimal(t)
	srv.rateLimiter = policy.NewRateLimiter(1, 1)
	handler := srv.rateLimited(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	req := httptest.NewRequest("GET", "/v1/messages", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	first := httptest.NewRecorder()
	handler(first, req)
	if first.Code != 200 {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	handler(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
}

func TestRateLimitedKeysByRemoteAddrIndependently(t *testing.T) {
	srv := testServerMinimal(t)
	srv.rateLimiter = policy.NewRateLimiter(1, 1)
	handler := srv.rateLimited(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	reqA := httptest.NewRequest("GET", "/v1/messages", nil)
	reqA.RemoteAddr = "10.0.0.1:1234"
	recA := httptest.NewRecorder()
	handler(recA, reqA)
	if recA.Code != 200 {
		t.Fatalf("caller A status = %d, want 200", recA.Code)
	}

	reqB := httptest.NewRequest("GET", "/v1/messages", nil)
	reqB.RemoteAddr = "10.0.0.2:5678"
	recB := httptest.NewRecorder()
	handler(recB, reqB)
	if recB.Code != 200 {
		t.Fatalf("caller B status = %d, want 200 (separate bucket from caller A)", recB.Code)
	}
}

func TestResolveSessionIDPrefersHeaderOverBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/messages", nil)
	req.Header.Set("x-session-id", "from-header")

	id, ephemeral := resolveSessionID(req, "from-body")
	if id != "from-header" || ephemeral {
		t.Errorf("id = %q, ephemeral = %v", id, ephemeral)
	}
}

func TestResolveSessionIDMintsEphemeralWhenNoneSupplied(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/messages", nil)

	id, ephemeral := resolveSessionID(req)
	if id == "" || !ephemeral {
		t.Errorf("id = %q, ephemeral = %v", id, ephemeral)
	}
}
