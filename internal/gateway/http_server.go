package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/lynkr-ai/gateway/internal/agentloop"
	agentcontext "github.com/lynkr-ai/gateway/internal/context"
	"github.com/lynkr-ai/gateway/internal/httpapi"
	"github.com/lynkr-ai/gateway/internal/observability"
	"github.com/lynkr-ai/gateway/internal/routing"
	"github.com/lynkr-ai/gateway/pkg/models"
)

// sessionHeaderCandidates lists the request headers checked, in order, for
// a caller-supplied session identifier before falling back to a body field
// or minting a fresh ephemeral one.
var sessionHeaderCandidates = []string{
	"x-session-id", "x-claude-session-id", "x-claude-session",
	"x-claude-conversation-id", "anthropic-session-id",
}

// mux builds the HTTP routing table. Grounded on the teacher's plain
// http.NewServeMux + per-path handler style (http_server.go), rather than
// a third-party router: every route here is either a single POST body
// handler or a status probe, which stdlib's mux resolves without a pattern
// library.
func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))
	mux.Handle("/v1/messages", s.authenticated("/v1/messages", s.handleMessages))
	mux.Handle("/v1/messages/count_tokens", s.authenticated("/v1/messages/count_tokens", s.handleCountTokens))
	mux.Handle("/debug/session", s.authenticated("/debug/session", s.handleDebugSession))
	mux.Handle("/api/event_logging/batch", s.authenticated("/api/event_logging/batch", s.handleEventLoggingBatch))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// authenticated wraps a conversational/debug handler with the bearer-JWT-
// or-API-key middleware, then a per-caller rate limit, then the existing
// request metrics wrapper. /health and /metrics stay open so liveness
// probes and scrape targets don't need credentials.
func (s *Server) authenticated(pattern string, next http.HandlerFunc) http.Handler {
	metered := s.withMetrics(pattern, next)
	limited := s.rateLimited(metered)
	return httpapi.Middleware(s.auth, s.logger)(limited)
}

// rateLimited gates next behind s.rateLimiter, keyed by the authenticated
// principal's subject (falling back to the remote address when auth is
// disabled). A nil rateLimiter is a no-op, matching this package's existing
// nil-guard convention for every optional collaborator.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next(w, r)
			return
		}
		key := r.RemoteAddr
		if p := httpapi.PrincipalFromContext(r.Context()); p != nil {
			key = p.Subject
		}
		if !s.rateLimiter.Allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next(w, r)
	}
}

// withMetrics records gateway_http_request_duration_seconds/_total for the
// wrapped handler, labeled by the fixed route pattern rather than the raw
// URL path so cardinality stays bounded.
func (s *Server) withMetrics(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, pattern, strconv.Itoa(rec.status), time.Since(start).Seconds())
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := "ok"
	code := http.StatusOK
	if s.shuttingDown.Load() {
		status = "draining"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"providers": s.registry.names(),
	})
}

// handleMessages is the gateway's single conversational entry point: it
// resolves/creates a session, runs the agent loop to completion, and
// returns the final response with routing decision headers attached.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var payload models.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	var sessionFields struct {
		SessionID      string `json:"session_id"`
		SessionIDAlt   string `json:"sessionId"`
		ConversationID string `json:"conversation_id"`
	}
	_ = json.Unmarshal(raw, &sessionFields)

	sessionID, ephemeral := resolveSessionID(r, sessionFields.SessionID, sessionFields.SessionIDAlt, sessionFields.ConversationID)
	session := s.sessionMgr.GetOrCreateSession(sessionID, ephemeral)

	ctx := r.Context()
	if s.obsLogger != nil {
		ctx = observability.AddSessionID(ctx, session.ID)
	}
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "handle_messages")
		defer span.End()
		s.tracer.SetAttributes(span, "session_id", session.ID, "model", payload.Model)
	}

	if err := s.sessionMgr.Lock(ctx, session.ID); err != nil {
		writeError(w, http.StatusConflict, "session_locked", err.Error())
		return
	}
	defer s.sessionMgr.Unlock(session.ID)

	if s.obsLogger != nil {
		s.obsLogger.WithContext(ctx).Info(ctx, "processing message", "model", payload.Model)
	}

	result := agentloop.ProcessMessage(ctx, s.deps, &payload, session, agentloop.Options{})

	w.Header().Set("X-Session-Id", session.ID)
	if result.Routing != (models.RoutingDecision{}) {
		routing.ApplyHeaders(w.Header(), result.Routing)
		if s.metrics != nil {
			s.metrics.RecordRoutingDecision(string(result.Routing.Tier), string(result.Routing.Method))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Status)
	if result.Response != nil {
		_ = json.NewEncoder(w).Encode(result.Response)
	} else {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":             true,
			"termination_reason": result.TerminationReason,
		})
	}
}

// handleCountTokens estimates the shaped request's token cost without
// invoking a provider, using the same EstimateTokens heuristic the context
// shaper's budget step uses internally.
func (s *Server) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}
	var payload models.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	tokens := agentcontext.EstimateTokens(payload.System, payload.Tools, payload.Messages)
	writeJSON(w, http.StatusOK, map[string]any{"input_tokens": tokens})
}

// handleDebugSession returns the in-memory turn history for a session,
// used by operators to inspect what the agent loop persisted.
func (s *Server) handleDebugSession(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id", "session_id query parameter is required")
		return
	}
	session := s.sessionMgr.GetOrCreateSession(id, false)
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": session.ID,
		"created_at": session.CreatedAt,
		"updated_at": session.UpdatedAt,
		"ephemeral":  session.Ephemeral,
		"history":    session.History,
	})
}

// handleEventLoggingBatch accepts a batch of client-observed UI events for
// audit/telemetry correlation. The gateway itself doesn't interpret their
// contents; it validates that the body decodes as an events batch and
// replies 202 with the number of events accepted. The events are neither
// stored nor forwarded anywhere.
func (s *Server) handleEventLoggingBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}
	var batch struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": len(batch.Events)})
}

// resolveSessionID checks header candidates in priority order, then the
// decoded body's session/conversation id fields, and mints a fresh UUID
// marked ephemeral if none was supplied.
func resolveSessionID(r *http.Request, bodyFields ...string) (id string, ephemeral bool) {
	for _, h := range sessionHeaderCandidates {
		if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
			return v, false
		}
	}
	for _, v := range bodyFields {
		if strings.TrimSpace(v) != "" {
			return v, false
		}
	}
	return uuid.NewString(), true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func (r *clientRegistry) names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}
