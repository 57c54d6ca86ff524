// Package server exposes the agent over HTTP: the payment/chat endpoint
// plus health and knowledge-introspection routes. All state lives in the
// underlying services; handlers are thin JSON adapters.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitwit/enspay/chat"
	"github.com/vitwit/enspay/knowledge"
	"github.com/vitwit/enspay/logger"
	"github.com/vitwit/enspay/payment"
	"github.com/vitwit/enspay/types"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	agentName       = "enspay"
	agentVersion    = "1.0.0"
)

type Server struct {
	orchestrator *payment.Orchestrator
	chat         *chat.Handler
	store        *knowledge.Store
	validate     *validator.Validate
	defaultChain int64
	log          logger.Logger
	metrics      bool

	httpServer *http.Server
}

func New(orch *payment.Orchestrator, chatHandler *chat.Handler, store *knowledge.Store, defaultChain int64, log logger.Logger, enableMetrics bool) *Server {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Server{
		orchestrator: orch,
		chat:         chatHandler,
		store:        store,
		validate:     validator.New(),
		defaultChain: defaultChain,
		log:          log,
		metrics:      enableMetrics,
	}
}

// Handler builds the route table. Exposed separately from Serve so tests
// can drive it with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /endpoint", s.handleEndpoint)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /knowledge-graph", s.handleKnowledgeGraph)
	mux.HandleFunc("POST /metta-query", s.handleQuery)
	mux.HandleFunc("POST /add-fact", s.handleAddFact)
	mux.HandleFunc("GET /recent-reasoning", s.handleRecentReasoning)
	if s.metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	return s.withRequestID(mux)
}

// Serve blocks until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  requestTimeout,
		WriteTimeout: requestTimeout,
		IdleTimeout:  2 * requestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.log.Info("http server listening", map[string]any{"addr": addr})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	stats := s.store.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":   agentName,
		"version": agentVersion,
		"status":  "running",
		"endpoints": map[string]string{
			"POST /endpoint": "payment processing and chat",
			"GET /health": "health check",
			"GET /knowledge-graph": "full fact log and caches",
			"POST /metta-query": "raw knowledge query",
			"POST /add-fact": "manual fact injection",
			"GET /recent-reasoning": "recent reasoning trail",
		},
		"knowledge": map[string]int{
			"facts": stats.Facts,
			"rules": stats.Rules,
		},
	})
}

// handleEndpoint accepts either a PaymentRequest (has "prompt") or a
// ChatMessage (has "message") and dispatches accordingly.
func (s *Server) handleEndpoint(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON body"})
		return
	}

	switch {
	case hasKey(raw, "prompt"):
		s.servePayment(ctx, w, raw)
	case hasKey(raw, "message"):
		s.serveChat(ctx, w, raw)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "send a PaymentRequest with prompt, user_address, chain_id or a ChatMessage with message",
		})
	}
}

func (s *Server) servePayment(ctx context.Context, w http.ResponseWriter, raw map[string]json.RawMessage) {
	req, err := decodeAs[types.PaymentRequest](raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "malformed payment request"})
		return
	}
	if req.ChainID == 0 {
		req.ChainID = s.defaultChain
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}

	result := s.orchestrator.HandlePaymentRequest(ctx, req.Prompt, req.UserAddress, req.ChainID)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) serveChat(ctx context.Context, w http.ResponseWriter, raw map[string]json.RawMessage) {
	msg, err := decodeAs[types.ChatMessage](raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "malformed chat message"})
		return
	}
	if err := s.validate.Struct(msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}

	reply := s.chat.HandleMessage(ctx, msg)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.store.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"agent":   agentName,
		"version": agentVersion,
		"knowledge_graph": map[string]int{
			"facts":           stats.Facts,
			"rules":           stats.Rules,
			"ens_cached":      stats.Aliases,
			"balances_cached": stats.Balances,
		},
	})
}

func (s *Server) handleKnowledgeGraph(w http.ResponseWriter, _ *http.Request) {
	stats := s.store.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"facts":         s.store.Facts(),
		"rules":         s.store.Rules(),
		"total_facts":   stats.Facts,
		"total_rules":   stats.Rules,
		"ens_cache":     s.store.Aliases(),
		"balance_cache": s.store.Balances(),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "query parameter required"})
		return
	}

	results := s.store.Query(body.Query)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":                body.Query,
		"results":              results,
		"knowledge_graph_size": s.store.Stats().Facts,
	})
}

func (s *Server) handleAddFact(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fact string `json:"fact"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Fact == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "fact parameter required"})
		return
	}

	s.store.AddFact(body.Fact)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"fact_added":  body.Fact,
		"total_facts": s.store.Stats().Facts,
	})
}

func (s *Server) handleRecentReasoning(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"recent_facts": s.store.Recent(20),
		"sample_queries": []string{
			"(query (can-pay 0xabc 5))",
			"(query (resolve-ens vitalik.eth))",
			"(query (payment-safe 0xabc 5 vitalik.eth))",
			"(query (suspicious-pattern 0xabc 2000))",
		},
	})
}

func hasKey(raw map[string]json.RawMessage, key string) bool {
	_, ok := raw[key]
	return ok
}

func decodeAs[T any](raw map[string]json.RawMessage) (T, error) {
	var out T
	buf, err := json.Marshal(raw)
	if err != nil {
		return out, err
	}
	return out, json.Unmarshal(buf, &out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
