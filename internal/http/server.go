package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"mailledger/internal/core"
	"mailledger/internal/log"
	"mailledger/internal/middleware/ratelimit"
	"mailledger/internal/middleware/security"
	"mailledger/internal/middleware/trace"
)

// Ledger is the ledger surface the API exposes.
type Ledger interface {
	List(ctx context.Context) ([]core.Transaction, error)
	Update(ctx context.Context, id string, tx core.Transaction) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Summary(ctx context.Context) (core.Summary, error)
	Categories() map[string]string
	SetCategories(ctx context.Context, mappings map[string]string) error
	Ready() error
}

// Ingester runs mailbox ingestion.
type Ingester interface {
	Institutions() []string
	Sync(ctx context.Context) (core.SyncResult, error)
	Backfill(ctx context.Context, start, end time.Time) (core.SyncResult, error)
}

// Options configures NewServer.
type Options struct {
	Addr              string
	APIKey            string
	RequestsPerMinute int
	Logger            *log.Logger
}

type Server struct {
	http.Server
	ledger   Ledger
	ingest   Ingester
	started  time.Time
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// Paths reachable without an API key.
var publicPaths = []string{"/healthz", "/readyz"}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options, ledger Ledger, ingest Ingester) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}

	detector := security.NewDetector()
	s := &Server{
		ledger:   ledger,
		ingest:   ingest,
		started:  time.Now(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /sync", s.handleSync)
	mux.HandleFunc("POST /backfill", s.handleBackfill)
	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("GET /transactions/summary", s.handleSummary)
	mux.HandleFunc("PUT /transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /categories", s.handleGetCategories)
	mux.HandleFunc("PUT /categories", s.handlePutCategories)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimit,
		http.MethodPost, http.MethodPut, http.MethodDelete)(handler)
	handler = security.NewAPIKeyMiddleware(opts.APIKey, detector, publicPaths...).Middleware(handler)
	handler = s.withDetection(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Backfill over a wide range can take minutes.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

// withDetection logs requests that look like probes. They are still served.
func (s *Server) withDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown stops background goroutines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
