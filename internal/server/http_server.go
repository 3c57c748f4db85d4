// Package server wires the ops handlers into an HTTP server with auth,
// metrics, and graceful shutdown.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/config"
	"github.com/campusvoice/contenttrust/internal/server/handlers"
	"github.com/campusvoice/contenttrust/internal/server/httputil"
	"github.com/campusvoice/contenttrust/internal/service/moderation"
	"github.com/campusvoice/contenttrust/pkg/auth"
	"github.com/campusvoice/contenttrust/pkg/di"
	"github.com/campusvoice/contenttrust/pkg/logger"
	"github.com/campusvoice/contenttrust/pkg/metrics"
)

const shutdownGrace = 15 * time.Second

// Server is the pipeline's HTTP front.
type Server struct {
	log  *zap.Logger
	http *http.Server
}

// New builds the server and its route table.
func New(container *di.Container, log *zap.Logger, cfg *config.Config) *Server {
	bulkCfg := moderation.BulkConfig{Workers: cfg.BulkWorkers, MaxItems: cfg.BulkMaxItems}

	mux := http.NewServeMux()
	route := func(pattern, operation string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(operation, h))
	}
	route("/api/content_ops", "content_ops", handlers.ContentOpsHandler(container, log, bulkCfg))
	route("/api/ledger_ops", "ledger_ops", handlers.LedgerOpsHandler(container, log))
	route("/api/notification_ops", "notification_ops", handlers.NotificationOpsHandler(container, log))
	route("/api/appeal_ops", "appeal_ops", handlers.AppealOpsHandler(container, log))
	route("/api/scoring_ops", "scoring_ops", handlers.ScoringOpsHandler(container, log, cfg.ScoringBatchSize))
	route("/api/audit_ops", "audit_ops", handlers.AuditOpsHandler(container, log))

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSONResponse(w, log, map[string]string{"status": "ok"})
	})

	handler := auth.Middleware(log, cfg.JWTSecret)(mux)
	return &Server{
		log: log,
		http: &http.Server{
			Addr:              ":" + cfg.AppPort,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// instrument records request durations per operation and tags the request
// context with the operation name and a request id, so downstream error logs
// carry both. An inbound X-Request-ID is honored; otherwise one is assigned.
func instrument(operation string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := logger.WithRequestID(logger.WithContext(r.Context(), operation), reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		metrics.RequestDuration.WithLabelValues(operation, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
