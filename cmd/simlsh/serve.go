package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/simlsh/internal/indexsvc"
	"github.com/Sumatoshi-tech/simlsh/pkg/config"
	"github.com/Sumatoshi-tech/simlsh/pkg/observability"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP query server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceName = cfg.Observability.ServiceName
	obsCfg.Environment = cfg.Observability.Environment
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.SampleRatio = cfg.Observability.SampleRatio
	obsCfg.LogJSON = cfg.Logging.Format == "json"
	obsCfg.Mode = observability.ModeServe

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(obsCfg.ShutdownTimeoutSec)*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	indexMetrics, err := observability.NewIndexMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("init index metrics: %w", err)
	}

	svc, err := indexsvc.New(cfg.Index, cfg.Ingest, indexMetrics)
	if err != nil {
		return fmt.Errorf("build index service: %w", err)
	}

	srv := &server{svc: svc, cfg: cfg, logger: providers.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/ingest", srv.handleIngest)
	mux.HandleFunc("/query", srv.handleQuery)
	mux.Handle("/healthz", observability.HealthHandler())
	mux.Handle("/readyz", observability.ReadyHandler())

	promHandler, err := observability.PrometheusHandler()
	if err != nil {
		return fmt.Errorf("init prometheus handler: %w", err)
	}

	mux.Handle("/metrics", promHandler)

	handler := observability.HTTPMiddleware(providers.Tracer, providers.Logger, mux)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return runUntilSignal(httpServer, providers)
}

func runUntilSignal(httpServer *http.Server, providers observability.Providers) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		providers.Logger.Info("simlsh serve listening", "addr", httpServer.Addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

const serverShutdownTimeout = 10 * time.Second

type server struct {
	svc    *indexsvc.Service
	cfg    *config.Config
	logger interface {
		Error(msg string, args ...any)
	}
}

func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	maxCardinality := req.MaxCardinality
	if maxCardinality <= 0 {
		maxCardinality = s.cfg.Ingest.MaxCardinalityPreview
	}

	infos, err := s.svc.IngestGlob(r.Context(), req.Pattern, maxCardinality)
	if err != nil {
		s.logger.Error("ingest failed", "error", err, "pattern", req.Pattern)
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	writeJSON(w, infos)
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id parameter", http.StatusBadRequest)

		return
	}

	matches, err := s.svc.Query(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)

		return
	}

	writeJSON(w, matches)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(w).Encode(v)
}
