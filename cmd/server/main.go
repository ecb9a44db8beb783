package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/analyzer"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/config"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/httpx"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/ingest"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/metrics"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/nlp"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/store"
)

func main() {
	cfg := config.FromEnv()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defaults, err := config.LoadThresholds(cfg.ThresholdsFile)
	if err != nil {
		logger.Error("thresholds file", slog.String("path", cfg.ThresholdsFile), slog.String("err", err.Error()))
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewRecorder(reg)

	st := store.NewMemoryStore()
	pipe := analyzer.NewPipeline(logger, rec, ingest.FailFast, runtime.NumCPU())
	tr := nlp.NewTranslator(newCollaborator(ctx, cfg, logger), cfg.TranslateTimeout, logger)

	r := httpx.NewRouter(httpx.Deps{
		Log:            logger,
		Pipeline:       pipe,
		Store:          st,
		Translator:     tr,
		Recorder:       rec,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Defaults:       defaults,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	go sweep(ctx, st, cfg.SessionTTL, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", slog.String("port", cfg.Port), slog.String("llm", cfg.LLMProvider))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func newCollaborator(ctx context.Context, cfg config.Config, logger *slog.Logger) nlp.Collaborator {
	switch cfg.LLMProvider {
	case "openai":
		return nlp.NewOpenAICollaborator(nlp.NewHTTPClient(cfg.HTTPTimeout), cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLMModel)
	case "gemini":
		g, err := nlp.NewGeminiCollaborator(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			logger.Warn("natural-language filtering disabled", slog.String("err", err.Error()))
			return nil
		}
		return g
	}
	logger.Info("natural-language filtering disabled", slog.String("provider", cfg.LLMProvider))
	return nil
}

// sweep disposes of sessions older than ttl until ctx ends.
func sweep(ctx context.Context, st *store.MemoryStore, ttl time.Duration, logger *slog.Logger) {
	t := time.NewTicker(ttl / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := st.Sweep(ttl); n > 0 {
				logger.Info("sessions expired", slog.Int("count", n), slog.Int("live", st.Len()))
			}
		}
	}
}
