package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/bddgen/internal/api"
	"github.com/dgallion1/bddgen/internal/config"
	"github.com/dgallion1/bddgen/internal/engine"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Feature writer: Claude when configured, rules otherwise.
	var (
		writer engine.FeatureWriter = engine.RuleWriter{}
		claude *engine.ClaudeClient
	)
	if cfg.LLMEnabled() {
		claude = engine.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.LLMStatsWindow)
		writer = engine.NewClaudeWriter(claude, log)
		log.Info("llm feature writer enabled", "model", cfg.AnthropicModel)
	}

	srv := api.NewServer(writer, claude, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if claude != nil {
			claude.Close()
		}
	}()

	log.Info("starting bddgen service", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
