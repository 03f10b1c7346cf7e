package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/tblmaker/internal/api"
	"github.com/dgallion1/tblmaker/internal/config"
	"github.com/dgallion1/tblmaker/internal/convert"
	"github.com/dgallion1/tblmaker/internal/creatium"
	"github.com/dgallion1/tblmaker/internal/logging"
	"github.com/dgallion1/tblmaker/internal/metrics"
	"github.com/dgallion1/tblmaker/internal/render"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("server failed", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is done. Every resource it opens is released before it
// returns.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, logCloser := logging.New(cfg)
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	templates, err := creatium.NewStore(cfg.TemplatePath, log)
	if err != nil {
		log.Error("load template", "path", cfg.TemplatePath, "error", err)
		return fmt.Errorf("load template: %w", err)
	}
	if cfg.WatchTemplate {
		if err := templates.Watch(ctx); err != nil {
			log.Warn("template watch disabled", "error", err)
		}
	}

	renderer := render.Renderer{}
	if cfg.EscapeHTML {
		renderer.Escape = render.HTMLEscape
	}

	m := metrics.New()
	conv := convert.NewConverter(templates, renderer, m, convert.NewStats(cfg.StatsWindow), log)

	results := convert.NewResultStore(cfg.ResultTTL)
	results.StartCleanup(ctx, cfg.CleanupInterval)

	srv := api.NewServer(conv, results, m, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting tblmaker", "port", cfg.Port, "template", cfg.TemplatePath, "escape_html", cfg.EscapeHTML)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
