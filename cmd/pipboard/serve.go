package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/pipboard/internal/api"
	"github.com/newthinker/pipboard/internal/app"
	"github.com/newthinker/pipboard/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Rebuild dashboards periodically and serve them over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Initialize logger
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	components, err := app.Wire(cfg, log, reg)
	if err != nil {
		return fmt.Errorf("wiring: %w", err)
	}
	defer components.Close()

	log.Info("starting pipboard server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Strings("pairs", components.App.Pairs()),
	)

	server, err := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		MetricsPath: cfg.Metrics.Path,
	}, api.Dependencies{
		App:     components.App,
		Output:  components.Output,
		Metrics: reg,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- components.App.Start(ctx)
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down pipboard server")
	components.App.Stop()
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("rebuild loop error", zap.Error(err))
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}
