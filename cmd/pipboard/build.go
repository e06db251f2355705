package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/newthinker/pipboard/internal/app"
	"github.com/newthinker/pipboard/internal/dashboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var forceBuild bool

var buildCmd = &cobra.Command{
	Use:   "build [pair...]",
	Short: "Build and publish dashboards once",
	Long: `Build the dashboards of the named pairs, or of every configured pair,
and publish them. Pairs without new ticks since their last build are skipped
unless --force is given.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&forceBuild, "force", "f", false, "rebuild even without new ticks")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	components, err := app.Wire(cfg, log, nil)
	if err != nil {
		return fmt.Errorf("wiring: %w", err)
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := components.App.RunOnce(ctx, forceBuild, args...)
	if len(results) > 0 {
		dashboard.WriteSummary(os.Stdout, results)
	} else if err == nil {
		log.Info("nothing to build, dashboards are up to date")
	}
	if err != nil {
		log.Error("build failed", zap.Error(err))
		return err
	}
	return nil
}
