package main

import (
	"fmt"
	"strings"

	"github.com/newthinker/pipboard/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var notifyCmd = &cobra.Command{
	Use:   "notify [notifier...]",
	Short: "Send a test alert through the configured notifiers",
	RunE:  runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}

func runNotify(cmd *cobra.Command, args []string) error {
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

	names := make([]string, 0)
	for _, n := range components.App.Notifiers() {
		names = append(names, n.Name())
	}
	if len(names) == 0 {
		return fmt.Errorf("no notifiers enabled")
	}

	if err := components.App.TestNotifiers(args...); err != nil {
		log.Error("notifier test failed", zap.Error(err))
		return err
	}
	if len(args) > 0 {
		names = args
	}
	fmt.Fprintf(cmd.OutOrStdout(), "test alert sent via %s\n", strings.Join(names, ", "))
	return nil
}
