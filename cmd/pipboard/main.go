package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/newthinker/pipboard/internal/config"
	"github.com/newthinker/pipboard/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "pipboard",
	Short: "pipboard - static FX strategy dashboards",
	Long: `pipboard renders rate and PnL dashboards for FX trading strategies
and publishes them as static pages to S3 or a local directory.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// a missing .env file is not an error
		if envFile != "" {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// loadConfig reads and validates the config file. Without one the USD/JPY
// dashboard is built from ./input into ./output.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		pair := config.DefaultPair()
		pair.Source.Archive = config.ArchiveSourceConfig{Type: "localfs", Path: "./input"}
		pair.Pages = config.PagesConfig{
			Dashboard: pair.Key + "_dashboard_index.html",
			PnLOnly:   pair.Key + "_pnl_chart_only.html",
			Snapshot:  pair.Key + "_pnl.png",
		}
		cfg.Pairs = []config.PairConfig{pair}
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger from the log section, before the rest of the
// config is validated.
func newLogger() (*zap.Logger, error) {
	if cfgFile == "" {
		return logger.New(debug)
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return logger.New(debug)
	}
	return logger.NewWithFile(debug || cfg.Log.Development, logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   true,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
