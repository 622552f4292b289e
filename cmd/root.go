package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthigger/oh-sched-web/internal/config"
	"github.com/matthigger/oh-sched-web/pkg/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "oh-sched-web",
	Short:         "Web front-end for the office-hours scheduler",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (overrides OHSCHED_CONFIG)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig loads configuration and prepares the global logger from it.
func loadConfig(ctx context.Context) (*config.Config, logger.Logger, error) {
	if cfgPath != "" {
		if err := os.Setenv("OHSCHED_CONFIG", cfgPath); err != nil {
			return nil, nil, fmt.Errorf("set config path: %w", err)
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}
