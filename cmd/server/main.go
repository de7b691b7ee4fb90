package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Matcry12/careervr/internal/config"
	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/migrator"
	"github.com/Matcry12/careervr/internal/repository"
	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/internal/store/backends"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "careervr",
	Short:         "CareerVR API server and maintenance commands",
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file")
	rootCmd.AddCommand(serveCmd, migrateCmd, repairCmd, syncJobsCmd)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// app is the wired storage stack every command works on.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  store.Backend
	gate     gate.Gate
	repos    *repository.Repos
	migrator *migrator.Migrator
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	backend := backends.Open(ctx, cfg.Storage, logger)
	g := newGate(backend, cfg.Storage, logger)
	return &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		gate:     g,
		repos:    repository.New(backend, g, logger),
		migrator: migrator.New(backend, g, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Error("close backend", slog.Any("err", err))
	}
}
