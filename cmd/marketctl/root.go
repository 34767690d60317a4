package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-bot/internal/config"
	"github.com/spec-kit/marketplace-bot/internal/observability"
	"github.com/spec-kit/marketplace-bot/internal/persistence"
	"github.com/spec-kit/marketplace-bot/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:           "marketctl",
	Short:         "Operator tooling for the marketplace bot",
	Long:          `marketctl runs migrations, seeds administrators, issues API tokens and prints statistics against the configured Postgres database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is the state shared by commands that talk to the database.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
	repos  repository.Set
}

func (e *env) Close() {
	e.pg.Close()
	_ = e.logger.Sync()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Logger.Encoding = "console"
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.DSN == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &env{cfg: cfg, logger: logger, pg: pg, repos: repository.NewPostgresSet(pg.PoolHandle())}, nil
}
