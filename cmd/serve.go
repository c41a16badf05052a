package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mediaid-gateway/internal/catalog"
	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/gateway"
	"mediaid-gateway/internal/logging"
	"mediaid-gateway/internal/provider"
	providerfactory "mediaid-gateway/internal/provider/factory"
	"mediaid-gateway/internal/router"
	"mediaid-gateway/internal/server"
	"mediaid-gateway/internal/session"
)

const serveUsage = `Usage:
  mediaid-gateway serve --config <path> [--port <port>] [--env-file <path>]

Flags:
  --config   string   Path to YAML configuration file (required)
  --port     int      Override server port from configuration
  --env-file string   Dotenv file loaded before the configuration (default ".env")`

type serveOptions struct {
	configPath string
	envFile    string
	port       int
}

func parseServeFlags(args []string) (serveOptions, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var opts serveOptions
	fs.StringVar(&opts.configPath, "config", "", "path to configuration file")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load")
	fs.IntVar(&opts.port, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		return serveOptions{}, err
	}

	if opts.configPath == "" {
		return serveOptions{}, errors.New("serve command requires --config <path>")
	}
	if opts.port < 0 || opts.port > 65535 {
		return serveOptions{}, fmt.Errorf("port override %d must be a valid TCP port", opts.port)
	}
	return opts, nil
}

// loadEnvFile exports variables from path. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

func serve(ctx context.Context, args []string) error {
	opts, err := parseServeFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	if err := loadEnvFile(opts.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath, config.WithPort(opts.port))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	drugs, err := catalog.Open(ctx, cfg.Catalog)
	if err != nil {
		return err
	}
	defer func() {
		if err := drugs.Close(); err != nil {
			logger.Warn("close catalog", zap.Error(err))
		}
	}()

	registry := provider.NewRegistry()
	if err := providerfactory.RegisterConfiguredProviders(ctx, cfg, registry, drugs); err != nil {
		return err
	}

	rt := router.New(registry)
	modelInfo, err := rt.Resolve(cfg.Chat.Model)
	if err != nil {
		return fmt.Errorf("chat.model: %w", err)
	}

	sessions := session.NewStore()
	gw, err := gateway.New(rt, sessions, drugs, cfg.Chat)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, rt, gw, drugs, sessions)
	if err != nil {
		return err
	}

	logger.Info("chat model resolved",
		zap.String("model", modelInfo.ID),
		zap.String("provider", modelInfo.Provider),
		zap.String("catalog", cfg.Catalog.Driver),
	)
	return srv.Run(ctx)
}
