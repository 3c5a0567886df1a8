package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/classdesk/session-gateway/internal/audit"
	"github.com/classdesk/session-gateway/internal/backend"
	"github.com/classdesk/session-gateway/internal/config"
	"github.com/classdesk/session-gateway/internal/enrich"
	"github.com/classdesk/session-gateway/internal/httpapi"
	"github.com/classdesk/session-gateway/internal/login"
	"github.com/classdesk/session-gateway/internal/monitoring"
	"github.com/classdesk/session-gateway/internal/session"
	"github.com/classdesk/session-gateway/internal/token"
)

const shutdownGrace = 10 * time.Second

// runServeCommand boots the session API server.
func runServeCommand(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "session-gateway.yaml", "path to config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("serve: failed to load config")
	}

	initLogging(cfg.Logging, *debug)

	metrics := monitoring.NewMetricsCollector()
	client := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})
	enricher := enrich.New(client, cfg.Enrichment.CacheTTL, metrics)
	defer enricher.Stop()

	var trail session.AuditTrail
	if cfg.Audit.Enabled {
		store, err := audit.Open(cfg.Audit.DBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("serve: failed to open audit store")
		}
		defer func() { _ = store.Close() }()
		trail = store
	}

	assembler := session.NewAssembler(session.AssemblerConfig{
		Exchangers: login.SetupRegistry(client),
		Enricher:   enricher,
		Metrics:    metrics,
		Audit:      trail,
	})

	codec, err := token.NewCodec(token.Config{
		SigningSecret: cfg.Session.SigningSecret,
		TTL:           cfg.Session.TokenTTL,
		Issuer:        cfg.Session.Issuer,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("serve: failed to build token codec")
	}

	server := httpapi.NewServer(httpapi.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, assembler, codec, metrics)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("serve: server failed")
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("serve: shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("serve: shutdown incomplete")
		}
	}
}

// initLogging configures the global zerolog logger.
func initLogging(cfg config.LoggingConfig, debug bool) {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
		level = parsed
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
