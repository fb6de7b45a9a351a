package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/edgerelay/internal/logging"
	"github.com/danmuck/edgerelay/internal/observability"
	"github.com/danmuck/edgerelay/internal/relay"
	"github.com/rs/zerolog"
)

const usage = "usage: cat input | relay-send [-config FILE] [-metrics ADDR] ADDR PORT"

func main() {
	logging.ConfigureRuntime()
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	logger := logging.ForRun("relay-send")
	if err := run(opts, logger); err != nil {
		logger.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}

func run(opts options, logger zerolog.Logger) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logging.SetLevel(cfg.LogLevel)

	sessionCfg := cfg.Session()
	snd, err := relay.NewSender(relay.SenderConfig{
		Address: opts.address,
		Port:    opts.port,
		Session: sessionCfg,
		Logger:  &logger,
	}, os.Stdin)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		status := observability.NewStatusServer(cfg.MetricsAddr, cfg.CorsOrigins, snd, logger)
		if err := status.Start(); err != nil {
			return fmt.Errorf("status endpoint: %w", err)
		}
		defer status.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return snd.Run(ctx)
}
