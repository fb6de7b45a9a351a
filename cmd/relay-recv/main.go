package main

import (
	"bufio"
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

const usage = "usage: relay-recv [-config FILE] [-metrics ADDR] PORT > output"

func main() {
	logging.ConfigureRuntime()
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	logger := logging.ForRun("relay-recv")
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

	out := bufio.NewWriterSize(os.Stdout, 64*1024)
	recv, err := relay.NewReceiver(relay.ReceiverConfig{
		Port:    opts.port,
		Session: cfg.Session(),
		Logger:  &logger,
	}, out)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		status := observability.NewStatusServer(cfg.MetricsAddr, cfg.CorsOrigins, recv, logger)
		if err := status.Start(); err != nil {
			return fmt.Errorf("status endpoint: %w", err)
		}
		defer status.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return recv.Run(ctx)
}
