package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/edgerelay/internal/config"
	"github.com/danmuck/edgerelay/internal/relay"
)

type options struct {
	configPath  string
	metricsAddr string
	port        int
}

func parseArgs(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("relay-recv", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", "", "optional relay config file (.toml or .yaml)")
	fs.StringVar(&opts.metricsAddr, "metrics", "", "serve /health, /ready and /metrics on this address")
	if err := fs.Parse(args); err != nil {
		return options{}, fmt.Errorf("%w: %v", relay.ErrUsage, err)
	}
	if fs.NArg() != 1 {
		return options{}, fmt.Errorf("%w: expected PORT, got %d args", relay.ErrUsage, fs.NArg())
	}
	port, err := relay.ParsePort(fs.Arg(0))
	if err != nil {
		return options{}, err
	}
	opts.port = port
	return opts, nil
}

func loadConfig(opts options) (config.RelayConfig, error) {
	cfg := config.Default()
	if path := strings.TrimSpace(opts.configPath); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.RelayConfig{}, err
		}
		cfg = loaded
	}
	if addr := strings.TrimSpace(opts.metricsAddr); addr != "" {
		cfg.MetricsAddr = addr
	}
	return cfg, nil
}
