package config

import (
	"fmt"
	"os"
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"
)

const (
	KindRecv = "recv"
	KindSend = "send"
)

// Template renders the default relay config for one role as TOML.
func Template(kind string) (string, error) {
	cfg := Default()
	var header string
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindRecv:
		header = "# relay-recv config\n# idle_timeout bounds bind, accept and the gap between frames.\n"
		cfg.MetricsAddr = "127.0.0.1:9310"
	case KindSend:
		header = "# relay-send config\n# connect_timeout / retry_interval sets the dial attempt budget.\n"
		cfg.MetricsAddr = "127.0.0.1:9311"
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
	cfg.CorsOrigins = []string{"http://localhost:3000"}

	body, err := gotoml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", kind, err)
	}
	return header + string(body), nil
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
