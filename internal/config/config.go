package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/edgerelay/internal/protocol/session"
	"gopkg.in/yaml.v3"
)

var ErrUnknownKeys = errors.New("config: unknown keys")

// Duration decodes "250ms"-style strings from TOML and YAML.
type Duration struct{ time.Duration }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	dd, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dd
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// RelayConfig is the on-disk shape shared by relay-recv and relay-send.
type RelayConfig struct {
	ChunkSize         int      `toml:"chunk_size" yaml:"chunk_size"`
	IdleTimeout       Duration `toml:"idle_timeout" yaml:"idle_timeout"`
	ConnectTimeout    Duration `toml:"connect_timeout" yaml:"connect_timeout"`
	RetryInterval     Duration `toml:"retry_interval" yaml:"retry_interval"`
	BindRetryInterval Duration `toml:"bind_retry_interval" yaml:"bind_retry_interval"`
	WriteTimeout      Duration `toml:"write_timeout" yaml:"write_timeout"`
	MetricsAddr       string   `toml:"metrics_addr" yaml:"metrics_addr"`
	CorsOrigins       []string `toml:"cors_origins" yaml:"cors_origins"`
	LogLevel          string   `toml:"log_level" yaml:"log_level"`
}

func Default() RelayConfig {
	s := session.DefaultConfig()
	return RelayConfig{
		ChunkSize:         s.ChunkSize,
		IdleTimeout:       Duration{s.IdleTimeout},
		ConnectTimeout:    Duration{s.ConnectTimeout},
		RetryInterval:     Duration{s.RetryInterval},
		BindRetryInterval: Duration{s.BindRetryInterval},
		WriteTimeout:      Duration{s.WriteTimeout},
		LogLevel:          "info",
	}
}

// Load reads path over Default. The format follows the extension: .yaml and
// .yml use YAML, anything else TOML.
func Load(path string) (RelayConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return RelayConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return RelayConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return RelayConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return RelayConfig{}, fmt.Errorf("%w (%s): %s", ErrUnknownKeys, path, strings.Join(keys, ", "))
		}
	}

	if err := Validate(cfg); err != nil {
		return RelayConfig{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Session converts the file values into relay transport settings.
func (c RelayConfig) Session() session.Config {
	return session.Config{
		ChunkSize:         c.ChunkSize,
		IdleTimeout:       c.IdleTimeout.Duration,
		ConnectTimeout:    c.ConnectTimeout.Duration,
		RetryInterval:     c.RetryInterval.Duration,
		BindRetryInterval: c.BindRetryInterval.Duration,
		WriteTimeout:      c.WriteTimeout.Duration,
	}.WithDefaults()
}

func Validate(cfg RelayConfig) error {
	if err := cfg.Session().Validate(); err != nil {
		return err
	}
	if addr := strings.TrimSpace(cfg.MetricsAddr); addr != "" && !strings.Contains(addr, ":") {
		return fmt.Errorf("metrics_addr %q must be host:port or :port", addr)
	}
	return nil
}
