package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/sctl/internal/observability"
	"github.com/danmuck/sctl/internal/protocol"
	"github.com/danmuck/sctl/internal/protocol/session"
)

var ErrInvalid = errors.New("config: invalid")

// Config is the resolved configuration of one sctl process.
type Config struct {
	Link     LinkConfig
	Protocol ProtocolConfig
	Metrics  MetricsConfig
}

type LinkConfig struct {
	// Device is a serial device or capture file; empty means stdin/stdout.
	Device       string
	ReadBuffer   int
	WriteBuffer  int
	RecordBuffer int
	SendQueue    int
	Reconnect    bool
	Backoff      session.BackoffConfig
	MaxAttempts  int
}

type ProtocolConfig struct {
	UnknownTag protocol.Policy
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the endpoint.
	Addr      string
	Namespace string
}

type fileConfig struct {
	Link struct {
		Device       string  `toml:"device"`
		ReadBuffer   int     `toml:"read_buffer"`
		WriteBuffer  int     `toml:"write_buffer"`
		RecordBuffer int     `toml:"record_buffer"`
		SendQueue    int     `toml:"send_queue"`
		Reconnect    bool    `toml:"reconnect"`
		BackoffInit  string  `toml:"backoff_initial"`
		BackoffMax   string  `toml:"backoff_max"`
		BackoffMult  float64 `toml:"backoff_multiplier"`
		MaxAttempts  int     `toml:"max_attempts"`
	} `toml:"link"`
	Protocol struct {
		UnknownTag string `toml:"unknown_tag"`
	} `toml:"protocol"`
	Metrics struct {
		Addr      string `toml:"addr"`
		Namespace string `toml:"namespace"`
	} `toml:"metrics"`
}

func Default() Config {
	s := session.DefaultConfig()
	return Config{
		Link: LinkConfig{
			ReadBuffer:   s.ReadBuffer,
			WriteBuffer:  s.WriteBuffer,
			RecordBuffer: s.RecordBuffer,
			SendQueue:    s.SendQueue,
			Backoff:      s.Backoff,
		},
		Protocol: ProtocolConfig{UnknownTag: s.Policy},
		Metrics:  MetricsConfig{Namespace: observability.DefaultNamespace},
	}
}

// Load reads path and overlays every key it defines on Default.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := resolve(meta, raw)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse is Load for in-memory TOML.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	return resolve(meta, raw)
}

func resolve(meta toml.MetaData, raw fileConfig) (Config, error) {
	cfg := Default()
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %s", ErrInvalid, undecoded[0])
	}

	if meta.IsDefined("link", "device") {
		cfg.Link.Device = strings.TrimSpace(raw.Link.Device)
	}
	if meta.IsDefined("link", "read_buffer") {
		cfg.Link.ReadBuffer = raw.Link.ReadBuffer
	}
	if meta.IsDefined("link", "write_buffer") {
		cfg.Link.WriteBuffer = raw.Link.WriteBuffer
	}
	if meta.IsDefined("link", "record_buffer") {
		cfg.Link.RecordBuffer = raw.Link.RecordBuffer
	} else if cfg.Link.RecordBuffer < cfg.Link.ReadBuffer {
		cfg.Link.RecordBuffer = cfg.Link.ReadBuffer
	}
	if meta.IsDefined("link", "send_queue") {
		cfg.Link.SendQueue = raw.Link.SendQueue
	}
	if meta.IsDefined("link", "reconnect") {
		cfg.Link.Reconnect = raw.Link.Reconnect
	}
	if meta.IsDefined("link", "backoff_initial") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Link.BackoffInit))
		if err != nil {
			return Config{}, fmt.Errorf("parse backoff_initial: %w", err)
		}
		cfg.Link.Backoff.InitialDelay = d
	}
	if meta.IsDefined("link", "backoff_max") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Link.BackoffMax))
		if err != nil {
			return Config{}, fmt.Errorf("parse backoff_max: %w", err)
		}
		cfg.Link.Backoff.MaxDelay = d
	}
	if meta.IsDefined("link", "backoff_multiplier") {
		cfg.Link.Backoff.Multiplier = raw.Link.BackoffMult
	}
	if meta.IsDefined("link", "max_attempts") {
		cfg.Link.MaxAttempts = raw.Link.MaxAttempts
	}

	if meta.IsDefined("protocol", "unknown_tag") {
		p, err := protocol.ParsePolicy(raw.Protocol.UnknownTag)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		cfg.Protocol.UnknownTag = p
	}

	if meta.IsDefined("metrics", "addr") {
		cfg.Metrics.Addr = strings.TrimSpace(raw.Metrics.Addr)
	}
	if meta.IsDefined("metrics", "namespace") {
		cfg.Metrics.Namespace = strings.TrimSpace(raw.Metrics.Namespace)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Session().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Link.MaxAttempts < 0 {
		return fmt.Errorf("%w: max_attempts must not be negative", ErrInvalid)
	}
	if strings.TrimSpace(c.Metrics.Namespace) == "" {
		return fmt.Errorf("%w: metrics namespace is required", ErrInvalid)
	}
	return nil
}

// Session returns the per-connection settings.
func (c Config) Session() session.Config {
	return session.Config{
		ReadBuffer:   c.Link.ReadBuffer,
		WriteBuffer:  c.Link.WriteBuffer,
		RecordBuffer: c.Link.RecordBuffer,
		SendQueue:    c.Link.SendQueue,
		Policy:       c.Protocol.UnknownTag,
		Backoff:      c.Link.Backoff,
	}
}
