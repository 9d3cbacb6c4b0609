package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Render writes cfg back out as a config file that Load accepts.
func Render(cfg Config) ([]byte, error) {
	var raw fileConfig
	raw.Link.Device = cfg.Link.Device
	raw.Link.ReadBuffer = cfg.Link.ReadBuffer
	raw.Link.WriteBuffer = cfg.Link.WriteBuffer
	raw.Link.RecordBuffer = cfg.Link.RecordBuffer
	raw.Link.SendQueue = cfg.Link.SendQueue
	raw.Link.Reconnect = cfg.Link.Reconnect
	raw.Link.BackoffInit = cfg.Link.Backoff.InitialDelay.String()
	raw.Link.BackoffMax = cfg.Link.Backoff.MaxDelay.String()
	raw.Link.BackoffMult = cfg.Link.Backoff.Multiplier
	raw.Link.MaxAttempts = cfg.Link.MaxAttempts
	raw.Protocol.UnknownTag = cfg.Protocol.UnknownTag.String()
	raw.Metrics.Addr = cfg.Metrics.Addr
	raw.Metrics.Namespace = cfg.Metrics.Namespace
	return toml.Marshal(raw)
}

// Template is the rendered default configuration.
func Template() ([]byte, error) {
	return Render(Default())
}

func WriteTemplate(path string, overwrite bool) error {
	data, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, data, 0o600)
}
