package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/sctl/internal/protocol"
)

var ErrInvalidConfig = errors.New("session: invalid config")

// BackoffConfig defines reconnect backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config sizes the buffers owned by one Conn.
//
// ReadBuffer holds raw link bytes and bounds the largest frame accepted.
// RecordBuffer receives each unstuffed frame and must be at least ReadBuffer.
// WriteBuffer bounds the records of one outgoing frame. SendQueue is the
// number of encoded frames that may wait for the write loop.
type Config struct {
	ReadBuffer   int
	WriteBuffer  int
	RecordBuffer int
	SendQueue    int
	Policy       protocol.Policy
	Backoff      BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ReadBuffer:   1024,
		WriteBuffer:  512,
		RecordBuffer: 1024,
		SendQueue:    8,
		Policy:       protocol.PolicyOther,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

func (c Config) Validate() error {
	if c.ReadBuffer <= 0 {
		return fmt.Errorf("%w: read_buffer must be positive", ErrInvalidConfig)
	}
	if c.WriteBuffer <= 0 {
		return fmt.Errorf("%w: write_buffer must be positive", ErrInvalidConfig)
	}
	if c.RecordBuffer < c.ReadBuffer {
		return fmt.Errorf("%w: record_buffer %d smaller than read_buffer %d", ErrInvalidConfig, c.RecordBuffer, c.ReadBuffer)
	}
	if c.SendQueue <= 0 {
		return fmt.Errorf("%w: send_queue must be positive", ErrInvalidConfig)
	}
	if c.Policy != protocol.PolicyOther && c.Policy != protocol.PolicyStrict {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.Policy)
	}
	if c.Backoff.InitialDelay < 0 || c.Backoff.MaxDelay < 0 {
		return fmt.Errorf("%w: negative backoff delay", ErrInvalidConfig)
	}
	return nil
}
