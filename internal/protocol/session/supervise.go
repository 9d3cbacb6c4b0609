package session

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// Opener opens a fresh transport, e.g. a serial device or a socket.
type Opener func(ctx context.Context) (io.ReadWriteCloser, error)

// Supervisor keeps a Conn running across transport failures, reopening the
// link with backoff.
type Supervisor struct {
	Open    Opener
	Backoff BackoffConfig
	// MaxAttempts bounds consecutive failed opens; zero retries forever.
	MaxAttempts int
	Options     []Option
	// OnConnect sees each new Conn before it starts running.
	OnConnect func(*Conn)
	Logger    zerolog.Logger
	Rand      *rand.Rand
}

// Run returns when ctx ends, a Conn cannot be built from the options, or
// MaxAttempts consecutive opens fail.
func (s *Supervisor) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rw, err := s.Open(ctx)
		if err != nil {
			attempt++
			if s.MaxAttempts > 0 && attempt >= s.MaxAttempts {
				return fmt.Errorf("session: open failed after %d attempts: %w", attempt, err)
			}
			delay := NextBackoffDelay(s.Backoff, attempt, s.Rand)
			s.Logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("link open failed")
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}
		attempt = 0

		conn, err := NewConn(rw, s.Options...)
		if err != nil {
			_ = rw.Close()
			return err
		}
		if s.OnConnect != nil {
			s.OnConnect(conn)
		}
		err = conn.Run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.Logger.Info().Err(err).Msg("link lost, reopening")
		if err := sleep(ctx, s.Backoff.InitialDelay); err != nil {
			return err
		}
	}
}

// NextBackoffDelay returns the delay before retry attempt n (1-based):
// InitialDelay growing by Multiplier per attempt, capped at MaxDelay, then
// scaled into [0.5, 1.5) when Jitter is set.
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	delay := float64(cfg.InitialDelay)
	if attempt > 1 {
		delay *= math.Pow(math.Max(cfg.Multiplier, 1.0), float64(attempt-1))
	}
	if cfg.MaxDelay > 0 {
		delay = math.Min(delay, float64(cfg.MaxDelay))
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f += rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
