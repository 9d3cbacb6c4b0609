package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/danmuck/sctl/internal/config"
	"github.com/danmuck/sctl/internal/observability"
	"github.com/danmuck/sctl/internal/protocol"
	"github.com/danmuck/sctl/internal/protocol/frame"
	"github.com/danmuck/sctl/internal/protocol/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type runOptions struct {
	configPath  string
	device      string
	metricsAddr string
	strict      bool
	emit        []string
}

func loadConfig(opts runOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if opts.device != "" {
		cfg.Link.Device = opts.device
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if opts.strict {
		cfg.Protocol.UnknownTag = protocol.PolicyStrict
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, opts runOptions) error {
	logger := observability.InitLogger("sctlcat")
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if len(opts.emit) > 0 {
		out, closeOut, err := openOutput(cfg.Link.Device)
		if err != nil {
			return err
		}
		defer closeOut()
		n, err := emitFrame(out, cfg.Link.WriteBuffer, opts.emit)
		if err != nil {
			return err
		}
		logger.Info().Int("messages", len(opts.emit)).Int("bytes", n).Msg("frame emitted")
		return nil
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		metrics = observability.RegisterMetrics(cfg.Metrics.Namespace)
		srv := serveMetrics(cfg.Metrics.Addr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sessOpts := []session.Option{
		session.ConfigOption(cfg.Session()),
		session.LoggerOption(logger),
		session.MetricsOption(metrics),
		session.OnMessageOption(func(m protocol.Message) error {
			logMessage(logger, m)
			return nil
		}),
	}

	if cfg.Link.Reconnect && cfg.Link.Device != "" {
		sup := &session.Supervisor{
			Open:        deviceOpener(cfg.Link.Device),
			Backoff:     cfg.Link.Backoff,
			MaxAttempts: cfg.Link.MaxAttempts,
			Options:     sessOpts,
			Logger:      logger,
			Rand:        jitterSource(),
		}
		err := sup.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	rw, err := deviceOpener(cfg.Link.Device)(ctx)
	if err != nil {
		return err
	}
	conn, err := session.NewConn(rw, sessOpts...)
	if err != nil {
		_ = rw.Close()
		return err
	}
	err = conn.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func jitterSource() *rand.Rand {
	return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(os.Getpid())))
}

// emitFrame packs msgs into a single frame and writes it to w.
func emitFrame(w io.Writer, size int, msgs []string) (int, error) {
	pw := protocol.NewWriter(make([]byte, size))
	for _, s := range msgs {
		m, err := protocol.ParseMessage(s)
		if err != nil {
			return 0, err
		}
		if err := pw.AppendMessage(m); err != nil {
			return 0, fmt.Errorf("append %s: %w", m.Tag, err)
		}
	}
	fw := frame.NewWriter(make([]byte, frame.MaxEncodedLen(size)+1))
	if _, err := pw.EncodeTo(fw); err != nil {
		return 0, err
	}
	return fw.Flush(w)
}

func logMessage(logger zerolog.Logger, m protocol.Message) {
	ev := logger.Info().Str("tag", m.Tag.String()).Int("len", len(m.Value))
	if s, ok := m.ExitStatus(); ok {
		ev = ev.Uint8("status", s)
	} else if k, v, ok := m.KeyValue(); ok {
		ev = ev.Bytes("key", k).Bytes("value", v)
	} else {
		ev = ev.Bytes("value", m.Value)
	}
	ev.Msg("message")
}

// stdio closes only its input so a blocked read returns on shutdown.
type stdio struct {
	in  *os.File
	out io.Writer
}

func (s stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdio) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s stdio) Close() error                { return s.in.Close() }

func deviceOpener(device string) session.Opener {
	return func(context.Context) (io.ReadWriteCloser, error) {
		if device == "" {
			return stdio{in: os.Stdin, out: os.Stdout}, nil
		}
		f, err := os.OpenFile(device, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", device, err)
		}
		return f, nil
	}
}

func openOutput(device string) (io.Writer, func(), error) {
	if device == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(device, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", device, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func serveMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	return srv
}
