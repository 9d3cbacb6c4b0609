package session

import (
	"github.com/danmuck/sctl/internal/observability"
	"github.com/danmuck/sctl/internal/protocol"
	"github.com/rs/zerolog"
)

// ErrorAction decides what a Conn does after a read or write error.
type ErrorAction int

const (
	// Disconnect stops the connection.
	Disconnect ErrorAction = iota
	// Continue drops the offending frame or record and keeps going.
	Continue
)

type options struct {
	cfg     Config
	logger  *zerolog.Logger
	metrics *observability.Metrics

	// onMessage sees each message in arrival order. Value is only valid
	// during the call.
	onMessage func(protocol.Message) error
	onError   func(error) ErrorAction
}

type Option func(*options)

// ConfigOption replaces the buffer and policy settings.
func ConfigOption(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// OnMessageOption sets the required message handler. A handler error stops
// the connection.
func OnMessageOption(cb func(protocol.Message) error) Option {
	return func(o *options) {
		o.onMessage = cb
	}
}

// OnErrorOption sets the error callback. Without one, corrupt frames and
// rejected records are skipped and transport errors disconnect.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

func LoggerOption(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// MetricsOption sets where traffic is counted. Nil disables counting.
func MetricsOption(m *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
