package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const DefaultNamespace = "sctl"

const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Metrics counts traffic through a session. A nil *Metrics records nothing.
type Metrics struct {
	frames      *prometheus.CounterVec
	frameErrors *prometheus.CounterVec
	messages    *prometheus.CounterVec
	bytes       *prometheus.CounterVec
}

var (
	registerOnce sync.Once
	defaultSet   *Metrics
)

// NewMetrics builds an unregistered metric set under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Metrics{
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Frames moved over the link.",
			},
			[]string{"direction"},
		),
		frameErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frame_errors_total",
				Help:      "Frames or records dropped, by reason.",
			},
			[]string{"reason"},
		),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Control messages by direction and tag.",
			},
			[]string{"direction", "tag"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_total",
				Help:      "Raw link bytes.",
			},
			[]string{"direction"},
		),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.frames, m.frameErrors, m.messages, m.bytes}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RegisterMetrics registers the process-wide set with the global registry
// once. The namespace of the first call wins.
func RegisterMetrics(namespace string) *Metrics {
	registerOnce.Do(func() {
		defaultSet = NewMetrics(namespace)
		prometheus.MustRegister(defaultSet.Collectors()...)
	})
	return defaultSet
}

func (m *Metrics) RecordFrame(direction string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(direction).Inc()
}

func (m *Metrics) RecordBytes(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytes.WithLabelValues(direction).Add(float64(n))
}

func (m *Metrics) RecordFrameError(reason string) {
	if m == nil {
		return
	}
	m.frameErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordMessage(direction, tag string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(direction, tag).Inc()
}
