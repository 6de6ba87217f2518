package serve

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records transfers of resources.
type Metrics struct {
	bytes     prometheus.Counter
	transfers *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "http_toolkit",
			Subsystem: "transfer",
			Name:      "bytes_total",
			Help:      "Number of bytes sent by transfer engines.",
		}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "http_toolkit",
			Subsystem: "transfer",
			Name:      "transfers_total",
			Help:      "Number of finished transfers.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.bytes, m.transfers} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering transfer metrics")
		}
	}

	return m, nil
}

// Track returns an observer for a single transfer.
// It must not be attached to more than one engine.
func (m *Metrics) Track() Observer {
	var (
		mu      sync.Mutex
		started bool
		last    uint64
	)

	return ObserverFunc(func(e *Engine) {
		mu.Lock()
		defer mu.Unlock()

		if !started {
			started = true
			last = e.Window().Start
		}

		p := e.Progress()
		if p.BytesSent > last {
			m.bytes.Add(float64(p.BytesSent - last))
			last = p.BytesSent
		}

		if e.State() == StateCompleted {
			m.transfers.WithLabelValues(StateCompleted.String()).Inc()
		}
	})
}

// Sent records a transfer made without an engine.
func (m *Metrics) Sent(n uint64, completed bool) {
	m.bytes.Add(float64(n))
	if completed {
		m.transfers.WithLabelValues(StateCompleted.String()).Inc()
		return
	}
	m.Aborted()
}

// Aborted records a transfer that failed before completion.
func (m *Metrics) Aborted() {
	m.transfers.WithLabelValues(StateAborted.String()).Inc()
}
