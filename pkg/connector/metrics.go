package connector

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for command metrics.
const (
	OutcomeOK          = "ok"
	OutcomeEngineError = "engine_error"
	OutcomeLocalError  = "local_error"
)

// Metrics holds the command collectors shared by instrumented connections.
type Metrics struct {
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tdmeta",
			Subsystem: "connector",
			Name:      "commands_total",
			Help:      "Commands sent through a connection by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tdmeta",
			Subsystem: "connector",
			Name:      "command_duration_seconds",
			Help:      "Round trip time of connection commands.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
}

func (m *Metrics) observe(kind string, start time.Time, r Result) {
	outcome := OutcomeOK
	switch {
	case !r.HasError():
	case r.ErrorCode() < 0:
		outcome = OutcomeLocalError
	default:
		outcome = OutcomeEngineError
	}
	m.commands.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

type instrumented struct {
	Connection
	metrics *Metrics
}

// Instrument wraps conn so every Execute and Query is counted and timed.
// Views derived from the result stay instrumented.
func Instrument(conn Connection, metrics *Metrics) Connection {
	if metrics == nil {
		return conn
	}
	if inst, ok := conn.(*instrumented); ok {
		conn = inst.Connection
	}
	return &instrumented{Connection: conn, metrics: metrics}
}

func (c *instrumented) WithDefaultDB(name string) Connection {
	return Instrument(c.Connection.WithDefaultDB(name), c.metrics)
}

func (c *instrumented) WithOptions(opts Options) Connection {
	return Instrument(c.Connection.WithOptions(opts), c.metrics)
}

func (c *instrumented) Execute(ctx context.Context, db, command string) Result {
	start := time.Now()
	r := c.Connection.Execute(ctx, db, command)
	c.metrics.observe("execute", start, r)
	return r
}

func (c *instrumented) Query(ctx context.Context, db, command string) QueryResult {
	start := time.Now()
	r := c.Connection.Query(ctx, db, command)
	c.metrics.observe("query", start, r)
	return r
}
