package prommetrics

import (
	"fmt"
	"time"

	"github.com/hupe1980/fvec"
	"github.com/hupe1980/fvec/chunk"
	"github.com/prometheus/client_golang/prometheus"
)

var _ fvec.MetricsCollector = (*Collector)(nil)

const (
	statusOK    = "ok"
	statusError = "error"
)

type options struct {
	namespace string
	buckets   []float64
}

// Option configures a Collector.
type Option func(*options)

// WithNamespace sets the metric namespace. The default is "fvec".
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithBuckets sets the latency histogram buckets in seconds.
func WithBuckets(b []float64) Option {
	return func(o *options) {
		o.buckets = b
	}
}

// Collector implements fvec.MetricsCollector with Prometheus counters and
// histograms.
type Collector struct {
	fetches        *prometheus.CounterVec // source, status
	fetchBytes     prometheus.Counter
	fetchLatency   *prometheus.HistogramVec // source
	publishes      *prometheus.CounterVec   // status
	publishBytes   *prometheus.CounterVec   // form
	publishLatency prometheus.Histogram
	encodes        *prometheus.CounterVec // tag
	encodeRows     prometheus.Counter
	encodeBytes    prometheus.Counter
	encodeLatency  prometheus.Histogram
	inflates       prometheus.Counter
	inflateRows    prometheus.Counter
}

// New creates a Collector and registers it with reg. A nil reg registers
// with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, opts ...Option) (*Collector, error) {
	o := options{
		namespace: "fvec",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "fetches_total",
			Help:      "Chunk and manifest fetches by source and status.",
		}, []string{"source", "status"}),
		fetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "fetch_bytes_total",
			Help:      "Decoded bytes returned by successful fetches.",
		}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Fetch latency by source.",
			Buckets:   o.buckets,
		}, []string{"source"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "publishes_total",
			Help:      "Chunk and manifest publishes by status.",
		}, []string{"status"}),
		publishBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "publish_bytes_total",
			Help:      "Published bytes before (raw) and after (stored) the envelope.",
		}, []string{"form"}),
		publishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "publish_duration_seconds",
			Help:      "Publish latency.",
			Buckets:   o.buckets,
		}),
		encodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "encodes_total",
			Help:      "Encoded chunks by chosen encoding.",
		}, []string{"tag"}),
		encodeRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "encode_rows_total",
			Help:      "Rows encoded.",
		}),
		encodeBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "encode_bytes_total",
			Help:      "Encoded chunk bytes.",
		}),
		encodeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "encode_duration_seconds",
			Help:      "Encode latency.",
			Buckets:   o.buckets,
		}),
		inflates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "inflates_total",
			Help:      "Writes that inflated an encoded chunk.",
		}),
		inflateRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "inflate_rows_total",
			Help:      "Rows of inflated chunks.",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.fetches, c.fetchBytes, c.fetchLatency,
		c.publishes, c.publishBytes, c.publishLatency,
		c.encodes, c.encodeRows, c.encodeBytes, c.encodeLatency,
		c.inflates, c.inflateRows,
	} {
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("prommetrics: register: %w", err)
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}

// RecordFetch implements fvec.MetricsCollector.
func (c *Collector) RecordFetch(size int, cached bool, d time.Duration, err error) {
	source := "store"
	if cached {
		source = "cache"
	}
	c.fetches.WithLabelValues(source, status(err)).Inc()
	c.fetchLatency.WithLabelValues(source).Observe(d.Seconds())
	if err == nil {
		c.fetchBytes.Add(float64(size))
	}
}

// RecordPublish implements fvec.MetricsCollector.
func (c *Collector) RecordPublish(size, stored int, d time.Duration, err error) {
	c.publishes.WithLabelValues(status(err)).Inc()
	c.publishLatency.Observe(d.Seconds())
	if err == nil {
		c.publishBytes.WithLabelValues("raw").Add(float64(size))
		c.publishBytes.WithLabelValues("stored").Add(float64(stored))
	}
}

// RecordEncode implements fvec.MetricsCollector.
func (c *Collector) RecordEncode(tag chunk.Tag, rows, size int, d time.Duration) {
	c.encodes.WithLabelValues(tag.String()).Inc()
	c.encodeRows.Add(float64(rows))
	c.encodeBytes.Add(float64(size))
	c.encodeLatency.Observe(d.Seconds())
}

// RecordInflate implements fvec.MetricsCollector.
func (c *Collector) RecordInflate(rows int) {
	c.inflates.Inc()
	c.inflateRows.Add(float64(rows))
}
