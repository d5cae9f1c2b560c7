// Package metrics defines the Prometheus collectors of an itemizer run. Runs
// are batch jobs, so metrics are exported once at the end through the
// node-exporter textfile format instead of being scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
	"github.com/cognicore/itemizer/pkg/itemizer/pipe"
)

// Metrics holds the collectors of one run, registered on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	ItemsetsTotal      *prometheus.CounterVec
	ItemsTotal         *prometheus.CounterVec
	StageErrorsTotal   *prometheus.CounterVec
	AlphabetSize       *prometheus.GaugeVec
	EncodedBytes       *prometheus.GaugeVec
	TextsTotal         *prometheus.CounterVec
	AnnotationDuration prometheus.Histogram
	RunDuration        prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ItemsetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itemizer_itemsets_total",
				Help: "Itemsets consumed per stage.",
			},
			[]string{"stage"},
		),
		ItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itemizer_items_total",
				Help: "Items consumed per stage.",
			},
			[]string{"stage"},
		),
		StageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itemizer_stage_errors_total",
				Help: "Failed Consume or Finish calls per stage.",
			},
			[]string{"stage"},
		),
		AlphabetSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "itemizer_alphabet_size",
				Help: "Number of symbols per alphabet.",
			},
			[]string{"alphabet"},
		),
		EncodedBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "itemizer_encoded_bytes",
				Help: "Bytes written per encoder stage.",
			},
			[]string{"stage"},
		),
		TextsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itemizer_texts_total",
				Help: "Raw text elements by normalization result.",
			},
			[]string{"result"},
		),
		AnnotationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "itemizer_annotation_duration_seconds",
				Help:    "Time spent annotating a batch of texts.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		RunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "itemizer_run_duration_seconds",
				Help: "Wall time of the last run.",
			},
		),
	}

	m.Registry.MustRegister(
		m.ItemsetsTotal,
		m.ItemsTotal,
		m.StageErrorsTotal,
		m.AlphabetSize,
		m.EncodedBytes,
		m.TextsTotal,
		m.AnnotationDuration,
		m.RunDuration,
	)

	return m
}

// WriteTextfile writes the current values to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

// ObserveSince records the time elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Instrument wraps s so its traffic is counted under name.
func (m *Metrics) Instrument(name string, s pipe.Stage) pipe.Stage {
	return &instrumented{
		Stage:    s,
		itemsets: m.ItemsetsTotal.WithLabelValues(name),
		items:    m.ItemsTotal.WithLabelValues(name),
		errors:   m.StageErrorsTotal.WithLabelValues(name),
	}
}

type instrumented struct {
	pipe.Stage
	itemsets prometheus.Counter
	items    prometheus.Counter
	errors   prometheus.Counter
}

func (s *instrumented) Consume(is itemset.Itemset) error {
	s.itemsets.Inc()
	s.items.Add(float64(len(is.Items)))
	if err := s.Stage.Consume(is); err != nil {
		s.errors.Inc()
		return err
	}
	return nil
}

func (s *instrumented) Finish() error {
	if err := s.Stage.Finish(); err != nil {
		s.errors.Inc()
		return err
	}
	return nil
}
