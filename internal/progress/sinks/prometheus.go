package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/botlog/internal/progress"
)

// PrometheusSink exports import progress as Prometheus metrics.
type PrometheusSink struct {
	importsStarted   prometheus.Counter
	importsCompleted *prometheus.CounterVec
	importsRunning   prometheus.Gauge
	importRuntime    *prometheus.HistogramVec
	rows             *prometheus.CounterVec
	batches          prometheus.Counter

	running *runningSet
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		importsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botlog_imports_started_total",
			Help: "Total imports that have started.",
		}),
		importsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botlog_imports_completed_total",
			Help: "Total imports finished partitioned by result.",
		}, []string{"result"}),
		importsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "botlog_imports_running",
			Help: "Current number of running imports.",
		}),
		importRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "botlog_import_runtime_seconds",
			Help:    "Wall time per finished import.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"result"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botlog_import_rows_total",
			Help: "Source rows partitioned by outcome (imported, duplicate, filtered).",
		}, []string{"outcome"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botlog_import_batches_total",
			Help: "Bulk inserts flushed to storage.",
		}),
		running: newRunningSet(),
	}
	for _, collector := range []prometheus.Collector{
		s.importsStarted,
		s.importsCompleted,
		s.importsRunning,
		s.importRuntime,
		s.rows,
		s.batches,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageJobStart:
			s.importsStarted.Inc()
			if s.running.start(evt.JobID) {
				s.importsRunning.Inc()
			}
		case progress.StageBatchFlushed:
			s.batches.Inc()
			s.addRows(evt)
		case progress.StageJobDone:
			s.finish(evt, "success")
		case progress.StageJobError:
			s.finish(evt, "error")
		}
	}
	return nil
}

// addRows counts a flush's deltas. Terminal events carry totals and are not
// added again.
func (s *PrometheusSink) addRows(evt progress.Event) {
	if evt.Imported > 0 {
		s.rows.WithLabelValues("imported").Add(float64(evt.Imported))
	}
	if evt.Duplicates > 0 {
		s.rows.WithLabelValues("duplicate").Add(float64(evt.Duplicates))
	}
	if evt.Filtered > 0 {
		s.rows.WithLabelValues("filtered").Add(float64(evt.Filtered))
	}
}

func (s *PrometheusSink) finish(evt progress.Event, result string) {
	s.importsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.importRuntime.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
	if s.running.complete(evt.JobID) {
		s.importsRunning.Dec()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type runningSet struct {
	mu   sync.Mutex
	jobs map[[16]byte]struct{}
}

func newRunningSet() *runningSet {
	return &runningSet{jobs: make(map[[16]byte]struct{})}
}

func (r *runningSet) start(id [16]byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; ok {
		return false
	}
	r.jobs[id] = struct{}{}
	return true
}

func (r *runningSet) complete(id [16]byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return false
	}
	delete(r.jobs, id)
	return true
}
