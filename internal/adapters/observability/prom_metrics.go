package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/RigFlow/internal/ports"
)

const (
	AcquisitionSucceeded = ports.MetricAcquisitionSucceeded
	AcquisitionFailed    = ports.MetricAcquisitionFailed
	TransferTasks        = ports.MetricTransferTasks
	TransferFailed       = ports.MetricTransferFailed
	SatellitesReady      = ports.MetricSatellitesReady
	FreeStorageBytes     = ports.MetricFreeStorageBytes
	TasksInFlight        = ports.MetricTasksInFlight
	TaskDuration         = ports.MetricTaskDuration
)

// LevelCritical sits above slog.LevelError for failures that abort a run.
const LevelCritical = slog.LevelError + 4

// PromObs logs through slog and keeps run metrics in Prometheus.
type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the RigFlow metrics with reg (the default registerer
// when nil) and logs through logger.
func NewPromObs(logger *slog.Logger, reg prometheus.Registerer) *PromObs {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	succeeded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: AcquisitionSucceeded,
		Help: "Acquisition apps that exited with code 0.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: AcquisitionFailed,
		Help: "Acquisition apps that exited with a non-zero code.",
	})
	transfers := prometheus.NewCounter(prometheus.CounterOpts{
		Name: TransferTasks,
		Help: "Copy tasks scheduled after acquisition.",
	})
	transferFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: TransferFailed,
		Help: "Copy tasks the copy tool reported as failed.",
	})
	satellites := prometheus.NewCounter(prometheus.CounterOpts{
		Name: SatellitesReady,
		Help: "Satellites that acknowledged their session and rig documents.",
	})
	freeStorage := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: FreeStorageBytes,
		Help: "Free bytes on the primary rig's data volume at run start.",
	})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: TasksInFlight,
		Help: "Launched tasks that have not yet returned.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    TaskDuration,
		Help:    "Wall time of launched acquisition and copy tasks.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 16),
	})

	reg.MustRegister(succeeded, failed, transfers, transferFailed, satellites, freeStorage, inFlight, duration)

	return &PromObs{
		logger: logger,
		counters: map[string]prometheus.Counter{
			AcquisitionSucceeded: succeeded,
			AcquisitionFailed:    failed,
			TransferTasks:        transfers,
			TransferFailed:       transferFailed,
			SatellitesReady:      satellites,
		},
		gauges: map[string]prometheus.Gauge{
			FreeStorageBytes: freeStorage,
			TasksInFlight:    inFlight,
		},
		histos: map[string]prometheus.Observer{
			TaskDuration: duration,
		},
	}
}

func (p *PromObs) LogDebug(msg string, fields ...ports.Field) {
	p.logger.Debug(msg, attrs(fields)...)
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, withErr(attrs(fields), err)...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.logger.Log(context.Background(), LevelCritical, msg, withErr(attrs(fields), err)...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) AddGauge(name string, delta float64) {
	if g, ok := p.gauges[name]; ok {
		g.Add(delta)
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

func withErr(args []any, err error) []any {
	if err == nil {
		return args
	}
	return append(args, slog.String("error", err.Error()))
}

var _ ports.Observability = (*PromObs)(nil)
