package ports

type Observability interface {
	LogDebug(msg string, fields ...Field)
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)
	// AddGauge moves a gauge by delta atomically, for counts that several
	// goroutines raise and lower.
	AddGauge(name string, delta float64)
}

type Field struct {
	Key   string
	Value any
}

func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Metric names reported by the pipeline.
const (
	MetricAcquisitionSucceeded = "rigflow_acquisition_succeeded_total"
	MetricAcquisitionFailed    = "rigflow_acquisition_failed_total"
	MetricTransferTasks        = "rigflow_transfer_tasks_total"
	MetricTransferFailed       = "rigflow_transfer_failed_total"
	MetricSatellitesReady      = "rigflow_satellites_ready_total"
	MetricFreeStorageBytes     = "rigflow_free_storage_bytes"
	MetricTasksInFlight        = "rigflow_tasks_in_flight"
	MetricTaskDuration         = "rigflow_task_duration_seconds"
)
