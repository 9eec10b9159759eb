package observability

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ghalamif/RigFlow/internal/ports"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), reg)

	obs.IncCounter(AcquisitionSucceeded, 2)
	if got := testutil.ToFloat64(obs.counters[AcquisitionSucceeded]); got != 2 {
		t.Fatalf("expected succeeded counter 2, got %f", got)
	}

	obs.IncCounter(AcquisitionFailed, 1)
	if got := testutil.ToFloat64(obs.counters[AcquisitionFailed]); got != 1 {
		t.Fatalf("expected failed counter 1, got %f", got)
	}

	obs.SetGauge(FreeStorageBytes, 3e11)
	if got := testutil.ToFloat64(obs.gauges[FreeStorageBytes]); got != 3e11 {
		t.Fatalf("expected storage gauge 3e11, got %f", got)
	}

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obs.AddGauge(TasksInFlight, 1)
			obs.AddGauge(TasksInFlight, -1)
		}()
	}
	wg.Wait()
	if got := testutil.ToFloat64(obs.gauges[TasksInFlight]); got != 0 {
		t.Fatalf("expected in-flight gauge back at 0, got %f", got)
	}

	obs.ObserveLatency(TaskDuration, 12)
	hCollector := obs.histos[TaskDuration].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected duration histogram to record 1 sample, got %d", samples)
	}

	obs.IncCounter("unknown_metric", 1)
	obs.SetGauge("unknown_gauge", 1)
}

func TestPromObsLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := NewPromObs(logger, prometheus.NewRegistry())

	obs.LogInfo("app_completed", ports.F("rig_id", "rig-a"), ports.F("stdout", "ok"))
	obs.LogError("app_failed", errors.New("exit 137"), ports.F("rig_id", "rig-b"))
	obs.LogDebug("app_stderr", ports.F("rig_id", "rig-a"))

	out := buf.String()
	for _, want := range []string{`"msg":"app_completed"`, `"rig_id":"rig-a"`, `"error":"exit 137"`, `"level":"ERROR"`, `"level":"DEBUG"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log output:\n%s", want, out)
		}
	}
}

func TestNewLoggerCriticalLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	obs := NewPromObs(logger, prometheus.NewRegistry())
	obs.LogCritical("insufficient_storage", errors.New("need more"))

	if !strings.Contains(buf.String(), `"level":"CRITICAL"`) {
		t.Fatalf("expected CRITICAL level, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel("WARN"); err != nil || lvl != slog.LevelWarn {
		t.Fatalf("expected warn, got %v %v", lvl, err)
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
