package rigflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Transfer.Destination = "/mnt/stage"
	cfg.Library.Computer = "W10DT714163"
	cfg.Journal.Disabled = true
	return cfg
}

func TestNewRuntimeWithCustomAdapters(t *testing.T) {
	launcher := &stubLauncher{}
	dialer := &stubDialer{}
	copier := &stubCopier{}
	probe := stubProbe{}
	obs := &stubObservability{}
	picker := stubPicker{}

	rt, err := NewRuntime(
		testConfig(t),
		WithAppLauncher(launcher),
		WithRemoteDialer(dialer),
		WithCopier(copier),
		WithStorageProbe(probe),
		WithObservability(obs),
		WithRigPicker(picker),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	if rt.orch.Launcher != launcher {
		t.Fatalf("expected custom launcher to be used")
	}
	if rt.orch.Dialer != dialer {
		t.Fatalf("expected custom dialer to be used")
	}
	if rt.orch.Copier != copier {
		t.Fatalf("expected custom copier to be used")
	}
	if rt.orch.Probe != probe {
		t.Fatalf("expected custom probe to be used")
	}
	if rt.obs != obs {
		t.Fatalf("expected custom observability to be used")
	}
	if rt.rigPicker != picker {
		t.Fatalf("expected custom rig picker to be used")
	}
	if rt.db != nil {
		t.Fatalf("expected db to be nil without a ledger connection string")
	}
	if rt.registry != nil {
		t.Fatalf("expected no registry when observability is injected")
	}
}

func TestNewRuntimeDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Journal.Disabled = false
	rt, err := NewRuntime(cfg)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}
	if rt.orch.Copier == nil || rt.orch.OpenJournal == nil {
		t.Fatalf("expected default copier and journal")
	}
	if rt.registry == nil {
		t.Fatalf("expected a private metrics registry")
	}
	if rt.orch.Settings.MinFreeBytes != 2e11 || rt.orch.Settings.UploadRoot != "." {
		t.Fatalf("unexpected pipeline settings %+v", rt.orch.Settings)
	}

	cfg.Transfer.Skip = true
	rt, err = NewRuntime(cfg, WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}
	if rt.orch.Copier != nil || !rt.orch.Settings.SkipTransfer {
		t.Fatalf("expected transfer disabled")
	}
}

func TestRuntimeExperiments(t *testing.T) {
	rt, err := NewRuntime(testConfig(t), WithObservability(&stubObservability{}), WithFipRigPicker(stubPicker{}))
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	exp, err := rt.Experiment(ExperimentCalibration)
	if err != nil {
		t.Fatalf("calibration: %v", err)
	}
	if exp.App.Workflow != "./Aind.Behavior.JustFrames/src/calibration.bonsai" || exp.SatelliteApp.Workflow != exp.App.Workflow {
		t.Fatalf("expected calibration workflow on primary and satellites, got %+v", exp)
	}

	exp, err = rt.Experiment(ExperimentJustFramesWithSatellites)
	if err != nil {
		t.Fatalf("legacy: %v", err)
	}
	if len(exp.Companions) != 1 || exp.Companions[0].ID != "fip_task" || exp.Companions[0].Rig.Name() != "MOT.01" {
		t.Fatalf("expected fip companion, got %+v", exp.Companions)
	}

	if _, err := rt.Experiment("habituation"); err == nil {
		t.Fatalf("expected unknown experiment error")
	}
}

func TestRuntimeRunEndToEnd(t *testing.T) {
	ledger, events, closeEvents := NewChannelLedger("events", 8)
	defer closeEvents()

	rt, err := NewRuntime(
		testConfig(t),
		WithAppLauncher(&stubLauncher{}),
		WithRemoteDialer(&stubDialer{}),
		WithCopier(&stubCopier{}),
		WithStorageProbe(stubProbe{free: 5e11}),
		WithObservability(&stubObservability{}),
		WithRigPicker(stubPicker{}),
		WithLedger(ledger),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	report, err := rt.Run(context.Background(), ExperimentAcquisition, MockSession(time.Date(2024, 5, 3, 14, 7, 9, 0, time.UTC)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Session != "809487_20240503T140709" {
		t.Fatalf("unexpected session name %s", report.Session)
	}
	if len(report.Acquisition) != 2 || len(report.Transfers) != 2 {
		t.Fatalf("expected 2 acquisitions and 2 transfers, got %d and %d", len(report.Acquisition), len(report.Transfers))
	}

	phases := map[domain.Phase]int{}
	for i := 0; i < 3; i++ {
		select {
		case batch := <-events:
			for _, e := range batch {
				phases[e.Phase]++
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for ledger batch %d", i)
		}
	}
	if phases[domain.PhaseSetup] != 1 || phases[domain.PhaseAcquisition] != 2 || phases[domain.PhaseTransfer] != 2 {
		t.Fatalf("unexpected ledger phases %v", phases)
	}
}

func TestRuntimeRunInsufficientStorage(t *testing.T) {
	rt, err := NewRuntime(
		testConfig(t),
		WithAppLauncher(&stubLauncher{}),
		WithRemoteDialer(&stubDialer{}),
		WithStorageProbe(stubProbe{free: 1}),
		WithObservability(&stubObservability{}),
		WithRigPicker(stubPicker{}),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}
	_, err = rt.Run(context.Background(), ExperimentAcquisition, MockSession(time.Now()))
	if !errors.Is(err, ErrInsufficientStorage) {
		t.Fatalf("expected ErrInsufficientStorage, got %v", err)
	}
}

type stubPicker struct{}

func (stubPicker) PickRig(rig domain.RigDescriptor) error {
	switch r := rig.(type) {
	case *domain.JustFramesRig:
		*r = *MockRig()
	case *domain.FipRig:
		*r = *MockFipRig()
	default:
		return fmt.Errorf("unexpected rig type %T", rig)
	}
	return nil
}

type stubLauncher struct{}

func (s *stubLauncher) Local(domain.AppSpec, domain.RigDescriptor, *domain.Session) (ports.Task, error) {
	return ports.TaskFunc(func(context.Context) domain.TaskResult { return domain.TaskResult{} }), nil
}

func (s *stubLauncher) RemoteCommand(app domain.AppSpec, rigPath, sessionPath string) string {
	return app.Workflow + " " + rigPath + " " + sessionPath
}

type stubDialer struct{}

func (s *stubDialer) Dial(string) (ports.RemoteClient, error) { return &stubClient{}, nil }

type stubClient struct{}

func (c *stubClient) UploadModel(_ context.Context, _ []byte, remotePath string) (ports.UploadResult, error) {
	return ports.UploadResult{Success: true, Path: remotePath}, nil
}

func (c *stubClient) Run(context.Context, string) (domain.TaskResult, error) {
	return domain.TaskResult{}, nil
}

func (c *stubClient) Close() error { return nil }

type stubCopier struct{}

func (s *stubCopier) Task([]domain.CopyRoute) ports.Task {
	return ports.TaskFunc(func(context.Context) domain.TaskResult { return domain.TaskResult{} })
}
func (s *stubCopier) Command([]domain.CopyRoute) string                 { return "copy" }
func (s *stubCopier) Classify(res domain.TaskResult) domain.TaskResult { return res }

type stubProbe struct {
	free uint64
}

func (s stubProbe) FreeBytes(string) (uint64, error) { return s.free, nil }

type stubObservability struct {
	mu     sync.Mutex
	errors []error
}

func (s *stubObservability) LogDebug(string, ...Field) {}
func (s *stubObservability) LogInfo(string, ...Field)  {}
func (s *stubObservability) LogError(_ string, err error, _ ...Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, err)
}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) AddGauge(string, float64)            {}
