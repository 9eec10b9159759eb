package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

type logEntry struct {
	level  string
	msg    string
	err    error
	fields map[string]any
}

type mockObs struct {
	mu       sync.Mutex
	entries  []logEntry
	counters map[string]float64
	gauges   map[string]float64
	peaks    map[string]float64
}

func newMockObs() *mockObs {
	return &mockObs{counters: map[string]float64{}, gauges: map[string]float64{}, peaks: map[string]float64{}}
}

func (m *mockObs) log(level, msg string, err error, fields []ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fm := make(map[string]any, len(fields))
	for _, f := range fields {
		fm[f.Key] = f.Value
	}
	m.entries = append(m.entries, logEntry{level: level, msg: msg, err: err, fields: fm})
}

func (m *mockObs) LogDebug(msg string, f ...ports.Field)            { m.log("debug", msg, nil, f) }
func (m *mockObs) LogInfo(msg string, f ...ports.Field)             { m.log("info", msg, nil, f) }
func (m *mockObs) LogError(msg string, err error, f ...ports.Field) { m.log("error", msg, err, f) }
func (m *mockObs) LogCritical(msg string, err error, f ...ports.Field) {
	m.log("critical", msg, err, f)
}

func (m *mockObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += v
}

func (m *mockObs) ObserveLatency(string, float64) {}

func (m *mockObs) SetGauge(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = v
}

func (m *mockObs) AddGauge(name string, delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] += delta
	if m.gauges[name] > m.peaks[name] {
		m.peaks[name] = m.gauges[name]
	}
}

func (m *mockObs) messages(level, msg string) []logEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []logEntry
	for _, e := range m.entries {
		if e.level == level && e.msg == msg {
			out = append(out, e)
		}
	}
	return out
}

// mockLauncher runs local apps in memory. Exit codes are keyed by rig name.
type mockLauncher struct {
	mu        sync.Mutex
	exitCodes map[string]int
	local     []string
}

func (m *mockLauncher) Local(app domain.AppSpec, rig domain.RigDescriptor, session *domain.Session) (ports.Task, error) {
	name, err := session.Name()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.local = append(m.local, rig.Name())
	code := m.exitCodes[rig.Name()]
	m.mu.Unlock()
	return ports.TaskFunc(func(context.Context) domain.TaskResult {
		now := time.Now()
		return domain.TaskResult{
			ExitCode:   code,
			Stdout:     fmt.Sprintf("%s %s %s", app.Workflow, rig.Name(), name),
			Stderr:     "warmup",
			StartedAt:  now,
			FinishedAt: now,
		}
	}), nil
}

func (m *mockLauncher) RemoteCommand(app domain.AppSpec, rigPath, sessionPath string) string {
	return fmt.Sprintf("%s %s RigPath=%s SessionPath=%s", app.Executable, app.Workflow, rigPath, sessionPath)
}

func (m *mockLauncher) localCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.local)
}

type mockClient struct {
	mu       sync.Mutex
	address  string
	reject   string
	dialErr  error
	runErr   error
	exitCode int
	copyExit int
	// failRoute makes copy commands containing it exit 9.
	failRoute string
	uploads  map[string]string
	commands []string
	closed   bool
}

func (c *mockClient) UploadModel(_ context.Context, document []byte, remotePath string) (ports.UploadResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reject != "" && strings.HasSuffix(remotePath, c.reject) {
		return ports.UploadResult{Success: false}, nil
	}
	c.uploads[remotePath] = string(document)
	return ports.UploadResult{Success: true, Path: `C:\satellite\` + strings.TrimPrefix(remotePath, "./")}, nil
}

func (c *mockClient) Run(_ context.Context, command string) (domain.TaskResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, command)
	if c.runErr != nil {
		return domain.TaskResult{}, c.runErr
	}
	code := c.exitCode
	if strings.HasPrefix(command, "copy ") {
		code = c.copyExit
		if c.failRoute != "" && strings.Contains(command, c.failRoute) {
			code = 9
		}
	}
	now := time.Now()
	return domain.TaskResult{ExitCode: code, Stdout: "remote " + c.address, StartedAt: now, FinishedAt: now}, nil
}

func (c *mockClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *mockClient) ran() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commands...)
}

type mockDialer struct {
	clients map[string]*mockClient
	dialed  []string
}

func (d *mockDialer) client(address string) *mockClient {
	c, ok := d.clients[address]
	if !ok {
		c = &mockClient{address: address, uploads: map[string]string{}}
		d.clients[address] = c
	}
	return c
}

func (d *mockDialer) Dial(address string) (ports.RemoteClient, error) {
	d.dialed = append(d.dialed, address)
	c := d.client(address)
	if c.dialErr != nil {
		return nil, c.dialErr
	}
	return c, nil
}

// mockCopier records local copies; remote copies are rendered as
// "src=>dst" pairs separated by ";".
type mockCopier struct {
	mu     sync.Mutex
	local  [][]domain.CopyRoute
	result int
}

func (m *mockCopier) Task(routes []domain.CopyRoute) ports.Task {
	return ports.TaskFunc(func(context.Context) domain.TaskResult {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.local = append(m.local, routes)
		return domain.TaskResult{ExitCode: m.result}
	})
}

func (m *mockCopier) Command(routes []domain.CopyRoute) string {
	parts := make([]string, 0, len(routes))
	for _, r := range routes {
		parts = append(parts, r.Source+"=>"+r.Destination)
	}
	return "copy " + strings.Join(parts, ";")
}

func (m *mockCopier) Classify(res domain.TaskResult) domain.TaskResult {
	if res.ExitCode > 0 && res.ExitCode < 8 {
		res.ExitCode = 0
	}
	return res
}

type mockProbe struct {
	free uint64
	err  error
}

func (m mockProbe) FreeBytes(string) (uint64, error) { return m.free, m.err }

type mockJournal struct {
	ports.Journal
	mu     sync.Mutex
	dir    string
	events []*domain.RunEvent
	closed bool
}

func (m *mockJournal) Append(e *domain.RunEvent) (ports.JournalEntryID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return ports.JournalEntryID(len(m.events)), nil
}

func (m *mockJournal) Sync() error { return nil }

func (m *mockJournal) Stats() ports.JournalStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ports.JournalStats{Entries: uint64(len(m.events)), LatestID: ports.JournalEntryID(len(m.events))}
}

func (m *mockJournal) Close() error {
	m.closed = true
	return nil
}

type mockLedger struct {
	batches [][]*domain.RunEvent
}

func (m *mockLedger) WriteBatch(events []*domain.RunEvent) error {
	m.batches = append(m.batches, events)
	return nil
}

func (m *mockLedger) Name() string { return "mock" }

func testSession() *domain.Session {
	return &domain.Session{
		Experiment:   "JustFrames",
		Experimenter: []string{"Bruno"},
		Subject:      "809487",
		Date:         time.Date(2024, 5, 3, 14, 7, 9, 0, time.UTC),
	}
}

func testSatellite(name, address string) domain.SatelliteRig {
	return domain.SatelliteRig{
		RigBase: domain.RigBase{ComputerName: "W10DT7140" + name, RigName: name, DataDir: `C:\Data`},
		TriggeredCameraController0: domain.CameraController{
			FrameRate: 200,
			Cameras:   map[string]domain.SpinnakerCamera{"Camera0": {SerialNumber: "serial-" + name}},
		},
		ZmqProtocolConfig: domain.NetworkConfig{Address: address, Port: 5556},
	}
}

func testRig(sats ...domain.SatelliteRig) *domain.JustFramesRig {
	return &domain.JustFramesRig{
		RigBase: domain.RigBase{ComputerName: "W10DT714163", RigName: "MotorObservatory0000", DataDir: `D:\Data`},
		TriggeredCameraController0: domain.CameraController{
			FrameRate: 200,
			Cameras:   map[string]domain.SpinnakerCamera{"Camera0": {SerialNumber: "23382593"}},
		},
		HarpBehavior:  domain.HarpBoard{DeviceType: domain.HarpDeviceBehavior, PortName: "COM3"},
		SatelliteRigs: sats,
	}
}

type harness struct {
	orch     *Orchestrator
	obs      *mockObs
	launcher *mockLauncher
	dialer   *mockDialer
	copier   *mockCopier
	journal  *mockJournal
	ledger   *mockLedger
}

func newHarness() *harness {
	h := &harness{
		obs:      newMockObs(),
		launcher: &mockLauncher{exitCodes: map[string]int{}},
		dialer:   &mockDialer{clients: map[string]*mockClient{}},
		copier:   &mockCopier{},
		journal:  &mockJournal{},
		ledger:   &mockLedger{},
	}
	h.orch = &Orchestrator{
		Launcher: h.launcher,
		Dialer:   h.dialer,
		Copier:   h.copier,
		Probe:    mockProbe{free: 3e11},
		Obs:      h.obs,
		OpenJournal: func(dir string) (ports.Journal, error) {
			h.journal.dir = dir
			return h.journal, nil
		},
		Ledgers: []ports.Ledger{h.ledger},
		Settings: Settings{
			UploadRoot:  ".",
			Destination: `\\allen\aind\stage`,
		},
	}
	return h
}

func acquisition() Experiment {
	return Acquisition(
		domain.AppSpec{Executable: "bonsai.exe", Workflow: "main.bonsai"},
		domain.AppSpec{Executable: "sat-bonsai.exe", Workflow: "main.bonsai"},
	)
}
