package rigflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/RigFlow/internal/adapters/bonsai"
	"github.com/ghalamif/RigFlow/internal/adapters/journal"
	"github.com/ghalamif/RigFlow/internal/adapters/ledger"
	"github.com/ghalamif/RigFlow/internal/adapters/library"
	"github.com/ghalamif/RigFlow/internal/adapters/observability"
	"github.com/ghalamif/RigFlow/internal/adapters/resource"
	"github.com/ghalamif/RigFlow/internal/adapters/robocopy"
	"github.com/ghalamif/RigFlow/internal/adapters/xmlrpc"
	"github.com/ghalamif/RigFlow/internal/app/pipeline"
	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	launcher      AppLauncher
	dialer        RemoteDialer
	copier        Copier
	probe         StorageProbe
	observability Observability
	rigPicker     RigPicker
	fipRigPicker  RigPicker
	ledgers       []Ledger
	openJournal   func(dir string) (Journal, error)
}

// WithAppLauncher replaces the Bonsai launcher.
func WithAppLauncher(l AppLauncher) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.launcher = l
	}
}

// WithRemoteDialer replaces the XML-RPC satellite transport.
func WithRemoteDialer(d RemoteDialer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.dialer = d
	}
}

// WithCopier replaces robocopy for the transfer phase.
func WithCopier(c Copier) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.copier = c
	}
}

// WithStorageProbe replaces the disk free-space probe.
func WithStorageProbe(p StorageProbe) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.probe = p
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithRigPicker replaces the config library lookup of the primary rig.
func WithRigPicker(p RigPicker) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.rigPicker = p
	}
}

// WithFipRigPicker replaces the lookup of the photometry rig.
func WithFipRigPicker(p RigPicker) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.fipRigPicker = p
	}
}

// WithLedger adds a ledger next to the configured Postgres ledger, if any.
func WithLedger(l Ledger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.ledgers = append(o.ledgers, l)
	}
}

// WithJournal replaces the file journal. fn receives the session log
// directory.
func WithJournal(fn func(dir string) (Journal, error)) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.openJournal = fn
	}
}

// Runtime wires the orchestration pipeline to its adapters and runs
// experiments against rigs picked from the config library.
type Runtime struct {
	cfg          *Config
	obs          ports.Observability
	registry     *prometheus.Registry
	orch         *pipeline.Orchestrator
	rigPicker    ports.RigPicker
	fipRigPicker ports.RigPicker
	db           *sql.DB
	metricsSrv   *http.Server
}

// NewRuntime bootstraps the default adapters (Bonsai launcher, XML-RPC
// satellites, robocopy, disk probe, file journal, optional Postgres ledger,
// slog and Prometheus observability). RuntimeOption values override any of
// them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	rt := &Runtime{cfg: cfg}

	rt.obs = overrides.observability
	if rt.obs == nil {
		logger, err := observability.NewLogger(os.Stderr, cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		rt.registry = prometheus.NewRegistry()
		rt.obs = observability.NewPromObs(logger, rt.registry)
	}

	launcher := overrides.launcher
	if launcher == nil {
		l := bonsai.NewLauncher(cfg.Apps.DocumentDir)
		l.WorkingDir = cfg.Apps.WorkingDir
		launcher = l
	}

	dialer := overrides.dialer
	if dialer == nil {
		dialer = &xmlrpc.Dialer{
			Port:         cfg.Satellites.RPCPort,
			Token:        cfg.Satellites.Token,
			PollInterval: cfg.Satellites.PollInterval,
		}
	}

	copier := overrides.copier
	if copier == nil && !cfg.Transfer.Skip {
		copier = robocopy.New(robocopy.Settings{
			Executable:   cfg.Transfer.Executable,
			ExtraArgs:    cfg.Transfer.ExtraArgs,
			LogPath:      cfg.Transfer.LogPath,
			DeleteSource: cfg.Transfer.DeleteSource,
			Overwrite:    cfg.Transfer.Overwrite,
		})
	}

	probe := overrides.probe
	if probe == nil {
		probe = resource.NewDiskProbe()
	}

	ledgers := overrides.ledgers
	if cfg.Ledger.ConnString != "" {
		db, err := sql.Open("postgres", cfg.Ledger.ConnString)
		if err != nil {
			return nil, err
		}
		rt.db = db
		ledgers = append(ledgers, ledger.NewPostgresLedger(db, cfg.Ledger.Table))
	}

	openJournal := overrides.openJournal
	if openJournal == nil && !cfg.Journal.Disabled {
		name := cfg.Journal.FileName
		openJournal = func(dir string) (ports.Journal, error) {
			j, err := journal.Open(dir, name)
			if err != nil {
				return nil, err
			}
			return j, nil
		}
	}

	var err error
	rt.rigPicker = overrides.rigPicker
	if rt.rigPicker == nil {
		if rt.rigPicker, err = newLibraryPicker(cfg.Library.Dir, cfg.Library.Computer, cfg.Library.Rig); err != nil {
			return nil, err
		}
	}
	rt.fipRigPicker = overrides.fipRigPicker
	if rt.fipRigPicker == nil {
		dir := cfg.Library.FipDir
		if dir == "" {
			dir = cfg.Library.Dir
		}
		if rt.fipRigPicker, err = newLibraryPicker(dir, cfg.Library.Computer, cfg.Library.FipRig); err != nil {
			return nil, err
		}
	}

	rt.orch = &pipeline.Orchestrator{
		Launcher:    launcher,
		Dialer:      dialer,
		Copier:      copier,
		Probe:       probe,
		Obs:         rt.obs,
		OpenJournal: openJournal,
		Ledgers:     ledgers,
		Settings: pipeline.Settings{
			MinFreeBytes: cfg.Resources.MinFreeBytes,
			UploadRoot:   cfg.Satellites.UploadRoot,
			Destination:  cfg.Transfer.Destination,
			SkipTransfer: cfg.Transfer.Skip,
		},
	}
	return rt, nil
}

func newLibraryPicker(dir, computer, rigFile string) (*library.Picker, error) {
	if computer != "" {
		return &library.Picker{Root: dir, Computer: computer, RigFile: rigFile}, nil
	}
	return library.NewPicker(dir, rigFile)
}

// Start launches the metrics server when metrics.addr is configured.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if r.cfg.Metrics.Addr != "" && r.metricsSrv == nil {
		r.startMetrics()
	}
	return nil
}

// Experiment builds the named entry point from the configured apps. The
// legacy experiment also picks the photometry rig.
func (r *Runtime) Experiment(name string) (Experiment, error) {
	apps := r.cfg.Apps
	switch name {
	case ExperimentAcquisition, "":
		return pipeline.Acquisition(apps.Acquisition, apps.Satellite), nil
	case ExperimentCalibration:
		satellite := domain.AppSpec{Executable: apps.Satellite.Executable, Workflow: apps.Calibration.Workflow}
		return pipeline.Calibration(apps.Calibration, satellite), nil
	case ExperimentJustFramesWithSatellites:
		var fip domain.FipRig
		if err := r.fipRigPicker.PickRig(&fip); err != nil {
			return Experiment{}, fmt.Errorf("pick fip rig: %w", err)
		}
		return pipeline.JustFramesWithSatellites(apps.Acquisition, apps.Satellite, apps.Fip, &fip), nil
	default:
		return Experiment{}, fmt.Errorf("unknown experiment %q", name)
	}
}

// RunExperiment picks the primary rig and runs the named experiment for
// session.
func (r *Runtime) RunExperiment(ctx context.Context, name string, session *Session) (*Report, error) {
	exp, err := r.Experiment(name)
	if err != nil {
		return nil, err
	}
	var rig domain.JustFramesRig
	if err := r.rigPicker.PickRig(&rig); err != nil {
		return nil, fmt.Errorf("pick rig: %w", err)
	}
	return r.orch.Run(ctx, exp, &rig, session)
}

// Run starts the runtime, runs one experiment and shuts down.
func (r *Runtime) Run(ctx context.Context, name string, session *Session) (*Report, error) {
	if err := r.Start(); err != nil {
		return nil, err
	}
	report, runErr := r.RunExperiment(ctx, name, session)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(shutdownCtx); err != nil {
		return report, errors.Join(runErr, err)
	}
	return report, runErr
}

// Shutdown stops the metrics server and closes the ledger database.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		r.metricsSrv = nil
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
		r.db = nil
	}

	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if r.registry != nil {
		gatherer = r.registry
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:              r.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := r.metricsSrv
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_exited", err, ports.F("addr", srv.Addr))
		}
	}()
}
