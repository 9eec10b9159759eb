package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

// Experiment entry points.
const (
	ExperimentAcquisition              = "acquisition"
	ExperimentCalibration              = "calibration"
	ExperimentJustFramesWithSatellites = "just_frames_with_satellites"
)

// FipTaskID is the task id of the photometry app launched next to the
// primary rig by the just_frames_with_satellites experiment.
const FipTaskID = "fip_task"

var ErrNoPrimaryRig = errors.New("no primary rig")

// Companion is an extra local app launched with the primary rig against its
// own rig document. Companions are acquired but not transferred.
type Companion struct {
	ID  string
	App domain.AppSpec
	Rig domain.RigDescriptor
}

// Experiment is one entry point. All entry points share the same run
// sequence and differ only in the apps they launch.
type Experiment struct {
	Name         string
	App          domain.AppSpec
	SatelliteApp domain.AppSpec
	Companions   []Companion
}

func Acquisition(app, satelliteApp domain.AppSpec) Experiment {
	return Experiment{Name: ExperimentAcquisition, App: app, SatelliteApp: satelliteApp}
}

func Calibration(app, satelliteApp domain.AppSpec) Experiment {
	return Experiment{Name: ExperimentCalibration, App: app, SatelliteApp: satelliteApp}
}

func JustFramesWithSatellites(app, satelliteApp, fipApp domain.AppSpec, fipRig *domain.FipRig) Experiment {
	return Experiment{
		Name:         ExperimentJustFramesWithSatellites,
		App:          app,
		SatelliteApp: satelliteApp,
		Companions:   []Companion{{ID: FipTaskID, App: fipApp, Rig: fipRig}},
	}
}

type Settings struct {
	MinFreeBytes uint64
	UploadRoot   string
	// Destination is the central storage root; sessions land under
	// <Destination>/<subject>/<session>.
	Destination  string
	SkipTransfer bool
}

// Orchestrator runs experiments. Journal and ledgers are optional.
type Orchestrator struct {
	Launcher ports.AppLauncher
	Dialer   ports.RemoteDialer
	Copier   ports.Copier
	Probe    ports.StorageProbe
	Obs      ports.Observability
	// OpenJournal opens the run journal in a directory under the session's
	// data directory, so it is transferred with the data.
	OpenJournal func(dir string) (ports.Journal, error)
	Ledgers     []ports.Ledger
	Settings    Settings
}

// Report summarizes a completed run.
type Report struct {
	RunID       string
	Experiment  string
	Session     string
	Acquisition []RigResult
	Transfers   []RigResult
}

func (r *Report) FailedAcquisitions() []RigResult {
	var out []RigResult
	for _, res := range r.Acquisition {
		if !res.Result.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Run executes exp on rig: register the session, check storage, set up every
// satellite, launch all apps together, report, then copy every rig's data to
// central storage. Fatal preconditions return an error before anything is
// launched. Failed apps do not; they are in the report.
func (o *Orchestrator) Run(ctx context.Context, exp Experiment, rig *domain.JustFramesRig, session *domain.Session) (*Report, error) {
	if rig == nil {
		return nil, ErrNoPrimaryRig
	}
	if err := rig.Validate(); err != nil {
		return nil, err
	}
	for _, c := range exp.Companions {
		if err := c.Rig.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", c.ID, err)
		}
	}
	sessionName, err := session.Register()
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString(), Experiment: exp.Name, Session: sessionName}
	log := []ports.Field{ports.F("run_id", report.RunID), ports.F("experiment", exp.Name), ports.F("session", sessionName)}
	o.Obs.LogInfo("run_started", append(log, ports.F("satellites", len(rig.SatelliteRigs)))...)

	if err := CheckStorage(o.Probe, rig.DataDirectory(), o.Settings.MinFreeBytes, o.Obs); err != nil {
		return nil, err
	}

	rec := o.newRecorder(report, joinPath(rig.DataDirectory(), sessionName, BehaviorDir, "Logs"))
	defer rec.close()

	conns, err := SetupSatellites(ctx, SatelliteSetup{
		Dialer:     o.Dialer,
		Launcher:   o.Launcher,
		App:        exp.SatelliteApp,
		UploadRoot: o.Settings.UploadRoot,
		Obs:        o.Obs,
	}, rig.SatelliteRigs, session)
	if err != nil {
		rec.record(domain.PhaseSetup, []RigResult{{RigID: failedSatellite(err), Result: domain.FailedResult(err, rec.started)}})
		return nil, err
	}
	defer func() {
		if err := CloseConnections(conns); err != nil {
			o.Obs.LogError("satellite_close_failed", err)
		}
	}()
	setup := make([]RigResult, 0, len(conns))
	for _, c := range conns {
		setup = append(setup, RigResult{RigID: c.Rig.RigName, Result: domain.TaskResult{
			Stdout:     fmt.Sprintf("session=%s rig=%s", c.SessionPath, c.RigPath),
			StartedAt:  rec.started,
			FinishedAt: rec.started,
		}})
	}
	rec.record(domain.PhaseSetup, setup)

	tasks, err := o.acquisitionTasks(exp, rig, session, conns)
	if err != nil {
		return nil, err
	}
	report.Acquisition = LaunchAll(ctx, tasks, o.Obs)
	failed := ReportAcquisition(report.Acquisition, o.Obs)
	rec.record(domain.PhaseAcquisition, report.Acquisition)
	rec.sync()

	if o.Settings.SkipTransfer || o.Copier == nil {
		o.Obs.LogInfo("transfer_skipped", log...)
	} else {
		plans, err := PlanTransfers(rig, session, o.Settings.Destination)
		if err != nil {
			return report, err
		}
		transfers := TransferTasks(plans, o.Copier, conns)
		o.Obs.IncCounter(ports.MetricTransferTasks, float64(len(transfers)))
		report.Transfers = LaunchAll(ctx, transfers, o.Obs)
		ReportTransfers(report.Transfers, o.Obs)
		rec.record(domain.PhaseTransfer, report.Transfers)
	}

	o.Obs.LogInfo("run_finished", append(log, ports.F("failed_apps", failed))...)
	return report, nil
}

// acquisitionTasks lists satellites first, then the primary, then companions.
func (o *Orchestrator) acquisitionTasks(exp Experiment, rig *domain.JustFramesRig, session *domain.Session, conns []*SatelliteConnection) ([]RigTask, error) {
	tasks := make([]RigTask, 0, len(conns)+1+len(exp.Companions))
	for _, c := range conns {
		tasks = append(tasks, RigTask{RigID: c.Rig.RigName, Task: c.Task()})
	}

	primary, err := o.Launcher.Local(exp.App, rig, session)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", rig.RigName, err)
	}
	tasks = append(tasks, RigTask{RigID: rig.RigName, Task: primary})

	for _, c := range exp.Companions {
		task, err := o.Launcher.Local(c.App, c.Rig, session)
		if err != nil {
			return nil, fmt.Errorf("prepare %s: %w", c.ID, err)
		}
		tasks = append(tasks, RigTask{RigID: c.ID, Task: task})
	}
	return tasks, nil
}

func failedSatellite(err error) string {
	var setupErr *SatelliteSetupError
	if errors.As(err, &setupErr) {
		return setupErr.Rig
	}
	return ""
}
