package rigflow

import (
	"github.com/ghalamif/RigFlow/internal/app/pipeline"
	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

// Session identifies one experiment run.
type Session = domain.Session

// JustFramesRig is the primary rig and its satellites.
type JustFramesRig = domain.JustFramesRig

// SatelliteRig records alongside a primary rig.
type SatelliteRig = domain.SatelliteRig

// FipRig is the fiber photometry rig launched by the legacy experiment.
type FipRig = domain.FipRig

// RigDescriptor is the common view over every rig schema.
type RigDescriptor = domain.RigDescriptor

// AppSpec points at an acquisition app.
type AppSpec = domain.AppSpec

// TaskResult is the outcome of one launched process.
type TaskResult = domain.TaskResult

// RunEvent is one rig's task outcome as recorded by journals and ledgers.
type RunEvent = domain.RunEvent

// Experiment is an entry point: the apps launched on the primary rig, on its
// satellites and next to it.
type Experiment = pipeline.Experiment

// Report summarizes a completed run.
type Report = pipeline.Report

// RigResult pairs a rig id with its task result.
type RigResult = pipeline.RigResult

// AppLauncher builds local and remote acquisition launches.
type AppLauncher = ports.AppLauncher

// RemoteDialer opens satellite command channels.
type RemoteDialer = ports.RemoteDialer

// RemoteClient is one satellite command channel.
type RemoteClient = ports.RemoteClient

// Copier moves session data to central storage.
type Copier = ports.Copier

// StorageProbe reports free space for the precondition check.
type StorageProbe = ports.StorageProbe

// RigPicker selects rig documents.
type RigPicker = ports.RigPicker

// Ledger receives run events for bookkeeping.
type Ledger = ports.Ledger

// Journal is the append-only record of a run.
type Journal = ports.Journal

// Observability emits logs and metrics about a run.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Sentinel errors returned by Runtime.Run.
var (
	ErrInsufficientStorage = pipeline.ErrInsufficientStorage
	ErrUploadRejected      = pipeline.ErrUploadRejected
	ErrNoPrimaryRig        = pipeline.ErrNoPrimaryRig
	ErrSessionNameUnset    = domain.ErrSessionNameUnset
)

// Experiment names accepted by Runtime.Run.
const (
	ExperimentAcquisition              = pipeline.ExperimentAcquisition
	ExperimentCalibration              = pipeline.ExperimentCalibration
	ExperimentJustFramesWithSatellites = pipeline.ExperimentJustFramesWithSatellites
)
