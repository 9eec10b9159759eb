package rigflow

import (
	"time"

	base "github.com/ghalamif/RigFlow/pkg/rigflow"
)

// Re-exported errors for convenience.
var (
	ErrInsufficientStorage = base.ErrInsufficientStorage
	ErrUploadRejected      = base.ErrUploadRejected
	ErrNoPrimaryRig        = base.ErrNoPrimaryRig
	ErrSessionNameUnset    = base.ErrSessionNameUnset
	ErrChannelLedgerClosed = base.ErrChannelLedgerClosed
)

// Experiment names.
const (
	ExperimentAcquisition              = base.ExperimentAcquisition
	ExperimentCalibration              = base.ExperimentCalibration
	ExperimentJustFramesWithSatellites = base.ExperimentJustFramesWithSatellites
)

// Type aliases so consumers can import github.com/ghalamif/RigFlow directly.
type (
	Config          = base.Config
	LibraryConfig   = base.LibraryConfig
	AppsConfig      = base.AppsConfig
	SatelliteConfig = base.SatelliteConfig
	ResourceConfig  = base.ResourceConfig
	TransferConfig  = base.TransferConfig
	MetricsConfig   = base.MetricsConfig
	LedgerConfig    = base.LedgerConfig
	JournalConfig   = base.JournalConfig
	LoggingConfig   = base.LoggingConfig
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	RigOption       = base.RigOption
	RecordOption    = base.RecordOption
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption
	Session         = base.Session
	JustFramesRig   = base.JustFramesRig
	SatelliteRig    = base.SatelliteRig
	FipRig          = base.FipRig
	RigDescriptor   = base.RigDescriptor
	AppSpec         = base.AppSpec
	TaskResult      = base.TaskResult
	RunEvent        = base.RunEvent
	RunEventHandler = base.RunEventHandler
	Experiment      = base.Experiment
	Report          = base.Report
	RigResult       = base.RigResult
	AppLauncher     = base.AppLauncher
	RemoteDialer    = base.RemoteDialer
	RemoteClient    = base.RemoteClient
	Copier          = base.Copier
	StorageProbe    = base.StorageProbe
	RigPicker       = base.RigPicker
	Ledger          = base.Ledger
	Journal         = base.Journal
	Observability   = base.Observability
	Field           = base.Field
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func RigPickerFrom(p RigPicker) RigOption {
	return base.RigPickerFrom(p)
}

func RigLauncher(l AppLauncher) RigOption {
	return base.RigLauncher(l)
}

func RigDialer(d RemoteDialer) RigOption {
	return base.RigDialer(d)
}

func RigStorageProbe(p StorageProbe) RigOption {
	return base.RigStorageProbe(p)
}

func RigObservability(obs Observability) RigOption {
	return base.RigObservability(obs)
}

func RecordCopier(c Copier) RecordOption {
	return base.RecordCopier(c)
}

func RecordLedger(l Ledger) RecordOption {
	return base.RecordLedger(l)
}

func RecordObservability(obs Observability) RecordOption {
	return base.RecordObservability(obs)
}

func RecordCallback(name string, fn RunEventHandler) RecordOption {
	return base.RecordCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithAppLauncher(l AppLauncher) RuntimeOption {
	return base.WithAppLauncher(l)
}

func WithRemoteDialer(d RemoteDialer) RuntimeOption {
	return base.WithRemoteDialer(d)
}

func WithCopier(c Copier) RuntimeOption {
	return base.WithCopier(c)
}

func WithStorageProbe(p StorageProbe) RuntimeOption {
	return base.WithStorageProbe(p)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithRigPicker(p RigPicker) RuntimeOption {
	return base.WithRigPicker(p)
}

func WithFipRigPicker(p RigPicker) RuntimeOption {
	return base.WithFipRigPicker(p)
}

func WithLedger(l Ledger) RuntimeOption {
	return base.WithLedger(l)
}

func WithJournal(fn func(dir string) (Journal, error)) RuntimeOption {
	return base.WithJournal(fn)
}

// Ledger adapters.
func NewCallbackLedger(name string, fn RunEventHandler) Ledger {
	return base.NewCallbackLedger(name, fn)
}

func NewChannelLedger(name string, buffer int) (Ledger, <-chan []RunEvent, func()) {
	return base.NewChannelLedger(name, buffer)
}

// Example documents.
func WriteMocks(pathSeed string, now time.Time) ([]string, error) {
	return base.WriteMocks(pathSeed, now)
}

// ReadJournal replays the run events recorded in a session's journal.
func ReadJournal(path string, fn func(RunEvent) error) error {
	return base.ReadJournal(path, fn)
}
