package rigflow

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → Rigs → Record
// without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// RigOption configures how rigs are found, reached and launched.
type RigOption func(*Flow)

// RecordOption configures where run data and run events go.
type RecordOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building a runtime.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw RuntimeOption values to the builder for advanced scenarios.
func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// Rigs records rig-side overrides (picker, launcher, satellite transport, probe).
func (f *Flow) Rigs(opts ...RigOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Record records output-side overrides and builds a Runtime ready to run.
func (f *Flow) Record(opts ...RecordOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for Record + Runtime.Run.
func (f *Flow) Run(ctx context.Context, experiment string, session *Session, opts ...RecordOption) (*Report, error) {
	rt, err := f.Record(opts...)
	if err != nil {
		return nil, err
	}
	return rt.Run(ctx, experiment, session)
}

// WithFlowOptions appends RuntimeOption values during Conf.
func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// RigPickerFrom picks the primary rig with p instead of the config library.
func RigPickerFrom(p RigPicker) RigOption {
	return func(f *Flow) {
		if f != nil && p != nil {
			f.appendOptions(WithRigPicker(p))
		}
	}
}

// RigLauncher swaps the Bonsai launcher.
func RigLauncher(l AppLauncher) RigOption {
	return func(f *Flow) {
		if f != nil && l != nil {
			f.appendOptions(WithAppLauncher(l))
		}
	}
}

// RigDialer swaps the satellite transport.
func RigDialer(d RemoteDialer) RigOption {
	return func(f *Flow) {
		if f != nil && d != nil {
			f.appendOptions(WithRemoteDialer(d))
		}
	}
}

// RigStorageProbe swaps the free-space probe.
func RigStorageProbe(p StorageProbe) RigOption {
	return func(f *Flow) {
		if f != nil && p != nil {
			f.appendOptions(WithStorageProbe(p))
		}
	}
}

// RigObservability overrides the default slog and Prometheus backend.
func RigObservability(obs Observability) RigOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// RecordCopier swaps the transfer copier.
func RecordCopier(c Copier) RecordOption {
	return func(f *Flow) {
		if f != nil && c != nil {
			f.appendOptions(WithCopier(c))
		}
	}
}

// RecordLedger adds a ledger for run events.
func RecordLedger(l Ledger) RecordOption {
	return func(f *Flow) {
		if f != nil && l != nil {
			f.appendOptions(WithLedger(l))
		}
	}
}

// RecordObservability replaces the default observability backend.
func RecordObservability(obs Observability) RecordOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// RecordCallback installs a ledger built from a simple callback function.
func RecordCallback(name string, fn RunEventHandler) RecordOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithLedger(NewCallbackLedger(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
