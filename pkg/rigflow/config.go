package rigflow

import (
	"github.com/ghalamif/RigFlow/internal/app/config"
)

// Config re-exports the root configuration struct so embedding programs can
// construct or modify it programmatically.
type Config = config.Config

type (
	// LibraryConfig locates rig documents.
	LibraryConfig = config.LibraryConfig
	// AppsConfig holds the Bonsai apps of each experiment.
	AppsConfig = config.AppsConfig
	// SatelliteConfig configures the satellite command channel.
	SatelliteConfig = config.SatelliteConfig
	// ResourceConfig holds run preconditions.
	ResourceConfig = config.ResourceConfig
	// TransferConfig configures the copy to central storage.
	TransferConfig = config.TransferConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// LedgerConfig configures the Postgres run ledger.
	LedgerConfig = config.LedgerConfig
	// JournalConfig configures the per-session run journal.
	JournalConfig = config.JournalConfig
	// LoggingConfig sets the log level.
	LoggingConfig = config.LoggingConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
