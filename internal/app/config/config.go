package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/RigFlow/internal/adapters/observability"
	"github.com/ghalamif/RigFlow/internal/domain"
)

// TokenEnv supplies satellites.token when the file leaves it empty.
const TokenEnv = "RIGFLOW_RPC_TOKEN"

type Config struct {
	Library    LibraryConfig   `yaml:"library"`
	Apps       AppsConfig      `yaml:"apps"`
	Satellites SatelliteConfig `yaml:"satellites"`
	Resources  ResourceConfig  `yaml:"resources"`
	Transfer   TransferConfig  `yaml:"transfer"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Ledger     LedgerConfig    `yaml:"ledger"`
	Journal    JournalConfig   `yaml:"journal"`
	Logging    LoggingConfig   `yaml:"logging"`
}

// LibraryConfig points at the config libraries rigs are picked from.
type LibraryConfig struct {
	Dir    string `yaml:"dir"`
	Rig    string `yaml:"rig"`
	FipDir string `yaml:"fip_dir"`
	FipRig string `yaml:"fip_rig"`
	// Computer overrides the host name used to locate rig documents.
	Computer string `yaml:"computer"`
}

type AppsConfig struct {
	Acquisition domain.AppSpec `yaml:"acquisition"`
	Calibration domain.AppSpec `yaml:"calibration"`
	// Satellite paths are resolved on the satellite host.
	Satellite domain.AppSpec `yaml:"satellite"`
	Fip       domain.AppSpec `yaml:"fip"`
	// DocumentDir receives the rig and session documents of local launches.
	DocumentDir string `yaml:"document_dir"`
	WorkingDir  string `yaml:"working_dir"`
}

type SatelliteConfig struct {
	RPCPort      int           `yaml:"rpc_port"`
	Token        string        `yaml:"token"`
	UploadRoot   string        `yaml:"upload_root"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type ResourceConfig struct {
	MinFreeBytes uint64 `yaml:"min_free_bytes"`
}

type TransferConfig struct {
	Skip         bool   `yaml:"skip"`
	Destination  string `yaml:"destination"`
	Executable   string `yaml:"executable"`
	ExtraArgs    string `yaml:"extra_args"`
	LogPath      string `yaml:"log_path"`
	DeleteSource bool   `yaml:"delete_source"`
	Overwrite    bool   `yaml:"overwrite"`
}

// MetricsConfig enables the /metrics endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LedgerConfig enables the Postgres run ledger when ConnString is set.
type LedgerConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type JournalConfig struct {
	Disabled bool   `yaml:"disabled"`
	FileName string `yaml:"file_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	justFrames := domain.AppSpec{
		Executable: "./Aind.Behavior.JustFrames/bonsai/bonsai.exe",
		Workflow:   "./Aind.Behavior.JustFrames/src/main.bonsai",
	}
	if c.Apps.Acquisition.Executable == "" {
		c.Apps.Acquisition.Executable = justFrames.Executable
	}
	if c.Apps.Acquisition.Workflow == "" {
		c.Apps.Acquisition.Workflow = justFrames.Workflow
	}
	if c.Apps.Calibration.Executable == "" {
		c.Apps.Calibration.Executable = c.Apps.Acquisition.Executable
	}
	if c.Apps.Calibration.Workflow == "" {
		c.Apps.Calibration.Workflow = "./Aind.Behavior.JustFrames/src/calibration.bonsai"
	}
	if c.Apps.Satellite.Executable == "" {
		c.Apps.Satellite.Executable = justFrames.Executable
	}
	if c.Apps.Satellite.Workflow == "" {
		c.Apps.Satellite.Workflow = justFrames.Workflow
	}
	if c.Apps.Fip.Executable == "" {
		c.Apps.Fip.Executable = "./Aind.Physiology.Fip/bonsai/bonsai.exe"
	}
	if c.Apps.Fip.Workflow == "" {
		c.Apps.Fip.Workflow = "./Aind.Physiology.Fip/src/main.bonsai"
	}
	if c.Apps.DocumentDir == "" {
		c.Apps.DocumentDir = filepath.Join(os.TempDir(), "rigflow")
	}

	if c.Satellites.RPCPort == 0 {
		c.Satellites.RPCPort = 8000
	}
	if c.Satellites.Token == "" {
		c.Satellites.Token = os.Getenv(TokenEnv)
	}
	if c.Satellites.UploadRoot == "" {
		c.Satellites.UploadRoot = "."
	}
	if c.Satellites.PollInterval == 0 {
		c.Satellites.PollInterval = time.Second
	}

	if c.Resources.MinFreeBytes == 0 {
		c.Resources.MinFreeBytes = 200_000_000_000
	}
	if c.Transfer.ExtraArgs == "" {
		c.Transfer.ExtraArgs = "/E /DCOPY:DAT /R:100 /W:3 /tee"
	}
	if c.Ledger.Table == "" {
		c.Ledger.Table = "acquisition_runs"
	}
	if c.Journal.FileName == "" {
		c.Journal.FileName = "rigflow.journal"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if !c.Transfer.Skip && c.Transfer.Destination == "" {
		return fmt.Errorf("transfer.destination is required unless transfer.skip is set")
	}
	if c.Satellites.RPCPort < 1 || c.Satellites.RPCPort > 65535 {
		return fmt.Errorf("satellites.rpc_port %d out of range", c.Satellites.RPCPort)
	}
	if c.Satellites.PollInterval < 0 {
		return fmt.Errorf("satellites.poll_interval must be positive")
	}
	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Validate re-checks a configuration assembled in code.
func (c *Config) Validate() error {
	c.applyDefaults()
	return c.validate()
}
