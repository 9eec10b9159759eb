package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrSessionNameUnset is returned when a per-rig path is requested before the
// session was registered.
var ErrSessionNameUnset = errors.New("session name is not set")

// SessionNameLayout formats the session date inside the session name.
const SessionNameLayout = "20060102T150405"

// Session identifies one experiment run. The launcher registers it once at
// start; everything downstream treats it as read-only.
type Session struct {
	Version                string    `json:"version,omitempty"`
	Experiment             string    `json:"experiment"`
	Experimenter           []string  `json:"experimenter"`
	Date                   time.Time `json:"date"`
	RootPath               string    `json:"root_path,omitempty"`
	SessionName            string    `json:"session_name,omitempty"`
	Subject                string    `json:"subject"`
	ExperimentVersion      string    `json:"experiment_version,omitempty"`
	Notes                  string    `json:"notes,omitempty"`
	CommitHash             string    `json:"commit_hash,omitempty"`
	AllowDirtyRepo         bool      `json:"allow_dirty_repo"`
	SkipHardwareValidation bool      `json:"skip_hardware_validation"`

	extra map[string]any
}

func (s *Session) SchemaName() string { return "AindBehaviorSessionModel" }

func (s Session) MarshalJSON() ([]byte, error) {
	type plain Session
	return marshalWithUnmodeled(plain(s), s.extra)
}

func (s *Session) UnmarshalJSON(data []byte) error {
	type plain Session
	if err := json.Unmarshal(data, (*plain)(s)); err != nil {
		return err
	}
	extra, err := unmodeledFields(data, (*plain)(s))
	s.extra = extra
	return err
}

func (s *Session) Validate() error {
	if s.Subject == "" {
		return errors.New("session subject is required")
	}
	if s.Date.IsZero() {
		return errors.New("session date is required")
	}
	return nil
}

// Register assigns the session name, if it is not already set, as
// "<subject>_<date>" with the date in UTC, and returns it.
func (s *Session) Register() (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	if s.SessionName == "" {
		s.SessionName = s.Subject + "_" + s.Date.UTC().Format(SessionNameLayout)
	}
	return s.SessionName, nil
}

// Name returns the registered session name.
func (s *Session) Name() (string, error) {
	if s == nil || s.SessionName == "" {
		return "", ErrSessionNameUnset
	}
	return s.SessionName, nil
}
