package domain

import "time"

// ExitCodeNotStarted marks a task whose process never produced an exit status
// (launch error, transport failure).
const ExitCodeNotStarted = -1

// TaskResult is the outcome of one launched process, local or remote.
type TaskResult struct {
	ExitCode   int       `json:"exit_code"`
	Stdout     string    `json:"stdout"`
	Stderr     string    `json:"stderr"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r TaskResult) OK() bool { return r.ExitCode == 0 }

func (r TaskResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedResult builds the result reported for a task that could not run.
func FailedResult(err error, started time.Time) TaskResult {
	return TaskResult{
		ExitCode:   ExitCodeNotStarted,
		Stderr:     err.Error(),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
}

// AppSpec points at an acquisition app: the executable and the workflow it
// loads.
type AppSpec struct {
	Executable string `json:"executable" yaml:"executable"`
	Workflow   string `json:"workflow" yaml:"workflow"`
}

// CopyRoute moves one source tree to one destination.
type CopyRoute struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}
