package domain

import "time"

// Phase names the orchestration stage an event belongs to.
type Phase string

const (
	PhaseSetup       Phase = "setup"
	PhaseAcquisition Phase = "acquisition"
	PhaseTransfer    Phase = "transfer"
)

// RunEvent is the durable record of one rig's task outcome within a run. It is
// what the journal and the ledger persist.
type RunEvent struct {
	RunID      string    `json:"run_id" cbor:"run_id"`
	Experiment string    `json:"experiment" cbor:"experiment"`
	Session    string    `json:"session" cbor:"session"`
	Phase      Phase     `json:"phase" cbor:"phase"`
	RigID      string    `json:"rig_id" cbor:"rig_id"`
	ExitCode   int       `json:"exit_code" cbor:"exit_code"`
	Stdout     string    `json:"stdout" cbor:"stdout"`
	Stderr     string    `json:"stderr" cbor:"stderr"`
	StartedAt  time.Time `json:"started_at" cbor:"started_at"`
	FinishedAt time.Time `json:"finished_at" cbor:"finished_at"`
}

// NewRunEvent copies a task result into an event.
func NewRunEvent(runID, experiment, session string, phase Phase, rigID string, res TaskResult) *RunEvent {
	return &RunEvent{
		RunID:      runID,
		Experiment: experiment,
		Session:    session,
		Phase:      phase,
		RigID:      rigID,
		ExitCode:   res.ExitCode,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
}
