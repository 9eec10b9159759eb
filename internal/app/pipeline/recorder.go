package pipeline

import (
	"time"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

// recorder writes run events to the journal and ledgers. Bookkeeping
// failures are logged and never fail the run.
type recorder struct {
	report  *Report
	journal ports.Journal
	ledgers []ports.Ledger
	obs     ports.Observability
	started time.Time
}

func (o *Orchestrator) newRecorder(report *Report, journalDir string) *recorder {
	rec := &recorder{report: report, ledgers: o.Ledgers, obs: o.Obs, started: time.Now()}
	if o.OpenJournal == nil {
		return rec
	}
	j, err := o.OpenJournal(journalDir)
	if err != nil {
		o.Obs.LogError("journal_open_failed", err, ports.F("dir", journalDir))
		return rec
	}
	rec.journal = j
	return rec
}

func (r *recorder) record(phase domain.Phase, results []RigResult) {
	if len(results) == 0 {
		return
	}
	events := make([]*domain.RunEvent, 0, len(results))
	for _, res := range results {
		events = append(events, domain.NewRunEvent(r.report.RunID, r.report.Experiment, r.report.Session, phase, res.RigID, res.Result))
	}

	if r.journal != nil {
		for _, e := range events {
			if _, err := r.journal.Append(e); err != nil {
				r.obs.LogError("journal_append_failed", err, ports.F("rig_id", e.RigID), ports.F("phase", string(phase)))
			}
		}
	}
	for _, l := range r.ledgers {
		if err := l.WriteBatch(events); err != nil {
			r.obs.LogError("ledger_write_failed", err, ports.F("ledger", l.Name()), ports.F("phase", string(phase)))
		}
	}
}

func (r *recorder) sync() {
	if r.journal == nil {
		return
	}
	if err := r.journal.Sync(); err != nil {
		r.obs.LogError("journal_sync_failed", err)
		return
	}
	st := r.journal.Stats()
	r.obs.LogDebug("journal_synced",
		ports.F("entries", st.Entries),
		ports.F("latest_id", uint64(st.LatestID)),
		ports.F("size_bytes", st.SizeBytes),
	)
}

func (r *recorder) close() {
	if r.journal == nil {
		return
	}
	if err := r.journal.Close(); err != nil {
		r.obs.LogError("journal_close_failed", err)
	}
}
