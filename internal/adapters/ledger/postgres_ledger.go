package ledger

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

const DefaultTable = "acquisition_runs"

// PostgresLedger records run events in a table keyed by (run_id, phase, rig_id).
type PostgresLedger struct {
	db        *sql.DB
	tableName string
}

func NewPostgresLedger(db *sql.DB, table string) *PostgresLedger {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresLedger{db: db, tableName: table}
}

func (p *PostgresLedger) Name() string { return "postgres" }

func (p *PostgresLedger) WriteBatch(events []*domain.RunEvent) error {
	if len(events) == 0 {
		return nil
	}

	const cols = 10
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.tableName)
	b.WriteString(" (run_id, experiment, session_name, phase, rig_id, exit_code, stdout, stderr, started_at, finished_at) VALUES ")

	args := make([]any, 0, len(events)*cols)
	for i, e := range events {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for c := 1; c <= cols; c++ {
			if c > 1 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", len(args)+c)
		}
		b.WriteString(")")

		args = append(args,
			e.RunID,
			e.Experiment,
			e.Session,
			string(e.Phase),
			e.RigID,
			e.ExitCode,
			e.Stdout,
			e.Stderr,
			e.StartedAt,
			e.FinishedAt,
		)
	}

	// Re-recording a run is a no-op.
	b.WriteString(" ON CONFLICT (run_id, phase, rig_id) DO NOTHING")

	_, err := p.db.Exec(b.String(), args...)
	return err
}

var _ ports.Ledger = (*PostgresLedger)(nil)
