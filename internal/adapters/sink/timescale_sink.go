package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// TimescaleSink persists decisions and action records for offline analysis.
// Inserts are idempotent under at-least-once delivery via the unique
// (machine_id, ts) key.
type TimescaleSink struct {
	db            *sql.DB
	decisionTable string
	actionTable   string
}

func NewTimescaleSink(db *sql.DB, decisionTable, actionTable string) *TimescaleSink {
	return &TimescaleSink{db: db, decisionTable: decisionTable, actionTable: actionTable}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) RecordDecisions(decisions []*domain.Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.decisionTable)
	b.WriteString(" (machine_id, ts, classification, confidence, recommended_action, scorer_version) VALUES ")

	args := make([]any, 0, len(decisions)*6)
	for i, d := range decisions {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5, len(args)+6))
		args = append(args,
			d.MachineID,
			d.Timestamp,
			d.Classification.String(),
			d.Confidence,
			d.Action.String(),
			d.ScorerVersion,
		)
	}
	b.WriteString(" ON CONFLICT (machine_id, ts) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

func (t *TimescaleSink) RecordActions(records []*domain.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.actionTable)
	b.WriteString(" (machine_id, ts, action, outcome, attempts, detail) VALUES ")

	args := make([]any, 0, len(records)*6)
	for i, r := range records {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5, len(args)+6))
		args = append(args,
			r.MachineID,
			r.Timestamp,
			r.Action.String(),
			string(r.Outcome),
			r.Attempts,
			r.Detail,
		)
	}
	b.WriteString(" ON CONFLICT (machine_id, ts) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

var _ ports.HistorySink = (*TimescaleSink)(nil)
