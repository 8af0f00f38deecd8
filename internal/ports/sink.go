package ports

import "github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"

// HistorySink persists the terminal pipeline events for later analysis.
// Writes must be idempotent under at-least-once delivery.
type HistorySink interface {
	RecordDecisions(decisions []*domain.Decision) error
	RecordActions(records []*domain.ActionRecord) error
	Name() string
}
