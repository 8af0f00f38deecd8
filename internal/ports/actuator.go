package ports

import (
	"context"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
)

// Actuator carries a decided action to the (simulated) machine. Execute
// failures are retried by the executor up to its budget; persistent failure
// becomes an ActionRecord with a FAILED outcome.
type Actuator interface {
	Execute(ctx context.Context, machineID string, action domain.ActionKind) error
}
