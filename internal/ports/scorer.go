package ports

import "github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"

// FeatureVector is the named feature set extracted from an EnrichedContext.
type FeatureVector map[string]float64

// Scorer is the externally trained, versioned scoring artifact. Score must
// be a pure function of the vector; a missing expected feature yields a
// SchemaMismatchError.
type Scorer interface {
	Score(fv FeatureVector) (domain.RiskClass, float64, error)
	Features() []string
	Version() string
}
