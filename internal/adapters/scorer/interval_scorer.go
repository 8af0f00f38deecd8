package scorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// FeatureSpec describes one input of the scoring function. A value at or
// below NormalMax contributes nothing; FaultPoint is where the feature
// saturates at full risk.
type FeatureSpec struct {
	Name      string  `json:"name"`
	NormalMax float64 `json:"normalMax"`
	FaultPoint float64 `json:"faultPoint"`
}

// Artifact is the versioned scoring model consumed read-only by the
// decision agent. Classification intervals are closed-lower/open-upper:
// [0, warningAt) NORMAL, [warningAt, criticalAt) WARNING,
// [criticalAt, 1] CRITICAL.
type Artifact struct {
	Version    string        `json:"version"`
	Features   []FeatureSpec `json:"features"`
	WarningAt  float64       `json:"warningAt"`
	CriticalAt float64       `json:"criticalAt"`
}

func (a *Artifact) validate() error {
	if a.Version == "" {
		return errors.New("artifact version is required")
	}
	if len(a.Features) == 0 {
		return errors.New("artifact declares no features")
	}
	for _, f := range a.Features {
		if f.Name == "" {
			return errors.New("artifact feature with empty name")
		}
		if f.FaultPoint <= f.NormalMax {
			return fmt.Errorf("feature %s: fault point %.3f must exceed normal max %.3f",
				f.Name, f.FaultPoint, f.NormalMax)
		}
	}
	if !(0 < a.WarningAt && a.WarningAt < a.CriticalAt && a.CriticalAt <= 1) {
		return fmt.Errorf("thresholds must satisfy 0 < warning (%.2f) < critical (%.2f) <= 1",
			a.WarningAt, a.CriticalAt)
	}
	return nil
}

// IntervalScorer scores a feature vector as the peak normalized excess over
// the artifact's per-feature normal band, clamped to [0,1].
type IntervalScorer struct {
	artifact Artifact
	names    []string
}

// Load reads the artifact from disk. Any failure is an ArtifactLoadError;
// the decision agent treats it as fatal at startup.
func Load(path string) (*IntervalScorer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ArtifactLoadError{Path: path, Err: err}
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, &domain.ArtifactLoadError{Path: path, Err: err}
	}
	s, err := New(a)
	if err != nil {
		return nil, &domain.ArtifactLoadError{Path: path, Err: err}
	}
	return s, nil
}

// New builds a scorer from an in-memory artifact.
func New(a Artifact) (*IntervalScorer, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	names := make([]string, len(a.Features))
	for i, f := range a.Features {
		names[i] = f.Name
	}
	return &IntervalScorer{artifact: a, names: names}, nil
}

// Default returns the artifact shipped for simulation runs: the fault bands
// mirror the synthetic generator's anomaly ranges.
func Default() *IntervalScorer {
	s, err := New(Artifact{
		Version: "sim-1",
		Features: []FeatureSpec{
			{Name: "temperature_c_mean", NormalMax: 60, FaultPoint: 90},
			{Name: "vibration_g_max", NormalMax: 2.0, FaultPoint: 4.0},
			{Name: "power_kw_mean", NormalMax: 30, FaultPoint: 45},
		},
		WarningAt:  0.5,
		CriticalAt: 0.8,
	})
	if err != nil {
		panic(err) // built-in artifact is statically valid
	}
	return s
}

func (s *IntervalScorer) Score(fv ports.FeatureVector) (domain.RiskClass, float64, error) {
	var missing []string
	score := 0.0
	for _, f := range s.artifact.Features {
		v, ok := fv[f.Name]
		if !ok {
			missing = append(missing, f.Name)
			continue
		}
		excess := (v - f.NormalMax) / (f.FaultPoint - f.NormalMax)
		if excess < 0 {
			excess = 0
		}
		if excess > 1 {
			excess = 1
		}
		if excess > score {
			score = excess
		}
	}
	if len(missing) > 0 {
		return domain.RiskNormal, 0, &domain.SchemaMismatchError{Kind: "feature_vector", Missing: missing}
	}
	return s.classify(score), score, nil
}

func (s *IntervalScorer) classify(score float64) domain.RiskClass {
	switch {
	case score >= s.artifact.CriticalAt:
		return domain.RiskCritical
	case score >= s.artifact.WarningAt:
		return domain.RiskWarning
	default:
		return domain.RiskNormal
	}
}

func (s *IntervalScorer) Features() []string { return s.names }

func (s *IntervalScorer) Version() string { return s.artifact.Version }

var _ ports.Scorer = (*IntervalScorer)(nil)
