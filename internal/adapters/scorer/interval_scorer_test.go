package scorer

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

func testArtifact() Artifact {
	return Artifact{
		Version: "test-1",
		Features: []FeatureSpec{
			{Name: "temperature_c_mean", NormalMax: 60, FaultPoint: 90},
			{Name: "vibration_g_max", NormalMax: 2.0, FaultPoint: 4.0},
		},
		WarningAt:  0.5,
		CriticalAt: 0.8,
	}
}

func TestScoreIntervalBoundaries(t *testing.T) {
	s, err := New(testArtifact())
	if err != nil {
		t.Fatalf("new scorer: %v", err)
	}

	cases := []struct {
		temp float64
		want domain.RiskClass
		score float64
	}{
		{60, domain.RiskNormal, 0},     // at normal max: zero excess
		{74, domain.RiskNormal, 14.0 / 30},
		{75, domain.RiskWarning, 0.5},  // closed lower bound of WARNING
		{83, domain.RiskWarning, 23.0 / 30},
		{84, domain.RiskCritical, 0.8}, // closed lower bound of CRITICAL
		{95, domain.RiskCritical, 1},   // clamped above fault point
	}
	for _, tc := range cases {
		fv := ports.FeatureVector{"temperature_c_mean": tc.temp, "vibration_g_max": 0.5}
		class, score, err := s.Score(fv)
		if err != nil {
			t.Fatalf("score temp=%.1f: %v", tc.temp, err)
		}
		if class != tc.want {
			t.Fatalf("temp=%.1f: expected %s, got %s (score %.4f)", tc.temp, tc.want, class, score)
		}
		if diff := score - tc.score; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("temp=%.1f: expected score %.6f, got %.6f", tc.temp, tc.score, score)
		}
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	s, _ := New(testArtifact())
	fv := ports.FeatureVector{"temperature_c_mean": 77.7, "vibration_g_max": 2.9}

	c1, s1, _ := s.Score(fv)
	for i := 0; i < 10; i++ {
		c2, s2, _ := s.Score(fv)
		if c1 != c2 || s1 != s2 {
			t.Fatalf("score not deterministic: (%s, %f) vs (%s, %f)", c1, s1, c2, s2)
		}
	}
}

func TestScoreMissingFeature(t *testing.T) {
	s, _ := New(testArtifact())
	fv := ports.FeatureVector{"temperature_c_mean": 50}

	_, _, err := s.Score(fv)
	var mismatch *domain.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
	if len(mismatch.Missing) != 1 || mismatch.Missing[0] != "vibration_g_max" {
		t.Fatalf("unexpected missing features: %v", mismatch.Missing)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	raw, err := json.Marshal(testArtifact())
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load artifact: %v", err)
	}
	if s.Version() != "test-1" {
		t.Fatalf("expected version test-1, got %s", s.Version())
	}
	if len(s.Features()) != 2 {
		t.Fatalf("expected 2 features, got %v", s.Features())
	}
}

func TestLoadMissingFileIsArtifactLoadError(t *testing.T) {
	_, err := Load("/nonexistent/model.json")
	var loadErr *domain.ArtifactLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected ArtifactLoadError, got %v", err)
	}
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	a := testArtifact()
	a.WarningAt = 0.9 // above critical
	raw, _ := json.Marshal(a)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected load to reject inverted thresholds")
	}
}
