// Package detect implements the ensemble and rule-based anomaly detectors
// described by the detection engine component: per-user/per-merchant
// baselines, an adaptive per-user threshold, and type classification.
package detect

import (
	"time"

	"github.com/enterprise/anomaly-engine/internal/models"
)

// Detector is the shared contract for both construction-time variants.
// Score and Observe are called once each per well-formed record, in that
// order, by the pipeline.
type Detector interface {
	Score(tx *models.Transaction) *models.AnomalyResult
	Observe(tx *models.Transaction)
	Name() string
	SupportsOnlineLearning() bool
}

// ThresholdSetter is implemented by both detector variants, letting the
// dashboard's admin endpoint override the engine's base anomaly threshold
// at runtime without a restart.
type ThresholdSetter interface {
	SetAnomalyThreshold(v float64)
}

// Clock abstracts wall-clock reads so scoring and velocity windows are
// deterministically testable, per the narrow-seam design note: a fake
// Clock lets tests pin "now" instead of reflecting into private fields.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Config holds the engine's recognized tuning options, with the spec's
// defaults.
type Config struct {
	AnomalyThreshold      float64
	MinTrainingSamples    int64
	VelocityWindowMinutes int
	VelocityBurstCount    int
	GlobalWindowCapacity  int
}

// DefaultConfig returns the engine defaults from §4.4.
func DefaultConfig() Config {
	return Config{
		AnomalyThreshold:      0.75,
		MinTrainingSamples:    50,
		VelocityWindowMinutes: 5,
		VelocityBurstCount:    3,
		GlobalWindowCapacity:  1000,
	}
}

// Fixed ensemble weights; must sum to 1.0.
const (
	weightStatistical = 0.3
	weightBehavioural = 0.4
	weightTemporal    = 0.3
)

// MLAssist is an optional external scorer consulted as an additional
// input to the behavioural sub-score. A nil MLAssist is a valid,
// fully-functional configuration — it is an enrichment, never a
// dependency of the core scoring contract.
type MLAssist interface {
	// Score returns a contribution in [0,1], or an error if the call
	// could not complete within its bound; callers treat an error the
	// same as a 0 contribution.
	Score(tx *models.Transaction, features map[string]float64) (float64, error)
}
