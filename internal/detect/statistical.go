package detect

import "github.com/enterprise/anomaly-engine/internal/models"

// StatisticalDetector is the construction-time variant that runs a simple
// rule-based fallback while the global sample count is below
// min_training_samples, and the full ensemble protocol once trained.
// Per §9's design note this untrained behaviour is deliberately distinct
// from EnsembleDetector's and must not be unified with it.
type StatisticalDetector struct {
	*core
}

// NewStatisticalDetector builds the rule-based-fallback detector variant.
func NewStatisticalDetector(cfg Config, clock Clock, ml MLAssist) *StatisticalDetector {
	return &StatisticalDetector{core: newCore(cfg, clock, ml)}
}

func (d *StatisticalDetector) Score(tx *models.Transaction) *models.AnomalyResult {
	if !d.trained() {
		return d.ruleBasedResult(tx)
	}
	return d.scoreEnsemble(tx)
}

// ruleBasedResult implements §4.4.1's fallback rules, evaluated in order:
// a large amount flags UNUSUAL_AMOUNT, then an unusual hour flags or
// raises a TIME_PATTERN score; both paths carry reduced confidence.
func (d *StatisticalDetector) ruleBasedResult(tx *models.Transaction) *models.AnomalyResult {
	score := 0.0
	anomalyType := models.AnomalyUnknown
	flagged := false

	if tx.Amount > 5000 {
		score = 0.8
		anomalyType = models.AnomalyUnusualAmount
		flagged = true
	}

	hour := tx.Timestamp.Hour()
	if hour < 6 || hour > 22 {
		score = max(score, 0.7)
		anomalyType = models.AnomalyTimePattern
		flagged = true
	}

	confidence := 0.9
	reason := "rule-based: within normal bounds"
	if flagged {
		confidence = 0.6
		reason = "rule-based fallback triggered before model training completed"
	}

	return &models.AnomalyResult{
		TransactionID: tx.TransactionID,
		IsAnomaly:     flagged,
		Score:         score,
		Confidence:    confidence,
		Type:          anomalyType,
		DetectedAt:    d.clock.Now(),
		OriginalTransaction: *tx,
		FeaturesUsed: map[string]float64{
			"amount":      tx.Amount,
			"hour_of_day": float64(hour),
			"day_of_week": float64(weekday(tx.Timestamp.Time)),
		},
		Reason: reason,
	}
}

func (d *StatisticalDetector) Observe(tx *models.Transaction) {
	d.observe(tx)
}

func (d *StatisticalDetector) Name() string { return "statistical" }

func (d *StatisticalDetector) SupportsOnlineLearning() bool { return true }

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
