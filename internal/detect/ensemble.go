package detect

import "github.com/enterprise/anomaly-engine/internal/models"

// EnsembleDetector is the "enhanced" construction-time variant: while the
// global sample count is below min_training_samples it returns a fixed
// "model-not-trained" normal result; once trained it always runs the full
// ensemble protocol. It never falls back to the rule-based path.
type EnsembleDetector struct {
	*core
}

// NewEnsembleDetector builds the ensemble detector variant.
func NewEnsembleDetector(cfg Config, clock Clock, ml MLAssist) *EnsembleDetector {
	return &EnsembleDetector{core: newCore(cfg, clock, ml)}
}

func (d *EnsembleDetector) Score(tx *models.Transaction) *models.AnomalyResult {
	if !d.trained() {
		return d.modelNotTrainedResult(tx)
	}
	return d.scoreEnsemble(tx)
}

func (d *EnsembleDetector) Observe(tx *models.Transaction) {
	d.observe(tx)
}

func (d *EnsembleDetector) Name() string { return "ensemble" }

func (d *EnsembleDetector) SupportsOnlineLearning() bool { return true }
