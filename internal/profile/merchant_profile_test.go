package profile

import (
	"testing"
	"time"

	"github.com/enterprise/anomaly-engine/internal/models"
)

func merchantTxAt(amount float64, ts time.Time, method string) *models.Transaction {
	return &models.Transaction{
		TransactionID: "t-" + ts.String(),
		MerchantID:    "merchant_X",
		Amount:        amount,
		Timestamp:     models.NewCivilTime(ts),
		PaymentMethod: method,
	}
}

func TestMerchantProfileNewMerchantIsHigherRisk(t *testing.T) {
	p := NewMerchantProfile()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	p.Observe(merchantTxAt(50, base, "card"))

	if got := p.RiskScore(); got < 0.1 {
		t.Errorf("RiskScore() for brand-new merchant = %v, want >= 0.1 (low-volume rule)", got)
	}
}

func TestMerchantProfileRiskScoreClampedToOne(t *testing.T) {
	p := NewMerchantProfile()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	// Rapid-fire same-minute transactions with wildly varying amounts and a
	// single payment method drive every additive rule to fire at once.
	for i := 0; i < 20; i++ {
		amount := 10.0
		if i%2 == 0 {
			amount = 50000.0
		}
		p.Observe(merchantTxAt(amount, base.Add(time.Duration(i)*time.Second), "card"))
	}

	if got := p.RiskScore(); got > 1 {
		t.Errorf("RiskScore() = %v, want <= 1", got)
	}
}

func TestMerchantAmountAnomalyRequiresMinimumSamples(t *testing.T) {
	p := NewMerchantProfile()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		p.Observe(merchantTxAt(50, base.Add(time.Duration(i)*time.Minute), "card"))
	}
	if got := p.AmountAnomaly(5000); got != 0 {
		t.Errorf("AmountAnomaly with <5 samples = %v, want 0", got)
	}
}
