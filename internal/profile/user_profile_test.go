package profile

import (
	"testing"
	"time"

	"github.com/enterprise/anomaly-engine/internal/models"
)

func txAt(userID string, amount float64, ts time.Time) *models.Transaction {
	return &models.Transaction{
		TransactionID:    "t-" + ts.String(),
		UserID:           userID,
		Amount:           amount,
		Timestamp:        models.NewCivilTime(ts),
		MerchantCategory: "groceries",
		PaymentMethod:    "card",
	}
}

func TestUserProfileBoundedState(t *testing.T) {
	p := NewUserProfile()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 500; i++ {
		p.Observe(txAt("user_A", 50, base.Add(time.Duration(i)*time.Minute)))
	}

	if got := p.TransactionCount(); got != 500 {
		t.Errorf("TransactionCount() = %d, want 500", got)
	}
	if len(p.recent) > maxRecentTxns {
		t.Errorf("recent queue len = %d, want <= %d", len(p.recent), maxRecentTxns)
	}
}

func TestUserProfileLocationsBounded(t *testing.T) {
	p := NewUserProfile()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 80; i++ {
		tx := txAt("user_A", 50, base.Add(time.Duration(i)*time.Minute))
		tx.Location = &models.Location{Latitude: float64(i), Longitude: float64(i)}
		p.Observe(tx)
	}

	if len(p.locations) > maxLocations {
		t.Errorf("locations len = %d, want <= %d", len(p.locations), maxLocations)
	}
}

func TestAmountZScoreRequiresMinimumSamples(t *testing.T) {
	p := NewUserProfile()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	p.Observe(txAt("u", 50, base))
	p.Observe(txAt("u", 50, base.Add(time.Minute)))

	if got := p.AmountZScore(9999); got != 0 {
		t.Errorf("AmountZScore with <3 samples = %v, want 0", got)
	}
}

func TestAmountZScoreZeroStdDevPolicy(t *testing.T) {
	p := NewUserProfile()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		p.Observe(txAt("u", 50, base.Add(time.Duration(i)*time.Minute)))
	}

	if got := p.AmountZScore(50); got != 0 {
		t.Errorf("AmountZScore(mean) with zero stddev = %v, want 0", got)
	}
	if got := p.AmountZScore(51); got != 3 {
		t.Errorf("AmountZScore(mean+1) with zero stddev = %v, want 3", got)
	}
}

func TestVelocityCountWindowBoundary(t *testing.T) {
	p := NewUserProfile()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		p.Observe(txAt("user_B", 50, base.Add(time.Duration(i)*time.Minute)))
	}

	k := p.VelocityCount(base.Add(4*time.Minute), 5*time.Minute)
	if k != 4 {
		t.Errorf("VelocityCount() = %d, want 4", k)
	}
}

func TestLocationAnomalyNoPriorLocations(t *testing.T) {
	p := NewUserProfile()
	if got := p.LocationAnomaly(&models.Location{Latitude: 1, Longitude: 1}); got != 0 {
		t.Errorf("LocationAnomaly with no prior locations = %v, want 0", got)
	}
}

func TestLocationAnomalyFarDrift(t *testing.T) {
	p := NewUserProfile()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		tx := txAt("user_C", 50, base.Add(time.Duration(i)*time.Minute))
		tx.Location = &models.Location{Latitude: 40.71, Longitude: -74.00}
		p.Observe(tx)
	}

	score := p.LocationAnomaly(&models.Location{Latitude: 55.75, Longitude: 37.62})
	if score != 1 {
		t.Errorf("LocationAnomaly(distant point) = %v, want 1 (clamped)", score)
	}
}
