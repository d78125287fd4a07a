package metrics

import (
	"testing"
	"time"

	"github.com/enterprise/anomaly-engine/internal/models"
)

func TestRecordProcessedCounters(t *testing.T) {
	m := New()

	normal := &models.AnomalyResult{TransactionID: "t1", IsAnomaly: false, Type: models.AnomalyUnknown}
	anomaly := &models.AnomalyResult{TransactionID: "t2", IsAnomaly: true, Type: models.AnomalyVelocity}

	m.RecordProcessed(normal, 10*time.Millisecond)
	m.RecordProcessed(anomaly, 20*time.Millisecond)

	snap := m.Snapshot()
	if snap.TotalTransactions != 2 {
		t.Errorf("TotalTransactions = %d, want 2", snap.TotalTransactions)
	}
	if snap.TotalAnomalies != 1 {
		t.Errorf("TotalAnomalies = %d, want 1", snap.TotalAnomalies)
	}
	if snap.TotalAlerts != 1 {
		t.Errorf("TotalAlerts = %d, want 1", snap.TotalAlerts)
	}
	if snap.AnomalyRate != 0.5 {
		t.Errorf("AnomalyRate = %v, want 0.5", snap.AnomalyRate)
	}
	if snap.AvgProcessingTimeMs != 15 {
		t.Errorf("AvgProcessingTimeMs = %v, want 15", snap.AvgProcessingTimeMs)
	}
}

func TestRecentAnomaliesBoundedAndOrdered(t *testing.T) {
	m := New()
	for i := 0; i < recentAnomaliesCapacity+10; i++ {
		m.RecordProcessed(&models.AnomalyResult{
			TransactionID: string(rune('a' + i%26)),
			IsAnomaly:     true,
			Type:          models.AnomalyFraud,
		}, time.Millisecond)
	}

	recent := m.RecentAnomalies()
	if len(recent) != recentAnomaliesCapacity {
		t.Fatalf("RecentAnomalies() len = %d, want %d", len(recent), recentAnomaliesCapacity)
	}
	// newest-first: the last recorded entry should be at index 0
	last := recent[0]
	if last.TransactionID == "" {
		t.Errorf("expected a populated newest entry")
	}
}

func TestDistributionCounts(t *testing.T) {
	m := New()
	m.RecordProcessed(&models.AnomalyResult{TransactionID: "a", IsAnomaly: true, Type: models.AnomalyVelocity}, time.Millisecond)
	m.RecordProcessed(&models.AnomalyResult{TransactionID: "b", IsAnomaly: true, Type: models.AnomalyVelocity}, time.Millisecond)
	m.RecordProcessed(&models.AnomalyResult{TransactionID: "c", IsAnomaly: true, Type: models.AnomalyFraud}, time.Millisecond)

	dist := m.Distribution()
	if dist[models.AnomalyVelocity] != 2 {
		t.Errorf("Distribution()[VELOCITY] = %d, want 2", dist[models.AnomalyVelocity])
	}
	if dist[models.AnomalyFraud] != 1 {
		t.Errorf("Distribution()[FRAUD] = %d, want 1", dist[models.AnomalyFraud])
	}
}

func TestHealthyWithNoUpdatesYet(t *testing.T) {
	m := New()
	if !m.Healthy() {
		t.Errorf("Healthy() on a fresh Metrics should be true")
	}
}

func TestHealthyReflectsSystemLoad(t *testing.T) {
	m := New()
	m.RecordProcessed(&models.AnomalyResult{TransactionID: "a"}, time.Millisecond)
	m.SetSystemLoad(0.95)
	if m.Healthy() {
		t.Errorf("Healthy() should be false when system load exceeds 0.9")
	}
}
