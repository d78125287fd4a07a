// Package metrics holds the pipeline's thread-safe counters, gauges, and
// bounded recent-anomaly history, and renders them for the dashboard.
package metrics

import (
	"sync"
	"time"

	"github.com/enterprise/anomaly-engine/internal/models"
)

const recentAnomaliesCapacity = 100

// AnomalySummary is one entry in the recent-anomalies FIFO.
type AnomalySummary struct {
	TransactionID string             `json:"transaction_id"`
	Score         float64            `json:"score"`
	Type          models.AnomalyType `json:"type"`
	Timestamp     time.Time          `json:"timestamp"`
}

// recentEvent is an internal bookkeeping record used to compute the
// trailing-minute processing rate without retaining per-transaction data
// beyond that window.
type recentEvent struct {
	at time.Time
}

// Metrics aggregates counters and gauges across all pipeline workers.
// Every mutating method is safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	totalTransactions  int64
	totalAnomalies     int64
	totalAlerts        int64
	sumProcessingMs    int64
	activeDetectors    int
	memoryUsedBytes    uint64
	systemLoad         float64
	lastUpdate         time.Time

	recentAnomalies []AnomalySummary
	typeHistogram   map[models.AnomalyType]int64

	recentTxTimes []recentEvent

	clock func() time.Time
}

// New creates an empty Metrics registry.
func New() *Metrics {
	return &Metrics{
		typeHistogram: make(map[models.AnomalyType]int64),
		clock:         time.Now,
	}
}

// SetActiveDetectors records the number of detector instances currently
// running (one per worker, typically).
func (m *Metrics) SetActiveDetectors(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeDetectors = n
}

// SetSystemLoad records a coarse load gauge in [0,1].
func (m *Metrics) SetSystemLoad(load float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systemLoad = load
}

// RecordProcessed records one fully processed record: whether it was
// flagged as an anomaly/alert, and how long scoring+observe took.
func (m *Metrics) RecordProcessed(result *models.AnomalyResult, processingTime time.Duration) {
	now := m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalTransactions++
	m.sumProcessingMs += processingTime.Milliseconds()
	m.lastUpdate = now

	m.recentTxTimes = append(m.recentTxTimes, recentEvent{at: now})
	m.pruneRecentTxLocked(now)

	if result.IsAnomaly {
		m.totalAnomalies++
		m.totalAlerts++
		m.typeHistogram[result.Type]++

		m.recentAnomalies = append(m.recentAnomalies, AnomalySummary{
			TransactionID: result.TransactionID,
			Score:         result.Score,
			Type:          result.Type,
			Timestamp:     now,
		})
		if len(m.recentAnomalies) > recentAnomaliesCapacity {
			m.recentAnomalies = m.recentAnomalies[len(m.recentAnomalies)-recentAnomaliesCapacity:]
		}
	}
}

func (m *Metrics) pruneRecentTxLocked(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for ; i < len(m.recentTxTimes); i++ {
		if m.recentTxTimes[i].at.After(cutoff) {
			break
		}
	}
	if i > 0 {
		m.recentTxTimes = m.recentTxTimes[i:]
	}
}

// Snapshot is the /api/metrics response shape.
type Snapshot struct {
	TotalTransactions     int64     `json:"total_transactions"`
	TotalAnomalies        int64     `json:"total_anomalies"`
	TotalAlerts           int64     `json:"total_alerts"`
	AnomalyRate           float64   `json:"anomaly_rate"`
	AvgProcessingTimeMs   float64   `json:"avg_processing_time_ms"`
	ProcessingRatePerSec  float64   `json:"processing_rate_per_sec"`
	ActiveDetectors       int       `json:"active_detectors"`
	MemoryUsedBytes       uint64    `json:"memory_used_bytes"`
	SystemLoad            float64   `json:"system_load"`
	LastUpdate            time.Time `json:"last_update"`
}

// Snapshot returns a consistent read of all counters and derived values.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var anomalyRate, avgProcessing float64
	if m.totalTransactions > 0 {
		anomalyRate = float64(m.totalAnomalies) / float64(m.totalTransactions)
		avgProcessing = float64(m.sumProcessingMs) / float64(m.totalTransactions)
	}

	now := m.clock()
	m.pruneRecentTxLocked(now)
	rate := float64(len(m.recentTxTimes)) / 60.0

	return Snapshot{
		TotalTransactions:    m.totalTransactions,
		TotalAnomalies:       m.totalAnomalies,
		TotalAlerts:          m.totalAlerts,
		AnomalyRate:          anomalyRate,
		AvgProcessingTimeMs:  avgProcessing,
		ProcessingRatePerSec: rate,
		ActiveDetectors:      m.activeDetectors,
		MemoryUsedBytes:      m.memoryUsedBytes,
		SystemLoad:           m.systemLoad,
		LastUpdate:           m.lastUpdate,
	}
}

// Healthy reports whether the pipeline has produced output recently and
// isn't overloaded.
func (m *Metrics) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastUpdate.IsZero() {
		return true
	}
	return m.clock().Sub(m.lastUpdate) < 5*time.Minute && m.systemLoad < 0.9
}

// RecentAnomalies returns the anomaly FIFO, newest first.
func (m *Metrics) RecentAnomalies() []AnomalySummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AnomalySummary, len(m.recentAnomalies))
	for i, a := range m.recentAnomalies {
		out[len(out)-1-i] = a
	}
	return out
}

// Distribution returns the per-anomaly-type counts.
func (m *Metrics) Distribution() map[models.AnomalyType]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.AnomalyType]int64, len(m.typeHistogram))
	for k, v := range m.typeHistogram {
		out[k] = v
	}
	return out
}
