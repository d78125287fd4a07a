package profile

import (
	"sync"

	"github.com/enterprise/anomaly-engine/internal/stats"
)

// GlobalStats tracks process-wide amount and hour-of-day distributions
// across all users, used to gate the engine's "model not trained" startup
// behaviour and as the sample count for min_training_samples.
type GlobalStats struct {
	mu     sync.RWMutex
	amount *stats.Window
	hour   *stats.Window
	count  int64
}

// NewGlobalStats creates a GlobalStats with the given window capacity
// (configured via global_window_capacity, default 1000).
func NewGlobalStats(capacity int) *GlobalStats {
	return &GlobalStats{
		amount: stats.NewWindow(capacity),
		hour:   stats.NewWindow(capacity),
	}
}

// Observe folds one transaction's amount and hour into the global windows.
func (g *GlobalStats) Observe(amount float64, hour int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.amount.Add(amount)
	g.hour.Add(float64(hour))
	g.count++
}

// Count returns the number of transactions observed system-wide.
func (g *GlobalStats) Count() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.count
}
