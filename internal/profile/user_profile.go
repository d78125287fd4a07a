// Package profile holds the per-entity behavioural baselines (UserProfile,
// MerchantProfile) and the process-wide GlobalStats that the detection
// engine scores transactions against.
package profile

import (
	"sync"
	"time"

	"github.com/enterprise/anomaly-engine/internal/geo"
	"github.com/enterprise/anomaly-engine/internal/models"
	"github.com/enterprise/anomaly-engine/internal/stats"
)

const (
	maxLocations     = 50
	maxRecentTxns    = 100
	amountWindowCap  = 100
)

// RecentTxn is the minimal record kept in a user's recent-transaction
// queue, used only to compute the velocity sub-score.
type RecentTxn struct {
	Timestamp time.Time
}

// UserProfile is the learned behavioural baseline for one user_id. Exactly
// one writer (Observe) may mutate it at a time; any number of readers
// (Score's sub-scorers) may read concurrently, guarded by mu.
type UserProfile struct {
	mu sync.RWMutex

	amount *stats.Window

	categoryCounts map[string]int
	paymentCounts  map[string]int
	hourCounts     [24]int
	dayCounts      [8]int // index 1..7 used, day-of-week per spec is 1..7

	locations []models.Location
	recent    []RecentTxn

	transactionCount int64
	variabilityScore float64
	lastSeen         time.Time

	lastLocation   *models.Location
	lastLocationAt time.Time
}

// NewUserProfile creates an empty baseline, created lazily on first
// observation by the engine.
func NewUserProfile() *UserProfile {
	return &UserProfile{
		amount:         stats.NewWindow(amountWindowCap),
		categoryCounts: make(map[string]int),
		paymentCounts:  make(map[string]int),
	}
}

// Observe folds one transaction into the baseline.
func (p *UserProfile) Observe(tx *models.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.amount.Add(tx.Amount)

	if tx.MerchantCategory != "" {
		p.categoryCounts[tx.MerchantCategory]++
	}
	if tx.PaymentMethod != "" {
		p.paymentCounts[tx.PaymentMethod]++
	}

	hour := tx.Timestamp.Hour()
	if hour >= 0 && hour < 24 {
		p.hourCounts[hour]++
	}
	day := int(tx.Timestamp.Weekday())
	if day == 0 {
		day = 7
	}
	p.dayCounts[day]++

	if tx.Location != nil {
		p.locations = append(p.locations, *tx.Location)
		if len(p.locations) > maxLocations {
			p.locations = p.locations[len(p.locations)-maxLocations:]
		}
		loc := *tx.Location
		p.lastLocation = &loc
		p.lastLocationAt = tx.Timestamp.Time
	}

	p.recent = append(p.recent, RecentTxn{Timestamp: tx.Timestamp.Time})
	if len(p.recent) > maxRecentTxns {
		p.recent = p.recent[len(p.recent)-maxRecentTxns:]
	}

	p.transactionCount++
	p.lastSeen = tx.Timestamp.Time

	if p.amount.N() > 5 {
		mean := p.amount.Mean()
		if mean <= 0 {
			p.variabilityScore = 1
		} else {
			p.variabilityScore = clamp(p.amount.StdDev()/mean/2, 0, 1)
		}
	}
}

// TransactionCount returns the number of transactions folded in so far.
func (p *UserProfile) TransactionCount() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.transactionCount
}

// VariabilityScore returns the current coefficient-of-variation-derived
// variability score, used by the adaptive threshold.
func (p *UserProfile) VariabilityScore() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.variabilityScore
}

// AvgAmount returns the mean of the observed amount window.
func (p *UserProfile) AvgAmount() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.amount.Mean()
}

// AmountZScore returns |a-mean|/stddev under the stddev-zero policy: zero
// when a equals mean, 3 when it doesn't, and 0 when fewer than 3 samples
// have been observed.
func (p *UserProfile) AmountZScore(a float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.amount.N() < 3 {
		return 0
	}
	sd := p.amount.StdDev()
	mean := p.amount.Mean()
	if sd == 0 {
		if a == mean {
			return 0
		}
		return 3
	}
	v := (a - mean) / sd
	if v < 0 {
		v = -v
	}
	return v
}

// CategoryAnomaly scores how unusual merchant category c is for this user.
func (p *UserProfile) CategoryAnomaly(c string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.transactionCount < 5 {
		return 0
	}
	f := float64(p.categoryCounts[c]) / float64(p.transactionCount)
	return maxFloat(0, 0.8-4*f)
}

// PaymentAnomaly scores how unusual payment method pm is for this user.
func (p *UserProfile) PaymentAnomaly(pm string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.transactionCount < 5 {
		return 0
	}
	f := float64(p.paymentCounts[pm]) / float64(p.transactionCount)
	return maxFloat(0, 0.7-3*f)
}

// HourAnomaly scores how unusual hour-of-day h is for this user.
func (p *UserProfile) HourAnomaly(h int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.transactionCount < 10 {
		return 0
	}
	if h < 0 || h >= 24 {
		return 0
	}
	f := float64(p.hourCounts[h]) / float64(p.transactionCount)
	return maxFloat(0, 0.6-10*f)
}

// DayAnomaly scores how unusual day-of-week d (1..7) is for this user.
func (p *UserProfile) DayAnomaly(d int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.transactionCount < 10 {
		return 0
	}
	if d < 1 || d > 7 {
		return 0
	}
	f := float64(p.dayCounts[d]) / float64(p.transactionCount)
	return maxFloat(0, 0.5-7*f)
}

// LocationAnomaly returns the minimum Haversine distance in units of
// 100km from loc to any location this user has previously transacted
// from, clamped to [0,1]. Returns 0 when no prior locations exist.
func (p *UserProfile) LocationAnomaly(loc *models.Location) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.locations) == 0 || loc == nil {
		return 0
	}
	min := -1.0
	for _, l := range p.locations {
		d := geo.DistanceKm(loc.Latitude, loc.Longitude, l.Latitude, l.Longitude)
		if min < 0 || d < min {
			min = d
		}
	}
	return minFloat(1, min/100)
}

// ImpliedTravelSpeedKmh returns the speed, in km/h, implied by travelling
// from this user's last observed location to loc by ts. Returns 0 when
// there is no prior location to compare against (new user, or every prior
// transaction was location-less) — callers treat 0 as "no signal" rather
// than "impossible travel".
func (p *UserProfile) ImpliedTravelSpeedKmh(loc *models.Location, ts time.Time) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if loc == nil || p.lastLocation == nil {
		return 0
	}
	dist := geo.DistanceKm(loc.Latitude, loc.Longitude, p.lastLocation.Latitude, p.lastLocation.Longitude)
	elapsedHours := ts.Sub(p.lastLocationAt).Hours()
	return geo.ImpliedSpeedKmh(dist, elapsedHours)
}

// VelocityCount returns the number of recent transactions timestamped
// within window before ts.
func (p *UserProfile) VelocityCount(ts time.Time, window time.Duration) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	count := 0
	cutoff := ts.Add(-window)
	for _, r := range p.recent {
		if r.Timestamp.After(cutoff) && !r.Timestamp.After(ts) {
			count++
		}
	}
	return count
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
