package profile

import (
	"sync"
	"time"

	"github.com/enterprise/anomaly-engine/internal/models"
	"github.com/enterprise/anomaly-engine/internal/stats"
)

const merchantAmountWindowCap = 100

// MerchantProfile is the learned baseline for one merchant_id: amount
// behaviour, payment-method mix, inter-arrival timing, and a rolling risk
// score derived additively from those three signals.
type MerchantProfile struct {
	mu sync.RWMutex

	amount      *stats.Window
	interArrival *stats.Window

	paymentCounts map[string]int

	transactionCount int64
	riskScore        float64
	firstSeen        time.Time
	lastSeen         time.Time
}

// NewMerchantProfile creates an empty merchant baseline.
func NewMerchantProfile() *MerchantProfile {
	return &MerchantProfile{
		amount:        stats.NewWindow(merchantAmountWindowCap),
		interArrival:  stats.NewWindow(merchantAmountWindowCap),
		paymentCounts: make(map[string]int),
	}
}

// Observe folds one transaction into the merchant baseline and recomputes
// risk_score from the four additive rules.
func (m *MerchantProfile) Observe(tx *models.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.amount.Add(tx.Amount)
	if tx.PaymentMethod != "" {
		m.paymentCounts[tx.PaymentMethod]++
	}

	if !m.lastSeen.IsZero() {
		gap := tx.Timestamp.Sub(m.lastSeen).Minutes()
		if gap > 0 {
			m.interArrival.Add(gap)
		}
	}
	if m.firstSeen.IsZero() {
		m.firstSeen = tx.Timestamp.Time
	}
	m.lastSeen = tx.Timestamp.Time
	m.transactionCount++

	var risk float64
	if m.interArrival.N() > 10 && m.interArrival.Mean() < 1.0 {
		risk += 0.3
	}
	if m.amount.N() > 10 && m.amount.Mean() > 0 && m.amount.StdDev()/m.amount.Mean() > 2.0 {
		risk += 0.2
	}
	if len(m.paymentCounts) > 0 {
		maxCount := 0
		for _, c := range m.paymentCounts {
			if c > maxCount {
				maxCount = c
			}
		}
		if float64(maxCount)/float64(m.transactionCount) < 0.3 {
			risk += 0.2
		}
	}
	if m.transactionCount < 50 {
		risk += 0.1
	}
	m.riskScore = minFloat(1, risk)
}

// RiskScore returns the merchant's current composite risk score.
func (m *MerchantProfile) RiskScore() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.riskScore
}

// TransactionCount returns the number of transactions folded into this
// merchant's baseline so far.
func (m *MerchantProfile) TransactionCount() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactionCount
}

// AmountAnomaly scores how unusual amount a is relative to this merchant's
// observed amount distribution.
func (m *MerchantProfile) AmountAnomaly(a float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.amount.N() < 5 {
		return 0
	}
	sd := m.amount.StdDev()
	mean := m.amount.Mean()
	var z float64
	if sd == 0 {
		if a != mean {
			z = 3
		}
	} else {
		z = (a - mean) / sd
		if z < 0 {
			z = -z
		}
	}
	return minFloat(1, z/3)
}
