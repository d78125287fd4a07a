package detect

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/anomaly-engine/internal/models"
	"github.com/enterprise/anomaly-engine/internal/profile"
)

// core holds the state shared by both detector variants: the per-user and
// per-merchant profile maps, the process-wide stats, the adaptive
// threshold cache, and the engine configuration. Profiles are looked up
// under a short map-level lock and then mutated/read through their own
// per-profile mutex, per the sharded-map design note.
type core struct {
	cfg   Config
	clock Clock
	ml    MLAssist

	usersMu sync.RWMutex
	users   map[string]*profile.UserProfile

	merchantsMu sync.RWMutex
	merchants   map[string]*profile.MerchantProfile

	global *profile.GlobalStats

	thresholds sync.Map // user_id -> float64

	baseThresholdMu sync.RWMutex
	baseThreshold   float64
}

func newCore(cfg Config, clock Clock, ml MLAssist) *core {
	if clock == nil {
		clock = SystemClock{}
	}
	return &core{
		cfg:           cfg,
		clock:         clock,
		ml:            ml,
		users:         make(map[string]*profile.UserProfile),
		merchants:     make(map[string]*profile.MerchantProfile),
		global:        profile.NewGlobalStats(cfg.GlobalWindowCapacity),
		baseThreshold: cfg.AnomalyThreshold,
	}
}

// SetAnomalyThreshold overrides the engine's base anomaly threshold at
// runtime, letting the dashboard's admin endpoint tune sensitivity
// without a restart. It takes effect on the next Observe/Score call.
func (c *core) SetAnomalyThreshold(v float64) {
	c.baseThresholdMu.Lock()
	defer c.baseThresholdMu.Unlock()
	c.baseThreshold = v
}

func (c *core) getBaseThreshold() float64 {
	c.baseThresholdMu.RLock()
	defer c.baseThresholdMu.RUnlock()
	return c.baseThreshold
}

func (c *core) userProfile(userID string, create bool) *profile.UserProfile {
	c.usersMu.RLock()
	p := c.users[userID]
	c.usersMu.RUnlock()
	if p != nil || !create {
		return p
	}

	c.usersMu.Lock()
	defer c.usersMu.Unlock()
	if p = c.users[userID]; p != nil {
		return p
	}
	p = profile.NewUserProfile()
	c.users[userID] = p
	return p
}

func (c *core) merchantProfile(merchantID string, create bool) *profile.MerchantProfile {
	c.merchantsMu.RLock()
	p := c.merchants[merchantID]
	c.merchantsMu.RUnlock()
	if p != nil || !create {
		return p
	}

	c.merchantsMu.Lock()
	defer c.merchantsMu.Unlock()
	if p = c.merchants[merchantID]; p != nil {
		return p
	}
	p = profile.NewMerchantProfile()
	c.merchants[merchantID] = p
	return p
}

// observe is the shared Observe implementation for both variants: fold
// the record into the global windows, the user profile, the merchant
// profile, and refresh that user's cached adaptive threshold.
func (c *core) observe(tx *models.Transaction) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("txn_id", tx.TransactionID).Msg("observe panic recovered")
		}
	}()

	c.global.Observe(tx.Amount, tx.Timestamp.Hour())

	up := c.userProfile(tx.UserID, true)
	up.Observe(tx)

	if tx.MerchantID != "" {
		mp := c.merchantProfile(tx.MerchantID, true)
		mp.Observe(tx)
	}

	c.refreshThreshold(tx.UserID, up)
}

func (c *core) refreshThreshold(userID string, up *profile.UserProfile) {
	base := c.getBaseThreshold()
	theta := base
	if up.TransactionCount() >= 10 {
		theta = math.Min(base+0.2*up.VariabilityScore(), 0.95)
	}
	c.thresholds.Store(userID, theta)
}

func (c *core) adaptiveThreshold(userID string) float64 {
	if v, ok := c.thresholds.Load(userID); ok {
		return v.(float64)
	}
	return c.getBaseThreshold()
}

// scoreEnsemble runs the full statistical/behavioural/temporal scoring
// protocol (§4.4). Callers are expected to have already checked that the
// global sample count has cleared min_training_samples.
func (c *core) scoreEnsemble(tx *models.Transaction) (result *models.AnomalyResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("txn_id", tx.TransactionID).Msg("scoring error")
			result = c.safeNormalResult(tx, "scoring error: recovered from panic")
		}
	}()

	up := c.userProfile(tx.UserID, false)

	statScore := 0.0
	behavScore := 0.0
	tempScore := 0.0
	velocityScore := 0.0
	amountScore := 0.0
	timeScore := 0.0
	impliedSpeedKmh := 0.0

	if up != nil {
		amountZ := sanitize(up.AmountZScore(tx.Amount))
		amountScore = clampScore(math.Abs(amountZ) / 3)
		// frequency-anomaly component reserved for future use; always 0.
		statScore = clampScore((amountScore + 0) / 2)

		catScore := sanitize(up.CategoryAnomaly(tx.MerchantCategory))
		payScore := sanitize(up.PaymentAnomaly(tx.PaymentMethod))
		behavParts := []float64{catScore, payScore}
		if tx.Location != nil {
			behavParts = append(behavParts, sanitize(up.LocationAnomaly(tx.Location)))
			impliedSpeedKmh = up.ImpliedTravelSpeedKmh(tx.Location, tx.Timestamp.Time)
		}
		if c.ml != nil {
			mlFeatures := map[string]float64{
				"amount":           tx.Amount,
				"user_avg_amount":  up.AvgAmount(),
				"category_anomaly": catScore,
				"payment_anomaly":  payScore,
			}
			if mlScore, err := c.ml.Score(tx, mlFeatures); err != nil {
				log.Warn().Err(err).Str("txn_id", tx.TransactionID).Msg("ml-assist scoring failed, contributing 0")
			} else {
				behavParts = append(behavParts, sanitize(mlScore))
			}
		}
		behavScore = clampScore(average(behavParts))

		hourScore := sanitize(up.HourAnomaly(tx.Timestamp.Hour()))
		dayScore := sanitize(up.DayAnomaly(weekday(tx.Timestamp.Time)))
		timeScore = math.Max(hourScore, dayScore)

		window := time.Duration(c.cfg.VelocityWindowMinutes) * time.Minute
		k := up.VelocityCount(tx.Timestamp.Time, window)
		velocityScore = clampScore(float64(k) / float64(c.cfg.VelocityBurstCount))

		tempScore = clampScore(average([]float64{hourScore, dayScore, velocityScore}))
	}

	score := clampScore(weightStatistical*statScore + weightBehavioural*behavScore + weightTemporal*tempScore)

	theta := c.adaptiveThreshold(tx.UserID)
	isAnomaly := score > theta

	anomalyType, reason := classify(velocityScore, amountScore, timeScore, tx.Amount)

	confidence := math.Min(0.9, 0.5+math.Abs(score-theta))

	features := map[string]float64{
		"amount":      tx.Amount,
		"hour_of_day": float64(tx.Timestamp.Hour()),
		"day_of_week": float64(weekday(tx.Timestamp.Time)),
	}
	if up != nil {
		features["user_avg_amount"] = up.AvgAmount()
		features["user_transaction_count"] = float64(up.TransactionCount())
		if tx.Location != nil {
			features["implied_travel_speed_kmh"] = sanitize(impliedSpeedKmh)
		}
	}

	return &models.AnomalyResult{
		TransactionID:       tx.TransactionID,
		IsAnomaly:           isAnomaly,
		Score:               score,
		Confidence:          confidence,
		Type:                anomalyType,
		DetectedAt:          c.clock.Now(),
		OriginalTransaction: *tx,
		FeaturesUsed:        features,
		Reason:              reason,
	}
}

func classify(velocityScore, amountScore, timeScore, amount float64) (models.AnomalyType, string) {
	switch {
	case velocityScore > 0.5:
		return models.AnomalyVelocity, "high transaction velocity for this user"
	case amountScore > 0.6:
		return models.AnomalyUnusualAmount, "amount deviates sharply from user's baseline"
	case timeScore > 0.5:
		return models.AnomalyTimePattern, "unusual hour or day for this user"
	case amount > 10000:
		return models.AnomalyFraud, "very large amount"
	default:
		return models.AnomalyStatisticalOutlier, "mild deviation from user's baseline"
	}
}

func (c *core) safeNormalResult(tx *models.Transaction, reason string) *models.AnomalyResult {
	return &models.AnomalyResult{
		TransactionID:       tx.TransactionID,
		IsAnomaly:           false,
		Score:               0,
		Confidence:          0.5,
		Type:                models.AnomalyUnknown,
		DetectedAt:          c.clock.Now(),
		OriginalTransaction: *tx,
		FeaturesUsed:        map[string]float64{"amount": tx.Amount},
		Reason:              reason,
	}
}

func (c *core) modelNotTrainedResult(tx *models.Transaction) *models.AnomalyResult {
	return &models.AnomalyResult{
		TransactionID:       tx.TransactionID,
		IsAnomaly:           false,
		Score:               0.1,
		Confidence:          0.8,
		Type:                models.AnomalyUnknown,
		DetectedAt:          c.clock.Now(),
		OriginalTransaction: *tx,
		FeaturesUsed: map[string]float64{
			"amount":      tx.Amount,
			"hour_of_day": float64(tx.Timestamp.Hour()),
			"day_of_week": float64(weekday(tx.Timestamp.Time)),
		},
		Reason: "model-not-trained",
	}
}

// trained reports whether the global sample count has cleared
// min_training_samples.
func (c *core) trained() bool {
	return c.global.Count() >= c.cfg.MinTrainingSamples
}

func weekday(t time.Time) int {
	d := int(t.Weekday())
	if d == 0 {
		return 7
	}
	return d
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampScore(v float64) float64 {
	v = sanitize(v)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func average(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
