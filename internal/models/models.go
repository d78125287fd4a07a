package models

import (
	"fmt"
	"time"
)

// civilLayout is the wire format for Transaction.Timestamp: a civil
// (zoneless) date-time, per spec — no offset is present or assumed.
const civilLayout = "2006-01-02T15:04:05"

// CivilTime wraps time.Time for a timestamp that carries no timezone.
// The core treats it as a naive local date-time throughout: arithmetic
// (Sub, After, Hour, Weekday, ...) operates on the wall-clock fields
// exactly as read off the wire, and never promotes them to a UTC
// instant. Decoding stores the parsed fields in time.UTC purely so the
// stdlib's time.Time arithmetic is available — that is bookkeeping,
// not a zone conversion, since no zone was ever present to convert.
type CivilTime struct {
	time.Time
}

// NewCivilTime wraps an existing time.Time, preserving only its
// wall-clock fields (year through nanosecond), never its location.
func NewCivilTime(t time.Time) CivilTime {
	return CivilTime{time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)}
}

// MarshalJSON writes the civil date-time with no offset, matching the
// wire format Observe/Score both read.
func (c CivilTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.Time.Format(civilLayout) + `"`), nil
}

// UnmarshalJSON parses a zoneless "2006-01-02T15:04:05"-style string.
// A string carrying an explicit offset (RFC3339) is also accepted for
// leniency, but its offset is discarded rather than applied — the
// parsed wall-clock fields are kept as-is, never shifted to UTC.
func (c *CivilTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		c.Time = time.Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("models: timestamp must be a JSON string, got %s", s)
	}
	s = s[1 : len(s)-1]

	if t, err := time.ParseInLocation(civilLayout, s, time.UTC); err == nil {
		c.Time = t
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		c.Time = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		return nil
	}
	return fmt.Errorf("models: invalid civil date-time %q: want %q", s, civilLayout)
}

// Location is an optional geographic tag on a Transaction.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	City      string  `json:"city"`
}

// Transaction is the decoded form of one input record arriving on the bus.
type Transaction struct {
	TransactionID    string                 `json:"transaction_id"`
	UserID           string                 `json:"user_id"`
	MerchantID       string                 `json:"merchant_id"`
	Amount           float64                `json:"amount"`
	Currency         string                 `json:"currency"`
	Timestamp        CivilTime              `json:"timestamp"`
	Location         *Location              `json:"location,omitempty"`
	PaymentMethod    string                 `json:"payment_method"`
	MerchantCategory string                 `json:"merchant_category"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// Valid reports whether tx carries the fields the pipeline requires before
// it can be scored. A record missing these is dropped rather than scored.
func (tx *Transaction) Valid() bool {
	return tx != nil && tx.TransactionID != "" && tx.UserID != ""
}

// AnomalyType classifies why a transaction was flagged.
type AnomalyType string

const (
	AnomalyFraud              AnomalyType = "fraud"
	AnomalyUnusualAmount      AnomalyType = "unusual_amount"
	AnomalyVelocity           AnomalyType = "velocity"
	AnomalyLocation           AnomalyType = "location"
	AnomalyTimePattern        AnomalyType = "time_pattern"
	AnomalyMerchantPattern    AnomalyType = "merchant_pattern"
	AnomalyStatisticalOutlier AnomalyType = "statistical_outlier"
	AnomalyUnknown            AnomalyType = "unknown"
)

// AnomalyResult is the judgement emitted for one scored Transaction.
type AnomalyResult struct {
	TransactionID       string             `json:"transaction_id"`
	IsAnomaly           bool               `json:"is_anomaly"`
	Score               float64            `json:"anomaly_score"`
	Confidence          float64            `json:"confidence"`
	Type                AnomalyType        `json:"anomaly_type"`
	DetectedAt          time.Time          `json:"detected_at"`
	OriginalTransaction Transaction        `json:"original_transaction"`
	FeaturesUsed        map[string]float64 `json:"features_used"`
	Reason              string             `json:"reason"`
}
