package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCivilTimeUnmarshalZoneless(t *testing.T) {
	var tx Transaction
	raw := []byte(`{"transaction_id":"t1","user_id":"u1","timestamp":"2026-01-15T10:30:00"}`)
	if err := json.Unmarshal(raw, &tx); err != nil {
		t.Fatalf("Unmarshal() returned error for zoneless civil date-time: %v", err)
	}

	want := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	if !tx.Timestamp.Time.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", tx.Timestamp.Time, want)
	}
}

func TestCivilTimeRoundTrip(t *testing.T) {
	ct := NewCivilTime(time.Date(2026, 3, 4, 9, 15, 30, 0, time.UTC))

	data, err := json.Marshal(ct)
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}
	if got, want := string(data), `"2026-03-04T09:15:30"`; got != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}

	var decoded CivilTime
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() returned error: %v", err)
	}
	if !decoded.Time.Equal(ct.Time) {
		t.Errorf("round-tripped Timestamp = %v, want %v", decoded.Time, ct.Time)
	}
}

func TestCivilTimeDiscardsOffsetRatherThanShifting(t *testing.T) {
	var ct CivilTime
	if err := json.Unmarshal([]byte(`"2026-01-15T10:30:00+05:00"`), &ct); err != nil {
		t.Fatalf("Unmarshal() returned error for offset-bearing fallback input: %v", err)
	}

	want := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	if !ct.Time.Equal(want) {
		t.Errorf("Timestamp = %v, want wall-clock fields preserved as %v (offset discarded, not applied)", ct.Time, want)
	}
}

func TestCivilTimeRejectsMalformedString(t *testing.T) {
	var ct CivilTime
	if err := json.Unmarshal([]byte(`"not-a-date"`), &ct); err == nil {
		t.Errorf("Unmarshal() with malformed timestamp should return an error")
	}
}
