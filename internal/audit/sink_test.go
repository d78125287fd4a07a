package audit

import (
	"reflect"
	"testing"
)

func TestFeatureNamesSortedKeys(t *testing.T) {
	got := featureNames(map[string]float64{
		"user_avg_amount": 1,
		"amount":          2,
		"hour_of_day":     3,
	})
	want := []string{"amount", "hour_of_day", "user_avg_amount"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("featureNames() = %v, want %v", got, want)
	}
}

func TestFeatureNamesEmpty(t *testing.T) {
	got := featureNames(map[string]float64{})
	if len(got) != 0 {
		t.Errorf("featureNames(empty) = %v, want empty slice", got)
	}
}
