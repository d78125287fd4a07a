package models

import "testing"

func TestTransactionValid(t *testing.T) {
	cases := []struct {
		name string
		tx   *Transaction
		want bool
	}{
		{"nil transaction", nil, false},
		{"missing both ids", &Transaction{}, false},
		{"missing user id", &Transaction{TransactionID: "t1"}, false},
		{"missing transaction id", &Transaction{UserID: "u1"}, false},
		{"valid", &Transaction{TransactionID: "t1", UserID: "u1"}, true},
	}
	for _, c := range cases {
		if got := c.tx.Valid(); got != c.want {
			t.Errorf("%s: Valid() = %v, want %v", c.name, got, c.want)
		}
	}
}
