package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"Login works":           "Login_works",
		"a  /  b":               "a_b",
		"keep-dash_and_under":   "keep-dash_and_under",
		"émoji ✅ scenario":      "_moji_scenario",
		"":                      "unknown",
		"   ":                   "unknown",
		"Order #42: refund (3)": "Order_42_refund_3_",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeFileName(in), "input %q", in)
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "Checkout_2025-01-02_03-04-05.log", FileName("Checkout", now))
}

func TestEntryFormat_Summary(t *testing.T) {
	e := Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC),
		Kind:    KindSummary,
		Label:   "Checkout",
		Message: "failed (7 steps)",
	}
	assert.Equal(t, "[03:04:05.006] Summary - Checkout: failed (7 steps)", e.Format())
}
