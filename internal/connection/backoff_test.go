package connection

import (
	"testing"
	"time"
)

func TestPolicy_Delay(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 60 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second}, // 64s capped
		{7, 60 * time.Second},
		{100, 60 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicy_DelayNonDecreasing(t *testing.T) {
	p := Policy{BaseDelay: 250 * time.Millisecond, MaxDelay: 10 * time.Second}

	prev := time.Duration(0)
	for attempt := 0; attempt < 64; attempt++ {
		d := p.Delay(attempt)
		if d < prev {
			t.Fatalf("Delay(%d) = %v, less than Delay(%d) = %v", attempt, d, attempt-1, prev)
		}
		if d < prev || d > p.MaxDelay {
			t.Fatalf("Delay(%d) = %v exceeds cap %v", attempt, d, p.MaxDelay)
		}
		prev = d
	}
}

func TestPolicy_StrictlyIncreasingBelowCap(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 60 * time.Second}

	for attempt := 1; attempt < 6; attempt++ {
		if p.Delay(attempt) <= p.Delay(attempt-1) {
			t.Errorf("Delay(%d) = %v not strictly greater than Delay(%d) = %v",
				attempt, p.Delay(attempt), attempt-1, p.Delay(attempt-1))
		}
	}
}
