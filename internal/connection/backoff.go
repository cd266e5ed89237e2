package connection

import "time"

// Policy computes reconnection backoff delays. Attempt 0 is the first
// automatic retry after an unexpected disconnect; the initial Connect() does
// not count.
type Policy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Delay returns min(BaseDelay * 2^attempt, MaxDelay). Successive delays are
// non-decreasing and strictly increasing while below the cap.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
