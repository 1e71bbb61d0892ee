package clock

import (
	"runtime"
	"time"
)

// Sleeper pauses for precise intervals by sleeping through most of the wait
// and spinning out the remainder. A plain time.Sleep can overshoot by the OS
// scheduler quantum, which is audible at pulse rates.
type Sleeper struct {
	// SpinThreshold is how much of the tail of each wait is burned in a
	// yield loop instead of handed to the OS.
	SpinThreshold time.Duration
}

// DefaultSpinThreshold covers the usual wakeup slop on desktop schedulers.
const DefaultSpinThreshold = time.Millisecond

func NewSleeper() *Sleeper {
	return &Sleeper{SpinThreshold: DefaultSpinThreshold}
}

// Sleep blocks for d. Returns immediately when d <= 0.
func (s *Sleeper) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	if coarse := d - s.SpinThreshold; coarse > 0 {
		time.Sleep(coarse)
	}
	for time.Now().Before(deadline) {
		runtime.Gosched()
	}
}
