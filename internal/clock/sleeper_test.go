package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSleep(t *testing.T) {
	s := NewSleeper()

	t.Run("sleeps at least the requested duration", func(t *testing.T) {
		for _, d := range []time.Duration{500 * time.Microsecond, 2 * time.Millisecond, 10 * time.Millisecond} {
			start := time.Now()
			s.Sleep(d)
			elapsed := time.Since(start)
			assert.GreaterOrEqual(t, elapsed, d)
			// Generous ceiling; the point is only that the spin tail keeps
			// the overshoot below a scheduler quantum, not exact timing.
			assert.Less(t, elapsed, d+20*time.Millisecond)
		}
	})

	t.Run("zero and negative return immediately", func(t *testing.T) {
		start := time.Now()
		s.Sleep(0)
		s.Sleep(-time.Second)
		assert.Less(t, time.Since(start), 5*time.Millisecond)
	})

	t.Run("short waits spin entirely", func(t *testing.T) {
		s := &Sleeper{SpinThreshold: 5 * time.Millisecond}
		start := time.Now()
		s.Sleep(time.Millisecond)
		assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
	})
}
