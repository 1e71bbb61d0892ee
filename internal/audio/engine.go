package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/jvn1228/rdum/internal/sample"
)

// Engine owns the speaker and hands out per-track sinks. One engine per
// process; the speaker mixer runs all sinks on its own callback goroutine.
type Engine struct {
	rate beep.SampleRate
}

// NewEngine initializes the speaker at the given output sample rate with a
// buffer of roughly ten milliseconds.
func NewEngine(rate int) (*Engine, error) {
	sr := beep.SampleRate(rate)
	if err := speaker.Init(sr, sr.N(10*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("speaker init: %w", err)
	}
	return &Engine{rate: sr}, nil
}

func (e *Engine) SampleRate() beep.SampleRate { return e.rate }

// NewSink creates a track sink and registers it with the speaker. The sink
// streams silence until something is appended and keeps streaming after the
// queue drains, so the mixer never drops it before Close.
func (e *Engine) NewSink() *Sink {
	s := &Sink{rate: e.rate}
	speaker.Play(s)
	return s
}

// Sink is a per-track playback queue. The trigger policy lives with the
// caller: append, then skip the oldest if more than one item is queued, so a
// fresh trigger is always heard immediately with at most one ringing tail.
type Sink struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	queue  []beep.Streamer
	closed bool
}

// Append enqueues a playback, resampling when the sample was recorded at a
// different rate than the output.
func (s *Sink) Append(p *sample.Playback) {
	var st beep.Streamer = p
	if p.SampleRate() != s.rate {
		st = beep.Resample(4, p.SampleRate(), s.rate, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, st)
}

// SkipOne drops the oldest queued playback, silencing it if it was sounding.
func (s *Sink) SkipOne() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) > 0 {
		s.queue = s.queue[1:]
	}
}

// Len reports how many playbacks are queued, including the sounding one.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close makes the sink report exhaustion so the speaker mixer releases it.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.queue = nil
}

// Stream mixes the head of the queue into out, padding with silence. Only
// the head plays; queued items wait their turn.
func (s *Sink) Stream(out [][2]float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, false
	}
	for i := range out {
		out[i] = [2]float64{}
	}
	if len(s.queue) == 0 {
		return len(out), true
	}
	head := s.queue[0]
	n, ok := head.Stream(out)
	if !ok || n < len(out) {
		s.queue = s.queue[1:]
	}
	return len(out), true
}

func (s *Sink) Err() error { return nil }
