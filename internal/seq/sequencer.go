package seq

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/jvn1228/rdum/internal/clock"
)

// Sequencer runs the pulse loop. It owns the pulse index, the latency
// average, and the sleeper; everything musical lives on the Context and is
// read under its lock once per pulse.
type Sequencer struct {
	ref           *Ref
	latency       time.Duration
	sleepInterval time.Duration
	pulseIdx      int
	sleeper       *clock.Sleeper
}

func NewSequencer(ref *Ref) *Sequencer {
	return &Sequencer{
		ref:     ref,
		sleeper: clock.NewSleeper(),
	}
}

func (s *Sequencer) Ref() *Ref { return s.ref }

func (s *Sequencer) Latency() time.Duration { return s.latency }

func (s *Sequencer) PulseIdx() int { return s.pulseIdx }

// beatTick reports whether a pulse fires triggers for a pattern. Swing
// delays every second beat by a proportional pulse offset.
func beatTick(pulseIdx, division, swing int) bool {
	period := PPB / division
	beat := pulseIdx / period
	phase := pulseIdx % period
	if beat%2 == 0 {
		return phase == 0
	}
	offset := 0
	if swing > 0 {
		offset = int(math.Round(float64(swing) * float64(period) / 100.0 / 2.0))
	}
	return phase == offset
}

// playNext is one pulse. The pattern switch, the triggers, the choke pass,
// the MIDI clock, and the latency bookkeeping all happen in one critical
// section so no command can land inside a tick.
func (s *Sequencer) playNext() {
	var playing bool
	s.ref.With(func(c *Context) { playing = c.playing })

	var snap SeqState
	if playing {
		start := time.Now()
		s.ref.With(func(c *Context) {
			// A queued pattern takes over only on the bar boundary so
			// the beat keeps its place.
			if s.pulseIdx == 0 && c.QueuedPatternID != c.PatternID {
				c.PatternID = c.QueuedPatternID
				c.ResetPlayheads()
			}

			pat := c.CurrentPattern()
			if beatTick(s.pulseIdx, pat.Division, pat.Swing) {
				var triggeredIDs []int
				for i, t := range pat.Tracks {
					if vel := t.Slots[t.Idx].Velocity; vel > 0 {
						triggerTrack(t, vel)
						triggeredIDs = append(triggeredIDs, i)
					}
					t.Idx = (t.Idx + 1) % t.Len
				}
				// Choking runs after every trigger of the tick so mutual
				// groups silence only tails, never each other's fresh hits.
				// A track that fired this tick holds exactly its fresh
				// playback after the newest-wins trim, so the skip applies
				// only when something older is still queued.
				for i, t := range pat.Tracks {
					if t.Sink == nil || !pat.IsTrackChoked(triggeredIDs, i) {
						continue
					}
					fresh := false
					for _, id := range triggeredIDs {
						if id == i {
							fresh = true
							break
						}
					}
					if !fresh || t.Sink.Len() > 1 {
						t.Sink.SkipOne()
					}
				}
			}

			if c.Midi != nil {
				if err := c.Midi.Clock(); err != nil {
					log.Printf("MIDI clock failed: %v", err)
				}
			}

			s.pulseIdx = (s.pulseIdx + 1) % PPB

			s.setLatency(time.Since(start), c.pulseInterval)
			snap = c.Snapshot(s.latency)
		})
	} else {
		s.ref.With(func(c *Context) {
			if s.pulseIdx != 0 {
				s.pulseIdx = 0
				c.ResetPlayheads()
			}
			s.sleepInterval = c.pulseInterval
			snap = c.Snapshot(s.latency)
		})
	}

	s.ref.With(func(c *Context) {
		c.Broadcast(StateUpdate{Seq: &snap})
	})
}

// setLatency folds the pulse's processing time into the running average and
// derives the compensated sleep, floored at zero.
func (s *Sequencer) setLatency(elapsed, pulseInterval time.Duration) {
	s.latency = (s.latency + elapsed) / 2
	comp := s.latency
	if comp > pulseInterval {
		comp = pulseInterval
	}
	s.sleepInterval = pulseInterval - comp
}

// Run loops until ctx is cancelled. A pulse always completes to its sleep;
// shutdown is observed between pulses, and a final MIDI Stop is emitted when
// a connection is present.
func (s *Sequencer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.ref.With(func(c *Context) {
				if c.Midi != nil {
					if err := c.Midi.Stop(); err != nil {
						log.Printf("MIDI stop on shutdown failed: %v", err)
					}
				}
			})
			return
		default:
		}
		s.playNext()
		s.sleeper.Sleep(s.sleepInterval)
	}
}
