package seq

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jvn1228/rdum/internal/sample"
)

const (
	// PPQN is the MIDI clock rate: pulses per quarter note.
	PPQN = 24
	// PPB is pulses per bar at 4/4.
	PPB = PPQN * 4

	MinTempo = 20
	MaxTempo = 300

	// DefaultTrackLen is the slot count for freshly added tracks.
	DefaultTrackLen = 8

	// stateChanBuf bounds each consumer's snapshot buffer; beyond it,
	// snapshots are dropped rather than blocking the scheduler.
	stateChanBuf = 64

	commandChanBuf = 1024
)

// MidiOut is the transport/clock surface of the MIDI collaborator. A nil
// MidiOut on the Context turns every emission into a no-op.
type MidiOut interface {
	Start() error
	Stop() error
	Clock() error
}

// SinkFactory creates a playback queue for a new track.
type SinkFactory func() Sink

// Context is the authoritative mutable state of the engine. Everything in
// it is guarded by the single mutex in Ref; methods assume the caller holds
// that lock.
type Context struct {
	Patterns        []*Pattern
	PatternID       int
	QueuedPatternID int
	DefaultLen      int

	tempo         int
	pulseInterval time.Duration
	playing       bool
	lastCmd       Command

	Midi MidiOut

	SamplesDir  string
	PatternsDir string

	// Cached directory listings, refreshed by the list commands.
	PatternFilesList []string
	SampleFilesList  []string

	newSink SinkFactory

	cmdCh    chan Command
	stateChs []chan StateUpdate
}

func NewContext(samplesDir, patternsDir string, newSink SinkFactory) *Context {
	ctx := &Context{
		Patterns:        []*Pattern{NewPattern("Pattern 1")},
		PatternID:       0,
		QueuedPatternID: 0,
		DefaultLen:      DefaultTrackLen,
		SamplesDir:      samplesDir,
		PatternsDir:     patternsDir,
		newSink:         newSink,
		cmdCh:           make(chan Command, commandChanBuf),
	}
	ctx.setTempo(120)
	return ctx
}

func (c *Context) Tempo() int { return c.tempo }

func (c *Context) PulseInterval() time.Duration { return c.pulseInterval }

func (c *Context) Playing() bool { return c.playing }

func (c *Context) LastCmd() Command { return c.lastCmd }

func (c *Context) CurrentPattern() *Pattern { return c.Patterns[c.PatternID] }

// Division is derived from the current pattern.
func (c *Context) Division() int { return c.CurrentPattern().Division }

func (c *Context) SetTempo(bpm int) error {
	if bpm < MinTempo || bpm > MaxTempo {
		return fmt.Errorf("tempo %d out of range [%d,%d]", bpm, MinTempo, MaxTempo)
	}
	c.setTempo(bpm)
	return nil
}

func (c *Context) setTempo(bpm int) {
	c.tempo = bpm
	// One pulse is a 24th of a quarter note.
	c.pulseInterval = time.Duration(float64(time.Minute) / (float64(bpm) * PPQN))
}

// EnablePlay flips the transport on and emits MIDI Start. The playing bit
// is always set before the send.
func (c *Context) EnablePlay() {
	c.playing = true
	if c.Midi != nil {
		if err := c.Midi.Start(); err != nil {
			log.Printf("MIDI start failed: %v", err)
		}
	}
}

// DisablePlay flips the transport off and emits MIDI Stop. The pattern id is
// retained; the scheduler resets playheads lazily on its next iteration.
func (c *Context) DisablePlay() {
	c.playing = false
	if c.Midi != nil {
		if err := c.Midi.Stop(); err != nil {
			log.Printf("MIDI stop failed: %v", err)
		}
	}
}

// AddTrack loads a sample and appends a track for it to the current pattern,
// returning the new track id.
func (c *Context) AddTrack(samplePath string) (int, error) {
	buf, err := sample.Load(samplePath)
	if err != nil {
		return 0, err
	}
	var sink Sink
	if c.newSink != nil {
		sink = c.newSink()
	}
	t := NewTrack(samplePath, c.DefaultLen, buf, sink)
	return c.CurrentPattern().AddTrack(t), nil
}

// AddPattern duplicates the current pattern's structure with zeroed
// velocities and makes it current, queued at the bar boundary when playing.
func (c *Context) AddPattern() int {
	dup := c.CurrentPattern().Clone()
	dup.ZeroAllTracks()
	dup.Name = fmt.Sprintf("Pattern %d", len(c.Patterns)+1)
	c.Patterns = append(c.Patterns, dup)
	newID := len(c.Patterns) - 1
	if c.playing {
		c.QueuedPatternID = newID
	} else {
		c.PatternID = newID
		c.QueuedPatternID = newID
	}
	return newID
}

// RemovePattern deletes a pattern, refusing to remove the last one. The
// current and queued ids are repaired so they always index live patterns.
func (c *Context) RemovePattern(id int) error {
	if id < 0 || id >= len(c.Patterns) {
		return fmt.Errorf("pattern %d out of range", id)
	}
	if len(c.Patterns) == 1 {
		return fmt.Errorf("cannot remove the only pattern")
	}
	c.Patterns = append(c.Patterns[:id], c.Patterns[id+1:]...)
	switch {
	case id < c.PatternID:
		c.PatternID--
	case id == c.PatternID:
		if c.PatternID >= len(c.Patterns) {
			c.PatternID = len(c.Patterns) - 1
		}
		c.CurrentPattern().ResetPlayheads()
	}
	switch {
	case id < c.QueuedPatternID:
		c.QueuedPatternID--
	case id == c.QueuedPatternID:
		c.QueuedPatternID = c.PatternID
	}
	return nil
}

// SelectPattern switches immediately when stopped, or queues the switch for
// the next bar boundary when playing.
func (c *Context) SelectPattern(id int) error {
	if id < 0 || id >= len(c.Patterns) {
		return fmt.Errorf("pattern %d out of range", id)
	}
	if c.playing {
		c.QueuedPatternID = id
		return nil
	}
	c.PatternID = id
	c.QueuedPatternID = id
	c.CurrentPattern().ResetPlayheads()
	return nil
}

func (c *Context) ResetPlayheads() {
	c.CurrentPattern().ResetPlayheads()
}

// triggerTrack enqueues an amplified playback. Newest wins: when something
// is already queued the oldest is skipped so the fresh trigger is heard
// immediately, leaving at most one ringing tail.
func triggerTrack(t *Track, velocity int) {
	if t.Sink == nil || t.Sample == nil {
		return
	}
	t.Sink.Append(t.Sample.Play(velocity))
	if t.Sink.Len() > 1 {
		t.Sink.SkipOne()
	}
}

// PlaySoundNow auditions a track without touching playheads. Choke handling
// matches a tick trigger: other members of the track's groups lose their
// tails.
func (c *Context) PlaySoundNow(trackID, velocity int) error {
	pat := c.CurrentPattern()
	if trackID < 0 || trackID >= len(pat.Tracks) {
		return fmt.Errorf("track %d out of range", trackID)
	}
	if velocity < 0 || velocity > 127 {
		return fmt.Errorf("velocity %d out of range [0,127]", velocity)
	}
	triggerTrack(pat.Tracks[trackID], velocity)
	for i := range pat.Tracks {
		if pat.IsTrackChoked([]int{trackID}, i) {
			if pat.Tracks[i].Sink != nil {
				pat.Tracks[i].Sink.SkipOne()
			}
		}
	}
	return nil
}

// Snapshot materializes the broadcast view. Latency is owned by the
// scheduler and passed in.
func (c *Context) Snapshot(latency time.Duration) SeqState {
	pat := c.CurrentPattern()
	trks := make([]TrackState, len(pat.Tracks))
	for i, t := range pat.Tracks {
		slots := make([]int, len(t.Slots))
		for j, s := range t.Slots {
			slots[j] = s.Velocity
		}
		trks[i] = TrackState{
			Slots:      slots,
			Name:       t.Name,
			Idx:        t.Idx,
			Len:        t.Len,
			SamplePath: t.SamplePath,
		}
	}
	return SeqState{
		Tempo:           c.tempo,
		Trks:            trks,
		Division:        pat.Division,
		DefaultLen:      c.DefaultLen,
		Latency:         latency,
		LastCmd:         c.lastCmd.String(),
		Playing:         c.playing,
		PatternID:       c.PatternID,
		PatternCount:    len(c.Patterns),
		PatternName:     pat.Name,
		QueuedPatternID: c.QueuedPatternID,
		Swing:           pat.Swing,
	}
}

// Broadcast fans an update out to every registered consumer. Slow consumers
// lose snapshots instead of blocking the caller.
func (c *Context) Broadcast(upd StateUpdate) {
	for _, ch := range c.stateChs {
		select {
		case ch <- upd:
		default:
		}
	}
}

// Ref is the single guarded handle onto Context shared by the scheduler,
// the dispatcher, and every controller. There is exactly one lock.
type Ref struct {
	mu  sync.Mutex
	ctx *Context
}

func NewRef(ctx *Context) *Ref {
	return &Ref{ctx: ctx}
}

// With runs fn with the Context lock held.
func (r *Ref) With(fn func(*Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.ctx)
}

// CommandTx returns the shared multi-producer command endpoint. Controllers
// keep their own copy.
func (r *Ref) CommandTx() chan<- Command {
	return r.ctx.cmdCh
}

// GetStateRx registers a new snapshot consumer and returns its endpoint.
func (r *Ref) GetStateRx() <-chan StateUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan StateUpdate, stateChanBuf)
	r.ctx.stateChs = append(r.ctx.stateChs, ch)
	return ch
}

// TrackRef addresses one track of the current pattern through the shared
// handle.
type TrackRef struct {
	Ref *Ref
	ID  int
}

func (tr TrackRef) With(fn func(*Track)) error {
	var err error
	tr.Ref.With(func(c *Context) {
		pat := c.CurrentPattern()
		if tr.ID < 0 || tr.ID >= len(pat.Tracks) {
			err = fmt.Errorf("track %d out of range", tr.ID)
			return
		}
		fn(pat.Tracks[tr.ID])
	})
	return err
}

func (tr TrackRef) SetSlot(i, velocity int) error {
	var err error
	if outer := tr.With(func(t *Track) {
		err = t.SetSlot(i, velocity)
	}); outer != nil {
		return outer
	}
	return err
}

func (tr TrackRef) SetSlots(velocities []int) error {
	return tr.With(func(t *Track) {
		t.SetSlots(velocities)
	})
}
