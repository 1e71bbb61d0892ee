package seq

import (
	"fmt"

	"github.com/jvn1228/rdum/internal/sample"
)

// MaxTrackLen bounds slot sequences. Long enough for four bars of 16ths.
const MaxTrackLen = 64

// Sink is the per-track playback queue owned by the audio collaborator.
// The engine only needs append, skip-oldest, and length.
type Sink interface {
	Append(p *sample.Playback)
	SkipOne()
	Len() int
	Close()
}

// Slot is a single step cell. Velocity 0 is silent.
type Slot struct {
	Velocity int
}

// Track is an ordered slot sequence bound to one sample and one sink. Idx is
// the playhead position; Len may differ per track, which is what makes
// polymetric patterns possible.
type Track struct {
	Slots      []Slot
	Sample     *sample.Buffer
	SamplePath string
	Name       string
	Idx        int
	Len        int
	Sink       Sink
}

func NewTrack(samplePath string, length int, buf *sample.Buffer, sink Sink) *Track {
	if length < 1 {
		length = 1
	}
	if length > MaxTrackLen {
		length = MaxTrackLen
	}
	return &Track{
		Slots:      make([]Slot, length),
		Sample:     buf,
		SamplePath: samplePath,
		Name:       sample.Name(samplePath),
		Idx:        0,
		Len:        length,
		Sink:       sink,
	}
}

func (t *Track) SetSlot(i, velocity int) error {
	if i < 0 || i >= t.Len {
		return fmt.Errorf("slot %d out of range [0,%d)", i, t.Len)
	}
	if velocity < 0 || velocity > 127 {
		return fmt.Errorf("velocity %d out of range [0,127]", velocity)
	}
	t.Slots[i].Velocity = velocity
	return nil
}

// SetSlots batch-assigns velocities. Entries beyond the track length are
// ignored.
func (t *Track) SetSlots(velocities []int) {
	for i, v := range velocities {
		if i >= t.Len {
			break
		}
		if v < 0 {
			v = 0
		}
		if v > 127 {
			v = 127
		}
		t.Slots[i].Velocity = v
	}
}

// SetLen resizes the slot sequence, padding with silent slots when growing
// and truncating when shrinking. Existing velocities are preserved and the
// playhead wraps into the new length.
func (t *Track) SetLen(n int) error {
	if n < 1 || n > MaxTrackLen {
		return fmt.Errorf("track length %d out of range [1,%d]", n, MaxTrackLen)
	}
	switch {
	case n > t.Len:
		t.Slots = append(t.Slots, make([]Slot, n-t.Len)...)
	case n < t.Len:
		t.Slots = t.Slots[:n]
	}
	t.Len = n
	t.Idx = t.Idx % n
	return nil
}

func (t *Track) ResetSlots() {
	for i := range t.Slots {
		t.Slots[i].Velocity = 0
	}
}

// SetSample reloads the track's sample from a new path. On decode failure
// the track is left unchanged.
func (t *Track) SetSample(path string) error {
	buf, err := sample.Load(path)
	if err != nil {
		return err
	}
	t.Sample = buf
	t.SamplePath = path
	t.Name = sample.Name(path)
	return nil
}
