package seq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChokeGrp(t *testing.T) {
	t.Run("membership is a set", func(t *testing.T) {
		g := NewChokeGrp(0, 1, 1, 2)
		assert.Equal(t, []int{0, 1, 2}, g.TrackIDs)

		g.AddTrack(1)
		assert.Equal(t, []int{0, 1, 2}, g.TrackIDs)

		g.RemoveTrack(1)
		assert.Equal(t, []int{0, 2}, g.TrackIDs)
		assert.False(t, g.IsMember(1))
	})

	t.Run("choked ids exclude the trigger", func(t *testing.T) {
		g := NewChokeGrp(0, 1, 2)
		assert.Equal(t, []int{1, 2}, g.ChokedIDs(0))
		assert.Nil(t, g.ChokedIDs(5))
	})
}

func TestPatternChoke(t *testing.T) {
	p := NewPattern("test")
	p.ChokeGrps = []ChokeGrp{
		NewChokeGrp(0, 1),
		NewChokeGrp(1, 2),
	}

	t.Run("choked ids dedup across groups", func(t *testing.T) {
		assert.ElementsMatch(t, []int{0, 2}, p.ChokedIDs(1))
	})

	t.Run("is choked only by another triggered member", func(t *testing.T) {
		assert.True(t, p.IsTrackChoked([]int{0}, 1))
		assert.False(t, p.IsTrackChoked([]int{0}, 2))
		assert.False(t, p.IsTrackChoked([]int{1}, 1))
		assert.False(t, p.IsTrackChoked(nil, 1))
	})
}

func TestPatternDivision(t *testing.T) {
	p := NewPattern("test")

	for _, d := range Divisions {
		assert.NoError(t, p.SetDivision(d))
		assert.Equal(t, d, p.Division)
	}

	assert.Error(t, p.SetDivision(5))
	assert.Error(t, p.SetDivision(0))
	assert.Equal(t, 32, p.Division)
}

func TestPatternSwing(t *testing.T) {
	p := NewPattern("test")
	assert.NoError(t, p.SetSwing(0))
	assert.NoError(t, p.SetSwing(100))
	assert.Error(t, p.SetSwing(-1))
	assert.Error(t, p.SetSwing(101))
	assert.Equal(t, 100, p.Swing)
}

func TestPatternClone(t *testing.T) {
	ctx, _ := newTestContext(t)
	addTestTrack(t, ctx, "kick.wav")
	addTestTrack(t, ctx, "hat.wav")
	p := ctx.CurrentPattern()
	p.Tracks[0].SetSlots([]int{127, 0, 64, 0})
	p.Tracks[0].Idx = 3
	p.ChokeGrps = []ChokeGrp{NewChokeGrp(0, 1)}
	require.NoError(t, p.SetDivision(8))

	dup := p.Clone()

	t.Run("structure is copied, playheads reset", func(t *testing.T) {
		assert.Equal(t, 8, dup.Division)
		assert.Equal(t, 2, len(dup.Tracks))
		assert.Equal(t, 0, dup.Tracks[0].Idx)
		assert.Equal(t, p.Tracks[0].Slots, dup.Tracks[0].Slots)
		assert.Equal(t, p.ChokeGrps, dup.ChokeGrps)
	})

	t.Run("slot storage is independent", func(t *testing.T) {
		dup.Tracks[0].Slots[0].Velocity = 1
		assert.Equal(t, 127, p.Tracks[0].Slots[0].Velocity)
	})

	t.Run("samples are shared", func(t *testing.T) {
		assert.Same(t, p.Tracks[0].Sample, dup.Tracks[0].Sample)
	})
}

func TestPatternZeroAndReset(t *testing.T) {
	ctx, _ := newTestContext(t)
	addTestTrack(t, ctx, "kick.wav")
	addTestTrack(t, ctx, "hat.wav")
	p := ctx.CurrentPattern()
	p.Tracks[0].SetSlots([]int{127, 127})
	p.Tracks[1].SetSlots([]int{64})
	p.Tracks[0].Idx = 5
	p.Tracks[1].Idx = 2

	p.ZeroAllTracks()
	p.ResetPlayheads()

	for _, trk := range p.Tracks {
		assert.Equal(t, 0, trk.Idx)
		for _, s := range trk.Slots {
			assert.Equal(t, 0, s.Velocity)
		}
	}
}

func TestPatternSetLen(t *testing.T) {
	ctx, _ := newTestContext(t)
	addTestTrack(t, ctx, "kick.wav")
	addTestTrack(t, ctx, "hat.wav")
	p := ctx.CurrentPattern()
	p.Tracks[1].SetLen(4)

	require.NoError(t, p.SetLen(16))
	for _, trk := range p.Tracks {
		assert.Equal(t, 16, trk.Len)
	}
}
