package seq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextInvariants(t *testing.T) {
	ctx, _ := newTestContext(t)

	t.Run("starts with one pattern", func(t *testing.T) {
		assert.Equal(t, 1, len(ctx.Patterns))
		assert.Equal(t, 0, ctx.PatternID)
		assert.Equal(t, ctx.PatternID, ctx.QueuedPatternID)
		assert.Equal(t, "Pattern 1", ctx.CurrentPattern().Name)
		assert.Equal(t, 120, ctx.Tempo())
		assert.Equal(t, 4, ctx.Division())
	})

	t.Run("pattern id always indexes a live pattern", func(t *testing.T) {
		ctx.AddPattern()
		ctx.AddPattern()
		require.NoError(t, ctx.SelectPattern(2))
		require.NoError(t, ctx.RemovePattern(2))
		assert.Less(t, ctx.PatternID, len(ctx.Patterns))
		assert.Less(t, ctx.QueuedPatternID, len(ctx.Patterns))

		require.NoError(t, ctx.RemovePattern(0))
		assert.Less(t, ctx.PatternID, len(ctx.Patterns))
		assert.Error(t, ctx.RemovePattern(0))
	})
}

func TestTrackRef(t *testing.T) {
	ctx, _ := newTestContext(t)
	id := addTestTrack(t, ctx, "kick.wav")
	ref := NewRef(ctx)

	tr := TrackRef{Ref: ref, ID: id}
	require.NoError(t, tr.SetSlot(0, 127))
	require.NoError(t, tr.SetSlots([]int{0, 64}))
	assert.Equal(t, 0, ctx.CurrentPattern().Tracks[id].Slots[0].Velocity)
	assert.Equal(t, 64, ctx.CurrentPattern().Tracks[id].Slots[1].Velocity)

	t.Run("slot errors surface", func(t *testing.T) {
		assert.Error(t, tr.SetSlot(99, 1))
	})

	t.Run("dangling track id fails", func(t *testing.T) {
		bad := TrackRef{Ref: ref, ID: 42}
		assert.Error(t, bad.SetSlot(0, 1))
	})
}

func TestRefConcurrentAccess(t *testing.T) {
	ctx, _ := newTestContext(t)
	addTestTrack(t, ctx, "kick.wav")
	ref := NewRef(ctx)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				ref.With(func(c *Context) {
					c.SetTempo(MinTempo + (w*200+i)%(MaxTempo-MinTempo))
					c.CurrentPattern().Tracks[0].SetSlot(i%8, i%128)
				})
			}
		}(w)
	}
	wg.Wait()

	tempo := ctx.Tempo()
	assert.GreaterOrEqual(t, tempo, MinTempo)
	assert.Less(t, tempo, MaxTempo)
}
