package audio

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvn1228/rdum/internal/sample"
)

// The sink is exercised without a speaker: Stream is what the mixer would
// call, driven by hand here.

func loadFixture(t *testing.T, frames int) *sample.Buffer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, 44100, 16, 1, 1)
	data := make([]int, frames)
	for i := range data {
		data[i] = 1 << 14
	}
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 44100},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	buf, err := sample.Load(path)
	require.NoError(t, err)
	return buf
}

func TestSinkQueuePolicy(t *testing.T) {
	buf := loadFixture(t, 32)

	t.Run("append grows the queue", func(t *testing.T) {
		s := &Sink{rate: 44100}
		s.Append(buf.Play(127))
		s.Append(buf.Play(127))
		assert.Equal(t, 2, s.Len())
	})

	t.Run("skip one drops the oldest", func(t *testing.T) {
		s := &Sink{rate: 44100}
		s.Append(buf.Play(127))
		s.Append(buf.Play(64))
		s.SkipOne()
		assert.Equal(t, 1, s.Len())

		// The survivor is the newest append.
		out := make([][2]float64, 1)
		n, ok := s.Stream(out)
		require.True(t, ok)
		require.Equal(t, 1, n)
		assert.InDelta(t, 0.5*64.0/127.0, out[0][0], 1e-9)
	})

	t.Run("skip on empty is a no-op", func(t *testing.T) {
		s := &Sink{rate: 44100}
		s.SkipOne()
		assert.Equal(t, 0, s.Len())
	})
}

func TestSinkStream(t *testing.T) {
	buf := loadFixture(t, 32)

	t.Run("streams silence when empty", func(t *testing.T) {
		s := &Sink{rate: 44100}
		out := [][2]float64{{9, 9}, {9, 9}}
		n, ok := s.Stream(out)
		assert.True(t, ok)
		assert.Equal(t, 2, n)
		assert.Equal(t, [2]float64{0, 0}, out[0])
		assert.Equal(t, [2]float64{0, 0}, out[1])
	})

	t.Run("plays only the head and pops it when exhausted", func(t *testing.T) {
		s := &Sink{rate: 44100}
		s.Append(buf.Play(127))
		s.Append(buf.Play(127))

		// 32 frames of head; a 40-frame read exhausts it.
		out := make([][2]float64, 40)
		n, ok := s.Stream(out)
		assert.True(t, ok)
		assert.Equal(t, 40, n)
		assert.InDelta(t, 0.5, out[0][0], 1e-9)
		assert.Equal(t, 0.0, out[39][0])
		assert.Equal(t, 1, s.Len())

		// The next read starts the queued playback.
		n, ok = s.Stream(out[:8])
		assert.True(t, ok)
		assert.Equal(t, 8, n)
		assert.InDelta(t, 0.5, out[0][0], 1e-9)
	})

	t.Run("closed sink reports exhaustion", func(t *testing.T) {
		s := &Sink{rate: 44100}
		s.Append(buf.Play(127))
		s.Close()
		assert.Equal(t, 0, s.Len())

		_, ok := s.Stream(make([][2]float64, 4))
		assert.False(t, ok)

		// Appends after close are dropped.
		s.Append(buf.Play(127))
		assert.Equal(t, 0, s.Len())
	})
}
