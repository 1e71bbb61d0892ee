package sample

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV synthesizes a small fixture with a known first frame.
func writeWAV(t testing.TB, path string, channels, frames int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, channels, 1)
	data := make([]int, frames*channels)
	for i := range data {
		// Half scale everywhere keeps gain math easy to eyeball.
		data[i] = 1 << 14
	}
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: 44100},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestLoad(t *testing.T) {
	t.Run("decodes mono to both channels", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "kick.wav")
		writeWAV(t, path, 1, 100)

		buf, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 1, buf.Channels())
		assert.Equal(t, beep.SampleRate(44100), buf.SampleRate())
		assert.Equal(t, 100, buf.Len())
		assert.Equal(t, path, buf.Path())

		p := buf.Play(127)
		out := make([][2]float64, 1)
		n, ok := p.Stream(out)
		require.True(t, ok)
		require.Equal(t, 1, n)
		assert.InDelta(t, 0.5, out[0][0], 1e-9)
		assert.Equal(t, out[0][0], out[0][1])
	})

	t.Run("decodes stereo", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stereo.wav")
		writeWAV(t, path, 2, 50)

		buf, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 2, buf.Channels())
		assert.Equal(t, 50, buf.Len())
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.wav"))
		assert.Error(t, err)
	})

	t.Run("non-wav data fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "junk.wav")
		require.NoError(t, os.WriteFile(path, []byte("not audio at all"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beep.wav")
	writeWAV(t, path, 1, 44100)

	buf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Second, buf.Duration())
}

func TestPlayback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kick.wav")
	writeWAV(t, path, 1, 10)
	buf, err := Load(path)
	require.NoError(t, err)

	t.Run("velocity scales amplitude", func(t *testing.T) {
		p := buf.Play(64)
		assert.InDelta(t, 64.0/127.0, p.Gain(), 1e-9)

		out := make([][2]float64, 1)
		_, ok := p.Stream(out)
		require.True(t, ok)
		assert.InDelta(t, 0.5*64.0/127.0, out[0][0], 1e-9)
	})

	t.Run("velocity is clamped", func(t *testing.T) {
		assert.Equal(t, 1.0, buf.Play(200).Gain())
		assert.Equal(t, 0.0, buf.Play(-5).Gain())
	})

	t.Run("exhausts after the buffer", func(t *testing.T) {
		p := buf.Play(127)
		out := make([][2]float64, 8)

		n, ok := p.Stream(out)
		assert.True(t, ok)
		assert.Equal(t, 8, n)

		n, ok = p.Stream(out)
		assert.True(t, ok)
		assert.Equal(t, 2, n)

		n, ok = p.Stream(out)
		assert.False(t, ok)
		assert.Equal(t, 0, n)
		assert.NoError(t, p.Err())
	})

	t.Run("concurrent playbacks have independent cursors", func(t *testing.T) {
		a := buf.Play(127)
		b := buf.Play(127)
		out := make([][2]float64, 4)
		a.Stream(out)

		n, ok := b.Stream(make([][2]float64, 10))
		assert.True(t, ok)
		assert.Equal(t, 10, n)
	})
}

func TestName(t *testing.T) {
	assert.Equal(t, "kick0", Name("one_shots/kick0.wav"))
	assert.Equal(t, "open hat", Name("/abs/path/open_hat.wav"))
	assert.Equal(t, "snare", Name("snare.wav"))
}
