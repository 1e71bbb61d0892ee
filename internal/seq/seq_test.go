package seq

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/jvn1228/rdum/internal/sample"
)

// writeTestWAV synthesizes a short mono 16-bit fixture.
func writeTestWAV(t testing.TB, path string, frames int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, 1, 1)
	data := make([]int, frames)
	for i := range data {
		data[i] = (i%64 - 32) * 512
	}
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

// fakeSink records the trigger policy calls the scheduler makes.
type fakeSink struct {
	queue   []*sample.Playback
	appends int
	skips   int
	closed  bool
}

func (s *fakeSink) Append(p *sample.Playback) {
	s.appends++
	s.queue = append(s.queue, p)
}

func (s *fakeSink) SkipOne() {
	s.skips++
	if len(s.queue) > 0 {
		s.queue = s.queue[1:]
	}
}

func (s *fakeSink) Len() int { return len(s.queue) }

func (s *fakeSink) Close() { s.closed = true }

// fakeMidi records emitted transport and clock bytes in order.
type fakeMidi struct {
	bytes []byte
}

func (m *fakeMidi) Start() error { m.bytes = append(m.bytes, 0xFA); return nil }
func (m *fakeMidi) Stop() error  { m.bytes = append(m.bytes, 0xFC); return nil }
func (m *fakeMidi) Clock() error { m.bytes = append(m.bytes, 0xF8); return nil }

func (m *fakeMidi) count(b byte) int {
	n := 0
	for _, x := range m.bytes {
		if x == b {
			n++
		}
	}
	return n
}

// newTestContext builds a context over a temp samples dir with a sink
// factory handing out fakes.
func newTestContext(t testing.TB) (*Context, string) {
	t.Helper()
	dir := t.TempDir()
	samplesDir := filepath.Join(dir, "one_shots")
	patternsDir := filepath.Join(dir, "patterns")
	require.NoError(t, os.Mkdir(samplesDir, 0o755))
	require.NoError(t, os.Mkdir(patternsDir, 0o755))
	ctx := NewContext(samplesDir, patternsDir, func() Sink { return &fakeSink{} })
	return ctx, samplesDir
}

// addTestTrack creates a fixture sample and appends a track for it.
func addTestTrack(t testing.TB, ctx *Context, name string) int {
	t.Helper()
	path := filepath.Join(ctx.SamplesDir, name)
	writeTestWAV(t, path, 256)
	id, err := ctx.AddTrack(path)
	require.NoError(t, err)
	return id
}

func trackSink(ctx *Context, id int) *fakeSink {
	return ctx.CurrentPattern().Tracks[id].Sink.(*fakeSink)
}
