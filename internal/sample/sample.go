package sample

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/gopxl/beep"
)

// Buffer holds a fully decoded one-shot in memory so triggering it later
// never touches the disk. The frame slice is shared between every Playback
// created from the buffer and is never written after Load returns.
type Buffer struct {
	path   string
	rate   int
	chans  int
	frames [][2]float64
}

// Load decodes a WAV file into a Buffer. Mono files are duplicated onto both
// channels; files with more than two channels keep the first two.
func Load(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels <= 0 || pcm.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("bad format in %s", path)
	}

	bitDepth := pcm.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(d.BitDepth)
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int(1) << (bitDepth - 1))

	chans := pcm.Format.NumChannels
	n := len(pcm.Data) / chans
	frames := make([][2]float64, n)
	for i := 0; i < n; i++ {
		left := float64(pcm.Data[i*chans]) / scale
		right := left
		if chans > 1 {
			right = float64(pcm.Data[i*chans+1]) / scale
		}
		frames[i] = [2]float64{left, right}
	}

	return &Buffer{
		path:   path,
		rate:   pcm.Format.SampleRate,
		chans:  chans,
		frames: frames,
	}, nil
}

// Name derives a display name from a sample path: base filename, extension
// stripped, underscores read as spaces.
func Name(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(base, "_", " ")
}

func (b *Buffer) Path() string { return b.path }

func (b *Buffer) Channels() int { return b.chans }

func (b *Buffer) SampleRate() beep.SampleRate { return beep.SampleRate(b.rate) }

// Len returns the number of frames in the buffer.
func (b *Buffer) Len() int { return len(b.frames) }

func (b *Buffer) Duration() time.Duration {
	if b.rate == 0 {
		return 0
	}
	return time.Duration(len(b.frames)) * time.Second / time.Duration(b.rate)
}

// Play returns a fresh playback view over the shared frames. Velocity maps
// linearly onto gain, 127 being unity.
func (b *Buffer) Play(velocity int) *Playback {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 127 {
		velocity = 127
	}
	return &Playback{
		buf:  b,
		gain: float64(velocity) / 127.0,
	}
}

// Playback is one pass over a Buffer with its own cursor and gain. It
// implements beep.Streamer and reports exhaustion once the shared frames
// run out.
type Playback struct {
	buf  *Buffer
	pos  int
	gain float64
}

func (p *Playback) SampleRate() beep.SampleRate { return p.buf.SampleRate() }

// Gain is the amplification factor derived from the trigger velocity.
func (p *Playback) Gain() float64 { return p.gain }

func (p *Playback) Stream(samples [][2]float64) (n int, ok bool) {
	if p.pos >= len(p.buf.frames) {
		return 0, false
	}
	for n = 0; n < len(samples) && p.pos < len(p.buf.frames); n++ {
		frame := p.buf.frames[p.pos]
		samples[n][0] = frame[0] * p.gain
		samples[n][1] = frame[1] * p.gain
		p.pos++
	}
	return n, true
}

func (p *Playback) Err() error { return nil }
