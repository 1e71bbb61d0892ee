package seq

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"runtime"

	"github.com/jvn1228/rdum/internal/sample"
	"github.com/jvn1228/rdum/internal/storage"
)

// RunCommandLoop drains the command channel and applies each command to the
// Context under the lock, so commands land between ticks, never inside one.
// It yields when idle and, on cancellation, drains what is left and returns.
func RunCommandLoop(ctx context.Context, ref *Ref) {
	for {
		select {
		case <-ctx.Done():
			for dispatchOne(ref) {
			}
			return
		default:
		}
		if !dispatchOne(ref) {
			runtime.Gosched()
		}
	}
}

// dispatchOne applies at most one pending command, reporting whether there
// was one. The receive happens under the lock: the channel belongs to the
// Context and the lock is what keeps a command out of a running tick.
func dispatchOne(ref *Ref) bool {
	handled := false
	ref.With(func(c *Context) {
		select {
		case cmd := <-c.cmdCh:
			handled = true
			c.lastCmd = cmd
			if err := applyCommand(c, cmd); err != nil {
				log.Printf("command %s failed: %v", cmd, err)
			}
		default:
		}
	})
	return handled
}

// applyCommand maps one command onto one Context mutation. Failures leave
// the Context unchanged; the caller logs and drops the command.
func applyCommand(c *Context, cmd Command) error {
	switch cmd.Type {
	case CmdPlaySequencer:
		c.EnablePlay()
	case CmdStopSequencer:
		c.DisablePlay()
	case CmdSetTempo:
		return c.SetTempo(cmd.Tempo)
	case CmdSetDivision:
		return c.CurrentPattern().SetDivision(cmd.Division)
	case CmdSetSwing:
		return c.CurrentPattern().SetSwing(cmd.Swing)
	case CmdPlaySound:
		return c.PlaySoundNow(cmd.Track, cmd.Velocity)
	case CmdSetSlotVelocity:
		t, err := trackByID(c, cmd.Track)
		if err != nil {
			return err
		}
		return t.SetSlot(cmd.Slot, cmd.Velocity)
	case CmdSetTrackLength:
		t, err := trackByID(c, cmd.Track)
		if err != nil {
			return err
		}
		return t.SetLen(cmd.Length)
	case CmdAddPattern:
		c.AddPattern()
	case CmdRemovePattern:
		return c.RemovePattern(cmd.Pattern)
	case CmdSelectPattern:
		return c.SelectPattern(cmd.Pattern)
	case CmdSetPatternLength:
		return c.CurrentPattern().SetLen(cmd.Length)
	case CmdAddTrack:
		_, err := c.AddTrack(resolveSamplePath(c, cmd.Path))
		return err
	case CmdSetTrackSample:
		t, err := trackByID(c, cmd.Track)
		if err != nil {
			return err
		}
		return t.SetSample(resolveSamplePath(c, cmd.Path))
	case CmdSavePattern:
		return savePattern(c)
	case CmdLoadPattern:
		return loadPattern(c, cmd.Path)
	case CmdListPatterns:
		return refreshPatternList(c)
	case CmdListSamples:
		return refreshSampleList(c)
	default:
		return fmt.Errorf("unknown command type %d", int(cmd.Type))
	}
	return nil
}

func trackByID(c *Context, id int) (*Track, error) {
	pat := c.CurrentPattern()
	if id < 0 || id >= len(pat.Tracks) {
		return nil, fmt.Errorf("track %d out of range", id)
	}
	return pat.Tracks[id], nil
}

// resolveSamplePath treats bare listing entries ("kit/kick.wav") as relative
// to the samples directory; absolute paths pass through, as does every path
// when no samples directory is configured.
func resolveSamplePath(c *Context, path string) string {
	if filepath.IsAbs(path) || c.SamplesDir == "" {
		return path
	}
	return filepath.Join(c.SamplesDir, path)
}

func savePattern(c *Context) error {
	pat := c.CurrentPattern()
	pf := storage.PatternFile{Division: pat.Division}
	for _, t := range pat.Tracks {
		tf := storage.TrackFile{SamplePath: t.SamplePath}
		for _, s := range t.Slots {
			tf.Slots = append(tf.Slots, storage.SlotFile{Velocity: s.Velocity})
		}
		pf.Tracks = append(pf.Tracks, tf)
	}
	for _, g := range pat.ChokeGrps {
		ids := make([]int, len(g.TrackIDs))
		copy(ids, g.TrackIDs)
		pf.ChokeGrps = append(pf.ChokeGrps, storage.ChokeGrpFile{TrackIDs: ids})
	}

	fname, err := storage.SavePattern(c.PatternsDir, pat.Name, pf)
	if err != nil {
		return err
	}
	log.Printf("saved pattern %q as %s", pat.Name, fname)
	return refreshPatternList(c)
}

// loadPattern replaces the current pattern's tracks, choke groups, and
// division from a saved file, keeping the pattern's name. Tracks whose
// samples no longer decode are skipped rather than aborting the load.
func loadPattern(c *Context, fname string) error {
	pf, err := storage.LoadPattern(c.PatternsDir, fname)
	if err != nil {
		return err
	}

	pat := c.CurrentPattern()
	var tracks []*Track
	for _, tf := range pf.Tracks {
		buf, err := sample.Load(tf.SamplePath)
		if err != nil {
			log.Printf("skipping track %q: %v", tf.SamplePath, err)
			continue
		}
		length := len(tf.Slots)
		if length < 1 {
			length = 1
		}
		if length > MaxTrackLen {
			length = MaxTrackLen
		}
		var sink Sink
		if len(tracks) < len(pat.Tracks) {
			sink = pat.Tracks[len(tracks)].Sink
		} else if c.newSink != nil {
			sink = c.newSink()
		}
		t := NewTrack(tf.SamplePath, length, buf, sink)
		for i, s := range tf.Slots {
			if i >= t.Len {
				break
			}
			v := s.Velocity
			if v < 0 {
				v = 0
			}
			if v > 127 {
				v = 127
			}
			t.Slots[i].Velocity = v
		}
		tracks = append(tracks, t)
	}

	// Sinks past the new track count have no owner anymore.
	for i := len(tracks); i < len(pat.Tracks); i++ {
		if pat.Tracks[i].Sink != nil {
			pat.Tracks[i].Sink.Close()
		}
	}

	pat.Tracks = tracks
	pat.ChokeGrps = nil
	for _, g := range pf.ChokeGrps {
		ids := make([]int, len(g.TrackIDs))
		copy(ids, g.TrackIDs)
		pat.ChokeGrps = append(pat.ChokeGrps, ChokeGrp{TrackIDs: ids})
	}
	if ValidDivision(pf.Division) {
		pat.Division = pf.Division
	}

	// Re-sync downstream devices to the reprogrammed bar.
	if c.playing && c.Midi != nil {
		if err := c.Midi.Start(); err != nil {
			log.Printf("MIDI start after load failed: %v", err)
		}
	}
	return nil
}

func refreshPatternList(c *Context) error {
	files, err := storage.ListPatterns(c.PatternsDir)
	if err != nil {
		return err
	}
	c.PatternFilesList = files
	c.Broadcast(StateUpdate{Files: &FileState{Kind: PatternFiles, Files: files}})
	return nil
}

func refreshSampleList(c *Context) error {
	files, err := storage.ListSamples(c.SamplesDir)
	if err != nil {
		return err
	}
	c.SampleFilesList = files
	c.Broadcast(StateUpdate{Files: &FileState{Kind: SampleFiles, Files: files}})
	return nil
}
