package seq

import "fmt"

// CommandType tags a Command. Every controller produces these; the
// dispatcher is the only consumer.
type CommandType int

const (
	CmdUnspecified CommandType = iota
	CmdPlaySequencer
	CmdStopSequencer
	CmdSetTempo
	CmdSetDivision
	CmdSetSwing
	CmdPlaySound
	CmdSetSlotVelocity
	CmdSetTrackLength
	CmdAddPattern
	CmdRemovePattern
	CmdSelectPattern
	CmdSetPatternLength
	CmdAddTrack
	CmdSetTrackSample
	CmdSavePattern
	CmdLoadPattern
	CmdListPatterns
	CmdListSamples
)

var commandNames = map[CommandType]string{
	CmdUnspecified:      "unspecified",
	CmdPlaySequencer:    "play_sequencer",
	CmdStopSequencer:    "stop_sequencer",
	CmdSetTempo:         "set_tempo",
	CmdSetDivision:      "set_division",
	CmdSetSwing:         "set_swing",
	CmdPlaySound:        "play_sound",
	CmdSetSlotVelocity:  "set_slot_velocity",
	CmdSetTrackLength:   "set_track_length",
	CmdAddPattern:       "add_pattern",
	CmdRemovePattern:    "remove_pattern",
	CmdSelectPattern:    "select_pattern",
	CmdSetPatternLength: "set_pattern_length",
	CmdAddTrack:         "add_track",
	CmdSetTrackSample:   "set_track_sample",
	CmdSavePattern:      "save_pattern",
	CmdLoadPattern:      "load_pattern",
	CmdListPatterns:     "list_patterns",
	CmdListSamples:      "list_samples",
}

func (t CommandType) String() string {
	if name, ok := commandNames[t]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(t))
}

// Command is the tagged value sent over the command channel. Only the
// fields relevant to the type are read.
type Command struct {
	Type     CommandType
	Track    int
	Slot     int
	Velocity int
	Tempo    int
	Division int
	Swing    int
	Pattern  int
	Length   int
	Path     string
}

func (c Command) String() string { return c.Type.String() }

func PlaySequencer() Command { return Command{Type: CmdPlaySequencer} }
func StopSequencer() Command { return Command{Type: CmdStopSequencer} }

func SetTempo(bpm int) Command { return Command{Type: CmdSetTempo, Tempo: bpm} }

func SetDivision(division int) Command { return Command{Type: CmdSetDivision, Division: division} }

func SetSwing(swing int) Command { return Command{Type: CmdSetSwing, Swing: swing} }

func PlaySound(track, velocity int) Command {
	return Command{Type: CmdPlaySound, Track: track, Velocity: velocity}
}

func SetSlotVelocity(track, slot, velocity int) Command {
	return Command{Type: CmdSetSlotVelocity, Track: track, Slot: slot, Velocity: velocity}
}

func SetTrackLength(track, length int) Command {
	return Command{Type: CmdSetTrackLength, Track: track, Length: length}
}

func AddPattern() Command { return Command{Type: CmdAddPattern} }

func RemovePattern(id int) Command { return Command{Type: CmdRemovePattern, Pattern: id} }

func SelectPattern(id int) Command { return Command{Type: CmdSelectPattern, Pattern: id} }

func SetPatternLength(length int) Command {
	return Command{Type: CmdSetPatternLength, Length: length}
}

func AddTrack(samplePath string) Command { return Command{Type: CmdAddTrack, Path: samplePath} }

func SetTrackSample(track int, samplePath string) Command {
	return Command{Type: CmdSetTrackSample, Track: track, Path: samplePath}
}

func SavePattern() Command { return Command{Type: CmdSavePattern} }

func LoadPattern(filename string) Command { return Command{Type: CmdLoadPattern, Path: filename} }

func ListPatterns() Command { return Command{Type: CmdListPatterns} }

func ListSamples() Command { return Command{Type: CmdListSamples} }
