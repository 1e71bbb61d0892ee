package rpc

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jvn1228/rdum/internal/seq"
)

// Field numbers from rdum.proto. The messages are flat enough that encoding
// them straight with protowire keeps the channel free of generated code.
const (
	cmdFieldType     = 1
	cmdFieldTrack    = 2
	cmdFieldSlot     = 3
	cmdFieldVelocity = 4
	cmdFieldTempo    = 5
	cmdFieldDivision = 6
	cmdFieldSwing    = 7
	cmdFieldPattern  = 8
	cmdFieldLength   = 9
	cmdFieldPath     = 10
)

const (
	stateFieldTempo           = 1
	stateFieldDivision        = 2
	stateFieldDefaultLen      = 3
	stateFieldLatencyNs       = 4
	stateFieldPlaying         = 5
	stateFieldPatternID       = 6
	stateFieldPatternCount    = 7
	stateFieldPatternName     = 8
	stateFieldQueuedPatternID = 9
	stateFieldSwing           = 10
	stateFieldTrks            = 11
	stateFieldLastCmd         = 12
)

const (
	trackFieldName       = 1
	trackFieldIdx        = 2
	trackFieldLen        = 3
	trackFieldSamplePath = 4
	trackFieldSlots      = 5
)

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// EncodeCommand serializes a CommandMessage.
func EncodeCommand(cmd seq.Command) []byte {
	var b []byte
	b = appendVarintField(b, cmdFieldType, uint64(cmd.Type))
	b = appendVarintField(b, cmdFieldTrack, uint64(cmd.Track))
	b = appendVarintField(b, cmdFieldSlot, uint64(cmd.Slot))
	b = appendVarintField(b, cmdFieldVelocity, uint64(cmd.Velocity))
	b = appendVarintField(b, cmdFieldTempo, uint64(cmd.Tempo))
	b = appendVarintField(b, cmdFieldDivision, uint64(cmd.Division))
	b = appendVarintField(b, cmdFieldSwing, uint64(cmd.Swing))
	b = appendVarintField(b, cmdFieldPattern, uint64(cmd.Pattern))
	b = appendVarintField(b, cmdFieldLength, uint64(cmd.Length))
	b = appendStringField(b, cmdFieldPath, cmd.Path)
	return b
}

// DecodeCommand parses a CommandMessage. Unknown fields are skipped so a
// newer client does not break an older engine.
func DecodeCommand(data []byte) (seq.Command, error) {
	var cmd seq.Command
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return cmd, fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return cmd, fmt.Errorf("bad varint in field %d", num)
			}
			data = data[n:]
			switch num {
			case cmdFieldType:
				cmd.Type = seq.CommandType(v)
			case cmdFieldTrack:
				cmd.Track = int(v)
			case cmdFieldSlot:
				cmd.Slot = int(v)
			case cmdFieldVelocity:
				cmd.Velocity = int(v)
			case cmdFieldTempo:
				cmd.Tempo = int(v)
			case cmdFieldDivision:
				cmd.Division = int(v)
			case cmdFieldSwing:
				cmd.Swing = int(v)
			case cmdFieldPattern:
				cmd.Pattern = int(v)
			case cmdFieldLength:
				cmd.Length = int(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return cmd, fmt.Errorf("bad bytes in field %d", num)
			}
			data = data[n:]
			if num == cmdFieldPath {
				cmd.Path = string(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return cmd, fmt.Errorf("bad field %d", num)
			}
			data = data[n:]
		}
	}
	return cmd, nil
}

func encodeTrackState(ts seq.TrackState) []byte {
	var b []byte
	b = appendStringField(b, trackFieldName, ts.Name)
	b = appendVarintField(b, trackFieldIdx, uint64(ts.Idx))
	b = appendVarintField(b, trackFieldLen, uint64(ts.Len))
	b = appendStringField(b, trackFieldSamplePath, ts.SamplePath)
	if len(ts.Slots) > 0 {
		// Packed velocities.
		var packed []byte
		for _, v := range ts.Slots {
			packed = protowire.AppendVarint(packed, uint64(v))
		}
		b = protowire.AppendTag(b, trackFieldSlots, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

// EncodeState serializes a State snapshot.
func EncodeState(st seq.SeqState) []byte {
	var b []byte
	b = appendVarintField(b, stateFieldTempo, uint64(st.Tempo))
	b = appendVarintField(b, stateFieldDivision, uint64(st.Division))
	b = appendVarintField(b, stateFieldDefaultLen, uint64(st.DefaultLen))
	b = appendVarintField(b, stateFieldLatencyNs, uint64(st.Latency.Nanoseconds()))
	if st.Playing {
		b = appendVarintField(b, stateFieldPlaying, 1)
	}
	b = appendVarintField(b, stateFieldPatternID, uint64(st.PatternID))
	b = appendVarintField(b, stateFieldPatternCount, uint64(st.PatternCount))
	b = appendStringField(b, stateFieldPatternName, st.PatternName)
	b = appendVarintField(b, stateFieldQueuedPatternID, uint64(st.QueuedPatternID))
	b = appendVarintField(b, stateFieldSwing, uint64(st.Swing))
	for _, ts := range st.Trks {
		b = protowire.AppendTag(b, stateFieldTrks, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeTrackState(ts))
	}
	b = appendStringField(b, stateFieldLastCmd, st.LastCmd)
	return b
}

func decodeTrackState(data []byte) (seq.TrackState, error) {
	var ts seq.TrackState
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ts, fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ts, fmt.Errorf("bad varint in field %d", num)
			}
			data = data[n:]
			switch num {
			case trackFieldIdx:
				ts.Idx = int(v)
			case trackFieldLen:
				ts.Len = int(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return ts, fmt.Errorf("bad bytes in field %d", num)
			}
			data = data[n:]
			switch num {
			case trackFieldName:
				ts.Name = string(v)
			case trackFieldSamplePath:
				ts.SamplePath = string(v)
			case trackFieldSlots:
				for len(v) > 0 {
					s, n := protowire.ConsumeVarint(v)
					if n < 0 {
						return ts, fmt.Errorf("bad packed slot")
					}
					v = v[n:]
					ts.Slots = append(ts.Slots, int(s))
				}
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return ts, fmt.Errorf("bad field %d", num)
			}
			data = data[n:]
		}
	}
	return ts, nil
}

// DecodeState parses a State snapshot.
func DecodeState(data []byte) (seq.SeqState, error) {
	var st seq.SeqState
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return st, fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return st, fmt.Errorf("bad varint in field %d", num)
			}
			data = data[n:]
			switch num {
			case stateFieldTempo:
				st.Tempo = int(v)
			case stateFieldDivision:
				st.Division = int(v)
			case stateFieldDefaultLen:
				st.DefaultLen = int(v)
			case stateFieldLatencyNs:
				st.Latency = time.Duration(v)
			case stateFieldPlaying:
				st.Playing = v != 0
			case stateFieldPatternID:
				st.PatternID = int(v)
			case stateFieldPatternCount:
				st.PatternCount = int(v)
			case stateFieldQueuedPatternID:
				st.QueuedPatternID = int(v)
			case stateFieldSwing:
				st.Swing = int(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return st, fmt.Errorf("bad bytes in field %d", num)
			}
			data = data[n:]
			switch num {
			case stateFieldPatternName:
				st.PatternName = string(v)
			case stateFieldLastCmd:
				st.LastCmd = string(v)
			case stateFieldTrks:
				ts, err := decodeTrackState(v)
				if err != nil {
					return st, err
				}
				st.Trks = append(st.Trks, ts)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return st, fmt.Errorf("bad field %d", num)
			}
			data = data[n:]
		}
	}
	return st, nil
}
