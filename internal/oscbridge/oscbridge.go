package oscbridge

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"

	"github.com/hypebeast/go-osc/osc"

	"github.com/jvn1228/rdum/internal/seq"
)

// Bridge mirrors sequencer state to an OSC peer (a visualizer, a norns
// script, anything UDP-reachable). It is a pure consumer: it never produces
// commands.
type Bridge struct {
	client *osc.Client
	ref    *seq.Ref
	last   seq.SeqState
}

// New parses a "host:port" target.
func New(addr string, ref *seq.Ref) (*Bridge, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("osc target: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("osc target port: %w", err)
	}
	return &Bridge{
		client: osc.NewClient(host, port),
		ref:    ref,
	}, nil
}

// Run forwards snapshots until ctx is cancelled. Send failures are logged
// and the bridge keeps going; UDP peers come and go.
func (b *Bridge) Run(ctx context.Context) {
	rx := b.ref.GetStateRx()
	for {
		select {
		case <-ctx.Done():
			return
		case upd := <-rx:
			if upd.Seq != nil {
				b.forward(*upd.Seq)
			}
		}
	}
}

func (b *Bridge) forward(st seq.SeqState) {
	if st.Tempo != b.last.Tempo || st.Playing != b.last.Playing || st.PatternID != b.last.PatternID {
		msg := osc.NewMessage("/rdum/state")
		msg.Append(int32(st.Tempo))
		msg.Append(boolToInt(st.Playing))
		msg.Append(int32(st.PatternID))
		if err := b.client.Send(msg); err != nil {
			log.Printf("OSC state send failed: %v", err)
		}
	}

	// A playhead advance past a programmed slot means that slot just fired.
	if st.Playing && len(st.Trks) == len(b.last.Trks) {
		for i, t := range st.Trks {
			prev := b.last.Trks[i]
			if t.Idx == prev.Idx || t.Len == 0 {
				continue
			}
			fired := (t.Idx - 1 + t.Len) % t.Len
			if fired < len(t.Slots) && t.Slots[fired] > 0 {
				msg := osc.NewMessage("/rdum/trigger")
				msg.Append(int32(i))
				msg.Append(int32(t.Slots[fired]))
				if err := b.client.Send(msg); err != nil {
					log.Printf("OSC trigger send failed: %v", err)
				}
			}
		}
	}

	b.last = st
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
