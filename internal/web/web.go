package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/jvn1228/rdum/internal/seq"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the text frame schema shared with the browser: a snake_case
// type plus a payload object whose fields follow the command argument names.
type Envelope struct {
	Type    string              `json:"type"`
	Payload jsoniter.RawMessage `json:"payload,omitempty"`
}

type wirePayload struct {
	BPM        int    `json:"bpm"`
	Division   int    `json:"division"`
	Swing      int    `json:"swing"`
	TrackID    int    `json:"track_id"`
	SlotID     int    `json:"slot_id"`
	Velocity   int    `json:"velocity"`
	NewLen     int    `json:"new_len"`
	ID         int    `json:"id"`
	N          int    `json:"n"`
	SamplePath string `json:"sample_path"`
	Filename   string `json:"filename"`
}

// ParseCommand maps an inbound envelope onto a sequencer command.
func ParseCommand(env Envelope) (seq.Command, error) {
	var p wirePayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return seq.Command{}, fmt.Errorf("bad payload for %s: %w", env.Type, err)
		}
	}
	switch env.Type {
	case "play_sequencer":
		return seq.PlaySequencer(), nil
	case "stop_sequencer":
		return seq.StopSequencer(), nil
	case "set_tempo":
		return seq.SetTempo(p.BPM), nil
	case "set_division":
		return seq.SetDivision(p.Division), nil
	case "set_swing":
		return seq.SetSwing(p.Swing), nil
	case "play_sound":
		return seq.PlaySound(p.TrackID, p.Velocity), nil
	case "set_slot_velocity":
		return seq.SetSlotVelocity(p.TrackID, p.SlotID, p.Velocity), nil
	case "set_track_length":
		return seq.SetTrackLength(p.TrackID, p.NewLen), nil
	case "add_pattern":
		return seq.AddPattern(), nil
	case "remove_pattern":
		return seq.RemovePattern(p.ID), nil
	case "select_pattern":
		return seq.SelectPattern(p.ID), nil
	case "set_pattern_length":
		return seq.SetPatternLength(p.N), nil
	case "add_track":
		return seq.AddTrack(p.SamplePath), nil
	case "set_track_sample":
		return seq.SetTrackSample(p.TrackID, p.SamplePath), nil
	case "save_pattern":
		return seq.SavePattern(), nil
	case "load_pattern":
		return seq.LoadPattern(p.Filename), nil
	case "list_patterns":
		return seq.ListPatterns(), nil
	case "list_samples":
		return seq.ListSamples(), nil
	}
	return seq.Command{}, fmt.Errorf("unknown message type %q", env.Type)
}

// encodeUpdate wraps a state update in the outbound envelope.
func encodeUpdate(upd seq.StateUpdate) ([]byte, error) {
	var env Envelope
	var err error
	switch {
	case upd.Seq != nil:
		env.Type = "state_update"
		env.Payload, err = json.Marshal(upd.Seq)
	case upd.Files != nil:
		env.Type = "file_state_update"
		env.Payload, err = json.Marshal(upd.Files)
	default:
		return nil, fmt.Errorf("empty state update")
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Controller serves the browser socket. Each accepted connection gets its
// own snapshot endpoint; a slow browser loses frames, never engine time.
type Controller struct {
	addr     string
	ref      *seq.Ref
	upgrader websocket.Upgrader
}

func NewController(addr string, ref *seq.Ref) *Controller {
	return &Controller{
		addr: addr,
		ref:  ref,
		upgrader: websocket.Upgrader{
			// The browser UI is served from anywhere on the LAN.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run serves until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", c.handleWS)
	srv := &http.Server{Addr: c.addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("websocket server listening on %s", c.addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (c *Controller) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	peer := conn.RemoteAddr().String()
	log.Printf("[%s] websocket connected", peer)
	defer func() {
		conn.Close()
		log.Printf("[%s] websocket closed", peer)
	}()

	greeting := []byte(`{"type":"connection","status":"established"}`)
	if err := conn.WriteMessage(websocket.TextMessage, greeting); err != nil {
		log.Printf("[%s] greeting failed: %v", peer, err)
		return
	}

	stateRx := c.ref.GetStateRx()
	done := make(chan struct{})
	defer close(done)

	// Writer: snapshots out. Reader below owns the connection lifetime;
	// write errors just end this goroutine and the read loop notices the
	// closed connection.
	go func() {
		for {
			select {
			case <-done:
				return
			case upd := <-stateRx:
				data, err := encodeUpdate(upd)
				if err != nil {
					log.Printf("[%s] encode failed: %v", peer, err)
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
		}
	}()

	cmdTx := c.ref.CommandTx()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[%s] read error: %v", peer, err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[%s] bad frame: %v", peer, err)
			continue
		}
		cmd, err := ParseCommand(env)
		if err != nil {
			log.Printf("[%s] %v", peer, err)
			continue
		}
		cmdTx <- cmd
	}
}
