package rpc

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jvn1228/rdum/internal/seq"
)

// maxFrame bounds a single length-delimited message.
const maxFrame = 1 << 20

// replyTimeout is how long a request waits for a snapshot newer than the
// one seen when the command was forwarded. Snapshots arrive every pulse, so
// this only matters when the engine is wedged.
const replyTimeout = 250 * time.Millisecond

// Controller serves the request-reply binary channel: each request is a
// length-delimited CommandMessage, each reply a State snapshot taken after
// the command was dispatched.
type Controller struct {
	addr string
	ref  *seq.Ref

	mu      sync.Mutex
	last    seq.SeqState
	version uint64
	updated chan struct{}
}

func NewController(addr string, ref *seq.Ref) *Controller {
	return &Controller{
		addr:    addr,
		ref:     ref,
		updated: make(chan struct{}),
	}
}

// Run listens until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	return c.Serve(ctx, ln)
}

// Serve accepts on an existing listener until ctx is cancelled.
func (c *Controller) Serve(ctx context.Context, ln net.Listener) error {
	log.Printf("rpc server listening on %s", ln.Addr())

	go c.trackState(ctx)
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("rpc accept: %w", err)
			}
		}
		go c.serveConn(ctx, conn)
	}
}

// trackState keeps the freshest sequencer snapshot for replies.
func (c *Controller) trackState(ctx context.Context) {
	rx := c.ref.GetStateRx()
	for {
		select {
		case <-ctx.Done():
			return
		case upd := <-rx:
			if upd.Seq == nil {
				continue
			}
			c.mu.Lock()
			c.last = *upd.Seq
			c.version++
			close(c.updated)
			c.updated = make(chan struct{})
			c.mu.Unlock()
		}
	}
}

// awaitUpdate returns the latest snapshot once its version exceeds after,
// or whatever is current when the timeout passes.
func (c *Controller) awaitUpdate(after uint64, timeout time.Duration) seq.SeqState {
	deadline := time.Now().Add(timeout)
	for {
		c.mu.Lock()
		version, updated, last := c.version, c.updated, c.last
		c.mu.Unlock()
		if version > after || !time.Now().Before(deadline) {
			return last
		}
		select {
		case <-updated:
		case <-time.After(time.Until(deadline)):
		}
	}
}

func (c *Controller) serveConn(ctx context.Context, conn net.Conn) {
	peer := conn.RemoteAddr().String()
	log.Printf("[%s] rpc connected", peer)
	defer func() {
		conn.Close()
		log.Printf("[%s] rpc closed", peer)
	}()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	cmdTx := c.ref.CommandTx()
	r := bufio.NewReader(conn)
	for {
		size, err := binary.ReadUvarint(r)
		if err != nil {
			if err != io.EOF {
				log.Printf("[%s] rpc read: %v", peer, err)
			}
			return
		}
		if size > maxFrame {
			log.Printf("[%s] rpc frame too large: %d", peer, size)
			return
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			log.Printf("[%s] rpc read: %v", peer, err)
			return
		}

		cmd, err := DecodeCommand(payload)
		if err != nil {
			log.Printf("[%s] rpc decode: %v", peer, err)
			return
		}

		c.mu.Lock()
		seen := c.version
		c.mu.Unlock()

		cmdTx <- cmd

		// Two generations: one snapshot may already have been in flight
		// when the command was forwarded, the next is post-dispatch.
		state := c.awaitUpdate(seen+1, replyTimeout)
		body := EncodeState(state)
		frame := protowire.AppendVarint(nil, uint64(len(body)))
		frame = append(frame, body...)
		if _, err := conn.Write(frame); err != nil {
			log.Printf("[%s] rpc write: %v", peer, err)
			return
		}
	}
}
