// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Default transport configuration values
const (
	DefaultDialTimeout = 5 * time.Second
)

// frameConn is one established connection carrying whole frames
type frameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// StreamTransport is a reconnecting Transport over a stream connection.
//
// It dials with DialTimeout, retries failed dials with exponential backoff,
// writes through a bounded queue drained by a dedicated writer goroutine and
// delivers every inbound frame from a single reader goroutine.
//
// Use NewSocketTransport for unix/tcp sockets and NewWebSocketTransport for a
// daemon reachable through a websocket endpoint.
type StreamTransport struct {
	// Description used in logs (address or URL)
	Target string

	DialTimeout     time.Duration
	MaxQueuedWrites int
	MaxFrameLen     int
	Backoff         Backoff

	dial   func(ctx context.Context) (frameConn, error)
	logger Logger

	mu      sync.Mutex
	conn    frameConn
	writeCh chan []byte
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func newStreamTransport(target string, dial func(ctx context.Context) (frameConn, error)) *StreamTransport {
	return &StreamTransport{
		Target:          target,
		DialTimeout:     DefaultDialTimeout,
		MaxQueuedWrites: DefaultMaxQueuedWrites,
		MaxFrameLen:     DefaultMaxMsgLen,
		Backoff: Backoff{
			MinDelay: DefaultReconnectMinDelay,
			MaxDelay: DefaultReconnectMaxDelay,
			Factor:   DefaultReconnectFactor,
		},
		dial:   dial,
		logger: &NoOpLogger{},
	}
}

func (t *StreamTransport) validate() error {
	if t.DialTimeout <= 0 {
		return fmt.Errorf("dial timeout must be positive, got: %v", t.DialTimeout)
	}
	if t.MaxQueuedWrites <= 0 {
		return fmt.Errorf("max queued writes must be positive, got: %d", t.MaxQueuedWrites)
	}
	if t.MaxFrameLen <= 0 {
		return fmt.Errorf("max frame length must be positive, got: %d", t.MaxFrameLen)
	}
	return t.Backoff.Validate()
}

// Start launches the connect/read loop
func (t *StreamTransport) Start(ctx context.Context, h TransportHandlers) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.New("transport closed")
	}
	if t.started {
		return errors.New("transport already started")
	}
	t.started = true

	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	go t.run(ctx, h)
	return nil
}

// Send queues frame for the writer goroutine
func (t *StreamTransport) Send(frame []byte) error {
	if len(frame) > t.MaxFrameLen {
		return status.Errorf(codes.InvalidArgument, "frame of %d bytes exceeds maximum %d", len(frame), t.MaxFrameLen)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return status.Error(codes.Unavailable, "not connected")
	}
	select {
	case t.writeCh <- frame:
		return nil
	default:
		return status.Errorf(codes.ResourceExhausted, "write queue full (%d frames)", t.MaxQueuedWrites)
	}
}

// Close stops the loop and waits for it to exit
func (t *StreamTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	cancel := t.cancel
	done := t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close() //nolint:errcheck // reader exits on the resulting error
	}
	if done != nil {
		<-done
	}
	return nil
}

func (t *StreamTransport) run(ctx context.Context, h TransportHandlers) {
	defer close(t.done)

	for attempt := 0; ; {
		dialCtx, cancel := context.WithTimeout(ctx, t.DialTimeout)
		conn, err := t.dial(dialCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := t.Backoff.Delay(attempt)
			t.logger.Debug(ctx, "connect failed, retrying",
				"target", t.Target,
				"attempt", attempt+1,
				"delay_ms", delay.Milliseconds(),
				"error", err.Error())
			attempt++

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return
			}
		}
		attempt = 0

		if !t.attach(conn) {
			_ = conn.Close() //nolint:errcheck // closed while dialing
			return
		}
		t.logger.Info(ctx, "connected", "target", t.Target)
		if h.Connected != nil {
			h.Connected()
		}

		err = t.readLoop(conn, h)
		t.detach()

		if ctx.Err() != nil {
			return
		}
		t.logger.Warn(ctx, "connection lost", "target", t.Target, "error", err.Error())
		if h.Disconnected != nil {
			h.Disconnected(err)
		}
	}
}

// attach publishes conn and starts its writer; false if Close won the race
func (t *StreamTransport) attach(conn frameConn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	t.conn = conn
	t.writeCh = make(chan []byte, t.MaxQueuedWrites)
	go t.writeLoop(conn, t.writeCh)
	return true
}

func (t *StreamTransport) detach() {
	t.mu.Lock()
	defer t.mu.Unlock()

	_ = t.conn.Close() //nolint:errcheck // already broken or closing
	close(t.writeCh)
	t.conn = nil
	t.writeCh = nil
}

func (t *StreamTransport) readLoop(conn frameConn, h TransportHandlers) error {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			return err
		}
		if h.Frame != nil {
			h.Frame(frame)
		}
	}
}

// writeLoop drains queued frames; a write error closes the connection so
// the reader reports the disconnect.
func (t *StreamTransport) writeLoop(conn frameConn, frames <-chan []byte) {
	for frame := range frames {
		if err := conn.WriteFrame(frame); err != nil {
			_ = conn.Close() //nolint:errcheck // reader reports the failure
			for range frames {
			}
			return
		}
	}
}
