// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// DefaultSocketPath is where the management daemon accepts front-end clients
const DefaultSocketPath = "/var/run/frr/mgmtd_fe.sock"

// NewSocketTransport creates a reconnecting transport over a stream socket.
//
// network is "unix" or "tcp"; frames carry the 8-byte marker/length header.
//
// Example:
//
//	tr, err := mgmtfe.NewSocketTransport("unix", mgmtfe.DefaultSocketPath,
//	    mgmtfe.ReconnectMaxDelay(5*time.Second))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := mgmtfe.NewClient(ctx, "vtysh", handler, mgmtfe.WithTransport(tr))
func NewSocketTransport(network, address string, opts ...func(*StreamTransport)) (*StreamTransport, error) {
	if network != "unix" && network != "tcp" {
		return nil, fmt.Errorf("unsupported network: %s (must be unix or tcp)", network)
	}
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("socket address cannot be empty")
	}

	var t *StreamTransport
	t = newStreamTransport(network+":"+address, func(ctx context.Context) (frameConn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		return &socketConn{conn: conn, r: bufio.NewReader(conn), maxLen: t.MaxFrameLen}, nil
	})
	for _, opt := range opts {
		opt(t)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

type socketConn struct {
	conn   net.Conn
	r      *bufio.Reader
	maxLen int

	closeOnce sync.Once
}

func (s *socketConn) ReadFrame() ([]byte, error) {
	return readFrame(s.r, s.maxLen)
}

func (s *socketConn) WriteFrame(frame []byte) error {
	return writeFrame(s.conn, frame)
}

func (s *socketConn) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.conn.Close() })
	return err
}

// Transport configuration options

// DialTimeout bounds a single connect attempt (default: 5s)
func DialTimeout(d time.Duration) func(*StreamTransport) {
	return func(t *StreamTransport) {
		t.DialTimeout = d
	}
}

// ReconnectMinDelay sets the first reconnect delay (default: 100ms)
func ReconnectMinDelay(d time.Duration) func(*StreamTransport) {
	return func(t *StreamTransport) {
		t.Backoff.MinDelay = d
	}
}

// ReconnectMaxDelay caps the reconnect delay (default: 10s)
func ReconnectMaxDelay(d time.Duration) func(*StreamTransport) {
	return func(t *StreamTransport) {
		t.Backoff.MaxDelay = d
	}
}

// ReconnectFactor sets the reconnect delay multiplier (default: 2)
func ReconnectFactor(f float64) func(*StreamTransport) {
	return func(t *StreamTransport) {
		t.Backoff.Factor = f
	}
}

// MaxQueuedWrites bounds the frames waiting for the writer (default: 100).
// Send fails with codes.ResourceExhausted when the queue is full.
func MaxQueuedWrites(n int) func(*StreamTransport) {
	return func(t *StreamTransport) {
		t.MaxQueuedWrites = n
	}
}

// MaxFrameLen bounds a single frame payload in both directions (default: 64 KiB)
func MaxFrameLen(n int) func(*StreamTransport) {
	return func(t *StreamTransport) {
		t.MaxFrameLen = n
	}
}

// TransportLogger sets the logger for connect/disconnect events
func TransportLogger(logger Logger) func(*StreamTransport) {
	return func(t *StreamTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}
