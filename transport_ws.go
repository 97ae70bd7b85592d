// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// NewWebSocketTransport creates a reconnecting transport to a websocket
// endpoint that relays frames to the management daemon.
//
// Each websocket binary message carries exactly one frame payload, so the
// marker/length header used on sockets is not added. The read limit is set
// to MaxFrameLen.
//
// Example:
//
//	tr, err := mgmtfe.NewWebSocketTransport("ws://127.0.0.1:8080/mgmtd", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewWebSocketTransport(rawURL string, header http.Header, opts ...func(*StreamTransport)) (*StreamTransport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid websocket url scheme: %q (must be ws or wss)", u.Scheme)
	}

	var t *StreamTransport
	t = newStreamTransport(u.String(), func(ctx context.Context) (frameConn, error) {
		dialer := websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: t.DialTimeout,
		}
		conn, resp, err := dialer.DialContext(ctx, u.String(), header)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close() //nolint:errcheck // handshake response body is unused
		}
		if err != nil {
			return nil, err
		}
		conn.SetReadLimit(int64(t.MaxFrameLen))
		return &wsConn{conn: conn}, nil
	})
	for _, opt := range opts {
		opt(t)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

type wsConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

func (w *wsConn) ReadFrame() ([]byte, error) {
	for {
		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (w *wsConn) WriteFrame(frame []byte) error {
	return w.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (w *wsConn) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.conn.Close() })
	return err
}
