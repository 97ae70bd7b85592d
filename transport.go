// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// Transport carries complete frames between the client and the management
// daemon. It owns connecting, reconnecting with backoff, framing and write
// buffering.
//
// Send must not block on the network. It returns a gRPC status error: codes
// listed in TransientErrors leave the connection usable, codes.Unavailable
// means the connection is gone (a Disconnected event follows).
//
// Events are delivered through the TransportHandlers given to Start, from a
// single goroutine, in order: Connected, zero or more Frame, Disconnected,
// then Connected again after a successful reconnect.
type Transport interface {
	// Start begins connecting; it returns immediately.
	Start(ctx context.Context, h TransportHandlers) error

	// Send queues one frame for writing.
	Send(frame []byte) error

	// Close stops reconnecting and releases the connection. No events are
	// delivered after Close returns.
	Close() error
}

// TransportHandlers receives transport events
type TransportHandlers struct {
	Connected    func()
	Disconnected func(err error)
	Frame        func(frame []byte)
}

// Frame header: 4-byte marker then 4-byte big-endian total length (header included)
const (
	FrameMarker    uint32 = 0x23232302
	FrameHeaderLen        = 8
)

// writeFrame writes payload with its header to w
func writeFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, FrameHeaderLen+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], FrameMarker)
	binary.BigEndian.PutUint32(buf[4:8], uint32(FrameHeaderLen+len(payload)))
	copy(buf[FrameHeaderLen:], payload)
	_, err := w.Write(buf)
	return err
}

// readFrame reads one framed payload from r, rejecting bad markers and
// frames whose payload exceeds maxLen.
func readFrame(r io.Reader, maxLen int) ([]byte, error) {
	var hdr [FrameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if marker := binary.BigEndian.Uint32(hdr[0:4]); marker != FrameMarker {
		return nil, fmt.Errorf("bad frame marker 0x%08x", marker)
	}
	total := int(binary.BigEndian.Uint32(hdr[4:8]))
	if total < FrameHeaderLen {
		return nil, fmt.Errorf("bad frame length %d", total)
	}
	if total-FrameHeaderLen > maxLen {
		return nil, fmt.Errorf("frame length %d exceeds maximum %d", total-FrameHeaderLen, maxLen)
	}
	payload := make([]byte, total-FrameHeaderLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
