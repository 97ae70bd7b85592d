// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

// fakeTransport plays the daemon side of the connection in tests
type fakeTransport struct {
	codec *Codec

	mu      sync.Mutex
	h       TransportHandlers
	started bool
	closed  bool
	sendErr error

	sent chan *Message
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		codec: NewCodec(DefaultMaxMsgLen),
		sent:  make(chan *Message, 256),
	}
}

func (f *fakeTransport) Start(_ context.Context, h TransportHandlers) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return errors.New("already started")
	}
	f.started = true
	f.h = h
	return nil
}

func (f *fakeTransport) Send(frame []byte) error {
	f.mu.Lock()
	err := f.sendErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	m, err := f.codec.Decode(frame)
	if err != nil {
		return err
	}
	f.sent <- m
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) setSendErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

func (f *fakeTransport) handlers() TransportHandlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.h
}

// reply delivers m to the client as an inbound frame
func (f *fakeTransport) reply(t *testing.T, m *Message) {
	t.Helper()
	frame, err := f.codec.Encode(m)
	if err != nil {
		t.Fatalf("encode %s: %v", m.Kind, err)
	}
	f.handlers().Frame(frame)
}

func (f *fakeTransport) disconnect(err error) {
	f.handlers().Disconnected(err)
}

// next returns the next message the client sent
func (f *fakeTransport) next(t *testing.T) *Message {
	t.Helper()
	select {
	case m := <-f.sent:
		return m
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for a sent message")
		return nil
	}
}

func (f *fakeTransport) expectNoSend(t *testing.T) {
	t.Helper()
	select {
	case m := <-f.sent:
		t.Fatalf("unexpected message sent: %s session=%d req=%d", m.Kind, m.SessionID, m.ReqID)
	case <-time.After(50 * time.Millisecond):
	}
}

// recorded is one callback invocation
type recorded struct {
	name           string
	value          any
	shortCircuited bool
}

// recorder is a Handler that records every callback
type recorder struct {
	events chan recorded

	// optional hooks run inside the callback
	onSession func(c *Client, ev SessionEvent)
	onLock    func(c *Client, res LockDSResult)
}

func newRecorder() *recorder {
	return &recorder{events: make(chan recorded, 256)}
}

func (r *recorder) record(c *Client, name string, v any) {
	r.events <- recorded{name: name, value: v, shortCircuited: c.IsShortCircuited()}
}

func (r *recorder) ConnectNotify(c *Client, connected bool) {
	r.record(c, "connect", connected)
}

func (r *recorder) SessionNotify(c *Client, ev SessionEvent) {
	r.record(c, "session", ev)
	if r.onSession != nil {
		r.onSession(c, ev)
	}
}

func (r *recorder) LockDSNotify(c *Client, res LockDSResult) {
	r.record(c, "lock", res)
	if r.onLock != nil {
		r.onLock(c, res)
	}
}

func (r *recorder) CommitConfigNotify(c *Client, res CommitResult) {
	r.record(c, "commit", res)
}

func (r *recorder) GetTreeNotify(c *Client, data TreeData) error {
	r.record(c, "tree", data)
	return nil
}

func (r *recorder) EditNotify(c *Client, res EditResult) error {
	r.record(c, "edit", res)
	return nil
}

func (r *recorder) RPCNotify(c *Client, res RPCResult) error {
	r.record(c, "rpc", res)
	return nil
}

func (r *recorder) AsyncNotification(c *Client, n Notification) error {
	r.record(c, "notify", n)
	return nil
}

func (r *recorder) ErrorNotify(c *Client, res ErrorResult) error {
	r.record(c, "error", res)
	return nil
}

func (r *recorder) next(t *testing.T) recorded {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for a callback")
		return recorded{}
	}
}

// expect returns the next callback and checks its name
func (r *recorder) expect(t *testing.T, name string) recorded {
	t.Helper()
	ev := r.next(t)
	if ev.name != name {
		t.Fatalf("callback = %s (%+v), want %s", ev.name, ev.value, name)
	}
	return ev
}

func (r *recorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.events:
		t.Fatalf("unexpected callback %s: %+v", ev.name, ev.value)
	case <-time.After(50 * time.Millisecond):
	}
}

// newTestClient creates a client on a fake transport and completes the
// connect handshake
func newTestClient(t *testing.T, opts ...func(*Client)) (*Client, *fakeTransport, *recorder) {
	t.Helper()
	tr := newFakeTransport()
	rec := newRecorder()

	opts = append([]func(*Client){WithTransport(tr)}, opts...)
	c, err := NewClient(context.Background(), "test-client", rec, opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	tr.handlers().Connected()
	reg := tr.next(t)
	if reg.Kind != KindRegisterReq || reg.ClientName != "test-client" {
		t.Fatalf("first message = %s %q, want register-req test-client", reg.Kind, reg.ClientName)
	}
	if ev := rec.expect(t, "connect"); ev.value != true {
		t.Fatalf("ConnectNotify(%v), want true", ev.value)
	}
	return c, tr, rec
}

// establish creates a session and answers it with sessionID
func establish(t *testing.T, c *Client, tr *fakeTransport, rec *recorder, clientID, sessionID uint64) {
	t.Helper()
	if err := c.CreateSession(clientID, clientID*100); err != nil {
		t.Fatalf("CreateSession(%d) error = %v", clientID, err)
	}
	req := tr.next(t)
	if req.Kind != KindSessionReq || !req.Create || req.ClientID != clientID {
		t.Fatalf("sent %s create=%v client=%d, want session-req create for %d", req.Kind, req.Create, req.ClientID, clientID)
	}
	tr.reply(t, &Message{Kind: KindSessionReply, Create: true, Success: true, ClientID: clientID, SessionID: sessionID})
	ev := rec.expect(t, "session").value.(SessionEvent)
	if !ev.Create || !ev.Success || ev.SessionID != sessionID {
		t.Fatalf("SessionNotify = %+v, want established %d", ev, sessionID)
	}
}

// lockStateOf returns the lock state of ds on an established session
func lockStateOf(c *Client, sessionID uint64, ds Datastore) lockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byID[sessionID]
	if !ok {
		return lockUnlocked
	}
	return s.locks[ds]
}
