// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Default client configuration values
const (
	DefaultPrettyPrintLogs = true
)

// connState tracks the transport as seen by the client
type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

type eventKind int

const (
	eventConnected eventKind = iota
	eventDisconnected
	eventFrame
)

// event is one transport notification queued for the dispatch loop
type event struct {
	kind  eventKind
	frame []byte
	err   error
}

// Client is a front-end client of the management daemon.
//
// A Client owns one transport connection, the sessions opened over it and
// every outstanding request. Results are delivered to the Handler given to
// NewClient from a single dispatch goroutine, in per-session request order.
//
// All methods are safe for concurrent use. Callbacks are never invoked while
// internal locks are held, so handlers may call back into the client.
//
// A callback delivering a short-circuited reply receives a view of the
// client rather than the pointer returned by NewClient. The view shares all
// state; only IsShortCircuited differs.
type Client struct {
	*clientCore

	// set on the view handed to callbacks of a short-circuited reply
	shortCircuited bool
}

// clientCore is the state shared by a Client and its short-circuit views
type clientCore struct {
	name     string
	handler  Handler
	userData any

	transport    Transport
	codec        *Codec
	shortCircuit ShortCircuiter

	// Protocol limits
	MaxMsgLen  int
	MaxMsgProc int

	// Logging configuration
	logger            Logger
	prettyPrintLogs   bool
	redactionPatterns []redactionPattern
	debug             atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	events chan event
	wake   chan struct{}
	done   chan struct{}

	// mu guards everything below
	mu sync.Mutex

	state  connState
	closed bool

	// sessions by caller-assigned client id (placeholders included)
	sessions map[uint64]*session

	// established sessions by daemon-assigned session id
	byID map[uint64]*session

	// destroyed sessions waiting for the teardown reply, by session id
	closing map[uint64]*session

	pending map[pendingKey]*pending

	// outstanding requests per session id, in send order
	queues map[uint64][]*pending

	// work queued for the dispatch loop
	deferred []func()
}

// NewClient creates a front-end client and starts connecting in the background
//
// The call returns immediately. The connection outcome is reported through
// Handler.ConnectNotify; on every (re)connect the client first registers
// itself with the daemon under name. The client stops when ctx is done or
// Close is called.
//
// Without WithTransport the client connects to DefaultSocketPath.
//
// Example:
//
//	client, err := mgmtfe.NewClient(ctx, "vtysh", &app{},
//	    mgmtfe.WithLogger(mgmtfe.NewDefaultLogger(mgmtfe.LogLevelInfo)),
//	)
//	if err != nil {
//	    log.Fatal(err)  // Configuration error
//	}
//	defer client.Close()
//
// Returns a running Client or an error if configuration validation fails.
func NewClient(ctx context.Context, name string, handler Handler, opts ...func(*Client)) (*Client, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("client name cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	client := &Client{clientCore: &clientCore{
		name:              name,
		handler:           handler,
		MaxMsgLen:         DefaultMaxMsgLen,
		MaxMsgProc:        DefaultMaxMsgProc,
		logger:            &NoOpLogger{},
		prettyPrintLogs:   DefaultPrettyPrintLogs,
		redactionPatterns: defaultRedactionPatterns,
		sessions:          make(map[uint64]*session),
		byID:              make(map[uint64]*session),
		closing:           make(map[uint64]*session),
		pending:           make(map[pendingKey]*pending),
		queues:            make(map[uint64][]*pending),
	}}

	for _, opt := range opts {
		opt(client)
	}

	if err := client.validateConfig(); err != nil {
		return nil, err
	}

	if client.transport == nil {
		tr, err := NewSocketTransport("unix", DefaultSocketPath, TransportLogger(client.logger))
		if err != nil {
			return nil, err
		}
		client.transport = tr
	}

	client.codec = NewCodec(client.MaxMsgLen)
	client.ctx, client.cancel = context.WithCancel(ctx)
	client.events = make(chan event, client.MaxMsgProc)
	client.wake = make(chan struct{}, 1)
	client.done = make(chan struct{})
	client.state = stateConnecting

	go client.run()

	err := client.transport.Start(client.ctx, TransportHandlers{
		Connected:    func() { client.post(event{kind: eventConnected}) },
		Disconnected: func(err error) { client.post(event{kind: eventDisconnected, err: err}) },
		Frame:        func(frame []byte) { client.post(event{kind: eventFrame, frame: frame}) },
	})
	if err != nil {
		client.cancel()
		<-client.done
		return nil, fmt.Errorf("failed to start transport: %w", err)
	}

	client.logger.Info(client.ctx, "front-end client created", "name", name)

	return client, nil
}

// validateConfig validates client configuration before starting
func (c *Client) validateConfig() error {
	if c.MaxMsgLen <= FrameHeaderLen {
		return fmt.Errorf("max message length must be greater than %d, got: %d", FrameHeaderLen, c.MaxMsgLen)
	}
	if c.MaxMsgProc <= 0 {
		return fmt.Errorf("max messages per turn must be positive, got: %d", c.MaxMsgProc)
	}
	return nil
}

// Close stops the client, closes the transport and releases every session
// and pending request without invoking any callback.
//
// Close is terminal. Subsequent operations fail with ErrClientClosed.
// Calling Close more than once is a no-op. Close must not be called from a
// Handler method since it waits for the dispatch loop to exit.
//
// Example:
//
//	client, err := mgmtfe.NewClient(ctx, "vtysh", handler)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = stateDisconnected
	c.mu.Unlock()

	c.cancel()
	err := c.transport.Close()
	<-c.done

	c.mu.Lock()
	clear(c.sessions)
	clear(c.byID)
	clear(c.closing)
	clear(c.pending)
	clear(c.queues)
	c.deferred = nil
	c.mu.Unlock()

	c.logger.Info(context.Background(), "front-end client closed", "name", c.name)

	return err
}

// Name returns the client name registered with the daemon
func (c *Client) Name() string {
	return c.name
}

// UserData returns the value given to WithUserData
func (c *Client) UserData() any {
	return c.userData
}

// SessionCount returns the number of established sessions
//
// Sessions waiting for their creation reply are not counted.
func (c *Client) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}

// Connected reports whether the transport is currently connected
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateConnected
}

// IsShortCircuited reports whether the reply being delivered to the current
// callback was produced by the short-circuit evaluator rather than the daemon.
//
// Only meaningful on the *Client passed to a Handler method.
func (c *Client) IsShortCircuited() bool {
	return c.shortCircuited
}

// post queues a transport event for the dispatch loop
func (c *Client) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

// later queues fn to run on the dispatch loop; caller holds c.mu
func (c *Client) later(fn func()) {
	c.deferred = append(c.deferred, fn)
	c.kick()
}

func (c *Client) kick() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// run is the dispatch loop. At most MaxMsgProc transport events are handled
// per turn before deferred work is delivered. Local verdicts reaching the
// head of a session queue are delivered as soon as the request ahead of
// them resolves.
func (c *Client) run() {
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.events:
			c.handleEvent(ev)
			c.drainEvents(c.MaxMsgProc - 1)
		case <-c.wake:
		}
		c.runDeferred()
	}
}

func (c *Client) drainEvents(max int) {
	for i := 0; i < max; i++ {
		select {
		case ev := <-c.events:
			c.handleEvent(ev)
		default:
			return
		}
	}
}

// runDeferred delivers queued work until nothing is left
func (c *Client) runDeferred() {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		work := c.deferred
		c.deferred = nil
		work = append(work, c.advanceQueues()...)
		c.mu.Unlock()

		if len(work) == 0 {
			return
		}
		for _, fn := range work {
			fn()
		}
	}
}

func (c *Client) handleEvent(ev event) {
	switch ev.kind {
	case eventConnected:
		c.handleConnected()
	case eventDisconnected:
		c.handleDisconnected(ev.err)
	case eventFrame:
		m, err := c.codec.Decode(ev.frame)
		if err != nil {
			c.logger.Warn(c.ctx, "dropping undecodable message",
				"length", len(ev.frame),
				"error", err.Error())
			return
		}
		c.trace("received message", m)
		c.handleMessage(m)
	}
}

// handleConnected registers the client and reports the connection
func (c *Client) handleConnected() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = stateConnected
	c.mu.Unlock()

	reg := &Message{Kind: KindRegisterReq, ClientName: c.name}
	if err := c.sendMessage(reg); err != nil {
		c.logger.Error(c.ctx, "failed to register client",
			"name", c.name,
			"error", err.Error())
	}

	c.logger.Info(c.ctx, "connected to management daemon", "name", c.name)
	c.handler.ConnectNotify(c, true)
}

// handleDisconnected sweeps every pending request, then every session, then
// reports the disconnect. Each is resolved exactly once. Work deferred by
// earlier events (destroyed sessions, local verdicts) is delivered first.
func (c *Client) handleDisconnected(cause error) {
	c.runDeferred()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = stateConnecting
	late := c.deferred
	c.deferred = nil

	var swept []*pending
	for _, sid := range slices.Sorted(maps.Keys(c.queues)) {
		swept = append(swept, c.queues[sid]...)
	}
	clear(c.pending)
	clear(c.queues)

	var lost []*session
	for _, cid := range slices.Sorted(maps.Keys(c.sessions)) {
		lost = append(lost, c.sessions[cid])
	}
	for _, sid := range slices.Sorted(maps.Keys(c.closing)) {
		lost = append(lost, c.closing[sid])
	}
	clear(c.sessions)
	clear(c.byID)
	clear(c.closing)
	c.mu.Unlock()

	reason := "connection lost"
	if cause != nil {
		reason = fmt.Sprintf("connection lost: %v", cause)
	}
	c.logger.Warn(c.ctx, "disconnected from management daemon",
		"name", c.name,
		"pending", len(swept),
		"sessions", len(lost),
		"code", status.Code(cause).String(),
		"reason", reason)

	for _, fn := range late {
		fn()
	}
	for _, p := range swept {
		c.fail(p, ErrorCodeDisconnected, reason)
	}
	for _, s := range lost {
		c.handler.SessionNotify(c, SessionEvent{
			ClientID:   s.clientID,
			Create:     false,
			Success:    false,
			SessionID:  s.id,
			SessionCtx: s.ctx,
		})
	}
	c.handler.ConnectNotify(c, false)
}

// handleMessage routes one inbound (or short-circuited) message
func (c *Client) handleMessage(m *Message) {
	switch m.Kind {
	case KindSessionReply:
		c.handleSessionReply(m)
	case KindNotify:
		c.handleNotify(m)
	default:
		if m.Kind.IsReply() {
			c.handleReply(m)
			return
		}
		c.logger.Warn(c.ctx, "dropping unexpected message",
			"kind", m.Kind.String(),
			"session_id", m.SessionID)
	}
}

func (c *Client) handleNotify(m *Message) {
	n := Notification{Format: m.Format, Result: string(m.Data)}

	c.mu.Lock()
	if s, ok := c.byID[m.SessionID]; ok {
		n.SessionRef = s.ref()
	}
	c.mu.Unlock()

	if err := c.handler.AsyncNotification(c, n); err != nil {
		c.logger.Warn(c.ctx, "notification handler failed", "error", err.Error())
	}
}

// sendMessage encodes and sends m without creating a pending request
func (c *Client) sendMessage(m *Message) error {
	frame, err := c.codec.Encode(m)
	if err != nil {
		return err
	}
	c.trace("sending message", m)
	return c.transport.Send(frame)
}

// sendError wraps a transport send failure
func sendError(op string, err error) *OpError {
	sentinel := ErrSendFailed
	if status.Code(err) == codes.Unavailable {
		sentinel = ErrNotConnected
	}
	return &OpError{
		Operation:   op,
		Err:         sentinel,
		Message:     "transport refused message",
		InternalMsg: err.Error(),
	}
}

// encodeError wraps a local encoding failure
func encodeError(op string, err error) *OpError {
	sentinel := ErrInvalidArgument
	if errors.Is(err, ErrSizeExceeded) {
		sentinel = ErrSizeExceeded
	}
	return &OpError{
		Operation:   op,
		Err:         sentinel,
		Message:     "message could not be encoded",
		InternalMsg: err.Error(),
	}
}
