// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"fmt"
	"maps"
	"slices"
)

// opKind is the logical operation a pending request represents
type opKind int

const (
	opLockDS opKind = iota
	opCommit
	opGetData
	opEdit
	opRPC
)

func (k opKind) String() string {
	switch k {
	case opLockDS:
		return "lock-ds"
	case opCommit:
		return "commit"
	case opGetData:
		return "get-data"
	case opEdit:
		return "edit"
	case opRPC:
		return "rpc"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// replyKind is the message kind that resolves this operation
func (k opKind) replyKind() MsgKind {
	switch k {
	case opLockDS:
		return KindLockDSReply
	case opCommit:
		return KindCommitReply
	case opGetData:
		return KindTreeData
	case opEdit:
		return KindEditReply
	default:
		return KindRPCReply
	}
}

type pendingKey struct {
	sessionID uint64
	reqID     uint64
}

// pending is one outstanding request
type pending struct {
	key  pendingKey
	kind opKind
	sess *session

	// echoed back to the application
	ds           Datastore
	lock         bool
	src          Datastore
	dst          Datastore
	validateOnly bool
	unlock       bool
	format       Format

	// verdict is set for requests refused locally by a state machine; they
	// are resolved from the dispatch loop once they reach the head of the
	// session queue
	verdict string

	// inline is set while the short-circuit evaluator owns the request
	inline bool

	// replies that arrived while a request ahead was still unresolved
	held     []*Message
	heldDone bool

	fragments int
}

// addPending registers p; caller holds c.mu and has checked for duplicates
func (c *Client) addPending(p *pending) {
	c.pending[p.key] = p
	c.queues[p.key.sessionID] = append(c.queues[p.key.sessionID], p)
}

// removePending drops p; caller holds c.mu
func (c *Client) removePending(p *pending) {
	if c.pending[p.key] == p {
		delete(c.pending, p.key)
	}
	q := c.queues[p.key.sessionID]
	for i, e := range q {
		if e == p {
			q = append(q[:i:i], q[i+1:]...)
			break
		}
	}
	if len(q) == 0 {
		delete(c.queues, p.key.sessionID)
	} else {
		c.queues[p.key.sessionID] = q
	}
}

// takePending removes and returns every pending request of a session in
// send order; caller holds c.mu
func (c *Client) takePending(sessionID uint64) []*pending {
	q := c.queues[sessionID]
	delete(c.queues, sessionID)
	for _, p := range q {
		delete(c.pending, p.key)
	}
	return q
}

// blocked reports whether a request ahead of p in its session queue is
// still resolved locally, or a short-circuited reply of the session is being
// delivered; caller holds c.mu
func (c *Client) blocked(p *pending) bool {
	if p.sess.inlineDeliveries > 0 {
		return true
	}
	for _, e := range c.queues[p.key.sessionID] {
		if e == p {
			return false
		}
		if e.verdict != "" || e.inline {
			return true
		}
	}
	return false
}

// resolve applies reply m to p and returns its delivery; caller holds c.mu
func (c *Client) resolve(p *pending, m *Message) func() {
	if m.Kind != KindTreeData || !m.More {
		c.removePending(p)
	} else {
		p.fragments++
	}
	switch {
	case m.Kind == KindError:
		p.sess.settle(p, false, false)
	case p.kind == opLockDS:
		p.sess.settle(p, m.Success, false)
	case p.kind == opCommit:
		p.sess.settle(p, m.Success, m.Unlock)
	}
	return func() { c.deliver(p, m) }
}

// advance pops whatever became deliverable in a session queue: local
// verdicts at the head and replies held behind them. Caller holds c.mu.
func (c *Client) advance(sessionID uint64) []func() {
	var work []func()
	for {
		progressed := false
		for i, p := range c.queues[sessionID] {
			if p.inline || p.sess.inlineDeliveries > 0 {
				break
			}
			if p.verdict != "" {
				if i == 0 {
					c.removePending(p)
					work = append(work, func() { c.deliverVerdict(p) })
					progressed = true
				}
				break
			}
			if len(p.held) > 0 {
				held := p.held
				p.held = nil
				for _, m := range held {
					work = append(work, c.resolve(p, m))
				}
				progressed = true
				break
			}
		}
		if !progressed {
			return work
		}
	}
}

// advanceQueues runs advance over every session queue; caller holds c.mu
func (c *Client) advanceQueues() []func() {
	var work []func()
	for _, sid := range slices.Sorted(maps.Keys(c.queues)) {
		work = append(work, c.advance(sid)...)
	}
	return work
}

// handleReply resolves the pending request named by a reply or error
//
// A reply for a request queued behind one that is still resolved locally is
// held until that request has been delivered.
func (c *Client) handleReply(m *Message) {
	key := pendingKey{sessionID: m.SessionID, reqID: m.ReqID}

	c.mu.Lock()
	p, ok := c.pending[key]
	if !ok || p.verdict != "" || p.heldDone || p.inline != c.shortCircuited {
		c.mu.Unlock()
		c.logger.Debug(c.ctx, "dropping reply for unknown request",
			"kind", m.Kind.String(),
			"session_id", m.SessionID,
			"req_id", m.ReqID)
		return
	}
	if m.Kind != KindError && m.Kind != p.kind.replyKind() {
		c.mu.Unlock()
		c.logger.Warn(c.ctx, "dropping reply of wrong kind",
			"kind", m.Kind.String(),
			"expected", p.kind.replyKind().String(),
			"session_id", m.SessionID,
			"req_id", m.ReqID)
		return
	}

	terminal := m.Kind != KindTreeData || !m.More
	if !c.shortCircuited && (len(p.held) > 0 || c.blocked(p)) {
		p.held = append(p.held, m)
		p.heldDone = terminal
		c.mu.Unlock()
		c.logger.Debug(c.ctx, "holding reply behind unresolved request",
			"kind", m.Kind.String(),
			"session_id", m.SessionID,
			"req_id", m.ReqID)
		return
	}

	p.inline = false
	work := []func(){c.resolve(p, m)}
	if c.shortCircuited {
		p.sess.inlineDeliveries++
	} else if terminal {
		work = append(work, c.advance(key.sessionID)...)
	}
	c.mu.Unlock()

	for _, fn := range work {
		fn()
	}

	if c.shortCircuited {
		// whatever was held meanwhile is delivered by the dispatch loop
		c.mu.Lock()
		p.sess.inlineDeliveries--
		c.kick()
		c.mu.Unlock()
	}
}

// deliver invokes the callback matching the pending request
func (c *Client) deliver(p *pending, m *Message) {
	ref := p.sess.ref()
	var err error

	switch {
	case m.Kind == KindError:
		err = c.handler.ErrorNotify(c, ErrorResult{
			SessionRef: ref,
			ReqID:      p.key.reqID,
			Code:       m.ErrorCode,
			Message:    m.ErrMsg,
		})
	case p.kind == opLockDS:
		c.handler.LockDSNotify(c, LockDSResult{
			SessionRef: ref,
			ReqID:      p.key.reqID,
			Lock:       p.lock,
			Success:    m.Success,
			Datastore:  p.ds,
			ErrMsg:     m.ErrMsg,
		})
	case p.kind == opCommit:
		c.handler.CommitConfigNotify(c, CommitResult{
			SessionRef:   ref,
			ReqID:        p.key.reqID,
			Success:      m.Success,
			SrcDS:        p.src,
			DstDS:        p.dst,
			ValidateOnly: p.validateOnly,
			Unlock:       p.unlock,
			ErrMsg:       m.ErrMsg,
		})
	case p.kind == opGetData:
		err = c.handler.GetTreeNotify(c, TreeData{
			SessionRef:   ref,
			ReqID:        p.key.reqID,
			Datastore:    p.ds,
			Format:       m.Format,
			Data:         m.Data,
			PartialError: m.PartialError,
			More:         m.More,
		})
	case p.kind == opEdit:
		err = c.handler.EditNotify(c, EditResult{
			SessionRef: ref,
			ReqID:      p.key.reqID,
			XPath:      m.XPath,
		})
	case p.kind == opRPC:
		err = c.handler.RPCNotify(c, RPCResult{
			SessionRef: ref,
			ReqID:      p.key.reqID,
			Format:     m.Format,
			Result:     string(m.Data),
		})
	}

	if err != nil {
		c.logger.Warn(c.ctx, "result handler failed",
			"op", p.kind.String(),
			"session_id", p.key.sessionID,
			"req_id", p.key.reqID,
			"error", err.Error())
	}
}

// deliverVerdict resolves a request refused by a local state machine
func (c *Client) deliverVerdict(p *pending) {
	c.logger.Debug(c.ctx, "request refused locally",
		"op", p.kind.String(),
		"session_id", p.key.sessionID,
		"req_id", p.key.reqID,
		"reason", p.verdict)
	c.fail(p, 0, p.verdict)
}

// fail resolves p without a reply. Lock and commit requests report through
// their own callback; everything else through ErrorNotify with code.
func (c *Client) fail(p *pending, code int, reason string) {
	switch p.kind {
	case opLockDS:
		c.deliver(p, &Message{Kind: KindLockDSReply, Success: false, ErrMsg: reason})
	case opCommit:
		c.deliver(p, &Message{Kind: KindCommitReply, Success: false, ErrMsg: reason})
	default:
		c.deliver(p, &Message{Kind: KindError, ErrorCode: code, ErrMsg: reason})
	}
}
