// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"fmt"
	"strings"
)

// Request input limits
const (
	// MaxXPathLength is the maximum length of a request xpath
	MaxXPathLength = 1024
)

// request is one correlated send
type request struct {
	op   string
	msg  *Message
	p    *pending
	scok bool

	// begin applies the session state machine; a non-empty verdict refuses
	// the request locally
	begin func(s *session) string
}

// issue validates the session and request id, registers the pending request
// and either short-circuits it or hands it to the transport.
//
// Nothing is registered when an error is returned.
func (c *Client) issue(r request) error {
	frame, err := c.codec.Encode(r.msg)
	if err != nil {
		return encodeError(r.op, err)
	}
	key := pendingKey{sessionID: r.msg.SessionID, reqID: r.msg.ReqID}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return opError(r.op, ErrClientClosed, "client %s", c.name)
	}
	s, ok := c.byID[key.sessionID]
	if !ok {
		c.mu.Unlock()
		return opError(r.op, ErrNoSuchSession, "session id %d", key.sessionID)
	}
	if _, dup := c.pending[key]; dup {
		c.mu.Unlock()
		return opError(r.op, ErrDuplicateRequest, "session id %d, request id %d", key.sessionID, key.reqID)
	}
	eligible := r.scok && c.shortCircuit != nil && len(c.queues[key.sessionID]) == 0
	if !eligible && c.state != stateConnected {
		c.mu.Unlock()
		return opError(r.op, ErrNotConnected, "client %s", c.name)
	}

	p := r.p
	p.key = key
	p.sess = s
	if r.begin != nil {
		if verdict := r.begin(s); verdict != "" {
			p.verdict = verdict
			c.addPending(p)
			c.kick()
			c.mu.Unlock()
			return nil
		}
	}
	p.inline = eligible
	c.addPending(p)
	c.mu.Unlock()

	if eligible {
		if reply, ok := c.evaluateShortCircuit(r.msg, p.kind.replyKind()); ok {
			c.dispatchShortCircuit(reply)
			return nil
		}

		c.mu.Lock()
		p.inline = false
		swept := c.pending[key] != p
		c.kick()
		c.mu.Unlock()
		if swept {
			return nil
		}
	}

	c.trace("sending request", r.msg)
	if err := c.transport.Send(frame); err != nil {
		c.mu.Lock()
		claimed := c.pending[key] != p
		if !claimed {
			c.removePending(p)
			s.settle(p, false, false)
			c.kick()
		}
		c.mu.Unlock()

		if claimed {
			// a disconnect sweep or session teardown already resolved it
			c.logger.Debug(c.ctx, "send failed for request resolved concurrently",
				"op", r.op,
				"session_id", key.sessionID,
				"req_id", key.reqID,
				"error", err.Error())
			return nil
		}
		return sendError(r.op, err)
	}
	return nil
}

// SendLockDS locks or unlocks a datastore for the session
//
// The result is delivered through Handler.LockDSNotify. Locking a datastore
// this session already holds (or is acquiring), or unlocking one it does not
// hold, fails through the callback with a descriptive message after the
// session's earlier requests resolve.
//
// With scok set the installed ShortCircuiter may answer the request before
// this call returns.
//
// Example:
//
//	err := client.SendLockDS(sid, 1, mgmtfe.DatastoreCandidate, true, false)
//	if err != nil {
//	    log.Printf("lock: %v", err)
//	}
func (c *Client) SendLockDS(sessionID, reqID uint64, ds Datastore, lock, scok bool) error {
	const op = "lock-ds"

	if !ds.Configurable() {
		return opError(op, ErrInvalidArgument, "datastore %s cannot be locked", ds)
	}

	return c.issue(request{
		op: op,
		msg: &Message{
			Kind:      KindLockDSReq,
			SessionID: sessionID,
			ReqID:     reqID,
			Datastore: ds,
			Lock:      lock,
		},
		p:    &pending{kind: opLockDS, ds: ds, lock: lock},
		scok: scok,
		begin: func(s *session) string {
			return s.beginLock(ds, lock)
		},
	})
}

// SendCommitConfig validates, applies or aborts a configuration transaction
//
//	validateOnly  abort  effect
//	true          false  validate src against dst, dst untouched
//	false         false  apply src into dst
//	false         true   restore dst from src
//	true          true   rejected with ErrInvalidArgument
//
// src and dst must be configurable datastores and must differ unless
// aborting. unlock is echoed in the result and releases the session's locks
// on src and dst once the result arrives. The result is delivered through
// Handler.CommitConfigNotify; a second commit on a session with one in flight
// fails through the callback.
//
// Example:
//
//	err := client.SendCommitConfig(sid, 4, mgmtfe.DatastoreCandidate,
//	    mgmtfe.DatastoreRunning, false, false, true)
func (c *Client) SendCommitConfig(sessionID, reqID uint64, src, dst Datastore, validateOnly, abort, unlock bool) error {
	const op = "commit-config"

	if validateOnly && abort {
		return opError(op, ErrInvalidArgument, "validate-only and abort are mutually exclusive")
	}
	if !src.Configurable() || !dst.Configurable() {
		return opError(op, ErrInvalidArgument, "invalid datastore pair %s -> %s", src, dst)
	}
	if src == dst && !abort {
		return opError(op, ErrInvalidArgument, "source and destination are both %s", src)
	}

	return c.issue(request{
		op: op,
		msg: &Message{
			Kind:         KindCommitReq,
			SessionID:    sessionID,
			ReqID:        reqID,
			SrcDS:        src,
			DstDS:        dst,
			ValidateOnly: validateOnly,
			Abort:        abort,
			Unlock:       unlock,
		},
		p: &pending{
			kind:         opCommit,
			src:          src,
			dst:          dst,
			validateOnly: validateOnly,
			unlock:       unlock,
		},
		begin: func(s *session) string {
			return s.beginCommit()
		},
	})
}

// SendGetData reads the tree at xpath from a datastore
//
// The result arrives through Handler.GetTreeNotify, possibly in several
// fragments: every fragment but the last has More set. The request stays
// outstanding until the last fragment or an ErrorNotify.
//
// Example:
//
//	err := client.SendGetData(sid, 5, mgmtfe.DatastoreOperational, mgmtfe.FormatJSON,
//	    mgmtfe.GetDataFlagState, mgmtfe.DefaultsTrim, "/frr-interface:lib")
func (c *Client) SendGetData(sessionID, reqID uint64, ds Datastore, format Format, flags GetDataFlags, defaults Defaults, xpath string) error {
	const op = "get-data"

	if !ds.Valid() {
		return opError(op, ErrInvalidArgument, "invalid datastore %s", ds)
	}
	if flags&^(GetDataFlagState|GetDataFlagConfig|GetDataFlagExact) != 0 {
		return opError(op, ErrInvalidArgument, "unknown get-data flags 0x%02x", uint8(flags))
	}
	if defaults > DefaultsAllAddTag {
		return opError(op, ErrInvalidArgument, "unknown defaults mode %d", uint8(defaults))
	}
	if err := validateXPath(xpath); err != nil {
		return opError(op, ErrInvalidArgument, "%v", err)
	}

	return c.issue(request{
		op: op,
		msg: &Message{
			Kind:      KindGetData,
			SessionID: sessionID,
			ReqID:     reqID,
			Datastore: ds,
			Format:    format,
			Flags:     uint8(flags),
			Defaults:  defaults,
			XPath:     xpath,
		},
		p: &pending{kind: opGetData, ds: ds, format: format},
	})
}

// SendEdit applies data at xpath in a datastore
//
// data is encoded in format and may be empty for delete and destroy. The
// result arrives through Handler.EditNotify naming the edited node.
//
// Example:
//
//	err := client.SendEdit(sid, 6, mgmtfe.DatastoreCandidate, mgmtfe.FormatJSON,
//	    mgmtfe.EditFlagImplicitLock|mgmtfe.EditFlagImplicitCommit, mgmtfe.EditModify,
//	    "/frr-interface:lib/interface[name='eth0']", `{"description":"uplink"}`)
func (c *Client) SendEdit(sessionID, reqID uint64, ds Datastore, format Format, flags EditFlags, operation EditOperation, xpath, data string) error {
	const op = "edit"

	if !ds.Configurable() {
		return opError(op, ErrInvalidArgument, "datastore %s cannot be edited", ds)
	}
	if flags&^(EditFlagImplicitLock|EditFlagImplicitCommit) != 0 {
		return opError(op, ErrInvalidArgument, "unknown edit flags 0x%02x", uint8(flags))
	}
	if err := ValidateEditOperation(operation); err != nil {
		return opError(op, ErrInvalidArgument, "%v", err)
	}
	if err := validateXPath(xpath); err != nil {
		return opError(op, ErrInvalidArgument, "%v", err)
	}

	return c.issue(request{
		op: op,
		msg: &Message{
			Kind:      KindEdit,
			SessionID: sessionID,
			ReqID:     reqID,
			Datastore: ds,
			Format:    format,
			Flags:     uint8(flags),
			Operation: operation,
			XPath:     xpath,
			Data:      []byte(data),
		},
		p: &pending{kind: opEdit, ds: ds, format: format},
	})
}

// SendRPC invokes the RPC or action at xpath
//
// data carries the input in format; the output arrives through
// Handler.RPCNotify in the same format.
func (c *Client) SendRPC(sessionID, reqID uint64, format Format, xpath, data string) error {
	const op = "rpc"

	if err := validateXPath(xpath); err != nil {
		return opError(op, ErrInvalidArgument, "%v", err)
	}

	return c.issue(request{
		op: op,
		msg: &Message{
			Kind:      KindRPC,
			SessionID: sessionID,
			ReqID:     reqID,
			Format:    format,
			XPath:     xpath,
			Data:      []byte(data),
		},
		p: &pending{kind: opRPC, format: format},
	})
}

// SendNotifySelect chooses which notifications the session receives
//
// selectors are xpath prefixes. With replace set they replace the current
// selection, otherwise they are added to it; replace with no selectors
// clears the selection. No result is delivered.
func (c *Client) SendNotifySelect(sessionID, reqID uint64, replace bool, selectors []string) error {
	const op = "notify-select"

	for i, sel := range selectors {
		if err := validateXPath(sel); err != nil {
			return opError(op, ErrInvalidArgument, "selector at index %d: %v", i, err)
		}
	}

	msg := &Message{
		Kind:      KindNotifySelect,
		SessionID: sessionID,
		ReqID:     reqID,
		Replace:   replace,
		Selectors: selectors,
	}
	frame, err := c.codec.Encode(msg)
	if err != nil {
		return encodeError(op, err)
	}

	c.mu.Lock()
	closed := c.closed
	_, ok := c.byID[sessionID]
	connected := c.state == stateConnected
	c.mu.Unlock()

	switch {
	case closed:
		return opError(op, ErrClientClosed, "client %s", c.name)
	case !ok:
		return opError(op, ErrNoSuchSession, "session id %d", sessionID)
	case !connected:
		return opError(op, ErrNotConnected, "client %s", c.name)
	}

	c.trace("sending request", msg)
	if err := c.transport.Send(frame); err != nil {
		return sendError(op, err)
	}
	return nil
}

// validateXPath checks a request xpath
//
// Checks:
//   - xpath is not empty and not longer than MaxXPathLength
//   - xpath is absolute ("/...")
//   - xpath contains no null bytes
func validateXPath(xpath string) error {
	if xpath == "" {
		return fmt.Errorf("xpath cannot be empty")
	}
	if len(xpath) > MaxXPathLength {
		return fmt.Errorf("xpath exceeds maximum length of %d characters: %s", MaxXPathLength, truncateXPath(xpath))
	}
	if xpath[0] != '/' {
		return fmt.Errorf("xpath must be absolute: %s", truncateXPath(xpath))
	}
	if i := strings.IndexByte(xpath, 0); i >= 0 {
		return fmt.Errorf("xpath contains null byte at position %d", i)
	}
	return nil
}

// truncateXPath shortens an xpath for error messages
func truncateXPath(xpath string) string {
	if len(xpath) <= 100 {
		return xpath
	}
	return xpath[:100] + "..."
}
