// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

// ShortCircuiter answers requests without a round trip to the daemon.
//
// ShortCircuit receives the encoded-equivalent request and returns the reply
// to deliver in its place, or false to send the request normally. It is only
// consulted for requests sent with scok set, and only while the session has
// no other outstanding request, so a synthesized reply never overtakes an
// earlier reply of the same session.
//
// The reply is delivered inline, before the send call returns, through the
// same correlation path as a daemon reply. The *Client passed to that
// callback reports IsShortCircuited; callbacks running concurrently on the
// dispatch goroutine do not. The reply must be of the kind that answers the
// request or KindError, otherwise the request is sent to the daemon.
// SessionID and ReqID of the reply are taken from the request and tree data
// is always final.
//
// ShortCircuit must not call back into the client.
type ShortCircuiter interface {
	ShortCircuit(req *Message) (*Message, bool)
}

// ShortCircuitFunc adapts a function to ShortCircuiter
//
// Example:
//
//	// grant candidate locks locally when mgmtd runs in-process
//	sc := mgmtfe.ShortCircuitFunc(func(req *mgmtfe.Message) (*mgmtfe.Message, bool) {
//	    if req.Kind != mgmtfe.KindLockDSReq || req.Datastore != mgmtfe.DatastoreCandidate {
//	        return nil, false
//	    }
//	    return &mgmtfe.Message{Kind: mgmtfe.KindLockDSReply, Lock: req.Lock, Success: true}, true
//	})
//	client, err := mgmtfe.NewClient(ctx, "vtysh", handler, mgmtfe.WithShortCircuit(sc))
type ShortCircuitFunc func(req *Message) (*Message, bool)

// ShortCircuit calls f(req)
func (f ShortCircuitFunc) ShortCircuit(req *Message) (*Message, bool) {
	return f(req)
}

// evaluateShortCircuit asks the evaluator for a reply to req. Only a reply
// of the kind that resolves req, or an error, is accepted.
func (c *Client) evaluateShortCircuit(req *Message, want MsgKind) (*Message, bool) {
	reply, ok := c.shortCircuit.ShortCircuit(req)
	if !ok || reply == nil {
		return nil, false
	}
	if reply.Kind != want && reply.Kind != KindError {
		c.logger.Warn(c.ctx, "short-circuit evaluator returned an unusable reply, sending request",
			"kind", reply.Kind.String(),
			"expected", want.String(),
			"session_id", req.SessionID,
			"req_id", req.ReqID)
		return nil, false
	}
	out := *reply
	out.SessionID = req.SessionID
	out.ReqID = req.ReqID
	out.More = false
	return &out, true
}

// dispatchShortCircuit delivers a synthesized reply inline through a view
// of the client that reports IsShortCircuited
func (c *Client) dispatchShortCircuit(reply *Message) {
	c.trace("short-circuited reply", reply)

	view := &Client{clientCore: c.clientCore, shortCircuited: true}
	view.handleMessage(reply)
}
