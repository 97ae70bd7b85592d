// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

// session is one conversation with the daemon
type session struct {
	clientID uint64

	// id is SessionIDNone until the creation reply arrives
	id  uint64
	ctx any

	established    bool
	locks          map[Datastore]lockState
	commitInFlight bool

	// short-circuited replies currently being delivered inline
	inlineDeliveries int
}

func newSession(clientID uint64, ctx any) *session {
	return &session{
		clientID: clientID,
		ctx:      ctx,
		locks:    make(map[Datastore]lockState),
	}
}

func (s *session) ref() SessionRef {
	return SessionRef{ClientID: s.clientID, SessionID: s.id, SessionCtx: s.ctx}
}

// CreateSession asks the daemon for a new session tagged with clientID
//
// A nil return only means the request was sent. The outcome arrives later
// through Handler.SessionNotify with Create set; on failure the event carries
// SessionIDNone. sessionCtx is handed back untouched in every result of the
// session.
//
// Example:
//
//	if err := client.CreateSession(1, myState); err != nil {
//	    log.Printf("create session: %v", err)
//	}
//
//	func (a *app) SessionNotify(c *mgmtfe.Client, ev mgmtfe.SessionEvent) {
//	    if ev.Create && ev.Success {
//	        _ = c.SendLockDS(ev.SessionID, 1, mgmtfe.DatastoreCandidate, true, false)
//	    }
//	}
func (c *Client) CreateSession(clientID uint64, sessionCtx any) error {
	const op = "create-session"

	if clientID == ClientIDNone {
		return opError(op, ErrInvalidArgument, "client id cannot be %d", ClientIDNone)
	}

	frame, err := c.codec.Encode(&Message{Kind: KindSessionReq, Create: true, ClientID: clientID})
	if err != nil {
		return encodeError(op, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return opError(op, ErrClientClosed, "client %s", c.name)
	}
	if _, ok := c.sessions[clientID]; ok {
		c.mu.Unlock()
		return opError(op, ErrInvalidArgument, "client id %d already in use", clientID)
	}
	if c.state != stateConnected {
		c.mu.Unlock()
		return opError(op, ErrNotConnected, "client %s", c.name)
	}
	s := newSession(clientID, sessionCtx)
	c.sessions[clientID] = s
	c.mu.Unlock()

	c.logger.Debug(c.ctx, "creating session", "client_id", clientID)

	if err := c.transport.Send(frame); err != nil {
		c.mu.Lock()
		if c.sessions[clientID] == s {
			delete(c.sessions, clientID)
		}
		c.mu.Unlock()
		return sendError(op, err)
	}
	return nil
}

// DestroySession tears down the session created with clientID
//
// Local state is released immediately: every outstanding request of the
// session is resolved (ErrorNotify with ErrorCodeSessionDestroyed, or a
// failed LockDSNotify/CommitConfigNotify) and the session stops being
// counted. Completion is reported through Handler.SessionNotify with Create
// unset once the daemon acknowledges the teardown. All callbacks run on the
// dispatch loop, never inside this call.
//
// Returns ErrNoSuchSession if clientID is unknown.
func (c *Client) DestroySession(clientID uint64) error {
	const op = "destroy-session"

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return opError(op, ErrClientClosed, "client %s", c.name)
	}
	s, ok := c.sessions[clientID]
	if !ok {
		c.mu.Unlock()
		return opError(op, ErrNoSuchSession, "client id %d", clientID)
	}
	delete(c.sessions, clientID)

	if !s.established {
		// the creation reply will arrive for an unknown client id and be torn down
		c.later(func() { c.notifySessionClosed(s, true) })
		c.mu.Unlock()
		c.logger.Debug(c.ctx, "destroyed session before establishment", "client_id", clientID)
		return nil
	}

	delete(c.byID, s.id)
	orphaned := c.takePending(s.id)
	if len(orphaned) > 0 {
		c.later(func() {
			for _, p := range orphaned {
				c.fail(p, ErrorCodeSessionDestroyed, "session destroyed")
			}
		})
	}
	c.closing[s.id] = s
	c.mu.Unlock()

	c.logger.Debug(c.ctx, "destroying session",
		"client_id", clientID,
		"session_id", s.id,
		"pending", len(orphaned))

	err := c.sendMessage(&Message{Kind: KindSessionReq, Create: false, SessionID: s.id})
	if err != nil {
		c.mu.Lock()
		if c.closing[s.id] == s {
			delete(c.closing, s.id)
			c.later(func() { c.notifySessionClosed(s, false) })
		}
		c.mu.Unlock()
		c.logger.Warn(c.ctx, "failed to send session teardown",
			"session_id", s.id,
			"error", err.Error())
	}
	return nil
}

func (c *Client) notifySessionClosed(s *session, success bool) {
	c.handler.SessionNotify(c, SessionEvent{
		ClientID:   s.clientID,
		Create:     false,
		Success:    success,
		SessionID:  s.id,
		SessionCtx: s.ctx,
	})
}

// handleSessionReply completes a creation or teardown
func (c *Client) handleSessionReply(m *Message) {
	if !m.Create {
		c.mu.Lock()
		s, ok := c.closing[m.SessionID]
		if ok {
			delete(c.closing, m.SessionID)
		}
		c.mu.Unlock()

		if !ok {
			c.logger.Debug(c.ctx, "dropping teardown reply for unknown session", "session_id", m.SessionID)
			return
		}
		c.notifySessionClosed(s, m.Success)
		return
	}

	c.mu.Lock()
	s, ok := c.sessions[m.ClientID]
	if !ok || s.established {
		_, live := c.byID[m.SessionID]
		c.mu.Unlock()
		c.logger.Info(c.ctx, "session reply for unknown client id",
			"client_id", m.ClientID,
			"session_id", m.SessionID,
			"success", m.Success)
		if m.Success && m.SessionID != SessionIDNone && !live {
			if err := c.sendMessage(&Message{Kind: KindSessionReq, Create: false, SessionID: m.SessionID}); err != nil {
				c.logger.Warn(c.ctx, "failed to tear down orphaned session",
					"session_id", m.SessionID,
					"error", err.Error())
			}
		}
		return
	}

	_, dup := c.byID[m.SessionID]
	if m.Success && m.SessionID != SessionIDNone && !dup {
		s.id = m.SessionID
		s.established = true
		c.byID[s.id] = s
		c.mu.Unlock()

		c.logger.Debug(c.ctx, "session established",
			"client_id", s.clientID,
			"session_id", s.id)
		c.handler.SessionNotify(c, SessionEvent{
			ClientID:   s.clientID,
			Create:     true,
			Success:    true,
			SessionID:  s.id,
			SessionCtx: s.ctx,
		})
		return
	}

	delete(c.sessions, m.ClientID)
	c.mu.Unlock()

	if dup {
		c.logger.Warn(c.ctx, "daemon assigned a session id already in use",
			"client_id", m.ClientID,
			"session_id", m.SessionID)
	}
	c.handler.SessionNotify(c, SessionEvent{
		ClientID:   s.clientID,
		Create:     true,
		Success:    false,
		SessionID:  SessionIDNone,
		SessionCtx: s.ctx,
	})
}
