// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

// Handler receives every result the client delivers to the application.
//
// Exactly one of LockDSNotify, CommitConfigNotify, EditNotify, RPCNotify or
// ErrorNotify fires once per request. GetTreeNotify fires once per fragment
// of a get-data result. AsyncNotification is not tied to any request.
//
// Methods run on the client's dispatch goroutine, or inline inside the send
// call when a request is short-circuited (see IsShortCircuited). They may call
// back into the client. Errors returned by the notify methods are logged.
//
// Embed NopHandler to implement only the methods you need:
//
//	type app struct {
//	    mgmtfe.NopHandler
//	}
//
//	func (a *app) SessionNotify(c *mgmtfe.Client, ev mgmtfe.SessionEvent) {
//	    if ev.Create && ev.Success {
//	        fmt.Println("session", ev.SessionID)
//	    }
//	}
type Handler interface {
	ConnectNotify(c *Client, connected bool)
	SessionNotify(c *Client, ev SessionEvent)
	LockDSNotify(c *Client, res LockDSResult)
	CommitConfigNotify(c *Client, res CommitResult)
	GetTreeNotify(c *Client, data TreeData) error
	EditNotify(c *Client, res EditResult) error
	RPCNotify(c *Client, res RPCResult) error
	AsyncNotification(c *Client, n Notification) error
	ErrorNotify(c *Client, res ErrorResult) error
}

// NopHandler ignores every callback
type NopHandler struct{}

// ConnectNotify does nothing
func (NopHandler) ConnectNotify(*Client, bool) {}

// SessionNotify does nothing
func (NopHandler) SessionNotify(*Client, SessionEvent) {}

// LockDSNotify does nothing
func (NopHandler) LockDSNotify(*Client, LockDSResult) {}

// CommitConfigNotify does nothing
func (NopHandler) CommitConfigNotify(*Client, CommitResult) {}

// GetTreeNotify does nothing
func (NopHandler) GetTreeNotify(*Client, TreeData) error { return nil }

// EditNotify does nothing
func (NopHandler) EditNotify(*Client, EditResult) error { return nil }

// RPCNotify does nothing
func (NopHandler) RPCNotify(*Client, RPCResult) error { return nil }

// AsyncNotification does nothing
func (NopHandler) AsyncNotification(*Client, Notification) error { return nil }

// ErrorNotify does nothing
func (NopHandler) ErrorNotify(*Client, ErrorResult) error { return nil }
