// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"github.com/tidwall/gjson"
)

// SessionRef identifies the session a result belongs to
type SessionRef struct {
	// ClientID is the caller-assigned id given to CreateSession
	ClientID uint64

	// SessionID is the daemon-assigned id (SessionIDNone if unknown)
	SessionID uint64

	// SessionCtx is the value given to CreateSession, returned untouched
	SessionCtx any
}

// SessionEvent reports the outcome of a session creation or teardown
type SessionEvent struct {
	ClientID uint64

	// Create is true for creation results, false for teardown
	Create bool

	Success bool

	// SessionID is SessionIDNone when creation failed
	SessionID  uint64
	SessionCtx any
}

// LockDSResult resolves a SendLockDS request
type LockDSResult struct {
	SessionRef
	ReqID uint64

	// Lock is true for lock requests, false for unlock requests
	Lock bool

	Success   bool
	Datastore Datastore

	// ErrMsg explains a failure (empty on success)
	ErrMsg string
}

// CommitResult resolves a SendCommitConfig request
type CommitResult struct {
	SessionRef
	ReqID        uint64
	Success      bool
	SrcDS        Datastore
	DstDS        Datastore
	ValidateOnly bool

	// Unlock echoes the request flag so the lock can be released in the same step
	Unlock bool

	ErrMsg string
}

// TreeData is one fragment of a get-data result
type TreeData struct {
	SessionRef
	ReqID     uint64
	Datastore Datastore
	Format    Format
	Data      []byte

	// PartialError is nonzero when this fragment failed on its own
	PartialError int

	// More is true on every fragment except the last
	More bool
}

// GetValue queries a JSON fragment with a gjson path.
//
// Returns an empty result for non-JSON formats.
//
// Example:
//
//	func (a *app) GetTreeNotify(c *mgmtfe.Client, data mgmtfe.TreeData) error {
//	    name := data.GetValue(`frr-interface:lib.interface.0.name`).String()
//	    fmt.Println(name)
//	    return nil
//	}
func (t TreeData) GetValue(path string) gjson.Result {
	return getJSONValue(t.Format, string(t.Data), path)
}

// EditResult resolves a SendEdit request
type EditResult struct {
	SessionRef
	ReqID uint64

	// XPath names the edited node as reported by the daemon
	XPath string
}

// RPCResult resolves a SendRPC request
type RPCResult struct {
	SessionRef
	ReqID  uint64
	Format Format
	Result string
}

// GetValue queries a JSON RPC output with a gjson path
func (r RPCResult) GetValue(path string) gjson.Result {
	return getJSONValue(r.Format, r.Result, path)
}

// Notification is an asynchronous notification from a backend daemon.
//
// SessionRef is zero when the notification names no live session.
type Notification struct {
	SessionRef
	Format Format
	Result string
}

// GetValue queries a JSON notification with a gjson path
func (n Notification) GetValue(path string) gjson.Result {
	return getJSONValue(n.Format, n.Result, path)
}

// ErrorResult resolves a request the daemon (or a connection loss) failed
type ErrorResult struct {
	SessionRef
	ReqID uint64

	// Code is a negative errno-style value
	Code    int
	Message string
}

func getJSONValue(format Format, data, path string) gjson.Result {
	if format != FormatJSON || data == "" {
		return gjson.Result{}
	}
	return gjson.Get(data, path)
}
