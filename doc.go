// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package mgmtfe is a front-end client for the FRR management daemon (mgmtd).
//
// A front-end (a CLI, a RESTCONF or NETCONF server) opens sessions with the
// daemon and uses them to lock datastores, edit and read configuration and
// operational trees, commit transactions and invoke RPCs. Every request is
// correlated by (session id, request id) and resolved exactly once through
// the Handler supplied to NewClient. Asynchronous notifications are delivered
// as they arrive.
//
// # Quick Start
//
// Implement the callbacks you need and create a client:
//
//	type app struct {
//	    mgmtfe.NopHandler
//	}
//
//	func (a *app) ConnectNotify(c *mgmtfe.Client, connected bool) {
//	    if connected {
//	        _ = c.CreateSession(1, nil)
//	    }
//	}
//
//	func (a *app) SessionNotify(c *mgmtfe.Client, ev mgmtfe.SessionEvent) {
//	    if ev.Create && ev.Success {
//	        _ = c.SendGetData(ev.SessionID, 1, mgmtfe.DatastoreRunning, mgmtfe.FormatJSON,
//	            mgmtfe.GetDataFlagConfig, mgmtfe.DefaultsTrim, "/frr-interface:lib")
//	    }
//	}
//
//	func (a *app) GetTreeNotify(c *mgmtfe.Client, data mgmtfe.TreeData) error {
//	    fmt.Println(string(data.Data))
//	    return nil
//	}
//
//	client, err := mgmtfe.NewClient(ctx, "my-frontend", &app{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// # Transactions
//
// A configuration change follows lock, edit, commit:
//
//	client.SendLockDS(sid, 1, mgmtfe.DatastoreCandidate, true, false)
//	client.SendEdit(sid, 2, mgmtfe.DatastoreCandidate, mgmtfe.FormatJSON, 0,
//	    mgmtfe.EditModify, xpath, data)
//	client.SendCommitConfig(sid, 3, mgmtfe.DatastoreCandidate, mgmtfe.DatastoreRunning,
//	    false, false, true)
//
// Locking a datastore twice, unlocking one that is not held and a second
// commit while one is in flight are refused locally and reported through the
// matching callback with Success unset.
//
// # Ordering
//
// Results of one session are delivered in the order the requests were sent,
// local refusals included. A daemon reply that overtakes a refusal is held
// until the refusal has been delivered. Requests answered by a ShortCircuiter
// are delivered inline, before the send call returns; IsShortCircuited on the
// *Client passed to the callback tells the two paths apart.
//
// # Connection Loss
//
// When the transport drops, requests already released by DestroySession are
// delivered first. Then every outstanding request is resolved as failed, then
// every session is reported closed, then ConnectNotify(false) fires. The
// transport reconnects with backoff; sessions must be created again.
//
// # Error Handling
//
// Operations return nil when the request was accepted for sending. Local
// failures are *OpError values wrapping ErrInvalidArgument, ErrNoSuchSession,
// ErrSizeExceeded or ErrSendFailed; use errors.Is or ResultOf:
//
//	if err := client.SendLockDS(sid, 1, ds, true, false); err != nil {
//	    switch mgmtfe.ResultOf(err) {
//	    case mgmtfe.ResultNoSuchSession:
//	        // session was torn down
//	    case mgmtfe.ResultSendFailure:
//	        // connection is down
//	    }
//	}
//
// # Thread Safety
//
// All Client methods are safe for concurrent use. Callbacks run on a single
// dispatch goroutine, except short-circuited results which run on the
// caller's goroutine.
package mgmtfe
