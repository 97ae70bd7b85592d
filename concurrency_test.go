// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"sync"
	"testing"
)

// TestConcurrentRequests tests many goroutines issuing requests across
// sessions while replies arrive, with per-session order preserved
func TestConcurrentRequests(t *testing.T) {
	const (
		numSessions = 4
		perSession  = 25
	)

	c, tr, rec := newTestClient(t)
	for cid := uint64(1); cid <= numSessions; cid++ {
		establish(t, c, tr, rec, cid, cid*10)
	}

	var wg sync.WaitGroup
	errs := make(chan error, numSessions*perSession)
	for cid := uint64(1); cid <= numSessions; cid++ {
		wg.Add(1)
		go func(sid uint64) {
			defer wg.Done()
			for req := uint64(1); req <= perSession; req++ {
				if err := c.SendRPC(sid, req, FormatJSON, "/frr-ripd:clear-rip-route", ""); err != nil {
					errs <- err
				}
			}
		}(cid * 10)
	}

	// answer every request as it is sent
	for i := 0; i < numSessions*perSession; i++ {
		m := tr.next(t)
		tr.reply(t, &Message{Kind: KindRPCReply, SessionID: m.SessionID, ReqID: m.ReqID, Format: FormatJSON})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("SendRPC() error = %v", err)
	}

	last := make(map[uint64]uint64)
	for i := 0; i < numSessions*perSession; i++ {
		res := rec.expect(t, "rpc").value.(RPCResult)
		if res.ReqID != last[res.SessionID]+1 {
			t.Errorf("session %d: result %d after %d", res.SessionID, res.ReqID, last[res.SessionID])
		}
		last[res.SessionID] = res.ReqID
	}
	rec.expectNone(t)
}

// TestConcurrentSessionChurn tests creating and destroying sessions from
// many goroutines
func TestConcurrentSessionChurn(t *testing.T) {
	const workers = 8

	c, tr, rec := newTestClient(t)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(cid uint64) {
			defer wg.Done()
			if err := c.CreateSession(cid, nil); err != nil {
				t.Errorf("CreateSession(%d) error = %v", cid, err)
			}
		}(uint64(w + 1))
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		m := tr.next(t)
		tr.reply(t, &Message{Kind: KindSessionReply, Create: true, Success: true, ClientID: m.ClientID, SessionID: m.ClientID + 100})
	}
	for i := 0; i < workers; i++ {
		if ev := rec.expect(t, "session").value.(SessionEvent); !ev.Success {
			t.Errorf("session %d not established", ev.ClientID)
		}
	}
	if c.SessionCount() != workers {
		t.Fatalf("SessionCount() = %d, want %d", c.SessionCount(), workers)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(cid uint64) {
			defer wg.Done()
			if err := c.DestroySession(cid); err != nil {
				t.Errorf("DestroySession(%d) error = %v", cid, err)
			}
		}(uint64(w + 1))
	}
	wg.Wait()

	if c.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d, want 0", c.SessionCount())
	}
	for i := 0; i < workers; i++ {
		if m := tr.next(t); m.Kind != KindSessionReq || m.Create {
			t.Errorf("sent %s create=%v, want teardown", m.Kind, m.Create)
		}
	}
}
