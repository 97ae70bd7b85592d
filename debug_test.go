// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

// TestRedactSensitiveData tests redaction of sensitive leaves in JSON and XML payloads
func TestRedactSensitiveData(t *testing.T) {
	c := &Client{clientCore: &clientCore{redactionPatterns: defaultRedactionPatterns}}

	tests := []struct {
		name        string
		input       string
		mustHide    string
		mustKeep    string
		description string
	}{
		{
			name:        "json password",
			input:       `{"password":"s3cr3t","name":"admin"}`,
			mustHide:    "s3cr3t",
			mustKeep:    `"name":"admin"`,
			description: "Plain password leaf",
		},
		{
			name:        "json module prefix",
			input:       `{"frr-ripd:authentication-key" : "k3y","frr-ripd:version":2}`,
			mustHide:    "k3y",
			mustKeep:    `"frr-ripd:version":2`,
			description: "Module-qualified leaf with spacing",
		},
		{
			name:        "json hyphenated",
			input:       `{"authentication-password":"p4ss"}`,
			mustHide:    "p4ss",
			mustKeep:    `"authentication-password":"[REDACTED]"`,
			description: "Hyphenated form of a sensitive leaf",
		},
		{
			name:        "json community",
			input:       `{"community":"public","location":"lab"}`,
			mustHide:    "public",
			mustKeep:    `"location":"lab"`,
			description: "SNMP community string",
		},
		{
			name:        "xml key-string",
			input:       `<key-chain><key-string>hunter2</key-string><name>kc1</name></key-chain>`,
			mustHide:    "hunter2",
			mustKeep:    "<name>kc1</name>",
			description: "XML element",
		},
		{
			name:        "xml with attribute and prefix",
			input:       `<ospf:secret xmlns:ospf="urn:frr">abc123</ospf:secret>`,
			mustHide:    "abc123",
			mustKeep:    "[REDACTED]</ospf:secret>",
			description: "Prefixed XML element with attributes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.redactSensitiveData(tt.input)
			if strings.Contains(got, tt.mustHide) {
				t.Errorf("%s: %q still contains %q", tt.description, got, tt.mustHide)
			}
			if !strings.Contains(got, tt.mustKeep) {
				t.Errorf("%s: %q lost %q", tt.description, got, tt.mustKeep)
			}
		})
	}
}

// TestPreparePayloadForLogging tests size limits and pretty printing
func TestPreparePayloadForLogging(t *testing.T) {
	c := &Client{clientCore: &clientCore{redactionPatterns: defaultRedactionPatterns, logger: &NoOpLogger{}, prettyPrintLogs: true}}

	got := c.preparePayloadForLogging(FormatJSON, `{"a":{"password":"x"}}`)
	if !strings.Contains(got, "\n") || !strings.Contains(got, "[REDACTED]") {
		t.Errorf("pretty-printed payload = %q", got)
	}

	c.prettyPrintLogs = false
	if got := c.preparePayloadForLogging(FormatJSON, `{"a":1}`); got != `{"a":1}` {
		t.Errorf("payload = %q, want unchanged", got)
	}

	// XML is never reformatted
	c.prettyPrintLogs = true
	if got := c.preparePayloadForLogging(FormatXML, `<a><b>1</b></a>`); got != `<a><b>1</b></a>` {
		t.Errorf("xml payload = %q, want unchanged", got)
	}

	huge := strings.Repeat("x", MaxJSONSizeForLogging+1)
	if got := c.preparePayloadForLogging(FormatJSON, huge); got != JSONTooLargeMessage {
		t.Errorf("oversized payload = %.40q, want %q", got, JSONTooLargeMessage)
	}

	many := strings.Repeat(`"token":"t",`, MaxSensitiveFields+1)
	if got := c.preparePayloadForLogging(FormatJSON, "{"+many+`"x":1}`); got != JSONTooManySensitiveMsg {
		t.Errorf("sensitive-heavy payload = %.40q, want %q", got, JSONTooManySensitiveMsg)
	}
}

// TestSetDebug tests toggling protocol tracing
func TestSetDebug(t *testing.T) {
	c, _, _ := newTestClient(t, WithDebug(true))
	if !c.Debugging() {
		t.Error("Debugging() = false with WithDebug(true)")
	}
	c.SetDebug(false)
	if c.Debugging() {
		t.Error("Debugging() = true after SetDebug(false)")
	}
}

// TestRegisterDebug tests the debug HTTP endpoint
func TestRegisterDebug(t *testing.T) {
	c, tr, rec := newTestClient(t)
	establish(t, c, tr, rec, 1, 10)

	if err := c.SendLockDS(10, 1, DatastoreCandidate, true, false); err != nil {
		t.Fatalf("SendLockDS() error = %v", err)
	}
	tr.next(t)
	if err := c.SendGetData(10, 2, DatastoreRunning, FormatJSON, GetDataFlagConfig, DefaultsTrim, "/a"); err != nil {
		t.Fatalf("SendGetData() error = %v", err)
	}
	tr.next(t)

	mux := http.NewServeMux()
	c.RegisterDebug(mux, "/debug/mgmtfe")

	t.Run("snapshot", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/mgmtfe", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		body := w.Body.String()
		checks := map[string]string{
			"name":                       "test-client",
			"state":                      "connected",
			"session_count":              "1",
			"sessions.0.client_id":       "1",
			"sessions.0.session_id":      "10",
			"sessions.0.outstanding":     "2",
			"sessions.0.locks.candidate": "lock-pending",
			"pending.#":                  "2",
			"pending.0.op":               "lock-ds",
			"pending.1.op":               "get-data",
			"pending.1.fragments":        "0",
		}
		for path, want := range checks {
			if got := gjson.Get(body, path).String(); got != want {
				t.Errorf("%s = %q, want %q (body %s)", path, got, want, body)
			}
		}
	})

	t.Run("toggle", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/debug/mgmtfe?debug=on", nil))
		if w.Code != http.StatusOK || !c.Debugging() {
			t.Errorf("POST debug=on: status %d debugging %v", w.Code, c.Debugging())
		}
		if !gjson.Get(w.Body.String(), "debug").Bool() {
			t.Errorf("snapshot debug = false after enabling")
		}

		w = httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/debug/mgmtfe?debug=0", nil))
		if w.Code != http.StatusOK || c.Debugging() {
			t.Errorf("POST debug=0: status %d debugging %v", w.Code, c.Debugging())
		}
	})

	t.Run("bad requests", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/debug/mgmtfe?debug=maybe", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("POST debug=maybe: status %d, want 400", w.Code)
		}

		w = httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/debug/mgmtfe", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("DELETE: status %d, want 405", w.Code)
		}
	})
}

// TestTraceWithDebug tests that tracing goes through the configured logger
func TestTraceWithDebug(t *testing.T) {
	logs := &captureLogger{}
	c, tr, rec := newTestClient(t, WithDebug(true), WithLogger(logs), WithPrettyPrintLogs(false))
	establish(t, c, tr, rec, 1, 10)

	if err := c.SendEdit(10, 1, DatastoreCandidate, FormatJSON, 0, EditModify, "/frr-ripd:ripd", `{"authentication-password":"p4ss"}`); err != nil {
		t.Fatalf("SendEdit() error = %v", err)
	}
	tr.next(t)

	out := logs.String()
	if !strings.Contains(out, "sending request") {
		t.Errorf("trace missing from logs: %s", out)
	}
	if strings.Contains(out, "p4ss") {
		t.Errorf("sensitive value leaked into logs: %s", out)
	}
}

// captureLogger records debug messages with their key/value pairs
type captureLogger struct {
	NoOpLogger
	mu  sync.Mutex
	buf strings.Builder
}

func (l *captureLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.WriteString(msg + formatKeysAndValues(keysAndValues) + "\n")
}

func (l *captureLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}
