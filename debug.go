// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"regexp"
	"slices"
	"strings"
)

// Security limits for payload logging
const (
	MaxJSONSizeForLogging = 1 * 1024 * 1024 // 1MB limit to prevent ReDoS attacks
	MaxSensitiveFields    = 1000            // Max redaction operations to prevent DoS
)

// Logging message constants
const (
	JSONTooLargeMessage     = "[JSON TOO LARGE FOR LOGGING]"
	JSONTooManySensitiveMsg = "[JSON CONTAINS TOO MANY SENSITIVE FIELDS]"
)

type redactionPattern struct {
	re          *regexp.Regexp
	replacement string
}

// sensitiveLeaves are YANG leaf names whose values never reach the logs
var sensitiveLeaves = []string{
	"password",
	"secret",
	"key",
	"key-string",
	"authentication-key",
	"community",
	"token",
	"auth",
}

// defaultRedactionPatterns match sensitive leaves with or without a module
// prefix, including hyphenated forms such as authentication-password
var defaultRedactionPatterns = []redactionPattern{
	{
		re:          regexp.MustCompile(`("(?:[\w-]+:)?(?:[\w-]*-)?(?:` + strings.Join(sensitiveLeaves, "|") + `)")\s*:\s*"[^"]*"`),
		replacement: `${1}:"[REDACTED]"`,
	},
	{
		re:          regexp.MustCompile(`(<(?:[\w-]+:)?(?:[\w-]*-)?(?:` + strings.Join(sensitiveLeaves, "|") + `)(?:\s[^>]*)?>)[^<]*(</)`),
		replacement: `${1}[REDACTED]${2}`,
	},
}

// SetDebug turns protocol tracing on or off
//
// Tracing logs every message sent and received at debug level, with JSON
// payloads redacted.
func (c *Client) SetDebug(on bool) {
	c.debug.Store(on)
}

// Debugging reports whether protocol tracing is on
func (c *Client) Debugging() bool {
	return c.debug.Load()
}

// trace logs m when tracing is on
func (c *Client) trace(msg string, m *Message) {
	if !c.debug.Load() {
		return
	}

	kv := []any{
		"kind", m.Kind.String(),
		"session_id", m.SessionID,
		"req_id", m.ReqID,
	}
	if m.ClientID != ClientIDNone {
		kv = append(kv, "client_id", m.ClientID)
	}
	if m.XPath != "" {
		kv = append(kv, "xpath", m.XPath)
	}
	if len(m.Data) > 0 {
		kv = append(kv, "format", m.Format.String(), "data_len", len(m.Data))
		switch m.Format {
		case FormatJSON, FormatXML:
			kv = append(kv, "data", c.preparePayloadForLogging(m.Format, string(m.Data)))
		}
	}
	if m.ErrMsg != "" {
		kv = append(kv, "errmsg", m.ErrMsg)
	}
	c.logger.Debug(c.ctx, msg, kv...)
}

// preparePayloadForLogging redacts sensitive data and formats it for logging
//
// Payloads larger than MaxJSONSizeForLogging or with more than
// MaxSensitiveFields sensitive leaves are replaced by a placeholder. JSON is
// pretty-printed when prettyPrintLogs is enabled.
func (c *Client) preparePayloadForLogging(format Format, payload string) string {
	if len(payload) > MaxJSONSizeForLogging {
		return JSONTooLargeMessage
	}

	sensitiveCount := 0
	for _, leaf := range sensitiveLeaves {
		sensitiveCount += strings.Count(payload, leaf)
	}
	if sensitiveCount > MaxSensitiveFields {
		c.logger.Warn(c.ctx, "Too many sensitive fields detected",
			"count", sensitiveCount,
			"max", MaxSensitiveFields)
		return JSONTooManySensitiveMsg
	}

	redacted := c.redactSensitiveData(payload)

	if format == FormatJSON && c.prettyPrintLogs {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(redacted), "", "  "); err == nil {
			return buf.String()
		}
	}
	return redacted
}

// redactSensitiveData replaces sensitive leaf values with [REDACTED]
func (c *Client) redactSensitiveData(payload string) string {
	result := payload
	for _, p := range c.redactionPatterns {
		result = p.re.ReplaceAllString(result, p.replacement)
	}
	return result
}

// RegisterDebug installs a debug endpoint for this client on mux
//
// GET prefix returns a JSON snapshot of the connection, sessions and
// outstanding requests. POST prefix?debug=on|off switches protocol tracing.
//
// Example:
//
//	mux := http.NewServeMux()
//	client.RegisterDebug(mux, "/debug/mgmtfe")
//	go http.ListenAndServe("127.0.0.1:6060", mux)
func (c *Client) RegisterDebug(mux *http.ServeMux, prefix string) {
	mux.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			switch r.URL.Query().Get("debug") {
			case "on", "true", "1":
				c.SetDebug(true)
			case "off", "false", "0":
				c.SetDebug(false)
			default:
				http.Error(w, "debug must be on or off", http.StatusBadRequest)
				return
			}
			c.logger.Info(r.Context(), "protocol tracing switched", "debug", c.Debugging())
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snapshot, err := c.debugSnapshot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(snapshot)) //nolint:errcheck // client went away
	})
}

// debugSnapshot renders the client state as JSON
func (c *Client) debugSnapshot() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := Body{}.
		Set("name", c.name).
		Set("state", c.state.String()).
		Set("closed", c.closed).
		Set("debug", c.debug.Load()).
		Set("session_count", len(c.byID)).
		SetRaw("sessions", "[]").
		SetRaw("closing", "[]").
		SetRaw("pending", "[]")

	for _, cid := range slices.Sorted(maps.Keys(c.sessions)) {
		s := c.sessions[cid]
		entry, err := sessionSnapshot(s, len(c.queues[s.id]))
		if err != nil {
			return "", err
		}
		doc = doc.SetRaw("sessions.-1", entry)
	}
	for _, sid := range slices.Sorted(maps.Keys(c.closing)) {
		doc = doc.Set("closing.-1", sid)
	}
	for _, sid := range slices.Sorted(maps.Keys(c.queues)) {
		for _, p := range c.queues[sid] {
			entry, err := pendingSnapshot(p)
			if err != nil {
				return "", err
			}
			doc = doc.SetRaw("pending.-1", entry)
		}
	}
	return doc.String()
}

func sessionSnapshot(s *session, outstanding int) (string, error) {
	entry := Body{}.
		Set("client_id", s.clientID).
		Set("session_id", s.id).
		Set("established", s.established).
		Set("commit_in_flight", s.commitInFlight).
		Set("outstanding", outstanding).
		SetRaw("locks", "{}")
	for ds, st := range s.lockStates() {
		entry = entry.Set("locks."+ds.String(), st.String())
	}
	return entry.String()
}

func pendingSnapshot(p *pending) (string, error) {
	entry := Body{}.
		Set("session_id", p.key.sessionID).
		Set("req_id", p.key.reqID).
		Set("op", p.kind.String())
	if p.kind == opGetData {
		entry = entry.Set("fragments", p.fragments)
	}
	if p.verdict != "" {
		entry = entry.Set("refused", p.verdict)
	}
	if len(p.held) > 0 {
		entry = entry.Set("held_replies", len(p.held))
	}
	s, err := entry.String()
	if err != nil {
		return "", fmt.Errorf("pending %d/%d: %w", p.key.sessionID, p.key.reqID, err)
	}
	return s, nil
}
