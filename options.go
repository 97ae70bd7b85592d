// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

// Client configuration options using the functional options pattern

// WithTransport sets the transport used to reach the daemon
//
// Defaults to a socket transport on DefaultSocketPath.
//
// Example:
//
//	tr, err := mgmtfe.NewSocketTransport("tcp", "127.0.0.1:2622")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := mgmtfe.NewClient(ctx, "restconf", handler, mgmtfe.WithTransport(tr))
func WithTransport(t Transport) func(*Client) {
	return func(c *Client) {
		c.transport = t
	}
}

// WithLogger sets the logger for client operations
//
// By default, the client uses NoOpLogger which discards all log messages.
//
// Example:
//
//	client, err := mgmtfe.NewClient(ctx, "vtysh", handler,
//	    mgmtfe.WithLogger(mgmtfe.NewDefaultLogger(mgmtfe.LogLevelDebug)),
//	)
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserData attaches an opaque value returned by Client.UserData
func WithUserData(v any) func(*Client) {
	return func(c *Client) {
		c.userData = v
	}
}

// WithShortCircuit installs the evaluator consulted for requests sent with scok
func WithShortCircuit(sc ShortCircuiter) func(*Client) {
	return func(c *Client) {
		c.shortCircuit = sc
	}
}

// WithMaxMsgLen bounds a single encoded message (default: 64 KiB)
//
// Requests that encode larger fail with ErrSizeExceeded before anything is
// sent; larger inbound messages are dropped.
func WithMaxMsgLen(n int) func(*Client) {
	return func(c *Client) {
		c.MaxMsgLen = n
	}
}

// WithMaxMsgProc bounds the inbound messages handled per dispatch turn (default: 500)
func WithMaxMsgProc(n int) func(*Client) {
	return func(c *Client) {
		c.MaxMsgProc = n
	}
}

// WithDebug turns protocol tracing on from the start (default: false)
//
// See Client.SetDebug.
func WithDebug(on bool) func(*Client) {
	return func(c *Client) {
		c.debug.Store(on)
	}
}

// WithPrettyPrintLogs enables or disables pretty-printing of JSON payloads in traces (default: true)
//
// When enabled, JSON payloads in debug logs are indented for readability.
// When disabled, payloads are logged as received. Redaction applies either way.
func WithPrettyPrintLogs(enabled bool) func(*Client) {
	return func(c *Client) {
		c.prettyPrintLogs = enabled
	}
}
