// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"fmt"

	"github.com/tidwall/sjson"
)

// Body builds JSON edit and RPC input data using sjson paths.
//
// Errors are tracked internally so calls can be chained; the first error is
// returned by String, Bytes or Err. Module-qualified member names
// (RFC 7951) are written as-is in paths.
//
// Example:
//
//	data, err := mgmtfe.Body{}.
//	    Set("frr-interface:interface.0.name", "eth0").
//	    Set("frr-interface:interface.0.description", "uplink").
//	    String()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = client.SendEdit(sid, 3, mgmtfe.DatastoreCandidate, mgmtfe.FormatJSON, 0,
//	    mgmtfe.EditModify, "/frr-interface:lib", data)
type Body struct {
	str string
	err error
}

// Set stores value at path
//
// Once an error occurs, subsequent calls are no-ops that preserve it.
func (b Body) Set(path string, value any) Body {
	if b.err != nil {
		return b
	}
	res, err := sjson.Set(b.str, path, value)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("failed to set %q: %w", path, err)}
	}
	return Body{str: res}
}

// SetRaw stores a pre-encoded JSON value at path
//
// Example:
//
//	body := mgmtfe.Body{}.SetRaw("input", `{"name":"eth0"}`)
func (b Body) SetRaw(path, rawJSON string) Body {
	if b.err != nil {
		return b
	}
	res, err := sjson.SetRaw(b.str, path, rawJSON)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("failed to set raw %q: %w", path, err)}
	}
	return Body{str: res}
}

// Delete removes the value at path
func (b Body) Delete(path string) Body {
	if b.err != nil {
		return b
	}
	res, err := sjson.Delete(b.str, path)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("failed to delete %q: %w", path, err)}
	}
	return Body{str: res}
}

// String returns the JSON document
func (b Body) String() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.str == "" {
		return "{}", nil
	}
	return b.str, nil
}

// Bytes returns the JSON document as a byte slice
func (b Body) Bytes() ([]byte, error) {
	s, err := b.String()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// Err returns the first error encountered while building
func (b Body) Err() error {
	return b.err
}
