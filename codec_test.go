// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

// TestCodecRoundTrip tests that every field survives encode and decode
func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec(DefaultMaxMsgLen)

	tests := []struct {
		name string
		msg  *Message
	}{
		{name: "register", msg: &Message{Kind: KindRegisterReq, ClientName: "vtysh"}},
		{name: "session reply", msg: &Message{Kind: KindSessionReply, Create: true, Success: true, ClientID: 7, SessionID: 1 << 40}},
		{name: "commit", msg: &Message{Kind: KindCommitReq, SessionID: 3, ReqID: 9, SrcDS: DatastoreCandidate, DstDS: DatastoreRunning, Unlock: true}},
		{name: "tree data", msg: &Message{Kind: KindTreeData, SessionID: 3, ReqID: 10, Format: FormatJSON, Data: []byte(`{"a":1}`), PartialError: -2, More: true}},
		{name: "error", msg: &Message{Kind: KindError, SessionID: 3, ReqID: 11, ErrorCode: -22, ErrMsg: "invalid xpath"}},
		{name: "notify select", msg: &Message{Kind: KindNotifySelect, SessionID: 3, Replace: true, Selectors: []string{"/frr-ripd:authentication-failure", "/frr-bfdd:bfd-state-change"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := codec.Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := codec.Decode(frame)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.msg) {
				t.Errorf("Decode() = %+v, want %+v", got, tt.msg)
			}
		})
	}
}

// TestCodecOmitsZeroFields tests that unset fields are not encoded
func TestCodecOmitsZeroFields(t *testing.T) {
	codec := NewCodec(DefaultMaxMsgLen)

	frame, err := codec.Encode(&Message{Kind: KindLockDSReq})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	// only the kind tag and its varint
	if len(frame) != 2 {
		t.Errorf("len(frame) = %d, want 2", len(frame))
	}
}

// TestCodecSizeExceeded tests the message length limit in both directions
func TestCodecSizeExceeded(t *testing.T) {
	codec := NewCodec(64)

	if _, err := codec.Encode(&Message{Kind: KindEdit, Data: []byte(strings.Repeat("x", 100))}); !errors.Is(err, ErrSizeExceeded) {
		t.Errorf("Encode() error = %v, want ErrSizeExceeded", err)
	}
	if _, err := codec.Decode(make([]byte, 65)); !errors.Is(err, ErrSizeExceeded) {
		t.Errorf("Decode() error = %v, want ErrSizeExceeded", err)
	}
}

// TestCodecSkipsUnknownFields tests that fields added by newer daemons are
// ignored
func TestCodecSkipsUnknownFields(t *testing.T) {
	codec := NewCodec(DefaultMaxMsgLen)

	frame, err := codec.Encode(&Message{Kind: KindEditReply, SessionID: 1, ReqID: 2, XPath: "/frr-interface:lib"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	frame = protowire.AppendTag(frame, 99, protowire.BytesType)
	frame = protowire.AppendString(frame, "from a newer daemon")
	frame = protowire.AppendTag(frame, 100, protowire.Fixed32Type)
	frame = protowire.AppendFixed32(frame, 42)

	m, err := codec.Decode(frame)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.Kind != KindEditReply || m.XPath != "/frr-interface:lib" {
		t.Errorf("Decode() = %s %q, want edit-reply /frr-interface:lib", m.Kind, m.XPath)
	}
}

// TestCodecRejects tests malformed input
func TestCodecRejects(t *testing.T) {
	codec := NewCodec(DefaultMaxMsgLen)

	if _, err := codec.Encode(&Message{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Encode(no kind) error = %v, want ErrInvalidArgument", err)
	}

	unknown := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	unknown = protowire.AppendVarint(unknown, 4000)
	if _, err := codec.Decode(unknown); err == nil {
		t.Error("Decode(unknown kind) should fail")
	}

	if _, err := codec.Decode([]byte{0x08}); err == nil {
		t.Error("Decode(truncated) should fail")
	}
}

// TestMsgKind tests kind names and reply classification
func TestMsgKind(t *testing.T) {
	if got := KindTreeData.String(); got != "tree-data" {
		t.Errorf("String() = %q, want tree-data", got)
	}
	if got := MsgKind(200).String(); got != "kind(200)" {
		t.Errorf("String() = %q, want kind(200)", got)
	}

	for _, k := range []MsgKind{KindLockDSReply, KindCommitReply, KindError, KindTreeData, KindEditReply, KindRPCReply} {
		if !k.IsReply() {
			t.Errorf("%s.IsReply() = false, want true", k)
		}
	}
	for _, k := range []MsgKind{KindRegisterReq, KindSessionReply, KindNotify, KindGetData} {
		if k.IsReply() {
			t.Errorf("%s.IsReply() = true, want false", k)
		}
	}
}
