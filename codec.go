// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Protocol limits
const (
	// DefaultMaxMsgLen bounds a single encoded message (64 KiB)
	DefaultMaxMsgLen = 64 * 1024

	// DefaultMaxMsgProc bounds inbound messages handled per scheduler turn
	DefaultMaxMsgProc = 500

	// DefaultMaxQueuedWrites bounds frames queued in a transport for writing
	DefaultMaxQueuedWrites = 100
)

// MsgKind tags every protocol message
type MsgKind uint16

const (
	KindUnknown MsgKind = iota
	KindRegisterReq
	KindSessionReq
	KindSessionReply
	KindLockDSReq
	KindLockDSReply
	KindCommitReq
	KindCommitReply

	// Native messages: opaque payloads tagged with a Format
	KindError MsgKind = iota + 8
	KindGetData
	KindTreeData
	KindEdit
	KindEditReply
	KindRPC
	KindRPCReply
	KindNotify
	KindNotifySelect
)

var kindNames = map[MsgKind]string{
	KindRegisterReq:  "register-req",
	KindSessionReq:   "session-req",
	KindSessionReply: "session-reply",
	KindLockDSReq:    "lockds-req",
	KindLockDSReply:  "lockds-reply",
	KindCommitReq:    "commit-req",
	KindCommitReply:  "commit-reply",
	KindError:        "error",
	KindGetData:      "get-data",
	KindTreeData:     "tree-data",
	KindEdit:         "edit",
	KindEditReply:    "edit-reply",
	KindRPC:          "rpc",
	KindRPCReply:     "rpc-reply",
	KindNotify:       "notify",
	KindNotifySelect: "notify-select",
}

// String returns the message kind name
func (k MsgKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint16(k))
}

// IsReply reports whether messages of this kind resolve a pending request
func (k MsgKind) IsReply() bool {
	switch k {
	case KindLockDSReply, KindCommitReply, KindError, KindTreeData, KindEditReply, KindRPCReply:
		return true
	}
	return false
}

// Message is the decoded form of every protocol message.
//
// Only the fields relevant to Kind are meaningful; the rest stay zero and are
// not encoded. Data is opaque and travels with Format unchanged.
type Message struct {
	Kind      MsgKind
	SessionID uint64
	ReqID     uint64
	ClientID  uint64

	// Session and reply verdicts
	Create  bool
	Success bool
	ErrMsg  string

	// Lock and commit
	Lock         bool
	Datastore    Datastore
	SrcDS        Datastore
	DstDS        Datastore
	ValidateOnly bool
	Abort        bool
	Unlock       bool

	// Native payloads
	Format       Format
	Flags        uint8
	Defaults     Defaults
	Operation    EditOperation
	XPath        string
	Data         []byte
	ErrorCode    int
	PartialError int
	More         bool

	// Registration and notification selection
	ClientName string
	Replace    bool
	Selectors  []string
}

// field numbers on the wire
const (
	fieldKind         protowire.Number = 1
	fieldSessionID    protowire.Number = 2
	fieldReqID        protowire.Number = 3
	fieldClientID     protowire.Number = 4
	fieldCreate       protowire.Number = 5
	fieldSuccess      protowire.Number = 6
	fieldLock         protowire.Number = 7
	fieldDatastore    protowire.Number = 8
	fieldSrcDS        protowire.Number = 9
	fieldDstDS        protowire.Number = 10
	fieldValidateOnly protowire.Number = 11
	fieldAbort        protowire.Number = 12
	fieldUnlock       protowire.Number = 13
	fieldFormat       protowire.Number = 14
	fieldFlags        protowire.Number = 15
	fieldDefaults     protowire.Number = 16
	fieldOperation    protowire.Number = 17
	fieldXPath        protowire.Number = 18
	fieldData         protowire.Number = 19
	fieldErrMsg       protowire.Number = 20
	fieldErrorCode    protowire.Number = 21
	fieldPartialError protowire.Number = 22
	fieldMore         protowire.Number = 23
	fieldClientName   protowire.Number = 24
	fieldReplace      protowire.Number = 25
	fieldSelector     protowire.Number = 26
)

// Codec converts messages to and from transport frames.
//
// Encode fails with ErrSizeExceeded before anything is sent when the encoded
// message is larger than MaxMsgLen.
type Codec struct {
	MaxMsgLen int
}

// NewCodec returns a codec enforcing maxMsgLen (DefaultMaxMsgLen when <= 0)
func NewCodec(maxMsgLen int) *Codec {
	if maxMsgLen <= 0 {
		maxMsgLen = DefaultMaxMsgLen
	}
	return &Codec{MaxMsgLen: maxMsgLen}
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt(b []byte, num protowire.Number, v int) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// Encode serializes m
func (c *Codec) Encode(m *Message) ([]byte, error) {
	if m.Kind == KindUnknown {
		return nil, fmt.Errorf("%w: message kind not set", ErrInvalidArgument)
	}

	b := make([]byte, 0, 64+len(m.XPath)+len(m.Data))
	b = appendUint(b, fieldKind, uint64(m.Kind))
	b = appendUint(b, fieldSessionID, m.SessionID)
	b = appendUint(b, fieldReqID, m.ReqID)
	b = appendUint(b, fieldClientID, m.ClientID)
	b = appendBool(b, fieldCreate, m.Create)
	b = appendBool(b, fieldSuccess, m.Success)
	b = appendBool(b, fieldLock, m.Lock)
	b = appendUint(b, fieldDatastore, uint64(m.Datastore))
	b = appendUint(b, fieldSrcDS, uint64(m.SrcDS))
	b = appendUint(b, fieldDstDS, uint64(m.DstDS))
	b = appendBool(b, fieldValidateOnly, m.ValidateOnly)
	b = appendBool(b, fieldAbort, m.Abort)
	b = appendBool(b, fieldUnlock, m.Unlock)
	b = appendUint(b, fieldFormat, uint64(m.Format))
	b = appendUint(b, fieldFlags, uint64(m.Flags))
	b = appendUint(b, fieldDefaults, uint64(m.Defaults))
	b = appendUint(b, fieldOperation, uint64(m.Operation))
	b = appendString(b, fieldXPath, m.XPath)
	if len(m.Data) > 0 {
		b = protowire.AppendTag(b, fieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Data)
	}
	b = appendString(b, fieldErrMsg, m.ErrMsg)
	b = appendInt(b, fieldErrorCode, m.ErrorCode)
	b = appendInt(b, fieldPartialError, m.PartialError)
	b = appendBool(b, fieldMore, m.More)
	b = appendString(b, fieldClientName, m.ClientName)
	b = appendBool(b, fieldReplace, m.Replace)
	for _, sel := range m.Selectors {
		b = protowire.AppendTag(b, fieldSelector, protowire.BytesType)
		b = protowire.AppendString(b, sel)
	}

	if len(b) > c.MaxMsgLen {
		return nil, fmt.Errorf("%w: %s message is %d bytes (max %d)", ErrSizeExceeded, m.Kind, len(b), c.MaxMsgLen)
	}
	return b, nil
}

// Decode parses a frame produced by Encode.
//
// Unknown fields are skipped so newer daemons can add fields. A frame without
// a known kind, or larger than MaxMsgLen, is rejected.
func (c *Codec) Decode(frame []byte) (*Message, error) {
	if len(frame) > c.MaxMsgLen {
		return nil, fmt.Errorf("%w: inbound frame is %d bytes (max %d)", ErrSizeExceeded, len(frame), c.MaxMsgLen)
	}

	m := &Message{}
	b := frame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			m.setVarint(num, v)
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			m.setBytes(num, v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if _, ok := kindNames[m.Kind]; !ok {
		return nil, fmt.Errorf("decode: unknown message kind %d", uint16(m.Kind))
	}
	return m, nil
}

func (m *Message) setVarint(num protowire.Number, v uint64) {
	switch num {
	case fieldKind:
		m.Kind = MsgKind(v)
	case fieldSessionID:
		m.SessionID = v
	case fieldReqID:
		m.ReqID = v
	case fieldClientID:
		m.ClientID = v
	case fieldCreate:
		m.Create = protowire.DecodeBool(v)
	case fieldSuccess:
		m.Success = protowire.DecodeBool(v)
	case fieldLock:
		m.Lock = protowire.DecodeBool(v)
	case fieldDatastore:
		m.Datastore = Datastore(v)
	case fieldSrcDS:
		m.SrcDS = Datastore(v)
	case fieldDstDS:
		m.DstDS = Datastore(v)
	case fieldValidateOnly:
		m.ValidateOnly = protowire.DecodeBool(v)
	case fieldAbort:
		m.Abort = protowire.DecodeBool(v)
	case fieldUnlock:
		m.Unlock = protowire.DecodeBool(v)
	case fieldFormat:
		m.Format = Format(v)
	case fieldFlags:
		m.Flags = uint8(v)
	case fieldDefaults:
		m.Defaults = Defaults(v)
	case fieldOperation:
		m.Operation = EditOperation(v)
	case fieldErrorCode:
		m.ErrorCode = int(protowire.DecodeZigZag(v))
	case fieldPartialError:
		m.PartialError = int(protowire.DecodeZigZag(v))
	case fieldMore:
		m.More = protowire.DecodeBool(v)
	case fieldReplace:
		m.Replace = protowire.DecodeBool(v)
	}
}

func (m *Message) setBytes(num protowire.Number, v []byte) {
	switch num {
	case fieldXPath:
		m.XPath = string(v)
	case fieldData:
		m.Data = append([]byte(nil), v...)
	case fieldErrMsg:
		m.ErrMsg = string(v)
	case fieldClientName:
		m.ClientName = string(v)
	case fieldSelector:
		m.Selectors = append(m.Selectors, string(v))
	}
}
