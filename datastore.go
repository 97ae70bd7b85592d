// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import "fmt"

// Identifier sentinels
const (
	// SessionIDNone is carried before a session is established and after it is destroyed
	SessionIDNone uint64 = 0

	// ClientIDNone is never a valid caller-assigned client id
	ClientIDNone uint64 = 0
)

// Datastore identifies a datastore exposed by the management daemon.
//
// It is used as source and destination of lock and commit operations and as
// the target of get-data and edit requests.
type Datastore uint8

const (
	// DatastoreNone is the zero value and never a valid target
	DatastoreNone Datastore = iota

	// DatastoreRunning holds the active configuration
	DatastoreRunning

	// DatastoreCandidate holds configuration staged for commit
	DatastoreCandidate

	// DatastoreOperational holds operational state (read-only)
	DatastoreOperational

	// DatastoreStartup holds the configuration loaded at boot
	DatastoreStartup
)

// String returns the datastore name
func (d Datastore) String() string {
	switch d {
	case DatastoreNone:
		return "none"
	case DatastoreRunning:
		return "running"
	case DatastoreCandidate:
		return "candidate"
	case DatastoreOperational:
		return "operational"
	case DatastoreStartup:
		return "startup"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

// Valid reports whether d names a real datastore
func (d Datastore) Valid() bool {
	return d >= DatastoreRunning && d <= DatastoreStartup
}

// Configurable reports whether d can be the source or destination of a commit
func (d Datastore) Configurable() bool {
	return d.Valid() && d != DatastoreOperational
}

// Format identifies the encoding of tree, edit and RPC payloads.
//
// The client never interprets payloads; the format travels with the data so
// the application can decode it. Unknown values are passed through unchanged.
type Format uint8

const (
	// FormatUnknown leaves the choice to the daemon
	FormatUnknown Format = iota

	// FormatXML encodes trees as XML
	FormatXML

	// FormatJSON encodes trees as JSON (RFC 7951)
	FormatJSON

	// FormatLYB encodes trees in the binary LYB format
	FormatLYB
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatUnknown:
		return "unknown"
	case FormatXML:
		return "xml"
	case FormatJSON:
		return "json"
	case FormatLYB:
		return "lyb"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// GetDataFlags controls which parts of the tree a get-data request returns
type GetDataFlags uint8

const (
	// GetDataFlagState includes operational state
	GetDataFlagState GetDataFlags = 0x01

	// GetDataFlagConfig includes configuration
	GetDataFlagConfig GetDataFlags = 0x02

	// GetDataFlagExact returns only the exact node, not its subtree
	GetDataFlagExact GetDataFlags = 0x04
)

// Defaults controls the reporting of default values in get-data results
type Defaults uint8

const (
	// DefaultsExplicit reports values set explicitly
	DefaultsExplicit Defaults = iota

	// DefaultsTrim omits values equal to their default
	DefaultsTrim

	// DefaultsAll reports every value including defaults
	DefaultsAll

	// DefaultsAllAddTag reports every value and tags defaults
	DefaultsAllAddTag
)

// EditFlags controls implicit locking and committing of an edit
type EditFlags uint8

const (
	// EditFlagImplicitLock locks the datastore for the duration of the edit
	EditFlagImplicitLock EditFlags = 0x01

	// EditFlagImplicitCommit commits the edit to running when it completes
	EditFlagImplicitCommit EditFlags = 0x02
)

// EditOperation is the operation an edit request applies at its xpath
type EditOperation uint8

const (
	EditCreateExclusive EditOperation = iota
	EditCreate
	EditModify
	EditDestroy
	EditDelete
	EditReplace
	EditMove
)

// String returns the operation name
func (o EditOperation) String() string {
	switch o {
	case EditCreateExclusive:
		return "create-exclusive"
	case EditCreate:
		return "create"
	case EditModify:
		return "modify"
	case EditDestroy:
		return "destroy"
	case EditDelete:
		return "delete"
	case EditReplace:
		return "replace"
	case EditMove:
		return "move"
	default:
		return fmt.Sprintf("operation(%d)", uint8(o))
	}
}

// ValidateEditOperation checks that op is one of the known edit operations
//
// Example:
//
//	if err := mgmtfe.ValidateEditOperation(mgmtfe.EditModify); err != nil {
//	    log.Fatal(err)
//	}
func ValidateEditOperation(op EditOperation) error {
	if op > EditMove {
		return fmt.Errorf("invalid edit operation: %d (valid values: create-exclusive, create, modify, destroy, delete, replace, move)", uint8(op))
	}
	return nil
}
