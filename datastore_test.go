// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import "testing"

// TestDatastoreClassification tests Valid and Configurable
func TestDatastoreClassification(t *testing.T) {
	tests := []struct {
		ds           Datastore
		name         string
		valid        bool
		configurable bool
	}{
		{ds: DatastoreNone, name: "none"},
		{ds: DatastoreRunning, name: "running", valid: true, configurable: true},
		{ds: DatastoreCandidate, name: "candidate", valid: true, configurable: true},
		{ds: DatastoreOperational, name: "operational", valid: true},
		{ds: DatastoreStartup, name: "startup", valid: true, configurable: true},
		{ds: Datastore(42), name: "unknown(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ds.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.ds.String(), tt.name)
			}
			if tt.ds.Valid() != tt.valid {
				t.Errorf("Valid() = %v, want %v", tt.ds.Valid(), tt.valid)
			}
			if tt.ds.Configurable() != tt.configurable {
				t.Errorf("Configurable() = %v, want %v", tt.ds.Configurable(), tt.configurable)
			}
		})
	}
}

// TestValidateEditOperation tests the edit operation check
func TestValidateEditOperation(t *testing.T) {
	for op := EditCreateExclusive; op <= EditMove; op++ {
		if err := ValidateEditOperation(op); err != nil {
			t.Errorf("ValidateEditOperation(%s) error = %v", op, err)
		}
	}
	if err := ValidateEditOperation(EditMove + 1); err == nil {
		t.Error("ValidateEditOperation() accepted an unknown operation")
	}
}

// TestFormatString tests format names
func TestFormatString(t *testing.T) {
	formats := map[Format]string{
		FormatUnknown: "unknown",
		FormatXML:     "xml",
		FormatJSON:    "json",
		FormatLYB:     "lyb",
		Format(7):     "format(7)",
	}
	for f, want := range formats {
		if f.String() != want {
			t.Errorf("Format(%d).String() = %q, want %q", uint8(f), f.String(), want)
		}
	}
}
