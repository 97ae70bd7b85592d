// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Default reconnect backoff values
const (
	DefaultReconnectMinDelay = 100 * time.Millisecond
	DefaultReconnectMaxDelay = 10 * time.Second
	DefaultReconnectFactor   = 2
)

// Backoff computes reconnect delays with exponential growth and jitter
type Backoff struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	Factor   float64
}

// Validate checks the backoff parameters
func (b Backoff) Validate() error {
	if b.MinDelay <= 0 {
		return fmt.Errorf("reconnect min delay must be positive, got: %v", b.MinDelay)
	}
	if b.MaxDelay <= b.MinDelay {
		return fmt.Errorf("reconnect max delay (%v) must be greater than min delay (%v)", b.MaxDelay, b.MinDelay)
	}
	if b.Factor < 1.0 {
		return fmt.Errorf("reconnect factor must be >= 1.0, got: %f", b.Factor)
	}
	return nil
}

// Delay returns the wait before reconnect attempt (0-indexed).
//
// delay = min(MinDelay * Factor^attempt, MaxDelay) + jitter, jitter in [0, delay/10).
// Jitter comes from crypto/rand, falling back to the clock if that fails.
func (b Backoff) Delay(attempt int) time.Duration {
	delay := float64(b.MinDelay) * math.Pow(b.Factor, float64(attempt))
	if math.IsInf(delay, 1) || delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}

	jitterMax := int64(delay * 0.1)
	if jitterMax > 0 {
		var jitterBytes [8]byte
		var jitter int64
		if _, err := rand.Read(jitterBytes[:]); err == nil {
			//nolint:gosec // G115: masked to the positive int64 range
			jitter = int64(binary.BigEndian.Uint64(jitterBytes[:])&0x7FFFFFFFFFFFFFFF) % jitterMax
		} else {
			jitter = (time.Now().UnixNano()%jitterMax + jitterMax) % jitterMax
		}
		delay += float64(jitter)
	}
	return time.Duration(delay)
}
