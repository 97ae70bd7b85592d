// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import "fmt"

// lockState is the per-session state of one datastore lock
type lockState uint8

const (
	lockUnlocked lockState = iota
	lockPending
	lockLocked
	unlockPending
)

func (s lockState) String() string {
	switch s {
	case lockUnlocked:
		return "unlocked"
	case lockPending:
		return "lock-pending"
	case lockLocked:
		return "locked"
	case unlockPending:
		return "unlock-pending"
	default:
		return fmt.Sprintf("lock-state(%d)", uint8(s))
	}
}

// beginLock moves ds towards lock or unlock. It returns a non-empty verdict
// and leaves the state untouched when the transition is not allowed.
func (s *session) beginLock(ds Datastore, lock bool) string {
	st := s.locks[ds]
	if lock {
		if st != lockUnlocked {
			return fmt.Sprintf("%s datastore already locked by this session (%s)", ds, st)
		}
		s.locks[ds] = lockPending
		return ""
	}
	if st != lockLocked {
		return fmt.Sprintf("%s datastore not locked by this session (%s)", ds, st)
	}
	s.locks[ds] = unlockPending
	return ""
}

// beginCommit marks a commit in flight
func (s *session) beginCommit() string {
	if s.commitInFlight {
		return "commit already in progress on this session"
	}
	s.commitInFlight = true
	return ""
}

// settle applies the outcome of a lock or commit request. unlock releases
// the source and destination locks of a commit regardless of success.
func (s *session) settle(p *pending, success, unlock bool) {
	if p.verdict != "" {
		return
	}
	switch p.kind {
	case opLockDS:
		switch {
		case p.lock && success:
			s.locks[p.ds] = lockLocked
		case p.lock:
			s.locks[p.ds] = lockUnlocked
		case success:
			s.locks[p.ds] = lockUnlocked
		default:
			s.locks[p.ds] = lockLocked
		}
	case opCommit:
		s.commitInFlight = false
		if unlock {
			s.locks[p.src] = lockUnlocked
			s.locks[p.dst] = lockUnlocked
		}
	}
}

// lockStates returns the non-idle lock states for reporting
func (s *session) lockStates() map[Datastore]lockState {
	out := make(map[Datastore]lockState, len(s.locks))
	for ds, st := range s.locks {
		if st != lockUnlocked {
			out[ds] = st
		}
	}
	return out
}
