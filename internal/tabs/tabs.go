// Package tabs provides tab identity and lifecycle bookkeeping: stable tab
// identifiers, the externally-assigned lifecycle state, and an in-memory
// registry that owns the ordered tab list.
package tabs

import (
	"fmt"
	"strconv"
)

// TabID is a stable, opaque identifier for a browser tab. IDs are allocated
// by a Registry and are never reused within a process.
type TabID uint64

func (id TabID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// TabState is the externally-assigned lifecycle state of a tab. It is the
// base signal the scheduler derives effective states from; the scheduler
// itself never stores into a Registry.
type TabState int

const (
	// Active - the focused tab receiving user input
	Active TabState = iota
	// Background - open but not focused
	Background
	// Suspended - parked; no execution expected
	Suspended
)

func (s TabState) String() string {
	switch s {
	case Active:
		return "active"
	case Background:
		return "background"
	case Suspended:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Entry is a lightweight tab record owned by the Registry.
type Entry struct {
	ID    TabID
	Title string
	URL   string
	State TabState
}
