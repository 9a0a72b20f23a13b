// Package pressure derives a coarse memory pressure signal from kernel
// interfaces. A chain of independently fallible sources (cgroup v2 limits,
// system meminfo, process RSS) produces raw headroom readings; a rank-based
// hysteresis smoother de-flickers them; a background monitor samples on a
// fixed cadence and publishes only the newest smoothed level.
//
// Everything here is advisory. Every failure mode degrades to "try the next
// source" or "emit nothing this cycle"; nothing in this package returns a
// hard error to the sampling path.
package pressure

import (
	"fmt"

	"tabwarden/internal/budget"
)

// -----------------------------------------------------------------------------
// Readings and Thresholds
// -----------------------------------------------------------------------------

// SourceKind identifies which kernel interface produced a reading.
type SourceKind int

const (
	// SourceCgroupV2 - memory.max / memory.current of the process's own cgroup
	SourceCgroupV2 SourceKind = iota
	// SourceMeminfo - system-wide MemTotal / MemAvailable
	SourceMeminfo
	// SourceProcessRSS - process resident set against system total
	SourceProcessRSS
)

func (k SourceKind) String() string {
	switch k {
	case SourceCgroupV2:
		return "cgroup_v2"
	case SourceMeminfo:
		return "meminfo"
	case SourceProcessRSS:
		return "process_rss"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Reading is the result of one memory pressure sample from one source.
type Reading struct {
	Pressure budget.MemoryPressure

	// HeadroomPerMille is the share of total memory still available,
	// normalized to [0, 1000].
	HeadroomPerMille int

	Source SourceKind
}

// Thresholds map a headroom value to a pressure level. Lower headroom means
// higher pressure; the severe threshold must sit below the moderate one.
type Thresholds struct {
	ModerateHeadroomPerMille int
	SevereHeadroomPerMille   int
}

// DefaultThresholds returns the stock thresholds: moderate below 20% headroom
// (where OS reclaim typically becomes active), severe below 10%.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ModerateHeadroomPerMille: 200,
		SevereHeadroomPerMille:   100,
	}
}

// Level maps a raw headroom-per-mille value to a pressure level.
func (t Thresholds) Level(headroomPerMille int) budget.MemoryPressure {
	switch {
	case headroomPerMille <= t.SevereHeadroomPerMille:
		return budget.PressureSevere
	case headroomPerMille <= t.ModerateHeadroomPerMille:
		return budget.PressureModerate
	default:
		return budget.PressureLow
	}
}

// Source is one fallible origin of pressure readings. Sample returns false
// when the source is unavailable this cycle (missing file, unparseable
// content, zero totals); callers fall through to the next source silently.
type Source interface {
	Sample(t Thresholds) (Reading, bool)
}
