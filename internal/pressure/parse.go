package pressure

import (
	"bytes"
	"math"
)

// Byte-level parsers for kernel text interfaces. All of them scan for a
// leading run of ASCII digits, skipping any label prefix and stopping at the
// first byte after the run, accumulating with saturating arithmetic so that
// no input, however malformed or oversized, can overflow or panic.

// parseCgroupValue extracts the integer from a cgroup value file such as
// memory.max or memory.current. The literal token "max" (any value whose
// byte scan hits 'm' or 'M') means no limit is configured and yields false.
func parseCgroupValue(b []byte) (uint64, bool) {
	var value uint64
	sawDigit := false
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
			sawDigit = true
			value = saturatingShiftDigit(value, c)
		case c == 'm' || c == 'M':
			return 0, false
		case sawDigit:
			return value, true
		}
	}
	return value, sawDigit
}

// parseKBValue extracts the numeric field from a "Label:   12345 kB" line.
func parseKBValue(line []byte) (uint64, bool) {
	var value uint64
	sawDigit := false
	for _, c := range line {
		switch {
		case c >= '0' && c <= '9':
			sawDigit = true
			value = saturatingShiftDigit(value, c)
		case sawDigit:
			return value, true
		}
	}
	return value, sawDigit
}

// saturatingShiftDigit appends one decimal digit, capping at MaxUint64.
func saturatingShiftDigit(value uint64, c byte) uint64 {
	d := uint64(c - '0')
	if value > (math.MaxUint64-d)/10 {
		return math.MaxUint64
	}
	return value*10 + d
}

// saturatingMul multiplies, capping at MaxUint64.
func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		return math.MaxUint64
	}
	return a * b
}

// headroomPerMille normalizes available/total into [0, 1000]. A zero total
// means the computation is meaningless and yields false.
func headroomPerMille(available, total uint64) (int, bool) {
	if total == 0 {
		return 0, false
	}
	ratio := saturatingMul(available, 1000) / total
	if ratio > 1000 {
		ratio = 1000
	}
	return int(ratio), true
}

// cgroupV2PathFrom locates the unified-hierarchy entry ("0::<path>") in the
// contents of /proc/self/cgroup and returns the cgroup-relative path. An
// empty entry maps to the hierarchy root "/".
func cgroupV2PathFrom(contents []byte) (string, bool) {
	for line := range bytes.SplitSeq(contents, []byte("\n")) {
		if bytes.HasPrefix(line, []byte("0::")) {
			rel := string(line[3:])
			if rel == "" {
				rel = "/"
			}
			return rel, true
		}
	}
	return "", false
}
