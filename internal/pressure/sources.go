package pressure

import (
	"bytes"
	"os"
	"path/filepath"
)

// The concrete sources read kernel text files whose locations are fields so
// tests can point them at fixtures. Constructors in the platform chain files
// wire the real /proc and /sys locations.

// CgroupSource reads the memory ceiling and current usage of one cgroup v2
// directory. It reports unavailable when the ceiling is the literal "max"
// token (no limit configured) or either file is missing or malformed.
type CgroupSource struct {
	memoryMax     string
	memoryCurrent string
}

// NewCgroupSource builds a source for the cgroup v2 directory at dir.
func NewCgroupSource(dir string) *CgroupSource {
	return &CgroupSource{
		memoryMax:     filepath.Join(dir, "memory.max"),
		memoryCurrent: filepath.Join(dir, "memory.current"),
	}
}

func (s *CgroupSource) Sample(t Thresholds) (Reading, bool) {
	limit, ok := readUint64File(s.memoryMax)
	if !ok || limit == 0 {
		return Reading{}, false
	}
	current, ok := readUint64File(s.memoryCurrent)
	if !ok {
		return Reading{}, false
	}
	headroom := uint64(0)
	if limit > current {
		headroom = limit - current
	}
	perMille, ok := headroomPerMille(headroom, limit)
	if !ok {
		return Reading{}, false
	}
	return Reading{
		Pressure:         t.Level(perMille),
		HeadroomPerMille: perMille,
		Source:           SourceCgroupV2,
	}, true
}

// MeminfoSource reads system-wide MemTotal and MemAvailable from a meminfo
// style file. Values are in KiB and converted to bytes.
type MeminfoSource struct {
	path string
}

func NewMeminfoSource(path string) *MeminfoSource {
	return &MeminfoSource{path: path}
}

func (s *MeminfoSource) Sample(t Thresholds) (Reading, bool) {
	total, available, ok := readMeminfo(s.path)
	if !ok {
		return Reading{}, false
	}
	perMille, ok := headroomPerMille(available, total)
	if !ok {
		return Reading{}, false
	}
	return Reading{
		Pressure:         t.Level(perMille),
		HeadroomPerMille: perMille,
		Source:           SourceMeminfo,
	}, true
}

// RSSSource reads the process resident set size from a /proc/self/status
// style file and the system total from a meminfo style file; headroom is
// total minus RSS.
type RSSSource struct {
	statusPath  string
	meminfoPath string
}

func NewRSSSource(statusPath, meminfoPath string) *RSSSource {
	return &RSSSource{statusPath: statusPath, meminfoPath: meminfoPath}
}

func (s *RSSSource) Sample(t Thresholds) (Reading, bool) {
	total, ok := readLabeledKB(s.meminfoPath, "MemTotal:")
	if !ok {
		return Reading{}, false
	}
	rss, ok := readLabeledKB(s.statusPath, "VmRSS:")
	if !ok {
		return Reading{}, false
	}
	headroom := uint64(0)
	if total > rss {
		headroom = total - rss
	}
	perMille, ok := headroomPerMille(headroom, total)
	if !ok {
		return Reading{}, false
	}
	return Reading{
		Pressure:         t.Level(perMille),
		HeadroomPerMille: perMille,
		Source:           SourceProcessRSS,
	}, true
}

// SampleChain returns the first available reading, preferring earlier
// sources. False means no source produced a reading this cycle.
func SampleChain(sources []Source, t Thresholds) (Reading, bool) {
	for _, src := range sources {
		if r, ok := src.Sample(t); ok {
			return r, true
		}
	}
	return Reading{}, false
}

func readUint64File(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return parseCgroupValue(data)
}

// readMeminfo extracts MemTotal and MemAvailable, first match per key, both
// required, KiB scaled to bytes.
func readMeminfo(path string) (total, available uint64, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, false
	}
	var haveTotal, haveAvail bool
	for line := range bytes.SplitSeq(data, []byte("\n")) {
		if !haveTotal && bytes.HasPrefix(line, []byte("MemTotal:")) {
			if v, vok := parseKBValue(line); vok {
				total = saturatingMul(v, 1024)
				haveTotal = true
			}
		} else if !haveAvail && bytes.HasPrefix(line, []byte("MemAvailable:")) {
			if v, vok := parseKBValue(line); vok {
				available = saturatingMul(v, 1024)
				haveAvail = true
			}
		}
		if haveTotal && haveAvail {
			break
		}
	}
	if !haveTotal || !haveAvail {
		return 0, 0, false
	}
	return total, available, true
}

// readLabeledKB extracts the first "<label> <n> kB" line, scaled to bytes.
func readLabeledKB(path, label string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	for line := range bytes.SplitSeq(data, []byte("\n")) {
		if bytes.HasPrefix(line, []byte(label)) {
			v, ok := parseKBValue(line)
			if !ok {
				return 0, false
			}
			return saturatingMul(v, 1024), true
		}
	}
	return 0, false
}
