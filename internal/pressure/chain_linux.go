//go:build linux

package pressure

import (
	"os"
	"path/filepath"
)

const (
	procSelfCgroup = "/proc/self/cgroup"
	procSelfStatus = "/proc/self/status"
	procMeminfo    = "/proc/meminfo"
	cgroupRoot     = "/sys/fs/cgroup"
)

// DefaultChain builds the preference-ordered source chain for this process:
// own-cgroup limits first (most precise), then system meminfo, then process
// RSS. The cgroup source is omitted entirely when the unified hierarchy entry
// cannot be resolved.
func DefaultChain() []Source {
	var chain []Source
	if dir, ok := selfCgroupDir(); ok {
		chain = append(chain, NewCgroupSource(dir))
	}
	chain = append(chain,
		NewMeminfoSource(procMeminfo),
		NewRSSSource(procSelfStatus, procMeminfo),
	)
	return chain
}

// selfCgroupDir resolves the process's own cgroup v2 directory under
// /sys/fs/cgroup.
func selfCgroupDir() (string, bool) {
	data, err := os.ReadFile(procSelfCgroup)
	if err != nil {
		return "", false
	}
	rel, ok := cgroupV2PathFrom(data)
	if !ok {
		return "", false
	}
	return filepath.Join(cgroupRoot, rel), true
}

// CgroupEventsPath returns the memory.events file of the process's own
// cgroup, for callers that want to watch for limit events. False when the
// cgroup directory cannot be resolved.
func CgroupEventsPath() (string, bool) {
	dir, ok := selfCgroupDir()
	if !ok {
		return "", false
	}
	return filepath.Join(dir, "memory.events"), true
}
