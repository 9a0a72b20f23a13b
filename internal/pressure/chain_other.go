//go:build !linux

package pressure

// DefaultChain returns no sources on platforms without the linux kernel
// interfaces. The monitor then never emits and consumers keep their prior
// pressure level.
func DefaultChain() []Source {
	return nil
}

// CgroupEventsPath always reports unavailable off linux.
func CgroupEventsPath() (string, bool) {
	return "", false
}
