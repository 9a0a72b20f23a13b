package pressure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabwarden/internal/budget"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestCgroupSource(t *testing.T) {
	th := DefaultThresholds()

	t.Run("limited cgroup", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "memory.max", "1000\n")
		writeFile(t, dir, "memory.current", "900\n")

		r, ok := NewCgroupSource(dir).Sample(th)
		require.True(t, ok)
		assert.Equal(t, SourceCgroupV2, r.Source)
		assert.Equal(t, 100, r.HeadroomPerMille)
		assert.Equal(t, budget.PressureSevere, r.Pressure)
	})

	t.Run("max token is unavailable", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "memory.max", "max\n")
		writeFile(t, dir, "memory.current", "900\n")

		_, ok := NewCgroupSource(dir).Sample(th)
		assert.False(t, ok)
	})

	t.Run("zero limit is unavailable", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "memory.max", "0\n")
		writeFile(t, dir, "memory.current", "0\n")

		_, ok := NewCgroupSource(dir).Sample(th)
		assert.False(t, ok)
	})

	t.Run("missing files are unavailable", func(t *testing.T) {
		_, ok := NewCgroupSource(t.TempDir()).Sample(th)
		assert.False(t, ok)
	})

	t.Run("usage above limit clamps headroom to zero", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "memory.max", "1000\n")
		writeFile(t, dir, "memory.current", "2000\n")

		r, ok := NewCgroupSource(dir).Sample(th)
		require.True(t, ok)
		assert.Equal(t, 0, r.HeadroomPerMille)
		assert.Equal(t, budget.PressureSevere, r.Pressure)
	})
}

func TestMeminfoSource(t *testing.T) {
	th := DefaultThresholds()

	t.Run("normal", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "meminfo",
			"MemTotal:       10000 kB\nMemFree:         1000 kB\nMemAvailable:    5000 kB\n")

		r, ok := NewMeminfoSource(path).Sample(th)
		require.True(t, ok)
		assert.Equal(t, SourceMeminfo, r.Source)
		assert.Equal(t, 500, r.HeadroomPerMille)
		assert.Equal(t, budget.PressureLow, r.Pressure)
	})

	t.Run("missing MemAvailable", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "meminfo", "MemTotal:       10000 kB\n")

		_, ok := NewMeminfoSource(path).Sample(th)
		assert.False(t, ok)
	})

	t.Run("missing file", func(t *testing.T) {
		_, ok := NewMeminfoSource(filepath.Join(t.TempDir(), "absent")).Sample(th)
		assert.False(t, ok)
	})

	t.Run("first match per key wins", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "meminfo",
			"MemTotal:       10000 kB\nMemAvailable:    1500 kB\nMemTotal:       99999 kB\nMemAvailable:    9999 kB\n")

		r, ok := NewMeminfoSource(path).Sample(th)
		require.True(t, ok)
		assert.Equal(t, 150, r.HeadroomPerMille)
		assert.Equal(t, budget.PressureModerate, r.Pressure)
	})
}

func TestRSSSource(t *testing.T) {
	th := DefaultThresholds()

	t.Run("normal", func(t *testing.T) {
		dir := t.TempDir()
		status := writeFile(t, dir, "status",
			"Name:\ttabwarden\nVmPeak:\t  300000 kB\nVmRSS:\t  900 kB\n")
		meminfo := writeFile(t, dir, "meminfo", "MemTotal:       1000 kB\nMemAvailable: 1 kB\n")

		r, ok := NewRSSSource(status, meminfo).Sample(th)
		require.True(t, ok)
		assert.Equal(t, SourceProcessRSS, r.Source)
		assert.Equal(t, 100, r.HeadroomPerMille)
		assert.Equal(t, budget.PressureSevere, r.Pressure)
	})

	t.Run("missing VmRSS", func(t *testing.T) {
		dir := t.TempDir()
		status := writeFile(t, dir, "status", "Name:\ttabwarden\n")
		meminfo := writeFile(t, dir, "meminfo", "MemTotal:       1000 kB\n")

		_, ok := NewRSSSource(status, meminfo).Sample(th)
		assert.False(t, ok)
	})
}

func TestSampleChain_PrefersEarlierSources(t *testing.T) {
	th := DefaultThresholds()
	dir := t.TempDir()

	// Unavailable cgroup falls through to meminfo.
	writeFile(t, dir, "memory.max", "max\n")
	writeFile(t, dir, "memory.current", "100\n")
	meminfo := writeFile(t, dir, "meminfo",
		"MemTotal:       10000 kB\nMemAvailable:    5000 kB\n")

	chain := []Source{
		NewCgroupSource(dir),
		NewMeminfoSource(meminfo),
	}

	r, ok := SampleChain(chain, th)
	require.True(t, ok)
	assert.Equal(t, SourceMeminfo, r.Source)

	// A working cgroup wins.
	writeFile(t, dir, "memory.max", "1000000\n")
	writeFile(t, dir, "memory.current", "100\n")
	r, ok = SampleChain(chain, th)
	require.True(t, ok)
	assert.Equal(t, SourceCgroupV2, r.Source)

	// An empty chain yields nothing.
	_, ok = SampleChain(nil, th)
	assert.False(t, ok)
}
