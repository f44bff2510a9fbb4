//go:build linux

package irblaster

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore sets the affinity of the calling OS thread.  The caller must
// have locked the goroutine to its thread.
func pinToCore(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core % runtime.NumCPU())

	return unix.SchedSetaffinity(0, &set)
}
