//go:build linux

package pipeline

import "golang.org/x/sys/unix"

// pinToCore binds the calling thread to one CPU core. Callers hold
// runtime.LockOSThread for the life of the loop.
func pinToCore(core int) error {
	var set unix.CPUSet
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}
