//go:build !linux

package pipeline

// pinToCore is a no-op off Linux; development builds run unpinned.
func pinToCore(core int) error {
	return nil
}
