//go:build linux

package shm

import (
	"os"
	"syscall"
)

type region struct {
	data []byte
	file *os.File
}

// mapRegion creates /dev/shm/<name>, removing any stale region of the
// same name, sizes it with ftruncate, and maps it read/write shared.
func mapRegion(name string, size int) (*region, error) {
	path := "/dev/shm/" + name
	_ = os.Remove(path)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, err
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, size,
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &region{data: data, file: f}, nil
}

func (r *region) close() error {
	if err := syscall.Munmap(r.data); err != nil {
		return err
	}
	return r.file.Close()
}
