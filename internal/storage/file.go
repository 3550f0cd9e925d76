// internal/storage/file.go
package storage

import (
	"fmt"
	"os"
)

// FileDevice is a Device backed by an EEPROM image file on disk.
// A missing image is created at full capacity, filled with 0xFF.
type FileDevice struct {
	f        *os.File
	capacity int
}

func OpenFileDevice(path string, capacity int) (*FileDevice, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("storage: capacity must be > 0, got %d", capacity)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open image %s: %w", path, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: stat image %s: %w", path, err)
	}

	if st.Size() < int64(capacity) {
		// Grow to capacity with erased (0xFF) bytes.
		pad := make([]byte, int64(capacity)-st.Size())
		for i := range pad {
			pad[i] = 0xFF
		}
		if _, err := f.WriteAt(pad, st.Size()); err != nil {
			f.Close()
			return nil, fmt.Errorf("storage: initialize image %s: %w", path, err)
		}
	}

	return &FileDevice{f: f, capacity: capacity}, nil
}

func (d *FileDevice) Capacity() int { return d.capacity }

func (d *FileDevice) Close() error { return d.f.Close() }

func (d *FileDevice) Read(offset uint32, p []byte) error {
	if int(offset)+len(p) > d.capacity {
		return fmt.Errorf("storage: read [%d:%d) out of range (capacity %d)", offset, int(offset)+len(p), d.capacity)
	}
	if _, err := d.f.ReadAt(p, int64(offset)); err != nil {
		return fmt.Errorf("storage: read at %d: %w", offset, err)
	}
	return nil
}

func (d *FileDevice) Write(offset uint32, p []byte) error {
	if int(offset)+len(p) > d.capacity {
		return fmt.Errorf("storage: write [%d:%d) out of range (capacity %d)", offset, int(offset)+len(p), d.capacity)
	}
	if _, err := d.f.WriteAt(p, int64(offset)); err != nil {
		return fmt.Errorf("storage: write at %d: %w", offset, err)
	}
	return nil
}
