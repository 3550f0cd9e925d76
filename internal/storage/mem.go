// internal/storage/mem.go
package storage

import "fmt"

// MemDevice is an in-memory Device. New instances read back 0xFF
// everywhere, like a factory-fresh EEPROM.
type MemDevice struct {
	buf []byte
}

func NewMemDevice(capacity int) *MemDevice {
	buf := make([]byte, capacity)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &MemDevice{buf: buf}
}

func (m *MemDevice) Capacity() int { return len(m.buf) }

// Bytes exposes the backing array for test assertions and fault injection.
func (m *MemDevice) Bytes() []byte { return m.buf }

func (m *MemDevice) Read(offset uint32, p []byte) error {
	end := int(offset) + len(p)
	if end > len(m.buf) {
		return fmt.Errorf("storage: read [%d:%d) out of range (capacity %d)", offset, end, len(m.buf))
	}
	copy(p, m.buf[offset:end])
	return nil
}

func (m *MemDevice) Write(offset uint32, p []byte) error {
	end := int(offset) + len(p)
	if end > len(m.buf) {
		return fmt.Errorf("storage: write [%d:%d) out of range (capacity %d)", offset, end, len(m.buf))
	}
	copy(m.buf[offset:end], p)
	return nil
}
