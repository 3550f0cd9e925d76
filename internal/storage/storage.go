// internal/storage/storage.go
package storage

// Device is a flat, randomly writable byte array (EEPROM-style: no
// erase-before-write). Offsets are absolute device addresses.
//
// Callers must hold exclusive access for the duration of one logical
// operation; see Guard.
type Device interface {
	Read(offset uint32, p []byte) error
	Write(offset uint32, p []byte) error
}
