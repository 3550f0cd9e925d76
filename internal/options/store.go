// internal/options/store.go
package options

import (
	"errors"
	"fmt"

	"github.com/aquametrics/flowmeter/internal/crc16"
	"github.com/aquametrics/flowmeter/internal/storage"
)

const (
	// PageSize is the on-device size of one record copy, padding included.
	PageSize = 1024

	// OffsetPrimary and OffsetSecondary place the two redundant copies.
	OffsetPrimary   = 0
	OffsetSecondary = PageSize
)

// ErrWrongCRC means both the primary and the secondary page failed
// validation. The caller decides recovery (typically a default record on a
// never-configured device).
var ErrWrongCRC = errors.New("options: wrong crc on both pages")

// Load reads the record, preferring the primary page. The CRC covers every
// page byte after the 2-byte crc field, zero padding included. The secondary
// page is consulted only when the primary fails validation.
func Load(dev storage.Device) (*Record, error) {
	page := make([]byte, PageSize)

	if err := dev.Read(OffsetPrimary, page); err != nil {
		return nil, fmt.Errorf("options: read primary page: %w", err)
	}
	if rec, ok := validate(page); ok {
		return rec, nil
	}

	if err := dev.Read(OffsetSecondary, page); err != nil {
		return nil, fmt.Errorf("options: read secondary page: %w", err)
	}
	if rec, ok := validate(page); ok {
		return rec, nil
	}

	return nil, ErrWrongCRC
}

func validate(page []byte) (*Record, bool) {
	rec, err := FromBytes(page)
	if err != nil {
		return nil, false
	}
	if crc16.CCITTFalse(page[2:]) != rec.CRC() {
		return nil, false
	}
	return rec, true
}

// Save recomputes the record CRC and writes the identical page to both
// copies, primary first. A previously corrupted copy is overwritten
// unconditionally, so every save is self-healing.
func Save(dev storage.Device, rec *Record) error {
	page := make([]byte, PageSize)
	copy(page, rec.Bytes())

	rec.SetCRC(crc16.CCITTFalse(page[2:]))
	copy(page, rec.Bytes())

	if err := dev.Write(OffsetPrimary, page); err != nil {
		return fmt.Errorf("options: write primary page: %w", err)
	}
	if err := dev.Write(OffsetSecondary, page); err != nil {
		return fmt.Errorf("options: write secondary page: %w", err)
	}
	return nil
}
