// internal/history/service.go
package history

import (
	"encoding/binary"

	"github.com/aquametrics/flowmeter/internal/crc16"
)

// HeaderSize is the on-device size of the ring service header.
const HeaderSize = 14

// State classifies a service header read from the device. The ring itself
// never picks a fallback; the caller does.
type State int

const (
	// Validated: the header CRC matched.
	Validated State = iota
	// NeverWritten: the header area is still erased (all 0xFF) or blank
	// (all 0x00), i.e. the ring was never initialized.
	NeverWritten
	// Corrupt: the header carries data but its CRC does not match.
	Corrupt
)

func (s State) String() string {
	switch s {
	case Validated:
		return "validated"
	case NeverWritten:
		return "never-written"
	case Corrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// ServiceData tracks the live extent of one ring.
//
// Invariant: 0 <= OffsetOfLast < capacity, 0 <= Size <= capacity; while the
// ring is non-empty, TimeOfLast - FirstStoredTimestamp equals
// bucketSeconds * (Size - 1).
type ServiceData struct {
	Size         uint32
	OffsetOfLast uint32 // write cursor: one slot past the most recent entry
	TimeOfLast   uint32 // Unix seconds, quantized
}

// marshal packs the header little-endian and appends the CRC-16/CCITT-FALSE
// of the 12 payload bytes.
func (d ServiceData) marshal() [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint32(b[0:], d.Size)
	binary.LittleEndian.PutUint32(b[4:], d.OffsetOfLast)
	binary.LittleEndian.PutUint32(b[8:], d.TimeOfLast)
	binary.LittleEndian.PutUint16(b[12:], crc16.CCITTFalse(b[:12]))
	return b
}

func decodeServiceData(b []byte) (ServiceData, State) {
	if blank(b, 0xFF) || blank(b, 0x00) {
		return ServiceData{}, NeverWritten
	}
	if crc16.CCITTFalse(b[:12]) != binary.LittleEndian.Uint16(b[12:]) {
		return ServiceData{}, Corrupt
	}
	return ServiceData{
		Size:         binary.LittleEndian.Uint32(b[0:]),
		OffsetOfLast: binary.LittleEndian.Uint32(b[4:]),
		TimeOfLast:   binary.LittleEndian.Uint32(b[8:]),
	}, Validated
}

func blank(b []byte, fill byte) bool {
	for _, c := range b {
		if c != fill {
			return false
		}
	}
	return true
}
