// internal/history/ring.go
package history

import (
	"encoding/binary"
	"fmt"

	"github.com/aquametrics/flowmeter/internal/storage"
)

// StatPageOffset is where the history area starts on the device. The three
// standard rings are chained from here, each directly after the previous.
const StatPageOffset = 0x1000

// Params fixes one ring's geometry. Capacity is the bucket count,
// BucketSeconds the time span one bucket covers.
type Params struct {
	Name          string
	Capacity      int32
	BucketSeconds int32
}

// Standard ring geometries: hourly totals for 90 days, daily totals for
// three years, monthly totals for ten years.
var (
	HourParams  = Params{Name: "hour", Capacity: 2160, BucketSeconds: 3600}
	DayParams   = Params{Name: "day", Capacity: 31 * 12 * 3, BucketSeconds: 3600 * 24}
	MonthParams = Params{Name: "month", Capacity: 10 * 12, BucketSeconds: 3600 * 24 * 31}
)

// SizeOnFlash is one ring's reserved region size: a legacy u32 prefix slot,
// the value slots, the service header and its trailing CRC pad.
func SizeOnFlash(capacity int32) uint32 {
	return 4 + 4*uint32(capacity) + HeaderSize + 2
}

// Ring is a fixed-capacity circular buffer of per-bucket flow accumulators
// living in one region of the device. The struct holds only the service
// header; values stay on the device.
type Ring struct {
	name          string
	base          uint32
	capacity      int32
	bucketSeconds int32

	data ServiceData
}

// Open reads and validates the ring's service header. A Corrupt or
// NeverWritten header yields a usable empty ring; the returned State tells
// the caller which case it was.
func Open(dev storage.Device, region storage.Region, p Params) (*Ring, State, error) {
	if p.Capacity <= 0 || p.BucketSeconds <= 0 {
		return nil, Corrupt, fmt.Errorf("history %s: bad geometry cap=%d bucket=%ds", p.Name, p.Capacity, p.BucketSeconds)
	}
	if region.Size < SizeOnFlash(p.Capacity) {
		return nil, Corrupt, fmt.Errorf(
			"history %s: region %q too small: %d < %d",
			p.Name, region.Name, region.Size, SizeOnFlash(p.Capacity),
		)
	}

	var buf [HeaderSize]byte
	if err := dev.Read(region.Offset, buf[:]); err != nil {
		return nil, Corrupt, fmt.Errorf("history %s: read header: %w", p.Name, err)
	}

	r := &Ring{
		name:          p.Name,
		base:          region.Offset,
		capacity:      p.Capacity,
		bucketSeconds: p.BucketSeconds,
	}

	data, state := decodeServiceData(buf[:])
	if state == Validated {
		r.data = data
	}
	return r, state, nil
}

func (r *Ring) Name() string { return r.name }

func (r *Ring) Empty() bool { return r.data.Size == 0 }

// Len is the number of valid buckets, 0..capacity.
func (r *Ring) Len() uint32 { return r.data.Size }

// Header returns a copy of the live service data.
func (r *Ring) Header() ServiceData { return r.data }

// LastStoredTimestamp is the bucket time of the most recent entry.
func (r *Ring) LastStoredTimestamp() uint32 { return r.data.TimeOfLast }

// FirstStoredTimestamp is derived from the header without device I/O.
func (r *Ring) FirstStoredTimestamp() uint32 {
	if r.data.Size > 0 {
		return r.data.TimeOfLast - uint32(r.bucketSeconds)*(r.data.Size-1)
	}
	return r.data.TimeOfLast
}

// slotOffset places value slot i right after the header and its pad.
func (r *Ring) slotOffset(index uint32) uint32 {
	return r.base + HeaderSize + 2 + 4*index
}

// advanceOffset moves the write cursor one slot forward, wrapping at
// capacity.
func (r *Ring) advanceOffset() {
	r.data.OffsetOfLast++
	if r.data.OffsetOfLast == uint32(r.capacity) {
		r.data.OffsetOfLast = 0
	}
}

// writeValue stores one accumulator value at the current cursor and updates
// the in-memory extent. The header is not persisted here.
func (r *Ring) writeValue(dev storage.Device, val int32, t uint32) error {
	if r.data.Size < uint32(r.capacity) {
		r.data.Size++
	}
	r.data.TimeOfLast = t

	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(val))
	if err := dev.Write(r.slotOffset(r.data.OffsetOfLast), b[:]); err != nil {
		return fmt.Errorf("history %s: write slot %d: %w", r.name, r.data.OffsetOfLast, err)
	}
	return nil
}

// writeHeader advances the cursor past the entry just written, then
// persists the service header. The value slot is always written before the
// header: a crash in between leaves a value whose header does not yet
// reflect it, never a corrupted header.
func (r *Ring) writeHeader(dev storage.Device) error {
	r.advanceOffset()
	b := r.data.marshal()
	if err := dev.Write(r.base, b[:]); err != nil {
		return fmt.Errorf("history %s: write header: %w", r.name, err)
	}
	return nil
}

func (r *Ring) commit(dev storage.Device, val int32, t uint32) error {
	if err := r.writeValue(dev, val, t); err != nil {
		return err
	}
	return r.writeHeader(dev)
}

// Add records val for the bucket containing time (Unix seconds, quantized
// to a 60 s boundary first).
//
// Moving forward past the most recent bucket zero-fills every skipped
// bucket with its correctly advancing timestamp. A forward gap of a full
// capacity or more resets the ring. Moving backward retracts entries to the
// target bucket; a request older than the retained window also resets.
func (r *Ring) Add(dev storage.Device, val int32, t uint32) error {
	t -= t % 60

	if r.Empty() {
		return r.commit(dev, val, t)
	}

	delta := int32(t - r.data.TimeOfLast)
	if delta > 0 {
		if delta/r.bucketSeconds >= r.capacity {
			// Stale buffer: the whole window has passed.
			r.data.Size = 0
			r.data.OffsetOfLast = 0
			return r.commit(dev, val, t)
		}
		for delta > r.bucketSeconds {
			gapTime := r.data.TimeOfLast + uint32(r.bucketSeconds)
			if err := r.commit(dev, 0, gapTime); err != nil {
				return err
			}
			delta -= r.bucketSeconds
		}
		return r.commit(dev, val, t)
	}

	back := -delta
	if back/r.bucketSeconds >= int32(r.data.Size) {
		// Predates the retained window.
		r.data.Size = 0
		r.data.OffsetOfLast = 0
		return r.commit(dev, val, t)
	}

	// Retract the cursor bucket by bucket, zeroing slots on the way.
	var zero [4]byte
	for back >= r.bucketSeconds {
		if err := dev.Write(r.slotOffset(r.data.OffsetOfLast), zero[:]); err != nil {
			return fmt.Errorf("history %s: zero slot %d: %w", r.name, r.data.OffsetOfLast, err)
		}
		if r.data.OffsetOfLast == r.data.Size-1 {
			r.data.Size--
		}
		if r.data.OffsetOfLast == 0 {
			r.data.OffsetOfLast = uint32(r.capacity) - 1
		} else {
			r.data.OffsetOfLast--
		}
		back -= r.bucketSeconds
	}
	return r.commit(dev, val, t)
}

// Find returns the value stored for the bucket containing time, scanning
// backward from the most recent entry over at most Len() entries. Candidate
// index i carries the implied bucket time
// TimeOfLast - bucketSeconds*(Size-1-i).
func (r *Ring) Find(dev storage.Device, t uint32) (int32, bool, error) {
	if r.data.Size == 0 {
		return 0, false, nil
	}
	t -= t % 60

	// The cursor is one past the most recent entry.
	index := r.data.OffsetOfLast
	if index == 0 {
		index = uint32(r.capacity) - 1
	} else {
		index--
	}
	for i := uint32(0); i < r.data.Size; i++ {
		var b [4]byte
		if err := dev.Read(r.slotOffset(index), b[:]); err != nil {
			return 0, false, fmt.Errorf("history %s: read slot %d: %w", r.name, index, err)
		}

		expected := r.data.TimeOfLast - (r.data.Size-1-index)*uint32(r.bucketSeconds)
		if expected == t {
			return int32(binary.LittleEndian.Uint32(b[:])), true, nil
		}

		if index == 0 {
			index = uint32(r.capacity) - 1
		} else {
			index--
		}
	}
	return 0, false, nil
}
