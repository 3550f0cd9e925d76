// internal/storage/layout.go
package storage

import "fmt"

// Region is one named span of the device.
type Region struct {
	Name   string
	Offset uint32
	Size   uint32
}

// End returns the last byte of the region (inclusive).
func (r Region) End() uint32 {
	return r.Offset + r.Size - 1
}

// Table is the static placement of every persistent structure on the
// device. It replaces compile-time offset arithmetic with an explicit map
// that is validated once at startup.
type Table []Region

// Validate rejects empty and overlapping regions.
// Touching regions are allowed; ranges are inclusive.
func (t Table) Validate() error {
	for i, r := range t {
		if r.Name == "" {
			return fmt.Errorf("layout: region %d has no name", i)
		}
		if r.Size == 0 {
			return fmt.Errorf("layout: region %q has zero size", r.Name)
		}
		for _, prev := range t[:i] {
			if !(r.End() < prev.Offset || r.Offset > prev.End()) {
				return fmt.Errorf(
					"layout: region %q range=%d-%d overlaps with %q range=%d-%d",
					r.Name, r.Offset, r.End(),
					prev.Name, prev.Offset, prev.End(),
				)
			}
		}
	}
	return nil
}

// Find returns the region with the given name.
func (t Table) Find(name string) (Region, bool) {
	for _, r := range t {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// Capacity returns the minimum device size covering every region.
func (t Table) Capacity() uint32 {
	var max uint32
	for _, r := range t {
		if end := r.Offset + r.Size; end > max {
			max = end
		}
	}
	return max
}
