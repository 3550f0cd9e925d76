// internal/storage/layout_test.go
package storage

import "testing"

func region(name string, offset, size uint32) Region {
	return Region{Name: name, Offset: offset, Size: size}
}

func TestLayout_TouchingRegionsAllowed(t *testing.T) {
	tbl := Table{
		region("a", 0, 10),  // 0-9
		region("b", 10, 10), // 10-19
	}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLayout_OverlapDetected(t *testing.T) {
	tbl := Table{
		region("a", 0, 10), // 0-9
		region("b", 5, 10), // 5-14 -> overlap
	}
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected overlap error, got nil")
	}
}

func TestLayout_ContainedRegionDetected(t *testing.T) {
	tbl := Table{
		region("a", 0, 100),
		region("b", 20, 5),
	}
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected overlap error, got nil")
	}
}

func TestLayout_ZeroSizeRejected(t *testing.T) {
	tbl := Table{region("a", 0, 0)}
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected zero-size error, got nil")
	}
}

func TestLayout_Capacity(t *testing.T) {
	tbl := Table{
		region("a", 0, 10),
		region("b", 100, 50),
	}
	if got := tbl.Capacity(); got != 150 {
		t.Fatalf("Capacity() = %d, want 150", got)
	}
}
