// internal/telemetry/snapshot_test.go
package telemetry

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEncode_BigEndianFloats(t *testing.T) {
	s := Snapshot{FlowRate: 1.5, HourFlow: 10, DayFlow: 100, MonthFlow: 1000}
	b := Encode(s)

	if len(b) != ValueCount*4 {
		t.Fatalf("encoded length = %d, want %d", len(b), ValueCount*4)
	}

	want := s.Values()
	for i := 0; i < ValueCount; i++ {
		bits := binary.BigEndian.Uint32(b[4*i:])
		if got := math.Float32frombits(bits); got != want[i] {
			t.Fatalf("value %d = %v, want %v", i, got, want[i])
		}
	}
}
