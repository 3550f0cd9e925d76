// internal/telemetry/snapshot.go
package telemetry

import (
	"encoding/binary"
	"math"
)

// Snapshot is the live flow telemetry the register map exposes. It contains
// no logic and no memory of the past beyond current state.
type Snapshot struct {
	FlowRate  float32 // instantaneous flow, m3/h
	HourFlow  float32 // running total of the current hour bucket
	DayFlow   float32 // running total of the current day bucket
	MonthFlow float32 // running total of the current month bucket
}

// Register block geometry. Each value is one IEEE-754 float32 spanning two
// 16-bit registers, big-endian on the wire. These values define the
// protocol and MUST NOT be configurable.

// ValueCount is the number of telemetry floats.
const ValueCount = 4

// RegistersPerValue is the register span of one float32.
const RegistersPerValue = 2

// RegisterCount is the total telemetry register span.
const RegisterCount = ValueCount * RegistersPerValue

// Values returns the snapshot in register-map order.
func (s Snapshot) Values() [ValueCount]float32 {
	return [ValueCount]float32{s.FlowRate, s.HourFlow, s.DayFlow, s.MonthFlow}
}

// Encode packs the snapshot into its register-map byte form:
// four big-endian float32, 16 bytes. No IO. No side effects.
func Encode(s Snapshot) []byte {
	out := make([]byte, 0, ValueCount*4)
	for _, v := range s.Values() {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
		out = append(out, b[:]...)
	}
	return out
}
