// internal/options/record.go
package options

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Record is the meter's configuration record: a fixed-layout, little-endian
// packed byte array. The layout is wire/flash format and must stay
// byte-for-byte compatible with the TOF hardware driver, which consumes the
// two opaque register-preset blobs in place.
//
// Layout (byte offsets):
//
//	0   crc (u16, CRC-16/CCITT-FALSE over the rest of the page)
//	2   serial_number (u32)
//	6   sensor_type (u8)
//	7   tdc1000_regs (10 bytes, opaque)
//	17  tdc7200_regs (10 bytes, opaque)
//	27  zero1, zero2 (u32 each)
//	35  v11 v12 v13 v21 v22 v23 (u32 raw float bits each)
//	59  k11 k12 k13 k21 k22 k23 (u32 raw float bits each)
//	83  uptime total hour_total day_total month_total rest (u32 each)
//	107 enable_negative slave_address comm_type modbus_mode (u8 each)
type Record struct {
	raw [Size]byte
}

const (
	offCRC        = 0
	offSerial     = 2
	offSensorType = 6
	offTDC1000    = 7
	offTDC7200    = 17
	offZero1      = 27
	offZero2      = 31
	offVelocity   = 35 // 6 consecutive u32
	offKFactor    = 59 // 6 consecutive u32
	offUptime     = 83
	offTotal      = 87
	offHourTotal  = 91
	offDayTotal   = 95
	offMonthTotal = 99
	offRest       = 103
	offEnableNeg  = 107
	offSlaveAddr  = 108
	offCommType   = 109
	offModbusMode = 110

	// Size is the packed record size in bytes.
	Size = 111

	// RegBlobLen is the length of one opaque TDC register-preset blob.
	RegBlobLen = 10

	// CoeffCount is the number of velocity (and k-factor) coefficients.
	CoeffCount = 6
)

// The record must fit a storage page with room to spare.
var _ [PageSize - Size - 1]byte

// New returns a zeroed record.
func New() *Record {
	return &Record{}
}

// FromBytes reconstructs a record from its packed form.
func FromBytes(b []byte) (*Record, error) {
	if len(b) < Size {
		return nil, fmt.Errorf("options: record needs %d bytes, got %d", Size, len(b))
	}
	r := &Record{}
	copy(r.raw[:], b[:Size])
	return r, nil
}

// Bytes returns a copy of the packed record.
func (r *Record) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, r.raw[:])
	return out
}

func (r *Record) u32(off int) uint32 { return binary.LittleEndian.Uint32(r.raw[off:]) }
func (r *Record) setU32(off int, v uint32) { binary.LittleEndian.PutUint32(r.raw[off:], v) }

// ---- INTEGRITY ----

func (r *Record) CRC() uint16 { return binary.LittleEndian.Uint16(r.raw[offCRC:]) }
func (r *Record) SetCRC(crc uint16) { binary.LittleEndian.PutUint16(r.raw[offCRC:], crc) }

// ---- IDENTITY ----

func (r *Record) SerialNumber() uint32 { return r.u32(offSerial) }
func (r *Record) SetSerialNumber(sn uint32) { r.setU32(offSerial, sn) }
func (r *Record) SensorType() uint8 { return r.raw[offSensorType] }
func (r *Record) SetSensorType(t uint8) { r.raw[offSensorType] = t }

// ---- TOF DRIVER PRESETS (opaque) ----

func (r *Record) TDC1000Regs() [RegBlobLen]byte {
	var out [RegBlobLen]byte
	copy(out[:], r.raw[offTDC1000:])
	return out
}

func (r *Record) SetTDC1000Regs(b [RegBlobLen]byte) {
	copy(r.raw[offTDC1000:offTDC1000+RegBlobLen], b[:])
}

func (r *Record) TDC7200Regs() [RegBlobLen]byte {
	var out [RegBlobLen]byte
	copy(out[:], r.raw[offTDC7200:])
	return out
}

func (r *Record) SetTDC7200Regs(b [RegBlobLen]byte) {
	copy(r.raw[offTDC7200:offTDC7200+RegBlobLen], b[:])
}

// ---- CALIBRATION ----

func (r *Record) Zero1() uint32 { return r.u32(offZero1) }
func (r *Record) SetZero1(v uint32) { r.setU32(offZero1, v) }
func (r *Record) Zero2() uint32 { return r.u32(offZero2) }
func (r *Record) SetZero2(v uint32) { r.setU32(offZero2, v) }

// VelocityRaw returns the i-th velocity coefficient as raw float bits.
// i must be in [0, CoeffCount).
func (r *Record) VelocityRaw(i int) uint32 { return r.u32(offVelocity + 4*i) }
func (r *Record) SetVelocityRaw(i int, v uint32) { r.setU32(offVelocity+4*i, v) }

// KFactorRaw returns the i-th k-factor coefficient as raw float bits.
func (r *Record) KFactorRaw(i int) uint32 { return r.u32(offKFactor + 4*i) }
func (r *Record) SetKFactorRaw(i int, v uint32) { r.setU32(offKFactor+4*i, v) }

// Float views over the raw coefficient bits.
func (r *Record) Velocity(i int) float32 { return math.Float32frombits(r.VelocityRaw(i)) }
func (r *Record) SetVelocity(i int, v float32) { r.SetVelocityRaw(i, math.Float32bits(v)) }
func (r *Record) KFactor(i int) float32 { return math.Float32frombits(r.KFactorRaw(i)) }
func (r *Record) SetKFactor(i int, v float32) { r.SetKFactorRaw(i, math.Float32bits(v)) }

// ---- USAGE COUNTERS ----

func (r *Record) Uptime() uint32 { return r.u32(offUptime) }
func (r *Record) SetUptime(v uint32) { r.setU32(offUptime, v) }
func (r *Record) Total() uint32 { return r.u32(offTotal) }
func (r *Record) SetTotal(v uint32) { r.setU32(offTotal, v) }
func (r *Record) HourTotal() uint32 { return r.u32(offHourTotal) }
func (r *Record) SetHourTotal(v uint32) { r.setU32(offHourTotal, v) }
func (r *Record) DayTotal() uint32 { return r.u32(offDayTotal) }
func (r *Record) SetDayTotal(v uint32) { r.setU32(offDayTotal, v) }
func (r *Record) MonthTotal() uint32 { return r.u32(offMonthTotal) }
func (r *Record) SetMonthTotal(v uint32) { r.setU32(offMonthTotal, v) }
func (r *Record) Rest() uint32 { return r.u32(offRest) }
func (r *Record) SetRest(v uint32) { r.setU32(offRest, v) }

// ---- COMMUNICATION ----

func (r *Record) EnableNegative() uint8 { return r.raw[offEnableNeg] }
func (r *Record) SetEnableNegative(v uint8) { r.raw[offEnableNeg] = v }
func (r *Record) SlaveAddress() uint8 { return r.raw[offSlaveAddr] }
func (r *Record) SetSlaveAddress(a uint8) { r.raw[offSlaveAddr] = a }
func (r *Record) CommType() uint8 { return r.raw[offCommType] }
func (r *Record) SetCommType(v uint8) { r.raw[offCommType] = v }
func (r *Record) ModbusMode() uint8 { return r.raw[offModbusMode] }
func (r *Record) SetModbusMode(v uint8) { r.raw[offModbusMode] = v }
