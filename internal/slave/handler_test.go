// internal/slave/handler_test.go
package slave

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/aquametrics/flowmeter/internal/crc16"
	"github.com/aquametrics/flowmeter/internal/options"
	"github.com/aquametrics/flowmeter/internal/rtu"
	"github.com/aquametrics/flowmeter/internal/storage"
	"github.com/aquametrics/flowmeter/internal/telemetry"
)

func frame(body ...byte) []byte {
	crc := crc16.Modbus(body)
	return append(body, byte(crc), byte(crc>>8))
}

// newFixture returns a handler for slave 1 with a saved record carrying a
// known serial number and a telemetry snapshot.
func newFixture(t *testing.T) (*Handler, *storage.MemDevice, *options.Record, telemetry.Snapshot) {
	t.Helper()

	dev := storage.NewMemDevice(2 * options.PageSize)
	rec := options.New()
	rec.SetSerialNumber(0x12345678)
	rec.SetSlaveAddress(0x01)
	if err := options.Save(dev, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	snap := telemetry.Snapshot{FlowRate: 1.5, HourFlow: 12, DayFlow: 240, MonthFlow: 7200}
	return NewHandler(0x01), dev, rec, snap
}

// checkFrame validates the trailing CRC and returns the frame without it.
func checkFrame(t *testing.T, reply []byte) []byte {
	t.Helper()
	if len(reply) < 4 {
		t.Fatalf("reply too short: % X", reply)
	}
	body := reply[:len(reply)-2]
	crc := crc16.Modbus(body)
	if reply[len(reply)-2] != byte(crc) || reply[len(reply)-1] != byte(crc>>8) {
		t.Fatalf("reply crc = % X, want %02X %02X", reply[len(reply)-2:], byte(crc), byte(crc>>8))
	}
	return body
}

func TestHandle_ReadSerialNumber(t *testing.T) {
	h, dev, rec, snap := newFixture(t)

	// Registers 1..2 cover record bytes 2..5: the serial number,
	// little-endian.
	reply, err := h.Handle(dev, rec, snap, frame(0x01, 0x03, 0x00, 0x01, 0x00, 0x02))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	body := checkFrame(t, reply)
	want := []byte{0x01, 0x03, 0x04, 0x78, 0x56, 0x34, 0x12}
	if !bytes.Equal(body, want) {
		t.Fatalf("reply = % X, want % X", body, want)
	}
}

func TestHandle_ReadFlowRate(t *testing.T) {
	h, dev, rec, snap := newFixture(t)

	reply, err := h.Handle(dev, rec, snap, frame(0x01, 0x03, 0x00, 0x64, 0x00, 0x02))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	body := checkFrame(t, reply)
	if body[2] != 4 {
		t.Fatalf("byte count = %d, want 4", body[2])
	}
	got := math.Float32frombits(binary.BigEndian.Uint32(body[3:]))
	if got != snap.FlowRate {
		t.Fatalf("flow rate = %v, want %v", got, snap.FlowRate)
	}
}

func TestHandle_ReadInputRegisters(t *testing.T) {
	h, dev, rec, snap := newFixture(t)

	reply, err := h.Handle(dev, rec, snap, frame(0x01, 0x04, 0x00, 0x00, 0x00, 0x08))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	body := checkFrame(t, reply)
	if body[2] != 16 {
		t.Fatalf("byte count = %d, want 16", body[2])
	}
	if !bytes.Equal(body[3:], telemetry.Encode(snap)) {
		t.Fatalf("payload = % X", body[3:])
	}
}

func TestHandle_IllegalAddress(t *testing.T) {
	h, dev, rec, snap := newFixture(t)

	cases := [][]byte{
		frame(0x01, 0x03, 0x10, 0x00, 0x00, 0x01), // holding, unmapped
		frame(0x01, 0x03, 0x00, 0x6A, 0x00, 0x04), // flow block overrun
		frame(0x01, 0x03, 0x00, 0x10, 0x00, 0x28), // mirror read past record end
		frame(0x01, 0x04, 0x00, 0x07, 0x00, 0x02), // input block overrun
	}
	for _, f := range cases {
		reply, err := h.Handle(dev, rec, snap, f)
		if err != nil {
			t.Fatalf("handle(% X) failed: %v", f, err)
		}
		body := checkFrame(t, reply)
		if body[1] != f[1]|0x80 || body[2] != uint8(rtu.IllegalDataAddress) {
			t.Fatalf("handle(% X) reply = % X, want IllegalDataAddress exception", f, body)
		}
	}
}

func TestHandle_ZeroQuantity(t *testing.T) {
	h, dev, rec, snap := newFixture(t)

	reply, err := h.Handle(dev, rec, snap, frame(0x01, 0x03, 0x00, 0x00, 0x00, 0x00))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	body := checkFrame(t, reply)
	if body[1] != 0x83 || body[2] != uint8(rtu.IllegalDataValue) {
		t.Fatalf("reply = % X, want IllegalDataValue exception", body)
	}
}

func TestHandle_WriteSingleRegister(t *testing.T) {
	h, dev, rec, snap := newFixture(t)

	// Register 1 covers record bytes 2 and 3 (low half of the serial).
	req := frame(0x01, 0x06, 0x00, 0x01, 0xAB, 0xCD)
	reply, err := h.Handle(dev, rec, snap, req)
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	body := checkFrame(t, reply)
	want := []byte{0x01, 0x06, 0x00, 0x01, 0xAB, 0xCD}
	if !bytes.Equal(body, want) {
		t.Fatalf("reply = % X, want echo % X", body, want)
	}

	b := rec.Bytes()
	if b[2] != 0xAB || b[3] != 0xCD {
		t.Fatalf("record bytes 2,3 = %02X %02X, want AB CD", b[2], b[3])
	}

	// The write must be durable.
	loaded, err := options.Load(dev)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !bytes.Equal(loaded.Bytes(), rec.Bytes()) {
		t.Fatalf("persisted record differs from in-memory record")
	}
}

func TestHandle_WriteMultipleRegisters(t *testing.T) {
	h, dev, rec, snap := newFixture(t)

	req := frame(0x01, 0x10, 0x00, 0x01, 0x00, 0x02, 0x04, 0x12, 0x34, 0x56, 0x78)
	reply, err := h.Handle(dev, rec, snap, req)
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	body := checkFrame(t, reply)
	want := []byte{0x01, 0x10, 0x00, 0x01, 0x00, 0x02}
	if !bytes.Equal(body, want) {
		t.Fatalf("reply = % X, want % X", body, want)
	}

	// Record bytes 2..5 now hold 12 34 56 78, read back little-endian.
	if sn := rec.SerialNumber(); sn != 0x78563412 {
		t.Fatalf("serial = 0x%08X, want 0x78563412", sn)
	}
}

func TestHandle_WriteOutOfRange(t *testing.T) {
	h, dev, rec, snap := newFixture(t)

	reply, err := h.Handle(dev, rec, snap, frame(0x01, 0x06, 0x00, 0x20, 0x00, 0x01))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	body := checkFrame(t, reply)
	if body[1] != 0x86 || body[2] != uint8(rtu.IllegalDataAddress) {
		t.Fatalf("reply = % X, want IllegalDataAddress exception", body)
	}
}

// failWriteDevice reads fine but refuses every write, like a worn-out or
// write-protected EEPROM.
type failWriteDevice struct {
	*storage.MemDevice
}

func (d *failWriteDevice) Write(offset uint32, p []byte) error {
	return errors.New("write disabled")
}

func TestHandle_WriteSaveFailure(t *testing.T) {
	h, _, rec, snap := newFixture(t)
	dev := &failWriteDevice{MemDevice: storage.NewMemDevice(2 * options.PageSize)}

	reply, err := h.Handle(dev, rec, snap, frame(0x01, 0x06, 0x00, 0x01, 0xAB, 0xCD))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	body := checkFrame(t, reply)
	if body[1] != 0x86 || body[2] != uint8(rtu.ServerDeviceFailure) {
		t.Fatalf("reply = % X, want ServerDeviceFailure exception", body)
	}
}

func TestHandle_WrongSlaveGetsNoReply(t *testing.T) {
	h, dev, rec, snap := newFixture(t)

	reply, err := h.Handle(dev, rec, snap, frame(0x02, 0x03, 0x00, 0x00, 0x00, 0x01))
	if !errors.Is(err, rtu.ErrInvalidSlaveAddress) {
		t.Fatalf("err = %v, want ErrInvalidSlaveAddress", err)
	}
	if reply != nil {
		t.Fatalf("reply = % X, want none", reply)
	}
}

func TestHandle_BadCRCGetsNoReply(t *testing.T) {
	h, dev, rec, snap := newFixture(t)

	f := frame(0x01, 0x03, 0x00, 0x00, 0x00, 0x01)
	f[len(f)-1] ^= 0xFF
	reply, err := h.Handle(dev, rec, snap, f)
	if !errors.Is(err, rtu.ErrInvalidCRC) {
		t.Fatalf("err = %v, want ErrInvalidCRC", err)
	}
	if reply != nil {
		t.Fatalf("reply = % X, want none", reply)
	}
}

func TestHandle_UnsupportedFunction(t *testing.T) {
	h, dev, rec, snap := newFixture(t)

	reply, err := h.Handle(dev, rec, snap, frame(0x01, 0x05, 0x00, 0x00, 0xFF, 0x00))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	body := checkFrame(t, reply)
	if body[1] != 0x85 || body[2] != uint8(rtu.IllegalFunction) {
		t.Fatalf("reply = % X, want IllegalFunction exception", body)
	}
}
