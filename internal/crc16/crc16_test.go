// internal/crc16/crc16_test.go
package crc16

import "testing"

func TestModbus_KnownVectors(t *testing.T) {
	cases := []struct {
		data []byte
		want uint16
	}{
		{[]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}, 0xCDC5},
		{[]byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03}, 0x8776},
	}

	for _, c := range cases {
		if got := Modbus(c.data); got != c.want {
			t.Fatalf("Modbus(% X) = 0x%04X, want 0x%04X", c.data, got, c.want)
		}
	}
}

func TestModbus_EmptyInput(t *testing.T) {
	if got := Modbus(nil); got != 0xFFFF {
		t.Fatalf("Modbus(nil) = 0x%04X, want init value 0xFFFF", got)
	}
}

func TestCCITTFalse_KnownVectors(t *testing.T) {
	// Standard check value for CRC-16/CCITT-FALSE.
	if got := CCITTFalse([]byte("123456789")); got != 0x29B1 {
		t.Fatalf("CCITTFalse(123456789) = 0x%04X, want 0x29B1", got)
	}
	if got := CCITTFalse(nil); got != 0xFFFF {
		t.Fatalf("CCITTFalse(nil) = 0x%04X, want 0xFFFF", got)
	}
}

func TestCCITTFalse_DiffersFromModbus(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	if CCITTFalse(data) == Modbus(data) {
		t.Fatalf("variants must not agree on % X", data)
	}
}
