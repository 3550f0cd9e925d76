// internal/crc16/crc16.go
package crc16

// Modbus computes the CRC-16 used by Modbus RTU framing:
// init 0xFFFF, polynomial 0xA001 (reflected 0x8005), no final xor.
// The result is appended to frames LSB-first.
func Modbus(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// CCITTFalse computes CRC-16/CCITT-FALSE:
// init 0xFFFF, polynomial 0x1021, MSB-first, no reflection, no final xor.
// Used for the options pages and the ring service headers.
func CCITTFalse(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
