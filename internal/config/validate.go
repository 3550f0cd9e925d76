// internal/config/validate.go
package config

import (
	"fmt"
)

// validBaudRates are the line speeds the RS-485 transceiver supports.
var validBaudRates = map[int]bool{
	1200:   true,
	2400:   true,
	4800:   true,
	9600:   true,
	19200:  true,
	38400:  true,
	57600:  true,
	115200: true,
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	m := &cfg.Meter

	// ------------------------------------------------------------
	// STORAGE
	// ------------------------------------------------------------

	if m.Storage.Image == "" {
		return fmt.Errorf("storage.image must be set")
	}

	// ------------------------------------------------------------
	// SERIAL LINE
	// ------------------------------------------------------------

	if m.Serial.Port == "" {
		return fmt.Errorf("serial.port must be set")
	}

	// Zero values are filled in by Normalize; explicit values must be sane.
	if m.Serial.BaudRate != 0 && !validBaudRates[m.Serial.BaudRate] {
		return fmt.Errorf("serial.baud_rate %d is not supported", m.Serial.BaudRate)
	}

	if m.Serial.DataBits != 0 && m.Serial.DataBits != 8 {
		return fmt.Errorf("serial.data_bits must be 8, got %d", m.Serial.DataBits)
	}

	switch m.Serial.Parity {
	case "", "N", "E", "O":
	default:
		return fmt.Errorf("serial.parity must be N, E or O, got %q", m.Serial.Parity)
	}

	if m.Serial.StopBits != 0 && m.Serial.StopBits != 1 && m.Serial.StopBits != 2 {
		return fmt.Errorf("serial.stop_bits must be 1 or 2, got %d", m.Serial.StopBits)
	}

	if m.Serial.TimeoutMs < 0 {
		return fmt.Errorf("serial.timeout_ms must not be negative")
	}

	// ------------------------------------------------------------
	// INTERVALS
	// ------------------------------------------------------------

	if m.Sampling.IntervalMs < 0 {
		return fmt.Errorf("sampling.interval_ms must not be negative")
	}

	if m.Save.IntervalS < 0 {
		return fmt.Errorf("save.interval_s must not be negative")
	}

	// ------------------------------------------------------------
	// RECORD DEFAULTS
	// ------------------------------------------------------------

	// Slave 0 is the broadcast address; 248-255 are reserved.
	if m.Defaults.SlaveAddress != 0 &&
		(m.Defaults.SlaveAddress < 1 || m.Defaults.SlaveAddress > 247) {
		return fmt.Errorf("defaults.slave_address must be in 1..247, got %d", m.Defaults.SlaveAddress)
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	if m.Log.MaxSizeMB < 0 || m.Log.MaxBackups < 0 || m.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}

	return nil
}
