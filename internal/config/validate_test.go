// internal/config/validate_test.go
package config

import "testing"

// helper to build a minimal valid config quickly
func validConfig() *Config {
	return &Config{
		Meter: MeterConfig{
			Storage: StorageConfig{Image: "/var/lib/flowmeter/eeprom.img"},
			Serial:  SerialConfig{Port: "/dev/ttyUSB0"},
		},
	}
}

// ---- tests ----

func TestValidate_MinimalConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingImage(t *testing.T) {
	cfg := validConfig()
	cfg.Meter.Storage.Image = ""

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing storage.image, got nil")
	}
}

func TestValidate_MissingPort(t *testing.T) {
	cfg := validConfig()
	cfg.Meter.Serial.Port = ""

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing serial.port, got nil")
	}
}

func TestValidate_BadBaudRate(t *testing.T) {
	cfg := validConfig()
	cfg.Meter.Serial.BaudRate = 31250

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unsupported baud rate, got nil")
	}
}

func TestValidate_BadParity(t *testing.T) {
	cfg := validConfig()
	cfg.Meter.Serial.Parity = "X"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for bad parity, got nil")
	}
}

func TestValidate_ReservedSlaveAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Meter.Defaults.SlaveAddress = 248

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for reserved slave address, got nil")
	}
}

func TestNormalize_FillsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Normalize(cfg)

	m := cfg.Meter
	if m.Serial.BaudRate != DefaultBaudRate {
		t.Fatalf("baud_rate = %d, want %d", m.Serial.BaudRate, DefaultBaudRate)
	}
	if m.Serial.Parity != DefaultParity {
		t.Fatalf("parity = %q, want %q", m.Serial.Parity, DefaultParity)
	}
	if m.Sampling.IntervalMs != DefaultSampleMs {
		t.Fatalf("sampling interval = %d, want %d", m.Sampling.IntervalMs, DefaultSampleMs)
	}
	if m.Save.IntervalS != DefaultSaveS {
		t.Fatalf("save interval = %d, want %d", m.Save.IntervalS, DefaultSaveS)
	}
	if m.Defaults.SlaveAddress != DefaultSlaveAddress {
		t.Fatalf("slave address = %d, want %d", m.Defaults.SlaveAddress, DefaultSlaveAddress)
	}
}

func TestNormalize_KeepsExplicitValues(t *testing.T) {
	cfg := validConfig()
	cfg.Meter.Serial.BaudRate = 19200
	cfg.Meter.Defaults.SlaveAddress = 17

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Normalize(cfg)

	if cfg.Meter.Serial.BaudRate != 19200 {
		t.Fatalf("baud_rate = %d, want 19200", cfg.Meter.Serial.BaudRate)
	}
	if cfg.Meter.Defaults.SlaveAddress != 17 {
		t.Fatalf("slave address = %d, want 17", cfg.Meter.Defaults.SlaveAddress)
	}
}
