// internal/config/config.go
package config

type Config struct {
	Meter MeterConfig `yaml:"meter"`
}

type MeterConfig struct {
	Storage  StorageConfig  `yaml:"storage"`
	Serial   SerialConfig   `yaml:"serial"`
	Sampling SamplingConfig `yaml:"sampling"`
	Save     SaveConfig     `yaml:"save"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Log      LogConfig      `yaml:"log"`
}

// ---- STORAGE ----

type StorageConfig struct {
	// Image is the path of the EEPROM image file backing the persistent
	// state (configuration record pages + archive rings).
	Image string `yaml:"image"`
}

// ---- SERIAL ----

type SerialConfig struct {
	Port      string `yaml:"port"`
	BaudRate  int    `yaml:"baud_rate"`
	DataBits  int    `yaml:"data_bits"`
	Parity    string `yaml:"parity"` // N, E, O
	StopBits  int    `yaml:"stop_bits"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- SAMPLING ----

type SamplingConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- SAVE ----

type SaveConfig struct {
	// IntervalS is the period of the background record save (uptime and
	// flow counters). Register writes save immediately regardless.
	IntervalS int `yaml:"interval_s"`
}

// ---- DEFAULTS ----

// DefaultsConfig seeds the configuration record when both stored copies
// fail validation (factory-fresh or doubly corrupted device).
type DefaultsConfig struct {
	SlaveAddress uint8  `yaml:"slave_address"`
	SerialNumber uint32 `yaml:"serial_number"`
}

// ---- LOG ----

type LogConfig struct {
	// File is the log destination; empty means stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}
