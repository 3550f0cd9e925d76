// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultBaudRate     = 9600
	DefaultDataBits     = 8
	DefaultParity       = "N"
	DefaultStopBits     = 1
	DefaultTimeoutMs    = 500
	DefaultSampleMs     = 1000
	DefaultSaveS        = 60
	DefaultSlaveAddress = 1
	DefaultLogSizeMB    = 10
	DefaultLogBackups   = 3
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	m := &cfg.Meter

	// ------------------------------------------------------------
	// SERIAL LINE DEFAULTS
	// ------------------------------------------------------------

	if m.Serial.BaudRate == 0 {
		m.Serial.BaudRate = DefaultBaudRate
	}
	if m.Serial.DataBits == 0 {
		m.Serial.DataBits = DefaultDataBits
	}
	if m.Serial.Parity == "" {
		m.Serial.Parity = DefaultParity
	}
	if m.Serial.StopBits == 0 {
		m.Serial.StopBits = DefaultStopBits
	}
	if m.Serial.TimeoutMs == 0 {
		m.Serial.TimeoutMs = DefaultTimeoutMs
	}

	// ------------------------------------------------------------
	// INTERVAL DEFAULTS
	// ------------------------------------------------------------

	if m.Sampling.IntervalMs == 0 {
		m.Sampling.IntervalMs = DefaultSampleMs
	}
	if m.Save.IntervalS == 0 {
		m.Save.IntervalS = DefaultSaveS
	}

	// ------------------------------------------------------------
	// RECORD DEFAULTS
	// ------------------------------------------------------------

	if m.Defaults.SlaveAddress == 0 {
		m.Defaults.SlaveAddress = DefaultSlaveAddress
	}

	// ------------------------------------------------------------
	// LOG DEFAULTS (only relevant when a file is set)
	// ------------------------------------------------------------

	if m.Log.File != "" {
		if m.Log.MaxSizeMB == 0 {
			m.Log.MaxSizeMB = DefaultLogSizeMB
		}
		if m.Log.MaxBackups == 0 {
			m.Log.MaxBackups = DefaultLogBackups
		}
	}
}
