// internal/config/normalize.go
package config

import "strings"

// DefaultRetries is used when read.retries is not set.
const DefaultRetries = 11

// Normalize fills defaults and lower cases the enumerations.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Sensor.Pin = strings.TrimSpace(cfg.Sensor.Pin)

	cfg.Sensor.Type = strings.ToLower(cfg.Sensor.Type)
	if cfg.Sensor.Type == "" || cfg.Sensor.Type == "am2302" {
		cfg.Sensor.Type = "dht22"
	}

	cfg.Sensor.Unit = strings.ToLower(cfg.Sensor.Unit)
	if cfg.Sensor.Unit == "" {
		cfg.Sensor.Unit = "celsius"
	}

	if cfg.Read.Retries == 0 {
		cfg.Read.Retries = DefaultRetries
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
