// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// MinIntervalMs is the shortest repeat interval; the sensors cannot be read
// more often than once every 2 seconds.
const MinIntervalMs = 2000

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if strings.TrimSpace(cfg.Sensor.Pin) == "" {
		return fmt.Errorf("sensor.pin is required")
	}

	switch strings.ToLower(cfg.Sensor.Type) {
	case "", "dht11", "dht22", "am2302":
	default:
		return fmt.Errorf("sensor.type %q: must be dht11, dht22 or am2302", cfg.Sensor.Type)
	}

	switch strings.ToLower(cfg.Sensor.Unit) {
	case "", "celsius", "fahrenheit":
	default:
		return fmt.Errorf("sensor.unit %q: must be celsius or fahrenheit", cfg.Sensor.Unit)
	}

	if cfg.Read.Retries < 0 {
		return fmt.Errorf("read.retries %d: must not be negative", cfg.Read.Retries)
	}

	if cfg.Read.IntervalMs < 0 || (cfg.Read.IntervalMs > 0 && cfg.Read.IntervalMs < MinIntervalMs) {
		return fmt.Errorf("read.interval_ms %d: must be 0 or at least %d", cfg.Read.IntervalMs, MinIntervalMs)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be debug, info, warn or error", cfg.Log.Level)
	}

	return nil
}
