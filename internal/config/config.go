// internal/config/config.go
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Sensor SensorConfig `yaml:"sensor"`
	Read   ReadConfig   `yaml:"read"`
	Log    LogConfig    `yaml:"log"`
}

// ---- SENSOR ----

type SensorConfig struct {
	Pin  string `yaml:"pin"`  // periph pin name, e.g. GPIO4
	Type string `yaml:"type"` // dht11 | dht22 | am2302
	Unit string `yaml:"unit"` // celsius | fahrenheit
}

// ---- READ ----

type ReadConfig struct {
	Retries    int `yaml:"retries"`
	IntervalMs int `yaml:"interval_ms"` // 0 reads once

	// Lock file shared by every process reading this pin (optional)
	LockFile string `yaml:"lock_file"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Load reads and decodes the YAML file at path.
// Unknown keys are rejected. It does not validate.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes a YAML document.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
