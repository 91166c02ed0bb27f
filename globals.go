package dht

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	logger "github.com/d2r2/go-logger"
)

// lg is the package logger. Change its level with
// logger.ChangePackageLogLevel("dht", level).
var lg = logger.NewPackageLogger("dht", logger.InfoLevel)

// TemperatureUnit is the temperature unit wanted, either Celsius or Fahrenheit
type TemperatureUnit int

const (
	// Celsius temperature unit
	Celsius TemperatureUnit = iota
	// Fahrenheit temperature unit
	Fahrenheit
)

// SensorType is the sensor model, which decides the start signal length
// and how the four payload bytes are converted.
type SensorType int

const (
	// DHT22 also known as AM2302
	DHT22 SensorType = iota
	// DHT11 is the cheaper, lower resolution model
	DHT11
	// AM2302 is the wired version of DHT22
	AM2302 = DHT22
)

// String returns the sensor model name.
func (s SensorType) String() string {
	if s == DHT11 {
		return "DHT11"
	}
	return "DHT22"
}

// ParseSensorType returns DHT11 for "dht11" in any case, DHT22 for anything else.
func ParseSensorType(sensorType string) SensorType {
	if strings.ToLower(sensorType) == "dht11" {
		return DHT11
	}
	return DHT22
}

// startDuration is how long the host holds the line low to request a reading.
func (s SensorType) startDuration() time.Duration {
	if s == DHT11 {
		return 18 * time.Millisecond
	}
	return time.Millisecond
}

// Protocol timing. These encode the sensor's physical timing contract and
// must not be changed.
const (
	// TimeoutBudget is the number of line checks a single wait may use.
	TimeoutBudget = 100
	// PollInterval is the pause between two line checks of one wait.
	PollInterval = time.Microsecond
	// StartPulseWidth is the delay after releasing the line before the
	// sensor response is awaited.
	StartPulseWidth = 48 * time.Microsecond
	// BitSampleDelay is the delay from a bit's rising edge to its sample point.
	// A high pulse still high at this point is a 1.
	BitSampleDelay = 35 * time.Microsecond
)

var (
	// ErrTimeout is returned when the line did not change level within TimeoutBudget checks.
	// Usually no sensor is attached or the line is stuck.
	ErrTimeout = errors.New("dht: timeout waiting for line")
	// ErrChecksumMismatch is returned when a full frame was read but its checksum is wrong.
	ErrChecksumMismatch = errors.New("dht: checksum mismatch")
	// ErrBadData is returned when a valid frame converts to values out of the sensor's range.
	ErrBadData = errors.New("dht: bad data")
	// ErrMaxRetries is returned by ReadRetry when maxRetries is less than 1.
	ErrMaxRetries = errors.New("dht: maxRetries must be at least 1")
)

// DHT struct to interface with the sensor.
// Call NewDHT to create a new one.
type DHT struct {
	line            Line
	delayer         Delayer
	temperatureUnit TemperatureUnit
	sensorType      SensorType
	name            string

	mu        sync.Mutex
	numErrors int
	lastRead  time.Time

	// guards the SenseContinuous goroutine, separate from mu so Halt can
	// cancel a read that holds mu
	haltMu   sync.Mutex
	shutdown chan struct{}
	cancel   context.CancelFunc
}
