package dht

import (
	"context"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Line is the single data wire between host and sensor.
// It must be readable and drivable at the same time.
type Line interface {
	// Read returns the current logic level of the line.
	Read() (gpio.Level, error)
	// Out drives the line. High releases it to the pull-up.
	Out(level gpio.Level) error
}

// Delayer suspends the reading task. Implementations must honor
// microsecond durations and return ctx.Err() when ctx is done.
type Delayer interface {
	Delay(ctx context.Context, d time.Duration) error
}

// PeriphLine adapts a periph.io gpio.PinIO to a Line.
// Driving high switches the pin to input with pull-up so the sensor can
// pull the line low, driving low switches it to output low.
type PeriphLine struct {
	Pin gpio.PinIO
}

// Read reads the pin level. periph pins do not report read errors.
func (p PeriphLine) Read() (gpio.Level, error) {
	return p.Pin.Read(), nil
}

// Out drives the pin.
func (p PeriphLine) Out(level gpio.Level) error {
	if level == gpio.High {
		return p.Pin.In(gpio.PullUp, gpio.NoEdge)
	}
	return p.Pin.Out(gpio.Low)
}

func (p PeriphLine) String() string {
	return p.Pin.String()
}

// HostDelayer delays on the host clock.
// Durations under a millisecond are busy waited, time.Sleep is far too
// coarse for them.
type HostDelayer struct{}

// Delay waits d or until ctx is done.
func (HostDelayer) Delay(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	// ctx is only checked on entry for these
	if d < time.Millisecond {
		startTime := time.Now()
		for time.Since(startTime) < d {
		}
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
