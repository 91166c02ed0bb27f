//go:build !windows
// +build !windows

package dht

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// NewDHT to create a new DHT struct.
// sensorType is dht11 for DHT11, anything else for AM2302 / DHT22.
func NewDHT(pinName string, temperatureUnit TemperatureUnit, sensorType string) (*DHT, error) {
	// get pin
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("pin %q not found", pinName)
	}
	line := PeriphLine{Pin: pin}

	// set pin to high so ready for first read
	err := line.Out(gpio.High)
	if err != nil {
		return nil, fmt.Errorf("pin out high error: %w", err)
	}

	return NewDHTWithLine(line, HostDelayer{}, temperatureUnit, ParseSensorType(sensorType)), nil
}

// readData will get the payload bytes for humidity and temperature
func (dht *DHT) readData(ctx context.Context) ([4]byte, error) {
	return dht.readLine(ctx)
}
