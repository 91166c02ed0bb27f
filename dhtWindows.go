//go:build windows
// +build windows

package dht

import (
	"context"
	"time"
)

// NewDHT to create a new DHT struct.
// sensorType is dht11 for DHT11, anything else for AM2302 / DHT22.
// There is no GPIO on windows, reads return zero values.
func NewDHT(pinName string, temperatureUnit TemperatureUnit, sensorType string) (*DHT, error) {
	dht := &DHT{
		delayer:         HostDelayer{},
		temperatureUnit: temperatureUnit,
		sensorType:      ParseSensorType(sensorType),
		name:            pinName,
		// give the pin a second to warm up
		lastRead: time.Now().Add(-1 * time.Second),
	}

	return dht, nil
}

// readData will get the payload bytes for humidity and temperature
func (dht *DHT) readData(ctx context.Context) ([4]byte, error) {
	if dht.line != nil {
		return dht.readLine(ctx)
	}

	// set lastRead so do not read more than once every 2 seconds
	dht.lastRead = time.Now()

	return [4]byte{}, nil
}
