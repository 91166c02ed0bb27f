package dht

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// HostInit calls periph.io host.Init(). This needs to be done before DHT can be used.
func HostInit() error {
	_, err := host.Init()
	return err
}

// NewDHTWithLine creates a DHT reading through line, timed by delayer.
// The line is not touched until the first read.
func NewDHTWithLine(line Line, delayer Delayer, temperatureUnit TemperatureUnit, sensorType SensorType) *DHT {
	return &DHT{
		line:            line,
		delayer:         delayer,
		temperatureUnit: temperatureUnit,
		sensorType:      sensorType,
		name:            fmt.Sprint(line),
		// give the pin a second to warm up
		lastRead: time.Now().Add(-1 * time.Second),
	}
}

// Read reads the sensor once, returing humidity and temperature, or an error.
// Note that Read will sleep for at least 2 seconds between last call.
// Each reads error adds a half second to sleep time to max of 30 seconds.
func (dht *DHT) Read() (humidity float64, temperature float64, err error) {
	return dht.ReadContext(context.Background())
}

// ReadContext is Read that stops waiting when ctx is done.
func (dht *DHT) ReadContext(ctx context.Context) (humidity float64, temperature float64, err error) {
	humidity, temperature, err = dht.readCelsius(ctx)
	if err != nil {
		return
	}
	if dht.temperatureUnit == Fahrenheit {
		temperature = temperature*9.0/5.0 + 32.0
	}
	return
}

// readCelsius paces, reads and converts one frame. Temperature is in Celsius.
func (dht *DHT) readCelsius(ctx context.Context) (humidity float64, temperature float64, err error) {
	dht.mu.Lock()
	defer dht.mu.Unlock()

	// set sleepTime
	var sleepTime time.Duration
	if dht.numErrors < 57 {
		sleepTime = (2 * time.Second) + (time.Duration(dht.numErrors) * 500 * time.Millisecond)
	} else {
		// sleep max of 30 seconds
		sleepTime = 30 * time.Second
	}
	sleepTime -= time.Since(dht.lastRead)

	// sleep between 2 and 30 seconds
	if sleepTime > 0 {
		lg.Debugf("%s: waiting %v before next read", dht.name, sleepTime)
		err = dht.delayer.Delay(ctx, sleepTime)
		if err != nil {
			return
		}
	}

	data, err := dht.readData(ctx)
	if err == nil {
		humidity, temperature, err = dht.bytesToValues(data)
	}
	if err != nil {
		if ctx.Err() == nil {
			dht.numErrors++
		}
		return
	}
	dht.numErrors = 0

	return
}

// readLine sends the start signal and reads the payload bytes from the line.
func (dht *DHT) readLine(ctx context.Context) ([4]byte, error) {
	// set lastRead so do not read more than once every 2 seconds
	dht.lastRead = time.Now()

	// send start low
	err := dht.line.Out(gpio.Low)
	if err != nil {
		dht.line.Out(gpio.High)
		return [4]byte{}, fmt.Errorf("pin out low error: %w", lineError("out", err))
	}
	err = dht.delayer.Delay(ctx, dht.sensorType.startDuration())
	if err != nil {
		dht.line.Out(gpio.High)
		return [4]byte{}, err
	}

	// disable garbage collection during critical timing part
	gcPercent := debug.SetGCPercent(-1)
	data, err := ReadRaw(ctx, dht.delayer, dht.line)
	// enable garbage collection, done with critical part
	debug.SetGCPercent(gcPercent)

	// set pin to high so ready for next time
	outErr := dht.line.Out(gpio.High)
	if err != nil {
		return [4]byte{}, err
	}
	if outErr != nil {
		return [4]byte{}, fmt.Errorf("pin out high error: %w", lineError("out", outErr))
	}

	return data, nil
}

// bytesToValues will convert the payload bytes into humidity and Celsius temperature values
func (dht *DHT) bytesToValues(data [4]byte) (humidity float64, temperature float64, err error) {
	if dht.sensorType != DHT11 {
		humidityInt := int(data[0])<<8 | int(data[1])
		// sign and magnitude, high bit set is negative
		temperatureInt := int(data[2]&0x7f)<<8 | int(data[3])
		if data[2]&0x80 != 0 {
			temperatureInt = -temperatureInt
		}

		// humidity is between 0 % to 100 %
		if humidityInt > 1000 {
			err = fmt.Errorf("%w - humidity: %v", ErrBadData, humidityInt)
			return
		}
		// temperature between -40 C to 80 C
		if temperatureInt < -400 || temperatureInt > 800 {
			err = fmt.Errorf("%w - temperature: %v", ErrBadData, temperatureInt)
			return
		}

		humidity = float64(humidityInt) / 10.0
		temperature = float64(temperatureInt) / 10.0
		return
	}

	// humidity is between 0 % to 100 %
	if data[0] > 100 || (data[0] == 100 && data[1] > 0) {
		err = fmt.Errorf("%w - humidity: %v.%v", ErrBadData, data[0], data[1])
		return
	}
	// temperature between 0 C to 50 C
	if data[2] > 50 || (data[2] == 50 && data[3] > 0) {
		err = fmt.Errorf("%w - temperature: %v.%v", ErrBadData, data[2], data[3])
		return
	}

	humidity = float64(data[0]) + float64(data[1])/10.0
	temperature = float64(data[2]) + float64(data[3])/10.0
	return
}

// ReadRetry will call Read until there is no errors or the maxRetries is hit.
// Suggest maxRetries to be set around 11.
func (dht *DHT) ReadRetry(maxRetries int) (humidity float64, temperature float64, err error) {
	return dht.ReadRetryContext(context.Background(), maxRetries)
}

// ReadRetryContext is ReadRetry that gives up when ctx is done.
func (dht *DHT) ReadRetryContext(ctx context.Context, maxRetries int) (humidity float64, temperature float64, err error) {
	if maxRetries < 1 {
		err = ErrMaxRetries
		return
	}
	for i := 0; i < maxRetries; i++ {
		humidity, temperature, err = dht.ReadContext(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		lg.Warningf("%s: read %d of %d failed: %v", dht.name, i+1, maxRetries, err)
	}
	return
}

// ReadBackground it means to run in the background, run as a Goroutine.
// sleepDuration is how long it will try to sleep between reads.
// If there is ongoing read errors there will be no notice except that the values will not be updated.
// Will continue to read sensor until stop is closed.
// After it has been stopped, the stopped chan will be closed.
// Will panic if humidity, temperature, or stop are nil.
func (dht *DHT) ReadBackground(humidity *float64, temperature *float64, sleepDuration time.Duration, stop chan struct{}, stopped chan struct{}) {
	var humidityTemp float64
	var temperatureTemp float64
	var err error
	startTime := time.Now().Add(-sleepDuration)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

Loop:
	for {
		if err == nil {
			// no read error, wait for sleepDuration or stop
			select {
			case <-time.After(sleepDuration - time.Since(startTime)):
			case <-stop:
				break Loop
			}
		} else {
			// read error, just check wait for stop
			select {
			case <-stop:
				break Loop
			default:
			}
		}

		startTime = time.Now()
		humidityTemp, temperatureTemp, err = dht.ReadContext(ctx)
		if err != nil {
			lg.Debugf("%s: background read: %v", dht.name, err)
			continue
		}

		*humidity = humidityTemp
		*temperature = temperatureTemp
	}

	close(stopped)
}

// Sense reads the sensor once into env, pacing like Read.
// Pressure is always zero.
func (dht *DHT) Sense(env *physic.Env) error {
	return dht.sense(context.Background(), env)
}

func (dht *DHT) sense(ctx context.Context, env *physic.Env) error {
	env.Temperature = 0
	env.Pressure = 0
	env.Humidity = 0

	humidity, temperature, err := dht.readCelsius(ctx)
	if err != nil {
		return err
	}

	env.Humidity = physic.RelativeHumidity(humidity * float64(physic.PercentRH))
	env.Temperature = physic.ZeroCelsius + physic.Temperature(temperature*float64(physic.Celsius))
	return nil
}

// Precision returns the resolution of the device for it's measured parameters.
func (dht *DHT) Precision(env *physic.Env) {
	env.Pressure = 0
	if dht.sensorType == DHT11 {
		env.Temperature = physic.Celsius
		env.Humidity = physic.PercentRH
		return
	}
	env.Temperature = physic.Celsius / 10
	env.Humidity = physic.PercentRH / 10
}

// SenseContinuous returns a channel that can be read to return values from
// the sensor. The minimum value for interval is 2 seconds. Failed reads are
// skipped. To end the read, call Halt()
func (dht *DHT) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < 2*time.Second {
		return nil, errors.New("dht: invalid duration. minimum 2 seconds")
	}

	dht.haltMu.Lock()
	defer dht.haltMu.Unlock()
	if dht.shutdown != nil {
		return nil, errors.New("dht: sense continuous already running")
	}
	shutdown := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	dht.shutdown = shutdown
	dht.cancel = cancel

	ch := make(chan physic.Env, 16)
	go func() {
		defer close(ch)
		defer cancel()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-shutdown:
				return
			case <-ticker.C:
				e := physic.Env{}
				err := dht.sense(ctx, &e)
				if err != nil {
					lg.Debugf("%s: continuous read: %v", dht.name, err)
					continue
				}
				select {
				case ch <- e:
				case <-shutdown:
					return
				}
			}
		}
	}()
	return ch, nil
}

// Halt interrupts a running SenseContinuous(), including a read it is in
// the middle of, and releases the line.
func (dht *DHT) Halt() error {
	dht.haltMu.Lock()
	if dht.shutdown != nil {
		close(dht.shutdown)
		dht.cancel()
		dht.shutdown = nil
		dht.cancel = nil
	}
	dht.haltMu.Unlock()

	dht.mu.Lock()
	defer dht.mu.Unlock()
	if dht.line == nil {
		return nil
	}
	return dht.line.Out(gpio.High)
}

func (dht *DHT) String() string {
	return fmt.Sprintf("%s: %s", dht.sensorType, dht.name)
}

var _ conn.Resource = &DHT{}
var _ physic.SenseEnv = &DHT{}
