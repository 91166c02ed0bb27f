// cmd/dhtread/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	logger "github.com/d2r2/go-logger"
	"github.com/gofrs/flock"

	dht "github.com/MichaelS11/go-dht"
	"github.com/MichaelS11/go-dht/internal/config"
)

var lg = logger.NewPackageLogger("main", logger.InfoLevel)

// swapped in tests
var (
	osExit         = os.Exit
	finalizeLogger = logger.FinalizeLogger
)

func main() {
	if len(os.Args) < 2 {
		fail("usage: dhtread <config.yaml>")
		return
	}

	if err := run(os.Args[1]); err != nil {
		fail(err)
		return
	}
	finalizeLogger()
}

// fail logs, flushes the logger and exits with status 1.
func fail(args ...interface{}) {
	lg.Error(args...)
	finalizeLogger()
	osExit(1)
}

func run(cfgPath string) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	level := logLevel(cfg.Log.Level)
	if err := logger.ChangePackageLogLevel("dht", level); err != nil {
		return err
	}
	if err := logger.ChangePackageLogLevel("main", level); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Sensor
	// --------------------

	if err := dht.HostInit(); err != nil {
		return fmt.Errorf("host init failed: %w", err)
	}

	unit := dht.Celsius
	if cfg.Sensor.Unit == "fahrenheit" {
		unit = dht.Fahrenheit
	}
	sensor, err := dht.NewDHT(cfg.Sensor.Pin, unit, cfg.Sensor.Type)
	if err != nil {
		return fmt.Errorf("sensor init failed (pin=%s): %w", cfg.Sensor.Pin, err)
	}
	defer sensor.Halt()

	var lock *flock.Flock
	if cfg.Read.LockFile != "" {
		lock = flock.New(cfg.Read.LockFile)
	}

	lg.Infof("reading %s every %dms", sensor, cfg.Read.IntervalMs)

	// --------------------
	// Read loop
	// --------------------

	interval := time.Duration(cfg.Read.IntervalMs) * time.Millisecond
	for {
		humidity, temperature, err := readLocked(ctx, sensor, lock, cfg.Read.Retries)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil && interval == 0:
			return fmt.Errorf("read failed: %w", err)
		case err != nil:
			lg.Errorf("read failed: %v", err)
		default:
			fmt.Printf("%s humidity=%.1f%% temperature=%.1f %s\n",
				time.Now().Format(time.RFC3339), humidity, temperature, unitSymbol(unit))
		}

		if interval == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// readLocked reads the sensor while holding lock, if there is one, so other
// processes do not drive the same pin at the same time.
func readLocked(ctx context.Context, sensor *dht.DHT, lock *flock.Flock, retries int) (float64, float64, error) {
	if lock != nil {
		locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
		if err != nil {
			return 0, 0, fmt.Errorf("lock %s: %w", lock.Path(), err)
		}
		if !locked {
			return 0, 0, fmt.Errorf("lock %s: not acquired", lock.Path())
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				lg.Warningf("unlock %s: %v", lock.Path(), err)
			}
		}()
	}

	return sensor.ReadRetryContext(ctx, retries)
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

func unitSymbol(unit dht.TemperatureUnit) string {
	if unit == dht.Fahrenheit {
		return "°F"
	}
	return "°C"
}
