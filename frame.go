package dht

import (
	"context"
	"errors"

	"periph.io/x/conn/v3/gpio"
)

// Frame is one sensor transmission: four payload bytes and their checksum.
type Frame struct {
	Data     [4]byte
	Checksum byte
}

// Sum returns the mod 256 sum of the payload bytes.
func (f Frame) Sum() byte {
	var sum byte
	for _, b := range f.Data {
		sum += b
	}
	return sum
}

// Valid reports whether the checksum matches the payload.
func (f Frame) Valid() bool {
	return f.Sum() == f.Checksum
}

// PinError is a failed read or write on the line. Err is the line's own error.
type PinError struct {
	Op  string
	Err error
}

func (e *PinError) Error() string {
	return "dht: line " + e.Op + ": " + e.Err.Error()
}

func (e *PinError) Unwrap() error {
	return e.Err
}

// lineError maps an error returned by a Line into the decoder's errors.
// Errors that already are one of them pass through, anything else is
// wrapped in a PinError keeping the cause.
func lineError(op string, err error) error {
	var pinErr *PinError
	if errors.As(err, &pinErr) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrChecksumMismatch) {
		return err
	}
	return &PinError{Op: op, Err: err}
}

// levelIs returns a condition that is true while the line is at level.
func levelIs(line Line, level gpio.Level) func() (bool, error) {
	return func() (bool, error) {
		l, err := line.Read()
		if err != nil {
			return false, err
		}
		return l == level, nil
	}
}

// waitUntil checks cond up to TimeoutBudget times with PollInterval between
// checks until it is true.
func waitUntil(ctx context.Context, delayer Delayer, cond func() (bool, error)) error {
	for i := 0; i < TimeoutBudget; i++ {
		if i > 0 {
			if err := delayer.Delay(ctx, PollInterval); err != nil {
				return err
			}
		}
		ok, err := cond()
		if err != nil {
			return lineError("read", err)
		}
		if ok {
			return nil
		}
	}
	return ErrTimeout
}

// readBit reads one bit. A short high pulse is 0, a long one is 1, told
// apart by the level BitSampleDelay after the rising edge.
func readBit(ctx context.Context, delayer Delayer, line Line) (bool, error) {
	err := waitUntil(ctx, delayer, levelIs(line, gpio.High))
	if err != nil {
		return false, err
	}
	err = delayer.Delay(ctx, BitSampleDelay)
	if err != nil {
		return false, err
	}
	level, err := line.Read()
	if err != nil {
		return false, lineError("read", err)
	}
	err = waitUntil(ctx, delayer, levelIs(line, gpio.Low))
	if err != nil {
		return false, err
	}
	return level == gpio.High, nil
}

// readByte reads eight bits, most significant first.
func readByte(ctx context.Context, delayer Delayer, line Line) (byte, error) {
	var b byte
	for i := 0; i < 8; i++ {
		bit, err := readBit(ctx, delayer, line)
		if err != nil {
			return 0, err
		}
		if bit {
			b |= 1 << (7 - i)
		}
	}
	return b, nil
}

// ReadFrame runs one exchange with the sensor and returns the checked frame.
//
// The host start signal (line held low) must already have been sent; ReadFrame
// releases the line, waits for the sensor's response and reads 5 bytes.
// On any error the returned Frame is zero, a frame with a bad checksum is
// never returned. No retry is done.
func ReadFrame(ctx context.Context, delayer Delayer, line Line) (Frame, error) {
	// release, a failure here is tolerated by the sensor
	_ = line.Out(gpio.High)

	err := delayer.Delay(ctx, StartPulseWidth)
	if err != nil {
		return Frame{}, err
	}

	// sensor response
	err = waitUntil(ctx, delayer, levelIs(line, gpio.High))
	if err != nil {
		lg.Debugf("no sensor response (high): %v", err)
		return Frame{}, err
	}
	err = waitUntil(ctx, delayer, levelIs(line, gpio.Low))
	if err != nil {
		lg.Debugf("no sensor response (low): %v", err)
		return Frame{}, err
	}

	var frame Frame
	for i := range frame.Data {
		frame.Data[i], err = readByte(ctx, delayer, line)
		if err != nil {
			lg.Debugf("read data byte %d: %v", i, err)
			return Frame{}, err
		}
	}
	frame.Checksum, err = readByte(ctx, delayer, line)
	if err != nil {
		lg.Debugf("read checksum byte: %v", err)
		return Frame{}, err
	}

	if !frame.Valid() {
		lg.Debugf("checksum 0x%02x, data % x sums to 0x%02x", frame.Checksum, frame.Data[:], frame.Sum())
		return Frame{}, ErrChecksumMismatch
	}

	return frame, nil
}

// ReadRaw reads one frame and returns its four payload bytes.
// See ReadFrame.
func ReadRaw(ctx context.Context, delayer Delayer, line Line) ([4]byte, error) {
	frame, err := ReadFrame(ctx, delayer, line)
	if err != nil {
		return [4]byte{}, err
	}
	return frame.Data, nil
}
