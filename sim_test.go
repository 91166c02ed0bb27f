package dht

import (
	"context"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// segment is the line held at level for d.
type segment struct {
	level gpio.Level
	d     time.Duration
}

// simLine is a sensor on a virtual clock. It is both the Line and the
// Delayer of a read: delays move the clock, reads return the level the
// segments give at that time. The segments start over each time the line
// is released high, after the last one the line is at idle.
type simLine struct {
	segments []segment
	idle     gpio.Level

	now   time.Duration
	start time.Duration

	reads  int
	delays []time.Duration
	outs   []gpio.Level

	// failAt is the 1-based read that returns failErr, 0 for none.
	failAt  int
	failErr error
	outErr  error
}

func (s *simLine) Read() (gpio.Level, error) {
	s.reads++
	if s.failAt > 0 && s.reads == s.failAt {
		return gpio.Low, s.failErr
	}
	return s.levelAt(s.now - s.start), nil
}

func (s *simLine) Out(level gpio.Level) error {
	s.outs = append(s.outs, level)
	if level == gpio.High {
		s.start = s.now
	}
	return s.outErr
}

func (s *simLine) Delay(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.delays = append(s.delays, d)
	s.now += d
	return nil
}

func (s *simLine) String() string {
	return "sim"
}

func (s *simLine) levelAt(t time.Duration) gpio.Level {
	var end time.Duration
	for _, seg := range s.segments {
		end += seg.d
		if t < end {
			return seg.level
		}
	}
	return s.idle
}

// pollDelays counts the PollInterval delays seen so far.
func (s *simLine) pollDelays() int {
	n := 0
	for _, d := range s.delays {
		if d == PollInterval {
			n++
		}
	}
	return n
}

// bitSegments is the sensor sending one bit: 50µs low, then high for
// 26µs (0) or 70µs (1).
func bitSegments(bit bool) []segment {
	high := 26 * time.Microsecond
	if bit {
		high = 70 * time.Microsecond
	}
	return []segment{
		{gpio.Low, 50 * time.Microsecond},
		{gpio.High, high},
	}
}

// byteSegments is the sensor sending b, most significant bit first.
func byteSegments(b byte) []segment {
	var segs []segment
	for i := 7; i >= 0; i-- {
		segs = append(segs, bitSegments(b>>i&1 == 1)...)
	}
	return segs
}

// sensorSegments is a whole sensor answer to a start signal, measured from
// the line release: pull-up time, response low and high, the bytes, and
// the closing low.
func sensorSegments(bytes ...byte) []segment {
	segs := []segment{
		{gpio.High, 30 * time.Microsecond},
		{gpio.Low, 80 * time.Microsecond},
		{gpio.High, 80 * time.Microsecond},
	}
	for _, b := range bytes {
		segs = append(segs, byteSegments(b)...)
	}
	return append(segs, segment{gpio.Low, 50 * time.Microsecond})
}

func newSensor(bytes ...byte) *simLine {
	return &simLine{segments: sensorSegments(bytes...), idle: gpio.High}
}
