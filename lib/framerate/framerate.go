package framerate

import (
	"errors"
	"fmt"
	"time"
)

type Unit uint8

const (
	UnitSecond Unit = iota
	UnitMinute
	UnitHour
)

func (unit Unit) Duration() time.Duration {
	switch unit {
	case UnitSecond:
		return time.Second
	case UnitMinute:
		return time.Minute
	case UnitHour:
		return time.Hour
	}
	return 0
}

// T is a capture rate: Value frames per Unit.
type T struct {
	Value int  `json:"value"`
	Unit  Unit `json:"unit"`
}

func PerSecond(value int) T { return T{Value: value, Unit: UnitSecond} }

func (rate T) String() string {
	unitStr := "seconds"
	switch rate.Unit {
	case UnitSecond:
		unitStr = "seconds"
	case UnitMinute:
		unitStr = "minutes"
	case UnitHour:
		unitStr = "hours"
	}
	return fmt.Sprintf("%v frames per %v", rate.Value, unitStr)
}

// Duration is the time between two frames, or 0 for an invalid rate.
func (rate T) Duration() time.Duration {
	if rate.Value <= 0 {
		return 0
	}
	return rate.Unit.Duration() / time.Duration(rate.Value)
}

// Clamp returns rate with Value bounded to [lo, hi].
func (rate T) Clamp(lo, hi int) T {
	switch {
	case rate.Value < lo:
		rate.Value = lo
	case rate.Value > hi:
		rate.Value = hi
	}
	return rate
}

// Cadence is a fixed capture schedule: one frame every Interval
// until Total has elapsed.
type Cadence struct {
	Interval time.Duration
	Total    time.Duration
}

// Default is 16 frames over 4 seconds.
var Default = Cadence{Interval: 250 * time.Millisecond, Total: 4 * time.Second}

func FromRate(rate T, total time.Duration) Cadence {
	return Cadence{Interval: rate.Duration(), Total: total}
}

func (c Cadence) Validate() error {
	if c.Interval <= 0 {
		return errors.New("capture interval must be positive")
	}
	if c.Total <= 0 {
		return errors.New("capture duration must be positive")
	}
	return nil
}

// Frames is the nominal number of captures, ceil(Total/Interval).
func (c Cadence) Frames() int {
	if c.Interval <= 0 || c.Total <= 0 {
		return 0
	}
	return int((c.Total + c.Interval - 1) / c.Interval)
}

// Progress maps elapsed time onto [0, 1].
func (c Cadence) Progress(elapsed time.Duration) float64 {
	if c.Total <= 0 || elapsed >= c.Total {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(elapsed) / float64(c.Total)
}

func (c Cadence) String() string {
	return fmt.Sprintf("every %v for %v", c.Interval, c.Total)
}
