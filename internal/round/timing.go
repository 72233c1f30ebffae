package round

import "time"

// Timing controls how long a target stays visible.
type Timing struct {
	PerDigit time.Duration
	Min      time.Duration
	Max      time.Duration
}

// DefaultTiming shows 650ms per digit, clamped to [1.2s, 6s].
var DefaultTiming = Timing{
	PerDigit: 650 * time.Millisecond,
	Min:      1200 * time.Millisecond,
	Max:      6000 * time.Millisecond,
}

// Duration returns the show duration for a level.
func (t Timing) Duration(level int) time.Duration {
	if level < 1 {
		level = 1
	}
	d := time.Duration(level) * t.PerDigit
	if d < t.Min {
		d = t.Min
	}
	if t.Max > 0 && d > t.Max {
		d = t.Max
	}
	return d
}

// Duration returns the show duration for a level using DefaultTiming.
func Duration(level int) time.Duration {
	return DefaultTiming.Duration(level)
}

// Countdown converts a remaining duration into whole seconds, rounded up and
// never negative.
func Countdown(remaining time.Duration) int {
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}
