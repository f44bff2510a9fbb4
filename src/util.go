package irblaster

import (
	"math"
	"time"
)

// Because sometimes it's really convenient to have C's ternary ?:
func IfThenElse[T any](x bool, a T, b T) T { //nolint:ireturn
	if x {
		return a
	} else {
		return b
	}
}

// periodOf is the PWM period for a frequency in Hz.
func periodOf(hz float64) time.Duration {
	return time.Duration(math.Round(float64(time.Second) / hz))
}
