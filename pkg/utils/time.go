package utils

import (
	"fmt"
	"math"
	"time"
)

// Seconds converts a duration into the float seconds the player speaks.
func Seconds(d time.Duration) float64 {
	return d.Seconds()
}

// FromSeconds converts player seconds into a duration.
func FromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Drift returns the absolute distance between two player positions, in seconds.
func Drift(a, b float64) float64 {
	return math.Abs(a - b)
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", d/time.Minute, (d%time.Minute)/time.Second)
	}
	return fmt.Sprintf("%dh%dm", d/time.Hour, (d%time.Hour)/time.Minute)
}
