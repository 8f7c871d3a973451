// Package sensor provides heart rate input with hardware abstraction.
// The real implementation counts beat pulses on a Linux GPIO character device.
// The fake implementation allows testing without hardware.
package sensor

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoReading means the bridge is up but has nothing new to report,
	// e.g. the strap is not being worn.
	ErrNoReading = errors.New("sensor: no new reading")

	// ErrUnavailable means the bridge itself is down or closed.
	ErrUnavailable = errors.New("sensor: bridge unavailable")
)

// Reading is one heart rate observation.
type Reading struct {
	Time time.Time
	BPM  float64
}

// Source yields heart rate readings.
type Source interface {
	// Next returns the newest reading since the previous call. It returns
	// ErrNoReading or ErrUnavailable (possibly wrapped) when it has none.
	Next(ctx context.Context) (Reading, error)

	// Close releases hardware resources.
	Close() error
}

// DefaultBeatPin is the BCM line a beat-pulse receiver is wired to.
const DefaultBeatPin = 17

// Plausible beat-to-beat interval range (30 to 240 bpm). Intervals outside it
// are treated as missed or doubled pulses.
const (
	minBeatInterval = 250 * time.Millisecond
	maxBeatInterval = 2 * time.Second
)

// BPMFromBeats derives a heart rate from ascending beat timestamps. Intervals
// outside the plausible range are ignored. ok is false when fewer than one
// usable interval remains.
func BPMFromBeats(beats []time.Duration) (bpm float64, ok bool) {
	var sum time.Duration
	n := 0
	for i := 1; i < len(beats); i++ {
		iv := beats[i] - beats[i-1]
		if iv < minBeatInterval || iv > maxBeatInterval {
			continue
		}
		sum += iv
		n++
	}
	if n == 0 {
		return 0, false
	}
	mean := sum / time.Duration(n)
	return float64(time.Minute) / float64(mean), true
}
