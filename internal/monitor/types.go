// Package monitor contains the pure live-session logic of the heart rate daemon.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package monitor

import (
	"time"

	"github.com/sweeney/zone5/internal/zone"
)

// EventType represents a band transition event.
type EventType string

const (
	EventEnterBand EventType = "ZONE5_ENTER"
	EventExitBand  EventType = "ZONE5_EXIT"
)

// Event represents a band transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	BPM       float64
}

// Input represents a single heart rate reading.
type Input struct {
	BPM  float64
	Time time.Time
}

// Session is the live state of one monitoring run. It is a plain value owned
// by the caller: Process and Drain return an updated copy and never modify
// the one passed in.
type Session struct {
	Start       time.Time
	LastReading time.Time
	LastBPM     float64
	MaxBPM      float64
	InBand      bool
	// InBandTime accumulates one tick per in-band reading.
	InBandTime time.Duration
	Readings   int
	Enters     int
	Exits      int
	// Pending holds samples not yet flushed to the coordinator.
	Pending []zone.Sample
}

// InBandMinutes returns InBandTime in minutes.
func (s Session) InBandMinutes() float64 {
	return s.InBandTime.Minutes()
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp  time.Time
	Uptime     time.Duration
	Readings   int
	Pending    int
	LastBPM    float64
	MaxBPM     float64
	InBand     bool
	InBandTime time.Duration
}
