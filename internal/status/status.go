// Package status provides a thread-safe status tracker for the zone5 daemons.
// It is read by HTTP handlers and by the MQTT system events.
package status

import (
	"sync"
	"time"
)

// SensorState describes the heart rate bridge as last observed.
type SensorState string

const (
	SensorUnknown     SensorState = "UNKNOWN"
	SensorReading     SensorState = "READING"
	SensorIdle        SensorState = "NO_READING"
	SensorUnavailable SensorState = "UNAVAILABLE"
)

// Config contains daemon configuration for display.
type Config struct {
	Mode        string // "serve" or "monitor"
	PollMs      int64
	FlushMs     int64
	HeartbeatMs int64
	TickMs      int64
	Band        string
	Backend     string
	Broker      string
	HTTPAddr    string
}

// SensorInfo is the live sensor and session state.
type SensorInfo struct {
	State       SensorState
	LastBPM     float64
	LastReading time.Time
	InBand      bool
	InBandTime  time.Duration
	Readings    int
	Pending     int
}

// SyncInfo describes the most recent sync attempt.
type SyncInfo struct {
	Time         time.Time
	SyncID       string
	NewDays      int
	TotalDays    int
	TodayMinutes float64
	Err          string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Sensor        SensorInfo
	LastSync      *SyncInfo
	Syncs         int
	SyncErrors    int
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Sensor:    SensorInfo{State: SensorUnknown},
		},
		now: time.Now,
	}
}

// UpdateSensor replaces the live sensor state.
// Called from the monitor loop on every tick.
func (t *Tracker) UpdateSensor(info SensorInfo) {
	t.mu.Lock()
	t.snap.Sensor = info
	t.mu.Unlock()
}

// RecordSync records a sync attempt. A non-empty Err counts as a failure and
// keeps the previous successful totals visible.
func (t *Tracker) RecordSync(info SyncInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if info.Err != "" {
		t.snap.SyncErrors++
		if t.snap.LastSync != nil {
			prev := *t.snap.LastSync
			prev.Err = info.Err
			prev.Time = info.Time
			t.snap.LastSync = &prev
			return
		}
	} else {
		t.snap.Syncs++
	}
	t.snap.LastSync = &info
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastSync != nil {
		ls := *s.LastSync
		s.LastSync = &ls
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
