package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Mode          string      `json:"mode"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Sensor        *SensorJSON `json:"sensor,omitempty"`
	Sync          SyncJSON    `json:"sync"`
	Config        ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// SensorJSON is the JSON representation of the live sensor state.
type SensorJSON struct {
	State          string  `json:"state"`
	LastBPM        float64 `json:"last_bpm"`
	LastReading    string  `json:"last_reading,omitempty"`
	InZone5        bool    `json:"in_zone5"`
	Zone5Minutes   float64 `json:"zone5_minutes"`
	Readings       int     `json:"readings"`
	PendingSamples int     `json:"pending_samples"`
}

// SyncJSON summarizes sync activity.
type SyncJSON struct {
	Count        int     `json:"count"`
	Errors       int     `json:"errors"`
	LastTime     string  `json:"last_time,omitempty"`
	LastID       string  `json:"last_id,omitempty"`
	NewDays      int     `json:"new_days"`
	TotalDays    int     `json:"total_days"`
	TodayMinutes float64 `json:"today_minutes"`
	LastError    string  `json:"last_error,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms,omitempty"`
	FlushMs     int64  `json:"flush_ms,omitempty"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	TickMs      int64  `json:"tick_ms"`
	Band        string `json:"band"`
	Backend     string `json:"backend"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Mode:          snap.Config.Mode,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Sync:          SyncJSON{Count: snap.Syncs, Errors: snap.SyncErrors},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			FlushMs:     snap.Config.FlushMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			TickMs:      snap.Config.TickMs,
			Band:        snap.Config.Band,
			Backend:     snap.Config.Backend,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if ls := snap.LastSync; ls != nil {
		inner.Sync.LastTime = ls.Time.UTC().Format(time.RFC3339)
		inner.Sync.LastID = ls.SyncID
		inner.Sync.NewDays = ls.NewDays
		inner.Sync.TotalDays = ls.TotalDays
		inner.Sync.TodayMinutes = ls.TodayMinutes
		inner.Sync.LastError = ls.Err
	}
	return inner
}

func buildSensor(snap Snapshot, inner *StatusInner) {
	// The ingest server has no local sensor.
	if snap.Config.Mode != "monitor" {
		return
	}
	s := snap.Sensor
	state := string(s.State)
	if state == "" {
		state = string(SensorUnknown)
	}
	inner.Sensor = &SensorJSON{
		State:          state,
		LastBPM:        s.LastBPM,
		InZone5:        s.InBand,
		Zone5Minutes:   s.InBandTime.Minutes(),
		Readings:       s.Readings,
		PendingSamples: s.Pending,
	}
	if !s.LastReading.IsZero() {
		inner.Sensor.LastReading = s.LastReading.UTC().Format(time.RFC3339)
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildSensor(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildSensor(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
