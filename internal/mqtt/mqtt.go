// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sweeney/zone5/internal/monitor"
	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/zone"
)

// TopicBand is the MQTT topic for live band transitions.
const TopicBand = "fitness/zone5/events"

// TopicSync is the MQTT topic for committed syncs.
const TopicSync = "fitness/zone5/sync"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "fitness/zone5/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a band transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event monitor.Event) error

	// PublishSync sends a committed sync summary to the broker.
	PublishSync(event syncer.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the message published for a band transition.
type Payload struct {
	Zone5 BandPayload `json:"zone5"`
}

// BandPayload contains the band transition details.
type BandPayload struct {
	Timestamp string  `json:"timestamp"`
	Event     string  `json:"event"`
	BPM       float64 `json:"bpm"`
}

// FormatPayload creates the JSON payload for a band transition.
func FormatPayload(event monitor.Event) ([]byte, error) {
	payload := Payload{
		Zone5: BandPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			BPM:       event.BPM,
		},
	}
	return json.Marshal(payload)
}

// SyncPayload is the message published after a committed sync.
type SyncPayload struct {
	Sync SyncPayloadInner `json:"sync"`
}

// SyncPayloadInner contains the sync details.
type SyncPayloadInner struct {
	Timestamp     string           `json:"timestamp"`
	SyncID        string           `json:"sync_id"`
	NewDays       int              `json:"new_days"`
	TotalDays     int              `json:"total_days"`
	TodayMinutes  float64          `json:"today_minutes"`
	TotalMinutes  float64          `json:"total_minutes"`
	CurrentStreak int              `json:"current_streak"`
	LongestStreak int              `json:"longest_streak"`
	LastBPM       float64          `json:"last_bpm"`
	InZone5       bool             `json:"in_zone5"`
	Changed       zone.DailyRecord `json:"changed,omitempty"`
}

// FormatSyncPayload creates the JSON payload for a committed sync.
func FormatSyncPayload(event syncer.Event) ([]byte, error) {
	payload := SyncPayload{
		Sync: SyncPayloadInner{
			Timestamp:     event.Time.UTC().Format(time.RFC3339),
			SyncID:        event.Summary.SyncID,
			NewDays:       event.Summary.NewDays,
			TotalDays:     event.Summary.TotalDays,
			TodayMinutes:  event.Summary.TodayMinutes,
			TotalMinutes:  event.Stats.TotalMinutes,
			CurrentStreak: event.Stats.CurrentStreak,
			LongestStreak: event.Stats.LongestStreak,
			LastBPM:       event.LastBPM,
			InZone5:       event.InBand,
			Changed:       event.Changed,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// SyncSink forwards committed syncs to a Publisher.
type SyncSink struct {
	Publisher Publisher
}

// Name implements syncer.Sink.
func (s SyncSink) Name() string { return "mqtt" }

// Notify implements syncer.Sink. The publisher applies its own timeouts.
func (s SyncSink) Notify(ctx context.Context, ev syncer.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Publisher.PublishSync(ev)
}

// Discard is the Publisher used when no broker is configured. It drops
// every message and never reports a connection.
type Discard struct{}

func (Discard) Publish(monitor.Event) error { return nil }
func (Discard) PublishSync(syncer.Event) error { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error { return nil }
func (Discard) IsConnected() bool { return false }
