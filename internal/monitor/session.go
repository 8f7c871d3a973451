package monitor

import (
	"time"

	"github.com/sweeney/zone5/internal/zone"
)

// NewSession starts a session at the given time.
func NewSession(start time.Time) Session {
	return Session{Start: start}
}

// Process folds one reading into the session and returns the next session
// plus any band transition events. Readings with a non-positive bpm are
// ignored. Each accepted reading is queued as a sample for the next flush
// and, when in band, adds one tick to the in-band time.
func Process(s Session, in Input, band zone.Band, tick time.Duration) (Session, []Event) {
	if in.BPM <= 0 || in.Time.IsZero() {
		return s, nil
	}
	if s.Start.IsZero() {
		s.Start = in.Time
	}

	s.Readings++
	s.LastBPM = in.BPM
	s.LastReading = in.Time
	if in.BPM > s.MaxBPM {
		s.MaxBPM = in.BPM
	}

	// Full slice expression so the caller's backing array is never shared.
	s.Pending = append(s.Pending[:len(s.Pending):len(s.Pending)], zone.Sample{
		Date: zone.DayOf(in.Time),
		BPM:  in.BPM,
	})

	inBand := band.Contains(in.BPM)
	if inBand {
		s.InBandTime += tick
	}

	var events []Event
	if inBand != s.InBand {
		typ := EventExitBand
		if inBand {
			typ = EventEnterBand
			s.Enters++
		} else {
			s.Exits++
		}
		events = append(events, Event{Timestamp: in.Time, Type: typ, BPM: in.BPM})
		s.InBand = inBand
	}
	return s, events
}

// Drain returns the pending samples and the session with its queue emptied.
func Drain(s Session) ([]zone.Sample, Session) {
	pending := s.Pending
	s.Pending = nil
	return pending, s
}

// Requeue puts samples that failed to flush back in front of the queue so a
// later flush retries them in order.
func Requeue(s Session, samples []zone.Sample) Session {
	if len(samples) == 0 {
		return s
	}
	merged := make([]zone.Sample, 0, len(samples)+len(s.Pending))
	merged = append(merged, samples...)
	merged = append(merged, s.Pending...)
	s.Pending = merged
	return s
}

// CheckHeartbeat returns heartbeat data if interval has elapsed since last.
// Returns nil if the interval has not elapsed or interval is <= 0 (disabled).
func CheckHeartbeat(s Session, last, now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(last) < interval {
		return nil
	}
	return &HeartbeatData{
		Timestamp:  now,
		Uptime:     now.Sub(s.Start),
		Readings:   s.Readings,
		Pending:    len(s.Pending),
		LastBPM:    s.LastBPM,
		MaxBPM:     s.MaxBPM,
		InBand:     s.InBand,
		InBandTime: s.InBandTime,
	}
}
