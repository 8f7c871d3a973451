package syncer

import (
	"math"
	"time"

	"github.com/sweeney/zone5/internal/store"
	"github.com/sweeney/zone5/internal/zone"
)

// lastUpdateLayout renders the snapshot timestamp, e.g. "2026-03-01 10:00:00 UTC".
const lastUpdateLayout = "2006-01-02 15:04:05 UTC"

// Profile is the per-deployment user configuration.
type Profile struct {
	Age  int
	Band zone.Band
	// Tick is the duration one sample represents unless the batch overrides it.
	Tick time.Duration
}

// DefaultProfile is a 30 year old with the age-derived band and one-minute ticks.
func DefaultProfile() Profile {
	return Profile{Age: 30, Band: zone.BandForAge(30), Tick: zone.DefaultTick}
}

// Result is the outcome of planning a sync.
type Result struct {
	Document     *store.Document
	Incoming     zone.DailyRecord
	Merge        zone.MergeSummary
	Today        zone.Day
	TodayMinutes float64
}

// Plan aggregates batch, merges it into prior (nil means no stored document)
// and regenerates the snapshot metadata. It performs no I/O and does not
// modify prior.
func Plan(prior *store.Document, batch Batch, now time.Time, p Profile) Result {
	var priorRecord zone.DailyRecord
	if prior != nil {
		priorRecord = prior.Achievements
	}

	tick := p.Tick
	if batch.Tick > 0 {
		tick = batch.Tick
	}
	incoming := zone.Aggregator{Band: p.Band, Tick: tick}.Aggregate(batch.Samples)
	merged, summary := zone.Merge(priorRecord, incoming)

	now = now.UTC()
	today := zone.DayOf(now)
	last := batch.LastBPM()

	doc := &store.Document{
		LastUpdate:        now.Format(lastUpdateLayout),
		CurrentHeartRate:  int(math.Round(last)),
		InZone5:           len(batch.Samples) > 0 && p.Band.Contains(last),
		TodayZone5Minutes: merged[today],
		Zone5Range:        p.Band.String(),
		MaxHeartRate:      zone.MaxHeartRate(p.Age),
		UserAge:           p.Age,
		Achievements:      merged,
	}
	return Result{
		Document:     doc,
		Incoming:     incoming,
		Merge:        summary,
		Today:        today,
		TodayMinutes: doc.TodayZone5Minutes,
	}
}
