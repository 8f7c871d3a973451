// Package fitfile turns the heart rate records of a FIT activity file into
// an ingest batch.
package fitfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/tormoder/fit"

	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/zone"
)

// ErrNoHeartRate is returned for activities without any heart rate record.
var ErrNoHeartRate = errors.New("activity has no heart rate records")

// Decode reads an activity file. Records are attributed to calendar days in
// loc (UTC when nil). The batch tick is the median spacing of the records so
// smart-recording devices are not undercounted.
func Decode(r io.Reader, loc *time.Location) (syncer.Batch, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return syncer.Batch{}, fmt.Errorf("decode FIT file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return syncer.Batch{}, fmt.Errorf("activity FIT expected: %w", err)
	}
	return FromRecords(activity.Records, loc)
}

// FromRecords converts record messages. Records missing a timestamp or a
// heart rate are skipped.
func FromRecords(records []*fit.RecordMsg, loc *time.Location) (syncer.Batch, error) {
	if loc == nil {
		loc = time.UTC
	}

	type point struct {
		ts  time.Time
		bpm float64
	}
	points := make([]point, 0, len(records))
	for _, rec := range records {
		if rec == nil || rec.HeartRate == math.MaxUint8 || rec.HeartRate == 0 {
			continue
		}
		if rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
			continue
		}
		points = append(points, point{ts: rec.Timestamp, bpm: float64(rec.HeartRate)})
	}
	if len(points) == 0 {
		return syncer.Batch{}, ErrNoHeartRate
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].ts.Before(points[j].ts) })

	batch := syncer.Batch{Samples: make([]zone.Sample, len(points))}
	for i, p := range points {
		batch.Samples[i] = zone.Sample{Date: zone.DayOf(p.ts.In(loc)), BPM: p.bpm}
	}

	if len(points) > 1 {
		gaps := make([]time.Duration, 0, len(points)-1)
		for i := 1; i < len(points); i++ {
			gaps = append(gaps, points[i].ts.Sub(points[i-1].ts))
		}
		batch.Tick = syncer.MedianTick(gaps)
	}
	return batch, nil
}
