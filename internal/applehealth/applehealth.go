// Package applehealth turns the heart rate records of an Apple Health
// export.xml into an ingest batch.
//
// Exports routinely run to hundreds of megabytes, so the document is read as
// a token stream and only Record elements are inspected.
package applehealth

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/zone"
)

// HeartRateType is the Record type carrying heart rate samples.
const HeartRateType = "HKQuantityTypeIdentifierHeartRate"

// exportLayout is the timestamp format Health writes, e.g.
// "2026-03-04 07:15:00 -0500".
const exportLayout = "2006-01-02 15:04:05 -0700"

// maxSpacing separates recording sessions. Longer gaps are breaks in the
// data, not the spacing of a session, and are left out of the tick.
const maxSpacing = 10 * time.Minute

// ErrNoHeartRate is returned for exports without any usable heart rate record.
var ErrNoHeartRate = errors.New("export has no heart rate records")

type point struct {
	ts  time.Time
	bpm float64
}

// Decode reads an export.xml document. Each record is attributed to the
// calendar day of its startDate in the offset it was recorded with. Records
// with a malformed date or value are skipped. The batch tick is the median
// spacing between records of the same session.
func Decode(r io.Reader) (syncer.Batch, error) {
	dec := xml.NewDecoder(r)

	var points []point
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return syncer.Batch{}, fmt.Errorf("decode health export: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Record" {
			continue
		}
		if p, ok := parseRecord(se.Attr); ok {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return syncer.Batch{}, ErrNoHeartRate
	}
	return fromPoints(points), nil
}

func parseRecord(attrs []xml.Attr) (point, bool) {
	var typ, start, value string
	for _, a := range attrs {
		switch a.Name.Local {
		case "type":
			typ = a.Value
		case "startDate":
			start = a.Value
		case "value":
			value = a.Value
		}
	}
	if typ != HeartRateType {
		return point{}, false
	}
	ts, err := parseTime(start)
	if err != nil {
		return point{}, false
	}
	bpm, err := strconv.ParseFloat(value, 64)
	if err != nil || bpm <= 0 || math.IsInf(bpm, 0) || math.IsNaN(bpm) {
		return point{}, false
	}
	return point{ts: ts, bpm: bpm}, true
}

func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(exportLayout, s); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, s)
}

func fromPoints(points []point) syncer.Batch {
	sort.SliceStable(points, func(i, j int) bool { return points[i].ts.Before(points[j].ts) })

	batch := syncer.Batch{Samples: make([]zone.Sample, len(points))}
	for i, p := range points {
		batch.Samples[i] = zone.Sample{Date: zone.DayOf(p.ts), BPM: p.bpm}
	}

	var gaps []time.Duration
	for i := 1; i < len(points); i++ {
		// Several sources can report the same instant.
		if gap := points[i].ts.Sub(points[i-1].ts); gap > 0 && gap <= maxSpacing {
			gaps = append(gaps, gap)
		}
	}
	if len(gaps) > 0 {
		batch.Tick = syncer.MedianTick(gaps)
	}
	return batch
}
