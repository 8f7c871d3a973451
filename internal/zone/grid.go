package zone

import (
	"math"
	"time"
)

// WindowDays is the number of days the calendar shows, ending at asOf.
const WindowDays = 365

// Bucket thresholds in minutes. BucketGoal starts at GoalMinutes so the
// colour scale and the statistics agree on what a goal day is.
const (
	midFrom  = 8
	goalFrom = GoalMinutes
	highFrom = 23
)

// BucketFor maps minutes to an intensity bucket:
// 0 → EMPTY, 1–7 → LOW, 8–14 → MID, 15–22 → GOAL, 23+ → HIGH.
// Fractional minutes fall into the bucket of the range that contains them.
func BucketFor(minutes float64) Bucket {
	switch {
	case math.IsNaN(minutes) || minutes <= 0:
		return BucketEmpty
	case minutes < midFrom:
		return BucketLow
	case minutes < goalFrom:
		return BucketMid
	case minutes < highFrom:
		return BucketGoal
	default:
		return BucketHigh
	}
}

// GridStart returns the Sunday that opens the calendar window ending at asOf.
func GridStart(asOf Day) Day {
	start := asOf.AddDays(-(WindowDays - 1))
	return start.AddDays(-int(start.Weekday()))
}

// BuildGrid lays out the window of WindowDays ending at asOf as whole weeks,
// earliest first. The first week is extended back to Sunday and the last week
// is padded with empty cells after asOf.
func BuildGrid(record DailyRecord, asOf Day) []Week {
	if !asOf.Valid() {
		return nil
	}
	start := GridStart(asOf)
	total := int(asOf.Time().Sub(start.Time())/(24*time.Hour)) + 1

	weeks := make([]Week, 0, (total+6)/7)
	var week Week
	for i := 0; i < total; i++ {
		d := start.AddDays(i)
		m := record[d]
		week[i%7] = Cell{Date: d, Minutes: m, Bucket: BucketFor(m)}
		if i%7 == 6 {
			weeks = append(weeks, week)
			week = Week{}
		}
	}
	if total%7 != 0 {
		// Remaining slots of week are already zero-valued padding cells.
		weeks = append(weeks, week)
	}
	return weeks
}

// MonthLabel marks the week where a new month begins.
type MonthLabel struct {
	Week  int
	Month time.Month
}

// MonthLabels returns a label for every week, after the first, whose Sunday
// falls in a different month than the last labelled one.
func MonthLabels(weeks []Week) []MonthLabel {
	var labels []MonthLabel
	last := time.Month(0)
	for i, w := range weeks {
		first := w[0]
		if first.IsPad() {
			continue
		}
		m := first.Date.Month()
		if m != last && i > 0 {
			labels = append(labels, MonthLabel{Week: i, Month: m})
			last = m
		}
	}
	return labels
}
