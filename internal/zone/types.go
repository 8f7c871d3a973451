// Package zone contains the pure Zone 5 engine: band classification, daily
// aggregation, merge, streak statistics and calendar layout.
// This package has NO external dependencies (no storage, network or clock).
// The reference day is always passed in explicitly.
package zone

import (
	"fmt"
	"time"
)

// GoalMinutes is the per-day minute count that marks a day as a success.
const GoalMinutes = 15

// dayLayout is the canonical ISO form of a Day.
const dayLayout = "2006-01-02"

// Day is a calendar date in ISO form (YYYY-MM-DD). The zero value is the
// empty sentinel used for padding cells.
type Day string

// ParseDay validates s as a calendar date and returns it in canonical form.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid day %q: %w", s, err)
	}
	return Day(t.Format(dayLayout)), nil
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	return Day(t.Format(dayLayout))
}

// Time returns midnight UTC of the day. Invalid days return the zero time.
func (d Day) Time() time.Time {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Valid reports whether d is a well-formed calendar date.
func (d Day) Valid() bool {
	_, err := time.Parse(dayLayout, string(d))
	return err == nil
}

// IsZero reports whether d is the empty sentinel.
func (d Day) IsZero() bool {
	return d == ""
}

// AddDays returns the day n calendar days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time().AddDate(0, 0, n))
}

// Weekday returns the day of the week.
func (d Day) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Month returns the month of the year.
func (d Day) Month() time.Month {
	return d.Time().Month()
}

func (d Day) String() string {
	return string(d)
}

// AreConsecutiveDays reports whether b is exactly one calendar day after a.
// Both days are interpreted in UTC so DST never shifts the difference.
func AreConsecutiveDays(a, b Day) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return b.Time().Sub(a.Time()) == 24*time.Hour
}

// Sample is a single heart-rate reading attributed to a calendar day.
type Sample struct {
	Date Day
	BPM  float64
}

// DailyRecord maps a calendar day to minutes spent in band.
type DailyRecord map[Day]float64

// Clone returns an independent copy of r. A nil record clones to an empty one.
func (r DailyRecord) Clone() DailyRecord {
	out := make(DailyRecord, len(r))
	for d, m := range r {
		out[d] = m
	}
	return out
}

// Stats are the derived calendar statistics of a DailyRecord.
type Stats struct {
	TotalMinutes  float64 `json:"totalMinutes"`
	DaysWithData  int     `json:"daysWithData"`
	DaysWithGoal  int     `json:"daysWithGoal"`
	LongestStreak int     `json:"longestStreak"`
	CurrentStreak int     `json:"currentStreak"`
}

// Bucket is a discrete intensity level used for rendering.
type Bucket int

const (
	BucketEmpty Bucket = iota
	BucketLow
	BucketMid
	BucketGoal
	BucketHigh
)

func (b Bucket) String() string {
	switch b {
	case BucketEmpty:
		return "EMPTY"
	case BucketLow:
		return "LOW"
	case BucketMid:
		return "MID"
	case BucketGoal:
		return "GOAL"
	case BucketHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// Cell is one day of the calendar grid. Padding cells have a zero Date.
type Cell struct {
	Date    Day
	Minutes float64
	Bucket  Bucket
}

// IsPad reports whether the cell is a padding sentinel.
func (c Cell) IsPad() bool {
	return c.Date.IsZero()
}

// Week is seven cells, Sunday first.
type Week [7]Cell
