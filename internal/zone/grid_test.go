package zone

import (
	"testing"
	"time"
)

func TestBucketForBoundaries(t *testing.T) {
	tests := []struct {
		minutes float64
		want    Bucket
	}{
		{0, BucketEmpty},
		{-3, BucketEmpty},
		{0.25, BucketLow},
		{1, BucketLow},
		{7, BucketLow},
		{7.9, BucketLow},
		{8, BucketMid},
		{14, BucketMid},
		{15, BucketGoal},
		{22, BucketGoal},
		{23, BucketHigh},
		{600, BucketHigh},
	}
	for _, tt := range tests {
		if got := BucketFor(tt.minutes); got != tt.want {
			t.Errorf("BucketFor(%v) = %s, want %s", tt.minutes, got, tt.want)
		}
	}
}

func TestBucketForMonotonic(t *testing.T) {
	prev := BucketFor(0)
	for m := 0.0; m <= 40; m += 0.25 {
		b := BucketFor(m)
		if b < prev {
			t.Fatalf("bucket decreased at %v: %s -> %s", m, prev, b)
		}
		prev = b
	}
}

func TestBucketGoalMatchesGoalMinutes(t *testing.T) {
	if BucketFor(GoalMinutes) != BucketGoal {
		t.Error("goal minutes must map to GOAL bucket")
	}
	if BucketFor(GoalMinutes-1) == BucketGoal {
		t.Error("one below goal must not map to GOAL bucket")
	}
}

func TestBuildGridShape(t *testing.T) {
	// Cover every weekday for asOf.
	for i := 0; i < 7; i++ {
		asOf := Day("2026-03-01").AddDays(i)
		weeks := BuildGrid(DailyRecord{}, asOf)
		if len(weeks) != 53 {
			t.Errorf("asOf %s: got %d weeks, want 53", asOf, len(weeks))
		}
		for wi, w := range weeks {
			if !w[0].IsPad() && w[0].Date.Weekday() != time.Sunday {
				t.Errorf("asOf %s: week %d starts on %s", asOf, wi, w[0].Date.Weekday())
			}
		}
	}
}

func TestBuildGridWindow(t *testing.T) {
	asOf := Day("2026-03-04") // Wednesday
	weeks := BuildGrid(DailyRecord{}, asOf)

	first := weeks[0][0].Date
	if first != GridStart(asOf) {
		t.Errorf("first cell %s, want %s", first, GridStart(asOf))
	}
	if first.Weekday() != time.Sunday {
		t.Errorf("first cell is %s", first.Weekday())
	}
	if first > asOf.AddDays(-(WindowDays - 1)) {
		t.Errorf("window starts after %s", asOf.AddDays(-(WindowDays - 1)))
	}

	last := weeks[len(weeks)-1]
	if last[3].Date != asOf {
		t.Errorf("asOf cell = %q, want %s", last[3].Date, asOf)
	}
	for i := 4; i < 7; i++ {
		if !last[i].IsPad() {
			t.Errorf("cell %d after asOf should be padding, got %s", i, last[i].Date)
		}
		if last[i].Bucket != BucketEmpty || last[i].Minutes != 0 {
			t.Errorf("padding cell %d not empty: %+v", i, last[i])
		}
	}
}

func TestBuildGridSaturdayNeedsNoPadding(t *testing.T) {
	asOf := Day("2026-03-07") // Saturday
	weeks := BuildGrid(DailyRecord{}, asOf)
	last := weeks[len(weeks)-1]
	if last[6].Date != asOf {
		t.Errorf("last cell = %q, want %s", last[6].Date, asOf)
	}
}

func TestBuildGridMinutes(t *testing.T) {
	asOf := Day("2026-03-04")
	record := DailyRecord{
		"2026-03-04": 16,
		"2026-03-01": 5,
		"2024-01-01": 99, // outside the window
	}
	weeks := BuildGrid(record, asOf)

	found := map[Day]Cell{}
	for _, w := range weeks {
		for _, c := range w {
			if !c.IsPad() {
				found[c.Date] = c
			}
		}
	}
	if c := found["2026-03-04"]; c.Minutes != 16 || c.Bucket != BucketGoal {
		t.Errorf("2026-03-04 cell = %+v", c)
	}
	if c := found["2026-03-01"]; c.Minutes != 5 || c.Bucket != BucketLow {
		t.Errorf("2026-03-01 cell = %+v", c)
	}
	if _, ok := found["2024-01-01"]; ok {
		t.Error("day outside window rendered")
	}
	if c := found["2026-03-02"]; c.Bucket != BucketEmpty {
		t.Errorf("absent day bucket = %s", c.Bucket)
	}
}

func TestBuildGridInvalidAsOf(t *testing.T) {
	if weeks := BuildGrid(DailyRecord{}, "nope"); weeks != nil {
		t.Errorf("expected nil grid, got %d weeks", len(weeks))
	}
}

func TestMonthLabels(t *testing.T) {
	weeks := BuildGrid(DailyRecord{}, "2026-03-04")
	labels := MonthLabels(weeks)
	if len(labels) < 11 || len(labels) > 13 {
		t.Fatalf("expected about a year of month labels, got %d", len(labels))
	}
	for _, l := range labels {
		if l.Week == 0 {
			t.Error("first week must not be labelled")
		}
		if weeks[l.Week][0].Date.Month() != l.Month {
			t.Errorf("label %s at week %d starting %s", l.Month, l.Week, weeks[l.Week][0].Date)
		}
	}
}
