package render

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/sweeney/zone5/internal/zone"
)

func TestThemeByName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"dark", "dark"},
		{"light", "light"},
		{"LIGHT", "light"},
		{"", "dark"},
		{"neon", "dark"},
	}
	for _, tt := range tests {
		if got := ThemeByName(tt.name).Name; got != tt.want {
			t.Errorf("ThemeByName(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestThemeColor(t *testing.T) {
	if got := Dark.Color(zone.BucketGoal); got != "#26a641" {
		t.Errorf("goal color = %s", got)
	}
	if got := Dark.Color(zone.Bucket(99)); got != Dark.Levels[0] {
		t.Errorf("unknown bucket should render empty, got %s", got)
	}
}

func TestStatsLine(t *testing.T) {
	line := StatsLine(zone.Stats{CurrentStreak: 3, TotalMinutes: 1234.5, DaysWithGoal: 7})
	for _, want := range []string{"3 day streak", "1,234.5 total minutes", "7 days goal met (15+ min)"} {
		if !strings.Contains(line, want) {
			t.Errorf("stats line %q missing %q", line, want)
		}
	}
}

func TestSVGIsWellFormed(t *testing.T) {
	asOf := zone.Day("2026-03-04")
	record := zone.DailyRecord{"2026-03-01": 5, "2026-03-02": 16, "2026-03-03": 30, "2026-03-04": 18}
	weeks := zone.BuildGrid(record, asOf)

	var buf bytes.Buffer
	if err := SVG(&buf, weeks, zone.ComputeStats(record, asOf), Dark); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(buf.Bytes()))
	rects := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("invalid xml: %v", err)
			}
			break
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "rect" {
			rects++
		}
	}
	// background + 53*7 cells + 5 legend swatches
	if want := 1 + len(weeks)*7 + 5; rects != want {
		t.Errorf("expected %d rects, got %d", want, rects)
	}
}

func TestSVGContent(t *testing.T) {
	asOf := zone.Day("2026-03-04")
	record := zone.DailyRecord{"2026-03-03": 30, "2026-03-04": 18}
	weeks := zone.BuildGrid(record, asOf)

	var buf bytes.Buffer
	if err := SVG(&buf, weeks, zone.ComputeStats(record, asOf), Light); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	checks := []string{
		`fill: #ffffff;`,
		`Zone 5 Training - Last 12 Months`,
		`2 day streak`,
		`<title>2026-03-03: 30 minutes in Zone 5</title>`,
		`fill="#216e39"`, // HIGH in the light palette
		`<title>No data</title>`,
		`>Less<`,
		`>More<`,
	}
	for _, c := range checks {
		if !strings.Contains(out, c) {
			t.Errorf("svg missing %q", c)
		}
	}
	if width := len(weeks)*cellPitch + 100; !strings.Contains(out, `width="`+strconv.Itoa(width)+`"`) {
		t.Errorf("svg should be %d wide", width)
	}
}

func TestSVGMonthLabels(t *testing.T) {
	asOf := zone.Day("2026-03-04")
	weeks := zone.BuildGrid(nil, asOf)

	var buf bytes.Buffer
	if err := SVG(&buf, weeks, zone.Stats{}, Dark); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if got := strings.Count(out, `y="-5"`); got != len(zone.MonthLabels(weeks)) {
		t.Errorf("expected %d month labels, got %d", len(zone.MonthLabels(weeks)), got)
	}
	if !strings.Contains(out, ">Feb<") {
		t.Error("expected a Feb label")
	}
}

func TestSVGEmptyGrid(t *testing.T) {
	var buf bytes.Buffer
	if err := SVG(&buf, nil, zone.Stats{}, Dark); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "0 day streak") {
		t.Error("empty graph should still render stats")
	}
}

func TestCalendarPage(t *testing.T) {
	asOf := zone.Day("2026-03-04")
	record := zone.DailyRecord{"2026-03-03": 30, "2025-01-01": 12}

	var buf bytes.Buffer
	if err := CalendarPage(&buf, record, asOf, zone.ComputeStats(record, asOf), Dark); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "2026-03-03") {
		t.Error("page should contain in-window day")
	}
	if strings.Contains(out, "2025-01-01") {
		t.Error("page should not contain days outside the window")
	}
	if !strings.Contains(out, "calendar") {
		t.Error("page should use the calendar coordinate system")
	}
}

func TestCalendarPageInvalidDay(t *testing.T) {
	var buf bytes.Buffer
	if err := CalendarPage(&buf, nil, zone.Day("nope"), zone.Stats{}, Dark); err == nil {
		t.Error("expected error for invalid day")
	}
}

func TestCalendarData(t *testing.T) {
	record := zone.DailyRecord{"2026-03-01": 10, "2026-03-02": 0, "2026-03-05": 4}
	items := calendarData(record, "2026-03-01", "2026-03-04")
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Name != "2026-03-01" {
		t.Errorf("unexpected item %v", items[0])
	}
	if calendarData(record, "", "2026-03-04") != nil {
		t.Error("invalid range should produce no data")
	}
}
