package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tormoder/fit"

	"github.com/sweeney/zone5/internal/applehealth"
	"github.com/sweeney/zone5/internal/fitfile"
	"github.com/sweeney/zone5/internal/monitor"
	"github.com/sweeney/zone5/internal/mqtt"
	"github.com/sweeney/zone5/internal/sensor"
	"github.com/sweeney/zone5/internal/status"
	"github.com/sweeney/zone5/internal/store"
	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/web"
	"github.com/sweeney/zone5/internal/zone"
)

var (
	integrationNow = time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)
	integrationDay = zone.Day("2026-03-04")
)

func newIntegrationCoordinator(pub mqtt.Publisher) (*store.MemoryStore, *syncer.Coordinator) {
	mem := store.NewMemoryStore()
	coord := syncer.NewCoordinator(mem, syncer.DefaultProfile(),
		syncer.WithClock(func() time.Time { return integrationNow }),
		syncer.WithSinks(mqtt.SyncSink{Publisher: pub}),
	)
	return mem, coord
}

// TestIntegrationMonitorFlow drives the live session from a fake sensor,
// flushing to the store every ten readings the way the monitor does.
func TestIntegrationMonitorFlow(t *testing.T) {
	// 5 warm-up, 25 in band, 10 cool-down.
	var steps []sensor.Step
	for i := 0; i < 40; i++ {
		bpm := 175.0
		if i < 5 || i >= 30 {
			bpm = 120
		}
		steps = append(steps, sensor.Step{Reading: sensor.Reading{
			Time: integrationNow.Add(-2*time.Hour + time.Duration(i)*time.Minute),
			BPM:  bpm,
		}})
	}
	src := sensor.NewFakeSource(steps...)
	pub := mqtt.NewFakePublisher()
	mem, coord := newIntegrationCoordinator(pub)

	band := zone.BandForAge(30)
	session := monitor.NewSession(steps[0].Reading.Time)
	days := monitor.DayLog{}
	ctx := context.Background()

	flush := func() {
		samples, next := monitor.Drain(session)
		session = next
		if len(samples) == 0 {
			return
		}
		batch := syncer.Batch{Samples: days.Batch(samples, band), Tick: time.Minute}
		if _, err := coord.Sync(ctx, batch); err != nil {
			t.Fatalf("sync: %v", err)
		}
	}

	for i := 0; ; i++ {
		r, err := src.Next(ctx)
		if errors.Is(err, sensor.ErrNoReading) {
			break
		}
		if err != nil {
			t.Fatalf("reading %d: %v", i, err)
		}
		var events []monitor.Event
		session, events = monitor.Process(session, monitor.Input{BPM: r.BPM, Time: r.Time}, band, time.Minute)
		days.Add(zone.Sample{Date: zone.DayOf(r.Time), BPM: r.BPM}, band)
		for _, ev := range events {
			if err := pub.Publish(ev); err != nil {
				t.Fatalf("publish: %v", err)
			}
		}
		if (i+1)%10 == 0 {
			flush()
		}
	}
	flush()

	if len(pub.Events) != 2 {
		t.Fatalf("expected enter and exit, got %d events", len(pub.Events))
	}
	if pub.Events[0].Type != monitor.EventEnterBand || pub.Events[1].Type != monitor.EventExitBand {
		t.Errorf("unexpected event order: %s, %s", pub.Events[0].Type, pub.Events[1].Type)
	}

	doc, _, err := mem.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := doc.Achievements[integrationDay]; got != 25 {
		t.Errorf("stored minutes: got %v, want 25", got)
	}
	if doc.InZone5 {
		t.Error("last reading was out of band")
	}
	if doc.CurrentHeartRate != 120 {
		t.Errorf("current heart rate: got %d, want 120", doc.CurrentHeartRate)
	}

	if pub.SyncCount() != 4 {
		t.Errorf("expected 4 sync notifications, got %d", pub.SyncCount())
	}
	last := pub.SyncEvents[len(pub.SyncEvents)-1]
	if last.Summary.TodayMinutes != 25 {
		t.Errorf("last sync today minutes: got %v, want 25", last.Summary.TodayMinutes)
	}
	if last.Stats.CurrentStreak != 1 {
		t.Errorf("current streak: got %d, want 1", last.Stats.CurrentStreak)
	}
}

// TestIntegrationRemoteIngest posts through web.Client to a running server
// and reads the result back from the public endpoints.
func TestIntegrationRemoteIngest(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	_, coord := newIntegrationCoordinator(pub)
	srv := web.New(web.Options{
		Tracker: status.NewTracker(integrationNow, status.Config{Mode: "serve"}),
		Syncer:  coord,
		Secret:  "hunter2",
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	samples := make([]zone.Sample, 0, 20)
	for i := 0; i < 20; i++ {
		samples = append(samples, zone.Sample{Date: integrationDay, BPM: 180})
	}
	client := web.NewClient(ts.URL, "hunter2", ts.Client())
	summary, err := client.Sync(context.Background(), syncer.Batch{Samples: samples})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if summary.TodayMinutes != 20 || summary.NewDays != 1 {
		t.Errorf("summary: %+v", summary)
	}

	resp, err := http.Get(ts.URL + "/api/zone5-stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer resp.Body.Close()
	var stats web.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.AsOf != integrationDay || stats.TodayZone5Minutes != 20 {
		t.Errorf("stats: %+v", stats)
	}
	if stats.DaysWithGoal != 1 || stats.CurrentStreak != 1 {
		t.Errorf("goal tracking: %+v", stats.Stats)
	}

	svg, err := http.Get(ts.URL + "/api/zone5-contributions")
	if err != nil {
		t.Fatalf("contributions: %v", err)
	}
	svg.Body.Close()
	if ct := svg.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/svg+xml") {
		t.Errorf("content type: got %q", ct)
	}

	if len(pub.SyncEvents) != 1 {
		t.Errorf("expected 1 sync notification, got %d", len(pub.SyncEvents))
	}
}

// TestIntegrationFITImport commits a decoded activity and then a smaller
// replay of the same day, which must not lower the stored total.
func TestIntegrationFITImport(t *testing.T) {
	start := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	var records []*fit.RecordMsg
	for i := 0; i < 120; i++ {
		rec := fit.NewRecordMsg()
		rec.Timestamp = start.Add(time.Duration(i) * 15 * time.Second)
		rec.HeartRate = 178
		records = append(records, rec)
	}
	batch, err := fitfile.FromRecords(records, time.UTC)
	if err != nil {
		t.Fatalf("from records: %v", err)
	}
	if batch.Tick != 15*time.Second {
		t.Fatalf("tick: got %v, want 15s", batch.Tick)
	}

	pub := mqtt.NewFakePublisher()
	mem, coord := newIntegrationCoordinator(pub)
	ctx := context.Background()
	if _, err := coord.Sync(ctx, batch); err != nil {
		t.Fatalf("sync: %v", err)
	}

	partial, err := fitfile.FromRecords(records[:40], time.UTC)
	if err != nil {
		t.Fatalf("from records: %v", err)
	}
	if _, err := coord.Sync(ctx, partial); err != nil {
		t.Fatalf("sync: %v", err)
	}

	doc, _, err := mem.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := doc.Achievements[integrationDay]; got != 30 {
		t.Errorf("stored minutes: got %v, want 30", got)
	}
}

func TestIntegrationAppleHealthImport(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<HealthData>\n")
	start := time.Date(2026, 3, 4, 7, 0, 0, 0, time.FixedZone("", -5*3600))
	for i := 0; i < 40; i++ {
		ts := start.Add(time.Duration(i) * 30 * time.Second)
		b.WriteString(`<Record type="HKQuantityTypeIdentifierHeartRate" startDate="` +
			ts.Format("2006-01-02 15:04:05 -0700") + `" value="178"/>` + "\n")
	}
	b.WriteString("</HealthData>\n")

	batch, err := applehealth.Decode(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if batch.Tick != 30*time.Second {
		t.Fatalf("tick: got %v, want 30s", batch.Tick)
	}

	_, coord := newIntegrationCoordinator(mqtt.NewFakePublisher())
	sum, err := coord.Sync(context.Background(), batch)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if sum.TodayMinutes != 20 {
		t.Errorf("today minutes: got %v, want 20", sum.TodayMinutes)
	}
}
