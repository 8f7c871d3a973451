// Package export mirrors committed syncs into InfluxDB so daily Zone 5
// minutes can be graphed next to other time series.
package export

import (
	"context"
	"errors"
	"fmt"
	"sort"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/zone"
)

// Measurements written by InfluxSink.
const (
	MeasurementDaily = "zone5_daily"
	MeasurementSync  = "zone5_sync"
)

// InfluxConfig locates the target bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxSink is a syncer.Sink writing one point per changed day plus one
// summary point per sync.
type InfluxSink struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

// NewInfluxSink connects lazily; the first Notify surfaces connection errors.
func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, errors.New("influx url and bucket are required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

// NewInfluxSinkFromWriter wraps an existing write API.
func NewInfluxSinkFromWriter(w api.WriteAPIBlocking) *InfluxSink {
	return &InfluxSink{writer: w}
}

func (s *InfluxSink) Name() string { return "influx" }

// Notify writes the event's points in a single request.
func (s *InfluxSink) Notify(ctx context.Context, ev syncer.Event) error {
	if err := s.writer.WritePoint(ctx, Points(ev)...); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

// Close releases the client, if this sink owns one.
func (s *InfluxSink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Points converts ev into line protocol points. Daily points are stamped at
// midnight UTC so a re-synced day overwrites its previous value.
func Points(ev syncer.Event) []*write.Point {
	days := make([]zone.Day, 0, len(ev.Changed))
	for d := range ev.Changed {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	points := make([]*write.Point, 0, len(days)+1)
	for _, d := range days {
		m := ev.Changed[d]
		points = append(points, influxdb2.NewPointWithMeasurement(MeasurementDaily).
			AddTag("day", d.String()).
			AddField("minutes", m).
			AddField("goal_met", zone.MeetsGoal(m)).
			SetTime(d.Time()))
	}

	points = append(points, influxdb2.NewPointWithMeasurement(MeasurementSync).
		AddField("sync_id", ev.Summary.SyncID).
		AddField("new_days", ev.Summary.NewDays).
		AddField("total_days", ev.Summary.TotalDays).
		AddField("today_minutes", ev.Summary.TodayMinutes).
		AddField("total_minutes", ev.Stats.TotalMinutes).
		AddField("current_streak", ev.Stats.CurrentStreak).
		AddField("longest_streak", ev.Stats.LongestStreak).
		AddField("last_bpm", ev.LastBPM).
		AddField("in_zone5", ev.InBand).
		SetTime(ev.Time))
	return points
}
