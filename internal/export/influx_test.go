package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/zone"
)

type mockWriteAPI struct {
	err     error
	written []*write.Point
}

func (m *mockWriteAPI) WritePoint(_ context.Context, point ...*write.Point) error {
	m.written = append(m.written, point...)
	return m.err
}

func (m *mockWriteAPI) WriteRecord(context.Context, ...string) error { return nil }
func (m *mockWriteAPI) EnableBatching()                              {}
func (m *mockWriteAPI) Flush(context.Context) error                  { return nil }

func testEvent() syncer.Event {
	return syncer.Event{
		Time: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
		Summary: syncer.Summary{
			SyncID:       "abc",
			NewDays:      1,
			TotalDays:    2,
			TodayMinutes: 18,
		},
		Changed: zone.DailyRecord{"2026-03-04": 18, "2026-03-03": 16},
		Stats:   zone.Stats{TotalMinutes: 34, CurrentStreak: 2, LongestStreak: 2},
		LastBPM: 175,
		InBand:  true,
	}
}

func lines(points []*write.Point) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = write.PointToLineProtocol(p, time.Second)
	}
	return out
}

func TestPoints(t *testing.T) {
	points := Points(testEvent())
	require.Len(t, points, 3)

	assert.Equal(t, MeasurementDaily, points[0].Name())
	assert.Equal(t, MeasurementDaily, points[1].Name())
	assert.Equal(t, MeasurementSync, points[2].Name())

	l := lines(points)
	assert.True(t, strings.HasPrefix(l[0], "zone5_daily,day=2026-03-03 "), l[0])
	assert.Contains(t, l[0], "goal_met=true")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(l[0]), " 1772496000"), l[0])
	assert.True(t, strings.HasPrefix(l[1], "zone5_daily,day=2026-03-04 "), l[1])

	assert.Contains(t, l[2], `sync_id="abc"`)
	assert.Contains(t, l[2], "current_streak=2i")
	assert.Contains(t, l[2], "in_zone5=true")
	assert.Equal(t, time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), points[2].Time())
}

func TestPoints_NoChangedDays(t *testing.T) {
	ev := testEvent()
	ev.Changed = nil
	points := Points(ev)
	require.Len(t, points, 1)
	assert.Equal(t, MeasurementSync, points[0].Name())
}

func TestPoints_SubGoalDay(t *testing.T) {
	ev := testEvent()
	ev.Changed = zone.DailyRecord{"2026-03-04": 5}
	assert.Contains(t, lines(Points(ev))[0], "goal_met=false")
}

func TestInfluxSink_Notify(t *testing.T) {
	w := &mockWriteAPI{}
	s := NewInfluxSinkFromWriter(w)
	assert.Equal(t, "influx", s.Name())

	require.NoError(t, s.Notify(context.Background(), testEvent()))
	assert.Len(t, w.written, 3)
	s.Close()
}

func TestInfluxSink_NotifyError(t *testing.T) {
	w := &mockWriteAPI{err: errors.New("connection refused")}
	err := NewInfluxSinkFromWriter(w).Notify(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewInfluxSink_RequiresURL(t *testing.T) {
	_, err := NewInfluxSink(InfluxConfig{Bucket: "zone5"})
	assert.Error(t, err)

	s, err := NewInfluxSink(InfluxConfig{URL: "http://localhost:8086", Bucket: "zone5", Org: "home"})
	require.NoError(t, err)
	s.Close()
}
