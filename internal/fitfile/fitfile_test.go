package fitfile

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	"github.com/sweeney/zone5/internal/zone"
)

func record(ts time.Time, hr uint8) *fit.RecordMsg {
	rec := fit.NewRecordMsg()
	rec.Timestamp = ts
	rec.HeartRate = hr
	return rec
}

func TestFromRecords(t *testing.T) {
	start := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	records := []*fit.RecordMsg{
		record(start, 150),
		record(start.Add(5*time.Second), 172),
		record(start.Add(10*time.Second), math.MaxUint8),
		record(start.Add(15*time.Second), 180),
		nil,
	}

	batch, err := FromRecords(records, nil)
	require.NoError(t, err)
	require.Len(t, batch.Samples, 3)
	assert.Equal(t, zone.Sample{Date: "2026-03-04", BPM: 150}, batch.Samples[0])
	assert.Equal(t, 180.0, batch.LastBPM())
	// Gaps are 5s and 10s; the median of two picks the larger.
	assert.Equal(t, 10*time.Second, batch.Tick)
}

func TestFromRecords_SortsByTime(t *testing.T) {
	start := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	batch, err := FromRecords([]*fit.RecordMsg{
		record(start.Add(2*time.Second), 175),
		record(start, 170),
		record(start.Add(time.Second), 171),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 170.0, batch.Samples[0].BPM)
	assert.Equal(t, 175.0, batch.LastBPM())
	assert.Equal(t, time.Second, batch.Tick)
}

func TestFromRecords_Location(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	ts := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)

	batch, err := FromRecords([]*fit.RecordMsg{record(ts, 175)}, loc)
	require.NoError(t, err)
	assert.Equal(t, zone.Day("2026-03-03"), batch.Samples[0].Date)
	assert.Zero(t, batch.Tick)
}

func TestFromRecords_NoHeartRate(t *testing.T) {
	start := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	_, err := FromRecords([]*fit.RecordMsg{record(start, math.MaxUint8), fit.NewRecordMsg()}, nil)
	assert.ErrorIs(t, err, ErrNoHeartRate)

	_, err = FromRecords(nil, nil)
	assert.ErrorIs(t, err, ErrNoHeartRate)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a fit file")), nil)
	assert.Error(t, err)
}
