package applehealth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/zone5/internal/zone"
)

const exportHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE HealthData [
<!ELEMENT HealthData (ExportDate,Me,(Record|Workout)*)>
<!ATTLIST Record type CDATA #REQUIRED>
]>
<HealthData locale="en_GB">
 <ExportDate value="2026-03-06 09:00:00 +0000"/>
 <Me HKCharacteristicTypeIdentifierDateOfBirth=""/>
`

func export(records ...string) string {
	return exportHeader + strings.Join(records, "\n") + "\n</HealthData>\n"
}

func hr(start, value string) string {
	return `<Record type="HKQuantityTypeIdentifierHeartRate" sourceName="Watch" unit="count/min" startDate="` +
		start + `" endDate="` + start + `" value="` + value + `">
  <MetadataEntry key="HKMetadataKeyHeartRateMotionContext" value="2"/>
 </Record>`
}

func TestDecode(t *testing.T) {
	doc := export(
		hr("2026-03-04 07:00:10 +0000", "176"),
		`<Record type="HKQuantityTypeIdentifierStepCount" startDate="2026-03-04 07:00:00 +0000" value="40"/>`,
		hr("2026-03-04 07:00:00 +0000", "150"),
		hr("2026-03-04 07:00:05 +0000", "172.5"),
		`<Workout workoutActivityType="HKWorkoutActivityTypeRunning" startDate="2026-03-04 07:00:00 +0000"/>`,
	)

	batch, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, batch.Samples, 3)

	assert.Equal(t, []zone.Sample{
		{Date: "2026-03-04", BPM: 150},
		{Date: "2026-03-04", BPM: 172.5},
		{Date: "2026-03-04", BPM: 176},
	}, batch.Samples)
	assert.Equal(t, 5*time.Second, batch.Tick)
}

func TestDecode_DayFollowsRecordedOffset(t *testing.T) {
	// Each record keeps the calendar day of its own offset, not the UTC one.
	doc := export(
		hr("2026-03-04 23:30:00 -0500", "178"),
		hr("2026-03-05 00:30:00 +0100", "179"),
	)

	batch, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, batch.Samples, 2)
	// Sorted by instant: 23:30 UTC on the 4th, then 04:30 UTC on the 5th.
	assert.Equal(t, zone.Sample{Date: "2026-03-05", BPM: 179}, batch.Samples[0])
	assert.Equal(t, zone.Sample{Date: "2026-03-04", BPM: 178}, batch.Samples[1])
}

func TestDecode_AcceptsRFC3339(t *testing.T) {
	batch, err := Decode(strings.NewReader(export(hr("2026-03-04T07:00:00Z", "160"))))
	require.NoError(t, err)
	require.Len(t, batch.Samples, 1)
	assert.Equal(t, zone.Day("2026-03-04"), batch.Samples[0].Date)
	assert.Zero(t, batch.Tick)
}

func TestDecode_SkipsMalformedRecords(t *testing.T) {
	doc := export(
		hr("yesterday", "170"),
		hr("2026-03-04 07:00:00 +0000", "fast"),
		hr("2026-03-04 07:00:01 +0000", "0"),
		hr("2026-03-04 07:00:02 +0000", "-5"),
		hr("2026-03-04 07:00:03 +0000", "NaN"),
		hr("2026-03-04 07:00:04 +0000", "171"),
	)

	batch, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, batch.Samples, 1)
	assert.Equal(t, 171.0, batch.Samples[0].BPM)
}

func TestDecode_TickIgnoresSessionBreaksAndDuplicates(t *testing.T) {
	doc := export(
		hr("2026-03-04 07:00:00 +0000", "170"),
		hr("2026-03-04 07:00:04 +0000", "171"),
		hr("2026-03-04 07:00:04 +0000", "171"),
		hr("2026-03-04 07:00:08 +0000", "172"),
		hr("2026-03-04 18:00:00 +0000", "90"),
		hr("2026-03-04 18:05:00 +0000", "92"),
	)

	batch, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, batch.Samples, 6)
	// Gaps inside sessions: 4s, 4s, 5m.
	assert.Equal(t, 4*time.Second, batch.Tick)
}

func TestDecode_NoHeartRate(t *testing.T) {
	doc := export(`<Record type="HKQuantityTypeIdentifierStepCount" startDate="2026-03-04 07:00:00 +0000" value="40"/>`)
	_, err := Decode(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrNoHeartRate)

	_, err = Decode(strings.NewReader(export()))
	assert.ErrorIs(t, err, ErrNoHeartRate)
}

func TestDecode_Truncated(t *testing.T) {
	doc := export(hr("2026-03-04 07:00:00 +0000", "170"))
	_, err := Decode(strings.NewReader(doc[:len(doc)-20]))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoHeartRate)
}
