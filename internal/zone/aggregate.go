package zone

import "time"

// DefaultTick is the duration one sample stands for when the feed is
// regularized to one reading per minute.
const DefaultTick = time.Minute

// Aggregator converts batches of samples into per-day minutes in band.
type Aggregator struct {
	Band Band
	// Tick is the elapsed time each sample represents. Zero means DefaultTick.
	Tick time.Duration
}

// minutesPerSample returns the minutes one qualifying sample contributes.
func (a Aggregator) minutesPerSample() float64 {
	if a.Tick <= 0 {
		return DefaultTick.Minutes()
	}
	return a.Tick.Minutes()
}

// Aggregate groups samples by day and sums the time of the in-band ones.
// Days without a qualifying sample are omitted. Duplicate samples are each
// counted since they stand for distinct readings.
func (a Aggregator) Aggregate(samples []Sample) DailyRecord {
	per := a.minutesPerSample()
	out := make(DailyRecord)
	for _, s := range samples {
		if s.Date.IsZero() || !a.Band.Contains(s.BPM) {
			continue
		}
		out[s.Date] += per
	}
	return out
}

// MergeSummary describes the effect of a merge.
type MergeSummary struct {
	// NewDays is the number of days present in the incoming record.
	NewDays int
	// TotalDays is the number of days in the merged record.
	TotalDays int
	// Changed lists the days whose stored value increased or appeared.
	Changed []Day
}

// Merge combines prior and incoming keeping the maximum per day. Days only in
// prior pass through unchanged. Neither input is modified.
func Merge(prior, incoming DailyRecord) (DailyRecord, MergeSummary) {
	merged := prior.Clone()
	var changed []Day
	for d, m := range incoming {
		old, ok := merged[d]
		// A non-numeric stored value counts as zero.
		if !ok || !(old >= m) {
			merged[d] = m
			changed = append(changed, d)
		}
	}
	sortDays(changed)
	return merged, MergeSummary{
		NewDays:   len(incoming),
		TotalDays: len(merged),
		Changed:   changed,
	}
}
