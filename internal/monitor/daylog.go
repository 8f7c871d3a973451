package monitor

import (
	"sort"

	"github.com/sweeney/zone5/internal/zone"
)

// DayLog keeps every in-band sample of the days seen during a run. Stored
// days merge by keeping the larger total, so a flush has to carry the whole
// day observed so far rather than only the samples since the last flush.
type DayLog map[zone.Day][]zone.Sample

// Add records s when it falls inside band.
func (l DayLog) Add(s zone.Sample, band zone.Band) {
	if s.Date.IsZero() || !band.Contains(s.BPM) {
		return
	}
	l[s.Date] = append(l[s.Date], s)
}

// Batch returns the samples to send for a flush of pending: all logged
// in-band samples of each day pending touches, ordered by day. The last
// pending sample is appended when it is out of band so the stored current
// heart rate stays accurate.
func (l DayLog) Batch(pending []zone.Sample, band zone.Band) []zone.Sample {
	if len(pending) == 0 {
		return nil
	}
	dirty := make(map[zone.Day]bool)
	for _, s := range pending {
		dirty[s.Date] = true
	}
	days := make([]zone.Day, 0, len(dirty))
	for d := range dirty {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	var out []zone.Sample
	for _, d := range days {
		out = append(out, l[d]...)
	}
	if last := pending[len(pending)-1]; !band.Contains(last.BPM) {
		out = append(out, last)
	}
	return out
}

// Prune forgets days before oldest.
func (l DayLog) Prune(oldest zone.Day) {
	for d := range l {
		if d < oldest {
			delete(l, d)
		}
	}
}
