package zone

import (
	"math"
	"sort"
)

// MeetsGoal reports whether minutes reaches the daily goal. Non-numeric
// values never meet it.
func MeetsGoal(minutes float64) bool {
	return minutes >= GoalMinutes
}

// hasData reports whether minutes is a positive, finite amount.
func hasData(minutes float64) bool {
	return minutes > 0 && !math.IsInf(minutes, 1)
}

// ComputeStats derives totals and streaks from the record as of the given day.
func ComputeStats(record DailyRecord, asOf Day) Stats {
	var st Stats
	for _, m := range record {
		if hasData(m) {
			st.TotalMinutes += m
			st.DaysWithData++
		}
		if MeetsGoal(m) {
			st.DaysWithGoal++
		}
	}
	st.LongestStreak = LongestStreak(record)
	st.CurrentStreak = CurrentStreak(record, asOf)
	return st
}

// LongestStreak returns the longest run of consecutive calendar days that each
// meet the goal. A missing day or a recorded day below goal breaks the run.
func LongestStreak(record DailyRecord) int {
	days := sortedDays(record)

	longest, run := 0, 0
	var prev Day
	for _, d := range days {
		if !d.Valid() || !MeetsGoal(record[d]) {
			run = 0
			prev = ""
			continue
		}
		if prev.IsZero() || AreConsecutiveDays(prev, d) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = d
	}
	return longest
}

// CurrentStreak counts goal days walking backwards from asOf. The run must
// include asOf itself: if asOf misses the goal the streak is 0.
func CurrentStreak(record DailyRecord, asOf Day) int {
	if !asOf.Valid() {
		return 0
	}
	streak := 0
	// Every step back must hit a recorded day, so len(record) bounds the walk.
	for d := asOf; streak <= len(record); d = d.AddDays(-1) {
		if !MeetsGoal(record[d]) {
			break
		}
		streak++
	}
	return streak
}

func sortedDays(record DailyRecord) []Day {
	days := make([]Day, 0, len(record))
	for d := range record {
		days = append(days, d)
	}
	sortDays(days)
	return days
}

func sortDays(days []Day) {
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
}
