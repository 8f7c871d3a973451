package zone

import (
	"fmt"
	"math"
)

// Band is an inclusive heart-rate range [Min, Max] in bpm.
type Band struct {
	Min int
	Max int
}

// BandForAge derives the Zone 5 band from age: max = 220 - age, the floor is
// 90% of max rounded to the nearest bpm and the ceiling is max itself.
func BandForAge(age int) Band {
	max := MaxHeartRate(age)
	return Band{
		Min: int(math.Round(0.9 * float64(max))),
		Max: max,
	}
}

// MaxHeartRate is the age-predicted maximum heart rate.
func MaxHeartRate(age int) int {
	return 220 - age
}

// Contains reports whether bpm lies within the band, inclusive on both ends.
// NaN is never in band.
func (b Band) Contains(bpm float64) bool {
	return bpm >= float64(b.Min) && bpm <= float64(b.Max)
}

// Valid reports whether the band is non-empty and positive.
func (b Band) Valid() bool {
	return b.Min > 0 && b.Min <= b.Max
}

// String formats the band the way it is stored, e.g. "171-190 bpm".
func (b Band) String() string {
	return fmt.Sprintf("%d-%d bpm", b.Min, b.Max)
}
