package sensor

import (
	"context"
	"sync"
)

// Step is one scripted result of FakeSource.Next.
type Step struct {
	Reading Reading
	Err     error
}

// FakeSource is a test double that returns scripted readings.
type FakeSource struct {
	mu sync.Mutex

	// Steps are consumed one per call to Next. Once exhausted, Next
	// returns ErrNoReading.
	Steps []Step

	index int

	// Calls counts calls to Next.
	Calls int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource with the given steps.
func NewFakeSource(steps ...Step) *FakeSource {
	return &FakeSource{Steps: steps}
}

// Readings builds steps that each yield one reading.
func Readings(rs ...Reading) []Step {
	steps := make([]Step, len(rs))
	for i, r := range rs {
		steps[i] = Step{Reading: r}
	}
	return steps
}

// Next returns the next scripted step.
func (f *FakeSource) Next(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls++
	if f.Closed {
		return Reading{}, ErrUnavailable
	}
	if f.index >= len(f.Steps) {
		return Reading{}, ErrNoReading
	}
	step := f.Steps[f.index]
	f.index++
	return step.Reading, step.Err
}

// Remaining reports how many scripted steps have not been consumed.
func (f *FakeSource) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Steps) - f.index
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
