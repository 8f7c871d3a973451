//go:build linux

package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealSource counts beat pulses (one rising edge per heartbeat) from a
// receiver module wired to a GPIO line.
type RealSource struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	now  func() time.Time

	mu     sync.Mutex
	beats  []time.Duration // edge timestamps since the last Next
	closed bool
}

// NewRealSource requests the beat line on gpiochip0.
func NewRealSource(pin int) (*RealSource, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("%w: open gpio chip: %v", ErrUnavailable, err)
	}

	s := &RealSource{chip: chip, now: time.Now}
	// Pull-down matches the Pi boot default for the receiver's open output.
	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(s.onEdge),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("%w: request beat pin %d: %v", ErrUnavailable, pin, err)
	}
	s.line = line
	return s, nil
}

func (s *RealSource) onEdge(evt gpiocdev.LineEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.beats = append(s.beats, evt.Timestamp)
}

// Next converts the beats seen since the previous call into a reading. The
// newest beat is kept so the next window has an interval to start from.
func (s *RealSource) Next(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Reading{}, ErrUnavailable
	}
	beats := s.beats
	if len(beats) > 0 {
		s.beats = []time.Duration{beats[len(beats)-1]}
	}
	bpm, ok := BPMFromBeats(beats)
	if !ok {
		// A lone anchor beat with nothing after it means the strap went quiet.
		s.beats = nil
		return Reading{}, ErrNoReading
	}
	return Reading{Time: s.now(), BPM: bpm}, nil
}

// Close releases GPIO resources. The line is reconfigured to input with
// pull-down before closing to leave the pin in its boot default state.
func (s *RealSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	var errs []error
	if s.line != nil {
		if err := s.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure beat pin: %w", err))
		}
		if err := s.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close beat pin: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
