//go:build !linux

package sensor

import (
	"context"
	"fmt"
)

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// NewRealSource returns an error on non-Linux platforms.
func NewRealSource(pin int) (*RealSource, error) {
	return nil, fmt.Errorf("%w: gpio not supported on this platform (requires Linux)", ErrUnavailable)
}

// Next always reports the bridge as unavailable.
func (s *RealSource) Next(ctx context.Context) (Reading, error) {
	return Reading{}, ErrUnavailable
}

// Close is a no-op on non-Linux platforms.
func (s *RealSource) Close() error {
	return nil
}
