package volume

import "context"

// Probe discovers mounted volumes on the local machine and classifies
// them. Platform-specific enumeration is implementation detail; callers
// depend only on this interface so that a probe can be swapped per OS or
// faked in tests.
type Probe interface {
	// Probe returns the set of currently mounted volumes.
	Probe(ctx context.Context) ([]Volume, error)
}

// NullProbe is a Probe that always reports no volumes. Useful as a
// fallback on platforms without a dedicated implementation.
type NullProbe struct{}

func (NullProbe) Probe(ctx context.Context) ([]Volume, error) {
	return nil, nil
}
