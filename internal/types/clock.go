package types

import "time"

// Clock supplies the current time. Services take a Clock instead of calling
// time.Now directly, so tests can freeze and advance time deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// NewRealClock returns a Clock backed by the system clock.
func NewRealClock() Clock {
	return RealClock{}
}
