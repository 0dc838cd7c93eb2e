package querycache

import "time"

// clock abstracts wall time and timer scheduling so staleness and garbage
// collection are testable without sleeping.
type clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) stopper
}

// stopper is the subset of *time.Timer the cache relies on.
type stopper interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}
