package usecase

import "time"

// Clock abstracts wall-clock reads and timer waits so the orchestrator's
// poll/stuck logic is testable without real time
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NewRealClock returns the production wall clock
func NewRealClock() Clock {
	return realClock{}
}
