package app

import "time"

// Timer is a cancellable scheduled action.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Production uses time.AfterFunc; tests drive a fake clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewRealScheduler returns a Scheduler backed by the runtime timers.
func NewRealScheduler() Scheduler {
	return realScheduler{}
}

// Timings holds the authoritative game timing constants.
type Timings struct {
	Countdown    time.Duration
	QuestionTime time.Duration
	RevealDelay  time.Duration
}

// DefaultTimings returns the 5s countdown, 10s per question and 3s reveal defaults.
func DefaultTimings() Timings {
	return Timings{
		Countdown:    5 * time.Second,
		QuestionTime: 10 * time.Second,
		RevealDelay:  3 * time.Second,
	}
}

func stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
