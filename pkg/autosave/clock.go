package autosave

import "time"

// Timer is the subset of *time.Timer the scheduler uses.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// Clock abstracts time so debounce behaviour can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
