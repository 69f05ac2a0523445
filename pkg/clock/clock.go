// Package clock abstracts the current time so that due-date comparisons
// and window expirations (acceptance, settlement, guarantee) are
// deterministic under test.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fake is a settable clock for tests.
type Fake struct {
	Current time.Time
}

func NewFake(t time.Time) *Fake { return &Fake{Current: t} }

func (f *Fake) Now() time.Time { return f.Current }

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
