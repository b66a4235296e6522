// Package clock abstracts the current time so that expiry comparisons are
// deterministic in tests.
package clock

import "time"

// Clock supplies the current time for all expiry decisions.
type Clock interface {
	Now() time.Time
}

// System is the wall-clock implementation used in production.
type System struct{}

func (System) Now() time.Time { return time.Now() }
