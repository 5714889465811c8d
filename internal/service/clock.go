package service

import "time"

// Clock returns the current time. Services truncate it to microseconds so
// values survive a round trip through PostgreSQL unchanged.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC().Truncate(time.Microsecond)
	}
	return c().UTC().Truncate(time.Microsecond)
}
