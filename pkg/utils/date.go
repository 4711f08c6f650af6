package utils

import (
	"time"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// TimeNowUTC returns the current UTC time truncated to whole seconds, the
// resolution stored in the queue.
func TimeNowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time {
		return t
	}
}

// TickingClock returns a Clock starting at start that advances by step on every call.
func TickingClock(start time.Time, step time.Duration) Clock {
	current := start.Add(-step)
	return func() time.Time {
		current = current.Add(step)
		return current
	}
}

func PrettyDate(date time.Time) string {
	return date.UTC().Format("2006-01-02 15:04:05 MST")
}
