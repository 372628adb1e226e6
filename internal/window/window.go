package window

import "time"

// DefaultOffsetHours is the fixed UTC offset used for "today" (Dublin summer time).
// It is a constant offset, not a tz database zone, so DST transitions are ignored.
const DefaultOffsetHours = 1

// Window is the half-open interval [Start, End) of one local calendar day,
// expressed in UTC.
type Window struct {
	Start time.Time
	End   time.Time

	offsetHours int
}

// ComputeToday returns the window covering the calendar day of now as seen
// from a fixed UTC offset of offsetHours.
func ComputeToday(offsetHours int, now time.Time) Window {
	zone := Zone(offsetHours)
	local := now.In(zone)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
	start := midnight.UTC()
	return Window{
		Start:       start,
		End:         start.Add(24 * time.Hour),
		offsetHours: offsetHours,
	}
}

// Zone returns a fixed zone for the given hour offset.
func Zone(offsetHours int) *time.Location {
	return time.FixedZone("", offsetHours*int(time.Hour/time.Second))
}

// Contains reports whether t falls inside [Start, End).
func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && t.Before(w.End)
}

// Date renders the local calendar date of the window as YYYY-MM-DD.
func (w Window) Date() string {
	return w.Start.In(Zone(w.offsetHours)).Format(time.DateOnly)
}

// OffsetHours returns the offset the window was computed with.
func (w Window) OffsetHours() int {
	return w.offsetHours
}
