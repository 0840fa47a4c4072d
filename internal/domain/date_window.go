package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// DateWindow is an inclusive local-date range: [Start 00:00:00, End 23:59:59.999999999].
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// NewDateWindow builds a window from two YYYY-MM-DD strings interpreted in loc.
func NewDateWindow(from, to string, loc *time.Location) (DateWindow, error) {
	if loc == nil {
		loc = time.Local
	}
	start, err := time.ParseInLocation(DateLayout, from, loc)
	if err != nil {
		return DateWindow{}, fmt.Errorf("%w: from %q: %v", ErrInvalidDateRange, from, err)
	}
	end, err := time.ParseInLocation(DateLayout, to, loc)
	if err != nil {
		return DateWindow{}, fmt.Errorf("%w: to %q: %v", ErrInvalidDateRange, to, err)
	}
	if end.Before(start) {
		return DateWindow{}, fmt.Errorf("%w: %s is before %s", ErrInvalidDateRange, to, from)
	}
	return WindowForDays(start, end), nil
}

// WindowForDays widens start and end to cover their whole calendar days.
func WindowForDays(start, end time.Time) DateWindow {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	e := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), end.Location())
	return DateWindow{Start: s, End: e}
}

// LastDays is the window ending today and starting days before it.
func LastDays(now time.Time, days int) DateWindow {
	return WindowForDays(now.AddDate(0, 0, -days), now)
}

// Contains reports whether t falls inside the window, bounds included.
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w DateWindow) String() string {
	return w.Start.Format(DateLayout) + ".." + w.End.Format(DateLayout)
}

// ParseRecordDay parses a report day in DD/MM/YYYY or YYYY-MM-DD form in loc.
func ParseRecordDay(day string, loc *time.Location) (time.Time, bool) {
	day = strings.TrimSpace(day)
	if day == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if parts := strings.Split(day, "/"); len(parts) == 3 {
		d, errD := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		y, errY := strconv.Atoi(parts[2])
		if errD == nil && errM == nil && errY == nil && m >= 1 && m <= 12 && d >= 1 && d <= 31 {
			return time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc), true
		}
		return time.Time{}, false
	}
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, day, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
