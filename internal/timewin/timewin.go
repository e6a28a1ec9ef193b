// Package timewin converts between clock strings, legacy hour pairs, and
// minutes-since-midnight windows, including windows that wrap past midnight.
package timewin

import (
	"fmt"
	"strconv"
	"strings"
)

const dayMinutes = 24 * 60

// Window is a half-open interval [Start, End) in minutes since local
// midnight. End may exceed 1440 for a window that wraps past midnight:
// 23:00-01:00 is stored as [1380, 1500].
type Window struct {
	Start int
	End   int
}

// Normalize builds a Window from a start/end pair. Values where both are
// <= 24 are treated as legacy hours and converted to minutes; anything
// else is taken as minutes directly. A pair with start == end is invalid.
// An end at or before the start is assumed to wrap past midnight.
func Normalize(start, end int) (Window, error) {
	if start == end {
		return Window{}, fmt.Errorf("invalid time window [%d, %d]: start equals end", start, end)
	}
	if start < 24 && end <= 24 {
		start *= 60
		end *= 60
	}
	if end <= start {
		end += dayMinutes
	}
	return Window{Start: start, End: end}, nil
}

// Contains reports whether a time of day (minutes since midnight, 0-1439)
// falls inside the window, applying the midnight-wrap rule for windows
// whose End exceeds 1440.
func (w Window) Contains(minute int) bool {
	if w.End > dayMinutes {
		return minute >= w.Start || minute < w.End-dayMinutes
	}
	return minute >= w.Start && minute < w.End
}

// Wraps reports whether the window crosses midnight.
func (w Window) Wraps() bool {
	return w.End > dayMinutes
}

// String renders the window as "HH:MM-HH:MM" with the end reduced into
// the day for wrapped windows.
func (w Window) String() string {
	end := w.End
	if end > dayMinutes {
		end -= dayMinutes
	}
	if end == dayMinutes {
		end = 0
	}
	return ToClock(w.Start) + "-" + ToClock(end)
}

// ToMinutes parses a strict "HH:MM" clock string into minutes since
// midnight. Input without a colon, with non-numeric parts, or out of the
// 00:00-23:59 range is an error; permissive parsing of strings like
// "0930" is deliberately not supported.
func ToMinutes(clock string) (int, error) {
	h, m, ok := strings.Cut(clock, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q: missing colon", clock)
	}
	hour, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock time %q: out of range", clock)
	}
	return hour*60 + minute, nil
}

// ToClock formats minutes since midnight as zero-padded "HH:MM". Callers
// are expected to pre-clamp values past the end of the day.
func ToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
