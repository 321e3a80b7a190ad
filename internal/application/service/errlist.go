package service

import (
	"fmt"
	"time"
)

// DefaultMaxErrors caps the per-run error list returned in job results.
const DefaultMaxErrors = 20

// ErrorList collects per-item errors up to a fixed capacity. Errors beyond
// the cap are counted, not stored.
type ErrorList struct {
	max     int
	items   []string
	dropped int
}

func NewErrorList(max int) *ErrorList {
	if max <= 0 {
		max = DefaultMaxErrors
	}
	return &ErrorList{max: max}
}

func (l *ErrorList) Add(err error) {
	if err == nil {
		return
	}
	if len(l.items) >= l.max {
		l.dropped++
		return
	}
	l.items = append(l.items, err.Error())
}

func (l *ErrorList) Addf(format string, args ...any) {
	l.Add(fmt.Errorf(format, args...))
}

// Merge appends another list's items and dropped count, respecting the cap.
func (l *ErrorList) Merge(items []string, dropped int) {
	for _, s := range items {
		if len(l.items) >= l.max {
			l.dropped++
			continue
		}
		l.items = append(l.items, s)
	}
	l.dropped += dropped
}

func (l *ErrorList) Len() int { return len(l.items) + l.dropped }

func (l *ErrorList) Items() []string {
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}

func (l *ErrorList) Dropped() int { return l.dropped }

// Clock returns the current time. A nil Clock means time.Now in UTC.
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}
