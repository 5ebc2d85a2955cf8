package wallet

import (
	"strings"
	"time"

	"github.com/frahmantamala/employee-portal/internal"
)

const DateLayout = "2006-01-02"

// Date is a calendar day with no time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate reads a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, internal.NewValidationFieldError("date", "date must use the form YYYY-MM-DD", internal.ErrCodeInvalidDate).WithCause(err)
	}
	return DateOf(t), nil
}

// DateOf strips the time of day from t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// DateRange bounds a log filter. A nil bound is open.
type DateRange struct {
	Start *Date
	End   *Date
}

// Contains reports whether d lies within r, both bounds inclusive.
func (r DateRange) Contains(d Date) bool {
	if r.Start != nil && d.Compare(*r.Start) < 0 {
		return false
	}
	if r.End != nil && d.Compare(*r.End) > 0 {
		return false
	}
	return true
}

// FilterLogs returns the entries whose calendar date in loc falls inside r.
// The input slice is not modified. A nil loc means time.Local.
func FilterLogs(entries []LogEntry, r DateRange, loc *time.Location) []LogEntry {
	if loc == nil {
		loc = time.Local
	}
	out := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		if r.Contains(DateOf(e.Time().In(loc))) {
			out = append(out, e)
		}
	}
	return out
}
