package causal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Precision is the granularity a partial date is known to.
type Precision int

const (
	PrecisionNone Precision = iota
	PrecisionYear
	PrecisionMonth
	PrecisionDay
)

func (p Precision) String() string {
	switch p {
	case PrecisionYear:
		return "year"
	case PrecisionMonth:
		return "month"
	case PrecisionDay:
		return "day"
	default:
		return "none"
	}
}

// PartialDate is a date known to year, year-month or full-day granularity.
type PartialDate struct {
	Year      int
	Month     time.Month
	Day       int
	Precision Precision
}

// IsZero reports whether the date is unknown.
func (d PartialDate) IsZero() bool {
	return d.Precision == PrecisionNone
}

// Normalized expands the date to its first day: a year becomes YYYY-01-01 and
// a year-month becomes YYYY-MM-01.
func (d PartialDate) Normalized() time.Time {
	month, day := d.Month, d.Day
	if d.Precision < PrecisionMonth {
		month = time.January
	}
	if d.Precision < PrecisionDay {
		day = 1
	}
	return time.Date(d.Year, month, day, 0, 0, 0, 0, time.UTC)
}

// ISO renders the normalized date as YYYY-MM-DD.
func (d PartialDate) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Normalized().Format(time.DateOnly)
}

// Display renders the date at its own precision for people: "2021",
// "June 2021" or "15 June 2021".
func (d PartialDate) Display() string {
	switch d.Precision {
	case PrecisionYear:
		return strconv.Itoa(d.Year)
	case PrecisionMonth:
		return fmt.Sprintf("%s %d", d.Month, d.Year)
	case PrecisionDay:
		return fmt.Sprintf("%d %s %d", d.Day, d.Month, d.Year)
	default:
		return "unknown date"
	}
}

// ParseDate parses a stored partial date. The empty string yields the zero
// PartialDate and no error. Full timestamps are accepted and truncated to the
// day.
func ParseDate(s string) (PartialDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PartialDate{}, nil
	}

	switch {
	case len(s) == 4:
		t, err := time.Parse("2006", s)
		if err != nil {
			return PartialDate{}, fmt.Errorf("parse year %q: %w", s, err)
		}
		return PartialDate{Year: t.Year(), Month: time.January, Day: 1, Precision: PrecisionYear}, nil
	case len(s) == 7:
		t, err := time.Parse("2006-01", s)
		if err != nil {
			return PartialDate{}, fmt.Errorf("parse year-month %q: %w", s, err)
		}
		return PartialDate{Year: t.Year(), Month: t.Month(), Day: 1, Precision: PrecisionMonth}, nil
	case len(s) >= 10:
		t, err := time.Parse(time.DateOnly, s[:10])
		if err != nil {
			return PartialDate{}, fmt.Errorf("parse date %q: %w", s, err)
		}
		return PartialDate{Year: t.Year(), Month: t.Month(), Day: t.Day(), Precision: PrecisionDay}, nil
	}
	return PartialDate{}, fmt.Errorf("unrecognised date format %q", s)
}
