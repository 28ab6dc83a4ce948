package shared

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var periodPattern = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)

// Period identifies a fiscal month, rendered as YYYY-MM
type Period struct {
	Year  int
	Month int
}

// ParsePeriod parses a YYYY-MM string into a Period
func ParsePeriod(value string) (Period, error) {
	parts := periodPattern.FindStringSubmatch(value)
	if parts == nil {
		return Period{}, ErrInvalidPeriod{Value: value, Reason: "expected format YYYY-MM"}
	}
	year, _ := strconv.Atoi(parts[1])
	month, _ := strconv.Atoi(parts[2])
	if year == 0 {
		return Period{}, ErrInvalidPeriod{Value: value, Reason: "year must be positive"}
	}
	return Period{Year: year, Month: month}, nil
}

// PeriodOf returns the fiscal period a timestamp falls into
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// IsZero reports whether the period was never set
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Valid reports whether the period denotes a real calendar month
func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= 1 && p.Month <= 12
}

// MonthIndex returns a monotonically increasing month counter, used for distances
func (p Period) MonthIndex() int {
	return p.Year*12 + (p.Month - 1)
}

// MonthsBetween returns the absolute number of months separating two periods
func (p Period) MonthsBetween(other Period) int {
	d := p.MonthIndex() - other.MonthIndex()
	if d < 0 {
		return -d
	}
	return d
}

// MarshalText renders the period as YYYY-MM so it travels as a plain JSON string
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
