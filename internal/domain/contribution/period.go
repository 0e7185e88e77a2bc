package contribution

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/welfare/backend/internal/domain/shared"
)

// Period is one calendar-month obligation cycle, carried as a YYYY-MM token
type Period struct {
	year  int
	month time.Month
}

// ParsePeriod parses a "YYYY-MM" token into a Period
func ParsePeriod(token string) (Period, error) {
	t, err := time.Parse("2006-01", token)
	if err != nil {
		return Period{}, shared.NewValidationError("Invalid period token: " + token)
	}
	return Period{year: t.Year(), month: t.Month()}, nil
}

// PeriodOf returns the period containing the given date
func PeriodOf(date time.Time) Period {
	return Period{year: date.Year(), month: date.Month()}
}

// NewPeriod builds a period from year and month
func NewPeriod(year int, month time.Month) Period {
	return Period{year: year, month: month}
}

// String returns the YYYY-MM token
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.year, int(p.month))
}

// Year returns the period's year
func (p Period) Year() int {
	return p.year
}

// Month returns the period's month
func (p Period) Month() time.Month {
	return p.month
}

// IsZero reports whether the period is unset
func (p Period) IsZero() bool {
	return p.year == 0
}

// Next returns the following calendar month
func (p Period) Next() Period {
	t := time.Date(p.year, p.month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return Period{year: t.Year(), month: t.Month()}
}

// Before reports whether p is strictly earlier than other
func (p Period) Before(other Period) bool {
	if p.year != other.year {
		return p.year < other.year
	}
	return p.month < other.month
}

// After reports whether p is strictly later than other
func (p Period) After(other Period) bool {
	return other.Before(p)
}

// Equal reports whether both periods are the same month
func (p Period) Equal(other Period) bool {
	return p.year == other.year && p.month == other.month
}

// DueDate returns the date on which this period's contribution falls due:
// the given day of the following month. Days beyond the following month's
// length clamp to its last day.
func (p Period) DueDate(dueDay int) time.Time {
	if dueDay < 1 {
		dueDay = 1
	}
	next := p.Next()
	lastDay := time.Date(next.year, next.month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if dueDay > lastDay {
		dueDay = lastDay
	}
	return time.Date(next.year, next.month, dueDay, 0, 0, 0, 0, time.UTC)
}

// PeriodsBetween returns every period from first to last inclusive,
// oldest first. Returns nil when first is after last.
func PeriodsBetween(first, last Period) []Period {
	if first.After(last) {
		return nil
	}
	var periods []Period
	for p := first; !p.After(last); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}

// Value implements driver.Valuer so periods persist as their token
func (p Period) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner for the YYYY-MM column representation
func (p *Period) Scan(value any) error {
	var token string
	switch v := value.(type) {
	case string:
		token = v
	case []byte:
		token = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Period", value)
	}
	parsed, err := ParsePeriod(token)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalJSON renders the period as its token
func (p Period) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON parses the quoted token form
func (p *Period) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid period JSON: %s", string(data))
	}
	parsed, err := ParsePeriod(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
