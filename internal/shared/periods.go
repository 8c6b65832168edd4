package shared

import (
	"errors"
	"fmt"
	"time"
)

// Period identifies one measurement month.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// ErrInvalidPeriod indicates a year/month pair outside the accepted range.
var ErrInvalidPeriod = errors.New("period invalid")

// CurrentPeriod returns the period containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: int(now.Month())}
}

// Validate checks the year/month pair.
func (p Period) Validate() error {
	if p.Year < 1900 || p.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, p.Month)
	}
	return nil
}

// Bounds returns the first and last calendar day of the period month.
func (p Period) Bounds() (start, end time.Time) {
	start = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end
}

// String renders the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
