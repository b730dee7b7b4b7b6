// Package timefmt converts field times to text and decodes the relative time
// axes used by self-describing formats.
//
// All arithmetic uses the proleptic Gregorian calendar of package time.
package timefmt

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Layout is the ISO-8601 form used for every time reported by an iterator.
const Layout = "2006-01-02T15:04:05.000"

// ErrUnits is returned for time units that cannot be parsed.
var ErrUnits = errors.New("timefmt: unsupported time units")

// ISO8601 formats t as YYYY-MM-DDTHH:MM:SS.mmm in UTC.
func ISO8601(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse reads a time produced by ISO8601.
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(Layout, s, time.UTC)
}

// FromDateTime builds a time from a YYYYMMDD date and an hhmm time, the
// packing used by the SERVICE and EXTRA formats.
func FromDateTime(date, hhmm int64) time.Time {
	year := int(date / 10000)
	month := int(date/100) % 100
	day := int(date % 100)
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return time.Date(year, time.Month(month), day, int(hhmm/100), int(hhmm%100), 0, 0, time.UTC)
}

// ToDateTime is the inverse of FromDateTime.
func ToDateTime(t time.Time) (date, hhmm int64) {
	t = t.UTC()
	date = int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())
	hhmm = int64(t.Hour())*100 + int64(t.Minute())
	return date, hhmm
}

// Units is a parsed "<unit> since <epoch>" time axis description.
type Units struct {
	Step  time.Duration
	Epoch time.Time
}

// ParseUnits parses CF style units such as "hours since 2000-01-01 00:00:00".
func ParseUnits(s string) (Units, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " since ", 2)
	if len(parts) != 2 {
		return Units{}, fmt.Errorf("%w: %q", ErrUnits, s)
	}
	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "secs", "sec", "s":
		step = time.Second
	case "minutes", "minute", "mins", "min":
		step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return Units{}, fmt.Errorf("%w: %q", ErrUnits, s)
	}
	epoch, err := parseEpoch(strings.TrimSpace(parts[1]))
	if err != nil {
		return Units{}, fmt.Errorf("%w: %q", ErrUnits, s)
	}
	return Units{Step: step, Epoch: epoch}, nil
}

var epochLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05Z",
	"2006-01-02 15:04",
	"2006-1-2 15:4:5",
	"2006-1-2",
	"2006-01-02",
}

func parseEpoch(s string) (time.Time, error) {
	s = strings.TrimSuffix(s, " UTC")
	var lastErr error
	for _, layout := range epochLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// At returns the time of the axis value v.
func (u Units) At(v float64) time.Time {
	whole, frac := math.Modf(v)
	d := time.Duration(whole)*u.Step + time.Duration(frac*float64(u.Step))
	return u.Epoch.Add(d)
}
