// Package slot holds the time arithmetic for "HH:MM-HH:MM" booking slots.
//
// Times are minutes since midnight on a fixed reference day, so only the
// time of day takes part in comparisons.
package slot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

var ErrMalformedSlot = errors.New("malformed slot")

// Slot is a half-open range [Start, End) of minutes since midnight.
type Slot struct {
	Start int
	End   int
}

// Parse reads "HH:MM-HH:MM". "24:00" is only accepted as an end time.
func Parse(s string) (Slot, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Slot{}, fmt.Errorf("%w: %q", ErrMalformedSlot, s)
	}

	start, err := parseClock(strings.TrimSpace(parts[0]))
	if err != nil || start == minutesPerDay {
		return Slot{}, fmt.Errorf("%w: bad start in %q", ErrMalformedSlot, s)
	}
	end, err := parseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		return Slot{}, fmt.Errorf("%w: bad end in %q", ErrMalformedSlot, s)
	}

	return Slot{Start: start, End: end}, nil
}

func parseClock(tok string) (int, error) {
	hm := strings.Split(tok, ":")
	if len(hm) != 2 || !twoDigits(hm[0]) || !twoDigits(hm[1]) {
		return 0, ErrMalformedSlot
	}
	h := int(hm[0][0]-'0')*10 + int(hm[0][1]-'0')
	m := int(hm[1][0]-'0')*10 + int(hm[1][1]-'0')
	if h > 24 || m > 59 || (h == 24 && m != 0) {
		return 0, ErrMalformedSlot
	}
	return h*60 + m, nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Slot {
	sl, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sl
}

// Validate requires a non-empty range.
func (s Slot) Validate() error {
	if s.Start >= s.End {
		return fmt.Errorf("%w: start %s is not before end %s", ErrMalformedSlot, FormatClock(s.Start), FormatClock(s.End))
	}
	return nil
}

func (s Slot) String() string {
	return FormatClock(s.Start) + "-" + FormatClock(s.End)
}

// StartHour is the hour the slot begins in.
func (s Slot) StartHour() int {
	return s.Start / 60
}

// Hours is the slot duration in hours; fractions are allowed.
func (s Slot) Hours() float64 {
	return Duration(s.Start, s.End)
}

// Overlaps reports strict overlap with o.
func (s Slot) Overlaps(o Slot) bool {
	return Overlaps(s.Start, s.End, o.Start, o.End)
}

func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// Duration returns end-start in hours.
func Duration(start, end int) float64 {
	return float64(end-start) / 60
}

// Overlaps is strict: touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// IsPast rejects dates before today and, for today, any slot whose start is
// not after now. date and now are read in now's location.
func IsPast(date time.Time, s Slot, now time.Time) bool {
	today := Day(now)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return true
	}
	if day.After(today) {
		return false
	}
	nowMin := now.Hour()*60 + now.Minute()
	return s.Start <= nowMin
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseDate reads a YYYY-MM-DD calendar day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
}
