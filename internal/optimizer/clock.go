package optimizer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Clock is a time of day expressed as minutes since midnight.
// Values past 24:00 are allowed so that an overrunning day stays ordered.
type Clock int

// MinutesPerDay is the first Clock value past midnight.
const MinutesPerDay = 24 * 60

var (
	clockRegex   = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
	elapsedRegex = regexp.MustCompile(`^(\d{2,5}):([0-5]\d)$`)
)

// NewClock builds a Clock from hours and minutes.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ClockFromMinutes rounds fractional minutes to the nearest whole minute.
func ClockFromMinutes(minutes float64) Clock {
	return Clock(math.Round(minutes))
}

// ParseClock parses a 24-hour "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	return parse(clockRegex, s, "HH:MM")
}

// ParseElapsed parses "HH:MM" where hours may run past 23, as produced by
// String for a day that overruns midnight.
func ParseElapsed(s string) (Clock, error) {
	return parse(elapsedRegex, s, "HH:MM")
}

func parse(re *regexp.Regexp, s, want string) (Clock, error) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time of day %q: expected %s", s, want)
	}
	h, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return NewClock(h, minute), nil
}

// Minutes returns the clock as minutes since midnight.
func (c Clock) Minutes() int { return int(c) }

// WithinDay reports whether the clock is in [00:00, 24:00).
func (c Clock) WithinDay() bool { return c >= 0 && c < MinutesPerDay }

// String formats the clock as "HH:MM". Hours are not wrapped at midnight.
func (c Clock) String() string {
	m := int(c)
	if m < 0 {
		m = 0
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts everything
// MarshalText produces, including hours past 23; callers taking a time of
// day from input check WithinDay.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseElapsed(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
