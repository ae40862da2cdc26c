package docmap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

func formatMessage(template, field string, value any) string {
	r := strings.NewReplacer(
		"{field}", field,
		"{value}", fmt.Sprintf("%v", value),
	)
	return r.Replace(template)
}

// MaxLength limits the length of string values.
type MaxLength struct {
	Limit int
}

func (m MaxLength) Check(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return len(s) <= m.Limit
}

func (m MaxLength) Message() string {
	return fmt.Sprintf("length of value for field %q must be at most %d", "{field}", m.Limit)
}

// Email accepts loosely RFC-shaped addresses: something at something with
// a dotted domain.
type Email struct{}

var emailPattern = regexp.MustCompile(`(?i)^.+@.+\..+$`)

func (Email) Check(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return emailPattern.MatchString(s)
}

func (Email) Message() string {
	return `value of the field "{field}" is not a valid email: {value}`
}

// TimeOfDay accepts "hh:mm" strings. "24:00" is allowed as the full-day
// marker.
type TimeOfDay struct{}

var timeOfDayPattern = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})$`)

func (TimeOfDay) Check(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if hours == 24 && minutes == 0 {
		return true
	}
	return hours >= 0 && hours <= 23 && minutes >= 0 && minutes <= 59
}

func (TimeOfDay) Message() string {
	return `value of the field "{field}" is not a valid "hh:mm" time: {value}`
}
