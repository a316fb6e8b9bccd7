package scheduling

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidHours indicates an available-hours string that does not match
// the HH-HH(,HH-HH)* grammar or violates the hour bounds.
var ErrInvalidHours = errors.New("invalid available hours")

var hoursPattern = regexp.MustCompile(`^(\d{1,2}-\d{1,2})(,\d{1,2}-\d{1,2})*$`)

// HourRange is a technician working window [Start, End) in whole hours
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether the hour falls inside the window
func (r HourRange) Contains(hour int) bool {
	return hour >= r.Start && hour < r.End
}

// HourRanges is a normalized set of disjoint working windows
type HourRanges []HourRange

// ParseHours parses an available-hours string such as "10-12,12-14,15-17"
// into a sorted set of disjoint ranges. Hours must be within [0,23] and each
// range must have start < end. Overlapping ranges are rejected.
func ParseHours(s string) (HourRanges, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Wrap(ErrInvalidHours, "empty hours string")
	}
	if !hoursPattern.MatchString(s) {
		return nil, errors.Wrapf(ErrInvalidHours, "malformed hours string %q", s)
	}

	var ranges HourRanges
	for _, part := range strings.Split(s, ",") {
		bounds := strings.SplitN(part, "-", 2)
		start, err := strconv.Atoi(bounds[0])
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidHours, "bad start hour in %q", part)
		}
		end, err := strconv.Atoi(bounds[1])
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidHours, "bad end hour in %q", part)
		}
		if start < 0 || start > 23 || end < 0 || end > 23 {
			return nil, errors.Wrapf(ErrInvalidHours, "hours must be between 0 and 23 in %q", part)
		}
		if start >= end {
			return nil, errors.Wrapf(ErrInvalidHours, "start must be before end in %q", part)
		}
		ranges = append(ranges, HourRange{Start: start, End: end})
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Start < ranges[i-1].End {
			return nil, errors.Wrapf(ErrInvalidHours, "overlapping ranges %d-%d and %d-%d",
				ranges[i-1].Start, ranges[i-1].End, ranges[i].Start, ranges[i].End)
		}
	}

	return ranges, nil
}

// String serializes the ranges back to the HH-HH,HH-HH form
func (rs HourRanges) String() string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, fmt.Sprintf("%d-%d", r.Start, r.End))
	}
	return strings.Join(parts, ",")
}

// ValidateHours reports whether the string is a valid available-hours value
func ValidateHours(s string) error {
	_, err := ParseHours(s)
	return err
}
