package scheduling

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestParseHours(t *testing.T) {
	ranges, err := ParseHours("8-12,14-18")
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	require.Equal(t, HourRange{Start: 8, End: 12}, ranges[0])
	require.Equal(t, HourRange{Start: 14, End: 18}, ranges[1])
}

func TestParseHoursSortsRanges(t *testing.T) {
	// Ranges given out of order come back sorted
	ranges, err := ParseHours("14-18,8-12")
	require.NoError(t, err)
	require.Equal(t, 8, ranges[0].Start)
	require.Equal(t, 14, ranges[1].Start)
	require.Equal(t, "8-12,14-18", ranges.String())
}

func TestParseHoursSingleRange(t *testing.T) {
	ranges, err := ParseHours("10-12")
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	require.Equal(t, "10-12", ranges.String())
}

func TestParseHoursRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"abc",
		"8",
		"8-",
		"-12",
		"8:12",
		"8-12,",
		"8 - 12",
	}
	for _, input := range cases {
		_, err := ParseHours(input)
		require.Error(t, err, "input %q", input)
		require.True(t, errors.Is(err, ErrInvalidHours), "input %q", input)
	}
}

func TestParseHoursRejectsOutOfBounds(t *testing.T) {
	_, err := ParseHours("25-30")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidHours))
}

func TestParseHoursRejectsInvertedRange(t *testing.T) {
	_, err := ParseHours("14-10")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidHours))

	// Zero-width range is also invalid
	_, err = ParseHours("10-10")
	require.Error(t, err)
}

func TestParseHoursRejectsOverlap(t *testing.T) {
	_, err := ParseHours("8-12,11-14")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidHours))
}

func TestParseHoursAllowsAdjacentRanges(t *testing.T) {
	// Touching boundaries do not overlap
	ranges, err := ParseHours("8-12,12-14")
	require.NoError(t, err)
	require.Len(t, ranges, 2)
}

func TestHourRangeContains(t *testing.T) {
	r := HourRange{Start: 8, End: 12}
	require.True(t, r.Contains(8))
	require.True(t, r.Contains(11))
	require.False(t, r.Contains(12))
	require.False(t, r.Contains(7))
}

func TestValidateHours(t *testing.T) {
	require.NoError(t, ValidateHours("8-12,14-18"))
	require.Error(t, ValidateHours("garbage"))
}
