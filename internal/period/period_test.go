package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuarterStartTokens(t *testing.T) {
	want := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024Q3", "2024-Q3", "2024 Q3", "2024q3", " 2024-q3 "} {
		got, ok := QuarterStart(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestQuarterStartFromDate(t *testing.T) {
	got, ok := QuarterStart("2024-05-17")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestQuarterStartRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "2024Q5", "2024Q", "Q3", "total"} {
		_, ok := QuarterStart(raw)
		assert.False(t, ok, raw)
	}
}

func TestMonthStart(t *testing.T) {
	got, ok := MonthStart("2024-05-17")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), got)

	got, ok = MonthStart("2024-05")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateLayouts(t *testing.T) {
	for _, raw := range []string{"2024-05-17", "2024/05/17", "2024-05-17T08:30:00", "2024-05-17 08:30:00"} {
		got, ok := ParseDate(raw)
		require.True(t, ok, raw)
		assert.Equal(t, 2024, got.Year(), raw)
		assert.Equal(t, time.May, got.Month(), raw)
	}
	_, ok := ParseDate("17/05/2024")
	assert.False(t, ok)
}

func TestOfDate(t *testing.T) {
	cases := map[time.Month]time.Month{
		time.January:  time.January,
		time.March:    time.January,
		time.April:    time.April,
		time.December: time.October,
	}
	for month, start := range cases {
		got := OfDate(time.Date(2024, month, 20, 12, 0, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2024, start, 1, 0, 0, 0, 0, time.UTC), got)
	}
}
