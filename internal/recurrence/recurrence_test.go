package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeToSeconds(t *testing.T) {
	tests := []struct {
		code string
		want int64
	}{
		{"n", 0},
		{"i", 60},
		{"h", 3600},
		{"d", 86400},
		{"w", 604800},
		{"m", 2629743},
		{"y", 31556926},
		{"c", 0},
		{"x", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeToSeconds(tt.code))
		})
	}
}

func TestCodeToCron(t *testing.T) {
	assert.Equal(t, "0 * * * *", CodeToCron("h"))
	assert.Equal(t, "0 0 1 1 *", CodeToCron("y"))
	assert.Equal(t, "", CodeToCron("n"))
	assert.Equal(t, "", CodeToCron("bogus"))
}

func TestRoundTrip(t *testing.T) {
	for _, code := range Codes() {
		t.Run(code, func(t *testing.T) {
			assert.Equal(t, code, IntervalToCode(CodeToInterval(code)))
			assert.Equal(t, CodeToSeconds(code), CodeToSeconds(IntervalToCode(CodeToInterval(code))))
		})
	}
}

func TestUnknownSentinels(t *testing.T) {
	assert.Equal(t, NotAvailable, CodeToInterval("q"))
	assert.Equal(t, NotAvailable, IntervalToCode("fortnightly"))
	assert.False(t, IsValid("q"))
	assert.False(t, IsPeriodic("n"))
	assert.True(t, IsPeriodic("c"))
}

func TestNext(t *testing.T) {
	from := time.Date(2024, 3, 10, 14, 25, 0, 0, time.UTC)

	next, ok, err := Next(Hourly, "", from)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC), next)

	next, ok, err = Next(Monthly, "", from)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), next)

	next, ok, err = Next(Custom, "*/15 * * * *", from)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC), next)

	_, ok, err = Next(Disabled, "", from)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = Next(Custom, "not a cron", from)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("@daily"))
	assert.NoError(t, Validate("5 4 * * 1"))
	assert.Error(t, Validate("61 * * * *"))
}
