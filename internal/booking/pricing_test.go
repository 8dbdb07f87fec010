package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	require.NoError(t, err)
	return v
}

func interval(t *testing.T, in, out string) Interval {
	t.Helper()
	iv, err := NewInterval(at(t, in), at(t, out))
	require.NoError(t, err)
	return iv
}

var testRates = model.RateCard{
	BasePrice: 1_000_000,
	Hourly:    model.HourlyRate{FirstHour: 100_000, AdditionalHour: 50_000},
}

func TestPriceRoom(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		out    string
		nights int
		hours  int
		amount int64
	}{
		{"three nights", "2025-01-01 14:00", "2025-01-04 12:00", 3, 0, 3_000_000},
		{"late checkout still counts calendar nights", "2025-01-01 14:00", "2025-01-04 18:00", 3, 0, 3_000_000},
		{"overnight short stay is one night", "2025-01-01 23:00", "2025-01-02 01:00", 1, 0, 1_000_000},
		{"two hours same day", "2025-01-01 13:00", "2025-01-01 15:00", 0, 2, 150_000},
		{"partial hour rounds up", "2025-01-01 13:00", "2025-01-01 15:10", 0, 3, 200_000},
		{"under one hour floors to first hour", "2025-01-01 13:00", "2025-01-01 13:30", 0, 1, 100_000},
		{"exactly one hour", "2025-01-01 13:00", "2025-01-01 14:00", 0, 1, 100_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriceRoom(testRates, interval(t, tt.in, tt.out))
			assert.Equal(t, tt.nights, got.Nights)
			assert.Equal(t, tt.hours, got.Hours)
			assert.Equal(t, tt.amount, got.Amount)
		})
	}
}

func TestPriceRoomIgnoresDSTShift(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}

	iv, err := NewInterval(
		time.Date(2025, 3, 29, 14, 0, 0, 0, loc),
		time.Date(2025, 3, 31, 12, 0, 0, 0, loc),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, PriceRoom(testRates, iv).Nights)
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("2025-01-01", "", "2025-01-04", "", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, at(t, "2025-01-01 14:00"), iv.CheckIn)
	assert.Equal(t, at(t, "2025-01-04 12:00"), iv.CheckOut)

	_, err = ParseInterval("2025-01-01", "13:00", "2025-01-01", "13:00", time.UTC)
	verr := AsValidationError(err)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields(), "interval")

	_, err = ParseInterval("01/01/2025", "25:00", "", "", time.UTC)
	verr = AsValidationError(err)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields(), "check_in_date")
	assert.Contains(t, verr.Fields(), "check_out_date")
}

func TestIntervalOverlaps(t *testing.T) {
	base := interval(t, "2025-01-01 13:00", "2025-01-01 15:00")

	assert.True(t, base.Overlaps(interval(t, "2025-01-01 14:00", "2025-01-01 16:00")))
	assert.True(t, base.Overlaps(interval(t, "2025-01-01 13:30", "2025-01-01 14:00")))
	assert.False(t, base.Overlaps(interval(t, "2025-01-01 15:00", "2025-01-01 16:00")), "touching end is free")
	assert.False(t, base.Overlaps(interval(t, "2025-01-01 11:00", "2025-01-01 13:00")), "touching start is free")
}
