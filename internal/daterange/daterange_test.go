package daterange_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasas/ratesync/internal/daterange"
	"github.com/tasas/ratesync/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerate_HalfOpen(t *testing.T) {
	// Start excluded, end included.
	days, err := daterange.Generate(day(2024, 1, 1), day(2024, 1, 5), 10)
	require.NoError(t, err)

	require.Len(t, days, 4)
	assert.Equal(t, day(2024, 1, 2), days[0])
	assert.Equal(t, day(2024, 1, 5), days[3])
}

func TestGenerate_QuantityCapsRange(t *testing.T) {
	days, err := daterange.Generate(day(2024, 1, 1), day(2024, 3, 1), 7)
	require.NoError(t, err)

	require.Len(t, days, 7)
	assert.Equal(t, day(2024, 1, 2), days[0])
	assert.Equal(t, day(2024, 1, 8), days[6])
}

func TestGenerate_StrictlyAscendingWithinBounds(t *testing.T) {
	start, end := day(2024, 2, 10), day(2024, 2, 29)
	days, err := daterange.Generate(start, end, 50)
	require.NoError(t, err)

	for i, d := range days {
		assert.True(t, d.After(start), "element %d not after start", i)
		assert.False(t, d.After(end), "element %d after end", i)
		if i > 0 {
			assert.True(t, days[i-1].Before(d), "sequence not strictly ascending at %d", i)
		}
	}
}

func TestGenerate_TruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("ART", -3*60*60)
	start := time.Date(2024, 1, 1, 21, 30, 0, 0, loc) // 2024-01-02 00:30 UTC
	end := time.Date(2024, 1, 4, 10, 0, 0, 0, time.UTC)

	days, err := daterange.Generate(start, end, 10)
	require.NoError(t, err)

	require.Len(t, days, 2)
	assert.Equal(t, day(2024, 1, 3), days[0])
	assert.Equal(t, day(2024, 1, 4), days[1])
}

func TestGenerate_EmptyWhenStartEqualsEnd(t *testing.T) {
	days, err := daterange.Generate(day(2024, 1, 5), day(2024, 1, 5), 10)
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestGenerate_EndBeforeStart(t *testing.T) {
	_, err := daterange.Generate(day(2024, 1, 5), day(2024, 1, 1), 10)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestGenerate_NonPositiveQuantity(t *testing.T) {
	_, err := daterange.Generate(day(2024, 1, 1), day(2024, 1, 5), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := daterange.Generate(day(2024, 1, 1), day(2024, 1, 31), 15)
	require.NoError(t, err)
	b, err := daterange.Generate(day(2024, 1, 1), day(2024, 1, 31), 15)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
