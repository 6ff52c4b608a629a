package bucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTimeAlignsToMonday(t *testing.T) {
	// 2024-03-15 is a Friday; its week starts Monday 2024-03-11.
	friday := time.Date(2024, 3, 15, 17, 45, 12, 0, time.UTC)
	b := FromTime(friday)

	assert.Equal(t, time.Monday, b.Time().Weekday())
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), b.Time())

	// A Monday maps to itself, time-of-day stripped.
	monday := time.Date(2024, 3, 11, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, b, FromTime(monday))

	// Sunday belongs to the week that started six days earlier.
	sunday := time.Date(2024, 3, 17, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, b, FromTime(sunday))
}

func TestEpochIsMonday(t *testing.T) {
	assert.Equal(t, time.Monday, Epoch().Time().Weekday())
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), Epoch().Time())
}

func TestPreviousNext(t *testing.T) {
	b := FromTime(time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, b.Time().AddDate(0, 0, -7), b.Previous().Time())
	assert.Equal(t, b, b.Previous().Next())
}

func TestIterPastTo(t *testing.T) {
	start := FromTime(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	end := FromTime(time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC))

	got := start.IterPastTo(end)

	// 03-11, 03-04, 02-26, 02-19: stops before reaching end (02-12).
	require.Len(t, got, 4)
	for i, b := range got {
		assert.Equal(t, start.Time().AddDate(0, 0, -7*i), b.Time())
		assert.True(t, b.After(end))
	}

	// Strictly decreasing.
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Before(got[i-1]))
	}
}

func TestIterPastToBounds(t *testing.T) {
	b := FromTime(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))

	// end == start: empty walk.
	assert.Empty(t, b.IterPastTo(b))
	// end after start: empty walk, no wraparound.
	assert.Empty(t, b.IterPastTo(b.Next()))

	// Walking to the epoch emits at most ceil(delta/7) buckets.
	weeks := int(b.Time().Sub(Epoch().Time()).Hours() / 24 / 7)
	got := b.IterPastTo(Epoch())
	assert.Len(t, got, weeks)
}

func TestIterForwardTo(t *testing.T) {
	start := FromTime(time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC))
	end := FromTime(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))

	got := start.IterForwardTo(end)

	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].After(got[i-1]))
	}
	assert.Empty(t, end.IterForwardTo(start))
}

func TestUnixIsMidnight(t *testing.T) {
	b := FromTime(time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, b.Time().Unix(), b.Unix())
	assert.Zero(t, b.Unix()%86400)
}
