package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-28 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-28", d.String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String(), "leap day counted")

	_, err = ParseDate("28/02/2024")
	assert.Error(t, err)
}

func TestDateArithmetic(t *testing.T) {
	a := NewDate(2024, time.March, 1)
	b := a.AddDays(14)

	assert.Equal(t, 14, a.DaysUntil(b))
	assert.Equal(t, -14, b.DaysUntil(a))
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, b.Equal(NewDate(2024, time.March, 15)))
}

func TestDateOfDropsClock(t *testing.T) {
	late := time.Date(2024, time.March, 1, 23, 59, 0, 0, time.UTC)
	assert.True(t, DateOf(late).Equal(NewDate(2024, time.March, 1)))
}

func TestZeroDate(t *testing.T) {
	var d Date
	assert.True(t, d.IsZero())
	assert.Empty(t, d.String())
}
