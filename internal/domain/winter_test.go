package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinterRange(t *testing.T) {
	months, err := WinterRange(2018, 2020)
	require.NoError(t, err)
	require.Len(t, months, 12)

	assert.Equal(t, time.Date(2018, time.November, 1, 0, 0, 0, 0, time.UTC), months[0])
	assert.Equal(t, time.Date(2018, time.December, 1, 0, 0, 0, 0, time.UTC), months[1])
	assert.Equal(t, time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC), months[2])
	assert.Equal(t, time.Date(2019, time.April, 1, 0, 0, 0, 0, time.UTC), months[5])
	assert.Equal(t, time.Date(2019, time.November, 1, 0, 0, 0, 0, time.UTC), months[6])
	assert.Equal(t, time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC), months[11])
}

func TestWinterRangeRejectsEmptySpan(t *testing.T) {
	_, err := WinterRange(2020, 2020)
	assert.Error(t, err)
	_, err = WinterRange(2020, 2018)
	assert.Error(t, err)
}

func TestOneWinter(t *testing.T) {
	months := OneWinter(2019)
	require.Len(t, months, 6)
	assert.Equal(t, time.Date(2019, time.November, 1, 0, 0, 0, 0, time.UTC), months[0])
	assert.Equal(t, time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC), months[5])
}
