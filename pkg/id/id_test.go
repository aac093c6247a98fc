package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtIsSortable(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	ids := make([]string, 200)
	for i := range ids {
		// half the ids share a millisecond
		ids[i] = At(ts.Add(time.Duration(i/2) * time.Millisecond))
	}
	assert.True(t, sort.StringsAreSorted(ids))
	for _, s := range ids {
		assert.Len(t, s, 26)
	}
}

func TestAtRoundTripsTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	s := At(ts)

	got, err := Time(s)
	require.NoError(t, err)
	assert.True(t, got.Equal(ts))

	_, err = Time("not-an-id")
	assert.Error(t, err)
}
