package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("EST", -5*3600))
	c := NewFixedClock(start)
	assert.Equal(t, time.UTC, c.Now().Location())
	assert.True(t, c.Now().Equal(start))

	c.Advance(90 * time.Second)
	assert.True(t, c.Now().Equal(start.Add(90*time.Second)))
}

func TestSystemClockIsUTC(t *testing.T) {
	t.Parallel()
	assert.Equal(t, time.UTC, systemClock{}.Now().Location())
}
