package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_ManualClock(t *testing.T) {
	t.Run("Should advance timestamp and block together", func(t *testing.T) {
		c := NewManualClock(1000, 10, 12)

		m := c.Advance(120)
		assert.Equal(t, uint64(1120), m.Timestamp)
		assert.Equal(t, uint64(20), m.BlockNumber)
	})
	t.Run("Should always produce a new block for a short advance", func(t *testing.T) {
		c := NewManualClock(1000, 10, 12)

		m := c.Advance(1)
		assert.Equal(t, uint64(1001), m.Timestamp)
		assert.Equal(t, uint64(11), m.BlockNumber)
	})
	t.Run("Should ignore moving backwards", func(t *testing.T) {
		c := NewManualClock(1000, 10, 12)

		m := c.AdvanceTo(500)
		assert.Equal(t, uint64(1000), m.Timestamp)
		assert.Equal(t, uint64(10), m.BlockNumber)
	})
}

func Test_WallClock(t *testing.T) {
	c := NewWallClock(1_000_000, 100, 12*time.Second)
	c.now = func() time.Time { return time.Unix(1_000_120, 0) }

	m := c.Now()
	assert.Equal(t, uint64(1_000_120), m.Timestamp)
	assert.Equal(t, uint64(110), m.BlockNumber)
}

func Test_FloorWeek(t *testing.T) {
	assert.Equal(t, uint64(0), FloorWeek(Week-1))
	assert.Equal(t, Week, FloorWeek(Week))
	assert.Equal(t, 3*Week, FloorWeek(3*Week+12345))
}
