package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowIsMonotonicNondecreasing(t *testing.T) {
	prev := Now()
	for i := 0; i < 1000; i++ {
		cur := Now()
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestSourceToWallTracksElapsedTime(t *testing.T) {
	s := NewSource()
	start := s.ToWall(Now())

	time.Sleep(5 * time.Millisecond)
	later := s.ToWall(Now())

	assert.Greater(t, later, start)
}

func TestSourceResyncKeepsMappingMonotonic(t *testing.T) {
	s := NewSource()
	ts1 := Now()
	w1 := s.ToWall(ts1)

	time.Sleep(2 * time.Millisecond)
	s.Resync()

	ts2 := Now()
	w2 := s.ToWall(ts2)

	assert.GreaterOrEqual(t, w2, w1)
}
