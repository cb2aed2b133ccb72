package query

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

func TestRelativeLaneId(t *testing.T) {
	cases := []struct {
		lane, current int
		inStream      bool
		want          int
	}{
		{-2, -1, true, -1},
		{-1, -1, true, 0},
		{1, -1, true, 1},
		{2, -1, true, 2},
		{2, 1, false, -1},
		{-1, 1, false, 1},
		{1, 2, false, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, relativeLaneId(c.lane, c.current, c.inStream), "lane %d relative to %d", c.lane, c.current)
	}
}

func TestCombineDoubleMarking(t *testing.T) {
	combined, ok := combineDoubleMarking(entity.LaneMarkingBroken, entity.LaneMarkingSolid)
	assert.True(t, ok)
	assert.Equal(t, entity.LaneMarkingBrokenSolid, combined)

	_, ok = combineDoubleMarking(entity.LaneMarkingSolid, entity.LaneMarkingNone)
	assert.False(t, ok)
}

func TestPerpendicularDistance(t *testing.T) {
	start, end := geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 0}
	assert.InDelta(t, 2, perpendicularDistance(geometry.Point{X: 5, Y: 2}, start, end), 1e-9)
	assert.InDelta(t, -3, perpendicularDistance(geometry.Point{X: 50, Y: -3}, start, end), 1e-9)
	assert.InDelta(t, 5, perpendicularDistance(geometry.Point{X: 3, Y: 4}, start, start), 1e-9)
}

func TestSearchWindow(t *testing.T) {
	start, end := searchWindow(100, -20)
	assert.Equal(t, 80.0, start)
	assert.Equal(t, 100.0, end)
	start, end = searchWindow(100, 20)
	assert.Equal(t, 100.0, start)
	assert.Equal(t, 120.0, end)
}
