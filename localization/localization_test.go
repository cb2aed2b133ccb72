package localization

import (
	"math"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity/repository"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

const laneWidth = 3.0

// straightRoad 沿x轴的直路，车道宽3m，每米一个节点，负ID车道在x轴下方
func straightRoad(w *worlddata.WorldData, odId string, laneIds []int, length float64) *worlddata.Road {
	road := w.AddRoad(odId)
	section := w.AddSection(road, 0, 0)
	for _, id := range laneIds {
		lane := w.AddLane(section, id, entity.LaneTypeDriving, nil)
		var yLeft, yRight float64
		if id < 0 {
			yLeft = float64(id+1) * laneWidth
			yRight = float64(id) * laneWidth
		} else {
			yLeft = float64(id) * laneWidth
			yRight = float64(id-1) * laneWidth
		}
		for s := 0.0; s <= length; s++ {
			lane.AddGeometryJoint(worlddata.JointPoints{
				Left:      geometry.Point{X: s, Y: yLeft},
				Reference: geometry.Point{X: s, Y: (yLeft + yRight) / 2},
				Right:     geometry.Point{X: s, Y: yRight},
			}, s, 0, 0)
		}
	}
	return road
}

func newWorld() *worlddata.WorldData {
	return worlddata.New(repository.New(repository.DefaultCapacities, nil))
}

func element(cur, next worlddata.JointPoints, s0, s1, h0, h1 float64) *worlddata.LaneGeometryElement {
	w := newWorld()
	lane := w.AddLane(w.AddSection(w.AddRoad("r"), 0, 0), -1, entity.LaneTypeDriving, nil)
	lane.AddGeometryJoint(cur, s0, 0, h0)
	lane.AddGeometryJoint(next, s1, 0, h1)
	return lane.Elements()[0]
}

func TestConverterRectangularElement(t *testing.T) {
	e := element(
		worlddata.JointPoints{Left: geometry.Point{X: 0, Y: 0}, Reference: geometry.Point{X: 0, Y: -1.5}, Right: geometry.Point{X: 0, Y: -3}},
		worlddata.JointPoints{Left: geometry.Point{X: 10, Y: 0}, Reference: geometry.Point{X: 10, Y: -1.5}, Right: geometry.Point{X: 10, Y: -3}},
		100, 110, 0, 0,
	)
	c := NewElementConverter(e)
	p := geometry.Point{X: 3, Y: -1}
	require.True(t, c.IsConvertible(p))
	rc := c.RoadCoordinate(p, 0.5)
	assert.InDelta(t, 103, rc.S, 1e-9)
	assert.InDelta(t, 0.5, rc.T, 1e-9)
	assert.InDelta(t, 0.5, rc.Yaw, 1e-9)

	right := c.RoadCoordinate(geometry.Point{X: 9, Y: -2.5}, 0)
	assert.InDelta(t, 109, right.S, 1e-9)
	assert.InDelta(t, -1, right.T, 1e-9)
	assert.False(t, c.IsConvertible(geometry.Point{X: 11, Y: -1}))
}

func TestConverterReversedHeading(t *testing.T) {
	// 参考线沿-x方向，左侧为-y
	e := element(
		worlddata.JointPoints{Left: geometry.Point{X: 10, Y: -1.5}, Reference: geometry.Point{X: 10, Y: 0}, Right: geometry.Point{X: 10, Y: 1.5}},
		worlddata.JointPoints{Left: geometry.Point{X: 0, Y: -1.5}, Reference: geometry.Point{X: 0, Y: 0}, Right: geometry.Point{X: 0, Y: 1.5}},
		0, 10, math.Pi, math.Pi,
	)
	c := NewElementConverter(e)
	rc := c.RoadCoordinate(geometry.Point{X: 7, Y: 0.5}, math.Pi)
	assert.InDelta(t, 3, rc.S, 1e-9)
	assert.InDelta(t, -0.5, rc.T, 1e-9)
	assert.InDelta(t, 0, rc.Yaw, 1e-9)
}

func TestConverterTrapezoidElement(t *testing.T) {
	// 车道变宽：横向轴平行，沿横向投影
	e := element(
		worlddata.JointPoints{Left: geometry.Point{X: 0, Y: 2}, Reference: geometry.Point{X: 0, Y: 0}, Right: geometry.Point{X: 0, Y: -2}},
		worlddata.JointPoints{Left: geometry.Point{X: 4, Y: 1}, Reference: geometry.Point{X: 4, Y: 0}, Right: geometry.Point{X: 4, Y: -1}},
		0, 4, 0, 0,
	)
	c := NewElementConverter(e)
	rc := c.RoadCoordinate(geometry.Point{X: 2, Y: 1}, 0)
	assert.InDelta(t, 2, rc.S, 1e-9)
	assert.InDelta(t, 1, rc.T, 1e-9)
}

func TestConverterCurvedElement(t *testing.T) {
	// 圆心在原点的左转弯，参考线半径20，宽度8
	const theta = 0.2
	joint := func(a float64) worlddata.JointPoints {
		at := func(r float64) geometry.Point { return geometry.Point{X: r * math.Sin(a), Y: -r * math.Cos(a)} }
		return worlddata.JointPoints{Left: at(16), Reference: at(20), Right: at(24)}
	}
	e := element(joint(0), joint(theta), 0, 20*theta, 0, theta)
	c := NewElementConverter(e)
	assert.False(t, c.parallel)
	assert.InDelta(t, 0, c.center.X, 1e-9)
	assert.InDelta(t, 0, c.center.Y, 1e-9)

	onArc := geometry.Point{X: 20 * math.Sin(theta/2), Y: -20 * math.Cos(theta/2)}
	rc := c.RoadCoordinate(onArc, theta/2)
	assert.InDelta(t, 10*theta, rc.S, 1e-9)
	// 弧线上的点位于弦的右侧（远离圆心）
	assert.InDelta(t, -20*(1-math.Cos(theta/2)), rc.T, 1e-9)
	assert.InDelta(t, 0, rc.Yaw, 1e-9)

	inner := geometry.Point{X: 18 * math.Sin(theta/2), Y: -18 * math.Cos(theta/2)}
	assert.InDelta(t, 10*theta, c.S(inner), 1e-9)
	assert.Greater(t, c.T(inner), 0.0)
}

func TestIntersectClipsToConvexPolygon(t *testing.T) {
	square := []geometry.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}
	// 顺时针的裁剪多边形
	clipper := []geometry.Point{{X: 2, Y: 2}, {X: 2, Y: 6}, {X: 6, Y: 6}, {X: 6, Y: 2}}
	res := Intersect(square, clipper)
	require.Len(t, res, 4)
	assert.InDelta(t, 4, Area(res), 1e-9)
	c := Centroid(res)
	assert.InDelta(t, 3, c.X, 1e-9)
	assert.InDelta(t, 3, c.Y, 1e-9)

	far := []geometry.Point{{X: 10, Y: 10}, {X: 11, Y: 10}, {X: 11, Y: 11}}
	assert.Nil(t, Intersect(square, far))
	assert.Nil(t, Intersect(square, square[:2]))
}

func TestGetBoundingBox(t *testing.T) {
	box := GetBoundingBox(10, 5, 4, 2, math.Pi/2, 3)
	require.Len(t, box, 4)
	// 后右、前右、前左、后左
	expected := []geometry.Point{{X: 11, Y: 4}, {X: 11, Y: 8}, {X: 9, Y: 8}, {X: 9, Y: 4}}
	for i, p := range expected {
		assert.InDelta(t, p.X, box[i].X, 1e-9)
		assert.InDelta(t, p.Y, box[i].Y, 1e-9)
	}
	assert.InDelta(t, 8, Area(box), 1e-9)
}

func TestLocatePointInsideStraightLane(t *testing.T) {
	w := newWorld()
	road := straightRoad(w, "1", []int{-1}, 10)
	l := New(w)
	lane := road.Sections()[0].GetLane(-1)

	for _, p := range []geometry.Point{{X: 0.5, Y: -0.2}, {X: 5.3, Y: -1.5}, {X: 9.9, Y: -2.9}} {
		positions := l.LocatePoint(p, 0)
		require.Contains(t, positions, "1")
		pos := positions["1"]
		assert.Equal(t, -1, pos.LaneId)
		assert.LessOrEqual(t, math.Abs(pos.RoadPosition.T), lane.Width(pos.RoadPosition.S)/2+1e-9)
		assert.GreaterOrEqual(t, pos.RoadPosition.S, 0.0)
		assert.LessOrEqual(t, pos.RoadPosition.S, lane.Length())
		assert.InDelta(t, p.X, pos.RoadPosition.S, 1e-9)
	}
	assert.Empty(t, l.LocatePoint(geometry.Point{X: 5, Y: 1}, 0))
}

func TestLocatePolygonAcrossLanes(t *testing.T) {
	w := newWorld()
	road := straightRoad(w, "1", []int{-2, -1, 1}, 20)
	l := New(w)
	car := w.AddMovingObject("car", worlddata.Pose{}, worlddata.Dimension{Length: 4, Width: 2}, nil)

	// 跨-1与-2车道，x∈[4,8]，y∈[-4,-2]
	target := Target{
		Polygon:         GetBoundingBox(8, -3, 4, 2, 0, 0),
		ReferencePoint:  geometry.Point{X: 6, Y: -3.5},
		MainLocatePoint: geometry.Point{X: 8, Y: -3},
		Heading:         0,
	}
	res := l.Locate(target, car)
	require.True(t, res.IsOnRoute)
	interval := res.Position.TouchedRoads["1"]
	assert.Equal(t, []int{-2, -1}, interval.Lanes)
	assert.InDelta(t, 4, interval.SMin.RoadPosition.S, 1e-9)
	assert.InDelta(t, 8, interval.SMax.RoadPosition.S, 1e-9)
	assert.Equal(t, -2, interval.TMin.LaneId)
	assert.InDelta(t, 0.5, interval.TMin.RoadPosition.T, 1e-9)
	assert.Equal(t, -1, interval.TMax.LaneId)
	assert.InDelta(t, -0.5, interval.TMax.RoadPosition.T, 1e-9)
	assert.Equal(t, -2, res.Position.ReferencePoint["1"].LaneId)
	assert.InDelta(t, 6, res.Position.ReferencePoint["1"].RoadPosition.S, 1e-9)
	assert.Contains(t, res.Position.MainLocatePoint, "1")

	section := road.Sections()[0]
	assert.Equal(t, 1, section.GetLane(-1).ObjectCount())
	assert.Equal(t, 1, section.GetLane(-2).ObjectCount())
	assert.Equal(t, 0, section.GetLane(1).ObjectCount())
	assert.Len(t, car.Lanes(), 2)

	l.Unlocate(car)
	assert.Equal(t, 0, section.GetLane(-1).ObjectCount())
	assert.Empty(t, car.Lanes())
}

func TestLocateOffRoad(t *testing.T) {
	w := newWorld()
	road := straightRoad(w, "1", []int{-1}, 10)
	l := New(w)
	car := w.AddMovingObject("car", worlddata.Pose{}, worlddata.Dimension{Length: 4, Width: 2}, nil)

	res := l.Locate(Target{
		Polygon:        GetBoundingBox(30, 30, 4, 2, 0, 2),
		ReferencePoint: geometry.Point{X: 30, Y: 30},
	}, car)
	assert.False(t, res.IsOnRoute)
	assert.Empty(t, res.Position.TouchedRoads)

	// 部分压在车道上但参考点在路外：只计算不分配
	res = l.Locate(Target{
		Polygon:        GetBoundingBox(5, 0.5, 4, 2, 0, 2),
		ReferencePoint: geometry.Point{X: 5, Y: 0.5},
	}, car)
	assert.False(t, res.IsOnRoute)
	assert.Contains(t, res.Position.TouchedRoads, "1")
	assert.Equal(t, 0, road.Sections()[0].GetLane(-1).ObjectCount())
}
