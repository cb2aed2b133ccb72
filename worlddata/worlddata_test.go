package worlddata

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity/repository"
)

func newTestWorld() *WorldData {
	return New(repository.New(repository.DefaultCapacities, nil))
}

// straightLane 沿x轴、宽3m的车道，每米一个节点
func straightLane(l *Lane, from, to float64, yRight float64) {
	for s := from; s <= to; s++ {
		l.AddGeometryJoint(JointPoints{
			Left:      geometry.Point{X: s, Y: yRight + 3},
			Reference: geometry.Point{X: s, Y: yRight + 1.5},
			Right:     geometry.Point{X: s, Y: yRight},
		}, s, 0, 0)
	}
}

func TestAddLaneLinksNeighboursAndBoundaries(t *testing.T) {
	w := newTestWorld()
	road := w.AddRoad("1")
	section := w.AddSection(road, 0, 0)
	center := w.AddLaneBoundary(StandardLaneBoundaryWidth, 0, 10, entity.LaneMarkingSolid, entity.RoadMarkColorWhite, entity.BoundarySingle)
	w.AddCenterLaneBoundaries(section, []*LaneBoundary{center})

	b1 := w.AddLaneBoundary(StandardLaneBoundaryWidth, 0, 10, entity.LaneMarkingBroken, entity.RoadMarkColorWhite, entity.BoundarySingle)
	b2 := w.AddLaneBoundary(StandardLaneBoundaryWidth, 0, 10, entity.LaneMarkingSolid, entity.RoadMarkColorWhite, entity.BoundarySingle)
	bp := w.AddLaneBoundary(StandardLaneBoundaryWidth, 0, 10, entity.LaneMarkingSolid, entity.RoadMarkColorWhite, entity.BoundarySingle)

	// 乱序添加
	l2 := w.AddLane(section, -2, entity.LaneTypeShoulder, []*LaneBoundary{b2})
	lp := w.AddLane(section, 1, entity.LaneTypeDriving, []*LaneBoundary{bp})
	l1 := w.AddLane(section, -1, entity.LaneTypeDriving, []*LaneBoundary{b1})

	assert.Equal(t, []*Lane{l2, l1, lp}, section.Lanes())
	assert.Same(t, lp, l1.Left())
	assert.Same(t, l1, lp.Right())
	assert.Same(t, l2, l1.Right())
	assert.Same(t, l1, l2.Left())
	assert.False(t, l2.Right().Exists())

	assert.Equal(t, []*LaneBoundary{center}, l1.LeftBoundaries())
	assert.Equal(t, []*LaneBoundary{b1}, l1.RightBoundaries())
	assert.Equal(t, []*LaneBoundary{b1}, l2.LeftBoundaries())
	assert.Equal(t, []*LaneBoundary{center}, lp.RightBoundaries())
	assert.Equal(t, []*LaneBoundary{bp}, lp.LeftBoundaries())

	assert.Panics(t, func() { w.AddLane(section, 0, entity.LaneTypeNone, nil) })
	assert.False(t, section.GetLane(5).Exists())
	assert.False(t, w.GetLane(entity.InvalidId).Exists())
	_, err := w.GetLaneOrError(entity.InvalidId)
	assert.Error(t, err)
}

func TestLaneGeometryInterpolation(t *testing.T) {
	w := newTestWorld()
	section := w.AddSection(w.AddRoad("1"), 0, 0)
	lane := w.AddLane(section, -1, entity.LaneTypeDriving, nil)
	straightLane(lane, 0, 10, -3)
	// 重复或倒退的节点被忽略
	lane.AddGeometryJoint(JointPoints{}, 10, 0, 0)

	assert.Len(t, lane.Joints(), 11)
	assert.Len(t, lane.Elements(), 10)
	assert.InDelta(t, 10, lane.Length(), 1e-12)
	assert.InDelta(t, 10, section.Length(), 1e-12)
	assert.InDelta(t, 10, section.Road().Length(), 1e-12)

	p := lane.InterpolatedPointsAtDistance(2.5)
	assert.InDelta(t, 2.5, p.Reference.X, 1e-12)
	assert.InDelta(t, -1.5, p.Reference.Y, 1e-12)
	assert.InDelta(t, 3, lane.Width(4.2), 1e-12)
	assert.Equal(t, 0.0, lane.Width(-1))
	assert.Equal(t, 0.0, lane.Curvature(-1))

	// 无后继时终点不被覆盖，车道段则相反
	assert.True(t, lane.Covers(0))
	assert.False(t, lane.Covers(10))
	assert.True(t, section.Covers(10))
	assert.Same(t, section, section.Road().SectionByDistance(3))

	e := lane.ElementAt(3.5)
	require.NotNil(t, e)
	assert.Equal(t, 3.0, e.Current.SOffset)
	assert.Same(t, lane, e.Lane())
}

func TestLaneObjectOrdering(t *testing.T) {
	w := newTestWorld()
	lane := w.AddLane(w.AddSection(w.AddRoad("1"), 0, 0), -1, entity.LaneTypeDriving, nil)
	overlap := func(sMin, sMax float64) LaneOverlap {
		return LaneOverlap{
			SMin: entity.GlobalRoadPosition{RoadPosition: entity.RoadCoordinate{S: sMin}},
			SMax: entity.GlobalRoadPosition{RoadPosition: entity.RoadCoordinate{S: sMax}},
		}
	}
	a := w.AddMovingObject("car", Pose{}, Dimension{Length: 4}, nil)
	b := w.AddMovingObject("car", Pose{}, Dimension{Length: 4}, nil)
	c := w.AddStationaryObject("o1", "obstacle", Pose{}, Dimension{Length: 1}, nil)
	lane.AddObject(a, overlap(5, 9))
	lane.AddObject(b, overlap(1, 5))
	lane.AddObject(c, overlap(5, 6))

	ids := func(as []LaneAssignment) []entity.Id {
		res := []entity.Id{}
		for _, x := range as {
			res = append(res, x.Object.Id())
		}
		return res
	}
	assert.Equal(t, []entity.Id{b.Id(), c.Id(), a.Id()}, ids(lane.WorldObjects(true)))
	assert.Equal(t, []entity.Id{a.Id(), c.Id(), b.Id()}, ids(lane.WorldObjects(false)))
	assert.Equal(t, []*Lane{lane}, a.Lanes())

	lane.ClearMovingObjects()
	assert.Equal(t, []entity.Id{c.Id()}, ids(lane.WorldObjects(true)))
	assert.Empty(t, a.Lanes())

	c.ClearLaneAssignments()
	assert.Equal(t, 0, lane.ObjectCount())
}

func TestRemoveAndResetMovingObjects(t *testing.T) {
	w := newTestWorld()
	lane := w.AddLane(w.AddSection(w.AddRoad("1"), 0, 0), -1, entity.LaneTypeDriving, nil)
	first := w.AddMovingObject("car", Pose{}, Dimension{Length: 4}, nil)
	second := w.AddMovingObject("car", Pose{}, Dimension{Length: 4}, nil)
	lane.AddObject(first, LaneOverlap{})
	w.RemoveMovingObject(first.Id())
	_, ok := w.GetMovingObject(first.Id())
	assert.False(t, ok)
	assert.Equal(t, 0, lane.ObjectCount())
	assert.Equal(t, []*Object{second}, w.MovingObjects())

	w.Reset()
	assert.Empty(t, w.MovingObjects())
	third := w.AddMovingObject("car", Pose{}, Dimension{}, nil)
	assert.Equal(t, w.Repository().Offset(repository.MovingObject), third.Id())
}

func TestLaneBoundaryPointsOffsetForDoubleLines(t *testing.T) {
	w := newTestWorld()
	left := w.AddLaneBoundary(StandardLaneBoundaryWidth, 0, 5, entity.LaneMarkingSolid, entity.RoadMarkColorYellow, entity.BoundaryLeft)
	left.AddBoundaryPoint(geometry.Point{X: 1}, 1, 0)
	left.AddBoundaryPoint(geometry.Point{X: 6}, 6, 0)
	require.Len(t, left.Points(), 1)
	assert.InDelta(t, 0.15, left.Points()[0].Point.Y, 1e-12)

	right := w.AddLaneBoundary(BoldLaneBoundaryWidth, 0, 5, entity.LaneMarkingBroken, entity.RoadMarkColorYellow, entity.BoundaryRight)
	right.AddBoundaryPoint(geometry.Point{X: 1}, 1, 0)
	assert.InDelta(t, -0.15, right.Points()[0].Point.Y, 1e-12)
	assert.Equal(t, 0.3, right.Spec(2).Width)
}

func TestTurningRatesIgnoreUnknownRoads(t *testing.T) {
	w := newTestWorld()
	w.AddRoad("a")
	w.AddRoad("b")
	w.SetTurningRates([]TurningRate{{Incoming: "a", Outgoing: "b", Weight: 3}, {Incoming: "a", Outgoing: "x", Weight: 1}})
	v, ok := w.TurningRate("a", "b")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	_, ok = w.TurningRate("a", "x")
	assert.False(t, ok)
}

func TestJunctionRank(t *testing.T) {
	w := newTestWorld()
	j := w.AddJunction("j")
	road := w.AddRoad("c1")
	w.AddJunctionConnection(j, road)
	w.AddJunctionPriority(j, "c1", "c2")
	assert.True(t, road.IsInJunction())
	assert.Equal(t, RankLower, j.RelativeRank("c1", "c2"))
	assert.Equal(t, RankHigher, j.RelativeRank("c2", "c1"))
	assert.Equal(t, RankUndefined, j.RelativeRank("c1", "c3"))
}
