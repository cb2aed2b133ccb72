package scenery_test

import (
	"math"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/roadgraph"
	"github.com/tsinghua-fib-lab/osi-world-sim/scenery"
	"github.com/tsinghua-fib-lab/osi-world-sim/scenery/scenerytest"
	"github.com/tsinghua-fib-lab/osi-world-sim/trafficlight"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

func convert(t *testing.T, s *opendrive.Scenery) *worlddata.WorldData {
	t.Helper()
	world := scenerytest.NewWorld()
	require.NoError(t, scenery.NewConverter(s, world, scenery.Options{}).ConvertRoads())
	return world
}

func lane(t *testing.T, world *worlddata.WorldData, roadId string, laneId int) *worlddata.Lane {
	t.Helper()
	road, ok := world.GetRoadByOdId(roadId)
	require.True(t, ok, "road %s", roadId)
	l := road.Sections()[0].GetLane(laneId)
	require.NotNil(t, l)
	require.True(t, l.Exists())
	return l
}

func reversedPair(order ...string) *opendrive.Scenery {
	a := scenerytest.StraightRoad("A", 0, 0, 0, 10, scenerytest.Driving(-1), scenerytest.Driving(1))
	b := scenerytest.StraightRoad("B", 20, 0, math.Pi, 10, scenerytest.Driving(-1), scenerytest.Driving(1))
	a.Successor = scenerytest.RoadLink("B", opendrive.ContactPointEnd)
	b.Successor = scenerytest.RoadLink("A", opendrive.ContactPointEnd)
	roads := map[string]*opendrive.Road{"A": a, "B": b}
	return scenerytest.NewScenery(lo.Map(order, func(id string, _ int) *opendrive.Road { return roads[id] }))
}

func TestMarkDirectionsConsistentUpToInversion(t *testing.T) {
	forward := scenery.NewConverter(reversedPair("A", "B"), scenerytest.NewWorld(), scenery.Options{})
	require.NoError(t, forward.MarkDirections())
	backward := scenery.NewConverter(reversedPair("B", "A"), scenerytest.NewWorld(), scenery.Options{})
	require.NoError(t, backward.MarkDirections())

	fa, _ := forward.Direction("A")
	fb, _ := forward.Direction("B")
	ba, _ := backward.Direction("A")
	bb, _ := backward.Direction("B")
	assert.True(t, fa)
	assert.False(t, fb)
	assert.True(t, bb)
	assert.False(t, ba)
	assert.Equal(t, fa == fb, ba == bb)
}

func TestMarkDirectionsErrors(t *testing.T) {
	selfRef := scenerytest.StraightRoad("A", 0, 0, 0, 10, scenerytest.Driving(-1))
	selfRef.Successor = scenerytest.RoadLink("A", opendrive.ContactPointStart)

	missing := scenerytest.StraightRoad("A", 0, 0, 0, 10, scenerytest.Driving(-1))
	missing.Successor = scenerytest.RoadLink("X", opendrive.ContactPointStart)

	undefinedA := scenerytest.StraightRoad("A", 0, 0, 0, 10, scenerytest.Driving(-1))
	undefinedB := scenerytest.StraightRoad("B", 10, 0, 0, 10, scenerytest.Driving(-1))
	undefinedA.Successor = scenerytest.RoadLink("B", opendrive.ContactPointUndefined)

	emptyJunctionRoad := scenerytest.StraightRoad("P", 0, 0, 0, 10)
	emptyJunctionRoad.JunctionId = "J"
	emptyJunctionRoad.Sections = nil

	cases := []struct {
		name  string
		roads []*opendrive.Road
		err   error
	}{
		{"self reference", []*opendrive.Road{selfRef}, scenery.ErrSelfReference},
		{"missing road", []*opendrive.Road{missing}, scenery.ErrMissingRoad},
		{"undefined contact", []*opendrive.Road{undefinedA, undefinedB}, scenery.ErrUndefinedContactPoint},
		{"empty junction road", []*opendrive.Road{emptyJunctionRoad}, scenery.ErrEmptySections},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := scenery.NewConverter(scenerytest.NewScenery(c.roads), scenerytest.NewWorld(), scenery.Options{}).ConvertRoads()
			assert.ErrorIs(t, err, c.err)
		})
	}
}

func TestReversedRoadKeepsLaneDirection(t *testing.T) {
	world := convert(t, reversedPair("A", "B"))
	a := lane(t, world, "A", -1)
	b := lane(t, world, "B", 1)
	assert.True(t, a.InStreamDirection())
	assert.True(t, b.InStreamDirection())
	assert.False(t, lane(t, world, "A", 1).InStreamDirection())
	assert.False(t, lane(t, world, "B", -1).InStreamDirection())
	assert.Equal(t, []*worlddata.Lane{b}, a.Successors())
	assert.Equal(t, []*worlddata.Lane{a}, b.Successors())
}

func TestLaneConnectivityRoundTrip(t *testing.T) {
	world := convert(t, scenerytest.Fork("driving"))
	trunk := lane(t, world, scenerytest.ForkTrunkRoadId, -1)
	assert.ElementsMatch(t, []*worlddata.Lane{
		lane(t, world, scenerytest.ForkLeftRoadId, -1),
		lane(t, world, scenerytest.ForkRightRoadId, -1),
	}, trunk.Successors())

	for _, l := range world.Lanes() {
		for _, succ := range l.Successors() {
			if succ.Road() == l.Road() || succ.Road().IsInJunction() {
				continue
			}
			if l.InStreamDirection() == succ.InStreamDirection() {
				assert.Contains(t, succ.Predecessors(), l, "%v -> %v", l, succ)
			}
		}
	}
}

func TestCreateRoadsBoundaries(t *testing.T) {
	road := scenerytest.StraightRoad("A", 0, 0, 0, 20,
		scenerytest.LaneSpec{Id: -1, Type: "driving", Width: 3, Marks: []opendrive.RoadMark{
			{SOffset: 0, Type: "solid solid", Color: "yellow"},
			{SOffset: 10, Type: "broken", Weight: "bold"},
		}},
		scenerytest.Driving(1),
	)
	world := convert(t, scenerytest.NewScenery([]*opendrive.Road{road}))

	right := lane(t, world, "A", -1)
	boundaries := right.RightBoundaries()
	require.Len(t, boundaries, 3)
	assert.Equal(t, entity.BoundaryLeft, boundaries[0].Side())
	assert.Equal(t, entity.BoundaryRight, boundaries[1].Side())
	assert.Equal(t, entity.LaneMarkingSolid, boundaries[0].Type())
	assert.Equal(t, entity.RoadMarkColorYellow, boundaries[0].Color())
	assert.InDelta(t, 10, boundaries[0].SEnd(), 1e-9)
	assert.Equal(t, entity.LaneMarkingBroken, boundaries[2].Type())
	assert.Equal(t, worlddata.BoldLaneBoundaryWidth, boundaries[2].Width())
	assert.InDelta(t, 10, boundaries[2].SStart(), 1e-9)

	left := lane(t, world, "A", 1)
	require.Len(t, left.LeftBoundaries(), 1)
	assert.Equal(t, entity.LaneMarkingNone, left.LeftBoundaries()[0].Type())
	require.Len(t, left.RightBoundaries(), 1)
	assert.Equal(t, entity.LaneMarkingBroken, left.RightBoundaries()[0].Type())
	assert.Equal(t, left.RightBoundaries(), right.LeftBoundaries())
}

func TestSampleGeometry(t *testing.T) {
	road := scenerytest.StraightRoad("A", 0, 0, 0, 10, scenerytest.Driving(-1), scenerytest.Driving(-2), scenerytest.Driving(1))
	world := convert(t, scenerytest.NewScenery([]*opendrive.Road{road}))

	outer := lane(t, world, "A", -2)
	joints := outer.Joints()
	require.Len(t, joints, 101)
	first, last := joints[0], joints[len(joints)-1]
	assert.InDelta(t, 0, first.SOffset, 1e-9)
	assert.InDelta(t, 10, last.SOffset, 1e-9)
	assert.InDelta(t, -3.5, first.Points.Left.Y, 1e-9)
	assert.InDelta(t, -7, first.Points.Right.Y, 1e-9)
	assert.InDelta(t, -5.25, first.Points.Reference.Y, 1e-9)
	assert.InDelta(t, 10, last.Points.Reference.X, 1e-9)
	assert.Len(t, outer.Elements(), 100)

	inner := lane(t, world, "A", 1)
	assert.InDelta(t, 3.5, inner.Joints()[0].Points.Left.Y, 1e-9)
	assert.InDelta(t, 0, inner.Joints()[0].Points.Right.Y, 1e-9)

	center := world.Sections()[0].CenterBoundaries()
	require.Len(t, center, 1)
	assert.Len(t, center[0].Points(), 101)
}

func TestRoadCoord2WorldCoord(t *testing.T) {
	road := scenerytest.StraightRoad("A", 5, 5, scenerytest.HalfPi, 10, scenerytest.Driving(-1))
	s := scenerytest.NewScenery([]*opendrive.Road{road})
	c := scenery.NewConverter(s, scenerytest.NewWorld(), scenery.Options{})

	p, hdg, err := c.RoadCoord2WorldCoord(road, 4, 1)
	require.NoError(t, err)
	assert.InDelta(t, 4, p.X, 1e-9)
	assert.InDelta(t, 9, p.Y, 1e-9)
	assert.InDelta(t, scenerytest.HalfPi, hdg, 1e-9)

	_, _, err = c.RoadCoord2WorldCoord(road, 12, 0)
	assert.ErrorIs(t, err, scenery.ErrGeometryNotFound)
}

func TestJunctionConnectivity(t *testing.T) {
	world := convert(t, scenerytest.Crossing())
	w, p1, e := lane(t, world, "W", -1), lane(t, world, "P1", -1), lane(t, world, "E", -1)
	assert.Contains(t, w.Successors(), p1)
	assert.Contains(t, p1.Predecessors(), w)
	assert.Contains(t, p1.Successors(), e)
	assert.Contains(t, e.Predecessors(), p1)

	junction, ok := world.GetJunctionByOdId("J")
	require.True(t, ok)
	assert.Len(t, junction.ConnectingRoads(), 2)
	assert.True(t, p1.Road().IsInJunction())
	assert.Equal(t, entity.RoadNetworkElement{Type: entity.RoadNetworkElementJunction, Id: "J"}, w.Road().Successor())
	assert.Equal(t, entity.RoadNetworkElement{Type: entity.RoadNetworkElementRoad, Id: "E"}, p1.Road().Successor())
}

func TestJunctionUsesLaneMappingOnly(t *testing.T) {
	driving := scenerytest.Driving
	in := scenerytest.StraightRoad("I", -50, 0, 0, 50, driving(-1), driving(-2))
	c := scenerytest.StraightRoad("C", 0, -scenerytest.LaneWidth, 0, 20, driving(-1))
	out := scenerytest.StraightRoad("O", 20, 0, 0, 50, driving(-1), driving(-2))
	c.JunctionId = "J"
	in.Successor = scenerytest.Link(opendrive.ElementTypeJunction, "J", opendrive.ContactPointUndefined)
	out.Predecessor = scenerytest.Link(opendrive.ElementTypeJunction, "J", opendrive.ContactPointUndefined)
	c.Predecessor = scenerytest.RoadLink("I", opendrive.ContactPointEnd)
	c.Successor = scenerytest.RoadLink("O", opendrive.ContactPointStart)
	scenerytest.LinkLaneSuccessors(c, -1, -2)
	junction := &opendrive.Junction{
		Id: "J",
		Connections: []*opendrive.Connection{
			{Id: "0", IncomingRoad: "I", ConnectingRoad: "C", ContactPoint: opendrive.ContactPointStart,
				LaneLinks: []opendrive.LaneLink{{From: -2, To: -1}}},
		},
	}
	world := convert(t, scenerytest.NewScenery([]*opendrive.Road{in, c, out}, junction))

	in1, in2 := lane(t, world, "I", -1), lane(t, world, "I", -2)
	c1 := lane(t, world, "C", -1)
	out1, out2 := lane(t, world, "O", -1), lane(t, world, "O", -2)
	assert.Equal(t, []*worlddata.Lane{c1}, in2.Successors())
	assert.Empty(t, in1.Successors())
	assert.Equal(t, []*worlddata.Lane{in2}, c1.Predecessors())
	assert.Equal(t, []*worlddata.Lane{out2}, c1.Successors())
	assert.Equal(t, []*worlddata.Lane{c1}, out2.Predecessors())
	assert.Empty(t, out1.Predecessors())
}

func TestJunctionConnectionErrors(t *testing.T) {
	missing := scenerytest.Crossing()
	missing.Junctions[0].Connections[0].IncomingRoad = "X"
	err := scenery.NewConverter(missing, scenerytest.NewWorld(), scenery.Options{}).ConvertRoads()
	assert.ErrorIs(t, err, scenery.ErrMissingRoad)

	badLane := scenerytest.Crossing()
	badLane.Junctions[0].Connections[0].LaneLinks[0].From = -3
	err = scenery.NewConverter(badLane, scenerytest.NewWorld(), scenery.Options{}).ConvertRoads()
	assert.ErrorIs(t, err, scenery.ErrMissingLane)

	undefined := scenerytest.Crossing()
	undefined.Junctions[0].Connections[0].ContactPoint = opendrive.ContactPointUndefined
	err = scenery.NewConverter(undefined, scenerytest.NewWorld(), scenery.Options{}).ConvertRoads()
	assert.ErrorIs(t, err, scenery.ErrUndefinedContactPoint)
}

func TestJunctionIntersections(t *testing.T) {
	world := convert(t, scenerytest.Crossing())
	junction, _ := world.GetJunctionByOdId("J")
	p1, p2 := lane(t, world, "P1", -1), lane(t, world, "P2", -1)

	infos := junction.Intersections("P1")
	require.Len(t, infos, 1)
	assert.Equal(t, "P2", infos[0].IntersectingRoad)
	assert.Equal(t, worlddata.RankLower, infos[0].RelativeRank)
	r, ok := infos[0].SOffsets[worlddata.LanePair{Lane: p1.Id(), IntersectingLane: p2.Id()}]
	require.True(t, ok)
	assert.InDelta(t, 10, r.SMin, 0.11)
	assert.InDelta(t, 13.5, r.SMax, 0.11)

	infos = junction.Intersections("P2")
	require.Len(t, infos, 1)
	assert.Equal(t, worlddata.RankHigher, infos[0].RelativeRank)
	r = infos[0].SOffsets[worlddata.LanePair{Lane: p2.Id(), IntersectingLane: p1.Id()}]
	assert.InDelta(t, 6.5, r.SMin, 0.11)
	assert.InDelta(t, 10, r.SMax, 0.11)
}

func float(v float64) *float64 {
	return &v
}

func TestCreateRoadSignals(t *testing.T) {
	road := scenerytest.StraightRoad("A", 0, 0, 0, 100, scenerytest.Driving(-1), scenerytest.Driving(1))
	road.Signals = []*opendrive.Signal{
		{Id: "speed", S: 10, T: -5, Orientation: "+", Type: "274", Value: float(100), Unit: "km/h"},
		{Id: "stop", S: 20, T: 5, Orientation: "-", Type: "206"},
		{Id: "light", S: 30, T: -5, Orientation: "+", Type: "1.000.001", Dynamic: true},
		{Id: "line", S: 40, Type: "294", Validities: []opendrive.Validity{{FromLane: -1, ToLane: -1}}},
		{Id: "unknown", S: 50, T: -5, Type: "999"},
		{Id: "distance", S: 10, T: -5, Type: "1004", Value: float(200), Unit: "m",
			Dependencies: []opendrive.Dependency{{Id: "speed"}}},
		{Id: "orphan", S: 10, T: -5, Type: "1004", Dependencies: []opendrive.Dependency{{Id: "missing"}}},
		{Id: "outside", S: 150, T: -5, Type: "206"},
	}
	world := convert(t, scenerytest.NewScenery([]*opendrive.Road{road}))
	right, left := lane(t, world, "A", -1), lane(t, world, "A", 1)

	require.Len(t, world.TrafficSigns(), 2)
	speed, ok := world.GetTrafficSignByOdId("speed")
	require.True(t, ok)
	assert.Equal(t, entity.TrafficSignMaximumSpeedLimit, speed.Type())
	assert.InDelta(t, 100/3.6, speed.Value(), 1e-9)
	assert.InDelta(t, 0, speed.Pose().Yaw, 1e-9)
	require.Len(t, speed.SupplementarySigns(), 1)
	assert.Equal(t, entity.TrafficSignDistanceIndication, speed.SupplementarySigns()[0].Type)
	assert.InDelta(t, 200, speed.SupplementarySigns()[0].Value, 1e-9)

	stop, _ := world.GetTrafficSignByOdId("stop")
	assert.InDelta(t, math.Pi, math.Abs(stop.Pose().Yaw), 1e-9)
	assert.Equal(t, []*worlddata.TrafficSign{speed}, right.TrafficSigns())
	assert.Equal(t, []*worlddata.TrafficSign{stop}, left.TrafficSigns())

	light, ok := world.GetTrafficLightByOdId("light")
	require.True(t, ok)
	assert.Equal(t, entity.TrafficLightThreeLights, light.Type())
	assert.Equal(t, entity.TrafficLightRed, light.State())
	assert.Equal(t, []*worlddata.TrafficLight{light}, right.TrafficLights())
	assert.Empty(t, left.TrafficLights())

	require.Len(t, world.RoadMarkings(), 1)
	assert.Equal(t, entity.RoadMarkingStopLine, world.RoadMarkings()[0].Type())
	assert.Len(t, right.RoadMarkings(), 1)
	assert.Empty(t, left.RoadMarkings())
}

func TestCreateObjects(t *testing.T) {
	road := scenerytest.StraightRoad("A", 0, 0, 0, 20, scenerytest.Driving(-1))
	road.Objects = []*opendrive.Object{
		{Id: "pole", Type: "pole", S: 5, T: -4, Hdg: 0.5, Length: 0.2, Width: 0.2, Height: 3},
		{Id: "rail", Type: "barrier", S: 2, T: -4, Length: 1, Width: 0.3, Continuous: true},
		{Id: "zebra", Type: "crosswalk", S: 12, Length: 4, Width: 3},
		{Id: "lost", Type: "pole", S: 30},
	}
	world := convert(t, scenerytest.NewScenery([]*opendrive.Road{road}))

	objects := world.StationaryObjects()
	byId := lo.SliceToMap(objects, func(o *worlddata.Object) (string, *worlddata.Object) { return o.OdId(), o })
	pole, ok := byId["pole"]
	require.True(t, ok)
	assert.InDelta(t, 5, pole.Pose().Position.X, 1e-9)
	assert.InDelta(t, -4, pole.Pose().Position.Y, 1e-9)
	assert.InDelta(t, 0.5, pole.Pose().Yaw, 1e-9)
	assert.NotContains(t, byId, "lost")

	segments := lo.Filter(objects, func(o *worlddata.Object, _ int) bool { return o.Kind() == entity.ObjectKindStationary && o.OdId() != "pole" })
	require.Len(t, segments, 10)
	total := lo.SumBy(segments, func(o *worlddata.Object) float64 { return o.Dimension().Length })
	assert.InDelta(t, 1, total, 1e-9)
	for _, s := range segments {
		assert.InDelta(t, 0, s.Pose().Yaw, 1e-9)
	}

	require.Len(t, world.RoadMarkings(), 1)
	assert.Equal(t, entity.RoadMarkingPedestrianCrossing, world.RoadMarkings()[0].Type())
	assert.Len(t, lane(t, world, "A", -1).RoadMarkings(), 1)
}

func TestBuildRoadNetworkFork(t *testing.T) {
	g := scenery.BuildRoadNetwork(scenerytest.Fork("driving"))
	trunk := roadgraph.Vertex{RoadId: scenerytest.ForkTrunkRoadId, InOdDirection: true}
	assert.Len(t, g.Vertices(), 3)
	assert.ElementsMatch(t, []roadgraph.Vertex{
		{RoadId: scenerytest.ForkLeftRoadId, InOdDirection: true},
		{RoadId: scenerytest.ForkRightRoadId, InOdDirection: true},
	}, g.Successors(trunk))
	assert.Equal(t, 2, g.EdgeCount())
}

func TestBuildRoadNetworkReversedContact(t *testing.T) {
	a := scenerytest.StraightRoad("A", 0, 0, 0, 10, scenerytest.Driving(-1), scenerytest.Driving(1))
	b := scenerytest.StraightRoad("B", 20, 0, math.Pi, 10, scenerytest.Driving(-1), scenerytest.Driving(1))
	a.Successor = scenerytest.RoadLink("B", opendrive.ContactPointEnd)
	g := scenery.BuildRoadNetwork(scenerytest.NewScenery([]*opendrive.Road{a, b}))

	assert.Equal(t, []roadgraph.Vertex{{RoadId: "B", InOdDirection: false}}, g.Successors(roadgraph.Vertex{RoadId: "A", InOdDirection: true}))
	assert.Equal(t, []roadgraph.Vertex{{RoadId: "A", InOdDirection: false}}, g.Successors(roadgraph.Vertex{RoadId: "B", InOdDirection: true}))
}

func TestBuildRoadNetworkThroughJunction(t *testing.T) {
	g := scenery.BuildRoadNetwork(scenerytest.Crossing())
	p1 := roadgraph.Vertex{RoadId: "P1", InOdDirection: true}
	assert.Equal(t, []roadgraph.Vertex{{RoadId: "E", InOdDirection: true}}, g.Successors(p1))
	assert.Equal(t, []roadgraph.Vertex{{RoadId: "W", InOdDirection: true}}, g.Predecessors(p1))
}

func signalScenery(controllers ...*opendrive.Controller) *opendrive.Scenery {
	road := scenerytest.StraightRoad("A", 0, 0, 0, 50, scenerytest.Driving(-1))
	road.Signals = []*opendrive.Signal{
		{Id: "L1", S: 10, T: -5, Orientation: "+", Type: "1.000.001"},
		{Id: "S1", S: 20, T: -5, Orientation: "+", Type: "206"},
	}
	s := scenerytest.NewScenery([]*opendrive.Road{road})
	s.Controllers = controllers
	return s
}

func TestBuildTrafficLightNetwork(t *testing.T) {
	s := signalScenery(&opendrive.Controller{
		Id:    "C1",
		Delay: 1.5,
		Phases: []opendrive.Phase{
			{Duration: 10, States: []opendrive.ControlState{{SignalId: "L1", State: "green"}}},
			{Duration: 3, States: []opendrive.ControlState{{SignalId: "L1", State: "yellow"}}},
			{Duration: 20, States: []opendrive.ControlState{{SignalId: "L1", State: "red"}}},
		},
	})
	world := convert(t, s)
	network, err := scenery.BuildTrafficLightNetwork(s, world)
	require.NoError(t, err)
	require.Len(t, network.Controllers(), 1)

	light, _ := world.GetTrafficLightByOdId("L1")
	assert.Equal(t, entity.TrafficLightGreen, light.State())
	network.UpdateStates(11_000)
	assert.Equal(t, entity.TrafficLightGreen, light.State())
	network.UpdateStates(11_500)
	assert.Equal(t, entity.TrafficLightYellow, light.State())
	network.UpdateStates(15_000)
	assert.Equal(t, entity.TrafficLightRed, light.State())
	network.UpdateStates(34_500)
	assert.Equal(t, entity.TrafficLightGreen, light.State())
}

func TestBuildTrafficLightNetworkErrors(t *testing.T) {
	phase := func(id string) []opendrive.Phase {
		return []opendrive.Phase{{Duration: 1, States: []opendrive.ControlState{{SignalId: id, State: "red"}}}}
	}
	s := signalScenery(&opendrive.Controller{Id: "C1", Phases: phase("S1")})
	_, err := scenery.BuildTrafficLightNetwork(s, convert(t, s))
	assert.ErrorIs(t, err, trafficlight.ErrNotATrafficLight)

	s = signalScenery(&opendrive.Controller{Id: "C1", Phases: phase("nothing")})
	_, err = scenery.BuildTrafficLightNetwork(s, convert(t, s))
	assert.ErrorIs(t, err, trafficlight.ErrUnknownSignal)
}
