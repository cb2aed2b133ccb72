package agent_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/osi-world-sim/agent"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/localization"
	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/scenery"
	"github.com/tsinghua-fib-lab/osi-world-sim/scenery/scenerytest"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

var laneCenter = -scenerytest.LaneWidth / 2

func setup(t *testing.T) (*agent.Network, *worlddata.WorldData) {
	t.Helper()
	road := scenerytest.StraightRoad("A", 0, 0, 0, 100, scenerytest.Driving(-1))
	world := scenerytest.NewWorld()
	require.NoError(t, scenery.NewConverter(scenerytest.NewScenery([]*opendrive.Road{road}), world, scenery.Options{}).ConvertRoads())
	bounds := orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{110, 10}}
	return agent.NewNetwork(world, localization.New(world), bounds), world
}

func car(x float64) agent.Blueprint {
	return agent.Blueprint{
		Type:                                "car",
		Length:                              4,
		Width:                               1.8,
		DistanceReferencePointToLeadingEdge: 3,
		X:                                   x,
		Y:                                   laneCenter,
		Velocity:                            10,
	}
}

func spawn(t *testing.T, n *agent.Network, world *worlddata.WorldData, bp agent.Blueprint) *agent.Agent {
	t.Helper()
	a, err := n.CreateAgent(world.AddMovingObject(bp.Type, worlddata.Pose{}, worlddata.Dimension{}, nil), bp)
	require.NoError(t, err)
	return a
}

func TestCreateAgentLocates(t *testing.T) {
	n, world := setup(t)
	a := spawn(t, n, world, car(10))

	assert.True(t, a.IsOnRoute())
	assert.False(t, a.IsDirty())
	pos, ok := a.RoadPosition()
	require.True(t, ok)
	assert.Equal(t, "A", pos.RoadId)
	assert.Equal(t, -1, pos.LaneId)
	assert.InDelta(t, 10, pos.RoadPosition.S, 1e-6)

	interval := a.ObjectPosition().TouchedRoads["A"]
	assert.InDelta(t, 9, interval.SMin.RoadPosition.S, 1e-6)
	assert.InDelta(t, 13, interval.SMax.RoadPosition.S, 1e-6)
	assert.InDelta(t, 11, a.Object().Pose().Position.X, 1e-9)
	assert.Equal(t, a, a.Object().Linked())
	assert.InDelta(t, 10, a.Velocity(), 1e-9)

	lane := a.Object().Lanes()
	require.Len(t, lane, 1)
	assert.Equal(t, -1, lane[0].OdId())
	assert.Same(t, a, n.GetAgent(a.Id()))
}

func TestDuplicateIdIsRejected(t *testing.T) {
	n, world := setup(t)
	a := spawn(t, n, world, car(10))

	_, err := n.CreateAgent(a.Object(), car(50))
	assert.ErrorIs(t, err, agent.ErrDuplicateId)
	assert.Same(t, a, n.GetAgent(a.Id()))
	assert.InDelta(t, 10, a.ReferencePoint().X, 1e-9)
	assert.Equal(t, 1, n.Len())
}

func TestUnknownAgent(t *testing.T) {
	n, _ := setup(t)
	assert.Panics(t, func() { n.GetAgent(42) })
	_, err := n.GetAgentOrError(42)
	assert.Error(t, err)
}

func TestLocalizationCache(t *testing.T) {
	n, world := setup(t)
	a := spawn(t, n, world, car(10))

	a.SetPosition(geometry.Point{X: 30, Y: laneCenter}, 0)
	assert.True(t, a.IsDirty())
	pos, _ := a.RoadPosition()
	assert.InDelta(t, 10, pos.RoadPosition.S, 1e-6)

	assert.True(t, a.Locate())
	assert.False(t, a.IsDirty())
	pos, _ = a.RoadPosition()
	assert.InDelta(t, 30, pos.RoadPosition.S, 1e-6)

	a.Unlocate()
	assert.True(t, a.IsDirty())
	assert.Empty(t, a.Object().Lanes())
}

func TestSyncAppliesUpdatesBeforeRemovals(t *testing.T) {
	n, world := setup(t)
	a := spawn(t, n, world, car(10))
	b := spawn(t, n, world, car(40))

	var order []int
	n.QueueAgentUpdate(func() { order = append(order, 1) })
	n.QueueAgentRemove(b.Id())
	n.QueueAgentUpdate(func() {
		order = append(order, 2)
		a.SetPosition(geometry.Point{X: 60, Y: laneCenter}, 0)
	})
	n.QueueAgentUpdate(func() {
		order = append(order, 3)
		// 删除在全部修改之后执行
		assert.Equal(t, 2, n.Len())
	})
	assert.Empty(t, order)
	assert.InDelta(t, 10, a.ReferencePoint().X, 1e-9)

	n.SyncGlobalData()
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 1, n.Len())
	_, err := n.GetAgentOrError(b.Id())
	assert.Error(t, err)
	_, ok := world.GetMovingObject(b.Id())
	assert.False(t, ok)

	pos, ok := a.RoadPosition()
	require.True(t, ok)
	assert.InDelta(t, 60, pos.RoadPosition.S, 1e-6)
	lane := a.Object().Lanes()
	require.Len(t, lane, 1)
	require.Len(t, lane[0].WorldObjects(true), 1)
	assert.Equal(t, a.Object(), lane[0].WorldObjects(true)[0].Object)
	assert.Empty(t, n.GetRemovedAgentsInPreviousTimestep())
}

func TestAgentsLeavingTheWorldAreRemoved(t *testing.T) {
	n, world := setup(t)
	inside := spawn(t, n, world, car(10))
	outside := spawn(t, n, world, car(20))

	n.QueueAgentUpdate(func() {
		inside.SetPosition(geometry.Point{X: 50, Y: 8}, 0)
		outside.SetPosition(geometry.Point{X: 500, Y: 0}, 0)
	})
	n.SyncGlobalData()

	assert.False(t, inside.IsOnRoute())
	assert.Equal(t, []*agent.Agent{inside}, n.GetAgents())
	assert.Equal(t, []entity.Id{outside.Id()}, n.GetRemovedAgentsInPreviousTimestep())
	assert.Empty(t, n.GetRemovedAgentsInPreviousTimestep())
	_, ok := world.GetMovingObject(outside.Id())
	assert.False(t, ok)
}

func TestCreateAndRemoveInOneStep(t *testing.T) {
	n, world := setup(t)
	a := spawn(t, n, world, car(10))
	n.QueueAgentRemove(a.Id())
	n.QueueAgentRemove(a.Id())
	n.SyncGlobalData()

	assert.Zero(t, n.Len())
	assert.Empty(t, n.GetAgents())
	published := 0
	n.PublishGlobalData(func(entity.Id, string, any) { published++ })
	assert.Zero(t, published)
}

func TestPublishGlobalData(t *testing.T) {
	n, world := setup(t)
	a := spawn(t, n, world, car(10))
	n.SyncGlobalData()

	values := map[string]any{}
	n.PublishGlobalData(func(id entity.Id, key string, value any) {
		assert.Equal(t, a.Id(), id)
		values[key] = value
	})
	assert.InDelta(t, 10, values[agent.KeyXPosition], 1e-9)
	assert.InDelta(t, laneCenter, values[agent.KeyYPosition], 1e-9)
	assert.InDelta(t, 10, values[agent.KeyVelocity], 1e-9)
	assert.Equal(t, "A", values[agent.KeyRoad])
	assert.Equal(t, -1, values[agent.KeyLane])
	assert.InDelta(t, 10, values[agent.KeyS], 1e-6)
}
