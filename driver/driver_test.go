package driver

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/osi-world-sim/agent"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/scenery/scenerytest"
	"github.com/tsinghua-fib-lab/osi-world-sim/world"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

const (
	delta = 1e-6
	dt    = 0.1
)

var laneCenter = -scenerytest.LaneWidth / 2

func newWorld(t *testing.T) *world.World {
	t.Helper()
	w := world.New(world.Options{})
	require.NoError(t, w.CreateScenery(context.Background(), scenerytest.SignalledRoad()))
	return w
}

func car(x, v float64) agent.Blueprint {
	return agent.Blueprint{
		Type:                                "car",
		Length:                              4,
		Width:                               1.8,
		DistanceReferencePointToLeadingEdge: 3,
		X:                                   x,
		Y:                                   laneCenter,
		Velocity:                            v,
	}
}

func params(desired float64) Params {
	p := DefaultParams
	p.DesiredSpeed = desired
	return p
}

// run 从from毫秒开始推进steps步，返回期间离开世界的智能体
func run(w *world.World, d *Driver, from int64, steps int) []entity.Id {
	var removed []entity.Id
	for i := 0; i < steps; i++ {
		d.Step(dt)
		w.SyncGlobalData(context.Background(), from+int64(i+1)*int64(dt*1000))
		removed = append(removed, w.RemovedAgents()...)
	}
	return removed
}

func drivingLane(t *testing.T, w *world.World) *worlddata.Lane {
	t.Helper()
	for _, l := range w.Data().Lanes() {
		if l.OdId() == -1 {
			return l
		}
	}
	require.FailNow(t, "lane -1 not found")
	return nil
}

func TestFollowImpl(t *testing.T) {
	p := DefaultParams
	assert.InDelta(t, p.MaxBrakingA, p.follow(10, 10, 0, 0), delta)
	assert.InDelta(t, 0, p.follow(10, 10, 10, 1e12), delta)
	assert.InDelta(t, p.MaxA, p.follow(0, 10, 0, 1e12), delta)
	assert.Less(t, p.follow(10, 10, 0, 10), 0.0)
	assert.True(t, p.canStop(10, 20))
	assert.False(t, p.canStop(20, 20))
	assert.Equal(t, float64(minViewDistance), viewDistance(1))
	assert.Equal(t, 240.0, viewDistance(20))
}

func TestComputeVAndDistance(t *testing.T) {
	v, ds := computeVAndDistance(10, 2, 1)
	assert.InDelta(t, 12, v, delta)
	assert.InDelta(t, 11, ds, delta)

	v, ds = computeVAndDistance(10, -5, 3)
	assert.Zero(t, v)
	assert.InDelta(t, 10, ds, delta)
}

func TestAdvance(t *testing.T) {
	lane := drivingLane(t, newWorld(t))

	p, yaw, ended := advance(lane, 20, 5)
	assert.False(t, ended)
	assert.InDelta(t, 25, p.X, delta)
	assert.InDelta(t, laneCenter, p.Y, delta)
	assert.InDelta(t, 0, yaw, delta)

	p, _, ended = advance(lane, scenerytest.SignalledRoadLength-2, 5)
	assert.True(t, ended)
	assert.InDelta(t, scenerytest.SignalledRoadLength, p.X, delta)
}

func TestRoute(t *testing.T) {
	lane := drivingLane(t, newWorld(t))
	p := route(lane, 20, 50)
	require.Len(t, p.vertices, 1)
	assert.Equal(t, scenerytest.SignalledRoadId, p.vertices[0].RoadId)
	assert.True(t, p.vertices[0].InOdDirection)
	assert.True(t, math.IsInf(p.length, 1))

	p = route(lane, 190, 50)
	assert.InDelta(t, 10, p.length, delta)
}

func TestFreeDriving(t *testing.T) {
	w := newWorld(t)
	a := w.CreateAgent(car(20, 10))
	d := New(w, params(10))
	w.SyncGlobalData(context.Background(), 0)

	run(w, d, 0, 10)
	assert.InDelta(t, 30, a.ReferencePoint().X, 1e-3)
	assert.InDelta(t, laneCenter, a.ReferencePoint().Y, delta)
	assert.InDelta(t, 10, a.Velocity(), 1e-3)
	pos, ok := a.RoadPosition()
	require.True(t, ok)
	assert.InDelta(t, 30, pos.RoadPosition.S, 1e-3)
}

func TestStopsAtRedLight(t *testing.T) {
	w := newWorld(t)
	a := w.CreateAgent(car(60, 10))
	d := New(w, params(10))
	start := int64(scenerytest.SignalledGreenMillis + 1)
	w.SyncGlobalData(context.Background(), start)

	run(w, d, start, 90)
	front := a.ReferencePoint().X + a.DistanceReferencePointToLeadingEdge()
	assert.LessOrEqual(t, front, float64(scenerytest.SignalledLightS))
	assert.Greater(t, front, float64(scenerytest.SignalledLightS)-5)
	assert.Less(t, a.Velocity(), 2.0)
}

func TestPassesGreenLight(t *testing.T) {
	w := newWorld(t)
	a := w.CreateAgent(car(60, 10))
	d := New(w, params(10))
	w.SyncGlobalData(context.Background(), 0)

	run(w, d, 0, 60)
	assert.Greater(t, a.ReferencePoint().X, float64(scenerytest.SignalledLightS))
}

func TestFollowsLeader(t *testing.T) {
	w := newWorld(t)
	follower := w.CreateAgent(car(20, 10))
	w.CreateAgent(car(32, 0))
	d := New(w, params(10))
	w.SyncGlobalData(context.Background(), 0)

	pos, ok := follower.RoadPosition()
	require.True(t, ok)
	lane := d.lane(pos)
	require.True(t, lane.Exists())
	p := route(lane, pos.RoadPosition.S, viewDistance(10))

	gap, v, found := d.leader(follower, pos, viewDistance(10), p)
	require.True(t, found)
	assert.InDelta(t, 32-1-(20+3), gap, 1e-3)
	assert.InDelta(t, 0, v, delta)
	assert.Less(t, d.acceleration(follower, pos, p, dt), 0.0)
}

func TestRemovedAtRouteEnd(t *testing.T) {
	w := newWorld(t)
	a := w.CreateAgent(car(scenerytest.SignalledRoadLength-10, 10))
	d := New(w, params(10))
	w.SyncGlobalData(context.Background(), 0)

	removed := run(w, d, 0, 5)
	assert.Empty(t, removed)
	assert.Equal(t, 1, w.Agents().Len())

	removed = run(w, d, 500, 10)
	assert.Empty(t, removed)
	assert.Zero(t, w.Agents().Len())
	_, err := w.Agents().GetAgentOrError(a.Id())
	assert.Error(t, err)
}

func TestOffRoadAgentLeavesWorld(t *testing.T) {
	w := newWorld(t)
	a := w.CreateAgent(car(scenerytest.SignalledRoadLength+2, 10))
	d := New(w, params(10))
	w.SyncGlobalData(context.Background(), 0)
	_, ok := a.RoadPosition()
	require.False(t, ok)

	removed := run(w, d, 0, 20)
	assert.Equal(t, []entity.Id{a.Id()}, removed)
}
