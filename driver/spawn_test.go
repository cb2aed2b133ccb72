package driver

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/config"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/randengine"
)

func traffic(count int) config.Traffic {
	return config.Traffic{
		SpawnCount:    count,
		DesiredSpeed:  10,
		VehicleLength: 4,
		VehicleWidth:  1.8,
	}
}

func TestSpawn(t *testing.T) {
	w := newWorld(t)
	agents := Spawn(w, randengine.New(1), traffic(3))
	require.Len(t, agents, 3)
	w.SyncGlobalData(context.Background(), 0)

	for i, a := range agents {
		assert.True(t, a.IsOnRoute(), a.String())
		assert.InDelta(t, laneCenter, a.ReferencePoint().Y, delta)
		assert.InDelta(t, 0, a.Yaw(), delta)
		assert.InDelta(t, 10, a.Velocity(), 2+delta)
		for _, b := range agents[i+1:] {
			assert.GreaterOrEqual(t, math.Abs(a.ReferencePoint().X-b.ReferencePoint().X), 8.0)
		}
	}
}

func TestSpawnIsBoundedByRoom(t *testing.T) {
	w := newWorld(t)
	agents := Spawn(w, randengine.New(1), traffic(100))
	assert.NotEmpty(t, agents)
	assert.Less(t, len(agents), 100)
}

func TestSpawnWithoutLanes(t *testing.T) {
	w := newWorld(t)
	tr := traffic(3)
	tr.VehicleLength = 100
	assert.Empty(t, Spawn(w, randengine.New(1), tr))
	assert.Zero(t, w.Agents().Len())
}

func TestParamsFromConfig(t *testing.T) {
	assert.Equal(t, DefaultParams, ParamsFromConfig(config.Traffic{}))
	assert.InDelta(t, 20, ParamsFromConfig(config.Traffic{DesiredSpeed: 20}).DesiredSpeed, delta)
}
