package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/osi-world-sim/scenery/scenerytest"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/config"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/input"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/output"
)

func newTestContext(t *testing.T) (*Context, string) {
	t.Helper()
	dir := t.TempDir()
	sceneryFile := filepath.Join(dir, "scenery.yaml")
	require.NoError(t, input.SaveFile(scenerytest.SignalledRoad(), sceneryFile))
	gtFile := filepath.Join(dir, "gt.bin")

	c := config.Config{
		Input:   config.Input{Scenery: config.InputPath{File: sceneryFile}},
		Control: config.Control{Step: config.ControlStep{Start: 0, Total: 100, Interval: 0.1}},
		Traffic: config.Traffic{Seed: 3, SpawnCount: 4, DesiredSpeed: 10},
		Output:  config.Output{GroundTruth: &config.GroundTruth{File: gtFile}},
	}
	ctx := NewContext("test", "", c, nil, false)
	return ctx, gtFile
}

func TestStepLoop(t *testing.T) {
	ctx, gtFile := newTestContext(t)
	ctx.Init()
	require.Equal(t, 4, ctx.World().Agents().Len())

	before := map[uint64]float64{}
	for _, a := range ctx.World().Agents().GetAgents() {
		before[uint64(a.Id())] = a.ReferencePoint().X
	}
	for i := 0; i < 5; i++ {
		ctx.prepare()
		ctx.update()
	}
	assert.EqualValues(t, 5, ctx.Clock().Step)
	assert.EqualValues(t, 500, ctx.World().Timestamp())
	for _, a := range ctx.World().Agents().GetAgents() {
		assert.Greater(t, a.ReferencePoint().X, before[uint64(a.Id())])
	}

	ctx.Close()
	f, err := os.Open(gtFile)
	require.NoError(t, err)
	defer f.Close()
	snapshots, err := output.ReadSnapshots(f)
	require.NoError(t, err)
	assert.Len(t, snapshots, 5)

	ctx.Close()
}

func TestRuntimeDefaults(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()
	all := ctx.RuntimeConfig().All
	assert.InDelta(t, config.DefaultVehicleLength, all.Traffic.VehicleLength, 1e-9)
	assert.Equal(t, "stdout", all.Tracing.Exporter)
	assert.NotNil(t, ctx.GetInput().Scenery)
}
