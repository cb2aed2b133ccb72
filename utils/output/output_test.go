package output

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/osi-world-sim/agent"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity/repository"
	"github.com/tsinghua-fib-lab/osi-world-sim/scenery/scenerytest"
	"github.com/tsinghua-fib-lab/osi-world-sim/world"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeInserter struct {
	fail  error
	calls int
	docs  []interface{}
}

func (f *fakeInserter) InsertMany(_ context.Context, documents []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	f.docs = append(f.docs, documents...)
	return &mongo.InsertManyResult{}, nil
}

func TestMongoSinkFlush(t *testing.T) {
	coll := &fakeInserter{}
	sink := &MongoSink{coll: coll}

	require.NoError(t, sink.Flush(context.Background()))
	assert.Zero(t, coll.calls)

	sink.Write(repository.Record{Id: 1, Group: repository.Others})
	sink.Write(repository.Record{Id: 2, Group: repository.MovingObject})
	coll.fail = errors.New("unavailable")
	assert.Error(t, sink.Flush(context.Background()))
	assert.Zero(t, sink.Written())

	coll.fail = nil
	require.NoError(t, sink.Flush(context.Background()))
	assert.Equal(t, 2, sink.Written())
	require.Len(t, coll.docs, 2)
	assert.Equal(t, repository.Record{Id: 2, Group: repository.MovingObject}, coll.docs[1])

	require.NoError(t, sink.Close(context.Background()))
	assert.Equal(t, 2, coll.calls)
}

func TestTelemetryPublish(t *testing.T) {
	reg := prometheus.NewRegistry()
	tm, err := NewTelemetry(reg)
	require.NoError(t, err)

	tm.Publish(3, "velocity", 12.5)
	tm.Publish(3, "on_route", true)
	tm.Publish(3, "light", "green")
	tm.Publish(3, "light", "red")
	tm.Publish(4, "velocity", 7)

	assert.InDelta(t, 12.5, testutil.ToFloat64(tm.values.WithLabelValues("3", "velocity")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(tm.values.WithLabelValues("3", "on_route")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(tm.labels))

	tm.ObserveStep(1, []entity.Id{3})
	assert.InDelta(t, 1, testutil.ToFloat64(tm.steps), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(tm.agents), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(tm.removed), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(tm.values))
	assert.Zero(t, testutil.CollectAndCount(tm.labels))

	again, err := NewTelemetry(reg)
	require.NoError(t, err)
	assert.Same(t, tm.values, again.values)

	rec := httptest.NewRecorder()
	tm.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `osi_entity_value{entity="4",key="velocity"} 7`)
}

func snapshot(t *testing.T) *world.Snapshot {
	t.Helper()
	w := world.New(world.Options{})
	require.NoError(t, w.CreateScenery(context.Background(), scenerytest.SignalledRoad()))
	w.CreateAgent(agent.Blueprint{
		Type:                                "car",
		Length:                              4,
		Width:                               1.8,
		DistanceReferencePointToLeadingEdge: 3,
		X:                                   90,
		Y:                                   -scenerytest.LaneWidth / 2,
		Velocity:                            10,
	})
	w.SyncGlobalData(context.Background(), 500)
	s, err := w.GroundTruth(entity.InvalidId, 0)
	require.NoError(t, err)
	return s
}

func TestEncodeSnapshot(t *testing.T) {
	st, err := EncodeSnapshot(snapshot(t))
	require.NoError(t, err)
	fields := st.AsMap()
	assert.EqualValues(t, 500, fields["timestamp"])
	require.Len(t, fields["moving_objects"], 1)
	moving := fields["moving_objects"].([]any)[0].(map[string]any)
	assert.Equal(t, "car", moving["type"])
	assert.Equal(t, "MovingObject", moving["kind"])
	lights := fields["traffic_lights"].([]any)
	require.Len(t, lights, 1)
	light := lights[0].(map[string]any)
	assert.Equal(t, scenerytest.SignalledLightId, light["od_id"])
	assert.Equal(t, "LIGHT_STATE_GREEN", light["state"])
}

func TestGroundTruthStream(t *testing.T) {
	s := snapshot(t)
	var buf bytes.Buffer
	w := NewGroundTruthWriter(&buf)
	require.NoError(t, w.Write(s))
	s.Timestamp = 600
	require.NoError(t, w.Write(s))
	require.NoError(t, w.Close())
	assert.Equal(t, 2, w.Count())

	got, err := ReadSnapshots(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.EqualValues(t, 500, got[0].AsMap()["timestamp"])
	assert.EqualValues(t, 600, got[1].AsMap()["timestamp"])

	_, err = ReadSnapshots(bytes.NewReader([]byte{0x05, 0x01}))
	assert.Error(t, err)
}

func TestGroundTruthFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt.bin")
	w, err := CreateGroundTruthFile(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(snapshot(t)))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := ReadSnapshots(f)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
