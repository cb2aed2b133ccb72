package output

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/osi-world-sim/world"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func point(p geometry.Point) map[string]any {
	return map[string]any{"x": p.X, "y": p.Y}
}

func objects(states []world.ObjectState) []any {
	out := make([]any, len(states))
	for i, o := range states {
		out[i] = map[string]any{
			"id":       float64(o.Id),
			"kind":     o.Kind.String(),
			"type":     o.Type,
			"position": point(o.Position),
			"yaw":      o.Yaw,
			"dimension": map[string]any{
				"length": o.Dimension.Length,
				"width":  o.Dimension.Width,
				"height": o.Dimension.Height,
			},
			"velocity": point(o.Velocity),
		}
	}
	return out
}

// EncodeSnapshot 真值快照转为protobuf Struct
// 说明：信号灯状态以map/v2 LightState的枚举名写出
func EncodeSnapshot(s *world.Snapshot) (*structpb.Struct, error) {
	signs := make([]any, len(s.TrafficSigns))
	for i, t := range s.TrafficSigns {
		signs[i] = map[string]any{
			"id":       float64(t.Id),
			"od_id":    t.OdId,
			"type":     float64(t.Type),
			"value":    t.Value,
			"position": point(t.Position),
		}
	}
	lights := make([]any, len(s.TrafficLights))
	for i, l := range s.TrafficLights {
		lights[i] = map[string]any{
			"id":       float64(l.Id),
			"od_id":    l.OdId,
			"state":    l.State.String(),
			"position": point(l.Position),
		}
	}
	return structpb.NewStruct(map[string]any{
		"timestamp":          float64(s.Timestamp),
		"host_id":            float64(s.HostId),
		"radius":             s.Radius,
		"moving_objects":     objects(s.MovingObjects),
		"stationary_objects": objects(s.StationaryObjects),
		"traffic_signs":      signs,
		"traffic_lights":     lights,
	})
}

// GroundTruthWriter 以长度前缀的protobuf消息流写出真值快照
type GroundTruthWriter struct {
	w      *bufio.Writer
	closer io.Closer
	buf    []byte
	count  int
}

// NewGroundTruthWriter 写入w的快照流
func NewGroundTruthWriter(w io.Writer) *GroundTruthWriter {
	return &GroundTruthWriter{w: bufio.NewWriter(w)}
}

// CreateGroundTruthFile 创建（覆盖）快照文件
func CreateGroundTruthFile(path string) (*GroundTruthWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	log.Infof("ground truth snapshots will be written to %s", path)
	w := NewGroundTruthWriter(f)
	w.closer = f
	return w, nil
}

// Write 写出一个快照
func (g *GroundTruthWriter) Write(s *world.Snapshot) error {
	st, err := EncodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("encode snapshot at %d: %w", s.Timestamp, err)
	}
	b, err := proto.Marshal(st)
	if err != nil {
		return err
	}
	g.buf = protowire.AppendVarint(g.buf[:0], uint64(len(b)))
	g.buf = append(g.buf, b...)
	if _, err := g.w.Write(g.buf); err != nil {
		return err
	}
	g.count++
	return nil
}

// Count 已写出的快照数
func (g *GroundTruthWriter) Count() int {
	return g.count
}

// Close 刷新缓冲并关闭底层文件
func (g *GroundTruthWriter) Close() error {
	err := g.w.Flush()
	if g.closer != nil {
		if cerr := g.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ReadSnapshots 读取GroundTruthWriter写出的快照流
func ReadSnapshots(r io.Reader) ([]*structpb.Struct, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out []*structpb.Struct
	for len(data) > 0 {
		size, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if uint64(len(data)) < size {
			return nil, io.ErrUnexpectedEOF
		}
		st := &structpb.Struct{}
		if err := proto.Unmarshal(data[:size], st); err != nil {
			return nil, err
		}
		out = append(out, st)
		data = data[size:]
	}
	return out, nil
}
