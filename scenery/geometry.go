package scenery

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// SampleGeometry 为所有车道生成几何采样节点与边界点
// 说明：不同道路之间没有共享的写入对象，按道路并行
func (c *Converter) SampleGeometry() error {
	errs := parallel.GoMap(c.scenery.Roads, func(road *opendrive.Road) error {
		for i, sec := range road.Sections {
			if err := c.sampleSection(road, i, sec); err != nil {
				return fmt.Errorf("road %s section %d: %w", road.Id, i, err)
			}
		}
		return nil
	})
	if err, ok := lo.Find(errs, func(err error) bool { return err != nil }); ok {
		return err
	}
	return nil
}

// sampleOffsets 车道段内的采样位置（道路坐标）
// 算法说明：车道段起终点与每处标线变化为必选位置，按采样间隔补充其余位置，
// 与必选位置距离小于容差的补充位置被丢弃
func (c *Converter) sampleOffsets(sec *opendrive.LaneSection, start, end float64) []float64 {
	required := []float64{start, end}
	for _, lane := range sec.Lanes {
		for _, m := range lane.RoadMarks {
			if s := start + m.SOffset; s > start && s < end {
				required = append(required, s)
			}
		}
	}
	required = lo.Uniq(required)
	offsets := append([]float64{}, required...)
	for i := 1; ; i++ {
		s := start + float64(i)*c.options.SamplingRate
		if s >= end {
			break
		}
		near := lo.ContainsBy(required, func(r float64) bool { return math.Abs(r-s) < c.options.Epsilon })
		if !near {
			offsets = append(offsets, s)
		}
	}
	sort.Float64s(offsets)
	return offsets
}

// sampleSection 对单个车道段采样
// 功能：在每个采样位置计算所有车道的左、中、右点与曲率，写入车道几何节点与边界点
// 算法说明：
// 1. 0号边界位于参考线偏移laneOffset处，正ID车道向左累加宽度，负ID车道向右累加
// 2. 负ID车道左侧为id+1号边界，右侧为id号边界；正ID车道左侧为id号边界，右侧为id-1号边界
// 3. 车道中心点的曲率按横向偏移修正 k/(1-k·t)
func (c *Converter) sampleSection(road *opendrive.Road, index int, sec *opendrive.LaneSection) error {
	start, end := sec.S, road.SectionEnd(index)
	minId, maxId := sec.MinLaneId(), sec.MaxLaneId()
	for _, s := range c.sampleOffsets(sec, start, end) {
		g := road.GeometryAt(s)
		if g == nil {
			return errorf(ErrGeometryNotFound, "road %s s=%.3f", road.Id, s)
		}
		ds := s - g.S
		hdg := g.Dir(ds)
		k := g.CurvatureAt(ds)

		borders := map[int]float64{0: road.LaneOffsetAt(s)}
		for id := 1; id <= maxId; id++ {
			lane, ok := sec.GetLane(id)
			if !ok {
				return errorf(ErrMissingLane, "road %s lane %d", road.Id, id)
			}
			borders[id] = borders[id-1] + lane.WidthAt(s-start)
		}
		for id := -1; id >= minId; id-- {
			lane, ok := sec.GetLane(id)
			if !ok {
				return errorf(ErrMissingLane, "road %s lane %d", road.Id, id)
			}
			borders[id] = borders[id+1] - lane.WidthAt(s-start)
		}

		for _, b := range c.center[sec] {
			b.AddBoundaryPoint(g.Coord(ds, borders[0]), s, hdg)
		}
		for _, lane := range sec.Lanes {
			if lane.Id == 0 {
				continue
			}
			leftT, rightT := borders[lane.Id], borders[lane.Id-1]
			if lane.Id < 0 {
				leftT, rightT = borders[lane.Id+1], borders[lane.Id]
			}
			centerT := (leftT + rightT) / 2
			curvature := k
			if denominator := 1 - k*centerT; math.Abs(denominator) > 1e-9 {
				curvature = k / denominator
			}
			c.lanes[lane].AddGeometryJoint(worlddata.JointPoints{
				Left:      g.Coord(ds, leftT),
				Reference: g.Coord(ds, centerT),
				Right:     g.Coord(ds, rightT),
			}, s, curvature, hdg)
			for _, b := range c.outer[lane] {
				b.AddBoundaryPoint(g.Coord(ds, borders[lane.Id]), s, hdg)
			}
		}
	}
	return nil
}

// RoadCoord2WorldCoord 道路坐标转世界坐标
// 返回：世界坐标点、参考线航向角；s不在任何参考线几何上时返回ErrGeometryNotFound
func (c *Converter) RoadCoord2WorldCoord(road *opendrive.Road, s, t float64) (geometry.Point, float64, error) {
	g := road.GeometryAt(s)
	if g == nil {
		return geometry.Point{}, 0, errorf(ErrGeometryNotFound, "road %s s=%.3f", road.Id, s)
	}
	ds := s - g.S
	return g.Coord(ds, t), g.Dir(ds), nil
}
