package localization

import (
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

const minIntersectionArea = 1e-9

// Target 待定位对象的几何
type Target struct {
	Polygon         []geometry.Point // 包围盒，需为凸多边形
	ReferencePoint  geometry.Point   // 参考点
	MainLocatePoint geometry.Point   // 主定位点（前缘中点）
	Heading         float64
}

// Result 定位结果
type Result struct {
	Position  entity.ObjectPosition
	IsOnRoute bool // 参考点是否落在至少一条道路上
}

// Localizer 定位器
// 功能：在车道几何单元上建立R树索引，将世界坐标系下的点或多边形转换为道路坐标，
// 并把对象分配到其覆盖的车道上
type Localizer struct {
	world *worlddata.WorldData
	index *elementIndex
}

// New 基于已完成构建的世界数据创建定位器
func New(world *worlddata.WorldData) *Localizer {
	l := &Localizer{
		world: world,
		index: newElementIndex(world.Lanes()),
	}
	log.Infof("localizer indexed %d lane geometry elements", l.index.size)
	return l
}

// laneExtent 对象在单条车道上的覆盖范围
type laneExtent struct {
	lane    *worlddata.Lane
	overlap worlddata.LaneOverlap
}

func newLaneExtent(lane *worlddata.Lane, p entity.GlobalRoadPosition) *laneExtent {
	return &laneExtent{
		lane:    lane,
		overlap: worlddata.LaneOverlap{SMin: p, SMax: p, TMin: p, TMax: p},
	}
}

func (e *laneExtent) add(p entity.GlobalRoadPosition) {
	if p.RoadPosition.S < e.overlap.SMin.RoadPosition.S {
		e.overlap.SMin = p
	}
	if p.RoadPosition.S > e.overlap.SMax.RoadPosition.S {
		e.overlap.SMax = p
	}
	if p.RoadPosition.T < e.overlap.TMin.RoadPosition.T {
		e.overlap.TMin = p
	}
	if p.RoadPosition.T > e.overlap.TMax.RoadPosition.T {
		e.overlap.TMax = p
	}
}

// pointLocator 在同一道路的多个候选中选出|t|最小的定位结果
type pointLocator struct {
	positions entity.GlobalRoadPositions
}

func newPointLocator() *pointLocator {
	return &pointLocator{positions: entity.GlobalRoadPositions{}}
}

func (l *pointLocator) offer(pos entity.GlobalRoadPosition) {
	old, ok := l.positions[pos.RoadId]
	if !ok || math.Abs(pos.RoadPosition.T) < math.Abs(old.RoadPosition.T) {
		l.positions[pos.RoadId] = pos
	}
}

// Locate 定位多边形对象
// 功能：计算对象与车道几何的交集，得到每条车道与每条道路上的覆盖范围，
// 参考点在路网上时将对象分配到所覆盖的车道
// 参数：target-对象几何，object-被分配的对象，为nil时只计算不分配
// 返回：定位结果；对象不在任何车道上时IsOnRoute为false
// 算法说明：
// 1. 以对象包围盒查询R树得到候选几何单元
// 2. 对每个候选计算精确交集，交集不足3个顶点（或面积为0）时跳过
// 3. 交集的每个顶点转换为道路坐标，累积车道上的s、t极值
// 4. 几何单元包含参考点或主定位点时，记录对应道路上的定位
// 5. 汇总为每条道路的覆盖范围
func (l *Localizer) Locate(target Target, object *worlddata.Object) Result {
	extents := make(map[*worlddata.Lane]*laneExtent)
	order := make([]*laneExtent, 0)
	reference := newPointLocator()
	main := newPointLocator()

	for _, candidate := range l.index.search(Bound(target.Polygon)) {
		c := candidate.converter
		intersection := Intersect(c.polygon, target.Polygon)
		if intersection == nil || Area(intersection) < minIntersectionArea {
			continue
		}
		lane := c.element.Lane()
		for _, p := range intersection {
			pos := c.GlobalRoadPosition(p, target.Heading)
			if e, ok := extents[lane]; ok {
				e.add(pos)
			} else {
				e = newLaneExtent(lane, pos)
				extents[lane] = e
				order = append(order, e)
			}
		}
		if c.IsConvertible(target.ReferencePoint) {
			reference.offer(c.GlobalRoadPosition(target.ReferencePoint, target.Heading))
		}
		if c.IsConvertible(target.MainLocatePoint) {
			main.offer(c.GlobalRoadPosition(target.MainLocatePoint, target.Heading))
		}
	}

	result := buildResult(order, reference.positions, main.positions)
	if result.IsOnRoute && object != nil {
		for _, e := range order {
			e.lane.AddObject(object, e.overlap)
		}
	}
	return result
}

// buildResult 将车道覆盖范围汇总为每条道路的覆盖范围
// 说明：t以车道中心线为基准，因此道路上的tMin取车道ID最小的车道，tMax取车道ID最大的车道，
// 同一车道内再比较t
func buildResult(extents []*laneExtent, reference, main entity.GlobalRoadPositions) Result {
	touched := entity.RoadIntervals{}
	for _, e := range extents {
		roadId := e.lane.Road().OdId()
		o := e.overlap
		interval, ok := touched[roadId]
		if !ok {
			touched[roadId] = entity.RoadInterval{
				Lanes: []int{e.lane.OdId()},
				SMin:  o.SMin,
				SMax:  o.SMax,
				TMin:  o.TMin,
				TMax:  o.TMax,
			}
			continue
		}
		if !lo.Contains(interval.Lanes, e.lane.OdId()) {
			interval.Lanes = append(interval.Lanes, e.lane.OdId())
		}
		if o.SMin.RoadPosition.S < interval.SMin.RoadPosition.S {
			interval.SMin = o.SMin
		}
		if o.SMax.RoadPosition.S > interval.SMax.RoadPosition.S {
			interval.SMax = o.SMax
		}
		if o.TMin.LaneId < interval.TMin.LaneId ||
			(o.TMin.LaneId == interval.TMin.LaneId && o.TMin.RoadPosition.T < interval.TMin.RoadPosition.T) {
			interval.TMin = o.TMin
		}
		if o.TMax.LaneId > interval.TMax.LaneId ||
			(o.TMax.LaneId == interval.TMax.LaneId && o.TMax.RoadPosition.T > interval.TMax.RoadPosition.T) {
			interval.TMax = o.TMax
		}
		touched[roadId] = interval
	}
	for roadId, interval := range touched {
		sort.Ints(interval.Lanes)
		touched[roadId] = interval
	}
	return Result{
		Position: entity.ObjectPosition{
			ReferencePoint:  reference,
			MainLocatePoint: main,
			TouchedRoads:    touched,
		},
		IsOnRoute: len(reference) > 0,
	}
}

// LocatePoint 定位单个点
// 返回：每条道路至多一个道路坐标，点不在路网上时为空
func (l *Localizer) LocatePoint(p geometry.Point, heading float64) entity.GlobalRoadPositions {
	locator := newPointLocator()
	for _, candidate := range l.index.search(orb.Bound{Min: toOrb(p), Max: toOrb(p)}) {
		c := candidate.converter
		if c.IsConvertible(p) {
			locator.offer(c.GlobalRoadPosition(p, heading))
		}
	}
	return locator.positions
}

// Unlocate 清除对象的全部车道分配，重新定位前必须调用
func (l *Localizer) Unlocate(object *worlddata.Object) {
	object.ClearLaneAssignments()
}
