package query

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/roadgraph"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// searchWindow 有符号搜索范围对应的流坐标区间，向后搜索时起终点互换
func searchWindow(startDistance, searchRange float64) (float64, float64) {
	if searchRange < 0 {
		return startDistance + searchRange, startDistance
	}
	return startDistance, startDistance + searchRange
}

// outside 元素是否完全落在[start, end]之外
func outside[T Element](info StreamInfo[T], start, end float64) bool {
	return info.EndS() < start || info.StartS() > end
}

// GetObjectsInRange 流坐标[start, end]内指定种类的对象
// 算法说明：车道上的对象已按行驶方向排序，对象起点超出end后停止；同一对象只记录一次
func (q *Query) GetObjectsInRange(stream *LaneMultiStream, start, end float64, kind entity.ObjectKind) RouteQueryResult[[]*worlddata.Object] {
	return Traverse(stream, func(info StreamInfo[*worlddata.Lane], previous []*worlddata.Object) []*worlddata.Object {
		if outside(info, start, end) {
			return previous
		}
		found := append([]*worlddata.Object{}, previous...)
		for _, a := range info.Element.WorldObjects(info.InStreamDirection) {
			sMin, sMax := a.Overlap.SMin.RoadPosition.S, a.Overlap.SMax.RoadPosition.S
			if !info.InStreamDirection {
				sMin, sMax = sMax, sMin
			}
			if info.StreamPositionOfS(sMin) > end {
				break
			}
			if a.Object.Kind() != kind || info.StreamPositionOfS(sMax) < start {
				continue
			}
			if !lo.Contains(found, a.Object) {
				found = append(found, a.Object)
			}
		}
		return found
	}, nil)
}

type laneEndSearch struct {
	distance   float64
	continuous bool // 此前的车道类型是否一直满足要求
}

// GetDistanceToEndOfLane 沿流到车道类型不再满足要求处的距离
// 功能：从initialSearchPosition出发，逐个车道检查类型，返回最后一条满足要求的车道终点到起点的距离
// 返回：每个顶点上的距离；终点超出maxSearchLength时为+Inf；起点车道不存在或类型不满足时为0
func (q *Query) GetDistanceToEndOfLane(stream *LaneMultiStream, initialSearchPosition, maxSearchLength float64, laneTypes []entity.LaneType) RouteQueryResult[float64] {
	states := Traverse(stream, func(info StreamInfo[*worlddata.Lane], previous laneEndSearch) laneEndSearch {
		if !previous.continuous || !lo.Contains(laneTypes, info.Element.LaneType()) {
			return laneEndSearch{distance: previous.distance, continuous: false}
		}
		if info.EndS() > initialSearchPosition+maxSearchLength {
			return laneEndSearch{distance: math.Inf(1), continuous: true}
		}
		return laneEndSearch{distance: info.EndS() - initialSearchPosition, continuous: true}
	}, laneEndSearch{distance: 0, continuous: true})
	return lo.MapValues(map[roadgraph.Vertex]laneEndSearch(states), func(s laneEndSearch, _ roadgraph.Vertex) float64 { return s.distance })
}

// signalsInRange 流坐标区间内的车道附属设施，按流坐标排序
func signalsInRange[S any, E any](
	stream *LaneMultiStream, startDistance, searchRange float64,
	items func(*worlddata.Lane) []S, sOf func(S) float64, spec func(S, float64) E,
) RouteQueryResult[[]E] {
	start, end := searchWindow(startDistance, searchRange)
	return Traverse(stream, func(info StreamInfo[*worlddata.Lane], previous []E) []E {
		if outside(info, start, end) {
			return previous
		}
		found := append([]E{}, previous...)
		sorted := append([]S{}, items(info.Element)...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return info.StreamPositionOfS(sOf(sorted[i])) < info.StreamPositionOfS(sOf(sorted[j]))
		})
		for _, item := range sorted {
			position := info.StreamPositionOfS(sOf(item))
			if start <= position && position <= end {
				found = append(found, spec(item, position-startDistance))
			}
		}
		return found
	}, nil)
}

// GetTrafficSignsInRange 有符号范围内的交通标志，距离相对startDistance
func (q *Query) GetTrafficSignsInRange(stream *LaneMultiStream, startDistance, searchRange float64) RouteQueryResult[[]entity.TrafficSignEntity] {
	return signalsInRange(stream, startDistance, searchRange,
		(*worlddata.Lane).TrafficSigns, (*worlddata.TrafficSign).S, (*worlddata.TrafficSign).Spec)
}

// GetRoadMarkingsInRange 有符号范围内的路面标记，距离相对startDistance
func (q *Query) GetRoadMarkingsInRange(stream *LaneMultiStream, startDistance, searchRange float64) RouteQueryResult[[]entity.RoadMarkingEntity] {
	return signalsInRange(stream, startDistance, searchRange,
		(*worlddata.Lane).RoadMarkings, (*worlddata.RoadMarking).S, (*worlddata.RoadMarking).Spec)
}

// GetTrafficLightsInRange 有符号范围内的信号灯，距离相对startDistance
func (q *Query) GetTrafficLightsInRange(stream *LaneMultiStream, startDistance, searchRange float64) RouteQueryResult[[]entity.TrafficLightEntity] {
	return signalsInRange(stream, startDistance, searchRange,
		(*worlddata.Lane).TrafficLights, (*worlddata.TrafficLight).S, (*worlddata.TrafficLight).Spec)
}

// combineDoubleMarking 由双线的左右两半得到组合类型
func combineDoubleMarking(left, right entity.LaneMarkingType) (entity.LaneMarkingType, bool) {
	switch {
	case left == entity.LaneMarkingSolid && right == entity.LaneMarkingSolid:
		return entity.LaneMarkingSolidSolid, true
	case left == entity.LaneMarkingSolid && right == entity.LaneMarkingBroken:
		return entity.LaneMarkingSolidBroken, true
	case left == entity.LaneMarkingBroken && right == entity.LaneMarkingSolid:
		return entity.LaneMarkingBrokenSolid, true
	case left == entity.LaneMarkingBroken && right == entity.LaneMarkingBroken:
		return entity.LaneMarkingBrokenBroken, true
	}
	return entity.LaneMarkingNone, false
}

// GetLaneMarkings 流坐标[startDistance, startDistance+searchRange]内车道一侧的边界线
// 功能：side为相对行驶方向的左右侧；起点相同的双线左右两半合并为一条组合类型的边界线
// 说明：无法组合的双线属于路网数据错误，直接panic
func (q *Query) GetLaneMarkings(stream *LaneMultiStream, startDistance, searchRange float64, side entity.Side) RouteQueryResult[[]entity.LaneMarkingEntity] {
	return Traverse(stream, func(info StreamInfo[*worlddata.Lane], previous []entity.LaneMarkingEntity) []entity.LaneMarkingEntity {
		if outside(info, startDistance, startDistance+searchRange) {
			return previous
		}
		lane := info.Element
		found := append([]entity.LaneMarkingEntity{}, previous...)
		boundaries := lane.RightBoundaries()
		if (side == entity.SideRight) != info.InStreamDirection {
			boundaries = lane.LeftBoundaries()
		}
		halves := make(map[float64]*worlddata.LaneBoundary)
		for _, b := range boundaries {
			boundaryStart, boundaryEnd := b.SStart(), math.Min(b.SEnd(), lane.DistanceEnd())
			if !info.InStreamDirection {
				boundaryStart, boundaryEnd = boundaryEnd, boundaryStart
			}
			streamStart := info.StreamPositionOfS(boundaryStart)
			streamEnd := info.StreamPositionOfS(boundaryEnd)
			if streamStart > startDistance+searchRange || streamEnd < startDistance {
				continue
			}
			marking := b.Spec(streamStart - startDistance)
			if b.Side() == entity.BoundarySingle {
				found = append(found, marking)
				continue
			}
			other, ok := halves[marking.RelativeStartDistance]
			if !ok {
				halves[marking.RelativeStartDistance] = b
				continue
			}
			left, right := b.Type(), other.Type()
			if b.Side() == entity.BoundaryRight {
				left, right = right, left
			}
			combined, ok := combineDoubleMarking(left, right)
			if !ok {
				log.Panicf("invalid type of double lane boundary: left %v, right %v on lane %v", left, right, lane)
			}
			marking.Type = combined
			found = append(found, marking)
		}
		return found
	}, nil)
}

// GetMovingObjectsInRangeOfJunctionConnection 连接道路终点之前range范围内的运动物体
// 功能：沿通向连接道路的路线，对连接道路的每条行车道构建车道流，收集连接道路终点前range内的运动物体
func (q *Query) GetMovingObjectsInRangeOfJunctionConnection(connectingRoadId string, searchRange float64) []*worlddata.Object {
	route, start, end := q.GetRouteLeadingToConnector(connectingRoadId)
	connecting := q.GetRoadByOdId(connectingRoadId)
	found := make([]*worlddata.Object, 0)
	for _, lane := range q.GetLanesOfLaneTypeAtDistance(connectingRoadId, 0, []entity.LaneType{entity.LaneTypeDriving}) {
		origin := q.originatingRouteLane(route, start, lane)
		stream := q.CreateLaneMultiStream(route, start, origin.OdId(), origin.DistanceStart())
		streamEnd := stream.PositionByVertexAndS(end, connecting.Length())
		objects := q.GetObjectsInRange(stream, streamEnd-searchRange, streamEnd, entity.ObjectKindMoving)[end]
		for _, o := range objects {
			if !lo.Contains(found, o) {
				found = append(found, o)
			}
		}
	}
	return found
}

// originatingRouteLane 沿路线逆行找到连接道路车道在路线起点道路上的来源车道
// 说明：路线是线性的，沿车道上游一直走到离开路线或到达路线起点道路的第一个车道段
func (q *Query) originatingRouteLane(route *roadgraph.Graph, start roadgraph.Vertex, lane *worlddata.Lane) *worlddata.Lane {
	current := lane
	vertex := roadgraph.Vertex{RoadId: lane.Road().OdId(), InOdDirection: true}
	for {
		upstream := current.Next(!vertex.InOdDirection)
		if same, ok := lo.Find(upstream, func(l *worlddata.Lane) bool { return l.Road().OdId() == vertex.RoadId }); ok {
			current = same
			continue
		}
		if vertex == start {
			return current
		}
		predecessors := route.Predecessors(vertex)
		if len(predecessors) == 0 {
			return current
		}
		previous := predecessors[0]
		next, ok := lo.Find(upstream, func(l *worlddata.Lane) bool { return l.Road().OdId() == previous.RoadId })
		if !ok {
			return current
		}
		current, vertex = next, previous
	}
}
