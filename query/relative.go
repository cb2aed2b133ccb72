package query

import (
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/roadgraph"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// RelativeRoad 相对自车位置的道路区间
type RelativeRoad struct {
	StartS            float64
	EndS              float64
	RoadId            string
	Junction          bool
	InStreamDirection bool
}

// RelativeLane 相对自车车道的车道
type RelativeLane struct {
	RelativeId         int // 左正右负，自车车道为0
	InDrivingDirection bool
	Type               entity.LaneType
	Predecessor        *int
	Successor          *int
}

// LanesInterval 一个车道段内的相对车道
type LanesInterval struct {
	StartS float64
	EndS   float64
	Lanes  []RelativeLane
}

// ObjectPoint 对象上用于计算横向距离的点的名字
type ObjectPoint string

// Obstruction 对象上各点到车道上一条纵向线的有符号横向距离，左正右负
type Obstruction struct {
	Valid            bool
	LateralDistances map[ObjectPoint]float64
}

// ResolveRelativePoint 对象覆盖范围的最后、最前、最左或最右点
// 说明：最后点取沿流遇到的第一条被覆盖道路，其余取遍历到的最新值
func (q *Query) ResolveRelativePoint(stream *RoadMultiStream, point entity.RelativePoint, touched entity.RoadIntervals) RouteQueryResult[*entity.GlobalRoadPosition] {
	return Traverse(stream, func(info StreamInfo[*worlddata.Road], previous *entity.GlobalRoadPosition) *entity.GlobalRoadPosition {
		interval, ok := touched[info.Element.OdId()]
		if !ok {
			return previous
		}
		in := info.InStreamDirection
		pick := func(a, b entity.GlobalRoadPosition) entity.GlobalRoadPosition {
			if in {
				return a
			}
			return b
		}
		switch point {
		case entity.RelativePointRearmost:
			if previous == nil {
				return lo.ToPtr(pick(interval.SMin, interval.SMax))
			}
		case entity.RelativePointFrontmost:
			return lo.ToPtr(pick(interval.SMax, interval.SMin))
		case entity.RelativePointLeftmost:
			candidate := pick(interval.TMax, interval.TMin)
			if previous == nil || (in && previous.RoadPosition.T < candidate.RoadPosition.T) ||
				(!in && previous.RoadPosition.T > candidate.RoadPosition.T) {
				return &candidate
			}
		case entity.RelativePointRightmost:
			candidate := pick(interval.TMin, interval.TMax)
			if previous == nil || (in && previous.RoadPosition.T > candidate.RoadPosition.T) ||
				(!in && previous.RoadPosition.T < candidate.RoadPosition.T) {
				return &candidate
			}
		}
		return previous
	}, nil)
}

// GetDistanceBetweenObjects 自车流坐标到目标所在道路位置的流上距离
// 返回：目标不在某分支上时该分支结果为nil
func (q *Query) GetDistanceBetweenObjects(stream *RoadMultiStream, ownPosition float64, target entity.GlobalRoadPositions) RouteQueryResult[*float64] {
	return Traverse(stream, func(info StreamInfo[*worlddata.Road], previous *float64) *float64 {
		if previous != nil {
			return previous
		}
		position, ok := target[info.Element.OdId()]
		if !ok {
			return nil
		}
		return lo.ToPtr(info.StreamPositionOfS(position.RoadPosition.S) - ownPosition)
	}, nil)
}

func (q *Query) relativeRoads(stream *RoadMultiStream, startPosition, searchRange float64, junctionsOnly bool) RouteQueryResult[[]RelativeRoad] {
	return Traverse(stream, func(info StreamInfo[*worlddata.Road], previous []RelativeRoad) []RelativeRoad {
		if outside(info, startPosition, startPosition+searchRange) {
			return previous
		}
		inJunction := info.Element.IsInJunction()
		if junctionsOnly && !inJunction {
			return previous
		}
		return append(append([]RelativeRoad{}, previous...), RelativeRoad{
			StartS:            info.StartS() - startPosition,
			EndS:              info.EndS() - startPosition,
			RoadId:            info.Element.OdId(),
			Junction:          inJunction,
			InStreamDirection: info.InStreamDirection,
		})
	}, nil)
}

// GetRelativeRoads 搜索范围内的道路，坐标相对startPosition
func (q *Query) GetRelativeRoads(stream *RoadMultiStream, startPosition, searchRange float64) RouteQueryResult[[]RelativeRoad] {
	return q.relativeRoads(stream, startPosition, searchRange, false)
}

// GetRelativeJunctions 搜索范围内的路口连接道路，坐标相对startPosition
func (q *Query) GetRelativeJunctions(stream *RoadMultiStream, startPosition, searchRange float64) RouteQueryResult[[]RelativeRoad] {
	return q.relativeRoads(stream, startPosition, searchRange, true)
}

// relativeLaneId laneId相对currentId的相对车道ID
// 说明：两者分居中心线两侧时跳过不存在的0号车道
func relativeLaneId(laneId, currentId int, inStreamDirection bool) int {
	relative := currentId - laneId
	if inStreamDirection {
		relative = laneId - currentId
	}
	if currentId*laneId < 0 {
		if relative > 0 {
			relative--
		} else {
			relative++
		}
	}
	return relative
}

// sectionLaneIds 相对车道ID -> 车道ID
type sectionLaneIds map[int]entity.Id

// predecessorRelativeId 上游车道在前一车道段中的相对ID，取相对ID最小者
func predecessorRelativeId(upstream []*worlddata.Lane, previous sectionLaneIds) (int, bool) {
	keys := lo.Keys(previous)
	sort.Ints(keys)
	for _, k := range keys {
		if lo.ContainsBy(upstream, func(l *worlddata.Lane) bool { return l.Id() == previous[k] }) {
			return k, true
		}
	}
	return 0, false
}

// nextEgoLaneId 车道段中上游为前一段自车车道（相对ID为0）的车道，没有时返回0
func nextEgoLaneId(lanes []*worlddata.Lane, inStreamDirection bool, previous sectionLaneIds) int {
	for _, lane := range lanes {
		if id, ok := predecessorRelativeId(lane.Next(!inStreamDirection), previous); ok && id == 0 {
			return lane.OdId()
		}
	}
	return 0
}

// streamSections 按行驶方向排列的车道段及其在流上的起终点
func streamSections(info StreamInfo[*worlddata.Road]) ([]*worlddata.Section, func(*worlddata.Section) (float64, float64)) {
	sections := append([]*worlddata.Section{}, info.Element.Sections()...)
	if !info.InStreamDirection {
		sections = lo.Reverse(sections)
	}
	bounds := func(s *worlddata.Section) (float64, float64) {
		start, end := s.SOffset(), s.SOffset()+s.Length()
		if !info.InStreamDirection {
			start, end = end, start
		}
		return info.StreamPositionOfS(start), info.StreamPositionOfS(end)
	}
	return sections, bounds
}

type relativeLanesState struct {
	intervals []LanesInterval
	previous  sectionLaneIds
}

// GetRelativeLanes 搜索范围内每个车道段上相对自车车道的车道
// 功能：第一个车道段以startLaneId为自车车道，其后的车道段以上游为前一段自车车道的车道为自车车道；
// 同时记录相邻车道段之间相对车道ID的前驱后继关系
// 参数：includeOncoming-是否包括对向车道
func (q *Query) GetRelativeLanes(stream *RoadMultiStream, startPosition float64, startLaneId int, searchRange float64, includeOncoming bool) RouteQueryResult[[]LanesInterval] {
	states := Traverse(stream, func(info StreamInfo[*worlddata.Road], previous relativeLanesState) relativeLanesState {
		if outside(info, startPosition, startPosition+searchRange) {
			return previous
		}
		state := relativeLanesState{
			intervals: append([]LanesInterval{}, previous.intervals...),
			previous:  previous.previous,
		}
		sections, bounds := streamSections(info)
		for _, section := range sections {
			sectionStart, sectionEnd := bounds(section)
			if sectionEnd < startPosition {
				continue
			}
			if sectionStart > startPosition+searchRange {
				break
			}
			egoId := startLaneId
			if len(state.previous) > 0 {
				egoId = nextEgoLaneId(section.Lanes(), info.InStreamDirection, state.previous)
			}
			interval := LanesInterval{StartS: sectionStart - startPosition, EndS: sectionEnd - startPosition}
			ids := make(sectionLaneIds)
			var last []RelativeLane
			if len(state.intervals) > 0 {
				last = append([]RelativeLane{}, state.intervals[len(state.intervals)-1].Lanes...)
				state.intervals[len(state.intervals)-1].Lanes = last
			}
			for _, lane := range section.Lanes() {
				inDrivingDirection := lane.OdId() < 0
				if !info.InStreamDirection {
					inDrivingDirection = lane.OdId() > 0
				}
				if !includeOncoming && !inDrivingDirection {
					continue
				}
				relative := relativeLaneId(lane.OdId(), egoId, info.InStreamDirection)
				ids[relative] = lane.Id()
				rl := RelativeLane{RelativeId: relative, InDrivingDirection: inDrivingDirection, Type: lane.LaneType()}
				if p, ok := predecessorRelativeId(lane.Next(!info.InStreamDirection), state.previous); ok {
					rl.Predecessor = lo.ToPtr(p)
					for i := range last {
						if last[i].RelativeId == p {
							last[i].Successor = lo.ToPtr(relative)
						}
					}
				}
				interval.Lanes = append(interval.Lanes, rl)
			}
			state.previous = ids
			state.intervals = append(state.intervals, interval)
		}
		return state
	}, relativeLanesState{})
	return lo.MapValues(map[roadgraph.Vertex]relativeLanesState(states), func(s relativeLanesState, _ roadgraph.Vertex) []LanesInterval {
		return s.intervals
	})
}

type relativeLaneIdState struct {
	result   *int
	previous sectionLaneIds
	own      *int
	target   *int
}

// GetRelativeLaneId 目标车道相对自车车道的相对车道ID
// 功能：沿流逐个车道段跟踪自车车道（或先遇到的目标车道）的延续，到达另一方所在车道段时给出相对ID
// 参数：ownPosition-自车流坐标，ownLaneId-自车OpenDRIVE车道ID，target-目标的道路定位
// 返回：目标不在某分支上时该分支结果为nil
func (q *Query) GetRelativeLaneId(stream *RoadMultiStream, ownPosition float64, ownLaneId int, target entity.GlobalRoadPositions) RouteQueryResult[*int] {
	states := Traverse(stream, func(info StreamInfo[*worlddata.Road], prev relativeLaneIdState) relativeLaneIdState {
		if prev.result != nil {
			return prev
		}
		state := prev
		targetPosition, hasTarget := target[info.Element.OdId()]
		targetStreamPosition := info.StreamPositionOfS(targetPosition.RoadPosition.S)
		sections, bounds := streamSections(info)
		for _, section := range sections {
			sectionStart, sectionEnd := bounds(section)
			onTargetSection := hasTarget && sectionStart <= targetStreamPosition && targetStreamPosition <= sectionEnd
			onOwnSection := sectionStart <= ownPosition && ownPosition <= sectionEnd
			lanes := section.Lanes()
			if onOwnSection {
				if state.target != nil {
					state.target = lo.ToPtr(nextEgoLaneId(lanes, info.InStreamDirection, state.previous))
				} else {
					state.own = lo.ToPtr(ownLaneId)
				}
			} else {
				if onTargetSection {
					state.target = lo.ToPtr(targetPosition.LaneId)
				} else if state.target != nil {
					state.target = lo.ToPtr(nextEgoLaneId(lanes, info.InStreamDirection, state.previous))
				}
				if state.own != nil {
					state.own = lo.ToPtr(nextEgoLaneId(lanes, info.InStreamDirection, state.previous))
				}
			}
			if state.own == nil && state.target == nil {
				continue
			}
			current := lo.FromPtr(state.target)
			if state.own != nil {
				current = *state.own
			}
			ids := make(sectionLaneIds)
			for _, lane := range lanes {
				relative := relativeLaneId(lane.OdId(), current, info.InStreamDirection)
				if state.own != nil {
					if onTargetSection && targetPosition.LaneId == lane.OdId() {
						state.result = lo.ToPtr(relative)
						return state
					}
				} else if onOwnSection && ownLaneId == lane.OdId() {
					state.result = lo.ToPtr(-relative)
					return state
				}
				ids[relative] = lane.Id()
			}
			state.previous = ids
		}
		return state
	}, relativeLaneIdState{})
	return lo.MapValues(map[roadgraph.Vertex]relativeLaneIdState(states), func(s relativeLaneIdState, _ roadgraph.Vertex) *int {
		return s.result
	})
}

// laneValueAt 流坐标position所在车道上的取值，position不在任何车道上时为nil
func laneValueAt(stream *LaneMultiStream, position float64, value func(lane *worlddata.Lane, s float64) float64) RouteQueryResult[*float64] {
	return Traverse(stream, func(info StreamInfo[*worlddata.Lane], previous *float64) *float64 {
		if info.StartS() <= position && position <= info.EndS() {
			return lo.ToPtr(value(info.Element, info.SOfStreamPosition(position)))
		}
		return previous
	}, nil)
}

func (q *Query) GetLaneCurvature(stream *LaneMultiStream, position float64) RouteQueryResult[*float64] {
	return laneValueAt(stream, position, (*worlddata.Lane).Curvature)
}

func (q *Query) GetLaneWidth(stream *LaneMultiStream, position float64) RouteQueryResult[*float64] {
	return laneValueAt(stream, position, (*worlddata.Lane).Width)
}

func (q *Query) GetLaneDirection(stream *LaneMultiStream, position float64) RouteQueryResult[*float64] {
	return laneValueAt(stream, position, (*worlddata.Lane).Direction)
}

// perpendicularDistance 点到直线(start->end)的有符号距离，左正右负
func perpendicularDistance(p, start, end geometry.Point) float64 {
	dx, dy := end.X-start.X, end.Y-start.Y
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		return math.Hypot(p.X-start.X, p.Y-start.Y)
	}
	return (dx*(p.Y-start.Y) - dy*(p.X-start.X)) / norm
}

type obstructionState struct {
	obstruction   Obstruction
	first, second *entity.Position
}

// positionIfOnLane 车道覆盖s时返回(s, t)处的世界位姿
func (q *Query) positionIfOnLane(lane *worlddata.Lane, s, t float64) *entity.Position {
	if s < lane.DistanceStart() || s > lane.DistanceEnd() {
		return nil
	}
	return lo.ToPtr(q.GetPositionByDistanceAndLane(lane, s, t))
}

// GetObstruction 对象各点相对车道上一条纵向线的横向距离
// 功能：纵向线连接对象覆盖范围在车道上的近端与远端，两端均位于车道中心线横向偏移t处；
// 两端都确定后计算points中每个点到该线的有符号距离
// 参数：t-相对行驶方向的横向偏移，points-对象上的点，touched-对象覆盖的道路范围
func (q *Query) GetObstruction(stream *LaneMultiStream, t float64, points map[ObjectPoint]geometry.Point, touched entity.RoadIntervals) RouteQueryResult[Obstruction] {
	states := Traverse(stream, func(info StreamInfo[*worlddata.Lane], prev obstructionState) obstructionState {
		lane := info.Element
		interval, ok := touched[lane.Road().OdId()]
		if !ok {
			return prev
		}
		state := obstructionState{first: prev.first, second: prev.second}
		objectStart, objectEnd := interval.SMin.RoadPosition.S, interval.SMax.RoadPosition.S
		lateral := t
		if !info.InStreamDirection {
			objectStart, objectEnd, lateral = objectEnd, objectStart, -t
		}
		if state.first == nil {
			state.first = q.positionIfOnLane(lane, objectStart, lateral)
		}
		if state.second == nil {
			state.second = q.positionIfOnLane(lane, objectEnd, lateral)
		}
		if state.first == nil || state.second == nil {
			return state
		}
		start := geometry.Point{X: state.first.X, Y: state.first.Y}
		end := geometry.Point{X: state.second.X, Y: state.second.Y}
		distances := make(map[ObjectPoint]float64, len(points))
		for name, p := range points {
			distances[name] = perpendicularDistance(p, start, end)
		}
		state.obstruction = Obstruction{Valid: true, LateralDistances: distances}
		return state
	}, obstructionState{})
	return lo.MapValues(map[roadgraph.Vertex]obstructionState(states), func(s obstructionState, _ roadgraph.Vertex) Obstruction {
		return s.obstruction
	})
}
