package query

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/roadgraph"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// JunctionConnection 从某条来路出发经过路口的一条连接
type JunctionConnection struct {
	ConnectingRoadId        string
	OutgoingRoadId          string
	OutgoingStreamDirection bool // 驶出道路是否沿其参考线方向行驶
}

// IntersectingConnection 与连接道路相交的另一条连接道路
type IntersectingConnection struct {
	Id   string
	Rank worlddata.ConnectionRank
}

func (q *Query) GetRoadByOdId(odId string) *worlddata.Road {
	road, _ := q.world.GetRoadByOdId(odId)
	return road
}

func (q *Query) GetJunctionByOdId(odId string) *worlddata.Junction {
	junction, _ := q.world.GetJunctionByOdId(odId)
	return junction
}

// GetJunctionOfConnector 连接道路所属的路口，不是连接道路时返回nil
func (q *Query) GetJunctionOfConnector(connectingRoadId string) *worlddata.Junction {
	road := q.GetRoadByOdId(connectingRoadId)
	if road == nil {
		return nil
	}
	return road.Junction()
}

// GetSectionByDistance 道路上覆盖道路坐标distance的车道段，负值按0处理
func (q *Query) GetSectionByDistance(roadId string, distance float64) *worlddata.Section {
	road := q.GetRoadByOdId(roadId)
	if road == nil {
		return nil
	}
	return road.SectionByDistance(math.Max(0, distance))
}

// GetLaneByOdId 道路坐标distance处的车道，找不到时返回worlddata.InvalidLane
func (q *Query) GetLaneByOdId(roadId string, odLaneId int, distance float64) *worlddata.Lane {
	section := q.GetSectionByDistance(roadId, distance)
	if section == nil {
		return worlddata.InvalidLane
	}
	return section.GetLane(odLaneId)
}

// GetLaneByOffset 道路坐标distance处横向偏移offset落在的车道
// 功能：从参考线向offset一侧逐条累加车道宽度，直到覆盖|offset|
// 返回：车道及点相对车道中心线的横向偏移；找不到时返回worlddata.InvalidLane
func (q *Query) GetLaneByOffset(roadId string, offset, distance float64) (*worlddata.Lane, float64) {
	section := q.GetSectionByDistance(roadId, distance)
	if section == nil {
		return worlddata.InvalidLane, 0
	}
	lanes := append([]*worlddata.Lane{}, section.Lanes()...)
	if offset > 0 {
		sort.Slice(lanes, func(i, j int) bool { return lanes[i].OdId() < lanes[j].OdId() })
	} else {
		sort.Slice(lanes, func(i, j int) bool { return lanes[i].OdId() > lanes[j].OdId() })
	}
	accumulated := 0.0
	for _, lane := range lanes {
		if math.Signbit(float64(lane.OdId())) != math.Signbit(offset) {
			continue
		}
		width := lane.Width(distance)
		accumulated += width
		if accumulated >= math.Abs(offset) {
			return lane, offset - math.Copysign(accumulated-0.5*width, offset)
		}
	}
	return worlddata.InvalidLane, 0
}

// IsSValidOnLane 车道在道路坐标distance处是否存在
func (q *Query) IsSValidOnLane(roadId string, odLaneId int, distance float64) bool {
	if distance < 0 {
		return false
	}
	return q.GetLaneByOdId(roadId, odLaneId, distance).Exists()
}

// GetLanesOfLaneTypeAtDistance 道路坐标distance处指定类型的车道
func (q *Query) GetLanesOfLaneTypeAtDistance(roadId string, distance float64, laneTypes []entity.LaneType) []*worlddata.Lane {
	section := q.GetSectionByDistance(roadId, distance)
	if section == nil {
		return nil
	}
	return lo.Filter(section.Lanes(), func(l *worlddata.Lane, _ int) bool {
		return lo.Contains(laneTypes, l.LaneType())
	})
}

// GetRoadSuccessor 道路的后继元素（道路、路口或无）
func (q *Query) GetRoadSuccessor(roadId string) entity.RoadNetworkElement {
	road := q.GetRoadByOdId(roadId)
	if road == nil {
		log.Panicf("unknown road %s", roadId)
	}
	return q.resolveElement(road.Successor().Id)
}

// GetRoadPredecessor 道路的前驱元素（道路、路口或无）
func (q *Query) GetRoadPredecessor(roadId string) entity.RoadNetworkElement {
	road := q.GetRoadByOdId(roadId)
	if road == nil {
		log.Panicf("unknown road %s", roadId)
	}
	return q.resolveElement(road.Predecessor().Id)
}

func (q *Query) resolveElement(id string) entity.RoadNetworkElement {
	if q.GetRoadByOdId(id) != nil {
		return entity.RoadNetworkElement{Type: entity.RoadNetworkElementRoad, Id: id}
	}
	if q.GetJunctionByOdId(id) != nil {
		return entity.RoadNetworkElement{Type: entity.RoadNetworkElementJunction, Id: id}
	}
	return entity.RoadNetworkElement{Type: entity.RoadNetworkElementNone}
}

// GetConnectionsOnJunction 路口内以incomingRoadId为来路的连接
func (q *Query) GetConnectionsOnJunction(junctionId, incomingRoadId string) []JunctionConnection {
	junction := q.GetJunctionByOdId(junctionId)
	if junction == nil {
		log.Panicf("unknown junction %s", junctionId)
	}
	connections := make([]JunctionConnection, 0)
	for _, connecting := range junction.ConnectingRoads() {
		if connecting.Predecessor().Id != incomingRoadId {
			continue
		}
		outgoingId := connecting.Successor().Id
		outgoing := q.GetRoadByOdId(outgoingId)
		if outgoing == nil {
			log.Panicf("connecting road %s leads to unknown road %s", connecting.OdId(), outgoingId)
		}
		entry := outgoing.Successor()
		if outgoing.InStreamDirection() {
			entry = outgoing.Predecessor()
		}
		connections = append(connections, JunctionConnection{
			ConnectingRoadId:        connecting.OdId(),
			OutgoingRoadId:          outgoingId,
			OutgoingStreamDirection: entry.Id == junction.OdId(),
		})
	}
	return connections
}

// GetIntersectingConnections 与连接道路相交的连接道路及其相对优先级
func (q *Query) GetIntersectingConnections(connectingRoadId string) []IntersectingConnection {
	junction := q.GetJunctionOfConnector(connectingRoadId)
	if junction == nil {
		return nil
	}
	return lo.Map(junction.Intersections(connectingRoadId), func(info worlddata.IntersectionInfo, _ int) IntersectingConnection {
		return IntersectingConnection{Id: info.IntersectingRoad, Rank: info.RelativeRank}
	})
}

func (q *Query) GetPrioritiesOnJunction(junctionId string) []worlddata.Priority {
	junction := q.GetJunctionByOdId(junctionId)
	if junction == nil {
		log.Panicf("unknown junction %s", junctionId)
	}
	return junction.Priorities()
}

// GetEdgeWeights 路网图每条边的权重，取自转向权重，未设置时为1
func (q *Query) GetEdgeWeights(graph *roadgraph.Graph) map[roadgraph.Edge]float64 {
	return lo.SliceToMap(graph.Edges(), func(e roadgraph.Edge) (roadgraph.Edge, float64) {
		if w, ok := q.world.TurningRate(e.From.RoadId, e.To.RoadId); ok {
			return e, w
		}
		return e, 1
	})
}

// GetPositionByDistanceAndLane 车道上道路坐标distance处、相对中心线横向偏移offset的世界位姿
func (q *Query) GetPositionByDistanceAndLane(lane *worlddata.Lane, distance, offset float64) entity.Position {
	reference := lane.InterpolatedPointsAtDistance(distance).Reference
	yaw := lane.Direction(distance)
	return entity.Position{
		X:         reference.X - math.Sin(yaw)*offset,
		Y:         reference.Y + math.Cos(yaw)*offset,
		Yaw:       yaw,
		Curvature: lane.Curvature(distance),
	}
}
