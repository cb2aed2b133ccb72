package world

import (
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/query"
	"github.com/tsinghua-fib-lab/osi-world-sim/roadgraph"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// StartVertex 车道所在道路在路网图中的顶点
// 说明：负ID车道沿道路s增大方向行驶，正ID车道反向
func StartVertex(pos entity.GlobalRoadPosition) roadgraph.Vertex {
	return roadgraph.Vertex{RoadId: pos.RoadId, InOdDirection: pos.LaneId < 0}
}

// LaneStream 从道路位置出发的车道多分支流
// 返回：多分支流与起点在流上的坐标，起点车道不存在时坐标为-Inf
func (w *World) LaneStream(pos entity.GlobalRoadPosition) (*query.LaneMultiStream, float64) {
	v := StartVertex(pos)
	stream := w.query.CreateLaneMultiStream(w.roadGraph, v, pos.LaneId, pos.RoadPosition.S)
	return stream, stream.PositionByVertexAndS(v, pos.RoadPosition.S)
}

// RoadStream 从道路位置出发的道路多分支流
func (w *World) RoadStream(pos entity.GlobalRoadPosition) (*query.RoadMultiStream, float64) {
	v := StartVertex(pos)
	stream := w.query.CreateRoadMultiStream(w.roadGraph, v)
	return stream, stream.PositionByVertexAndS(v, pos.RoadPosition.S)
}

// GetDistanceToEndOfLane 从道路位置到车道类型不再满足要求处的距离
func (w *World) GetDistanceToEndOfLane(pos entity.GlobalRoadPosition, maxSearchLength float64, laneTypes []entity.LaneType) query.RouteQueryResult[float64] {
	stream, start := w.LaneStream(pos)
	return w.query.GetDistanceToEndOfLane(stream, start, maxSearchLength, laneTypes)
}

// GetObjectsInRange 道路位置前后范围内指定种类的对象
// 参数：backward、forward-相对起点向后与向前的距离，均为非负
func (w *World) GetObjectsInRange(pos entity.GlobalRoadPosition, backward, forward float64, kind entity.ObjectKind) query.RouteQueryResult[[]*worlddata.Object] {
	stream, start := w.LaneStream(pos)
	return w.query.GetObjectsInRange(stream, start-backward, start+forward, kind)
}

// GetTrafficLightsInRange 道路位置前后有符号范围内的信号灯
func (w *World) GetTrafficLightsInRange(pos entity.GlobalRoadPosition, searchRange float64) query.RouteQueryResult[[]entity.TrafficLightEntity] {
	stream, start := w.LaneStream(pos)
	return w.query.GetTrafficLightsInRange(stream, start, searchRange)
}

// GetTrafficSignsInRange 道路位置前后有符号范围内的交通标志
func (w *World) GetTrafficSignsInRange(pos entity.GlobalRoadPosition, searchRange float64) query.RouteQueryResult[[]entity.TrafficSignEntity] {
	stream, start := w.LaneStream(pos)
	return w.query.GetTrafficSignsInRange(stream, start, searchRange)
}

// GetRelativeLaneId 目标位置相对自身车道的车道偏移
func (w *World) GetRelativeLaneId(own entity.GlobalRoadPosition, target entity.GlobalRoadPositions) query.RouteQueryResult[*int] {
	stream, start := w.RoadStream(own)
	return w.query.GetRelativeLaneId(stream, start, own.LaneId, target)
}

// GetDistanceBetweenObjects 自身到目标的沿路距离
func (w *World) GetDistanceBetweenObjects(own entity.GlobalRoadPosition, target entity.GlobalRoadPositions) query.RouteQueryResult[*float64] {
	stream, start := w.RoadStream(own)
	return w.query.GetDistanceBetweenObjects(stream, start, target)
}
