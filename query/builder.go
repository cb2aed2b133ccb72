package query

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/roadgraph"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// Query 基于世界数据的路网查询
// 说明：只读访问世界数据；每次创建的流都是新建的树，调用方可以自由持有
type Query struct {
	world *worlddata.WorldData
}

func New(world *worlddata.WorldData) *Query {
	return &Query{world: world}
}

// CreateLaneMultiStream 从起点顶点上的车道出发构建车道多分支流
// 参数：graph-道路连通图或路线子图，start-起点顶点，startLaneId-起点道路上的OpenDRIVE车道ID，
// startDistance-用于确定起点车道段的道路坐标
// 说明：起点车道不存在时，树中所有节点都不带车道，但拓扑结构仍然完整
func (q *Query) CreateLaneMultiStream(graph *roadgraph.Graph, start roadgraph.Vertex, startLaneId int, startDistance float64) *LaneMultiStream {
	var lane *worlddata.Lane
	if l := q.GetLaneByOdId(start.RoadId, startLaneId, startDistance); l.Exists() {
		lane = l
	}
	onPath := map[roadgraph.Vertex]bool{}
	return NewMultiStream(q.laneNode(graph, start, 0, lane, onPath))
}

// laneNode 递归构建车道节点
// 算法说明：
// 1. 当前车道沿行驶方向只有一个后继且仍在同一道路上时，后继作为同一顶点上的子节点
// 2. 否则对图中的每个后继顶点，在车道后继中寻找位于该道路上的车道，找不到时子节点不带车道
// 3. 当前路径上已经出现过的顶点不再展开
func (q *Query) laneNode(graph *roadgraph.Graph, v roadgraph.Vertex, sOffset float64, lane *worlddata.Lane, onPath map[roadgraph.Vertex]bool) *Node[*worlddata.Lane] {
	node := &Node[*worlddata.Lane]{Vertex: v}
	var length float64
	var successors []*worlddata.Lane
	if lane != nil {
		length = lane.Length()
		successors = lane.Next(v.InOdDirection)
		node.Info = &StreamInfo[*worlddata.Lane]{
			Element:           lane,
			SOffset:           sOffset,
			InStreamDirection: v.InOdDirection,
		}
		if !v.InOdDirection {
			node.Info.SOffset += length
		}
	}

	if len(successors) == 1 && successors[0].Road().OdId() == v.RoadId {
		node.Next = append(node.Next, q.laneNode(graph, v, sOffset+length, successors[0], onPath))
		return node
	}
	onPath[v] = true
	defer delete(onPath, v)
	for _, next := range graph.Successors(v) {
		if onPath[next] {
			continue
		}
		successor, _ := lo.Find(successors, func(l *worlddata.Lane) bool {
			return l.Road().OdId() == next.RoadId
		})
		node.Next = append(node.Next, q.laneNode(graph, next, sOffset+length, successor, onPath))
	}
	return node
}

// CreateRoadMultiStream 从起点顶点出发构建道路多分支流
func (q *Query) CreateRoadMultiStream(graph *roadgraph.Graph, start roadgraph.Vertex) *RoadMultiStream {
	onPath := map[roadgraph.Vertex]bool{}
	return NewMultiStream(q.roadNode(graph, start, 0, onPath))
}

func (q *Query) roadNode(graph *roadgraph.Graph, v roadgraph.Vertex, sOffset float64, onPath map[roadgraph.Vertex]bool) *Node[*worlddata.Road] {
	road, ok := q.world.GetRoadByOdId(v.RoadId)
	if !ok {
		log.Panicf("unknown road %s in road graph", v.RoadId)
	}
	length := road.Length()
	node := &Node[*worlddata.Road]{
		Vertex: v,
		Info: &StreamInfo[*worlddata.Road]{
			Element:           road,
			SOffset:           sOffset,
			InStreamDirection: v.InOdDirection,
		},
	}
	if !v.InOdDirection {
		node.Info.SOffset += length
	}
	onPath[v] = true
	defer delete(onPath, v)
	for _, next := range graph.Successors(v) {
		if onPath[next] {
			continue
		}
		node.Next = append(node.Next, q.roadNode(graph, next, sOffset+length, onPath))
	}
	return node
}

// CreateRoadStream 沿线性路线构建道路流
func (q *Query) CreateRoadStream(route []roadgraph.Vertex) *RoadStream {
	current := 0.0
	elements := make([]StreamInfo[*worlddata.Road], 0, len(route))
	for _, v := range route {
		road, ok := q.world.GetRoadByOdId(v.RoadId)
		if !ok {
			log.Panicf("unknown road %s in route", v.RoadId)
		}
		info := StreamInfo[*worlddata.Road]{Element: road, SOffset: current, InStreamDirection: v.InOdDirection}
		if !v.InOdDirection {
			info.SOffset += road.Length()
		}
		elements = append(elements, info)
		current += road.Length()
	}
	return NewStream(elements)
}

// GetRouteLeadingToConnector 通向路口连接道路的线性路线
// 功能：从连接道路的来路出发，沿道路前驱（或后继，取决于来路的方向）逆向回溯到不再有道路相连为止
// 返回：路线子图、路线起点、连接道路顶点
func (q *Query) GetRouteLeadingToConnector(connectingRoadId string) (*roadgraph.Graph, roadgraph.Vertex, roadgraph.Vertex) {
	junction := q.GetJunctionOfConnector(connectingRoadId)
	if junction == nil {
		log.Panicf("road %s is not a junction connector", connectingRoadId)
	}
	incoming := q.GetRoadPredecessor(connectingRoadId).Id
	leadsToJunction := q.GetRoadSuccessor(incoming).Id == junction.OdId()

	route := roadgraph.New()
	end := roadgraph.Vertex{RoadId: connectingRoadId, InOdDirection: true}
	current := roadgraph.Vertex{RoadId: incoming, InOdDirection: leadsToJunction}
	route.AddVertex(end)
	route.AddVertex(current)
	route.AddEdge(current, end)
	for {
		upstream := q.GetRoadSuccessor(current.RoadId)
		if leadsToJunction {
			upstream = q.GetRoadPredecessor(current.RoadId)
		}
		if upstream.Type != entity.RoadNetworkElementRoad {
			break
		}
		next := roadgraph.Vertex{RoadId: upstream.Id, InOdDirection: leadsToJunction}
		if !route.AddVertex(next) {
			break
		}
		route.AddEdge(next, current)
		current = next
	}
	return route, current, end
}
