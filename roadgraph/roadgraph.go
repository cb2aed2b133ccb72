package roadgraph

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/container"
)

// Vertex 路网图顶点
// InOdDirection为true表示沿道路s增大方向行驶（右侧负ID车道），false表示反向（左侧正ID车道）
type Vertex struct {
	RoadId        string
	InOdDirection bool
}

func (v Vertex) String() string {
	if v.InOdDirection {
		return fmt.Sprintf("(%s,+)", v.RoadId)
	}
	return fmt.Sprintf("(%s,-)", v.RoadId)
}

// Graph 道路连通有向图
// 说明：构建完成后只读；Route等派生子图按需新建
type Graph struct {
	vertices     []Vertex
	index        map[Vertex]struct{}
	successors   map[Vertex][]Vertex
	predecessors map[Vertex][]Vertex
}

func New() *Graph {
	return &Graph{
		index:        make(map[Vertex]struct{}),
		successors:   make(map[Vertex][]Vertex),
		predecessors: make(map[Vertex][]Vertex),
	}
}

// AddVertex 添加顶点，已存在时返回false
func (g *Graph) AddVertex(v Vertex) bool {
	if g.HasVertex(v) {
		return false
	}
	g.index[v] = struct{}{}
	g.vertices = append(g.vertices, v)
	return true
}

func (g *Graph) HasVertex(v Vertex) bool {
	_, ok := g.index[v]
	return ok
}

// AddEdge 添加边，两端顶点需已存在；自环与重复边被忽略
func (g *Graph) AddEdge(from, to Vertex) bool {
	if !g.HasVertex(from) || !g.HasVertex(to) {
		return false
	}
	if from.RoadId == to.RoadId {
		log.Warnf("ignore self loop on road %s", from.RoadId)
		return false
	}
	if lo.Contains(g.successors[from], to) {
		return false
	}
	g.successors[from] = append(g.successors[from], to)
	g.predecessors[to] = append(g.predecessors[to], from)
	return true
}

// Vertices 按添加顺序返回顶点
func (g *Graph) Vertices() []Vertex {
	return g.vertices
}

func (g *Graph) Successors(v Vertex) []Vertex {
	return g.successors[v]
}

func (g *Graph) Predecessors(v Vertex) []Vertex {
	return g.predecessors[v]
}

// Edge 有向边
type Edge struct {
	From Vertex
	To   Vertex
}

// Edges 按顶点添加顺序返回所有边
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0)
	for _, v := range g.vertices {
		for _, next := range g.successors[v] {
			edges = append(edges, Edge{From: v, To: next})
		}
	}
	return edges
}

// EdgeCount 边数
func (g *Graph) EdgeCount() int {
	return lo.SumBy(lo.Values(g.successors), func(vs []Vertex) int { return len(vs) })
}

// Route 由一串相连顶点构成的线性子图
func (g *Graph) Route(path []Vertex) (*Graph, error) {
	route := New()
	for i, v := range path {
		if !g.HasVertex(v) {
			return nil, fmt.Errorf("vertex %v is not in graph", v)
		}
		route.AddVertex(v)
		if i > 0 {
			if !lo.Contains(g.successors[path[i-1]], v) {
				return nil, fmt.Errorf("no edge %v -> %v", path[i-1], v)
			}
			route.AddEdge(path[i-1], v)
		}
	}
	return route, nil
}

// ShortestRoute 求from到to代价最小的路径
// 功能：Dijkstra，边代价由cost给出（需非负）
// 返回：路径顶点序列；不可达时返回false
func (g *Graph) ShortestRoute(from, to Vertex, cost func(from, to Vertex) float64) ([]Vertex, bool) {
	if !g.HasVertex(from) || !g.HasVertex(to) {
		return nil, false
	}
	dist := map[Vertex]float64{from: 0}
	prev := make(map[Vertex]Vertex)
	done := make(map[Vertex]bool)
	pq := container.NewPriorityQueue[Vertex]()
	pq.HeapPush(from, 0)
	for pq.Len() > 0 {
		v, d := pq.HeapPop()
		if done[v] {
			continue
		}
		done[v] = true
		if v == to {
			break
		}
		for _, next := range g.successors[v] {
			c := cost(v, next)
			if c < 0 || math.IsNaN(c) {
				log.Panicf("negative edge cost %v on %v -> %v", c, v, next)
			}
			nd := d + c
			if old, ok := dist[next]; !ok || nd < old {
				dist[next] = nd
				prev[next] = v
				pq.HeapPush(next, nd)
			}
		}
	}
	if !done[to] {
		return nil, false
	}
	path := []Vertex{to}
	for v := to; v != from; {
		v = prev[v]
		path = append(path, v)
	}
	return lo.Reverse(path), true
}
