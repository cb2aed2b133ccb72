package query

import (
	"math"

	"github.com/tsinghua-fib-lab/osi-world-sim/roadgraph"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// Element 可串接成流的路网元素（车道或道路）
type Element interface {
	comparable
	Length() float64
	DistanceStart() float64 // 元素起点的道路坐标
}

// StreamInfo 流中的一个元素
// SOffset为元素自身坐标0点在流上的位置：顺流时为元素起点，逆流时为元素终点
type StreamInfo[T Element] struct {
	Element           T
	SOffset           float64
	InStreamDirection bool
}

// StreamPosition 元素坐标 -> 流坐标
func (i StreamInfo[T]) StreamPosition(elementPosition float64) float64 {
	if i.InStreamDirection {
		return i.SOffset + elementPosition
	}
	return i.SOffset - elementPosition
}

// ElementPosition 流坐标 -> 元素坐标
func (i StreamInfo[T]) ElementPosition(streamPosition float64) float64 {
	if i.InStreamDirection {
		return streamPosition - i.SOffset
	}
	return i.SOffset - streamPosition
}

// StreamPositionOfS 道路坐标s在流上的位置
func (i StreamInfo[T]) StreamPositionOfS(s float64) float64 {
	return i.StreamPosition(s - i.Element.DistanceStart())
}

// SOfStreamPosition 流坐标对应的道路坐标s
func (i StreamInfo[T]) SOfStreamPosition(streamPosition float64) float64 {
	return i.ElementPosition(streamPosition) + i.Element.DistanceStart()
}

// StartS 元素在流上的起点
func (i StreamInfo[T]) StartS() float64 {
	if i.InStreamDirection {
		return i.SOffset
	}
	return i.SOffset - i.Element.Length()
}

// EndS 元素在流上的终点
func (i StreamInfo[T]) EndS() float64 {
	if i.InStreamDirection {
		return i.SOffset + i.Element.Length()
	}
	return i.SOffset
}

// Stream 首尾相接的元素序列
type Stream[T Element] struct {
	elements []StreamInfo[T]
}

type LaneStream = Stream[*worlddata.Lane]
type RoadStream = Stream[*worlddata.Road]

func NewStream[T Element](elements []StreamInfo[T]) *Stream[T] {
	return &Stream[T]{elements: elements}
}

func (s *Stream[T]) Elements() []StreamInfo[T] {
	return s.elements
}

// Reverse 反向的流，新流的0点为原流的终点
func (s *Stream[T]) Reverse() *Stream[T] {
	reversed := make([]StreamInfo[T], 0, len(s.elements))
	current := 0.0
	for i := len(s.elements) - 1; i >= 0; i-- {
		old := s.elements[i]
		length := old.Element.Length()
		info := StreamInfo[T]{Element: old.Element, InStreamDirection: !old.InStreamDirection}
		info.SOffset = current
		if !info.InStreamDirection {
			info.SOffset += length
		}
		reversed = append(reversed, info)
		current += length
	}
	return NewStream(reversed)
}

// PositionByElementAndS 元素上道路坐标s在流上的位置，元素不在流中时返回false
func (s *Stream[T]) PositionByElementAndS(element T, sCoordinate float64) (float64, bool) {
	for _, info := range s.elements {
		if info.Element == element {
			return info.StreamPositionOfS(sCoordinate), true
		}
	}
	return 0, false
}

// ElementAndSByPosition 流坐标所在的元素及其元素坐标，超出流范围时返回false
func (s *Stream[T]) ElementAndSByPosition(position float64) (T, float64, bool) {
	for _, info := range s.elements {
		if info.StartS() <= position && info.EndS() >= position {
			return info.Element, info.ElementPosition(position), true
		}
	}
	var zero T
	return zero, 0, false
}

func (s *Stream[T]) Contains(element T) bool {
	for _, info := range s.elements {
		if info.Element == element {
			return true
		}
	}
	return false
}

// Node 多分支流的节点
// Info为nil表示拓扑仍在延续，但没有可以继续的元素
type Node[T Element] struct {
	Info   *StreamInfo[T]
	Next   []*Node[T]
	Vertex roadgraph.Vertex
}

// FindVertex 深度优先查找第一个对应顶点的节点
func (n *Node[T]) FindVertex(v roadgraph.Vertex) *Node[T] {
	if n.Vertex == v {
		return n
	}
	for _, next := range n.Next {
		if found := next.FindVertex(v); found != nil {
			return found
		}
	}
	return nil
}

// MultiStream 在路网分叉处分支的流，是以起点顶点为根的树
type MultiStream[T Element] struct {
	root *Node[T]
}

type LaneMultiStream = MultiStream[*worlddata.Lane]
type RoadMultiStream = MultiStream[*worlddata.Road]

func NewMultiStream[T Element](root *Node[T]) *MultiStream[T] {
	return &MultiStream[T]{root: root}
}

func (m *MultiStream[T]) Root() *Node[T] {
	return m.root
}

// Leaves 没有后继的节点，按深度优先顺序
func (m *MultiStream[T]) Leaves() []*Node[T] {
	leaves := make([]*Node[T], 0)
	var walk func(n *Node[T])
	walk = func(n *Node[T]) {
		if len(n.Next) == 0 {
			leaves = append(leaves, n)
			return
		}
		for _, next := range n.Next {
			walk(next)
		}
	}
	walk(m.root)
	return leaves
}

// PositionByVertexAndS 顶点对应元素上道路坐标s在流上的位置
// 返回：顶点上没有元素时返回-Inf；顶点不在树中属于调用错误
func (m *MultiStream[T]) PositionByVertexAndS(v roadgraph.Vertex, s float64) float64 {
	node := m.root.FindVertex(v)
	if node == nil {
		log.Panicf("vertex %v is not in multi stream", v)
	}
	if node.Info == nil {
		return math.Inf(-1)
	}
	return node.Info.StreamPositionOfS(s)
}

// RouteQueryResult 每个顶点上的查询结果
type RouteQueryResult[R any] map[roadgraph.Vertex]R

// Traverse 自根向叶遍历多分支流
// 功能：在每个带元素的节点上以父节点的结果调用fn，结果记录到节点顶点并传给所有子节点；
// 不带元素的节点直接沿用父节点的结果。同一顶点出现多次时以最深的节点为准
// 参数：zero为根节点的输入
// 说明：fn返回的切片或map会被多个分支共享，修改前需复制
func Traverse[T Element, R any](m *MultiStream[T], fn func(info StreamInfo[T], previous R) R, zero R) RouteQueryResult[R] {
	result := make(RouteQueryResult[R])
	var walk func(n *Node[T], previous R)
	walk = func(n *Node[T], previous R) {
		current := previous
		if n.Info != nil {
			current = fn(*n.Info, previous)
		}
		result[n.Vertex] = current
		for _, next := range n.Next {
			walk(next, current)
		}
	}
	walk(m.root, zero)
	return result
}
