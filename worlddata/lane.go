package worlddata

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/container"
)

// JointPoints 车道几何节点的左边界、中心、右边界点
type JointPoints struct {
	Left      geometry.Point
	Reference geometry.Point
	Right     geometry.Point
}

// LaneGeometryJoint 车道几何采样节点
type LaneGeometryJoint struct {
	Points    JointPoints
	Curvature float64
	SHdg      float64 // 参考线航向角
	SOffset   float64 // 道路坐标s
}

// LaneGeometryElement 相邻两个采样节点围成的车道几何单元
type LaneGeometryElement struct {
	Current LaneGeometryJoint
	Next    LaneGeometryJoint
	lane    *Lane
}

// Lane 几何单元所属车道
func (e *LaneGeometryElement) Lane() *Lane {
	return e.lane
}

// Polygon 几何单元多边形：当前左、当前右、下一右、下一左
func (e *LaneGeometryElement) Polygon() []geometry.Point {
	return []geometry.Point{e.Current.Points.Left, e.Current.Points.Right, e.Next.Points.Right, e.Next.Points.Left}
}

// LaneOverlap 对象在车道上的覆盖范围
type LaneOverlap struct {
	SMin entity.GlobalRoadPosition
	SMax entity.GlobalRoadPosition
	TMin entity.GlobalRoadPosition
	TMax entity.GlobalRoadPosition
}

// LaneAssignment 车道上的对象及其覆盖范围
type LaneAssignment struct {
	Object  *Object
	Overlap LaneOverlap
}

type assignmentNode = container.ListNode[*Object, LaneOverlap]

// Lane 车道
// 说明：几何以采样节点序列表示，每两个相邻节点构成一个几何单元；s均为道路坐标
type Lane struct {
	id       entity.Id
	odId     int
	section  *Section
	laneType entity.LaneType
	invalid  bool

	joints   []LaneGeometryJoint
	elements []*LaneGeometryElement

	predecessors []*Lane
	successors   []*Lane
	left, right  *Lane

	leftBoundaries  []*LaneBoundary
	rightBoundaries []*LaneBoundary

	objects       container.List[*Object, LaneOverlap] // 按覆盖范围sMin升序
	trafficSigns  []*TrafficSign
	roadMarkings  []*RoadMarking
	trafficLights []*TrafficLight
}

// InvalidLane 查询落在已知路网之外时返回的车道
var InvalidLane = &Lane{id: entity.InvalidId, odId: 0, invalid: true}

func newLane(id entity.Id, section *Section, odId int, laneType entity.LaneType) *Lane {
	l := &Lane{
		id:       id,
		odId:     odId,
		section:  section,
		laneType: laneType,
	}
	l.objects.ID = fmt.Sprintf("lane-%d", id)
	return l
}

func (l *Lane) String() string {
	if l.invalid {
		return "Lane{invalid}"
	}
	return fmt.Sprintf("Lane{Id:%d, Road:%s, OdId:%d}", l.id, l.Road().OdId(), l.odId)
}

// Exists 是否为有效车道
func (l *Lane) Exists() bool {
	return !l.invalid
}

func (l *Lane) Id() entity.Id {
	return l.id
}

// OdId OpenDRIVE车道ID
func (l *Lane) OdId() int {
	return l.odId
}

func (l *Lane) Section() *Section {
	return l.section
}

func (l *Lane) Road() *Road {
	if l.section == nil {
		return nil
	}
	return l.section.road
}

func (l *Lane) LaneType() entity.LaneType {
	return l.laneType
}

// InStreamDirection 车道行驶方向是否与统一后的道路方向一致
func (l *Lane) InStreamDirection() bool {
	road := l.Road()
	if road == nil {
		return true
	}
	return road.inStreamDirection == (l.odId < 0)
}

// Joints 采样节点
func (l *Lane) Joints() []LaneGeometryJoint {
	return l.joints
}

// Elements 几何单元
func (l *Lane) Elements() []*LaneGeometryElement {
	return l.elements
}

// AddGeometryJoint 追加采样节点，s不大于上一个节点时忽略
func (l *Lane) AddGeometryJoint(points JointPoints, s, curvature, heading float64) {
	joint := LaneGeometryJoint{
		Points:    points,
		Curvature: curvature,
		SHdg:      heading,
		SOffset:   s,
	}
	if n := len(l.joints); n > 0 {
		prev := l.joints[n-1]
		if s <= prev.SOffset {
			return
		}
		l.elements = append(l.elements, &LaneGeometryElement{Current: prev, Next: joint, lane: l})
	}
	l.joints = append(l.joints, joint)
}

// Length 车道长度
func (l *Lane) Length() float64 {
	if len(l.joints) == 0 {
		return 0
	}
	return l.joints[len(l.joints)-1].SOffset - l.joints[0].SOffset
}

// DistanceStart 车道起点的道路坐标
func (l *Lane) DistanceStart() float64 {
	if len(l.joints) == 0 {
		return 0
	}
	return l.joints[0].SOffset
}

// DistanceEnd 车道终点的道路坐标
func (l *Lane) DistanceEnd() float64 {
	if len(l.joints) == 0 {
		return 0
	}
	return l.joints[len(l.joints)-1].SOffset
}

// Covers 车道是否覆盖道路坐标d，无后继的车道包含终点
func (l *Lane) Covers(d float64) bool {
	if l.DistanceStart() > d {
		return false
	}
	if len(l.successors) == 0 {
		return l.DistanceEnd() > d
	}
	return l.DistanceEnd() >= d
}

// neighbouringJoints 返回第一个s大于d的节点及其前一个节点的下标
func (l *Lane) neighbouringJoints(d float64) (prev, next int) {
	next = sort.Search(len(l.joints), func(i int) bool { return l.joints[i].SOffset > d })
	return next - 1, next
}

// InterpolatedPointsAtDistance 在道路坐标d处插值得到左、中、右点
func (l *Lane) InterpolatedPointsAtDistance(d float64) JointPoints {
	if len(l.joints) == 0 {
		return JointPoints{}
	}
	prev, next := l.neighbouringJoints(d)
	if prev < 0 {
		return l.joints[0].Points
	}
	if next >= len(l.joints) {
		return l.joints[len(l.joints)-1].Points
	}
	a, b := l.joints[prev], l.joints[next]
	k := (d - a.SOffset) / (b.SOffset - a.SOffset)
	return JointPoints{
		Left:      geometry.Blend(a.Points.Left, b.Points.Left, k),
		Reference: geometry.Blend(a.Points.Reference, b.Points.Reference, k),
		Right:     geometry.Blend(a.Points.Right, b.Points.Right, k),
	}
}

// Curvature 道路坐标d处的曲率，起点之前为0
func (l *Lane) Curvature(d float64) float64 {
	prev, next := l.neighbouringJoints(d)
	if prev < 0 {
		return 0
	}
	if next >= len(l.joints) {
		return l.joints[len(l.joints)-1].Curvature
	}
	a, b := l.joints[prev], l.joints[next]
	k := (d - a.SOffset) / (b.SOffset - a.SOffset)
	return a.Curvature + (b.Curvature-a.Curvature)*k
}

// Width 道路坐标d处的宽度，起点之前为0
func (l *Lane) Width(d float64) float64 {
	prev, next := l.neighbouringJoints(d)
	if prev < 0 {
		return 0
	}
	width := func(j LaneGeometryJoint) float64 {
		return math.Hypot(j.Points.Left.X-j.Points.Right.X, j.Points.Left.Y-j.Points.Right.Y)
	}
	if next >= len(l.joints) {
		return width(l.joints[len(l.joints)-1])
	}
	a, b := l.joints[prev], l.joints[next]
	k := (d - a.SOffset) / (b.SOffset - a.SOffset)
	return width(a) + (width(b)-width(a))*k
}

// Direction 道路坐标d处的参考线航向角
func (l *Lane) Direction(d float64) float64 {
	prev, _ := l.neighbouringJoints(d)
	if prev < 0 {
		return 0
	}
	return l.joints[prev].SHdg
}

// ElementAt 覆盖道路坐标d的几何单元，没有时返回nil
func (l *Lane) ElementAt(d float64) *LaneGeometryElement {
	for _, e := range l.elements {
		if e.Current.SOffset <= d && d <= e.Next.SOffset {
			return e
		}
	}
	return nil
}

func (l *Lane) Predecessors() []*Lane {
	return l.predecessors
}

func (l *Lane) Successors() []*Lane {
	return l.successors
}

// Next 沿行驶方向的下游车道
func (l *Lane) Next(inStreamDirection bool) []*Lane {
	if inStreamDirection {
		return l.successors
	}
	return l.predecessors
}

func (l *Lane) addPredecessor(p *Lane) {
	for _, x := range l.predecessors {
		if x == p {
			return
		}
	}
	l.predecessors = append(l.predecessors, p)
}

func (l *Lane) addSuccessor(s *Lane) {
	for _, x := range l.successors {
		if x == s {
			return
		}
	}
	l.successors = append(l.successors, s)
}

// Left 参考线方向左侧相邻车道，不存在时返回InvalidLane
func (l *Lane) Left() *Lane {
	if l.left == nil {
		return InvalidLane
	}
	return l.left
}

// Right 参考线方向右侧相邻车道，不存在时返回InvalidLane
func (l *Lane) Right() *Lane {
	if l.right == nil {
		return InvalidLane
	}
	return l.right
}

func (l *Lane) LeftBoundaries() []*LaneBoundary {
	return l.leftBoundaries
}

func (l *Lane) RightBoundaries() []*LaneBoundary {
	return l.rightBoundaries
}

// TrafficSigns 作用于本车道的交通标志
func (l *Lane) TrafficSigns() []*TrafficSign {
	return l.trafficSigns
}

func (l *Lane) RoadMarkings() []*RoadMarking {
	return l.roadMarkings
}

func (l *Lane) TrafficLights() []*TrafficLight {
	return l.trafficLights
}

func (l *Lane) AddTrafficSign(s *TrafficSign) {
	l.trafficSigns = append(l.trafficSigns, s)
}

func (l *Lane) AddRoadMarking(m *RoadMarking) {
	l.roadMarkings = append(l.roadMarkings, m)
}

func (l *Lane) AddTrafficLight(t *TrafficLight) {
	l.trafficLights = append(l.trafficLights, t)
}

// AddObject 将对象分配到本车道
// 按(sMin, sMax)升序插入，同时记录在对象上以便Unlocate时移除
func (l *Lane) AddObject(o *Object, overlap LaneOverlap) {
	node := &assignmentNode{S: overlap.SMin.RoadPosition.S, Value: o, Extra: overlap}
	l.objects.InsertSorted(node, func(a, b *assignmentNode) bool {
		if a.S != b.S {
			return a.S < b.S
		}
		return a.Extra.SMax.RoadPosition.S < b.Extra.SMax.RoadPosition.S
	})
	o.assignments = append(o.assignments, objectAssignment{lane: l, node: node})
}

// ClearMovingObjects 移除所有运动物体，静止物体保留
func (l *Lane) ClearMovingObjects() {
	l.objects.RemoveIf(func(n *assignmentNode) bool {
		if n.Value.kind != entity.ObjectKindMoving {
			return false
		}
		n.Value.dropAssignment(n)
		return true
	})
}

// detachMovingObjects 只从本车道列表中移除运动物体，不修改物体上的分配记录
func (l *Lane) detachMovingObjects() {
	l.objects.RemoveIf(func(n *assignmentNode) bool {
		return n.Value.kind == entity.ObjectKindMoving
	})
}

// WorldObjects 车道上的对象
// 顺行方向按(sMin升序, sMax升序)，逆行方向按(sMax降序, sMin降序)
func (l *Lane) WorldObjects(inStreamDirection bool) []LaneAssignment {
	res := make([]LaneAssignment, 0, l.objects.Len())
	for n := l.objects.First(); n != nil; n = n.Next() {
		res = append(res, LaneAssignment{Object: n.Value, Overlap: n.Extra})
	}
	if !inStreamDirection {
		sort.SliceStable(res, func(i, j int) bool {
			a, b := res[i].Overlap, res[j].Overlap
			if a.SMax.RoadPosition.S != b.SMax.RoadPosition.S {
				return a.SMax.RoadPosition.S > b.SMax.RoadPosition.S
			}
			return a.SMin.RoadPosition.S > b.SMin.RoadPosition.S
		})
	}
	return res
}

// ObjectCount 车道上的对象数量
func (l *Lane) ObjectCount() int {
	return l.objects.Len()
}
