// Package scenerytest 构造测试用的合成路网
package scenerytest

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity/repository"
	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// LaneWidth 合成车道宽度
const LaneWidth = 3.5

// LaneSpec 合成车道
type LaneSpec struct {
	Id    int
	Type  string
	Width float64
	Marks []opendrive.RoadMark
}

// Driving 宽度为LaneWidth的行车道
func Driving(id int) LaneSpec {
	return LaneSpec{Id: id, Type: "driving", Width: LaneWidth}
}

// OfType 指定类型的车道
func OfType(id int, typ string) LaneSpec {
	return LaneSpec{Id: id, Type: typ, Width: LaneWidth}
}

// StraightRoad 从(x, y)出发、航向hdg的直线道路，只有一个车道段
func StraightRoad(id string, x, y, hdg, length float64, lanes ...LaneSpec) *opendrive.Road {
	section := &opendrive.LaneSection{
		S: 0,
		Lanes: []*opendrive.Lane{{
			Id:        0,
			Type:      "none",
			RoadMarks: []opendrive.RoadMark{{Type: "broken", Color: "standard"}},
		}},
	}
	for _, spec := range lanes {
		section.Lanes = append(section.Lanes, &opendrive.Lane{
			Id:        spec.Id,
			Type:      spec.Type,
			Widths:    []opendrive.LaneWidth{{Polynomial: opendrive.Polynomial{A: spec.Width}}},
			RoadMarks: spec.Marks,
		})
	}
	return &opendrive.Road{
		Id:         id,
		JunctionId: "-1",
		Length:     length,
		Geometries: []*opendrive.Geometry{{
			S: 0, X: x, Y: y, Hdg: hdg, Length: length, Type: opendrive.GeometryLine,
		}},
		Sections: []*opendrive.LaneSection{section},
	}
}

// LinkLaneSuccessors 设置道路末端车道段中车道id的显式后继
func LinkLaneSuccessors(road *opendrive.Road, id int, successors ...int) {
	if lane, ok := road.Sections[len(road.Sections)-1].GetLane(id); ok {
		lane.Successors = successors
	}
}

// Link 道路连接
func Link(typ opendrive.ElementType, id string, contact opendrive.ContactPoint) *opendrive.RoadLink {
	return &opendrive.RoadLink{ElementType: typ, ElementId: id, ContactPoint: contact}
}

// RoadLink 指向道路的连接
func RoadLink(id string, contact opendrive.ContactPoint) *opendrive.RoadLink {
	return Link(opendrive.ElementTypeRoad, id, contact)
}

// NewScenery 由道路与路口组成路网并建立索引
func NewScenery(roads []*opendrive.Road, junctions ...*opendrive.Junction) *opendrive.Scenery {
	s := &opendrive.Scenery{
		Header:    opendrive.Header{Name: "synthetic", Country: "DE"},
		Roads:     roads,
		Junctions: junctions,
	}
	s.BuildIndex()
	return s
}

// NewWorld 使用默认容量的空世界数据
func NewWorld() *worlddata.WorldData {
	return worlddata.New(repository.New(repository.DefaultCapacities, nil))
}

// 分叉路网的道路ID与长度
const (
	ForkTrunkRoadId = "R1"
	ForkLeftRoadId  = "R2"
	ForkRightRoadId = "R3"
	ForkTrunkLength = 100.0
	ForkLeftLength  = 50.0
	ForkRightLength = 80.0
	forkBranchAngle = 0.3
)

// Fork 一分为二的路网：R1->R2与R1->R3直接相连，不经过路口
// 说明：三条道路均只有-1号车道，R3的车道类型由rightLaneType给出
func Fork(rightLaneType string) *opendrive.Scenery {
	r1 := StraightRoad(ForkTrunkRoadId, 0, 0, 0, ForkTrunkLength, Driving(-1))
	r2 := StraightRoad(ForkLeftRoadId, ForkTrunkLength, 0, 0, ForkLeftLength, Driving(-1))
	r3 := StraightRoad(ForkRightRoadId, ForkTrunkLength, 0, -forkBranchAngle, ForkRightLength, OfType(-1, rightLaneType))
	r1.Successor = RoadLink(ForkLeftRoadId, opendrive.ContactPointStart)
	r2.Predecessor = RoadLink(ForkTrunkRoadId, opendrive.ContactPointEnd)
	r3.Predecessor = RoadLink(ForkTrunkRoadId, opendrive.ContactPointEnd)
	return NewScenery([]*opendrive.Road{r1, r2, r3})
}

// Crossing 十字交叉的路口
// 说明：W(西)经连接道路P1驶入E(东)，S(南)经连接道路P2驶入N(北)，P1优先于P2；
// P1、P2均为单车道直线，在(10, 0)附近相交
func Crossing() *opendrive.Scenery {
	w := StraightRoad("W", -50, 0, 0, 50, Driving(-1))
	e := StraightRoad("E", 20, 0, 0, 50, Driving(-1))
	s := StraightRoad("S", 10, -60, HalfPi, 50, Driving(-1))
	n := StraightRoad("N", 10, 10, HalfPi, 50, Driving(-1))
	p1 := StraightRoad("P1", 0, 0, 0, 20, Driving(-1))
	p2 := StraightRoad("P2", 10, -10, HalfPi, 20, Driving(-1))
	p1.JunctionId, p2.JunctionId = "J", "J"

	w.Successor = Link(opendrive.ElementTypeJunction, "J", opendrive.ContactPointUndefined)
	s.Successor = Link(opendrive.ElementTypeJunction, "J", opendrive.ContactPointUndefined)
	e.Predecessor = Link(opendrive.ElementTypeJunction, "J", opendrive.ContactPointUndefined)
	n.Predecessor = Link(opendrive.ElementTypeJunction, "J", opendrive.ContactPointUndefined)
	p1.Predecessor = RoadLink("W", opendrive.ContactPointEnd)
	p1.Successor = RoadLink("E", opendrive.ContactPointStart)
	p2.Predecessor = RoadLink("S", opendrive.ContactPointEnd)
	p2.Successor = RoadLink("N", opendrive.ContactPointStart)
	LinkLaneSuccessors(p1, -1, -1)
	LinkLaneSuccessors(p2, -1, -1)

	junction := &opendrive.Junction{
		Id: "J",
		Connections: []*opendrive.Connection{
			{Id: "0", IncomingRoad: "W", ConnectingRoad: "P1", ContactPoint: opendrive.ContactPointStart,
				LaneLinks: []opendrive.LaneLink{{From: -1, To: -1}}},
			{Id: "1", IncomingRoad: "S", ConnectingRoad: "P2", ContactPoint: opendrive.ContactPointStart,
				LaneLinks: []opendrive.LaneLink{{From: -1, To: -1}}},
		},
		Priorities: []opendrive.Priority{{High: "P1", Low: "P2"}},
	}
	return NewScenery([]*opendrive.Road{w, e, s, n, p1, p2}, junction)
}

// 分流路口的道路ID与长度
const (
	SplitIncomingRoadId = "I"
	SplitShortRoadId    = "C1"
	SplitLongRoadId     = "C2"
	SplitIncomingLength = 50.0
	SplitShortLength    = 20.0
	SplitLongLength     = 30.0
	splitOutgoingLength = 50.0
	splitBranchAngle    = 0.3
)

// Split 一分为二的路口：I经连接道路C1驶入O1，经连接道路C2驶入O2
// 说明：C1、C2长度不同，因此O1、O2起点在流上的位置不同
func Split() *opendrive.Scenery {
	in := StraightRoad(SplitIncomingRoadId, -SplitIncomingLength, 0, 0, SplitIncomingLength, Driving(-1))
	c1 := StraightRoad(SplitShortRoadId, 0, 0, 0, SplitShortLength, Driving(-1))
	c2 := StraightRoad(SplitLongRoadId, 0, 0, -splitBranchAngle, SplitLongLength, Driving(-1))
	o1 := StraightRoad("O1", SplitShortLength, 0, 0, splitOutgoingLength, Driving(-1))
	o2 := StraightRoad("O2", SplitLongLength*math.Cos(splitBranchAngle), -SplitLongLength*math.Sin(splitBranchAngle),
		-splitBranchAngle, splitOutgoingLength, Driving(-1))
	c1.JunctionId, c2.JunctionId = "J", "J"

	in.Successor = Link(opendrive.ElementTypeJunction, "J", opendrive.ContactPointUndefined)
	o1.Predecessor = Link(opendrive.ElementTypeJunction, "J", opendrive.ContactPointUndefined)
	o2.Predecessor = Link(opendrive.ElementTypeJunction, "J", opendrive.ContactPointUndefined)
	c1.Predecessor = RoadLink(SplitIncomingRoadId, opendrive.ContactPointEnd)
	c1.Successor = RoadLink("O1", opendrive.ContactPointStart)
	c2.Predecessor = RoadLink(SplitIncomingRoadId, opendrive.ContactPointEnd)
	c2.Successor = RoadLink("O2", opendrive.ContactPointStart)
	LinkLaneSuccessors(c1, -1, -1)
	LinkLaneSuccessors(c2, -1, -1)

	junction := &opendrive.Junction{
		Id: "J",
		Connections: []*opendrive.Connection{
			{Id: "0", IncomingRoad: SplitIncomingRoadId, ConnectingRoad: SplitShortRoadId, ContactPoint: opendrive.ContactPointStart,
				LaneLinks: []opendrive.LaneLink{{From: -1, To: -1}}},
			{Id: "1", IncomingRoad: SplitIncomingRoadId, ConnectingRoad: SplitLongRoadId, ContactPoint: opendrive.ContactPointStart,
				LaneLinks: []opendrive.LaneLink{{From: -1, To: -1}}},
		},
	}
	return NewScenery([]*opendrive.Road{in, c1, c2, o1, o2}, junction)
}

// HalfPi π/2
const HalfPi = 1.5707963267948966

// Point 平面点
func Point(x, y float64) geometry.Point {
	return geometry.Point{X: x, Y: y}
}

// 带信号灯道路的参数
const (
	SignalledRoadId      = "A"
	SignalledRoadLength  = 200.0
	SignalledLightId     = "L1"
	SignalledLightS      = 100.0
	SignalledGreenMillis = 10_000
	SignalledRedMillis   = 10_000
)

// SignalledRoad 单车道直路，中部有一个信号灯与路侧的一根杆
// 说明：控制器C1先绿灯10秒再红灯10秒循环
func SignalledRoad() *opendrive.Scenery {
	road := StraightRoad(SignalledRoadId, 0, 0, 0, SignalledRoadLength, Driving(-1))
	road.Signals = []*opendrive.Signal{
		{Id: SignalledLightId, S: SignalledLightS, T: -5, Orientation: "+", Type: "1.000.001", Dynamic: true},
	}
	road.Objects = []*opendrive.Object{
		{Id: "pole", Type: "pole", S: 50, T: -3, Length: 0.2, Width: 0.2, Height: 3},
	}
	s := NewScenery([]*opendrive.Road{road})
	s.Controllers = []*opendrive.Controller{{
		Id: "C1",
		Phases: []opendrive.Phase{
			{Duration: SignalledGreenMillis / 1000, States: []opendrive.ControlState{{SignalId: SignalledLightId, State: "green"}}},
			{Duration: SignalledRedMillis / 1000, States: []opendrive.ControlState{{SignalId: SignalledLightId, State: "red"}}},
		},
	}}
	return s
}
