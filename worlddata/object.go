package worlddata

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

// IndicatorState 转向灯状态
type IndicatorState int

const (
	IndicatorOff IndicatorState = iota
	IndicatorLeft
	IndicatorRight
	IndicatorWarn
)

// Dimension 包围盒尺寸
type Dimension struct {
	Length float64
	Width  float64
	Height float64
}

// Pose 世界坐标系下的位姿，Position为包围盒中心
type Pose struct {
	Position geometry.Point
	Yaw      float64
	Pitch    float64
	Roll     float64
}

// Dynamics 运动物体的动力学状态
type Dynamics struct {
	Velocity           geometry.Point
	Acceleration       geometry.Point
	YawRate            float64
	Gear               int
	Indicator          IndicatorState
	BrakeLight         bool
	HeadLight          bool
	HighBeam           bool
	SteeringWheelAngle float64
	WheelRotationRate  float64
	FrontWheelAngle    float64
}

// Speed 速度大小
func (d *Dynamics) Speed() float64 {
	return math.Hypot(d.Velocity.X, d.Velocity.Y)
}

// Object 世界中的静止或运动物体
// 说明：种类由kind标签区分，只有运动物体持有dynamics
type Object struct {
	id        entity.Id
	kind      entity.ObjectKind
	odId      string // 来自路网描述的静止物体ID
	pose      Pose
	dimension Dimension
	dynamics  *Dynamics
	linked    any // 持有本对象的适配器

	assignments []objectAssignment
}

type objectAssignment struct {
	lane *Lane
	node *assignmentNode
}

func (o *Object) String() string {
	return fmt.Sprintf("Object{Id:%d, Kind:%v}", o.id, o.kind)
}

func (o *Object) Id() entity.Id {
	return o.id
}

func (o *Object) Kind() entity.ObjectKind {
	return o.kind
}

// OdId 路网描述中的ID，运动物体为空
func (o *Object) OdId() string {
	return o.odId
}

func (o *Object) Pose() Pose {
	return o.pose
}

func (o *Object) SetPose(p Pose) {
	o.pose = p
}

func (o *Object) Dimension() Dimension {
	return o.dimension
}

func (o *Object) SetDimension(d Dimension) {
	o.dimension = d
}

// Length 实现container.IHasLength
func (o *Object) Length() float64 {
	return o.dimension.Length
}

// V 速度大小，静止物体为0
func (o *Object) V() float64 {
	if o.dynamics == nil {
		return 0
	}
	return o.dynamics.Speed()
}

// Dynamics 动力学状态，静止物体为nil
func (o *Object) Dynamics() *Dynamics {
	return o.dynamics
}

// Linked 持有本对象的适配器
func (o *Object) Linked() any {
	return o.linked
}

func (o *Object) SetLinked(v any) {
	o.linked = v
}

// Lanes 对象当前被分配到的车道
func (o *Object) Lanes() []*Lane {
	return lo.Uniq(lo.Map(o.assignments, func(a objectAssignment, _ int) *Lane { return a.lane }))
}

// ClearLaneAssignments 从所有车道移除本对象
func (o *Object) ClearLaneAssignments() {
	for _, a := range o.assignments {
		if a.node.Parent() != nil {
			a.lane.objects.Remove(a.node)
		}
	}
	o.assignments = o.assignments[:0]
}

func (o *Object) dropAssignment(n *assignmentNode) {
	o.assignments = lo.Reject(o.assignments, func(a objectAssignment, _ int) bool { return a.node == n })
}
