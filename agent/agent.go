package agent

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/localization"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/container"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// Blueprint 创建智能体的参数
type Blueprint struct {
	Type   string // 车辆类别，如car、truck
	Length float64
	Width  float64
	Height float64
	// 参考点到前缘的距离，参考点通常为后轴中心
	DistanceReferencePointToLeadingEdge float64

	X, Y         float64 // 参考点位置
	Yaw          float64
	Velocity     float64
	Acceleration float64
}

// Agent 运动物体的适配器
// 功能：持有世界中的运动物体，维护参考点位姿与定位缓存
// 说明：位姿的任何写入都会使定位缓存失效，只有定位成功才会清除失效标记
type Agent struct {
	container.IncrementalItemBase

	object    *worlddata.Object
	localizer *localization.Localizer

	typ                   string
	distanceToLeadingEdge float64
	reference             geometry.Point // 参考点

	position entity.ObjectPosition
	onRoute  bool
	dirty    bool
}

func newAgent(object *worlddata.Object, localizer *localization.Localizer, bp Blueprint) *Agent {
	a := &Agent{
		object:                object,
		localizer:             localizer,
		typ:                   bp.Type,
		distanceToLeadingEdge: bp.DistanceReferencePointToLeadingEdge,
		dirty:                 true,
	}
	object.SetLinked(a)
	object.SetDimension(worlddata.Dimension{Length: bp.Length, Width: bp.Width, Height: bp.Height})
	a.SetPosition(geometry.Point{X: bp.X, Y: bp.Y}, bp.Yaw)
	a.SetVelocity(bp.Velocity)
	a.SetAcceleration(bp.Acceleration)
	return a
}

func (a *Agent) String() string {
	return fmt.Sprintf("Agent{Id:%d, Type:%s, Position:(%.2f, %.2f)}", a.Id(), a.typ, a.reference.X, a.reference.Y)
}

func (a *Agent) Id() entity.Id {
	return a.object.Id()
}

func (a *Agent) Object() *worlddata.Object {
	return a.object
}

func (a *Agent) Type() string {
	return a.typ
}

func (a *Agent) Length() float64 {
	return a.object.Dimension().Length
}

func (a *Agent) Width() float64 {
	return a.object.Dimension().Width
}

func (a *Agent) DistanceReferencePointToLeadingEdge() float64 {
	return a.distanceToLeadingEdge
}

// ReferencePoint 参考点位置
func (a *Agent) ReferencePoint() geometry.Point {
	return a.reference
}

func (a *Agent) Yaw() float64 {
	return a.object.Pose().Yaw
}

// SetPosition 设置参考点位置与航向
// 说明：物体位姿记录包围盒中心
func (a *Agent) SetPosition(reference geometry.Point, yaw float64) {
	a.reference = reference
	toCenter := a.distanceToLeadingEdge - a.Length()/2
	sin, cos := math.Sincos(yaw)
	pose := a.object.Pose()
	pose.Position = geometry.Point{X: reference.X + toCenter*cos, Y: reference.Y + toCenter*sin}
	pose.Yaw = yaw
	a.object.SetPose(pose)
	a.dirty = true
}

func (a *Agent) Dynamics() *worlddata.Dynamics {
	return a.object.Dynamics()
}

// Velocity 沿航向的速度
func (a *Agent) Velocity() float64 {
	return a.object.V()
}

// SetVelocity 设置沿航向的速度
func (a *Agent) SetVelocity(v float64) {
	sin, cos := math.Sincos(a.Yaw())
	a.Dynamics().Velocity = geometry.Point{X: v * cos, Y: v * sin}
}

// Acceleration 沿航向的加速度
func (a *Agent) Acceleration() float64 {
	acc := a.Dynamics().Acceleration
	sin, cos := math.Sincos(a.Yaw())
	return acc.X*cos + acc.Y*sin
}

func (a *Agent) SetAcceleration(acc float64) {
	sin, cos := math.Sincos(a.Yaw())
	a.Dynamics().Acceleration = geometry.Point{X: acc * cos, Y: acc * sin}
}

func (a *Agent) SetIndicator(state worlddata.IndicatorState) {
	a.Dynamics().Indicator = state
}

func (a *Agent) SetBrakeLight(on bool) {
	a.Dynamics().BrakeLight = on
}

// BoundingBox 世界坐标系下的包围盒
func (a *Agent) BoundingBox() []geometry.Point {
	return localization.GetBoundingBox(a.reference.X, a.reference.Y, a.Length(), a.Width(), a.Yaw(), a.distanceToLeadingEdge)
}

// MainLocatePoint 前缘中点
func (a *Agent) MainLocatePoint() geometry.Point {
	sin, cos := math.Sincos(a.Yaw())
	return geometry.Point{
		X: a.reference.X + a.distanceToLeadingEdge*cos,
		Y: a.reference.Y + a.distanceToLeadingEdge*sin,
	}
}

// Locate 定位到车道并刷新定位缓存
// 返回：参考点是否在路网上
// 说明：缓存未失效时直接返回上次结果
func (a *Agent) Locate() bool {
	if !a.dirty {
		return a.onRoute
	}
	result := a.localizer.Locate(localization.Target{
		Polygon:         a.BoundingBox(),
		ReferencePoint:  a.reference,
		MainLocatePoint: a.MainLocatePoint(),
		Heading:         a.Yaw(),
	}, a.object)
	a.position = result.Position
	a.onRoute = result.IsOnRoute
	a.dirty = !result.IsOnRoute
	return a.onRoute
}

// Unlocate 从所有车道移除并使定位缓存失效
func (a *Agent) Unlocate() {
	a.localizer.Unlocate(a.object)
	a.dirty = true
}

func (a *Agent) IsDirty() bool {
	return a.dirty
}

func (a *Agent) IsOnRoute() bool {
	return a.onRoute
}

// ObjectPosition 最近一次定位结果
func (a *Agent) ObjectPosition() entity.ObjectPosition {
	return a.position
}

// RoadPosition 参考点的道路坐标，位于多条道路上时取道路ID最小者
func (a *Agent) RoadPosition() (entity.GlobalRoadPosition, bool) {
	positions := a.position.ReferencePoint
	if len(positions) == 0 {
		return entity.GlobalRoadPosition{}, false
	}
	ids := lo.Keys(positions)
	sort.Strings(ids)
	return positions[ids[0]], true
}
