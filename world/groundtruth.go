package world

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/osi-world-sim/agent"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// ObjectState 物体快照
type ObjectState struct {
	Id        entity.Id
	Kind      entity.ObjectKind
	Type      string // 运动物体为智能体类型，静止物体为路网描述中的ID
	Position  geometry.Point
	Yaw       float64
	Dimension worlddata.Dimension
	Velocity  geometry.Point
}

// SignState 交通标志快照
type SignState struct {
	Id       entity.Id
	OdId     string
	Type     entity.TrafficSignType
	Value    float64
	Position geometry.Point
}

// LightState 信号灯快照
type LightState struct {
	Id       entity.Id
	OdId     string
	State    mapv2.LightState
	Position geometry.Point
}

// Snapshot 以某个智能体为中心的真值快照
type Snapshot struct {
	Timestamp         int64
	HostId            entity.Id
	Radius            float64
	MovingObjects     []ObjectState
	StationaryObjects []ObjectState
	TrafficSigns      []SignState
	TrafficLights     []LightState
}

// ToLightState 信号灯状态转换为对外的灯色
// 说明：红黄按红灯处理，黄闪按黄灯处理，熄灭与未知为未指定
func ToLightState(s entity.TrafficLightState) mapv2.LightState {
	switch s {
	case entity.TrafficLightRed, entity.TrafficLightRedYellow:
		return mapv2.LightState_LIGHT_STATE_RED
	case entity.TrafficLightYellow, entity.TrafficLightYellowFlashing:
		return mapv2.LightState_LIGHT_STATE_YELLOW
	case entity.TrafficLightGreen:
		return mapv2.LightState_LIGHT_STATE_GREEN
	default:
		return mapv2.LightState_LIGHT_STATE_UNSPECIFIED
	}
}

// GroundTruth 生成真值快照
// 功能：收集距离主车参考点radius以内的运动物体、静止物体、交通标志与信号灯
// 参数：hostId-主车智能体ID，为entity.InvalidId时取ID最小的智能体；radius-半径，不大于0时不过滤
// 返回：快照；主车不存在时返回错误
func (w *World) GroundTruth(hostId entity.Id, radius float64) (*Snapshot, error) {
	host, err := w.host(hostId)
	if err != nil {
		return nil, err
	}
	center := host.ReferencePoint()
	within := func(p geometry.Point) bool {
		return radius <= 0 || math.Hypot(p.X-center.X, p.Y-center.Y) <= radius
	}

	s := &Snapshot{
		Timestamp: w.timestamp,
		HostId:    host.Id(),
		Radius:    radius,
	}
	for _, o := range w.data.MovingObjects() {
		if within(o.Pose().Position) {
			s.MovingObjects = append(s.MovingObjects, objectState(o))
		}
	}
	for _, o := range w.data.StationaryObjects() {
		if within(o.Pose().Position) {
			s.StationaryObjects = append(s.StationaryObjects, objectState(o))
		}
	}
	for _, t := range w.data.TrafficSigns() {
		if p := t.Pose().Position; within(p) {
			s.TrafficSigns = append(s.TrafficSigns, SignState{Id: t.Id(), OdId: t.OdId(), Type: t.Type(), Value: t.Value(), Position: p})
		}
	}
	for _, l := range w.data.TrafficLights() {
		if p := l.Pose().Position; within(p) {
			s.TrafficLights = append(s.TrafficLights, LightState{Id: l.Id(), OdId: l.OdId(), State: ToLightState(l.State()), Position: p})
		}
	}
	sort.Slice(s.TrafficSigns, func(i, j int) bool { return s.TrafficSigns[i].Id < s.TrafficSigns[j].Id })
	sort.Slice(s.TrafficLights, func(i, j int) bool { return s.TrafficLights[i].Id < s.TrafficLights[j].Id })
	return s, nil
}

func (w *World) host(id entity.Id) (*agent.Agent, error) {
	if id != entity.InvalidId {
		return w.agents.GetAgentOrError(id)
	}
	agents := w.agents.GetAgents()
	if len(agents) == 0 {
		return nil, fmt.Errorf("no agent to center the ground truth on")
	}
	return agents[0], nil
}

func objectState(o *worlddata.Object) ObjectState {
	state := ObjectState{
		Id:        o.Id(),
		Kind:      o.Kind(),
		Type:      o.OdId(),
		Position:  o.Pose().Position,
		Yaw:       o.Pose().Yaw,
		Dimension: o.Dimension(),
	}
	if a, ok := o.Linked().(*agent.Agent); ok {
		state.Type = a.Type()
	}
	if d := o.Dynamics(); d != nil {
		state.Velocity = d.Velocity
	}
	return state
}
