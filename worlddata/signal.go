package worlddata

import (
	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

// SignalPose 信号在世界坐标系下的位姿与尺寸
type SignalPose struct {
	Position geometry.Point
	Yaw      float64
	Width    float64
	Height   float64
}

// SupplementarySign 附属标志
type SupplementarySign struct {
	OdId  string
	Type  entity.TrafficSignType
	Value float64
	Unit  entity.TrafficSignUnit
	Text  string
	Pose  SignalPose
}

// TrafficSign 交通标志
type TrafficSign struct {
	id            entity.Id
	odId          string
	road          *Road
	s             float64
	typ           entity.TrafficSignType
	value         float64
	unit          entity.TrafficSignUnit
	text          string
	pose          SignalPose
	supplementary []SupplementarySign
}

// NewTrafficSign 创建未注册的交通标志
func NewTrafficSign(odId string, s float64, typ entity.TrafficSignType, value float64, unit entity.TrafficSignUnit, text string, pose SignalPose) *TrafficSign {
	return &TrafficSign{odId: odId, s: s, typ: typ, value: value, unit: unit, text: text, pose: pose}
}

func (t *TrafficSign) Id() entity.Id {
	return t.id
}

func (t *TrafficSign) OdId() string {
	return t.odId
}

func (t *TrafficSign) Road() *Road {
	return t.road
}

// S 所在道路坐标
func (t *TrafficSign) S() float64 {
	return t.s
}

func (t *TrafficSign) Type() entity.TrafficSignType {
	return t.typ
}

func (t *TrafficSign) Value() float64 {
	return t.value
}

func (t *TrafficSign) Pose() SignalPose {
	return t.pose
}

// AddSupplementarySign 附加附属标志
func (t *TrafficSign) AddSupplementarySign(s SupplementarySign) {
	t.supplementary = append(t.supplementary, s)
}

func (t *TrafficSign) SupplementarySigns() []SupplementarySign {
	return t.supplementary
}

// Spec 查询结果
func (t *TrafficSign) Spec(relativeDistance float64) entity.TrafficSignEntity {
	return entity.TrafficSignEntity{
		Id:                    t.id,
		Type:                  t.typ,
		DistanceToStartOfRoad: t.s,
		RelativeDistance:      relativeDistance,
		Value:                 t.value,
		Unit:                  t.unit,
		Text:                  t.text,
		SupplementarySigns: lo.Map(t.supplementary, func(s SupplementarySign, _ int) entity.TrafficSignEntity {
			return entity.TrafficSignEntity{
				Id:                    t.id,
				Type:                  s.Type,
				DistanceToStartOfRoad: t.s,
				RelativeDistance:      relativeDistance,
				Value:                 s.Value,
				Unit:                  s.Unit,
				Text:                  s.Text,
			}
		}),
	}
}

// RoadMarking 路面标记
type RoadMarking struct {
	id   entity.Id
	odId string
	road *Road
	s    float64
	typ  entity.RoadMarkingType
	text string
	pose SignalPose
}

// NewRoadMarking 创建未注册的路面标记
func NewRoadMarking(odId string, s float64, typ entity.RoadMarkingType, text string, pose SignalPose) *RoadMarking {
	return &RoadMarking{odId: odId, s: s, typ: typ, text: text, pose: pose}
}

func (m *RoadMarking) Id() entity.Id {
	return m.id
}

func (m *RoadMarking) OdId() string {
	return m.odId
}

func (m *RoadMarking) S() float64 {
	return m.s
}

func (m *RoadMarking) Type() entity.RoadMarkingType {
	return m.typ
}

func (m *RoadMarking) Pose() SignalPose {
	return m.pose
}

func (m *RoadMarking) Spec(relativeDistance float64) entity.RoadMarkingEntity {
	return entity.RoadMarkingEntity{
		Id:                    m.id,
		Type:                  m.typ,
		DistanceToStartOfRoad: m.s,
		RelativeDistance:      relativeDistance,
		Text:                  m.text,
	}
}

// TrafficLight 信号灯，初始状态为红灯
type TrafficLight struct {
	id    entity.Id
	odId  string
	road  *Road
	s     float64
	typ   entity.TrafficLightType
	state entity.TrafficLightState
	pose  SignalPose
}

// NewTrafficLight 创建未注册的信号灯
func NewTrafficLight(odId string, s float64, typ entity.TrafficLightType, pose SignalPose) *TrafficLight {
	return &TrafficLight{odId: odId, s: s, typ: typ, state: entity.TrafficLightRed, pose: pose}
}

func (l *TrafficLight) Id() entity.Id {
	return l.id
}

func (l *TrafficLight) OdId() string {
	return l.odId
}

func (l *TrafficLight) S() float64 {
	return l.s
}

func (l *TrafficLight) Type() entity.TrafficLightType {
	return l.typ
}

func (l *TrafficLight) State() entity.TrafficLightState {
	return l.state
}

func (l *TrafficLight) SetState(state entity.TrafficLightState) {
	l.state = state
}

func (l *TrafficLight) Pose() SignalPose {
	return l.pose
}

func (l *TrafficLight) Spec(relativeDistance float64) entity.TrafficLightEntity {
	return entity.TrafficLightEntity{
		Id:               l.id,
		Type:             l.typ,
		State:            l.state,
		RelativeDistance: relativeDistance,
	}
}
