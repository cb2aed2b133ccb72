package worlddata

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

// Section 车道段
type Section struct {
	id      entity.Id
	index   int
	road    *Road
	sOffset float64

	lanes   []*Lane // 按OpenDRIVE车道ID升序，不含中心车道
	laneMap map[int]*Lane

	predecessors []*Section
	successors   []*Section

	centerBoundaries []*LaneBoundary
}

func (s *Section) String() string {
	return fmt.Sprintf("Section{Id:%d, Road:%s, Index:%d}", s.id, s.road.odId, s.index)
}

func (s *Section) Id() entity.Id {
	return s.id
}

// Index 全路网统一编号
func (s *Section) Index() int {
	return s.index
}

func (s *Section) Road() *Road {
	return s.road
}

// SOffset 车道段起点的道路坐标
func (s *Section) SOffset() float64 {
	return s.sOffset
}

// Length 以第一条车道的长度作为车道段长度
func (s *Section) Length() float64 {
	if len(s.lanes) == 0 {
		return 0
	}
	return s.lanes[0].Length()
}

func (s *Section) DistanceEnd() float64 {
	return s.sOffset + s.Length()
}

// Covers 车道段是否覆盖道路坐标d，无后继的车道段包含终点
func (s *Section) Covers(d float64) bool {
	if s.sOffset > d {
		return false
	}
	if len(s.successors) == 0 {
		return s.DistanceEnd() >= d
	}
	return s.DistanceEnd() > d
}

// CoversInterval 车道段是否与[start, end]相交
func (s *Section) CoversInterval(start, end float64) bool {
	sectionEnd := s.DistanceEnd()
	if len(s.successors) == 0 {
		return start <= sectionEnd && end >= s.sOffset
	}
	return start < sectionEnd && end >= s.sOffset
}

// Lanes 车道（按OpenDRIVE车道ID升序）
func (s *Section) Lanes() []*Lane {
	return s.lanes
}

// GetLane 根据OpenDRIVE车道ID获取车道，不存在时返回InvalidLane
func (s *Section) GetLane(odId int) *Lane {
	if l, ok := s.laneMap[odId]; ok {
		return l
	}
	return InvalidLane
}

func (s *Section) Predecessors() []*Section {
	return s.predecessors
}

func (s *Section) Successors() []*Section {
	return s.successors
}

// CenterBoundaries 中心线上的车道边界
func (s *Section) CenterBoundaries() []*LaneBoundary {
	return s.centerBoundaries
}

// Road 道路
type Road struct {
	id                entity.Id
	odId              string
	junction          *Junction
	inStreamDirection bool
	sections          []*Section

	predecessor entity.RoadNetworkElement
	successor   entity.RoadNetworkElement

	trafficSigns  []*TrafficSign
	roadMarkings  []*RoadMarking
	trafficLights []*TrafficLight
}

func (r *Road) String() string {
	return fmt.Sprintf("Road{Id:%d, OdId:%s}", r.id, r.odId)
}

func (r *Road) Id() entity.Id {
	return r.id
}

// OdId OpenDRIVE道路ID
func (r *Road) OdId() string {
	return r.odId
}

// Junction 所属路口，不在路口内时为nil
func (r *Road) Junction() *Junction {
	return r.junction
}

func (r *Road) IsInJunction() bool {
	return r.junction != nil
}

// InStreamDirection 方向统一后道路是否保持原方向
func (r *Road) InStreamDirection() bool {
	return r.inStreamDirection
}

func (r *Road) SetInStreamDirection(v bool) {
	r.inStreamDirection = v
}

func (r *Road) Sections() []*Section {
	return r.sections
}

// Length 各车道段长度之和
func (r *Road) Length() float64 {
	return lo.SumBy(r.sections, func(s *Section) float64 { return s.Length() })
}

// DistanceStart 道路起点的道路坐标，恒为0
func (r *Road) DistanceStart() float64 {
	return 0
}

// SectionByDistance 覆盖道路坐标d的车道段，没有时返回nil
func (r *Road) SectionByDistance(d float64) *Section {
	for _, s := range r.sections {
		if s.Covers(d) {
			return s
		}
	}
	return nil
}

func (r *Road) Predecessor() entity.RoadNetworkElement {
	return r.predecessor
}

func (r *Road) Successor() entity.RoadNetworkElement {
	return r.successor
}

func (r *Road) TrafficSigns() []*TrafficSign {
	return r.trafficSigns
}

func (r *Road) RoadMarkings() []*RoadMarking {
	return r.roadMarkings
}

func (r *Road) TrafficLights() []*TrafficLight {
	return r.trafficLights
}
