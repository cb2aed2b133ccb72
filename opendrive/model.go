package opendrive

import (
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

// ContactPoint 道路连接的接触点
type ContactPoint string

const (
	ContactPointUndefined ContactPoint = ""
	ContactPointStart     ContactPoint = "start"
	ContactPointEnd       ContactPoint = "end"
)

// ElementType 道路连接指向的元素类型
type ElementType string

const (
	ElementTypeRoad     ElementType = "road"
	ElementTypeJunction ElementType = "junction"
)

// RoadLink 道路的前驱或后继
type RoadLink struct {
	ElementType  ElementType  `yaml:"element_type" bson:"element_type"`
	ElementId    string       `yaml:"element_id" bson:"element_id"`
	ContactPoint ContactPoint `yaml:"contact_point,omitempty" bson:"contact_point,omitempty"`
}

// Polynomial 三次多项式 a + b·ds + c·ds² + d·ds³
type Polynomial struct {
	A float64 `yaml:"a" bson:"a"`
	B float64 `yaml:"b,omitempty" bson:"b,omitempty"`
	C float64 `yaml:"c,omitempty" bson:"c,omitempty"`
	D float64 `yaml:"d,omitempty" bson:"d,omitempty"`
}

// Value 多项式求值
func (p Polynomial) Value(ds float64) float64 {
	return p.A + ds*(p.B+ds*(p.C+ds*p.D))
}

// LaneWidth 车道宽度记录，SOffset相对所在车道段起点
type LaneWidth struct {
	SOffset    float64 `yaml:"s_offset" bson:"s_offset"`
	Polynomial `yaml:",inline" bson:",inline"`
}

// LaneOffset 车道中心线相对参考线的横向偏移，S为道路坐标
type LaneOffset struct {
	S          float64 `yaml:"s" bson:"s"`
	Polynomial `yaml:",inline" bson:",inline"`
}

// RoadMark 车道外侧边界上的标线
type RoadMark struct {
	SOffset    float64 `yaml:"s_offset" bson:"s_offset"`
	Type       string  `yaml:"type" bson:"type"`
	Color      string  `yaml:"color,omitempty" bson:"color,omitempty"`
	Weight     string  `yaml:"weight,omitempty" bson:"weight,omitempty"`
	Width      float64 `yaml:"width,omitempty" bson:"width,omitempty"`
	LaneChange string  `yaml:"lane_change,omitempty" bson:"lane_change,omitempty"`
}

// IsBold 是否为粗线
func (m RoadMark) IsBold() bool {
	return m.Weight == "bold"
}

// Lane 车道
type Lane struct {
	Id           int         `yaml:"id" bson:"id"`
	Type         string      `yaml:"type" bson:"type"`
	Widths       []LaneWidth `yaml:"widths,omitempty" bson:"widths,omitempty"`
	RoadMarks    []RoadMark  `yaml:"road_marks,omitempty" bson:"road_marks,omitempty"`
	Predecessors []int       `yaml:"predecessors,omitempty" bson:"predecessors,omitempty"`
	Successors   []int       `yaml:"successors,omitempty" bson:"successors,omitempty"`
}

// LaneType 车道类型
func (l *Lane) LaneType() entity.LaneType {
	return entity.ParseLaneType(l.Type)
}

// WidthAt 计算距车道段起点ds处的宽度
func (l *Lane) WidthAt(ds float64) float64 {
	var current *LaneWidth
	for i := range l.Widths {
		if l.Widths[i].SOffset <= ds {
			current = &l.Widths[i]
		}
	}
	if current == nil {
		return 0
	}
	return current.Value(ds - current.SOffset)
}

// LaneSection 车道段
type LaneSection struct {
	S     float64 `yaml:"s" bson:"s"`
	Lanes []*Lane `yaml:"lanes" bson:"lanes"`
}

// GetLane 根据OpenDRIVE车道ID获取车道
func (s *LaneSection) GetLane(id int) (*Lane, bool) {
	return lo.Find(s.Lanes, func(l *Lane) bool { return l.Id == id })
}

// LaneIds 车道ID升序
func (s *LaneSection) LaneIds() []int {
	ids := lo.Map(s.Lanes, func(l *Lane, _ int) int { return l.Id })
	sort.Ints(ids)
	return ids
}

// MaxLaneId 最大车道ID（不含车道时为0）
func (s *LaneSection) MaxLaneId() int {
	return lo.Max(append(s.LaneIds(), 0))
}

// MinLaneId 最小车道ID（不含车道时为0）
func (s *LaneSection) MinLaneId() int {
	return lo.Min(append(s.LaneIds(), 0))
}

// Validity 信号或物体适用的车道范围（闭区间）
type Validity struct {
	FromLane int `yaml:"from_lane" bson:"from_lane"`
	ToLane   int `yaml:"to_lane" bson:"to_lane"`
}

// Dependency 附属信号
type Dependency struct {
	Id   string `yaml:"id" bson:"id"`
	Type string `yaml:"type,omitempty" bson:"type,omitempty"`
}

// Signal 道路上的信号（标志、信号灯、路面标记）
type Signal struct {
	Id           string       `yaml:"id" bson:"id"`
	Name         string       `yaml:"name,omitempty" bson:"name,omitempty"`
	S            float64      `yaml:"s" bson:"s"`
	T            float64      `yaml:"t" bson:"t"`
	ZOffset      float64      `yaml:"z_offset,omitempty" bson:"z_offset,omitempty"`
	HOffset      float64      `yaml:"h_offset,omitempty" bson:"h_offset,omitempty"`
	Pitch        float64      `yaml:"pitch,omitempty" bson:"pitch,omitempty"`
	Roll         float64      `yaml:"roll,omitempty" bson:"roll,omitempty"`
	Orientation  string       `yaml:"orientation,omitempty" bson:"orientation,omitempty"` // "+"、"-"或"none"
	Dynamic      bool         `yaml:"dynamic,omitempty" bson:"dynamic,omitempty"`
	Country      string       `yaml:"country,omitempty" bson:"country,omitempty"`
	Type         string       `yaml:"type" bson:"type"`
	Subtype      string       `yaml:"subtype,omitempty" bson:"subtype,omitempty"`
	Value        *float64     `yaml:"value,omitempty" bson:"value,omitempty"`
	Unit         string       `yaml:"unit,omitempty" bson:"unit,omitempty"`
	Text         string       `yaml:"text,omitempty" bson:"text,omitempty"`
	Width        float64      `yaml:"width,omitempty" bson:"width,omitempty"`
	Height       float64      `yaml:"height,omitempty" bson:"height,omitempty"`
	Validities   []Validity   `yaml:"validities,omitempty" bson:"validities,omitempty"`
	Dependencies []Dependency `yaml:"dependencies,omitempty" bson:"dependencies,omitempty"`
}

// IsValidForLane 信号是否作用于laneId车道
// 有validity时以其为准，否则"+"作用于右侧（负ID）车道，"-"作用于左侧车道，
// 无朝向时按t的符号选择所在一侧，t为0时作用于所有车道
func (s *Signal) IsValidForLane(laneId int) bool {
	if len(s.Validities) > 0 {
		return lo.ContainsBy(s.Validities, func(v Validity) bool {
			from, to := v.FromLane, v.ToLane
			if from > to {
				from, to = to, from
			}
			return from <= laneId && laneId <= to
		})
	}
	switch s.Orientation {
	case "+":
		return laneId < 0
	case "-":
		return laneId > 0
	}
	switch {
	case s.T < 0:
		return laneId < 0
	case s.T > 0:
		return laneId > 0
	}
	return true
}

// Object 道路上的物体
type Object struct {
	Id         string     `yaml:"id" bson:"id"`
	Name       string     `yaml:"name,omitempty" bson:"name,omitempty"`
	Type       string     `yaml:"type" bson:"type"`
	S          float64    `yaml:"s" bson:"s"`
	T          float64    `yaml:"t" bson:"t"`
	ZOffset    float64    `yaml:"z_offset,omitempty" bson:"z_offset,omitempty"`
	Hdg        float64    `yaml:"hdg,omitempty" bson:"hdg,omitempty"`
	Pitch      float64    `yaml:"pitch,omitempty" bson:"pitch,omitempty"`
	Roll       float64    `yaml:"roll,omitempty" bson:"roll,omitempty"`
	Length     float64    `yaml:"length" bson:"length"`
	Width      float64    `yaml:"width" bson:"width"`
	Height     float64    `yaml:"height,omitempty" bson:"height,omitempty"`
	Continuous bool       `yaml:"continuous,omitempty" bson:"continuous,omitempty"` // 沿道路连续（护栏、墙），Length为沿s方向长度
	Validities []Validity `yaml:"validities,omitempty" bson:"validities,omitempty"`
}

// Road 道路
type Road struct {
	Id          string         `yaml:"id" bson:"id"`
	Name        string         `yaml:"name,omitempty" bson:"name,omitempty"`
	JunctionId  string         `yaml:"junction,omitempty" bson:"junction,omitempty"`
	Length      float64        `yaml:"length" bson:"length"`
	Predecessor *RoadLink      `yaml:"predecessor,omitempty" bson:"predecessor,omitempty"`
	Successor   *RoadLink      `yaml:"successor,omitempty" bson:"successor,omitempty"`
	Geometries  []*Geometry    `yaml:"geometries" bson:"geometries"`
	LaneOffsets []LaneOffset   `yaml:"lane_offsets,omitempty" bson:"lane_offsets,omitempty"`
	Sections    []*LaneSection `yaml:"sections" bson:"sections"`
	Signals     []*Signal      `yaml:"signals,omitempty" bson:"signals,omitempty"`
	Objects     []*Object      `yaml:"objects,omitempty" bson:"objects,omitempty"`
}

// InJunction 是否为路口内的连接道路
func (r *Road) InJunction() bool {
	return r.JunctionId != "" && r.JunctionId != "-1"
}

// SectionEnd 第i个车道段的终点s
func (r *Road) SectionEnd(i int) float64 {
	if i+1 < len(r.Sections) {
		return r.Sections[i+1].S
	}
	return r.Length
}

// SectionAt 获取覆盖s的车道段下标，s超出道路范围时返回-1
func (r *Road) SectionAt(s float64) int {
	if s < 0 || s > r.Length || len(r.Sections) == 0 {
		return -1
	}
	index := 0
	for i, sec := range r.Sections {
		if sec.S <= s {
			index = i
		}
	}
	return index
}

// LaneOffsetAt 道路s处的车道偏移
func (r *Road) LaneOffsetAt(s float64) float64 {
	var current *LaneOffset
	for i := range r.LaneOffsets {
		if r.LaneOffsets[i].S <= s {
			current = &r.LaneOffsets[i]
		}
	}
	if current == nil {
		return 0
	}
	return current.Value(s - current.S)
}

// GeometryAt 获取覆盖s的参考线几何，找不到时返回nil
func (r *Road) GeometryAt(s float64) *Geometry {
	for i, g := range r.Geometries {
		end := g.S + g.Length
		if i+1 < len(r.Geometries) {
			end = r.Geometries[i+1].S
		}
		last := i+1 == len(r.Geometries)
		if g.S <= s && (s < end || last && s <= end+1e-6) {
			return g
		}
	}
	return nil
}

// LaneLink 路口连接中的车道对应关系
type LaneLink struct {
	From int `yaml:"from" bson:"from"`
	To   int `yaml:"to" bson:"to"`
}

// Connection 路口内的连接
type Connection struct {
	Id             string       `yaml:"id" bson:"id"`
	IncomingRoad   string       `yaml:"incoming_road" bson:"incoming_road"`
	ConnectingRoad string       `yaml:"connecting_road" bson:"connecting_road"`
	ContactPoint   ContactPoint `yaml:"contact_point" bson:"contact_point"`
	LaneLinks      []LaneLink   `yaml:"lane_links,omitempty" bson:"lane_links,omitempty"`
}

// Priority 路口连接道路之间的优先关系
type Priority struct {
	High string `yaml:"high" bson:"high"`
	Low  string `yaml:"low" bson:"low"`
}

// Junction 路口
type Junction struct {
	Id          string        `yaml:"id" bson:"id"`
	Name        string        `yaml:"name,omitempty" bson:"name,omitempty"`
	Connections []*Connection `yaml:"connections" bson:"connections"`
	Priorities  []Priority    `yaml:"priorities,omitempty" bson:"priorities,omitempty"`
}

// ControlState 相位中某个信号灯的状态
type ControlState struct {
	SignalId string `yaml:"signal_id" bson:"signal_id"`
	State    string `yaml:"state" bson:"state"`
}

// Phase 信号控制器相位
type Phase struct {
	Duration float64        `yaml:"duration" bson:"duration"` // 秒
	States   []ControlState `yaml:"states" bson:"states"`
}

// Controller 信号控制器
type Controller struct {
	Id     string  `yaml:"id" bson:"id"`
	Name   string  `yaml:"name,omitempty" bson:"name,omitempty"`
	Delay  float64 `yaml:"delay,omitempty" bson:"delay,omitempty"` // 秒
	Phases []Phase `yaml:"phases" bson:"phases"`
}

// Header 路网描述头
type Header struct {
	Name    string `yaml:"name,omitempty" bson:"name,omitempty"`
	Country string `yaml:"country,omitempty" bson:"country,omitempty"`
}

// Scenery 已解析的路网描述
type Scenery struct {
	Header      Header        `yaml:"header,omitempty" bson:"header,omitempty"`
	Roads       []*Road       `yaml:"roads" bson:"roads"`
	Junctions   []*Junction   `yaml:"junctions,omitempty" bson:"junctions,omitempty"`
	Controllers []*Controller `yaml:"controllers,omitempty" bson:"controllers,omitempty"`

	roadIndex     map[string]*Road
	junctionIndex map[string]*Junction
}

// BuildIndex 建立道路与路口的ID索引，修改Roads或Junctions后需重新调用
func (s *Scenery) BuildIndex() {
	s.roadIndex = lo.SliceToMap(s.Roads, func(r *Road) (string, *Road) { return r.Id, r })
	s.junctionIndex = lo.SliceToMap(s.Junctions, func(j *Junction) (string, *Junction) { return j.Id, j })
	if len(s.roadIndex) != len(s.Roads) {
		log.Warnf("scenery %q has duplicated road ids", s.Header.Name)
	}
}

// GetRoad 根据ID获取道路
func (s *Scenery) GetRoad(id string) (*Road, bool) {
	if s.roadIndex == nil {
		s.BuildIndex()
	}
	r, ok := s.roadIndex[id]
	return r, ok
}

// GetJunction 根据ID获取路口
func (s *Scenery) GetJunction(id string) (*Junction, bool) {
	if s.junctionIndex == nil {
		s.BuildIndex()
	}
	j, ok := s.junctionIndex[id]
	return j, ok
}
