package entity

import (
	"fmt"
	"math"
)

// 方位常量
const (
	LEFT  = 0 // 左侧
	RIGHT = 1 // 右侧
)

// Id 世界中所有实体的唯一标识
type Id uint64

// InvalidId 无效ID
const InvalidId Id = math.MaxUint64

// Side 车道标线查询时的左右侧
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "Left"
	}
	return "Right"
}

// LaneType 车道类型（与OpenDRIVE一致）
type LaneType int

const (
	LaneTypeUndefined LaneType = iota
	LaneTypeNone
	LaneTypeDriving
	LaneTypeStop
	LaneTypeShoulder
	LaneTypeBiking
	LaneTypeSidewalk
	LaneTypeBorder
	LaneTypeRestricted
	LaneTypeParking
	LaneTypeBidirectional
	LaneTypeMedian
	LaneTypeSpecial1
	LaneTypeSpecial2
	LaneTypeSpecial3
	LaneTypeRoadworks
	LaneTypeTram
	LaneTypeRail
	LaneTypeEntry
	LaneTypeExit
	LaneTypeOffRamp
	LaneTypeOnRamp
	LaneTypeCurb
	LaneTypeConnectingRamp
)

var laneTypeNames = map[LaneType]string{
	LaneTypeUndefined:      "undefined",
	LaneTypeNone:           "none",
	LaneTypeDriving:        "driving",
	LaneTypeStop:           "stop",
	LaneTypeShoulder:       "shoulder",
	LaneTypeBiking:         "biking",
	LaneTypeSidewalk:       "sidewalk",
	LaneTypeBorder:         "border",
	LaneTypeRestricted:     "restricted",
	LaneTypeParking:        "parking",
	LaneTypeBidirectional:  "bidirectional",
	LaneTypeMedian:         "median",
	LaneTypeSpecial1:       "special1",
	LaneTypeSpecial2:       "special2",
	LaneTypeSpecial3:       "special3",
	LaneTypeRoadworks:      "roadWorks",
	LaneTypeTram:           "tram",
	LaneTypeRail:           "rail",
	LaneTypeEntry:          "entry",
	LaneTypeExit:           "exit",
	LaneTypeOffRamp:        "offRamp",
	LaneTypeOnRamp:         "onRamp",
	LaneTypeCurb:           "curb",
	LaneTypeConnectingRamp: "connectingRamp",
}

func (t LaneType) String() string {
	if name, ok := laneTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("LaneType(%d)", int(t))
}

// ParseLaneType 由OpenDRIVE字符串解析车道类型，未知类型返回Undefined
func ParseLaneType(s string) LaneType {
	for t, name := range laneTypeNames {
		if name == s {
			return t
		}
	}
	return LaneTypeUndefined
}

// RoadMarkType 道路标线类型（OpenDRIVE roadMark@type）
type RoadMarkType int

const (
	RoadMarkTypeNone RoadMarkType = iota
	RoadMarkTypeSolid
	RoadMarkTypeBroken
	RoadMarkTypeSolidSolid
	RoadMarkTypeSolidBroken
	RoadMarkTypeBrokenSolid
	RoadMarkTypeBrokenBroken
	RoadMarkTypeBottsDots
	RoadMarkTypeGrass
	RoadMarkTypeCurb
	RoadMarkTypeUndefined
)

var roadMarkTypeNames = map[RoadMarkType]string{
	RoadMarkTypeNone:         "none",
	RoadMarkTypeSolid:        "solid",
	RoadMarkTypeBroken:       "broken",
	RoadMarkTypeSolidSolid:   "solid solid",
	RoadMarkTypeSolidBroken:  "solid broken",
	RoadMarkTypeBrokenSolid:  "broken solid",
	RoadMarkTypeBrokenBroken: "broken broken",
	RoadMarkTypeBottsDots:    "botts dots",
	RoadMarkTypeGrass:        "grass",
	RoadMarkTypeCurb:         "curb",
	RoadMarkTypeUndefined:    "undefined",
}

func (t RoadMarkType) String() string {
	if name, ok := roadMarkTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("RoadMarkType(%d)", int(t))
}

// ParseRoadMarkType 由OpenDRIVE字符串解析标线类型
func ParseRoadMarkType(s string) RoadMarkType {
	for t, name := range roadMarkTypeNames {
		if name == s {
			return t
		}
	}
	return RoadMarkTypeUndefined
}

// IsDouble 是否为双线标线
func (t RoadMarkType) IsDouble() bool {
	switch t {
	case RoadMarkTypeSolidSolid, RoadMarkTypeSolidBroken, RoadMarkTypeBrokenSolid, RoadMarkTypeBrokenBroken:
		return true
	}
	return false
}

// Halves 将双线标线拆分为左右两条单线
func (t RoadMarkType) Halves() (left, right LaneMarkingType) {
	switch t {
	case RoadMarkTypeSolidSolid:
		return LaneMarkingSolid, LaneMarkingSolid
	case RoadMarkTypeSolidBroken:
		return LaneMarkingSolid, LaneMarkingBroken
	case RoadMarkTypeBrokenSolid:
		return LaneMarkingBroken, LaneMarkingSolid
	case RoadMarkTypeBrokenBroken:
		return LaneMarkingBroken, LaneMarkingBroken
	}
	single := t.Single()
	return single, single
}

// Single 单线标线对应的车道标线类型
func (t RoadMarkType) Single() LaneMarkingType {
	switch t {
	case RoadMarkTypeSolid:
		return LaneMarkingSolid
	case RoadMarkTypeBroken:
		return LaneMarkingBroken
	case RoadMarkTypeBottsDots:
		return LaneMarkingBottsDots
	case RoadMarkTypeGrass:
		return LaneMarkingGrass
	case RoadMarkTypeCurb:
		return LaneMarkingCurb
	}
	return LaneMarkingNone
}

// RoadMarkColor 标线颜色
type RoadMarkColor int

const (
	RoadMarkColorUndefined RoadMarkColor = iota
	RoadMarkColorWhite
	RoadMarkColorYellow
	RoadMarkColorRed
	RoadMarkColorBlue
	RoadMarkColorGreen
	RoadMarkColorOrange
)

// ParseRoadMarkColor OpenDRIVE中standard等价于white
func ParseRoadMarkColor(s string) RoadMarkColor {
	switch s {
	case "standard", "white":
		return RoadMarkColorWhite
	case "yellow":
		return RoadMarkColorYellow
	case "red":
		return RoadMarkColorRed
	case "blue":
		return RoadMarkColorBlue
	case "green":
		return RoadMarkColorGreen
	case "orange":
		return RoadMarkColorOrange
	}
	return RoadMarkColorUndefined
}

// LaneMarkingType 车道边界线（查询结果中）的类型
type LaneMarkingType int

const (
	LaneMarkingNone LaneMarkingType = iota
	LaneMarkingSolid
	LaneMarkingBroken
	LaneMarkingSolidSolid
	LaneMarkingSolidBroken
	LaneMarkingBrokenSolid
	LaneMarkingBrokenBroken
	LaneMarkingGrass
	LaneMarkingBottsDots
	LaneMarkingCurb
)

func (t LaneMarkingType) String() string {
	switch t {
	case LaneMarkingNone:
		return "None"
	case LaneMarkingSolid:
		return "Solid"
	case LaneMarkingBroken:
		return "Broken"
	case LaneMarkingSolidSolid:
		return "Solid_Solid"
	case LaneMarkingSolidBroken:
		return "Solid_Broken"
	case LaneMarkingBrokenSolid:
		return "Broken_Solid"
	case LaneMarkingBrokenBroken:
		return "Broken_Broken"
	case LaneMarkingGrass:
		return "Grass"
	case LaneMarkingBottsDots:
		return "Botts_Dots"
	case LaneMarkingCurb:
		return "Curb"
	}
	return fmt.Sprintf("LaneMarkingType(%d)", int(t))
}

// BoundarySide 车道边界在双线中的位置
type BoundarySide int

const (
	BoundarySingle BoundarySide = iota
	BoundaryLeft
	BoundaryRight
)

// ObjectKind 世界对象的种类标签，用于按类型过滤
type ObjectKind int

const (
	ObjectKindMoving ObjectKind = iota
	ObjectKindStationary
)

func (k ObjectKind) String() string {
	if k == ObjectKindMoving {
		return "MovingObject"
	}
	return "StationaryObject"
}

// RoadCoordinate 道路坐标(s, t, yaw)
type RoadCoordinate struct {
	S   float64 // 纵向距离
	T   float64 // 横向偏移，左正右负
	Yaw float64 // 相对参考线切向的航向角
}

// GlobalRoadPosition 某条道路上的车道坐标
type GlobalRoadPosition struct {
	RoadId       string
	LaneId       int
	RoadPosition RoadCoordinate
}

// GlobalRoadPositions 道路ID -> 道路坐标
type GlobalRoadPositions map[string]GlobalRoadPosition

// RoadInterval 对象在一条道路上覆盖的范围
type RoadInterval struct {
	Lanes []int
	SMin  GlobalRoadPosition
	SMax  GlobalRoadPosition
	TMin  GlobalRoadPosition
	TMax  GlobalRoadPosition
}

// RoadIntervals 道路ID -> 覆盖范围
type RoadIntervals map[string]RoadInterval

// ObjectPosition 对象的完整道路定位结果
type ObjectPosition struct {
	ReferencePoint  GlobalRoadPositions
	MainLocatePoint GlobalRoadPositions
	TouchedRoads    RoadIntervals
}

// Position 世界坐标系下的位姿
type Position struct {
	X         float64
	Y         float64
	Yaw       float64
	Curvature float64
}

// RelativePoint 对象相对车道的极值点
type RelativePoint int

const (
	RelativePointRearmost RelativePoint = iota
	RelativePointFrontmost
	RelativePointLeftmost
	RelativePointRightmost
)

// RoadNetworkElementType 路网元素类型
type RoadNetworkElementType int

const (
	RoadNetworkElementNone RoadNetworkElementType = iota
	RoadNetworkElementRoad
	RoadNetworkElementJunction
)

// RoadNetworkElement 道路前驱/后继元素
type RoadNetworkElement struct {
	Type RoadNetworkElementType
	Id   string
}
