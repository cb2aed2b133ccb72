package entity

import "fmt"

// TrafficSignType 交通标志类型（只列出世界模型关心的类型）
type TrafficSignType int

const (
	TrafficSignUndefined TrafficSignType = iota
	TrafficSignOther
	TrafficSignGiveWay
	TrafficSignStop
	TrafficSignDoNotEnter
	TrafficSignEnvironmentalZoneBegin
	TrafficSignEnvironmentalZoneEnd
	TrafficSignMaximumSpeedLimit
	TrafficSignEndOfMaximumSpeedLimit
	TrafficSignSpeedLimitZoneBegin
	TrafficSignSpeedLimitZoneEnd
	TrafficSignMinimumSpeedLimit
	TrafficSignEndOfMinimumSpeedLimit
	TrafficSignOvertakingBanBegin
	TrafficSignOvertakingBanEnd
	TrafficSignOvertakingBanTrucksBegin
	TrafficSignOvertakingBanTrucksEnd
	TrafficSignEndOfAllRestrictions
	TrafficSignRightOfWayBegin
	TrafficSignRightOfWayEnd
	TrafficSignRightOfWayNextIntersection
	TrafficSignTownBegin
	TrafficSignTownEnd
	TrafficSignTrafficCalmedDistrictBegin
	TrafficSignTrafficCalmedDistrictEnd
	TrafficSignHighwayBegin
	TrafficSignHighwayEnd
	TrafficSignHighwayExit
	TrafficSignHighwayAnnouncement
	TrafficSignPoleExit
	TrafficSignAnnounceRightLaneEnd
	TrafficSignAnnounceLeftLaneEnd
	TrafficSignDistanceIndication
)

// TrafficSignUnit 交通标志数值的单位（已换算为国际单位）
type TrafficSignUnit int

const (
	TrafficSignUnitNone TrafficSignUnit = iota
	TrafficSignUnitMeterPerSecond
	TrafficSignUnitMeter
)

// RoadMarkingType 路面标记类型
type RoadMarkingType int

const (
	RoadMarkingUndefined RoadMarkingType = iota
	RoadMarkingPedestrianCrossing
	RoadMarkingStopLine
)

// TrafficLightType 信号灯类型
type TrafficLightType int

const (
	TrafficLightUndefined TrafficLightType = iota
	TrafficLightThreeLights
	TrafficLightThreeLightsLeft
	TrafficLightThreeLightsRight
	TrafficLightThreeLightsStraight
	TrafficLightThreeLightsLeftStraight
	TrafficLightThreeLightsRightStraight
	TrafficLightTwoLights
	TrafficLightTwoLightsPedestrian
	TrafficLightTwoLightsBicycle
	TrafficLightTwoLightsPedestrianBicycle
)

// Bulbs 信号灯灯头数量
func (t TrafficLightType) Bulbs() int {
	switch t {
	case TrafficLightThreeLights, TrafficLightThreeLightsLeft, TrafficLightThreeLightsRight,
		TrafficLightThreeLightsStraight, TrafficLightThreeLightsLeftStraight, TrafficLightThreeLightsRightStraight:
		return 3
	case TrafficLightTwoLights, TrafficLightTwoLightsPedestrian, TrafficLightTwoLightsBicycle,
		TrafficLightTwoLightsPedestrianBicycle:
		return 2
	}
	return 0
}

// TrafficLightState 信号灯状态
type TrafficLightState int

const (
	TrafficLightOff TrafficLightState = iota
	TrafficLightRed
	TrafficLightYellow
	TrafficLightGreen
	TrafficLightRedYellow
	TrafficLightYellowFlashing
	TrafficLightUnknown
)

var trafficLightStateNames = map[TrafficLightState]string{
	TrafficLightOff:            "off",
	TrafficLightRed:            "red",
	TrafficLightYellow:         "yellow",
	TrafficLightGreen:          "green",
	TrafficLightRedYellow:      "red yellow",
	TrafficLightYellowFlashing: "yellow flashing",
}

func (s TrafficLightState) String() string {
	if name, ok := trafficLightStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TrafficLightState(%d)", int(s))
}

// ParseTrafficLightState 解析信号控制器相位中的状态字符串
func ParseTrafficLightState(s string) (TrafficLightState, error) {
	for state, name := range trafficLightStateNames {
		if name == s {
			return state, nil
		}
	}
	return TrafficLightUnknown, fmt.Errorf("unknown traffic light state %q", s)
}

// TrafficSignEntity 查询返回的交通标志
type TrafficSignEntity struct {
	Id                    Id
	Type                  TrafficSignType
	DistanceToStartOfRoad float64
	RelativeDistance      float64
	Value                 float64
	Unit                  TrafficSignUnit
	Text                  string
	SupplementarySigns    []TrafficSignEntity
}

// RoadMarkingEntity 查询返回的路面标记
type RoadMarkingEntity struct {
	Id                    Id
	Type                  RoadMarkingType
	DistanceToStartOfRoad float64
	RelativeDistance      float64
	Text                  string
}

// TrafficLightEntity 查询返回的信号灯
type TrafficLightEntity struct {
	Id               Id
	Type             TrafficLightType
	State            TrafficLightState
	RelativeDistance float64
}

// LaneMarkingEntity 查询返回的车道边界线
type LaneMarkingEntity struct {
	RelativeStartDistance float64
	Type                  LaneMarkingType
	Width                 float64
	Color                 RoadMarkColor
}
