package scenery

import (
	"strconv"

	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

// signSpec 交通标志的类型与数值（已换算为国际单位）
type signSpec struct {
	typ   entity.TrafficSignType
	value float64
	unit  entity.TrafficSignUnit
}

// valuedSign 数值由信号value或subtype给出的标志
type valuedSign struct {
	typ         entity.TrafficSignType
	defaultUnit string
}

// signalTable 一个国家的信号类型映射
type signalTable struct {
	plain        map[string]entity.TrafficSignType
	valued       map[string]valuedSign
	predefined   map[string]map[string]signSpec
	roadMarkings map[string]entity.RoadMarkingType
}

const (
	kmh = 1 / 3.6
	mph = 0.44704
)

var signalTables = map[string]signalTable{
	"DE": {
		plain: map[string]entity.TrafficSignType{
			"205":   entity.TrafficSignGiveWay,
			"206":   entity.TrafficSignStop,
			"267":   entity.TrafficSignDoNotEnter,
			"270.1": entity.TrafficSignEnvironmentalZoneBegin,
			"270.2": entity.TrafficSignEnvironmentalZoneEnd,
			"276":   entity.TrafficSignOvertakingBanBegin,
			"277":   entity.TrafficSignOvertakingBanTrucksBegin,
			"280":   entity.TrafficSignOvertakingBanEnd,
			"281":   entity.TrafficSignOvertakingBanTrucksEnd,
			"282":   entity.TrafficSignEndOfAllRestrictions,
			"301":   entity.TrafficSignRightOfWayNextIntersection,
			"306":   entity.TrafficSignRightOfWayBegin,
			"307":   entity.TrafficSignRightOfWayEnd,
			"310":   entity.TrafficSignTownBegin,
			"311":   entity.TrafficSignTownEnd,
			"325.1": entity.TrafficSignTrafficCalmedDistrictBegin,
			"325.2": entity.TrafficSignTrafficCalmedDistrictEnd,
			"330.1": entity.TrafficSignHighwayBegin,
			"330.2": entity.TrafficSignHighwayEnd,
			"333":   entity.TrafficSignHighwayExit,
			"448":   entity.TrafficSignHighwayAnnouncement,
			"-1":    entity.TrafficSignOther,
			"none":  entity.TrafficSignOther,
		},
		valued: map[string]valuedSign{
			"274": {entity.TrafficSignMaximumSpeedLimit, "km/h"},
			"275": {entity.TrafficSignMinimumSpeedLimit, "km/h"},
			"278": {entity.TrafficSignEndOfMaximumSpeedLimit, "km/h"},
			"279": {entity.TrafficSignEndOfMinimumSpeedLimit, "km/h"},
		},
		predefined: map[string]map[string]signSpec{
			"274.1": {
				"":   {entity.TrafficSignSpeedLimitZoneBegin, 30 * kmh, entity.TrafficSignUnitMeterPerSecond},
				"20": {entity.TrafficSignSpeedLimitZoneBegin, 20 * kmh, entity.TrafficSignUnitMeterPerSecond},
			},
			"274.2": {
				"":   {entity.TrafficSignSpeedLimitZoneEnd, 30 * kmh, entity.TrafficSignUnitMeterPerSecond},
				"20": {entity.TrafficSignSpeedLimitZoneEnd, 20 * kmh, entity.TrafficSignUnitMeterPerSecond},
			},
			"450": {
				"50": {entity.TrafficSignPoleExit, 100, entity.TrafficSignUnitMeter},
				"51": {entity.TrafficSignPoleExit, 200, entity.TrafficSignUnitMeter},
				"52": {entity.TrafficSignPoleExit, 300, entity.TrafficSignUnitMeter},
			},
			"531": {
				"10": {entity.TrafficSignAnnounceRightLaneEnd, 1, entity.TrafficSignUnitNone},
				"11": {entity.TrafficSignAnnounceRightLaneEnd, 2, entity.TrafficSignUnitNone},
				"12": {entity.TrafficSignAnnounceRightLaneEnd, 3, entity.TrafficSignUnitNone},
				"13": {entity.TrafficSignAnnounceRightLaneEnd, 4, entity.TrafficSignUnitNone},
				"20": {entity.TrafficSignAnnounceLeftLaneEnd, 1, entity.TrafficSignUnitNone},
				"21": {entity.TrafficSignAnnounceLeftLaneEnd, 2, entity.TrafficSignUnitNone},
				"22": {entity.TrafficSignAnnounceLeftLaneEnd, 3, entity.TrafficSignUnitNone},
				"23": {entity.TrafficSignAnnounceLeftLaneEnd, 4, entity.TrafficSignUnitNone},
			},
		},
		roadMarkings: map[string]entity.RoadMarkingType{
			"293":       entity.RoadMarkingPedestrianCrossing,
			"294":       entity.RoadMarkingStopLine,
			"1.000.003": entity.RoadMarkingPedestrianCrossing,
		},
	},
	"US": {
		plain: map[string]entity.TrafficSignType{
			"R1-1": entity.TrafficSignStop,
			"R1-2": entity.TrafficSignGiveWay,
			"R4-1": entity.TrafficSignOvertakingBanBegin,
			"R5-1": entity.TrafficSignDoNotEnter,
			"E5-1": entity.TrafficSignHighwayExit,
		},
		valued: map[string]valuedSign{
			"R2-1": {entity.TrafficSignMaximumSpeedLimit, "mph"},
		},
	},
	"CN": {
		plain: map[string]entity.TrafficSignType{
			"HighwayExit-50d":         entity.TrafficSignHighwayExit,
			"AnnounceHighwayExit-50b": entity.TrafficSignHighwayAnnouncement,
			"AnnounceHighwayExit-50c": entity.TrafficSignHighwayAnnouncement,
		},
		valued: map[string]valuedSign{
			"SpeedLimit-38":      {entity.TrafficSignMaximumSpeedLimit, "km/h"},
			"EndOfSpeedLimit-39": {entity.TrafficSignEndOfMaximumSpeedLimit, "km/h"},
			"HighwayExitPole-55": {entity.TrafficSignPoleExit, "m"},
		},
		predefined: map[string]map[string]signSpec{
			"EndofLane-32": {
				"a": {entity.TrafficSignAnnounceRightLaneEnd, 2, entity.TrafficSignUnitNone},
				"b": {entity.TrafficSignAnnounceRightLaneEnd, 3, entity.TrafficSignUnitNone},
				"c": {entity.TrafficSignAnnounceLeftLaneEnd, 2, entity.TrafficSignUnitNone},
				"d": {entity.TrafficSignAnnounceLeftLaneEnd, 3, entity.TrafficSignUnitNone},
			},
		},
	},
}

// 信号灯类型与国家无关
var (
	threeLightIcons = map[string]map[string]entity.TrafficLightType{
		"1.000.001": {"": entity.TrafficLightThreeLights, "-1": entity.TrafficLightThreeLights},
		"1.000.011": {
			"10": entity.TrafficLightThreeLightsLeft,
			"20": entity.TrafficLightThreeLightsRight,
			"30": entity.TrafficLightThreeLightsStraight,
			"40": entity.TrafficLightThreeLightsLeftStraight,
			"50": entity.TrafficLightThreeLightsRightStraight,
		},
	}
	twoLightIcons = map[string]entity.TrafficLightType{
		"1.000.002": entity.TrafficLightTwoLightsPedestrian,
		"1.000.007": entity.TrafficLightTwoLightsPedestrianBicycle,
		"1.000.013": entity.TrafficLightTwoLightsBicycle,
	}
)

// 附属标志：距离指示
const supplementaryDistanceIndication = "1004"

func tableFor(country string) signalTable {
	if t, ok := signalTables[country]; ok {
		return t
	}
	return signalTables[defaultCountry]
}

// convertUnit 将带单位的数值换算为国际单位
func convertUnit(value float64, unit string) (float64, entity.TrafficSignUnit, bool) {
	switch unit {
	case "km/h":
		return value * kmh, entity.TrafficSignUnitMeterPerSecond, true
	case "mph":
		return value * mph, entity.TrafficSignUnitMeterPerSecond, true
	case "m/s":
		return value, entity.TrafficSignUnitMeterPerSecond, true
	case "km":
		return value * 1000, entity.TrafficSignUnitMeter, true
	case "m":
		return value, entity.TrafficSignUnitMeter, true
	case "ft":
		return value * 0.3048, entity.TrafficSignUnitMeter, true
	case "mile":
		return value * 1609.344, entity.TrafficSignUnitMeter, true
	case "":
		return value, entity.TrafficSignUnitNone, true
	}
	return 0, entity.TrafficSignUnitNone, false
}

// classifySign 按国家映射表解析交通标志
// 算法说明：依次查找无数值标志、带数值标志（优先使用value与unit，否则解析subtype）、
// 由subtype决定数值的预定义标志
// 返回：不支持的类型或数值返回false
func classifySign(country, typ, subtype string, value *float64, unit string) (signSpec, bool) {
	table := tableFor(country)
	if t, ok := table.plain[typ]; ok {
		return signSpec{typ: t}, true
	}
	if v, ok := table.valued[typ]; ok {
		raw, rawUnit := 0.0, unit
		switch {
		case value != nil:
			raw = *value
			if rawUnit == "" {
				rawUnit = v.defaultUnit
			}
		default:
			parsed, err := strconv.ParseFloat(subtype, 64)
			if err != nil {
				return signSpec{}, false
			}
			raw, rawUnit = parsed, v.defaultUnit
		}
		converted, u, ok := convertUnit(raw, rawUnit)
		if !ok {
			return signSpec{}, false
		}
		return signSpec{typ: v.typ, value: converted, unit: u}, true
	}
	if bySubtype, ok := table.predefined[typ]; ok {
		spec, ok := bySubtype[subtype]
		return spec, ok
	}
	return signSpec{}, false
}

func classifyTrafficLight(typ, subtype string) (entity.TrafficLightType, bool) {
	if bySubtype, ok := threeLightIcons[typ]; ok {
		t, ok := bySubtype[subtype]
		if !ok && typ == "1.000.001" {
			return entity.TrafficLightThreeLights, true
		}
		return t, ok
	}
	t, ok := twoLightIcons[typ]
	return t, ok
}

func isTrafficLight(typ string) bool {
	_, three := threeLightIcons[typ]
	_, two := twoLightIcons[typ]
	return three || two
}
