package scenery

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// pendingSignal 等待挂接到主标志上的附属标志
type pendingSignal struct {
	road   *opendrive.Road
	signal *opendrive.Signal
}

// CreateRoadSignals 创建交通标志、信号灯与路面标记
// 算法说明：
// 1. 带依赖的信号为附属标志，暂存到所有主信号创建完成之后处理
// 2. 主信号按路面标记、信号灯、交通标志的顺序分类，不支持的标志类型记录警告后跳过
// 3. 信号挂到所在车道段中所有IsValidForLane成立的车道上
// 4. 附属标志挂到其依赖的主标志上，主标志不存在或不是交通标志时记录警告
func (c *Converter) CreateRoadSignals() error {
	c.supplementary = c.supplementary[:0]
	for _, road := range c.scenery.Roads {
		wr, err := c.worldRoad(road.Id)
		if err != nil {
			return err
		}
		for _, signal := range road.Signals {
			if len(signal.Dependencies) > 0 {
				c.supplementary = append(c.supplementary, pendingSignal{road: road, signal: signal})
				continue
			}
			if err := c.createSignal(road, wr, signal); err != nil {
				return fmt.Errorf("signal %s: %w", signal.Id, err)
			}
		}
	}
	for _, pending := range c.supplementary {
		if err := c.attachSupplementary(pending.road, pending.signal); err != nil {
			return fmt.Errorf("supplementary sign %s: %w", pending.signal.Id, err)
		}
	}
	log.Infof("created %d traffic signs, %d traffic lights, %d road markings",
		len(c.world.TrafficSigns()), len(c.world.TrafficLights()), len(c.world.RoadMarkings()))
	return nil
}

// signalPose 信号的世界位姿，朝向"-"时反向
func (c *Converter) signalPose(road *opendrive.Road, signal *opendrive.Signal) (worlddata.SignalPose, error) {
	p, hdg, err := c.RoadCoord2WorldCoord(road, signal.S, signal.T)
	if err != nil {
		return worlddata.SignalPose{}, err
	}
	yaw := hdg + signal.HOffset
	if signal.Orientation != "+" {
		yaw += math.Pi
	}
	p.Z = signal.ZOffset
	return worlddata.SignalPose{
		Position: p,
		Yaw:      normalizeAngle(yaw),
		Width:    signal.Width,
		Height:   signal.Height,
	}, nil
}

func (c *Converter) country(signal *opendrive.Signal) string {
	switch {
	case signal.Country != "":
		return signal.Country
	case c.scenery.Header.Country != "":
		return c.scenery.Header.Country
	}
	return defaultCountry
}

func (c *Converter) createSignal(road *opendrive.Road, wr *worlddata.Road, signal *opendrive.Signal) error {
	index := road.SectionAt(signal.S)
	if index < 0 {
		log.Warnf("signal %s at s=%.3f is outside every section of road %s", signal.Id, signal.S, road.Id)
		return nil
	}
	pose, err := c.signalPose(road, signal)
	if err != nil {
		return err
	}
	country := c.country(signal)
	lanes := make([]*worlddata.Lane, 0)
	for _, lane := range road.Sections[index].Lanes {
		if lane.Id != 0 && signal.IsValidForLane(lane.Id) {
			lanes = append(lanes, c.lanes[lane])
		}
	}

	if typ, ok := tableFor(country).roadMarkings[signal.Type]; ok {
		marking := c.world.AddRoadMarking(wr, worlddata.NewRoadMarking(signal.Id, signal.S, typ, signal.Text, pose))
		for _, lane := range lanes {
			lane.AddRoadMarking(marking)
		}
		return nil
	}
	if isTrafficLight(signal.Type) {
		typ, ok := classifyTrafficLight(signal.Type, signal.Subtype)
		if !ok {
			log.Warnf("unsupported traffic light type %s-%s (id: %s)", signal.Type, signal.Subtype, signal.Id)
			return nil
		}
		light := c.world.AddTrafficLight(wr, worlddata.NewTrafficLight(signal.Id, signal.S, typ, pose))
		for _, lane := range lanes {
			lane.AddTrafficLight(light)
		}
		return nil
	}
	spec, ok := classifySign(country, signal.Type, signal.Subtype, signal.Value, signal.Unit)
	if !ok {
		log.Warnf("unsupported traffic sign type %s-%s (id: %s, country: %s)", signal.Type, signal.Subtype, signal.Id, country)
		return nil
	}
	sign := c.world.AddTrafficSign(wr, worlddata.NewTrafficSign(signal.Id, signal.S, spec.typ, spec.value, spec.unit, signal.Text, pose))
	for _, lane := range lanes {
		lane.AddTrafficSign(sign)
	}
	return nil
}

func (c *Converter) attachSupplementary(road *opendrive.Road, signal *opendrive.Signal) error {
	pose, err := c.signalPose(road, signal)
	if err != nil {
		return err
	}
	for _, dependency := range signal.Dependencies {
		parent, ok := c.world.GetTrafficSignByOdId(dependency.Id)
		if !ok {
			if _, isLight := c.world.GetTrafficLightByOdId(dependency.Id); isLight {
				log.Warnf("parent %s of supplementary sign %s is not a traffic sign", dependency.Id, signal.Id)
			} else {
				log.Warnf("parent %s of supplementary sign %s not found", dependency.Id, signal.Id)
			}
			continue
		}
		if signal.Type != supplementaryDistanceIndication {
			log.Warnf("unsupported supplementary sign type %s (id: %s)", signal.Type, signal.Id)
			continue
		}
		value, unit := 0.0, entity.TrafficSignUnitMeter
		if signal.Value != nil {
			converted, u, ok := convertUnit(*signal.Value, signal.Unit)
			if !ok {
				log.Warnf("unsupported unit %q of supplementary sign %s", signal.Unit, signal.Id)
				continue
			}
			value = converted
			if u != entity.TrafficSignUnitNone {
				unit = u
			}
		}
		parent.AddSupplementarySign(worlddata.SupplementarySign{
			OdId:  signal.Id,
			Type:  entity.TrafficSignDistanceIndication,
			Value: value,
			Unit:  unit,
			Text:  signal.Text,
			Pose:  pose,
		})
	}
	return nil
}
