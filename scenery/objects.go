package scenery

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

const crosswalkObjectType = "crosswalk"

// CreateObjects 创建道路上的静止物体
// 算法说明：
// 1. 不在任何车道段上的物体记录警告后跳过
// 2. crosswalk类型转换为人行横道路面标记，挂到所在车道段的车道上
// 3. 连续物体按车道几何节点分段，每段生成一个静止物体
// 4. 其余物体在(s, t)处生成，朝向为参考线航向加物体自身航向
func (c *Converter) CreateObjects() error {
	for _, road := range c.scenery.Roads {
		wr, err := c.worldRoad(road.Id)
		if err != nil {
			return err
		}
		for _, o := range road.Objects {
			index := road.SectionAt(o.S)
			if index < 0 {
				log.Warnf("object %s at s=%.3f is outside every section of road %s", o.Id, o.S, road.Id)
				continue
			}
			sec := road.Sections[index]
			switch {
			case o.Type == crosswalkObjectType:
				err = c.createCrosswalk(road, wr, sec, o)
			case o.Continuous:
				err = c.createContinuousObject(road, o)
			default:
				err = c.createPointObject(road, o)
			}
			if err != nil {
				return fmt.Errorf("object %s: %w", o.Id, err)
			}
		}
	}
	log.Infof("created %d stationary objects", len(c.world.StationaryObjects()))
	return nil
}

func (c *Converter) createPointObject(road *opendrive.Road, o *opendrive.Object) error {
	p, hdg, err := c.RoadCoord2WorldCoord(road, o.S, o.T)
	if err != nil {
		return err
	}
	c.world.AddStationaryObject(o.Id, o.Type, worlddata.Pose{
		Position: p,
		Yaw:      normalizeAngle(hdg + o.Hdg),
		Pitch:    o.Pitch,
		Roll:     o.Roll,
	}, worlddata.Dimension{Length: o.Length, Width: o.Width, Height: o.Height}, nil)
	return nil
}

// createContinuousObject 沿道路分段生成连续物体
// 说明：分段点取覆盖范围内各车道段第一条车道的几何节点，相邻段首尾相接
func (c *Converter) createContinuousObject(road *opendrive.Road, o *opendrive.Object) error {
	start, end := o.S, math.Min(o.S+o.Length, road.Length)
	offsets := []float64{start, end}
	for _, sec := range road.Sections {
		ws := c.sections[sec]
		if len(ws.Lanes()) == 0 {
			continue
		}
		for _, joint := range ws.Lanes()[0].Joints() {
			if joint.SOffset > start && joint.SOffset < end {
				offsets = append(offsets, joint.SOffset)
			}
		}
	}
	offsets = lo.Uniq(offsets)
	sort.Float64s(offsets)
	for i := 0; i+1 < len(offsets); i++ {
		p0, _, err := c.RoadCoord2WorldCoord(road, offsets[i], o.T)
		if err != nil {
			return err
		}
		p1, _, err := c.RoadCoord2WorldCoord(road, offsets[i+1], o.T)
		if err != nil {
			return err
		}
		dx, dy := p1.X-p0.X, p1.Y-p0.Y
		center := p0
		center.X, center.Y = p0.X+dx/2, p0.Y+dy/2
		c.world.AddStationaryObject(fmt.Sprintf("%s_%d", o.Id, i), o.Type, worlddata.Pose{
			Position: center,
			Yaw:      math.Atan2(dy, dx),
		}, worlddata.Dimension{Length: math.Hypot(dx, dy), Width: o.Width, Height: o.Height}, nil)
	}
	return nil
}

// createCrosswalk 人行横道物体转换为路面标记
func (c *Converter) createCrosswalk(road *opendrive.Road, wr *worlddata.Road, sec *opendrive.LaneSection, o *opendrive.Object) error {
	p, hdg, err := c.RoadCoord2WorldCoord(road, o.S, o.T)
	if err != nil {
		return err
	}
	marking := c.world.AddRoadMarking(wr, worlddata.NewRoadMarking(o.Id, o.S, entity.RoadMarkingPedestrianCrossing, "", worlddata.SignalPose{
		Position: p,
		Yaw:      normalizeAngle(hdg + o.Hdg),
		Width:    o.Width,
		Height:   o.Length,
	}))
	for _, lane := range sec.Lanes {
		if lane.Id == 0 || !objectValidForLane(o, lane.Id) {
			continue
		}
		c.lanes[lane].AddRoadMarking(marking)
	}
	return nil
}

func objectValidForLane(o *opendrive.Object, laneId int) bool {
	if len(o.Validities) == 0 {
		return true
	}
	return lo.ContainsBy(o.Validities, func(v opendrive.Validity) bool {
		from, to := min(v.FromLane, v.ToLane), max(v.FromLane, v.ToLane)
		return from <= laneId && laneId <= to
	})
}

// normalizeAngle 将角度规范到(-π, π]
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
