package scenery

import (
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// CreateRoads 创建道路、车道段、车道与车道边界
// 算法说明：
// 1. 每个车道段先由中心车道（0号）的标线生成中心线边界，再添加其余车道
// 2. 每条标线覆盖从自身起点到下一条标线起点（或车道段终点）的范围
// 3. 双线标线拆分为左右两条边界，没有标线的车道得到一条none类型的边界
func (c *Converter) CreateRoads() error {
	for _, road := range c.scenery.Roads {
		if len(road.Sections) == 0 {
			return errorf(ErrEmptySections, "road %s", road.Id)
		}
		wr := c.world.AddRoad(road.Id)
		wr.SetInStreamDirection(c.directions[road.Id])
		for i, sec := range road.Sections {
			start, end := sec.S, road.SectionEnd(i)
			ws := c.world.AddSection(wr, start, c.sectionIndex[sec])
			c.sections[sec] = ws

			var centerMarks []opendrive.RoadMark
			if center, ok := sec.GetLane(0); ok {
				centerMarks = center.RoadMarks
			}
			c.center[sec] = c.createBoundaries(centerMarks, start, end)
			c.world.AddCenterLaneBoundaries(ws, c.center[sec])

			for _, lane := range sec.Lanes {
				if lane.Id == 0 {
					continue
				}
				boundaries := c.createBoundaries(lane.RoadMarks, start, end)
				c.outer[lane] = boundaries
				c.lanes[lane] = c.world.AddLane(ws, lane.Id, lane.LaneType(), boundaries)
			}
		}
	}
	log.Infof("created %d roads, %d sections, %d lanes", len(c.world.Roads()), len(c.world.Sections()), len(c.world.Lanes()))
	return nil
}

// createBoundaries 将车道段内的一组标线转换为车道边界
func (c *Converter) createBoundaries(marks []opendrive.RoadMark, start, end float64) []*worlddata.LaneBoundary {
	if len(marks) == 0 {
		return []*worlddata.LaneBoundary{
			c.world.AddLaneBoundary(0, start, end, entity.LaneMarkingNone, entity.RoadMarkColorUndefined, entity.BoundarySingle),
		}
	}
	boundaries := make([]*worlddata.LaneBoundary, 0, len(marks))
	for i, mark := range marks {
		sStart := start + mark.SOffset
		sEnd := end
		if i+1 < len(marks) {
			sEnd = start + marks[i+1].SOffset
		}
		width := worlddata.StandardLaneBoundaryWidth
		if mark.IsBold() {
			width = worlddata.BoldLaneBoundaryWidth
		}
		typ := entity.ParseRoadMarkType(mark.Type)
		color := entity.ParseRoadMarkColor(mark.Color)
		if typ.IsDouble() {
			left, right := typ.Halves()
			boundaries = append(boundaries,
				c.world.AddLaneBoundary(width, sStart, sEnd, left, color, entity.BoundaryLeft),
				c.world.AddLaneBoundary(width, sStart, sEnd, right, color, entity.BoundaryRight),
			)
			continue
		}
		single := typ.Single()
		if single == entity.LaneMarkingNone {
			width = 0
		}
		boundaries = append(boundaries, c.world.AddLaneBoundary(width, sStart, sEnd, single, color, entity.BoundarySingle))
	}
	return boundaries
}
