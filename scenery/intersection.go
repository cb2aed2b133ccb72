package scenery

import (
	"math"

	"github.com/tsinghua-fib-lab/osi-world-sim/localization"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

const minOverlapArea = 1e-9

// CreateJunctionIntersections 预计算路口内连接道路之间的相交区间
// 功能：对每个路口中的每对连接道路（两个方向各一次），逐个车道几何单元求交，
// 记录每对相交车道在本连接道路上的s范围以及对方的相对优先级
func (c *Converter) CreateJunctionIntersections() error {
	count := 0
	for _, junction := range c.world.Junctions() {
		roads := junction.ConnectingRoads()
		for _, road := range roads {
			for _, other := range roads {
				if road == other {
					continue
				}
				offsets := intersectRoads(road, other)
				if len(offsets) == 0 {
					continue
				}
				c.world.AddJunctionIntersection(junction, road.OdId(), worlddata.IntersectionInfo{
					IntersectingRoad: other.OdId(),
					RelativeRank:     junction.RelativeRank(road.OdId(), other.OdId()),
					SOffsets:         offsets,
				})
				count++
			}
		}
	}
	log.Infof("precomputed %d connecting road intersections", count)
	return nil
}

// intersectRoads road上与other相交的每对车道的s范围
func intersectRoads(road, other *worlddata.Road) map[worlddata.LanePair]worlddata.SRange {
	offsets := make(map[worlddata.LanePair]worlddata.SRange)
	for _, section := range road.Sections() {
		for _, lane := range section.Lanes() {
			for _, otherSection := range other.Sections() {
				for _, otherLane := range otherSection.Lanes() {
					sMin, sMax, ok := intersectLanes(lane, otherLane)
					if !ok {
						continue
					}
					pair := worlddata.LanePair{Lane: lane.Id(), IntersectingLane: otherLane.Id()}
					if r, exists := offsets[pair]; exists {
						sMin, sMax = math.Min(sMin, r.SMin), math.Max(sMax, r.SMax)
					}
					offsets[pair] = worlddata.SRange{SMin: sMin, SMax: sMax}
				}
			}
		}
	}
	return offsets
}

// intersectLanes lane上与otherLane重叠的几何单元覆盖的s范围
func intersectLanes(lane, otherLane *worlddata.Lane) (float64, float64, bool) {
	sMin, sMax := math.Inf(1), math.Inf(-1)
	for _, e := range lane.Elements() {
		polygon := e.Polygon()
		bound := localization.Bound(polygon)
		for _, o := range otherLane.Elements() {
			otherPolygon := o.Polygon()
			if !bound.Intersects(localization.Bound(otherPolygon)) {
				continue
			}
			overlap := localization.Intersect(polygon, otherPolygon)
			if len(overlap) < 3 || localization.Area(overlap) < minOverlapArea {
				continue
			}
			sMin = math.Min(sMin, e.Current.SOffset)
			sMax = math.Max(sMax, e.Next.SOffset)
			break
		}
	}
	return sMin, sMax, sMin <= sMax
}
