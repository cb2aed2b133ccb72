package scenery

import (
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// ConnectRoads 建立车道段、车道、道路与路口之间的连接
// 算法说明：
// 1. 同一道路内相邻车道段互为前驱后继，车道按显式连接或相同ID连接
// 2. 直接相连的道路在接触处连接首尾车道段的车道；任一方在路口内时只按显式连接
// 3. 路口内的连接道路按车道映射表与驶入道路连接，并导入优先关系
func (c *Converter) ConnectRoads() error {
	for _, road := range c.scenery.Roads {
		c.connectSections(road)
		wr, err := c.worldRoad(road.Id)
		if err != nil {
			return err
		}
		if road.Predecessor != nil {
			if err := c.connectRoadLink(road, wr, road.Predecessor, true); err != nil {
				return err
			}
		}
		if road.Successor != nil {
			if err := c.connectRoadLink(road, wr, road.Successor, false); err != nil {
				return err
			}
		}
	}
	for _, junction := range c.scenery.Junctions {
		if err := c.connectJunction(junction); err != nil {
			return err
		}
	}
	return nil
}

// connectSections 连接道路内部相邻车道段
func (c *Converter) connectSections(road *opendrive.Road) {
	for i := 0; i+1 < len(road.Sections); i++ {
		prev, next := road.Sections[i], road.Sections[i+1]
		c.world.ConnectSections(c.sections[prev], c.sections[next])
		for _, lane := range prev.Lanes {
			if lane.Id == 0 {
				continue
			}
			for _, id := range linkedIds(lane.Successors, lane.Id) {
				target, ok := next.GetLane(id)
				if !ok || id == 0 {
					continue
				}
				c.world.AddLaneSuccessor(c.lanes[lane], c.lanes[target])
				c.world.AddLanePredecessor(c.lanes[target], c.lanes[lane])
			}
		}
		for _, lane := range next.Lanes {
			if lane.Id == 0 || len(lane.Predecessors) == 0 {
				continue
			}
			for _, id := range lane.Predecessors {
				target, ok := prev.GetLane(id)
				if !ok || id == 0 {
					continue
				}
				c.world.AddLanePredecessor(c.lanes[lane], c.lanes[target])
				c.world.AddLaneSuccessor(c.lanes[target], c.lanes[lane])
			}
		}
	}
}

// linkedIds 显式连接为空时沿用给定ID
func linkedIds(explicit []int, fallback int) []int {
	if len(explicit) > 0 {
		return explicit
	}
	return []int{fallback}
}

// connectRoadLink 处理道路的一个前驱或后继连接
// 说明：指向路口的连接只记录道路级关系，车道由路口连接处理
func (c *Converter) connectRoadLink(road *opendrive.Road, wr *worlddata.Road, link *opendrive.RoadLink, isPredecessor bool) error {
	element := entity.RoadNetworkElement{Type: entity.RoadNetworkElementRoad, Id: link.ElementId}
	if link.ElementType == opendrive.ElementTypeJunction {
		element.Type = entity.RoadNetworkElementJunction
	}
	if isPredecessor {
		c.world.SetRoadPredecessor(wr, element)
	} else {
		c.world.SetRoadSuccessor(wr, element)
	}
	if link.ElementType != opendrive.ElementTypeRoad {
		return nil
	}
	other, err := c.checkLink(road, link)
	if err != nil {
		return err
	}

	current := road.Sections[len(road.Sections)-1]
	if isPredecessor {
		current = road.Sections[0]
	}
	adjacent := other.Sections[0]
	if link.ContactPoint == opendrive.ContactPointEnd {
		adjacent = other.Sections[len(other.Sections)-1]
	}
	// 接触点处两条道路方向相反时车道ID取反
	flipped := isPredecessor == (link.ContactPoint == opendrive.ContactPointStart)
	explicitOnly := road.InJunction() || other.InJunction()

	for _, lane := range current.Lanes {
		if lane.Id == 0 {
			continue
		}
		explicit := lane.Successors
		if isPredecessor {
			explicit = lane.Predecessors
		}
		if explicitOnly && len(explicit) == 0 {
			continue
		}
		fallback := lane.Id
		if flipped {
			fallback = -lane.Id
		}
		for _, id := range linkedIds(explicit, fallback) {
			target, ok := adjacent.GetLane(id)
			if !ok || id == 0 {
				if len(explicit) > 0 {
					return errorf(ErrMissingLane, "lane %d of road %s linked from road %s", id, other.Id, road.Id)
				}
				continue
			}
			a, b := c.lanes[lane], c.lanes[target]
			if isPredecessor {
				c.world.AddLanePredecessor(a, b)
			} else {
				c.world.AddLaneSuccessor(a, b)
			}
			if link.ContactPoint == opendrive.ContactPointStart {
				c.world.AddLanePredecessor(b, a)
			} else {
				c.world.AddLaneSuccessor(b, a)
			}
		}
	}
	return nil
}

// connectJunction 创建路口并连接驶入道路与连接道路
func (c *Converter) connectJunction(junction *opendrive.Junction) error {
	wj := c.world.AddJunction(junction.Id)
	for _, conn := range junction.Connections {
		incoming, err := c.getRoad(conn.IncomingRoad)
		if err != nil {
			return errorf(ErrMissingRoad, "junction %s connection %s: incoming road %s", junction.Id, conn.Id, conn.IncomingRoad)
		}
		connecting, err := c.getRoad(conn.ConnectingRoad)
		if err != nil {
			return errorf(ErrMissingRoad, "junction %s connection %s: connecting road %s", junction.Id, conn.Id, conn.ConnectingRoad)
		}
		if len(incoming.Sections) == 0 || len(connecting.Sections) == 0 {
			return errorf(ErrEmptySections, "junction %s connection %s", junction.Id, conn.Id)
		}
		wc, err := c.worldRoad(connecting.Id)
		if err != nil {
			return err
		}
		c.world.AddJunctionConnection(wj, wc)

		var link *opendrive.RoadLink
		connectingSection := connecting.Sections[0]
		switch conn.ContactPoint {
		case opendrive.ContactPointStart:
			link = connecting.Predecessor
		case opendrive.ContactPointEnd:
			link = connecting.Successor
			connectingSection = connecting.Sections[len(connecting.Sections)-1]
		default:
			return errorf(ErrUndefinedContactPoint, "junction %s connection %s", junction.Id, conn.Id)
		}
		if link == nil || link.ElementId != incoming.Id || link.ContactPoint == opendrive.ContactPointUndefined {
			return errorf(ErrUndefinedContactPoint, "junction %s: road %s does not declare how it touches %s", junction.Id, connecting.Id, incoming.Id)
		}
		incomingSection := incoming.Sections[0]
		if link.ContactPoint == opendrive.ContactPointEnd {
			incomingSection = incoming.Sections[len(incoming.Sections)-1]
		}

		for _, ll := range conn.LaneLinks {
			from, ok := incomingSection.GetLane(ll.From)
			if !ok || ll.From == 0 {
				return errorf(ErrMissingLane, "junction %s connection %s: lane %d of road %s", junction.Id, conn.Id, ll.From, incoming.Id)
			}
			to, ok := connectingSection.GetLane(ll.To)
			if !ok || ll.To == 0 {
				return errorf(ErrMissingLane, "junction %s connection %s: lane %d of road %s", junction.Id, conn.Id, ll.To, connecting.Id)
			}
			a, b := c.lanes[from], c.lanes[to]
			if link.ContactPoint == opendrive.ContactPointEnd {
				c.world.AddLaneSuccessor(a, b)
			} else {
				c.world.AddLanePredecessor(a, b)
			}
			if conn.ContactPoint == opendrive.ContactPointStart {
				c.world.AddLanePredecessor(b, a)
			} else {
				c.world.AddLaneSuccessor(b, a)
			}
		}
	}
	for _, p := range junction.Priorities {
		c.world.AddJunctionPriority(wj, p.High, p.Low)
	}
	return nil
}
