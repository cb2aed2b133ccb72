package scenery

import (
	"fmt"

	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
)

// MarkDirections 统一相连道路的方向
// 功能：为每条道路确定是否保持原方向，使相邻道路在接触处方向一致
// 算法说明：
// 1. 路口内的连接道路直接标记为保持原方向，但必须有车道段
// 2. 其余道路按连接关系分簇，每簇从任一道路出发（标记为保持原方向）广度优先传播
// 3. 前驱接触点为start时方向相反，为end时方向相同；后继接触点为start时方向相同，为end时方向相反
// 返回：引用缺失道路、自引用、空车道段或接触点未定义时返回错误
func (c *Converter) MarkDirections() error {
	pending := make(map[string]*opendrive.Road)
	order := make([]*opendrive.Road, 0, len(c.scenery.Roads))
	for _, road := range c.scenery.Roads {
		if road.InJunction() {
			if len(road.Sections) == 0 {
				return fmt.Errorf("%w: junction road %s", ErrEmptySections, road.Id)
			}
			c.directions[road.Id] = true
			continue
		}
		pending[road.Id] = road
		order = append(order, road)
	}

	for _, seed := range order {
		if _, ok := pending[seed.Id]; !ok {
			continue
		}
		delete(pending, seed.Id)
		c.directions[seed.Id] = true
		queue := []*opendrive.Road{seed}
		for len(queue) > 0 {
			road := queue[0]
			queue = queue[1:]
			dir := c.directions[road.Id]
			links := []struct {
				link          *opendrive.RoadLink
				isPredecessor bool
			}{{road.Predecessor, true}, {road.Successor, false}}
			for _, l := range links {
				if l.link == nil || l.link.ElementType != opendrive.ElementTypeRoad {
					continue
				}
				neighbour, err := c.checkLink(road, l.link)
				if err != nil {
					return err
				}
				if _, ok := pending[neighbour.Id]; !ok {
					continue
				}
				sameDirection := l.link.ContactPoint == opendrive.ContactPointEnd
				if !l.isPredecessor {
					sameDirection = l.link.ContactPoint == opendrive.ContactPointStart
				}
				c.directions[neighbour.Id] = dir == sameDirection
				delete(pending, neighbour.Id)
				queue = append(queue, neighbour)
			}
		}
	}
	return nil
}

// checkLink 检查道路连接的合法性并返回相邻道路
func (c *Converter) checkLink(road *opendrive.Road, link *opendrive.RoadLink) (*opendrive.Road, error) {
	neighbour, err := c.getRoad(link.ElementId)
	if err != nil {
		return nil, fmt.Errorf("road %s: %w", road.Id, err)
	}
	if neighbour == road {
		return nil, fmt.Errorf("%w: %s", ErrSelfReference, road.Id)
	}
	if len(neighbour.Sections) == 0 {
		return nil, fmt.Errorf("%w: %s (linked from %s)", ErrEmptySections, neighbour.Id, road.Id)
	}
	if link.ContactPoint == opendrive.ContactPointUndefined {
		return nil, fmt.Errorf("%w: road %s -> %s", ErrUndefinedContactPoint, road.Id, neighbour.Id)
	}
	return neighbour, nil
}

// Direction 道路是否保持原方向
func (c *Converter) Direction(roadId string) (bool, bool) {
	d, ok := c.directions[roadId]
	return d, ok
}
