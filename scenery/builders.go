package scenery

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/roadgraph"
	"github.com/tsinghua-fib-lab/osi-world-sim/trafficlight"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// BuildRoadNetwork 由道路前驱后继声明构建道路连通图
// 算法说明：
// 1. 道路首个车道段有负ID车道时加入(road,+)顶点，有正ID车道时加入(road,-)顶点
// 2. 后继接触点为start：(r,+)->(s,+)，(s,-)->(r,-)；为end：(r,+)->(s,-)，(s,+)->(r,-)
// 3. 前驱接触点为end：(p,+)->(r,+)，(r,-)->(p,-)；为start：(p,-)->(r,+)，(r,-)->(p,+)
// 4. 指向路口的连接被跳过，路口内的连接道路自身的连接会补全这些边
func BuildRoadNetwork(scenery *opendrive.Scenery) *roadgraph.Graph {
	g := roadgraph.New()
	for _, road := range scenery.Roads {
		if len(road.Sections) == 0 {
			continue
		}
		first := road.Sections[0]
		if first.MinLaneId() < 0 {
			g.AddVertex(roadgraph.Vertex{RoadId: road.Id, InOdDirection: true})
		}
		if first.MaxLaneId() > 0 {
			g.AddVertex(roadgraph.Vertex{RoadId: road.Id, InOdDirection: false})
		}
	}
	vertex := func(id string, forward bool) roadgraph.Vertex {
		return roadgraph.Vertex{RoadId: id, InOdDirection: forward}
	}
	for _, road := range scenery.Roads {
		r := road.Id
		if link := road.Successor; link != nil && link.ElementType == opendrive.ElementTypeRoad {
			s := link.ElementId
			switch link.ContactPoint {
			case opendrive.ContactPointStart:
				g.AddEdge(vertex(r, true), vertex(s, true))
				g.AddEdge(vertex(s, false), vertex(r, false))
			case opendrive.ContactPointEnd:
				g.AddEdge(vertex(r, true), vertex(s, false))
				g.AddEdge(vertex(s, true), vertex(r, false))
			}
		}
		if link := road.Predecessor; link != nil && link.ElementType == opendrive.ElementTypeRoad {
			p := link.ElementId
			switch link.ContactPoint {
			case opendrive.ContactPointEnd:
				g.AddEdge(vertex(p, true), vertex(r, true))
				g.AddEdge(vertex(r, false), vertex(p, false))
			case opendrive.ContactPointStart:
				g.AddEdge(vertex(p, false), vertex(r, true))
				g.AddEdge(vertex(r, false), vertex(p, true))
			}
		}
	}
	log.Infof("road network: %d vertices, %d edges", len(g.Vertices()), g.EdgeCount())
	return g
}

// BuildTrafficLightNetwork 由信号控制器构建信号灯网络
// 说明：相位时长与延迟由秒换算为毫秒
// 返回：相位引用不存在的信号时返回ErrUnknownSignal，引用的信号不是信号灯时返回ErrNotATrafficLight
func BuildTrafficLightNetwork(scenery *opendrive.Scenery, world *worlddata.WorldData) (*trafficlight.Network, error) {
	network := trafficlight.NewNetwork()
	for _, controller := range scenery.Controllers {
		phases := make([]trafficlight.Phase, 0, len(controller.Phases))
		for _, phase := range controller.Phases {
			states := make([]trafficlight.LightState, 0, len(phase.States))
			for _, s := range phase.States {
				light, ok := world.GetTrafficLightByOdId(s.SignalId)
				if !ok {
					if _, isSign := world.GetTrafficSignByOdId(s.SignalId); isSign {
						return nil, fmt.Errorf("controller %s: %w: %s", controller.Id, trafficlight.ErrNotATrafficLight, s.SignalId)
					}
					return nil, fmt.Errorf("controller %s: %w: %s", controller.Id, trafficlight.ErrUnknownSignal, s.SignalId)
				}
				state, err := entity.ParseTrafficLightState(s.State)
				if err != nil {
					return nil, fmt.Errorf("controller %s signal %s: %w", controller.Id, s.SignalId, err)
				}
				states = append(states, trafficlight.LightState{Light: light, State: state})
			}
			phases = append(phases, trafficlight.Phase{
				Duration: secondsToMillis(phase.Duration),
				States:   states,
			})
		}
		c, err := trafficlight.NewController(controller.Id, phases, secondsToMillis(controller.Delay))
		if err != nil {
			return nil, err
		}
		network.AddController(c)
	}
	log.Infof("traffic light network: %d controllers", len(network.Controllers()))
	return network, nil
}

func secondsToMillis(s float64) int64 {
	return int64(math.Round(s * 1000))
}
