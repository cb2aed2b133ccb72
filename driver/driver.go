// Package driver 沿车道行驶的演示驾驶员
// 功能：用世界模型的查询结果（前车、信号灯、限速、车道终点）计算IDM加速度，
// 并通过智能体网络的修改队列提交下一步位姿
package driver

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mathutil"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/tsinghua-fib-lab/osi-world-sim/agent"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/query"
	"github.com/tsinghua-fib-lab/osi-world-sim/roadgraph"
	"github.com/tsinghua-fib-lab/osi-world-sim/world"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

var drivingLanes = []entity.LaneType{entity.LaneTypeDriving}

// Driver 全部智能体共用的驾驶员
type Driver struct {
	world  *world.World
	params Params
}

func New(w *world.World, params Params) *Driver {
	return &Driver{world: w, params: params}
}

// Step 为全部智能体规划本步运动并提交修改请求
// 说明：规划只读世界，修改在下一次SyncGlobalData时生效
func (d *Driver) Step(dt float64) {
	parallel.GoFor(d.world.Agents().GetAgents(), func(a *agent.Agent) {
		d.drive(a, dt)
	})
}

// path 沿首个下游车道展开的行驶路径
type path struct {
	vertices []roadgraph.Vertex
	length   float64 // 到路径终点的距离，观察距离内未结束时为+Inf
}

func vertexOf(lane *worlddata.Lane) roadgraph.Vertex {
	return roadgraph.Vertex{RoadId: lane.Road().OdId(), InOdDirection: lane.OdId() < 0}
}

// remaining 车道上从s到行驶方向终点的距离
func remaining(lane *worlddata.Lane, s float64) float64 {
	if lane.OdId() < 0 {
		return lane.DistanceEnd() - s
	}
	return s - lane.DistanceStart()
}

func route(lane *worlddata.Lane, s, view float64) path {
	p := path{vertices: []roadgraph.Vertex{vertexOf(lane)}}
	length := remaining(lane, s)
	visited := map[*worlddata.Lane]bool{lane: true}
	for length < view {
		next := lane.Next(lane.OdId() < 0)
		if len(next) == 0 || visited[next[0]] {
			p.length = length
			return p
		}
		lane = next[0]
		visited[lane] = true
		p.vertices = append(p.vertices, vertexOf(lane))
		length += lane.Length()
	}
	p.length = math.Inf(1)
	return p
}

// pick 路径上最深的有结果的顶点
func pick[R any](result query.RouteQueryResult[R], p path) (R, bool) {
	for i := len(p.vertices) - 1; i >= 0; i-- {
		if r, ok := result[p.vertices[i]]; ok {
			return r, true
		}
	}
	var zero R
	return zero, false
}

func (d *Driver) lane(pos entity.GlobalRoadPosition) *worlddata.Lane {
	road, ok := d.world.Data().GetRoadByOdId(pos.RoadId)
	if !ok {
		return worlddata.InvalidLane
	}
	section := road.SectionByDistance(pos.RoadPosition.S)
	if section == nil {
		return worlddata.InvalidLane
	}
	return section.GetLane(pos.LaneId)
}

func (d *Driver) drive(a *agent.Agent, dt float64) {
	v := a.Velocity()
	pos, ok := a.RoadPosition()
	var lane *worlddata.Lane
	if ok {
		lane = d.lane(pos)
	}
	if lane == nil || !lane.Exists() {
		// 不在路网上时沿航向匀速行驶，直到离开世界范围
		_, ds := computeVAndDistance(v, 0, dt)
		ref, yaw := a.ReferencePoint(), a.Yaw()
		sin, cos := math.Sincos(yaw)
		next := geometry.Point{X: ref.X + ds*cos, Y: ref.Y + ds*sin}
		d.world.Agents().QueueAgentUpdate(func() {
			a.SetPosition(next, yaw)
			a.SetAcceleration(0)
		})
		return
	}

	s := pos.RoadPosition.S
	p := route(lane, s, viewDistance(v))
	acc := d.acceleration(a, pos, p, dt)
	newV, ds := computeVAndDistance(v, acc, dt)
	next, yaw, ended := advance(lane, s, ds)
	if ended {
		log.Debugf("agent %d reached the end of its route", a.Id())
		d.world.Agents().QueueAgentRemove(a.Id())
		return
	}
	d.world.Agents().QueueAgentUpdate(func() {
		a.SetPosition(next, yaw)
		a.SetVelocity(newV)
		a.SetAcceleration(acc)
		a.SetBrakeLight(acc < 0)
	})
}

// acceleration 本步加速度
// 算法说明：
// 1. 以期望速度与已通过的限速标志中较小者为目标速度，按自由路段计算
// 2. 跟随本车道前方最近的运动物体
// 3. 在红灯、红黄灯与来得及停下的黄灯前停车
// 4. 行驶车道在路径终点之前结束时在车道终点停车
// 取以上各项的最小值
func (d *Driver) acceleration(a *agent.Agent, pos entity.GlobalRoadPosition, p path, dt float64) float64 {
	v := a.Velocity()
	view := viewDistance(v)
	front := a.DistanceReferencePointToLeadingEdge()
	target := math.Min(d.params.DesiredSpeed, d.speedLimit(pos, view, p))

	acc := d.params.follow(v, target, target, mathutil.INF)
	if gap, aheadV, ok := d.leader(a, pos, view, p); ok {
		acc = math.Min(acc, d.params.follow(v, target, aheadV, gap))
	}

	if lights, ok := pick(d.world.GetTrafficLightsInRange(pos, view), p); ok {
		for _, l := range lights {
			distance := l.RelativeDistance - front
			if distance < 0 {
				continue
			}
			switch l.State {
			case entity.TrafficLightRed, entity.TrafficLightRedYellow:
				acc = math.Min(acc, d.params.stop(v, target, distance, dt))
			case entity.TrafficLightYellow:
				if d.params.canStop(v, distance) {
					acc = math.Min(acc, d.params.stop(v, target, distance, dt))
				}
			}
			break
		}
	}

	if end, ok := pick(d.world.GetDistanceToEndOfLane(pos, view, drivingLanes), p); ok {
		if !math.IsInf(end, 1) && end < p.length-1e-6 {
			acc = math.Min(acc, d.params.stop(v, target, end-front, dt))
		}
	}
	return acc
}

// speedLimit 已通过的最近一块限速标志给出的限速，没有时为+Inf
func (d *Driver) speedLimit(pos entity.GlobalRoadPosition, view float64, p path) float64 {
	limit := math.Inf(1)
	signs, ok := pick(d.world.GetTrafficSignsInRange(pos, -view), p)
	if !ok {
		return limit
	}
	for _, s := range signs {
		switch s.Type {
		case entity.TrafficSignMaximumSpeedLimit:
			if s.Unit == entity.TrafficSignUnitMeterPerSecond && s.Value > 0 {
				limit = s.Value
			}
		case entity.TrafficSignEndOfMaximumSpeedLimit, entity.TrafficSignEndOfAllRestrictions:
			limit = math.Inf(1)
		}
	}
	return limit
}

type leaderSearch struct {
	found bool
	gap   float64
	v     float64
}

// leader 本车道前方最近的运动物体
// 返回：车头到其后缘的距离、其速度、是否找到
func (d *Driver) leader(a *agent.Agent, pos entity.GlobalRoadPosition, view float64, p path) (float64, float64, bool) {
	stream, start := d.world.LaneStream(pos)
	if math.IsInf(start, -1) {
		return 0, 0, false
	}
	front := start + a.DistanceReferencePointToLeadingEdge()
	self := a.Object()
	result := query.Traverse(stream, func(info query.StreamInfo[*worlddata.Lane], previous leaderSearch) leaderSearch {
		if previous.found {
			return previous
		}
		for _, assignment := range info.Element.WorldObjects(info.InStreamDirection) {
			o := assignment.Object
			if o == self || o.Kind() != entity.ObjectKindMoving {
				continue
			}
			sRear := assignment.Overlap.SMin.RoadPosition.S
			if !info.InStreamDirection {
				sRear = assignment.Overlap.SMax.RoadPosition.S
			}
			rear := info.StreamPositionOfS(sRear)
			if rear <= start {
				continue
			}
			if rear-start > view {
				break
			}
			return leaderSearch{found: true, gap: rear - front, v: o.V()}
		}
		return previous
	}, leaderSearch{})
	found, ok := pick(result, p)
	if !ok || !found.found {
		return 0, 0, false
	}
	return found.gap, found.v, true
}

// advance 沿车道中心线前进ds
// 返回：新的参考点位置与航向；ds内到达路径终点时ended为true
// 说明：车道结束后沿首个下游车道继续
func advance(lane *worlddata.Lane, s, ds float64) (p geometry.Point, yaw float64, ended bool) {
	visited := map[*worlddata.Lane]bool{}
	for {
		visited[lane] = true
		forward := lane.OdId() < 0
		left := remaining(lane, s)
		if ds < left {
			if forward {
				p, yaw = place(lane, s+ds, true)
			} else {
				p, yaw = place(lane, s-ds, false)
			}
			return p, yaw, false
		}
		ds -= left
		if forward {
			s = lane.DistanceEnd()
		} else {
			s = lane.DistanceStart()
		}
		next := lane.Next(forward)
		if len(next) == 0 || visited[next[0]] {
			p, yaw = place(lane, s, forward)
			return p, yaw, true
		}
		lane = next[0]
		if lane.OdId() < 0 {
			s = lane.DistanceStart()
		} else {
			s = lane.DistanceEnd()
		}
	}
}

// place 车道上道路坐标s处的中心点与行驶方向
func place(lane *worlddata.Lane, s float64, forward bool) (geometry.Point, float64) {
	yaw := lane.Direction(s)
	if !forward {
		yaw = math.Remainder(yaw+math.Pi, 2*math.Pi)
	}
	return lane.InterpolatedPointsAtDistance(s).Reference, yaw
}
