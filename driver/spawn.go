package driver

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/agent"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/config"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/randengine"
	"github.com/tsinghua-fib-lab/osi-world-sim/world"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

const (
	vehicleType       = "car"
	vehicleHeight     = 1.5
	rearOverhang      = 1   // 参考点（后轴中心）到后缘的距离
	speedJitterRatio  = 0.1 // 初速度扰动比例
	maxAttemptsFactor = 10  // 每个智能体的最大尝试次数
)

// ParamsFromConfig 以交通流配置覆盖默认驾驶员参数
func ParamsFromConfig(t config.Traffic) Params {
	p := DefaultParams
	if t.DesiredSpeed > 0 {
		p.DesiredSpeed = t.DesiredSpeed
	}
	return p
}

// Spawn 在随机的行驶车道上生成智能体
// 功能：按车道长度加权选择路口外的行驶车道，在车道内均匀选取位置，沿行驶方向放置车辆
// 参数：w-已创建路网的世界，engine-随机数引擎，t-交通流配置
// 返回：生成的智能体，可用位置不足时少于t.SpawnCount
// 说明：同一车道上的车辆间距不小于两倍车长
func Spawn(w *world.World, engine *randengine.Engine, t config.Traffic) []*agent.Agent {
	length, width := t.VehicleLength, t.VehicleWidth
	lanes := lo.Filter(w.Data().Lanes(), func(l *worlddata.Lane, _ int) bool {
		return l.LaneType() == entity.LaneTypeDriving && !l.Road().IsInJunction() && l.Length() > 3*length
	})
	if len(lanes) == 0 {
		log.Warnf("no driving lane longer than %.1fm to spawn on", 3*length)
		return nil
	}
	weights := lo.Map(lanes, func(l *worlddata.Lane, _ int) float64 { return l.Length() })

	spawned := make([]*agent.Agent, 0, t.SpawnCount)
	occupied := make(map[*worlddata.Lane][]float64)
	for attempt := 0; len(spawned) < t.SpawnCount && attempt < t.SpawnCount*maxAttemptsFactor; attempt++ {
		lane := lanes[engine.DiscreteDistribution(weights)]
		s := engine.Uniform(lane.DistanceStart()+length, lane.DistanceEnd()-length)
		if lo.ContainsBy(occupied[lane], func(o float64) bool { return math.Abs(o-s) < 2*length }) {
			continue
		}
		occupied[lane] = append(occupied[lane], s)
		p, yaw := place(lane, s, lane.OdId() < 0)
		spawned = append(spawned, w.CreateAgent(agent.Blueprint{
			Type:                                vehicleType,
			Length:                              length,
			Width:                               width,
			Height:                              vehicleHeight,
			DistanceReferencePointToLeadingEdge: length - rearOverhang,
			X:                                   p.X,
			Y:                                   p.Y,
			Yaw:                                 yaw,
			Velocity:                            engine.Jitter(t.DesiredSpeed, speedJitterRatio),
		}))
	}
	log.Infof("spawned %d of %d agents on %d driving lanes", len(spawned), t.SpawnCount, len(lanes))
	return spawned
}
