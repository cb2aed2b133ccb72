package driver

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
)

const (
	idmTheta = 4 // IDM模型参数

	// https://jtgl.beijing.gov.cn/jgj/94220/aqcs/139634/index.html
	viewDistanceFactor = 12 // 观察距离为12秒内通过的路程
	minViewDistance    = 50 // 最小观察距离（米）
)

// Params 驾驶员模型参数
type Params struct {
	DesiredSpeed  float64 // 期望速度（米/秒）
	MaxA          float64 // 最大加速度
	UsualBrakingA float64 // 常用制动加速度（负数）
	MaxBrakingA   float64 // 最大制动加速度（负数）
	MinGap        float64 // 最小车距
	Headway       float64 // 安全车头时距（秒）
	StopGap       float64 // 停车线前的停车距离
}

// DefaultParams 默认参数
var DefaultParams = Params{
	DesiredSpeed:  50 / 3.6,
	MaxA:          3,
	UsualBrakingA: -4.5,
	MaxBrakingA:   -10,
	MinGap:        1,
	Headway:       1.5,
	StopGap:       1,
}

// followImpl IDM跟车模型
// 参数：selfV-本车速度，targetV-目标速度，aheadV-前车速度，distance-车距，minGap-最小车距，headway-安全车头时距
// 返回：限制在[MaxBrakingA, MaxA]内的加速度
// 算法说明：
// 1. 车距不大于0时紧急制动
// 2. 期望车距 s_star = minGap + max(0, v*headway + v*(v-v_ahead)/(2*sqrt(a*b)))
// 3. 加速度 a = maxA * (1 - (v/targetV)^4 - (s_star/distance)^2)
func (p Params) followImpl(selfV, targetV, aheadV, distance, minGap, headway float64) float64 {
	var acc float64
	if distance <= 0 {
		acc = -mathutil.INF
	} else {
		// https://en.wikipedia.org/wiki/Intelligent_driver_model
		sStar := minGap + math.Max(
			0,
			selfV*headway+selfV*(selfV-aheadV)/2/math.Sqrt(-p.UsualBrakingA*p.MaxA),
		)
		acc = p.MaxA * (1 - math.Pow(selfV/targetV, idmTheta) - math.Pow(sStar/distance, 2))
	}
	return lo.Clamp(acc, p.MaxBrakingA, p.MaxA)
}

// follow 以默认车距与车头时距跟车
func (p Params) follow(selfV, targetV, aheadV, distance float64) float64 {
	return p.followImpl(selfV, targetV, aheadV, distance, p.MinGap, p.Headway)
}

// stop 在distance内刹停，以时间步长作为预判时间
func (p Params) stop(selfV, targetV, distance, dt float64) float64 {
	return p.followImpl(selfV, targetV, 0, distance, p.StopGap, dt)
}

// canStop 以常用制动加速度能否在distance内停车
func (p Params) canStop(v, distance float64) bool {
	return v*v/2/-p.UsualBrakingA <= distance
}

// viewDistance 观察距离
func viewDistance(v float64) float64 {
	return math.Max(minViewDistance, v*viewDistanceFactor)
}

// computeVAndDistance 本步的速度与移动距离
// v(t)=v(t-1)+acc*dt, ds=v(t-1)*dt+acc*dt*dt/2，速度不小于0
func computeVAndDistance(v, a, dt float64) (float64, float64) {
	dv := a * dt
	if v+dv < 0 {
		return 0, v * v / 2 / -a
	}
	return v + dv, (v + dv/2) * dt
}
