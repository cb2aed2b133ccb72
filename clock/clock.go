// Package clock 仿真步时钟
package clock

import (
	"fmt"
	"math"

	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/config"
)

// Clock 仿真时钟
// 说明：模拟区间为[StartStep, EndStep)，第n步的时间为n*DT秒
type Clock struct {
	clockv1connect.UnimplementedClockServiceHandler

	DT        float64 // 每步时间间隔（秒）
	StartStep int32
	EndStep   int32

	Step int32   // 当前步
	T    float64 // 当前时间（秒）

	worldTimestamp func() int64
}

// New 根据控制配置创建时钟并置于起始步
func New(c config.ControlStep) *Clock {
	clk := &Clock{
		DT:        c.Interval,
		StartStep: c.Start,
		EndStep:   c.Start + c.Total,
	}
	clk.Init()
	return clk
}

// Init 回到起始步
func (c *Clock) Init() {
	c.Step = c.StartStep
	c.T = float64(c.Step) * c.DT
}

// Advance 前进一步
func (c *Clock) Advance() {
	c.Step++
	c.T = float64(c.Step) * c.DT
}

// Millis 当前时间（毫秒），世界模型的时间戳
func (c *Clock) Millis() int64 {
	return int64(math.Round(c.T * 1000))
}

// IsLastStep 当前步之后是否已到达结束步
func (c *Clock) IsLastStep() bool {
	return c.Step+1 >= c.EndStep
}

// String 格式化为HH:MM:SS.mmm
func (c *Clock) String() string {
	ms := c.Millis()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}
