package clock

import (
	"context"
	"net/http"
	"strconv"

	"connectrpc.com/connect"
	clockv1 "git.fiblab.net/sim/protos/v2/go/city/clock/v1"
	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"git.fiblab.net/sim/syncer/v3"
)

const (
	// HeaderStep 响应头：当前步
	HeaderStep = "X-Sim-Step"
	// HeaderWorldTimestamp 响应头：世界模型最近一次同步的时间戳（ms）
	HeaderWorldTimestamp = "X-World-Timestamp"
)

// Register 将ClockService注册到sidecar
// 参数：sidecar-同步器侧车，worldTimestamp-世界模型最近一次同步的时间戳（ms），可为nil
func (c *Clock) Register(sidecar *syncer.Sidecar, worldTimestamp func() int64) {
	c.worldTimestamp = worldTimestamp
	sidecar.Register(
		clockv1connect.ClockServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return clockv1connect.NewClockServiceHandler(c, opts...)
		},
	)
}

// Now 当前仿真时间（秒）
// 说明：注册时给出世界时间戳来源则返回世界时间，否则返回时钟时间；步号与世界时间戳写入响应头
func (c *Clock) Now(ctx context.Context, in *connect.Request[clockv1.NowRequest]) (*connect.Response[clockv1.NowResponse], error) {
	t := c.T
	res := connect.NewResponse(&clockv1.NowResponse{})
	res.Header().Set(HeaderStep, strconv.FormatInt(int64(c.Step), 10))
	if c.worldTimestamp != nil {
		ms := c.worldTimestamp()
		res.Header().Set(HeaderWorldTimestamp, strconv.FormatInt(ms, 10))
		t = float64(ms) / 1000
	}
	res.Msg.T = t
	return res, nil
}
