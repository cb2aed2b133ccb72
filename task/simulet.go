package task

import (
	"context"
	"flag"

	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

const (
	SelfName = "world" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 算法说明：
// 1. 时钟前进一步，定期输出心跳日志
// 2. 世界模型同步：执行上一步提交的修改与删除，重新定位全部智能体，推进信号灯
// 3. 记录本步的智能体数量与离开世界的智能体
func (ctx *Context) prepare() {
	ctx.clock.Advance()
	if ctx.clock.Step%int32(*heartBeatInterval) == 0 {
		log.Infof("STEP: %d(%v) agents: %d", ctx.clock.Step, ctx.clock, ctx.world.Agents().Len())
	}

	ctx.world.SyncGlobalData(context.Background(), ctx.clock.Millis())
	removed := ctx.world.RemovedAgents()
	if len(removed) > 0 {
		log.Debugf("step %d: %d agents left the world", ctx.clock.Step, len(removed))
	}
	ctx.publisher.ObserveStep(ctx.world.Agents().Len(), removed)
}

// update 更新阶段，每步执行一次
// 算法说明：
// 1. 驾驶员根据同步后的世界规划下一步运动
// 2. 发布智能体与信号灯数据
// 3. 写出真值快照与实体记录
func (ctx *Context) update() {
	ctx.behavior.Step(ctx.clock.DT)
	ctx.world.PublishGlobalData(ctx.publisher.Publish)

	if ctx.groundTruth != nil && ctx.world.Agents().Len() > 0 {
		c := ctx.runtimeConfig.All.Output.GroundTruth
		host := entity.InvalidId
		if c.Host != nil {
			host = entity.Id(*c.Host)
		}
		if s, err := ctx.world.GroundTruth(host, c.Radius); err != nil {
			log.Warnf("step %d: skip ground truth: %v", ctx.clock.Step, err)
		} else if err := ctx.groundTruth.Write(s); err != nil {
			log.Errorf("step %d: failed to write ground truth: %v", ctx.clock.Step, err)
		}
	}
	if ctx.sink != nil {
		if err := ctx.sink.Flush(context.Background()); err != nil {
			log.Warnf("step %d: entity records kept for retry: %v", ctx.clock.Step, err)
		}
	}
}

// Run 运行
func (ctx *Context) Run() {
	ctx.Init()
	// init syncer
	ctx.sidecar.Step(false)
	for {
		ctx.prepare()
		// 通知准备阶段完成
		log.Debugf("step %d: prepare complete and call NotifyStepReady", ctx.clock.Step)
		ctx.sidecar.NotifyStepReady()
		ctx.update()
		log.Debugf("step %d: update complete", ctx.clock.Step)
		close := ctx.sidecar.Step(ctx.clock.IsLastStep())
		if close || ctx.closed.Load() {
			break
		}
	}
	log.Infof("engine complete")
	ctx.Close()
}
