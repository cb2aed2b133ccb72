package world

import (
	"context"

	"github.com/tsinghua-fib-lab/osi-world-sim/agent"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// 信号灯发布数据的键
const KeyLightState = "LightState"

// CreateAgent 注册运动物体并创建智能体
// 说明：ID由实体仓库分配，重复ID或容量耗尽说明调用方存在错误，直接panic
func (w *World) CreateAgent(bp agent.Blueprint) *agent.Agent {
	if w.agents == nil {
		log.Panicf("create agent before scenery")
	}
	object := w.data.AddMovingObject(bp.Type, worlddata.Pose{}, worlddata.Dimension{}, nil)
	a, err := w.agents.CreateAgent(object, bp)
	if err != nil {
		log.Panicf("create agent: %v", err)
	}
	return a
}

// SyncGlobalData 使本仿真步的修改生效
// 功能：清空车道上的运动物体，同步智能体集合，推进信号灯状态
// 参数：ctx-上下文（用于追踪），timestamp-当前仿真时间（毫秒）
func (w *World) SyncGlobalData(ctx context.Context, timestamp int64) {
	_, span := w.tracer.Start(ctx, "SyncGlobalData", trace.WithAttributes(attribute.Int64("timestamp", timestamp)))
	defer span.End()

	w.timestamp = timestamp
	w.data.ClearMovingObjects()
	w.agents.SyncGlobalData()
	w.lights.UpdateStates(timestamp)
	span.SetAttributes(attribute.Int("agents", w.agents.Len()))
}

// PublishGlobalData 发布全部智能体数据与信号灯状态
// 说明：信号灯以KeyLightState发布，值为状态名
func (w *World) PublishGlobalData(publish agent.Publisher) {
	w.agents.PublishGlobalData(publish)
	for _, l := range w.data.TrafficLights() {
		publish(l.Id(), KeyLightState, l.State().String())
	}
}

// Reset 移除全部智能体与运动物体，运动物体的ID从头分配
func (w *World) Reset() {
	w.data.Reset()
	w.agents = agent.NewNetwork(w.data, w.localizer, w.bounds)
}

// RemovedAgents 上一次同步中离开世界的智能体
func (w *World) RemovedAgents() []entity.Id {
	return w.agents.GetRemovedAgentsInPreviousTimestep()
}
