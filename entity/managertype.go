package entity

import "context"

// 仿真任务所用模块的依赖倒置

// driver.Driver的依赖倒置
type IBehavior interface {
	// 规划本步运动，修改请求在下一次同步时生效
	Step(dt float64)
}

// output.Telemetry的依赖倒置
type IPublisher interface {
	Publish(id Id, key string, value any) // 发布一项数据
	ObserveStep(agents int, removed []Id) // 记录一次同步的结果
}

// output.MongoSink的依赖倒置
type IFlusher interface {
	Flush(ctx context.Context) error // 写入缓存的记录
	Close(ctx context.Context) error // 写入剩余记录并释放连接
}
