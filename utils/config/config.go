package config

const (
	DefaultSamplingRate  = 0.1
	DefaultEpsilon       = 1e-3
	DefaultCapacity      = 1000000
	DefaultDesiredSpeed  = 13.9
	DefaultVehicleLength = 4.5
	DefaultVehicleWidth  = 1.8
	DefaultSampleRatio   = 1.0
	// DefaultBoundsPadding 未配置世界范围时路网包围盒的外扩距离
	DefaultBoundsPadding = 10.0
)

// RuntimeConfig 运行时配置
// 功能：存储仿真运行时的配置信息，缺省项已填充默认值
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：创建运行时配置对象并填充默认值
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
// 算法说明：
// 1. 世界模型：采样间隔0.1米，容差1e-3，各分组ID容量1e6
// 2. 演示交通流：期望速度13.9米/秒，车辆4.5米×1.8米
// 3. 追踪：采样率1，导出到stdout
func NewRuntimeConfig(config Config) *RuntimeConfig {
	w := &config.World
	w.SamplingRate = orDefault(w.SamplingRate, DefaultSamplingRate)
	w.Epsilon = orDefault(w.Epsilon, DefaultEpsilon)
	w.MovingCapacity = orDefault(w.MovingCapacity, DefaultCapacity)
	w.StationaryCapacity = orDefault(w.StationaryCapacity, DefaultCapacity)
	w.OthersCapacity = orDefault(w.OthersCapacity, DefaultCapacity)

	t := &config.Traffic
	t.DesiredSpeed = orDefault(t.DesiredSpeed, DefaultDesiredSpeed)
	t.VehicleLength = orDefault(t.VehicleLength, DefaultVehicleLength)
	t.VehicleWidth = orDefault(t.VehicleWidth, DefaultVehicleWidth)

	tr := &config.Tracing
	tr.SampleRatio = orDefault(tr.SampleRatio, DefaultSampleRatio)
	if tr.Exporter == "" {
		tr.Exporter = "stdout"
	}

	return &RuntimeConfig{
		All: config,
		C:   config.Control,
	}
}

func orDefault[T uint64 | float64](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
