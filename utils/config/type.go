package config

// InputPath 指定输入数据来源的配置（MongoDB、文件系统）
// 功能：定义数据输入路径的配置结构，支持多种数据源
// 说明：文件优先于MongoDB，MongoDB的下载结果写入本地缓存
type InputPath struct {
	DB        string `yaml:"db"`                   // 数据库名
	Col       string `yaml:"col"`                  // 集合名
	Cache     string `yaml:"cache,omitempty"`      // 缓存文件名，为空则采用默认路径{db}.{col}.yaml
	OnlyCache bool   `yaml:"only_cache,omitempty"` // 只从缓存中获取
	File      string `yaml:"file,omitempty"`       // 路网描述YAML文件路径（优先级高于MongoDB）
}

func (p InputPath) GetDb() string {
	return p.DB
}

func (p InputPath) GetColl() string {
	return p.Col
}

// GetCachePath 缓存文件路径，未指定时为{db}.{col}.yaml
func (p InputPath) GetCachePath() string {
	if p.Cache != "" {
		return p.Cache
	}
	return p.DB + "." + p.Col + ".yaml"
}

// Input 模拟器输入数据
type Input struct {
	URI     string    `yaml:"uri,omitempty"` // MongoDB连接字符串
	Scenery InputPath `yaml:"scenery"`       // 路网描述
}

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 模拟器控制配置
type Control struct {
	Step ControlStep `yaml:"step"`
}

// Bounds 世界范围
type Bounds struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
}

// World 世界模型参数
// 说明：零值表示使用默认值
type World struct {
	SamplingRate       float64 `yaml:"sampling_rate,omitempty"` // 车道几何采样间隔（米）
	Epsilon            float64 `yaml:"epsilon,omitempty"`       // 几何比较容差
	MovingCapacity     uint64  `yaml:"moving_capacity,omitempty"`
	StationaryCapacity uint64  `yaml:"stationary_capacity,omitempty"`
	OthersCapacity     uint64  `yaml:"others_capacity,omitempty"`
	Bounds             *Bounds `yaml:"bounds,omitempty"` // 为空时取路网包围盒外扩10米
}

// Traffic 演示交通流参数
type Traffic struct {
	Seed          uint64  `yaml:"seed"`
	SpawnCount    int     `yaml:"spawn_count"`
	DesiredSpeed  float64 `yaml:"desired_speed,omitempty"`  // 期望速度（米/秒）
	VehicleLength float64 `yaml:"vehicle_length,omitempty"` // 车长（米）
	VehicleWidth  float64 `yaml:"vehicle_width,omitempty"`  // 车宽（米）
}

// EntitySink 实体注册记录写入的MongoDB集合
type EntitySink struct {
	URI string `yaml:"uri"`
	DB  string `yaml:"db"`
	Col string `yaml:"col"`
}

// GroundTruth 真值快照输出
type GroundTruth struct {
	File   string  `yaml:"file"`
	Host   *uint64 `yaml:"host,omitempty"`   // 快照中心的智能体ID，为空时取ID最小的智能体
	Radius float64 `yaml:"radius,omitempty"` // 不大于0时输出全部
}

// Output 输出配置
type Output struct {
	EntitySink    *EntitySink  `yaml:"entity_sink,omitempty"`
	MetricsListen string       `yaml:"metrics_listen,omitempty"` // Prometheus监听地址
	GroundTruth   *GroundTruth `yaml:"ground_truth,omitempty"`
}

// Tracing OpenTelemetry配置
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter,omitempty"` // 目前只支持stdout
	Endpoint    string  `yaml:"endpoint,omitempty"`
	SampleRatio float64 `yaml:"sample_ratio,omitempty"`
}

// Config YAML配置文件的根结构
type Config struct {
	Input   Input   `yaml:"input"`   // 输入
	Control Control `yaml:"control"` // 模拟过程控制
	World   World   `yaml:"world"`
	Traffic Traffic `yaml:"traffic"`
	Output  Output  `yaml:"output"`
	Tracing Tracing `yaml:"tracing"`
}
