package scenery

import (
	"fmt"

	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

const (
	// DefaultSamplingRate 车道几何默认采样间隔
	DefaultSamplingRate = 0.1
	// DefaultEpsilon 标线位置比较的默认容差
	DefaultEpsilon = 1e-3
	// defaultCountry 路网未指定国家时的信号类型表
	defaultCountry = "DE"
)

// Options 转换参数
type Options struct {
	SamplingRate float64
	Epsilon      float64
}

func (o Options) withDefaults() Options {
	if o.SamplingRate <= 0 {
		o.SamplingRate = DefaultSamplingRate
	}
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	return o
}

// Converter 将路网描述一次性转换为世界数据
// 说明：转换依赖步骤顺序，ConvertRoads只能调用一次
type Converter struct {
	scenery *opendrive.Scenery
	world   *worlddata.WorldData
	options Options

	directions    map[string]bool                              // 道路ID -> 是否保持原方向
	sectionIndex  map[*opendrive.LaneSection]int               // 全路网车道段编号
	sections      map[*opendrive.LaneSection]*worlddata.Section // 车道段对应
	lanes         map[*opendrive.Lane]*worlddata.Lane           // 车道对应
	outer         map[*opendrive.Lane][]*worlddata.LaneBoundary // 车道外侧边界
	center        map[*opendrive.LaneSection][]*worlddata.LaneBoundary
	supplementary []pendingSignal
}

// NewConverter 创建转换器
func NewConverter(scenery *opendrive.Scenery, world *worlddata.WorldData, options Options) *Converter {
	scenery.BuildIndex()
	return &Converter{
		scenery:      scenery,
		world:        world,
		options:      options.withDefaults(),
		directions:   make(map[string]bool),
		sectionIndex: make(map[*opendrive.LaneSection]int),
		sections:     make(map[*opendrive.LaneSection]*worlddata.Section),
		lanes:        make(map[*opendrive.Lane]*worlddata.Lane),
		outer:        make(map[*opendrive.Lane][]*worlddata.LaneBoundary),
		center:       make(map[*opendrive.LaneSection][]*worlddata.LaneBoundary),
	}
}

// World 转换目标
func (c *Converter) World() *worlddata.WorldData {
	return c.world
}

// ConvertRoads 执行全部转换步骤
// 功能：方向统一、车道段编号、创建道路、连接、几何采样、物体与信号、路口相交预计算
// 返回：任一结构性错误（缺失道路、未定义接触点、空车道段、自引用、几何缺失）
func (c *Converter) ConvertRoads() error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"mark directions", c.MarkDirections},
		{"index sections", c.IndexSections},
		{"create roads", c.CreateRoads},
		{"connect roads", c.ConnectRoads},
		{"sample geometry", c.SampleGeometry},
		{"create objects", c.CreateObjects},
		{"create signals", c.CreateRoadSignals},
		{"junction intersections", c.CreateJunctionIntersections},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		log.Infof("scenery %q: %s done", c.scenery.Header.Name, step.name)
	}
	return nil
}

// IndexSections 为所有车道段分配全路网唯一的顺序编号
func (c *Converter) IndexSections() error {
	index := 0
	for _, road := range c.scenery.Roads {
		for _, sec := range road.Sections {
			c.sectionIndex[sec] = index
			index++
		}
	}
	return nil
}

func (c *Converter) getRoad(id string) (*opendrive.Road, error) {
	road, ok := c.scenery.GetRoad(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRoad, id)
	}
	return road, nil
}

func (c *Converter) worldRoad(id string) (*worlddata.Road, error) {
	road, ok := c.world.GetRoadByOdId(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRoad, id)
	}
	return road, nil
}
