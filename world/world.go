// Package world 组装世界模型：场景转换、定位、路网图、智能体集合与信号灯网络
package world

import (
	"context"
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/paulmach/orb"
	"github.com/tsinghua-fib-lab/osi-world-sim/agent"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity/repository"
	"github.com/tsinghua-fib-lab/osi-world-sim/localization"
	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/query"
	"github.com/tsinghua-fib-lab/osi-world-sim/roadgraph"
	"github.com/tsinghua-fib-lab/osi-world-sim/scenery"
	"github.com/tsinghua-fib-lab/osi-world-sim/trafficlight"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/config"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/tracing"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Options 世界模型参数
type Options struct {
	Capacities   repository.Capacities
	Sink         repository.ISink // 实体注册记录的写出目标，可以为nil
	Converter    scenery.Options
	Bounds       *orb.Bound // 世界范围，为空时取车道几何包围盒外扩BoundsPadding
	TurningRates []worlddata.TurningRate
}

// OptionsFromConfig 由配置生成世界模型参数
func OptionsFromConfig(c config.World, sink repository.ISink) Options {
	o := Options{
		Capacities: repository.Capacities{
			Moving:     c.MovingCapacity,
			Stationary: c.StationaryCapacity,
			Others:     c.OthersCapacity,
		},
		Sink:      sink,
		Converter: scenery.Options{SamplingRate: c.SamplingRate, Epsilon: c.Epsilon},
	}
	if c.Bounds != nil {
		o.Bounds = &orb.Bound{
			Min: orb.Point{c.Bounds.MinX, c.Bounds.MinY},
			Max: orb.Point{c.Bounds.MaxX, c.Bounds.MaxY},
		}
	}
	return o
}

// World 世界模型
// 功能：持有世界数据与其上的定位器、查询层、智能体集合和信号灯网络
// 说明：CreateScenery之前只有世界数据可用；全部方法只在仿真主线程调用
type World struct {
	options Options

	data      *worlddata.WorldData
	localizer *localization.Localizer
	roadGraph *roadgraph.Graph
	query     *query.Query
	agents    *agent.Network
	lights    *trafficlight.Network
	bounds    orb.Bound

	timestamp int64 // 最近一次同步的仿真时间（毫秒）
	tracer    trace.Tracer
}

// New 创建空的世界模型
func New(options Options) *World {
	if options.Capacities == (repository.Capacities{}) {
		options.Capacities = repository.DefaultCapacities
	}
	return &World{
		options: options,
		data:    worlddata.New(repository.New(options.Capacities, options.Sink)),
		tracer:  tracing.Tracer("world"),
	}
}

// CreateScenery 由路网描述构建世界
// 功能：按固定顺序完成场景转换与各组件初始化
// 参数：ctx-上下文（用于追踪），s-路网描述
// 返回：任一结构性错误，此时世界不可用于仿真
// 算法说明：
// 1. 场景转换写入世界数据
// 2. 由完整的世界数据建立定位器，并定位全部静止物体
// 3. 由道路连接关系建立路网图，设置转向权重
// 4. 由信号控制器建立信号灯网络
// 5. 确定世界范围并建立智能体集合
func (w *World) CreateScenery(ctx context.Context, s *opendrive.Scenery) error {
	if w.localizer != nil {
		log.Panicf("scenery already created")
	}
	ctx, span := w.tracer.Start(ctx, "CreateScenery", trace.WithAttributes(
		attribute.String("scenery", s.Header.Name),
		attribute.Int("roads", len(s.Roads)),
	))
	defer span.End()

	if err := w.step(ctx, "ConvertRoads", func() error {
		return scenery.NewConverter(s, w.data, w.options.Converter).ConvertRoads()
	}); err != nil {
		return err
	}
	_ = w.step(ctx, "InitLocalizer", func() error {
		w.localizer = localization.New(w.data)
		w.locateStationaryObjects()
		return nil
	})
	_ = w.step(ctx, "BuildRoadNetwork", func() error {
		w.roadGraph = scenery.BuildRoadNetwork(s)
		w.data.SetTurningRates(w.options.TurningRates)
		return nil
	})
	if err := w.step(ctx, "BuildTrafficLightNetwork", func() (err error) {
		w.lights, err = scenery.BuildTrafficLightNetwork(s, w.data)
		return
	}); err != nil {
		return err
	}

	w.query = query.New(w.data)
	w.bounds = w.worldBounds()
	w.agents = agent.NewNetwork(w.data, w.localizer, w.bounds)
	log.Infof("world created: %d roads, %d lanes, %d junctions, bounds %v-%v",
		len(w.data.Roads()), len(w.data.Lanes()), len(w.data.Junctions()), w.bounds.Min, w.bounds.Max)
	return nil
}

// step 在子span中执行一个构建步骤
func (w *World) step(ctx context.Context, name string, run func() error) error {
	_, span := w.tracer.Start(ctx, name)
	defer span.End()
	if err := run(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("create scenery: %w", err)
	}
	return nil
}

// locateStationaryObjects 把静止物体分配到其覆盖的车道上
func (w *World) locateStationaryObjects() {
	offRoad := 0
	for _, o := range w.data.StationaryObjects() {
		pose, dim := o.Pose(), o.Dimension()
		result := w.localizer.Locate(localization.Target{
			Polygon:         localization.GetBoundingBox(pose.Position.X, pose.Position.Y, dim.Length, dim.Width, pose.Yaw, dim.Length/2),
			ReferencePoint:  pose.Position,
			MainLocatePoint: pose.Position,
			Heading:         pose.Yaw,
		}, o)
		if !result.IsOnRoute {
			offRoad++
		}
	}
	log.Infof("located %d stationary objects, %d off road", len(w.data.StationaryObjects()), offRoad)
}

// worldBounds 配置的世界范围，或车道几何包围盒外扩
func (w *World) worldBounds() orb.Bound {
	if w.options.Bounds != nil {
		return *w.options.Bounds
	}
	min, max := w.data.Bounds()
	if min.X > max.X {
		return orb.Bound{}
	}
	pad := config.DefaultBoundsPadding
	return orb.Bound{
		Min: orb.Point{min.X - pad, min.Y - pad},
		Max: orb.Point{max.X + pad, max.Y + pad},
	}
}

func (w *World) Data() *worlddata.WorldData {
	return w.data
}

func (w *World) Localizer() *localization.Localizer {
	return w.localizer
}

// RoadGraph 完整路网图
func (w *World) RoadGraph() *roadgraph.Graph {
	return w.roadGraph
}

func (w *World) Query() *query.Query {
	return w.query
}

func (w *World) Agents() *agent.Network {
	return w.agents
}

func (w *World) TrafficLights() *trafficlight.Network {
	return w.lights
}

// Bounds 判断智能体是否离开世界时使用的范围
func (w *World) Bounds() orb.Bound {
	return w.bounds
}

// Timestamp 最近一次同步的仿真时间（毫秒）
func (w *World) Timestamp() int64 {
	return w.timestamp
}

// LocatePoint 点在各道路上的道路坐标
func (w *World) LocatePoint(p geometry.Point, heading float64) entity.GlobalRoadPositions {
	return w.localizer.LocatePoint(p, heading)
}
