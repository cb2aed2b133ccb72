package task

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"git.fiblab.net/sim/syncer/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tsinghua-fib-lab/osi-world-sim/clock"
	"github.com/tsinghua-fib-lab/osi-world-sim/driver"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity/repository"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/config"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/input"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/output"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/randengine"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/tracing"
	"github.com/tsinghua-fib-lab/osi-world-sim/world"
)

const closeTimeout = 5 * time.Second

// Context 仿真任务上下文
// 功能：持有一次仿真任务的时钟、世界模型、驾驶员与各类输出
type Context struct {
	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool

	clock *clock.Clock

	// 辅助程序，处理与syncer的交互并提供RPC服务，可以为nil（只能单步调用）
	sidecar        *syncer.Sidecar
	sidecarServing bool
	sidecarCloseCh chan struct{}
	// 缓存文件夹
	cacheDir string

	runtimeConfig *config.RuntimeConfig
	initRes       *input.Input

	world    *world.World
	engine   *randengine.Engine
	behavior entity.IBehavior

	telemetry       *output.Telemetry
	publisher       entity.IPublisher
	sink            entity.IFlusher
	groundTruth     *output.GroundTruthWriter
	metricsServer   *http.Server
	shutdownTracing tracing.ShutdownFunc
}

// NewContext 创建仿真任务上下文
// 参数：
//   - job: 任务名称
//   - cacheDir: 输入缓存目录
//   - c: 配置
//   - sidecar: sidecar实例，为nil时不注册RPC服务
//   - startSidecarServe: 是否启动sidecar服务
//
// 算法说明：
// 1. 填充配置默认值，创建时钟
// 2. 初始化追踪与遥测，按配置启动/metrics服务
// 3. 按配置创建实体记录写出目标与真值快照文件
// 4. 加载路网描述，创建空的世界模型
// 5. 注册时钟服务并启动sidecar
func NewContext(
	job string,
	cacheDir string,
	c config.Config,
	sidecar *syncer.Sidecar,
	startSidecarServe bool,
) *Context {
	ctx := &Context{
		job:            job,
		cacheDir:       cacheDir,
		sidecar:        sidecar,
		sidecarCloseCh: make(chan struct{}),
	}
	ctx.runtimeConfig = config.NewRuntimeConfig(c)
	all := ctx.runtimeConfig.All
	ctx.clock = clock.New(all.Control.Step)

	shutdown, err := tracing.Init(context.Background(), all.Tracing, nil)
	if err != nil {
		log.Panicf("failed to init tracing: %v", err)
	}
	ctx.shutdownTracing = shutdown

	registry := prometheus.NewRegistry()
	if ctx.telemetry, err = output.NewTelemetry(registry); err != nil {
		log.Panicf("failed to init telemetry: %v", err)
	}
	ctx.publisher = ctx.telemetry
	if addr := all.Output.MetricsListen; addr != "" {
		ctx.serveMetrics(addr)
	}

	var recordSink repository.ISink
	if c := all.Output.EntitySink; c != nil {
		s := output.NewMongoSink(*c)
		ctx.sink, recordSink = s, s
	}
	if c := all.Output.GroundTruth; c != nil {
		if ctx.groundTruth, err = output.CreateGroundTruthFile(c.File); err != nil {
			log.Panicf("failed to create ground truth file: %v", err)
		}
	}

	ctx.initRes = input.Init(all, ctx.cacheDir)
	ctx.world = world.New(world.OptionsFromConfig(all.World, recordSink))
	ctx.engine = randengine.New(all.Traffic.Seed)

	if ctx.sidecar != nil {
		ctx.clock.Register(ctx.sidecar, ctx.world.Timestamp)
		if startSidecarServe {
			ctx.sidecarServing = true
			go func() {
				if err := ctx.sidecar.Serve(); err != nil {
					log.Panicf("failed to serve: %v", err)
				}
				ctx.sidecarCloseCh <- struct{}{}
			}()
		}
	}
	return ctx
}

// serveMetrics 在addr上提供/metrics
func (ctx *Context) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", ctx.telemetry.Handler())
	ctx.metricsServer = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := ctx.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
	log.Infof("serving metrics on %s/metrics", addr)
}

func (ctx *Context) GetInput() *input.Input {
	return ctx.initRes
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) World() *world.World {
	return ctx.world
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// Init 创建路网与演示交通流
func (ctx *Context) Init() {
	ctx.clock.Init()

	s := ctx.initRes.Scenery
	log.Infof("Road: %v", len(s.Roads))
	log.Infof("Junction: %v", len(s.Junctions))
	log.Infof("Controller: %v", len(s.Controllers))

	if err := ctx.world.CreateScenery(context.Background(), s); err != nil {
		log.Panicf("failed to create scenery: %v", err)
	}
	traffic := ctx.runtimeConfig.All.Traffic
	agents := driver.Spawn(ctx.world, ctx.engine, traffic)
	ctx.behavior = driver.New(ctx.world, driver.ParamsFromConfig(traffic))
	log.Infof("Agent: %v", len(agents))
}

// Close 关闭sidecar并写出全部剩余输出
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	if ctx.sidecar != nil {
		ctx.sidecar.Close()
		if ctx.sidecarServing {
			// wait for graceful stop
			<-ctx.sidecarCloseCh
		}
	}

	c, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if ctx.sink != nil {
		if err := ctx.sink.Close(c); err != nil {
			log.Errorf("failed to close entity sink: %v", err)
		}
	}
	if ctx.groundTruth != nil {
		if err := ctx.groundTruth.Close(); err != nil {
			log.Errorf("failed to close ground truth file: %v", err)
		}
		log.Infof("wrote %d ground truth snapshots", ctx.groundTruth.Count())
	}
	if ctx.metricsServer != nil {
		if err := ctx.metricsServer.Shutdown(c); err != nil {
			log.Warnf("metrics server shutdown: %v", err)
		}
	}
	tracing.Shutdown(c, ctx.shutdownTracing)
}
