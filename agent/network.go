package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/localization"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/container"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// ErrDuplicateId 智能体ID重复
var ErrDuplicateId = errors.New("duplicate agent id")

// 发布数据的键
const (
	KeyXPosition    = "XPosition"
	KeyYPosition    = "YPosition"
	KeyVelocity     = "VelocityEgo"
	KeyAcceleration = "AccelerationEgo"
	KeyYaw          = "YawAngle"
	KeyRoad         = "Road"
	KeyLane         = "Lane"
	KeyS            = "PositionRoute"
	KeyT            = "TCoordinate"
)

// Publisher 接收一个智能体的一项数据
type Publisher func(id entity.Id, key string, value any)

// Network 智能体集合
// 功能：仿真步内只记录对智能体的修改与删除请求，SyncGlobalData时统一生效并重新定位全部智能体
// 说明：排队可以并发调用，其余操作只在仿真主线程调用
type Network struct {
	world     *worlddata.WorldData
	localizer *localization.Localizer
	bounds    orb.Bound

	data   map[entity.Id]*Agent
	agents *container.IncrementalArray[*Agent]

	updates  container.Queue[func()]
	removals container.Queue[entity.Id]
	queueMtx sync.Mutex

	removedInPreviousStep []entity.Id
}

// NewNetwork 创建智能体集合
// 参数：bounds-世界范围，不在路网上且参考点超出范围的智能体会被移除
func NewNetwork(world *worlddata.WorldData, localizer *localization.Localizer, bounds orb.Bound) *Network {
	return &Network{
		world:     world,
		localizer: localizer,
		bounds:    bounds,
		data:      make(map[entity.Id]*Agent),
		agents:    container.NewIncrementalArray[*Agent](),
	}
}

// CreateAgent 为运动物体创建智能体并立即定位
// 返回：物体ID已有智能体时返回ErrDuplicateId，已有的智能体不受影响
func (n *Network) CreateAgent(object *worlddata.Object, bp Blueprint) (*Agent, error) {
	if _, ok := n.data[object.Id()]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateId, object.Id())
	}
	a := newAgent(object, n.localizer, bp)
	n.data[a.Id()] = a
	n.agents.Add(a)
	if !a.Locate() {
		log.Warnf("agent %v created off road", a)
	}
	return a, nil
}

// GetAgent 根据ID获取智能体，如果不存在则panic
func (n *Network) GetAgent(id entity.Id) *Agent {
	a, ok := n.data[id]
	if !ok {
		log.Panicf("no id %d in agent data", id)
	}
	return a
}

// GetAgentOrError 根据ID获取智能体，如果不存在则返回错误
func (n *Network) GetAgentOrError(id entity.Id) (*Agent, error) {
	a, ok := n.data[id]
	if !ok {
		return nil, fmt.Errorf("no id %d in agent data", id)
	}
	return a, nil
}

// GetAgents 按ID升序的全部智能体
func (n *Network) GetAgents() []*Agent {
	agents := lo.Values(n.data)
	sort.Slice(agents, func(i, j int) bool { return agents[i].Id() < agents[j].Id() })
	return agents
}

func (n *Network) Len() int {
	return len(n.data)
}

// QueueAgentUpdate 记录修改请求，SyncGlobalData时按提交顺序执行
func (n *Network) QueueAgentUpdate(update func()) {
	n.queueMtx.Lock()
	defer n.queueMtx.Unlock()
	n.updates.Push(update)
}

// QueueAgentRemove 记录删除请求，SyncGlobalData时在全部修改之后执行
func (n *Network) QueueAgentRemove(id entity.Id) {
	n.queueMtx.Lock()
	defer n.queueMtx.Unlock()
	n.removals.Push(id)
}

// GetRemovedAgentsInPreviousTimestep 上一次同步中因离开世界被移除的智能体，读取后清空
func (n *Network) GetRemovedAgentsInPreviousTimestep() []entity.Id {
	removed := n.removedInPreviousStep
	n.removedInPreviousStep = nil
	return removed
}

func (n *Network) remove(id entity.Id) bool {
	a, ok := n.data[id]
	if !ok {
		log.Warnf("remove unknown agent %d", id)
		return false
	}
	delete(n.data, id)
	n.agents.Remove(a)
	n.world.RemoveMovingObject(id)
	return true
}

// isInWorld 智能体在路网上，或参考点在世界范围内
func (n *Network) isInWorld(a *Agent) bool {
	if a.IsOnRoute() {
		return true
	}
	p := a.ReferencePoint()
	return n.bounds.Contains(orb.Point{p.X, p.Y})
}

// SyncGlobalData 使本仿真步的修改生效
// 算法说明：
// 1. 按提交顺序执行全部修改请求
// 2. 执行全部删除请求
// 3. 全部剩余智能体先解除定位再重新定位，定位失败只记录警告，智能体保持原状态
// 4. 不在世界内的智能体按删除流程移除，并记入上一步移除列表
func (n *Network) SyncGlobalData() {
	n.queueMtx.Lock()
	updates, removals := n.updates.Drain(), n.removals.Drain()
	n.queueMtx.Unlock()

	for _, update := range updates {
		update()
	}
	for _, id := range removals {
		n.remove(id)
	}
	n.agents.Prepare()

	for _, a := range n.agents.Data() {
		a.Unlocate()
	}
	outside := make([]*Agent, 0)
	for _, a := range n.agents.Data() {
		if !a.Locate() {
			log.Warnf("could not relocate agent %v", a)
		}
		if !n.isInWorld(a) {
			outside = append(outside, a)
		}
	}
	for _, a := range outside {
		if n.remove(a.Id()) {
			n.removedInPreviousStep = append(n.removedInPreviousStep, a.Id())
		}
	}
	n.agents.Prepare()
	log.Debugf("synced %d agents: %d updates, %d removals, %d left the world",
		n.agents.Len(), len(updates), len(removals), len(outside))
}

// PublishGlobalData 发布每个智能体的位置、速度与道路坐标
func (n *Network) PublishGlobalData(publish Publisher) {
	for _, a := range n.agents.Data() {
		id := a.Id()
		p := a.ReferencePoint()
		publish(id, KeyXPosition, p.X)
		publish(id, KeyYPosition, p.Y)
		publish(id, KeyVelocity, a.Velocity())
		publish(id, KeyAcceleration, a.Acceleration())
		publish(id, KeyYaw, a.Yaw())
		if pos, ok := a.RoadPosition(); ok {
			publish(id, KeyRoad, pos.RoadId)
			publish(id, KeyLane, pos.LaneId)
			publish(id, KeyS, pos.RoadPosition.S)
			publish(id, KeyT, pos.RoadPosition.T)
		}
	}
}
