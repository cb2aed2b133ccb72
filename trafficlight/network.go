package trafficlight

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

var (
	// ErrUnknownSignal 相位引用了不存在的信号
	ErrUnknownSignal = errors.New("unknown signal")
	// ErrNotATrafficLight 相位引用的信号不是信号灯
	ErrNotATrafficLight = errors.New("signal is not a traffic light")
)

// ILight 可被控制器设置状态的信号灯
type ILight interface {
	Id() entity.Id
	SetState(state entity.TrafficLightState)
}

// LightState 相位中一个信号灯的状态
type LightState struct {
	Light ILight
	State entity.TrafficLightState
}

// Phase 相位
type Phase struct {
	Duration int64 // ms
	States   []LightState
}

// Controller 信号控制器
// 说明：相位只由时间推进，不与其他控制器协调
type Controller struct {
	id     string
	phases []Phase
	delay  int64
	cycle  int64
	active int
}

// NewController 创建控制器并立即应用第一个相位
// 参数：id-控制器ID，phases-相位序列，delay-首个相位开始循环前的保持时间（ms）
func NewController(id string, phases []Phase, delay int64) (*Controller, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("controller %s has no phase", id)
	}
	for i, p := range phases {
		if p.Duration <= 0 {
			return nil, fmt.Errorf("controller %s phase %d has non-positive duration %d", id, i, p.Duration)
		}
	}
	c := &Controller{
		id:     id,
		phases: phases,
		delay:  delay,
		cycle:  lo.SumBy(phases, func(p Phase) int64 { return p.Duration }),
	}
	c.apply(0)
	return c, nil
}

func (c *Controller) Id() string {
	return c.id
}

// ActivePhase 当前相位下标
func (c *Controller) ActivePhase() int {
	return c.active
}

// PhaseAt 时刻time（ms）对应的相位下标
// 说明：time-delay小于0时保持第一个相位，之后按周期循环
func (c *Controller) PhaseAt(time int64) int {
	t := time - c.delay
	if t < 0 {
		return 0
	}
	t %= c.cycle
	for i, p := range c.phases {
		if t < p.Duration {
			return i
		}
		t -= p.Duration
	}
	return len(c.phases) - 1
}

// UpdateStates 将当前相位规定的状态写入各信号灯
func (c *Controller) UpdateStates(time int64) {
	index := c.PhaseAt(time)
	if index != c.active {
		log.Debugf("controller %s switches to phase %d at %dms", c.id, index, time)
	}
	c.apply(index)
}

func (c *Controller) apply(index int) {
	c.active = index
	for _, s := range c.phases[index].States {
		s.Light.SetState(s.State)
	}
}

// Network 信号控制器集合
type Network struct {
	controllers []*Controller
}

func NewNetwork() *Network {
	return &Network{}
}

func (n *Network) AddController(c *Controller) {
	n.controllers = append(n.controllers, c)
}

func (n *Network) Controllers() []*Controller {
	return n.controllers
}

// UpdateStates 更新全部控制器
func (n *Network) UpdateStates(time int64) {
	for _, c := range n.controllers {
		c.UpdateStates(time)
	}
}
