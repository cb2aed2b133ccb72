package output

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

type labelKey struct {
	id  entity.Id
	key string
}

// Telemetry 每步发布的遥测数据，以Prometheus指标暴露
// 说明：数值以osi_entity_value{entity,key}发布；字符串以osi_entity_label{entity,key,value}=1发布，
// 同一键的旧值会被替换
type Telemetry struct {
	gatherer prometheus.Gatherer

	values  *prometheus.GaugeVec
	labels  *prometheus.GaugeVec
	steps   prometheus.Counter
	agents  prometheus.Gauge
	removed prometheus.Counter

	mtx       sync.Mutex
	lastLabel map[labelKey]string
}

// NewTelemetry 在reg上注册遥测指标，reg为nil时使用全局注册表
func NewTelemetry(reg prometheus.Registerer) (*Telemetry, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	values, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "osi_entity_value",
		Help: "Latest published scalar value per entity and key.",
	}, []string{"entity", "key"}), "osi_entity_value")
	if err != nil {
		return nil, err
	}
	labels, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "osi_entity_label",
		Help: "Latest published string value per entity and key, always 1.",
	}, []string{"entity", "key", "value"}), "osi_entity_label")
	if err != nil {
		return nil, err
	}
	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osi_steps_total",
		Help: "Number of synchronized simulation steps.",
	}), "osi_steps_total")
	if err != nil {
		return nil, err
	}
	agents, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "osi_agents",
		Help: "Number of agents after the latest synchronization.",
	}), "osi_agents")
	if err != nil {
		return nil, err
	}
	removed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osi_agents_left_world_total",
		Help: "Number of agents removed because they left the world.",
	}), "osi_agents_left_world_total")
	if err != nil {
		return nil, err
	}
	return &Telemetry{
		gatherer:  gatherer,
		values:    values,
		labels:    labels,
		steps:     steps,
		agents:    agents,
		removed:   removed,
		lastLabel: make(map[labelKey]string),
	}, nil
}

// Publish 发布一项数据，签名与agent.Publisher一致
func (t *Telemetry) Publish(id entity.Id, key string, value any) {
	entityLabel := strconv.FormatUint(uint64(id), 10)
	switch v := value.(type) {
	case float64:
		t.values.WithLabelValues(entityLabel, key).Set(v)
	case int:
		t.values.WithLabelValues(entityLabel, key).Set(float64(v))
	case int64:
		t.values.WithLabelValues(entityLabel, key).Set(float64(v))
	case bool:
		f := 0.0
		if v {
			f = 1
		}
		t.values.WithLabelValues(entityLabel, key).Set(f)
	case string:
		t.setLabel(id, entityLabel, key, v)
	default:
		t.setLabel(id, entityLabel, key, fmt.Sprint(v))
	}
}

func (t *Telemetry) setLabel(id entity.Id, entityLabel, key, value string) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	k := labelKey{id, key}
	if last, ok := t.lastLabel[k]; ok {
		if last == value {
			return
		}
		t.labels.DeleteLabelValues(entityLabel, key, last)
	}
	t.lastLabel[k] = value
	t.labels.WithLabelValues(entityLabel, key, value).Set(1)
}

// Forget 删除实体的全部指标
func (t *Telemetry) Forget(id entity.Id) {
	entityLabel := strconv.FormatUint(uint64(id), 10)
	t.values.DeletePartialMatch(prometheus.Labels{"entity": entityLabel})
	t.labels.DeletePartialMatch(prometheus.Labels{"entity": entityLabel})
	t.mtx.Lock()
	defer t.mtx.Unlock()
	for k := range t.lastLabel {
		if k.id == id {
			delete(t.lastLabel, k)
		}
	}
}

// ObserveStep 记录一次同步后的智能体数量与离开世界的智能体
func (t *Telemetry) ObserveStep(agents int, removed []entity.Id) {
	t.steps.Inc()
	t.agents.Set(float64(agents))
	t.removed.Add(float64(len(removed)))
	for _, id := range removed {
		t.Forget(id)
	}
}

// Handler /metrics处理器
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.gatherer, promhttp.HandlerOpts{})
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}
