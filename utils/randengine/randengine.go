// Package randengine 带种子的随机数引擎，包装golang.org/x/exp/rand
package randengine

import (
	"flag"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset")

	log = logrus.WithField("module", "randengine")
)

// Engine 随机数引擎（非线程安全）
type Engine struct {
	*rand.Rand
}

// New 以seed加上命令行种子偏移量创建随机数引擎
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// DiscreteDistribution 按权重抽取下标
// 参数：weight-非负权重，总和必须大于0
// 返回：[0, len(weight))内的下标，抽中i的概率为weight[i]/sum(weight)
func (e *Engine) DiscreteDistribution(weight []float64) int {
	total := lo.Sum(weight)
	if total <= 0 {
		log.Panicf("discrete distribution over non-positive total weight %f", total)
	}
	target := total * e.Float64()
	sum := 0.
	for i, w := range weight {
		sum += w
		if sum > target {
			return i
		}
	}
	// 浮点误差导致没有命中时取最后一个正权重
	_, last, _ := lo.FindLastIndexOf(weight, func(w float64) bool { return w > 0 })
	return last
}

// Uniform [low, high)内的均匀分布
func (e *Engine) Uniform(low, high float64) float64 {
	return low + (high-low)*e.Float64()
}

// Jitter 以mean为均值、mean*ratio为标准差的正态扰动，截断在两倍标准差内
func (e *Engine) Jitter(mean, ratio float64) float64 {
	k := lo.Clamp(e.NormFloat64()*ratio, -2*ratio, 2*ratio)
	return mean * (1 + k)
}
