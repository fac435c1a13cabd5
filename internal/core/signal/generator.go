// Package signal 实现基于 z-score 的均值回归信号状态机。
package signal

import (
	"mean-reversion-backtester/internal/core/model"
	"mean-reversion-backtester/internal/stats/rolling"
)

// DefaultThreshold 默认入场阈值（z-score 绝对值）
const DefaultThreshold = 2.5

// Generator 信号生成器
// 三状态机 {FLAT, LONG, SHORT}，初始 FLAT；每个回测实例独立创建，
// 避免状态混用。阈值要求为正数，非正阈值的行为未定义
// （配置层在启动前拒绝，但直接构造时不做检查）。
type Generator struct {
	// threshold 入场阈值 θ
	threshold float64
	// current 当前信号状态
	current model.Signal
	// lastZ 最近一次计算的 z-score，用于诊断
	lastZ float64
}

// NewGenerator 创建信号生成器
// 参数 threshold: 入场阈值 θ（正数）
func NewGenerator(threshold float64) *Generator {
	return &Generator{
		threshold: threshold,
		current:   model.SignalFlat,
	}
}

// Generate 基于当前价格与滚动统计推进状态机
// 统计量未就绪时保持 FLAT 且不改变状态。
// 状态转移（z = stats.Zscore(price)）：
//   - FLAT → LONG  当 z < -θ（严格不等）
//   - FLAT → SHORT 当 z > +θ（严格不等）
//   - LONG → FLAT  当 z >= 0（z 恰为 0 即平仓）
//   - SHORT → FLAT 当 z <= 0
//
// 单次调用至多发生一次转移，不存在 LONG↔SHORT 直接切换。
// 返回: 推进后的当前信号
func (g *Generator) Generate(price float64, stats *rolling.Stats) model.Signal {
	if !stats.Ready() {
		return model.SignalFlat
	}

	z := stats.Zscore(price)
	g.lastZ = z

	switch g.current {
	case model.SignalFlat:
		if z < -g.threshold {
			g.current = model.SignalLong
		} else if z > g.threshold {
			g.current = model.SignalShort
		}
	case model.SignalLong:
		if z >= 0 {
			g.current = model.SignalFlat
		}
	case model.SignalShort:
		if z <= 0 {
			g.current = model.SignalFlat
		}
	}

	return g.current
}

// Current 获取当前信号状态
func (g *Generator) Current() model.Signal {
	return g.current
}

// LastZscore 获取最近一次计算的 z-score
func (g *Generator) LastZscore() float64 {
	return g.lastZ
}

// Threshold 获取入场阈值
func (g *Generator) Threshold() float64 {
	return g.threshold
}

// SetThreshold 设置入场阈值
// 参数 threshold: 新阈值（正数）
func (g *Generator) SetThreshold(threshold float64) {
	g.threshold = threshold
}

// Reset 重置状态机到初始 FLAT 状态
// 用于同一生成器的第二次回测遍历
func (g *Generator) Reset() {
	g.current = model.SignalFlat
	g.lastZ = 0
}
