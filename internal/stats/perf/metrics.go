// Package perf 实现回测结果的绩效汇总。
// 在一次完整遍历结束后，从终态权益、成交日志与权益曲线推导
// 收益、波动率、夏普比率、胜率等汇总指标。
package perf

import (
	"math"

	"mean-reversion-backtester/internal/core/model"
)

// volEps 波动率下限
// 波动率不超过该值时夏普比率按 0 处理，避免除零
const volEps = 1e-10

// secondsPerYear 年化换算用的秒数（252 个交易日 × 86400 秒）
const secondsPerYear = 252 * 86400

// Metrics 回测绩效汇总
type Metrics struct {
	// TotalReturn 总收益率，= (终态权益 - 初始资金) / 初始资金
	TotalReturn float64 `json:"total_return"`
	// Volatility 年化波动率
	// 按权益采样收益率的总体标准差 × √(252×86400) 计算；
	// 该换算假设权益采样为 1 秒间隔，实际采样发生在仓位变化时刻，
	// 为沿用的已知简化，不得静默修正
	Volatility float64 `json:"volatility"`
	// SharpeRatio 年化夏普比率（无风险利率按 0）
	SharpeRatio float64 `json:"sharpe_ratio"`
	// MaxDrawdown 最大回撤，取值 [0, 1]
	MaxDrawdown float64 `json:"max_drawdown"`
	// WinRate 胜率，= 盈利笔数 / 总笔数（无成交时为 0）
	WinRate float64 `json:"win_rate"`
	// AvgTradeLengthSec 平均持仓时长（秒）
	AvgTradeLengthSec float64 `json:"avg_trade_length_sec"`
	// TicksPerSecond 按数据自身时间跨度计算的行情速率
	TicksPerSecond float64 `json:"ticks_per_second"`
	// TotalTrades 成交总笔数
	TotalTrades int `json:"total_trades"`
	// WinningTrades 盈利笔数（PnL > 0）
	WinningTrades int `json:"winning_trades"`
	// TotalTicks 处理的行情条数
	TotalTicks int64 `json:"total_ticks"`
}

// RunInput 绩效计算的输入
// 由执行引擎在遍历结束后填充
type RunInput struct {
	// InitialCapital 初始资金
	InitialCapital float64
	// FinalEquity 终态权益
	FinalEquity float64
	// MaxDrawdown 遍历期间在线维护的最大回撤
	MaxDrawdown float64
	// Trades 成交日志（按平仓顺序）
	Trades []model.Trade
	// EquityCurve 权益曲线（按事件采样）
	EquityCurve []model.EquityPoint
	// StartUs 首条行情时间戳（微秒）
	StartUs int64
	// EndUs 末条行情时间戳（微秒）
	EndUs int64
	// TickCount 处理的行情条数
	TickCount int64
}

// Calculate 从一次回测的终态推导绩效汇总
// 无成交时除最大回撤、行情条数与行情速率外全部为 0
func Calculate(in RunInput) Metrics {
	m := Metrics{
		MaxDrawdown: in.MaxDrawdown,
		TotalTicks:  in.TickCount,
	}
	m.TicksPerSecond = ticksPerSecond(in.StartUs, in.EndUs, in.TickCount)

	if len(in.Trades) == 0 {
		return m
	}

	m.TotalReturn = (in.FinalEquity - in.InitialCapital) / in.InitialCapital

	m.TotalTrades = len(in.Trades)
	var totalDurationUs float64
	for i := range in.Trades {
		if in.Trades[i].PnL > 0 {
			m.WinningTrades++
		}
		totalDurationUs += float64(in.Trades[i].DurationUs)
	}
	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	m.AvgTradeLengthSec = totalDurationUs / float64(m.TotalTrades) / 1e6

	m.Volatility = annualizedVolatility(in.EquityCurve)
	if m.Volatility > volEps {
		m.SharpeRatio = m.TotalReturn / m.Volatility * math.Sqrt(252.0)
	}

	return m
}

// annualizedVolatility 从权益曲线计算年化波动率
// 相邻权益对的简单收益率（要求前值为正）的总体方差开方后年化
func annualizedVolatility(curve []model.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev > 0 {
			returns = append(returns, (curve[i].Equity-prev)/prev)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	variance := ss / float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(secondsPerYear)
}

// ticksPerSecond 按数据自身时间跨度计算行情速率
// 时间跨度非正或无数据时返回 0
func ticksPerSecond(startUs, endUs, tickCount int64) float64 {
	if endUs <= startUs {
		return 0
	}
	seconds := float64(endUs-startUs) / 1e6
	if seconds <= 0 {
		return 0
	}
	return float64(tickCount) / seconds
}
