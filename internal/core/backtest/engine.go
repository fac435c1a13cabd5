// Package backtest 实现回测执行引擎。
// 逐条行情驱动「统计更新 → 信号生成 → 仓位同步」，在仓位变化时
// 以逆向滑点成交并结算手续费，维护成交日志、权益曲线与在线最大回撤。
// 重要：仅用于历史数据回放，不进行真实下单。
package backtest

import (
	"fmt"

	"mean-reversion-backtester/internal/config"
	"mean-reversion-backtester/internal/core/model"
	"mean-reversion-backtester/internal/core/signal"
	"mean-reversion-backtester/internal/marketdata"
	"mean-reversion-backtester/internal/output/csvout"
	"mean-reversion-backtester/internal/stats/perf"
	"mean-reversion-backtester/internal/stats/rolling"
)

// Engine 回测执行引擎
// 独占持有成交日志与权益曲线；所有状态由单 goroutine 驱动，
// 拆分部署时由消费端 goroutine 独占调用。
type Engine struct {
	// commission 单边手续费
	commission float64
	// slippage 每条腿的逆向滑点（价格单位）
	slippage float64
	// multiplier 合约乘数
	multiplier float64
	// initialCapital 初始资金
	initialCapital float64

	// stats 中间价滚动统计
	stats *rolling.Stats
	// gen 信号生成器
	gen *signal.Generator

	// position 当前仓位
	position model.Signal
	// entryPx 当前仓位的开仓成交价
	entryPx float64
	// entryTimeUs 当前仓位的开仓时间（微秒）
	entryTimeUs int64

	// equity 当前权益
	equity float64
	// peakEquity 历史最高权益，恒 >= equity
	peakEquity float64
	// maxDrawdown 最大回撤，取值 [0, 1]
	maxDrawdown float64

	// trades 成交日志，按平仓顺序追加
	trades []model.Trade
	// equityCurve 权益曲线，按仓位变化事件采样
	equityCurve []model.EquityPoint

	// startUs 首条行情时间戳
	startUs int64
	// endUs 末条行情时间戳
	endUs int64
	// tickCount 已处理的行情条数
	tickCount int64
	// lastMid 末条行情的中间价，用于收尾强制平仓
	lastMid float64
}

// NewEngine 创建回测执行引擎
// 参数 exec: 执行成本配置
// 参数 strat: 策略参数配置
func NewEngine(exec config.ExecutionConfig, strat config.StrategyConfig) *Engine {
	e := &Engine{
		commission:     exec.CommissionPerSide,
		slippage:       exec.SlippagePrice(),
		multiplier:     exec.Multiplier,
		initialCapital: exec.InitialCapital,
		stats:          rolling.New(strat.Window),
		gen:            signal.NewGenerator(strat.Threshold),
	}
	e.resetRun(strat.Window)
	return e
}

// resetRun 清空单次遍历的全部状态
func (e *Engine) resetRun(window int) {
	e.stats = rolling.New(window)
	e.gen = signal.NewGenerator(e.gen.Threshold())
	e.position = model.SignalFlat
	e.entryPx = 0
	e.entryTimeUs = 0
	e.equity = e.initialCapital
	e.peakEquity = e.initialCapital
	e.maxDrawdown = 0
	e.trades = e.trades[:0]
	e.equityCurve = e.equityCurve[:0]
	e.startUs = 0
	e.endUs = 0
	e.tickCount = 0
	e.lastMid = 0

	// 权益曲线以 (0, 初始资金) 起笔
	e.equityCurve = append(e.equityCurve, model.EquityPoint{TimestampUs: 0, Equity: e.equity})
}

// OnTick 处理一条行情
// 每条行情顺序执行: 统计更新 → 信号生成 → 仓位同步
func (e *Engine) OnTick(tick model.Tick) {
	if e.startUs == 0 {
		e.startUs = tick.TimestampUs
	}
	e.endUs = tick.TimestampUs
	e.tickCount++

	mid := tick.Mid()
	e.lastMid = mid

	e.stats.Update(mid)
	sig := e.gen.Generate(mid, e.stats)
	e.updatePosition(mid, tick.TimestampUs, sig)
}

// updatePosition 将仓位同步到目标信号
// 信号未变化时不产生任何动作；变化时先平旧仓再开新仓，
// 并在事件时刻采样权益曲线、更新峰值与最大回撤
func (e *Engine) updatePosition(mid float64, timestampUs int64, sig model.Signal) {
	if sig == e.position {
		return
	}

	if e.position != model.SignalFlat {
		e.closePosition(mid, timestampUs)
	}

	if sig != model.SignalFlat {
		fill := e.fillPrice(mid, sig)
		e.position = sig
		e.entryPx = fill
		e.entryTimeUs = timestampUs

		// 开仓腿手续费直接从权益扣除
		e.equity -= e.commission
	}

	e.equityCurve = append(e.equityCurve, model.EquityPoint{TimestampUs: timestampUs, Equity: e.equity})

	if e.equity > e.peakEquity {
		e.peakEquity = e.equity
	}
	if dd := (e.peakEquity - e.equity) / e.peakEquity; dd > e.maxDrawdown {
		e.maxDrawdown = dd
	}
}

// closePosition 以当前中间价平掉持仓
// 平仓腿同样承受逆向滑点，平仓手续费计入该笔损益
func (e *Engine) closePosition(mid float64, timestampUs int64) {
	if e.position == model.SignalFlat {
		return
	}

	// 平多即卖出（按 SHORT 方向成交），平空即买入
	exitSide := model.SignalShort
	if e.position == model.SignalShort {
		exitSide = model.SignalLong
	}
	fill := e.fillPrice(mid, exitSide)

	var pnl float64
	if e.position == model.SignalLong {
		pnl = (fill - e.entryPx) * e.multiplier
	} else {
		pnl = (e.entryPx - fill) * e.multiplier
	}
	pnl -= e.commission

	e.equity += pnl

	e.trades = append(e.trades, model.Trade{
		EntryTimeUs: e.entryTimeUs,
		ExitTimeUs:  timestampUs,
		EntryPx:     e.entryPx,
		ExitPx:      fill,
		Direction:   e.position,
		PnL:         pnl,
		DurationUs:  timestampUs - e.entryTimeUs,
	})

	e.position = model.SignalFlat
}

// fillPrice 计算指定方向的成交价
// 买入腿加滑点、卖出腿减滑点（每腿一跳逆向成交）
func (e *Engine) fillPrice(mid float64, side model.Signal) float64 {
	switch side {
	case model.SignalLong:
		return mid + e.slippage
	case model.SignalShort:
		return mid - e.slippage
	default:
		return mid
	}
}

// Finish 收尾处理
// 数据流结束时若仍有持仓，按末条行情的中间价与时间戳强制平仓
func (e *Engine) Finish() {
	if e.position != model.SignalFlat && e.tickCount > 0 {
		e.closePosition(e.lastMid, e.endUs)
	}
}

// Run 对指定行情文件执行一次完整回测
// 打开数据源 → 逐条处理 → 收尾强制平仓 → 汇总绩效；
// 数据源在所有退出路径上释放
// 参数 path: 行情 CSV 文件路径
// 返回: 绩效汇总；文件不可用时返回错误
func (e *Engine) Run(path string) (perf.Metrics, error) {
	src, err := marketdata.Open(path)
	if err != nil {
		return perf.Metrics{}, fmt.Errorf("打开行情数据失败: %w", err)
	}
	defer src.Close()

	e.resetRun(e.stats.WindowSize())
	e.Preallocate(src.ApproximateTickCount())

	for {
		tick, ok := src.Next()
		if !ok {
			break
		}
		e.OnTick(tick)
	}
	e.Finish()

	return e.Metrics(), nil
}

// Preallocate 依据估算的行情条数预分配日志容量
// 仓位变化事件远少于行情条数，按比例预留
// 参数 tickHint: 估算的行情条数（来自数据源的规模提示）
func (e *Engine) Preallocate(tickHint int) {
	hint := tickHint / 100
	if hint < 16 {
		hint = 16
	}
	if cap(e.equityCurve) < hint {
		curve := make([]model.EquityPoint, len(e.equityCurve), hint)
		copy(curve, e.equityCurve)
		e.equityCurve = curve
	}
	if cap(e.trades) < hint {
		trades := make([]model.Trade, len(e.trades), hint)
		copy(trades, e.trades)
		e.trades = trades
	}
}

// Metrics 汇总当前遍历的绩效
func (e *Engine) Metrics() perf.Metrics {
	return perf.Calculate(perf.RunInput{
		InitialCapital: e.initialCapital,
		FinalEquity:    e.equity,
		MaxDrawdown:    e.maxDrawdown,
		Trades:         e.trades,
		EquityCurve:    e.equityCurve,
		StartUs:        e.startUs,
		EndUs:          e.endUs,
		TickCount:      e.tickCount,
	})
}

// WriteResults 将权益曲线与成交明细写入结果文件
// 生成 <prefix>.csv 与 <prefix>_trades.csv
// 参数 prefix: 输出文件前缀
func (e *Engine) WriteResults(prefix string) error {
	if err := csvout.WriteEquityCurve(prefix, e.equityCurve); err != nil {
		return err
	}
	return csvout.WriteTrades(prefix, e.trades)
}

// Trades 获取成交日志（只读视图）
func (e *Engine) Trades() []model.Trade {
	return e.trades
}

// EquityCurve 获取权益曲线（只读视图）
func (e *Engine) EquityCurve() []model.EquityPoint {
	return e.equityCurve
}

// Equity 获取当前权益
func (e *Engine) Equity() float64 {
	return e.equity
}

// PeakEquity 获取历史最高权益
func (e *Engine) PeakEquity() float64 {
	return e.peakEquity
}

// MaxDrawdown 获取最大回撤
func (e *Engine) MaxDrawdown() float64 {
	return e.maxDrawdown
}

// Position 获取当前仓位
func (e *Engine) Position() model.Signal {
	return e.position
}

// TickCount 获取已处理的行情条数
func (e *Engine) TickCount() int64 {
	return e.tickCount
}
