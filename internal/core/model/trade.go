// Package model 定义回测引擎中使用的核心数据结构。
package model

import (
	"time"
)

// Trade 一笔已平仓成交
// 平仓时创建，创建后不可变，按平仓顺序追加到成交日志
type Trade struct {
	// EntryTimeUs 开仓时间（微秒），不晚于 ExitTimeUs；
	// 开仓与平仓落在同一时间戳（如末条行情开仓后被收尾强制平仓）时两者相等
	EntryTimeUs int64
	// ExitTimeUs 平仓时间（微秒）
	ExitTimeUs int64
	// EntryPx 开仓成交价（含滑点）
	EntryPx float64
	// ExitPx 平仓成交价（含滑点）
	ExitPx float64
	// Direction 持仓方向: LONG 或 SHORT
	Direction Signal
	// PnL 净损益（已扣除平仓腿手续费）
	PnL float64
	// DurationUs 持仓时长（微秒），= ExitTimeUs - EntryTimeUs
	DurationUs int64
}

// IsWin 判断是否盈利
func (t *Trade) IsWin() bool {
	return t.PnL > 0
}

// HoldDuration 获取持仓时长
func (t *Trade) HoldDuration() time.Duration {
	return time.Duration(t.DurationUs) * time.Microsecond
}

// EquityPoint 权益曲线采样点
// 仅在仓位变化时追加，构成按事件采样的阶梯函数
type EquityPoint struct {
	// TimestampUs 采样时间（微秒）
	TimestampUs int64
	// Equity 当前权益
	Equity float64
}
