// Package model 定义回测引擎中使用的核心数据结构。
// 包含行情记录、信号、成交、权益曲线等核心类型。
package model

import (
	"time"
)

// Tick 单条行情记录
// 从行情文件解析得到，产出后为值拷贝，不引用底层映射内存
type Tick struct {
	// TimestampUs 时间戳（Unix 微秒），同一数据流内单调非递减
	TimestampUs int64
	// Bid 买一价
	Bid float64
	// Ask 卖一价（预期 Ask >= Bid，但不强制校验）
	Ask float64
	// Volume 成交量（非负整数）
	Volume int64
}

// Mid 计算中间价
// 公式: (Bid + Ask) / 2
func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// Spread 计算买卖价差
// 公式: Ask - Bid
func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// Time 获取时间戳的 time.Time 表示
func (t Tick) Time() time.Time {
	return time.UnixMicro(t.TimestampUs)
}

// IsValid 检查行情记录是否有效
// 有效条件: 买卖价格都大于 0
func (t Tick) IsValid() bool {
	return t.Bid > 0 && t.Ask > 0
}
