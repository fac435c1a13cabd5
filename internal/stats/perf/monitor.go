// Package perf 回测运行的吞吐量监视器。
package perf

import (
	"mean-reversion-backtester/internal/util/timeutil"
)

// Monitor 运行耗时与吞吐量监视器
// 使用单调时钟测量一次回测的墙钟耗时与单条行情平均处理延迟
type Monitor struct {
	// startNs 开始时间（纳秒）
	startNs int64
	// endNs 结束时间（纳秒）
	endNs int64
	// tickCount 已记录的行情条数
	tickCount int64
	// running 是否处于计时中
	running bool
}

// NewMonitor 创建监视器
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Start 开始计时
func (m *Monitor) Start() {
	m.startNs = timeutil.NowNano()
	m.running = true
}

// Stop 停止计时
// 重复调用为空操作
func (m *Monitor) Stop() {
	if m.running {
		m.endNs = timeutil.NowNano()
		m.running = false
	}
}

// RecordTick 记录一条已处理的行情
func (m *Monitor) RecordTick() {
	m.tickCount++
}

// TickCount 获取已记录的行情条数
func (m *Monitor) TickCount() int64 {
	return m.tickCount
}

// ElapsedSeconds 获取计时区间的墙钟耗时（秒）
// 计时未停止时返回 0
func (m *Monitor) ElapsedSeconds() float64 {
	if m.running || m.endNs <= m.startNs {
		return 0
	}
	return float64(m.endNs-m.startNs) / 1e9
}

// AvgLatencyMicros 获取单条行情的平均处理延迟（微秒）
// 计时未停止或未记录行情时返回 0
func (m *Monitor) AvgLatencyMicros() float64 {
	if m.running || m.tickCount == 0 {
		return 0
	}
	return float64(m.endNs-m.startNs) / 1e3 / float64(m.tickCount)
}

// Reset 清零监视器
func (m *Monitor) Reset() {
	m.startNs = 0
	m.endNs = 0
	m.tickCount = 0
	m.running = false
}
