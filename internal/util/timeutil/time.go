// Package timeutil 提供时间相关的工具函数。
// 行情时间戳统一为 Unix 微秒；吞吐量测量使用单调时钟。
package timeutil

import (
	"time"
)

var (
	// baseTime 基准时间点（包含单调时钟读数）
	baseTime = time.Now()
	// baseUnixNs 基准时间点对应的 Unix 纳秒时间戳
	baseUnixNs = baseTime.UnixNano()
)

// NowNano 获取当前时间的纳秒时间戳
// 使用"单调时钟 + 启动时 Unix 时间"组合实现：
// NowNano = baseUnixNs + time.Since(baseTime).Nanoseconds()
// 这样在系统时间跳变（NTP/手动调整）时也能保持时间差的单调性，
// 避免污染吞吐量与延迟统计。
// 返回: 当前时间的 Unix 纳秒时间戳
func NowNano() int64 {
	return baseUnixNs + time.Since(baseTime).Nanoseconds()
}

// NowMicro 获取当前时间的微秒时间戳
// 与行情时间戳同单位
// 返回: 当前时间的 Unix 微秒时间戳
func NowMicro() int64 {
	return NowNano() / 1_000
}

// MicroToTime 将微秒时间戳转换为 time.Time
// 参数 us: 微秒时间戳
// 返回: time.Time 对象
func MicroToTime(us int64) time.Time {
	return time.UnixMicro(us)
}

// MicroToSeconds 将微秒时长转换为秒
// 参数 us: 微秒时长
// 返回: 秒（浮点数以保留精度）
func MicroToSeconds(us int64) float64 {
	return float64(us) / 1e6
}

// NanoToMicroFloat 将纳秒时长转换为微秒
// 用于平均延迟报告
// 参数 ns: 纳秒时长
// 返回: 微秒（浮点数以保留精度）
func NanoToMicroFloat(ns int64) float64 {
	return float64(ns) / 1e3
}

// DurationSeconds 计算两个微秒时间戳之间的秒差
// 参数 startUs: 开始时间（微秒）
// 参数 endUs: 结束时间（微秒）
// 返回: 时间差（秒，浮点数以保留精度）
func DurationSeconds(startUs, endUs int64) float64 {
	return float64(endUs-startUs) / 1e6
}

// SinceNano 计算从指定纳秒时间戳到现在的时间差
// 参数 startNs: 开始时间（纳秒）
// 返回: 时间差（time.Duration）
func SinceNano(startNs int64) time.Duration {
	return time.Duration(NowNano() - startNs)
}
