// Package rolling 实现中间价流的在线滚动统计。
// 两阶段估计器：前 W 个样本用 Welford 递推求精确样本方差（填充阶段），
// 之后切换为指数加权均值/方差（稳态阶段），状态量 O(1)、更新零分配。
package rolling

import (
	"math"
)

// DefaultWindowSize 默认滚动窗口大小
const DefaultWindowSize = 20000

// zscoreEps z-score 计算的标准差下限
// 标准差不超过该值时 z-score 按 0 处理，避免除零
const zscoreEps = 1e-10

// Stats 滚动统计累加器（单写者）
// 注意：本结构体由回测主循环单 goroutine 写入；
// 跨 goroutine 读取须通过消息或快照传递。
type Stats struct {
	// windowSize 窗口大小 W
	windowSize int
	// alpha 指数加权衰减系数，= 2/(W+1)
	alpha float64

	// buffer 最近 W 个样本的环形缓冲区
	// 仅用于诊断回看，估计器本身不依赖它
	buffer []float64
	// writeIdx 环形缓冲区写入位置
	writeIdx int

	// count 已吸收样本总数，单调非递减
	count int64

	// mean 当前均值
	mean float64
	// variance 当前方差，恒 >= 0
	variance float64
	// m2 Welford 二阶矩累加器（仅填充阶段使用）
	m2 float64
}

// New 创建滚动统计累加器
// 参数 windowSize: 窗口大小 W，非正时取 DefaultWindowSize
func New(windowSize int) *Stats {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Stats{
		windowSize: windowSize,
		alpha:      2.0 / (float64(windowSize) + 1.0),
		buffer:     make([]float64, windowSize),
	}
}

// Update 吸收一个样本
// 常数时间、零分配；填充阶段走 Welford 递推，稳态走指数加权更新
func (s *Stats) Update(x float64) {
	idx := s.writeIdx
	s.writeIdx++
	if s.writeIdx >= s.windowSize {
		s.writeIdx = 0
	}
	oldCount := s.count
	s.count++

	s.buffer[idx] = x

	if oldCount < int64(s.windowSize) {
		if oldCount == 0 {
			s.mean = x
			s.variance = 0
			s.m2 = 0
			return
		}
		// Welford 递推，方差分母为 oldCount+1
		delta := x - s.mean
		s.mean += delta / float64(oldCount+1)
		delta2 := x - s.mean
		s.m2 += delta * delta2
		s.variance = s.m2 / float64(oldCount+1)
		return
	}

	// 稳态：指数加权更新
	// delta 必须用更新前的均值计算
	oldMean := s.mean
	s.mean = s.alpha*x + (1.0-s.alpha)*oldMean
	delta := x - oldMean
	s.variance = (1.0 - s.alpha) * (s.variance + s.alpha*delta*delta)
	if s.variance < 0 {
		s.variance = 0
	}
}

// Mean 获取当前均值
func (s *Stats) Mean() float64 {
	return s.mean
}

// Variance 获取当前方差
func (s *Stats) Variance() float64 {
	return s.variance
}

// Stddev 获取当前标准差
// = sqrt(Variance)
func (s *Stats) Stddev() float64 {
	return math.Sqrt(s.variance)
}

// Zscore 计算给定值相对当前分布的标准化偏离
// 标准差不超过 1e-10 时返回 0
// 参数 x: 待标准化的观测值
func (s *Stats) Zscore(x float64) float64 {
	sd := s.Stddev()
	if sd > zscoreEps {
		return (x - s.mean) / sd
	}
	return 0
}

// Count 获取已吸收的样本总数
func (s *Stats) Count() int64 {
	return s.count
}

// WindowSize 获取窗口大小 W
func (s *Stats) WindowSize() int {
	return s.windowSize
}

// Ready 判断统计量是否可用
// 当且仅当已吸收至少 W 个样本
func (s *Stats) Ready() bool {
	return s.count >= int64(s.windowSize)
}

// Window 获取诊断用的最近样本快照
// 返回: 按吸收顺序排列的最近 min(count, W) 个样本拷贝
func (s *Stats) Window() []float64 {
	n := s.count
	if n > int64(s.windowSize) {
		n = int64(s.windowSize)
	}
	out := make([]float64, 0, n)
	if s.count <= int64(s.windowSize) {
		out = append(out, s.buffer[:n]...)
		return out
	}
	out = append(out, s.buffer[s.writeIdx:]...)
	out = append(out, s.buffer[:s.writeIdx]...)
	return out
}
