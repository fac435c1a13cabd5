// Package pipeline 实现行情读取与计算阶段的编排。
// 参考部署为单线程直接调用链；可选拆分部署将读取与计算放到
// 独立 goroutine，中间以无锁环形队列解耦，计算侧可绑定 CPU。
package pipeline

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"

	"mean-reversion-backtester/internal/config"
	"mean-reversion-backtester/internal/core/model"
	"mean-reversion-backtester/internal/marketdata"
	"mean-reversion-backtester/internal/pipeline/ring"
)

// TickFunc 单条行情的处理函数
// 由调用方提供，按文件顺序逐条调用
type TickFunc func(model.Tick)

// pushSpinAttempts 入队失败后让出调度前的自旋次数
const pushSpinAttempts = 64

// Run 按配置选择部署方式执行一次完整遍历
// 参数 src: 行情数据源
// 参数 cfg: 流水线配置
// 参数 fn: 单条行情处理函数
// 返回: 处理的行情条数；拆分部署构建失败时返回错误
func Run(src *marketdata.Source, cfg config.PipelineConfig, fn TickFunc) (int64, error) {
	if !cfg.Split {
		return RunDirect(src, fn), nil
	}
	return RunSplit(src, cfg, fn)
}

// RunDirect 直接调用链部署（参考部署）
// 在当前 goroutine 内拉取行情并内联执行处理函数
// 返回: 处理的行情条数
func RunDirect(src *marketdata.Source, fn TickFunc) int64 {
	var count int64
	for {
		tick, ok := src.Next()
		if !ok {
			return count
		}
		fn(tick)
		count++
	}
}

// RunSplit 拆分部署
// 生产者 goroutine 读取行情入队，消费者在当前 goroutine 出队执行；
// 行情在单生产者下保持文件顺序，与直接调用链的处理顺序一致。
// 队列满时生产者自旋后让出调度，不丢弃行情。
// 返回: 处理的行情条数；环形队列容量非法时返回错误
func RunSplit(src *marketdata.Source, cfg config.PipelineConfig, fn TickFunc) (int64, error) {
	q, err := ring.New[model.Tick](cfg.RingCapacity)
	if err != nil {
		return 0, fmt.Errorf("创建环形队列失败: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			tick, ok := src.Next()
			if !ok {
				return
			}
			item := new(model.Tick)
			*item = tick
			for i := 0; !q.TryPush(item); i++ {
				if i >= pushSpinAttempts {
					runtime.Gosched()
					i = 0
				}
			}
		}
	}()

	// 计算侧可绑定指定 CPU 以减少调度抖动；绑定失败时退回默认调度
	if cfg.PinCPU > 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		_ = pinCPU(cfg.PinCPU)
	}

	var count int64
	producerDone := false
	for {
		item, ok := q.TryPop()
		if ok {
			fn(*item)
			count++
			continue
		}
		if producerDone && q.Empty() {
			return count, nil
		}
		select {
		case <-done:
			producerDone = true
		default:
			runtime.Gosched()
		}
	}
}

// pinCPU 将当前线程绑定到指定 CPU
func pinCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
