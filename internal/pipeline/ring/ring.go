// Package ring 实现多生产者/单消费者的无锁环形队列。
// 槽位持有指针，容量为 2 的幂；生产者通过 CAS 发布槽位，
// 单消费者通过 CAS 取回。头尾游标分属不同缓存行，避免伪共享。
package ring

import (
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// ErrInvalidCapacity 容量不是 2 的幂
var ErrInvalidCapacity = errors.New("容量必须为 2 的幂")

// Ring 无锁环形队列（MP/SC）
// 入队顺序对单个生产者保持 FIFO；多生产者之间按成功抢占槽位的
// 交错顺序出队。TryPush/TryPop 均为单次尝试，不自旋。
type Ring[T any] struct {
	// mask 容量掩码，= capacity - 1
	mask uint64
	// slots 槽位数组，nil 表示空槽
	slots []atomic.Pointer[T]

	_ cpu.CacheLinePad
	// head 消费游标，仅消费者推进
	head atomic.Uint64
	_    cpu.CacheLinePad
	// tail 生产游标，由抢到槽位的生产者推进
	tail atomic.Uint64
	_    cpu.CacheLinePad
}

// New 创建环形队列
// 参数 capacity: 槽位数量，必须为 2 的幂
// 返回: 队列对象；容量非 2 的幂时返回 ErrInvalidCapacity
func New[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Ring[T]{
		mask:  uint64(capacity - 1),
		slots: make([]atomic.Pointer[T], capacity),
	}, nil
}

// TryPush 尝试入队一个元素
// 队列满或槽位争用失败时返回 false，调用方自行决定重试策略
// 参数 item: 待入队的指针，nil 直接拒绝
func (r *Ring[T]) TryPush(item *T) bool {
	if item == nil {
		return false
	}

	tail := r.tail.Load()
	next := (tail + 1) & r.mask

	// 满: 下一个生产位置追上消费游标
	if next == r.head.Load() {
		return false
	}

	// 抢占槽位: 仅当槽位为空时发布成功
	if r.slots[tail].CompareAndSwap(nil, item) {
		r.tail.Store(next)
		return true
	}

	return false
}

// TryPop 尝试出队一个元素（单消费者）
// 队列空或槽位尚未发布完成时返回 false
// 返回: 出队的指针和是否成功
func (r *Ring[T]) TryPop() (*T, bool) {
	head := r.head.Load()

	if head == r.tail.Load() {
		return nil, false
	}

	item := r.slots[head].Load()
	if item == nil {
		return nil, false
	}

	if r.slots[head].CompareAndSwap(item, nil) {
		r.head.Store((head + 1) & r.mask)
		return item, true
	}

	return nil, false
}

// Empty 判断队列是否为空
func (r *Ring[T]) Empty() bool {
	return r.head.Load() == r.tail.Load()
}

// Len 获取当前队列长度
func (r *Ring[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	return int((tail - head) & r.mask)
}

// Capacity 获取槽位数量
func (r *Ring[T]) Capacity() int {
	return len(r.slots)
}

// Drain 清空队列并返回剩余元素
// 用于拆解时回收仍在队列中的元素；须在所有生产者停止后调用
func (r *Ring[T]) Drain() []*T {
	var out []*T
	for {
		item, ok := r.TryPop()
		if !ok {
			return out
		}
		out = append(out, item)
	}
}
