// Package marketdata 实现行情文件的零拷贝读取。
// 整个 CSV 文件以只读方式内存映射，逐行解析为 Tick 记录；
// 格式错误的行静默跳过，不中断数据流。
package marketdata

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"mean-reversion-backtester/internal/core/model"
	"mean-reversion-backtester/internal/util/fastparse"
)

// avgLineBytes 估算用的平均行长（字节）
// 仅用于预分配的规模提示，不影响解析
const avgLineBytes = 50

// Source 行情数据源
// 独占持有文件的内存映射，生命周期内映射保持有效；
// 产出的 Tick 均为值拷贝，不引用映射内存。
type Source struct {
	// data 只读内存映射
	data []byte
	// pos 当前读取位置（字节偏移）
	pos int
	// path 文件路径，用于错误消息
	path string
	// closed 是否已解除映射
	closed bool
}

// Open 打开行情文件并建立只读内存映射
// 文件首行视为表头并跳过
// 参数 path: CSV 文件路径，格式 timestamp,bid,ask,volume
// 返回: 数据源对象；文件缺失、不可读或映射失败时返回错误
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开行情文件失败: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("读取文件信息失败: %w", err)
	}
	size := st.Size()
	if size <= 0 {
		return nil, fmt.Errorf("行情文件为空: %s", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("内存映射失败: %w", err)
	}

	s := &Source{
		data: data,
		path: path,
	}
	s.skipHeader()
	return s, nil
}

// skipHeader 将读取位置移到首个换行符之后
// 文件不含换行符时位置保持为 0（该行会在解析时按格式跳过）
func (s *Source) skipHeader() {
	s.pos = 0
	if nl := bytes.IndexByte(s.data, '\n'); nl >= 0 {
		s.pos = nl + 1
	}
}

// Next 产出下一条行情记录
// 空行与格式错误的行静默跳过；最后一行允许没有换行符。
// 每条有效记录在单次遍历内恰好产出一次。
// 返回: 下一条 Tick 与 true；数据流结束时返回零值与 false
func (s *Source) Next() (model.Tick, bool) {
	for !s.closed && s.pos < len(s.data) {
		line := s.data[s.pos:]
		advance := len(line)
		if nl := bytes.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
			advance = nl + 1
		}
		s.pos += advance

		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		if len(line) == 0 {
			continue
		}

		if tick, ok := parseLine(line); ok {
			return tick, true
		}
	}
	return model.Tick{}, false
}

// parseLine 解析单行记录
// 固定字段顺序 timestamp,bid,ask,volume；多余字段忽略。
// 任一字段解析失败则整行丢弃，绝不产出部分解析的记录。
func parseLine(line []byte) (model.Tick, bool) {
	var tick model.Tick

	field, rest, ok := cutComma(line)
	if !ok {
		return tick, false
	}
	ts, ok := fastparse.Int64Bytes(field)
	if !ok {
		return tick, false
	}

	field, rest, ok = cutComma(rest)
	if !ok {
		return tick, false
	}
	bid, ok := fastparse.FloatBytes(field)
	if !ok {
		return tick, false
	}

	field, rest, ok = cutComma(rest)
	if !ok {
		return tick, false
	}
	ask, ok := fastparse.FloatBytes(field)
	if !ok {
		return tick, false
	}

	// 第四个字段允许为行尾或后接多余字段
	field = rest
	if i := bytes.IndexByte(rest, ','); i >= 0 {
		field = rest[:i]
	}
	vol, ok := fastparse.Int64Bytes(field)
	if !ok {
		return tick, false
	}

	tick.TimestampUs = ts
	tick.Bid = bid
	tick.Ask = ask
	tick.Volume = vol
	return tick, true
}

// cutComma 在首个逗号处切分字节切片
// 返回: 逗号前的字段、逗号后的剩余部分、是否存在逗号
func cutComma(b []byte) (field, rest []byte, ok bool) {
	i := bytes.IndexByte(b, ',')
	if i < 0 {
		return nil, nil, false
	}
	return b[:i], b[i+1:], true
}

// Reset 将读取位置重置到表头之后
// 纯游标操作，不重新建立映射；用于同一文件的第二次遍历
func (s *Source) Reset() {
	if s.closed {
		return
	}
	s.skipHeader()
}

// ApproximateTickCount 估算文件内的记录条数
// 按平均行长约 50 字节粗略估算，仅用于预分配
func (s *Source) ApproximateTickCount() int {
	if s.closed {
		return 0
	}
	return len(s.data) / avgLineBytes
}

// Close 解除内存映射
// 幂等；关闭后 Next 立即返回数据流结束
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	data := s.data
	s.data = nil
	if data == nil {
		return nil
	}
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("解除内存映射失败: %w", err)
	}
	return nil
}
