// Package csvout 实现回测结果的 CSV 文件输出。
// 权益曲线与成交明细分别写入 <prefix>.csv 与 <prefix>_trades.csv，
// 价格与损益固定两位小数；格式化走字节切片追加，避免 fmt 开销。
package csvout

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"mean-reversion-backtester/internal/core/model"
	"mean-reversion-backtester/internal/util/fastparse"
)

// equityHeader 权益曲线文件表头
const equityHeader = "timestamp,equity\n"

// tradesHeader 成交文件表头
const tradesHeader = "entry_time,exit_time,entry_price,exit_price,direction,pnl,duration_us\n"

// WriteEquityCurve 将权益曲线写入 <prefix>.csv
// 每个仓位变化事件一行，权益两位小数
// 参数 prefix: 输出文件前缀
// 参数 curve: 权益曲线
// 返回: 目标不可写时返回错误
func WriteEquityCurve(prefix string, curve []model.EquityPoint) error {
	path := prefix + ".csv"
	f, err := createFile(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := w.WriteString(equityHeader); err != nil {
		f.Close()
		return fmt.Errorf("写入权益曲线失败: %w", err)
	}

	buf := make([]byte, 0, 64)
	for i := range curve {
		buf = buf[:0]
		buf = fastparse.AppendInt(buf, curve[i].TimestampUs)
		buf = append(buf, ',')
		buf = fastparse.AppendFixed(buf, curve[i].Equity, 2)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return fmt.Errorf("写入权益曲线失败: %w", err)
		}
	}

	return closeFile(w, f, path)
}

// WriteTrades 将成交明细写入 <prefix>_trades.csv
// 方向输出字面量 LONG/SHORT，价格与损益两位小数，时间为微秒
// 参数 prefix: 输出文件前缀
// 参数 trades: 成交日志
// 返回: 目标不可写时返回错误
func WriteTrades(prefix string, trades []model.Trade) error {
	path := prefix + "_trades.csv"
	f, err := createFile(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := w.WriteString(tradesHeader); err != nil {
		f.Close()
		return fmt.Errorf("写入成交文件失败: %w", err)
	}

	buf := make([]byte, 0, 128)
	for i := range trades {
		t := &trades[i]
		buf = buf[:0]
		buf = fastparse.AppendInt(buf, t.EntryTimeUs)
		buf = append(buf, ',')
		buf = fastparse.AppendInt(buf, t.ExitTimeUs)
		buf = append(buf, ',')
		buf = fastparse.AppendFixed(buf, t.EntryPx, 2)
		buf = append(buf, ',')
		buf = fastparse.AppendFixed(buf, t.ExitPx, 2)
		buf = append(buf, ',')
		buf = append(buf, t.Direction.String()...)
		buf = append(buf, ',')
		buf = fastparse.AppendFixed(buf, t.PnL, 2)
		buf = append(buf, ',')
		buf = fastparse.AppendInt(buf, t.DurationUs)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return fmt.Errorf("写入成交文件失败: %w", err)
		}
	}

	return closeFile(w, f, path)
}

// createFile 创建输出文件，必要时先建立目录
func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("创建输出文件失败: %w", err)
	}
	return f, nil
}

// closeFile 冲刷缓冲并关闭文件
func closeFile(w *bufio.Writer, f *os.File, path string) error {
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("冲刷输出文件 %s 失败: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("关闭输出文件 %s 失败: %w", path, err)
	}
	return nil
}
