// Package marketdata 行情读取器测试
package marketdata

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeDataFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}
	return path
}

func TestSource_HeaderAndThreeTicks(t *testing.T) {
	path := writeDataFile(t, "timestamp,bid,ask,volume\n"+
		"1000000,4500.25,4500.50,100\n"+
		"2000000,4500.75,4501.00,200\n"+
		"3000000,4501.25,4501.50,150\n")

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	wantTs := []int64{1000000, 2000000, 3000000}
	wantMid := []float64{4500.375, 4500.875, 4501.375}
	for i := range wantTs {
		tick, ok := src.Next()
		if !ok {
			t.Fatalf("第 %d 条记录读取失败", i+1)
		}
		if tick.TimestampUs != wantTs[i] {
			t.Fatalf("TimestampUs=%d, want %d", tick.TimestampUs, wantTs[i])
		}
		if math.Abs(tick.Mid()-wantMid[i]) > 1e-9 {
			t.Fatalf("Mid=%f, want %f", tick.Mid(), wantMid[i])
		}
	}

	if _, ok := src.Next(); ok {
		t.Fatalf("第四次 Next 应返回数据流结束")
	}
}

func TestSource_SkipsMalformedLines(t *testing.T) {
	path := writeDataFile(t, "timestamp,bid,ask,volume\n"+
		"1000000,4500.25,4500.50,100\n"+
		"invalid_line\n"+
		"2000000,4500.75,4501.00,200\n"+
		"another,bad,line\n"+
		"\n"+
		"3000000,4501.25,4501.50,150\n")

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	var count int
	for {
		if _, ok := src.Next(); !ok {
			break
		}
		count++
	}
	if count != 3 {
		t.Fatalf("有效记录数=%d, want 3", count)
	}
}

func TestSource_LastLineWithoutNewline(t *testing.T) {
	path := writeDataFile(t, "timestamp,bid,ask,volume\n"+
		"1000000,4500.25,4500.50,100\n"+
		"2000000,4500.75,4501.00,200")

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	var ticks []int64
	for {
		tick, ok := src.Next()
		if !ok {
			break
		}
		ticks = append(ticks, tick.TimestampUs)
	}
	if len(ticks) != 2 || ticks[1] != 2000000 {
		t.Fatalf("末行无换行符应正常解析: %v", ticks)
	}
}

func TestSource_CRLF(t *testing.T) {
	path := writeDataFile(t, "timestamp,bid,ask,volume\r\n"+
		"1000000,4500.25,4500.50,100\r\n"+
		"2000000,4500.75,4501.00,200\r\n")

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	tick, ok := src.Next()
	if !ok || tick.Bid != 4500.25 {
		t.Fatalf("CRLF 行解析失败: %+v ok=%v", tick, ok)
	}
	if _, ok := src.Next(); !ok {
		t.Fatalf("第二条 CRLF 记录读取失败")
	}
	if _, ok := src.Next(); ok {
		t.Fatalf("应到达数据流结束")
	}
}

func TestSource_ResetRoundTrip(t *testing.T) {
	path := writeDataFile(t, "timestamp,bid,ask,volume\n"+
		"1000000,4500.25,4500.50,100\n"+
		"bad\n"+
		"2000000,4500.75,4501.00,200\n")

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	read := func() []int64 {
		var out []int64
		for {
			tick, ok := src.Next()
			if !ok {
				return out
			}
			out = append(out, tick.TimestampUs)
		}
	}

	first := read()
	src.Reset()
	second := read()

	if len(first) != len(second) {
		t.Fatalf("两次遍历条数不一致: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("第 %d 条记录不一致: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatalf("打开不存在的文件应返回错误")
	}
}

func TestOpen_EmptyFile(t *testing.T) {
	path := writeDataFile(t, "")
	if _, err := Open(path); err == nil {
		t.Fatalf("空文件应返回错误")
	}
}

func TestSource_ApproximateTickCount(t *testing.T) {
	content := "timestamp,bid,ask,volume\n"
	for i := 0; i < 100; i++ {
		content += "1000000,4500.25,4500.50,100\n"
	}
	path := writeDataFile(t, content)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	approx := src.ApproximateTickCount()
	if approx <= 0 {
		t.Fatalf("估算条数应为正: %d", approx)
	}
	// 粗略估算: 实际 100 条，每行约 28 字节，估算值应在同一数量级
	if approx < 10 || approx > 1000 {
		t.Fatalf("估算条数偏离过大: %d", approx)
	}
}

func TestSource_CloseIdempotent(t *testing.T) {
	path := writeDataFile(t, "timestamp,bid,ask,volume\n1000000,4500.25,4500.50,100\n")
	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("重复 Close 应为空操作: %v", err)
	}
	if _, ok := src.Next(); ok {
		t.Fatalf("关闭后 Next 应返回数据流结束")
	}
}
