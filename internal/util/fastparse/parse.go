// Package fastparse 提供高性能的字符串与字节切片解析函数。
// 避免在热路径产生分配：行情文件通过内存映射读取，字段以 []byte
// 形式给出，直接在字节切片上解析，不经过 string 转换。
package fastparse

import (
	"strconv"
)

// ParseFloat 快速解析浮点数字符串
// 使用 strconv.ParseFloat 实现，避免 fmt 包的额外开销
// 参数 s: 待解析的字符串，如 "4500.25"
// 返回: 解析后的浮点数和可能的错误
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// ParseInt 快速解析整数字符串
// 使用 strconv.ParseInt 实现，支持 64 位整数
// 参数 s: 待解析的字符串，如 "1000000"
// 返回: 解析后的整数和可能的错误
func ParseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// Int64Bytes 在字节切片上解析 64 位有符号整数
// 手写十进制循环，零分配；不支持前导空白与下划线
// 参数 b: 待解析的字节切片
// 返回: 解析后的整数和是否成功
func Int64Bytes(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}

	neg := false
	i := 0
	switch b[0] {
	case '-':
		neg = true
		i = 1
	case '+':
		i = 1
	}
	if i >= len(b) {
		return 0, false
	}

	var v int64
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		// 溢出检查: v*10 + d 必须仍落在 int64 范围内
		d := int64(c - '0')
		if v > ((1<<63-1)-d)/10 {
			return 0, false
		}
		v = v*10 + d
	}
	if neg {
		return -v, true
	}
	return v, true
}

// FloatBytes 在字节切片上解析浮点数
// 对常见的定点十进制形式（行情价格）走零分配快路径，
// 含指数等少见形式回退到 strconv
// 参数 b: 待解析的字节切片
// 返回: 解析后的浮点数和是否成功
func FloatBytes(b []byte) (float64, bool) {
	if len(b) == 0 {
		return 0, false
	}

	neg := false
	i := 0
	switch b[0] {
	case '-':
		neg = true
		i = 1
	case '+':
		i = 1
	}
	if i >= len(b) {
		return 0, false
	}

	var mantissa uint64
	digits := 0
	frac := 0
	seenDot := false
	for ; i < len(b); i++ {
		c := b[i]
		if c == '.' {
			if seenDot {
				return 0, false
			}
			seenDot = true
			continue
		}
		if c < '0' || c > '9' {
			// 指数等少见形式，回退慢路径
			return floatBytesSlow(b)
		}
		if digits >= 18 {
			// 尾数超出快路径精度，回退慢路径
			return floatBytesSlow(b)
		}
		mantissa = mantissa*10 + uint64(c-'0')
		digits++
		if seenDot {
			frac++
		}
	}
	if digits == 0 {
		return 0, false
	}

	v := float64(mantissa)
	if frac > 0 {
		v /= pow10[frac]
	}
	if neg {
		v = -v
	}
	return v, true
}

// pow10 常用 10 的幂表，覆盖快路径允许的小数位数
var pow10 = [...]float64{
	1, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9,
	1e10, 1e11, 1e12, 1e13, 1e14, 1e15, 1e16, 1e17, 1e18,
}

func floatBytesSlow(b []byte) (float64, bool) {
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatFloat 格式化浮点数为字符串
// 使用 strconv.FormatFloat 实现，避免 fmt.Sprintf 开销
// 参数 f: 待格式化的浮点数
// 参数 prec: 小数位数，-1 表示最短表示
// 返回: 格式化后的字符串
func FormatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// FormatInt 格式化整数为字符串
// 使用 strconv.FormatInt 实现
// 参数 i: 待格式化的整数
// 返回: 格式化后的字符串
func FormatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// AppendFixed 将浮点数按固定小数位追加到字节切片
// 用于结果文件输出（价格与权益固定两位小数），避免 fmt 开销
// 参数 dst: 目标切片
// 参数 f: 待格式化的浮点数
// 参数 prec: 小数位数
// 返回: 追加后的切片
func AppendFixed(dst []byte, f float64, prec int) []byte {
	return strconv.AppendFloat(dst, f, 'f', prec, 64)
}

// AppendInt 将整数追加到字节切片
// 参数 dst: 目标切片
// 参数 i: 待格式化的整数
// 返回: 追加后的切片
func AppendInt(dst []byte, i int64) []byte {
	return strconv.AppendInt(dst, i, 10)
}
