// Package instrument 维护可回测合约的静态规格注册表。
// 执行引擎的成本模型（最小变动价位、合约乘数、单边手续费）
// 从这里按 symbol 查询，避免在代码中散落硬编码常量。
package instrument

import (
	"fmt"
	"strings"
)

// Spec 单个合约的交易规格
type Spec struct {
	// Symbol 合约标识，如 ES
	Symbol string
	// Name 合约全称
	Name string
	// TickSize 最小价格变动单位
	TickSize float64
	// Multiplier 合约乘数（每点价值）
	Multiplier float64
	// CommissionPerSide 单边手续费
	CommissionPerSide float64
	// Currency 计价币种
	Currency string
}

// Validate 校验规格合法性
// 返回: 合约标识为空、最小变动价位或合约乘数非正、手续费为负时返回描述性错误
func (s *Spec) Validate() error {
	var errs []string
	if s.Symbol == "" {
		errs = append(errs, "symbol: 合约标识不能为空")
	}
	if s.TickSize <= 0 {
		errs = append(errs, fmt.Sprintf("tick_size: 必须为正数，当前值: %f", s.TickSize))
	}
	if s.Multiplier <= 0 {
		errs = append(errs, fmt.Sprintf("multiplier: 必须为正数，当前值: %f", s.Multiplier))
	}
	if s.CommissionPerSide < 0 {
		errs = append(errs, fmt.Sprintf("commission_per_side: 不能为负数，当前值: %f", s.CommissionPerSide))
	}
	if len(errs) > 0 {
		return fmt.Errorf("合约规格校验错误:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SlippagePrice 将以跳数表示的滑点换算为价格单位
// 参数 ticks: 滑点跳数
// 返回: 价格单位的滑点
func (s *Spec) SlippagePrice(ticks float64) float64 {
	return ticks * s.TickSize
}

// builtins 内置合约规格
// ES 为默认回测标的（E-mini S&P 500）
var builtins = map[string]Spec{
	"ES": {
		Symbol:            "ES",
		Name:              "E-mini S&P 500",
		TickSize:          0.25,
		Multiplier:        50,
		CommissionPerSide: 2.10,
		Currency:          "USD",
	},
	"NQ": {
		Symbol:            "NQ",
		Name:              "E-mini Nasdaq-100",
		TickSize:          0.25,
		Multiplier:        20,
		CommissionPerSide: 2.10,
		Currency:          "USD",
	},
	"CL": {
		Symbol:            "CL",
		Name:              "Crude Oil",
		TickSize:          0.01,
		Multiplier:        1000,
		CommissionPerSide: 2.50,
		Currency:          "USD",
	},
}

// DefaultSymbol 默认回测合约
const DefaultSymbol = "ES"

// Lookup 按 symbol 查询合约规格
// 大小写不敏感
// 参数 symbol: 合约标识
// 返回: 规格拷贝；未注册的 symbol 返回错误
func Lookup(symbol string) (Spec, error) {
	spec, ok := builtins[strings.ToUpper(symbol)]
	if !ok {
		return Spec{}, fmt.Errorf("未注册的合约: %s", symbol)
	}
	return spec, nil
}

// Default 获取默认合约（ES）的规格
func Default() Spec {
	return builtins[DefaultSymbol]
}

// Symbols 获取所有已注册的合约标识
func Symbols() []string {
	out := make([]string, 0, len(builtins))
	for sym := range builtins {
		out = append(out, sym)
	}
	return out
}
