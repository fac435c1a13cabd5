// Package instrument 合约规格测试
package instrument

import (
	"testing"
)

func TestLookup_Default(t *testing.T) {
	spec, err := Lookup("ES")
	if err != nil {
		t.Fatalf("Lookup(ES) failed: %v", err)
	}
	if spec.TickSize != 0.25 {
		t.Fatalf("TickSize=%f, want 0.25", spec.TickSize)
	}
	if spec.Multiplier != 50 {
		t.Fatalf("Multiplier=%f, want 50", spec.Multiplier)
	}
	if spec.CommissionPerSide != 2.10 {
		t.Fatalf("CommissionPerSide=%f, want 2.10", spec.CommissionPerSide)
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	spec, err := Lookup("es")
	if err != nil {
		t.Fatalf("Lookup(es) failed: %v", err)
	}
	if spec.Symbol != "ES" {
		t.Fatalf("Symbol=%s, want ES", spec.Symbol)
	}
}

func TestLookup_Unknown(t *testing.T) {
	if _, err := Lookup("ZZZ"); err == nil {
		t.Fatalf("未注册合约应返回错误")
	}
}

func TestSpec_SlippagePrice(t *testing.T) {
	spec := Default()
	if got := spec.SlippagePrice(1); got != 0.25 {
		t.Fatalf("SlippagePrice(1)=%f, want 0.25", got)
	}
	if got := spec.SlippagePrice(2); got != 0.5 {
		t.Fatalf("SlippagePrice(2)=%f, want 0.5", got)
	}
}

func TestSpec_Validate(t *testing.T) {
	spec := Default()
	if err := spec.Validate(); err != nil {
		t.Fatalf("内置规格应通过校验: %v", err)
	}

	bad := spec
	bad.TickSize = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("tick_size=0 应校验失败")
	}

	bad = spec
	bad.Multiplier = -1
	if err := bad.Validate(); err == nil {
		t.Fatalf("multiplier<0 应校验失败")
	}
}
