// Package signal 信号生成器测试
package signal

import (
	"testing"

	"mean-reversion-backtester/internal/core/model"
	"mean-reversion-backtester/internal/stats/rolling"
)

// fillStats 构造已就绪的统计量
// W=100，样本取 100 + ((i mod 10) - 5)，保证标准差非零
func fillStats(t *testing.T) *rolling.Stats {
	t.Helper()
	s := rolling.New(100)
	for i := 0; i < 150; i++ {
		s.Update(100 + float64(i%10) - 5)
	}
	if !s.Ready() {
		t.Fatalf("统计量应已就绪")
	}
	if s.Stddev() <= 0 {
		t.Fatalf("标准差应为正: %f", s.Stddev())
	}
	return s
}

func TestGenerator_NotReadyStaysFlat(t *testing.T) {
	s := rolling.New(100)
	for i := 0; i < 50; i++ {
		s.Update(100)
	}

	g := NewGenerator(2.5)
	if sig := g.Generate(0, s); sig != model.SignalFlat {
		t.Fatalf("未就绪时应返回 FLAT, got %s", sig)
	}
	if g.Current() != model.SignalFlat {
		t.Fatalf("未就绪时不应改变状态")
	}
}

func TestGenerator_TransitionSequence(t *testing.T) {
	s := fillStats(t)
	g := NewGenerator(2.5)

	mean := s.Mean()
	sd := s.Stddev()

	// 价格序列: mean-3σ, mean-σ, mean, mean+3σ, mean
	// 期望信号: LONG, LONG, FLAT, SHORT, FLAT
	steps := []struct {
		price float64
		want  model.Signal
	}{
		{mean - 3*sd, model.SignalLong},
		{mean - 1*sd, model.SignalLong},
		{mean, model.SignalFlat},
		{mean + 3*sd, model.SignalShort},
		{mean, model.SignalFlat},
	}

	if g.Current() != model.SignalFlat {
		t.Fatalf("初始状态应为 FLAT")
	}
	for i, st := range steps {
		// 统计量冻结，仅驱动状态机，避免价格序列改变均值
		got := g.Generate(st.price, s)
		if got != st.want {
			t.Fatalf("第 %d 步: 信号=%s, want %s", i, got, st.want)
		}
		if g.Current() != st.want {
			t.Fatalf("第 %d 步: Current=%s, want %s", i, g.Current(), st.want)
		}
	}
}

func TestGenerator_EntryIsStrict(t *testing.T) {
	s := fillStats(t)
	g := NewGenerator(2.5)

	// 偏离未越过阈值时不入场（入场为严格不等比较）
	price := s.Mean() - 2.49*s.Stddev()
	if z := s.Zscore(price); z <= -2.5 {
		t.Fatalf("测试前提失效: z=%f", z)
	}
	if sig := g.Generate(price, s); sig != model.SignalFlat {
		t.Fatalf("|z|<θ 不应入场, got %s", sig)
	}
	price = s.Mean() + 2.49*s.Stddev()
	if sig := g.Generate(price, s); sig != model.SignalFlat {
		t.Fatalf("|z|<θ 不应入场, got %s", sig)
	}
}

func TestGenerator_ExitAtExactZero(t *testing.T) {
	s := fillStats(t)
	g := NewGenerator(2.5)

	// 进入 LONG
	if sig := g.Generate(s.Mean()-3*s.Stddev(), s); sig != model.SignalLong {
		t.Fatalf("应进入 LONG, got %s", sig)
	}
	// z 恰为 0 即平仓
	if sig := g.Generate(s.Mean(), s); sig != model.SignalFlat {
		t.Fatalf("z=0 应平仓, got %s", sig)
	}

	// 进入 SHORT 后同样在 z=0 平仓
	if sig := g.Generate(s.Mean()+3*s.Stddev(), s); sig != model.SignalShort {
		t.Fatalf("应进入 SHORT, got %s", sig)
	}
	if sig := g.Generate(s.Mean(), s); sig != model.SignalFlat {
		t.Fatalf("z=0 应平仓, got %s", sig)
	}
}

func TestGenerator_LongHoldsWhileNegative(t *testing.T) {
	s := fillStats(t)
	g := NewGenerator(2.5)

	if sig := g.Generate(s.Mean()-3*s.Stddev(), s); sig != model.SignalLong {
		t.Fatalf("应进入 LONG, got %s", sig)
	}
	// z 仍为负，持有
	if sig := g.Generate(s.Mean()-0.5*s.Stddev(), s); sig != model.SignalLong {
		t.Fatalf("z<0 应继续持有 LONG, got %s", sig)
	}
	// 单次调用至多一次转移: 深度负偏离不会先平仓再反手
	if sig := g.Generate(s.Mean()-5*s.Stddev(), s); sig != model.SignalLong {
		t.Fatalf("LONG 期间深度负偏离应维持 LONG, got %s", sig)
	}
}

func TestGenerator_Reset(t *testing.T) {
	s := fillStats(t)
	g := NewGenerator(2.5)

	g.Generate(s.Mean()-3*s.Stddev(), s)
	if g.Current() != model.SignalLong {
		t.Fatalf("应处于 LONG")
	}
	g.Reset()
	if g.Current() != model.SignalFlat {
		t.Fatalf("Reset 后应为 FLAT")
	}
}
