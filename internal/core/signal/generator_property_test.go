// Package signal 信号状态机属性测试
package signal

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"mean-reversion-backtester/internal/core/model"
	"mean-reversion-backtester/internal/stats/rolling"
)

func readyStats() *rolling.Stats {
	s := rolling.New(50)
	for i := 0; i < 100; i++ {
		s.Update(100 + float64(i%10) - 5)
	}
	return s
}

// **Feature: mean-reversion-backtester, Property 4: Entry Conditions**
// **Validates: Requirements 4.1, 4.2**

func TestGenerator_EntryConditions_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("FLAT 仅在 z<-θ 时进入 LONG、z>+θ 时进入 SHORT", prop.ForAll(
		func(theta float64, zMult float64) bool {
			s := readyStats()
			g := NewGenerator(theta)

			price := s.Mean() + zMult*s.Stddev()
			got := g.Generate(price, s)
			z := s.Zscore(price)

			switch {
			case z < -theta:
				return got == model.SignalLong
			case z > theta:
				return got == model.SignalShort
			default:
				return got == model.SignalFlat
			}
		},
		gen.Float64Range(0.5, 5),
		gen.Float64Range(-8, 8),
	))

	properties.TestingRun(t)
}

// **Feature: mean-reversion-backtester, Property 5: Single Transition Per Call**
// **Validates: Requirements 4.3, 4.4**

func TestGenerator_SingleTransition_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("任意价格序列下不出现 LONG↔SHORT 直接切换", prop.ForAll(
		func(zMults []float64) bool {
			s := readyStats()
			g := NewGenerator(2.0)

			prev := g.Current()
			for _, m := range zMults {
				got := g.Generate(s.Mean()+m*s.Stddev(), s)
				if (prev == model.SignalLong && got == model.SignalShort) ||
					(prev == model.SignalShort && got == model.SignalLong) {
					return false
				}
				prev = got
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(-10, 10)),
	))

	properties.Property("LONG 在 z>=0 时必平仓，z<0 时必持有", prop.ForAll(
		func(zMult float64) bool {
			s := readyStats()
			g := NewGenerator(1.0)

			if g.Generate(s.Mean()-2*s.Stddev(), s) != model.SignalLong {
				return false
			}
			price := s.Mean() + zMult*s.Stddev()
			got := g.Generate(price, s)
			if s.Zscore(price) >= 0 {
				return got == model.SignalFlat
			}
			return got == model.SignalLong
		},
		gen.Float64Range(-6, 6),
	))

	properties.Property("SHORT 在 z<=0 时必平仓，z>0 时必持有", prop.ForAll(
		func(zMult float64) bool {
			s := readyStats()
			g := NewGenerator(1.0)

			if g.Generate(s.Mean()+2*s.Stddev(), s) != model.SignalShort {
				return false
			}
			price := s.Mean() + zMult*s.Stddev()
			got := g.Generate(price, s)
			if s.Zscore(price) <= 0 {
				return got == model.SignalFlat
			}
			return got == model.SignalShort
		},
		gen.Float64Range(-6, 6),
	))

	properties.TestingRun(t)
}
