// Package config 负责加载和验证 YAML 配置文件。
// 提供回测器所需的所有配置项，包括策略参数、执行成本、
// 流水线部署与输出设置；缺省配置即可运行（CLI 无强制配置文件）。
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mean-reversion-backtester/internal/instrument"
)

// Config 应用配置根结构
// 包含所有子模块的配置项
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Data 行情数据配置
	Data DataConfig `yaml:"data"`
	// Strategy 策略参数配置
	Strategy StrategyConfig `yaml:"strategy"`
	// Execution 执行成本配置
	Execution ExecutionConfig `yaml:"execution"`
	// Pipeline 流水线部署配置
	Pipeline PipelineConfig `yaml:"pipeline"`
	// Output 输出配置
	Output OutputConfig `yaml:"output"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
	// LogFile 日志文件路径
	LogFile string `yaml:"log_file"`
}

// DataConfig 行情数据配置
type DataConfig struct {
	// File 行情 CSV 文件路径
	File string `yaml:"file"`
}

// StrategyConfig 策略参数配置
type StrategyConfig struct {
	// Threshold 入场阈值（z-score 绝对值），必须为正数
	Threshold float64 `yaml:"threshold"`
	// Window 滚动统计窗口大小
	Window int `yaml:"window"`
}

// ExecutionConfig 执行成本配置
// 缺省值取自合约注册表中的 ES 规格
type ExecutionConfig struct {
	// Symbol 合约标识，须在合约注册表中注册
	Symbol string `yaml:"symbol"`
	// CommissionPerSide 单边手续费
	CommissionPerSide float64 `yaml:"commission_per_side"`
	// SlippageTicks 滑点（跳数），每条腿按一跳逆向成交
	SlippageTicks float64 `yaml:"slippage_ticks"`
	// TickSize 最小价格变动单位
	TickSize float64 `yaml:"tick_size"`
	// Multiplier 合约乘数
	Multiplier float64 `yaml:"multiplier"`
	// InitialCapital 初始资金
	InitialCapital float64 `yaml:"initial_capital"`
}

// SlippagePrice 将滑点跳数换算为价格单位
func (e *ExecutionConfig) SlippagePrice() float64 {
	return e.SlippageTicks * e.TickSize
}

// PipelineConfig 流水线部署配置
type PipelineConfig struct {
	// Split 是否拆分读取与计算到独立 goroutine
	// false 时退化为直接调用链（参考部署）
	Split bool `yaml:"split"`
	// RingCapacity 环形队列容量，必须为 2 的幂
	RingCapacity int `yaml:"ring_capacity"`
	// PinCPU 计算线程绑定的 CPU 编号，非正值表示不绑定
	PinCPU int `yaml:"pin_cpu"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Prefix 结果文件前缀，生成 <prefix>.csv 与 <prefix>_trades.csv
	Prefix string `yaml:"prefix"`
	// ResultsDB 运行归档 SQLite 路径，留空关闭归档
	ResultsDB string `yaml:"results_db"`
	// SummaryJSONL 运行摘要 JSONL 路径，留空关闭摘要输出
	SummaryJSONL string `yaml:"summary_jsonl"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径；为空时返回纯默认配置
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// Default 获取纯默认配置
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "mean-reversion-backtester"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.LogFile == "" {
		c.App.LogFile = "backtester.log"
	}

	if c.Data.File == "" {
		c.Data.File = "data/ES_futures_sample.csv"
	}

	if c.Strategy.Threshold == 0 {
		c.Strategy.Threshold = 2.5
	}
	if c.Strategy.Window == 0 {
		c.Strategy.Window = 20000
	}

	if c.Execution.Symbol == "" {
		c.Execution.Symbol = instrument.DefaultSymbol
	}
	// 未显式配置的成本项回落到合约注册表
	if spec, err := instrument.Lookup(c.Execution.Symbol); err == nil {
		if c.Execution.CommissionPerSide == 0 {
			c.Execution.CommissionPerSide = spec.CommissionPerSide
		}
		if c.Execution.TickSize == 0 {
			c.Execution.TickSize = spec.TickSize
		}
		if c.Execution.Multiplier == 0 {
			c.Execution.Multiplier = spec.Multiplier
		}
	}
	if c.Execution.SlippageTicks == 0 {
		c.Execution.SlippageTicks = 1
	}
	if c.Execution.InitialCapital == 0 {
		c.Execution.InitialCapital = 100000
	}

	if c.Pipeline.RingCapacity == 0 {
		c.Pipeline.RingCapacity = 1 << 16
	}

	if c.Output.Prefix == "" {
		c.Output.Prefix = "results"
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	if c.Data.File == "" {
		errs = append(errs, "data.file: 行情文件路径不能为空")
	}

	// 阈值非正会使信号状态机进入未定义区域，启动前拒绝
	if c.Strategy.Threshold <= 0 {
		errs = append(errs, fmt.Sprintf("strategy.threshold: 入场阈值必须为正数，当前值: %f", c.Strategy.Threshold))
	}
	if c.Strategy.Window <= 0 {
		errs = append(errs, fmt.Sprintf("strategy.window: 窗口大小必须为正数，当前值: %d", c.Strategy.Window))
	}

	if _, err := instrument.Lookup(c.Execution.Symbol); err != nil {
		errs = append(errs, fmt.Sprintf("execution.symbol: %v", err))
	}
	if c.Execution.CommissionPerSide < 0 {
		errs = append(errs, fmt.Sprintf("execution.commission_per_side: 手续费不能为负数，当前值: %f", c.Execution.CommissionPerSide))
	}
	if c.Execution.SlippageTicks < 0 {
		errs = append(errs, fmt.Sprintf("execution.slippage_ticks: 滑点不能为负数，当前值: %f", c.Execution.SlippageTicks))
	}
	if c.Execution.TickSize <= 0 {
		errs = append(errs, fmt.Sprintf("execution.tick_size: 最小变动价位必须为正数，当前值: %f", c.Execution.TickSize))
	}
	if c.Execution.Multiplier <= 0 {
		errs = append(errs, fmt.Sprintf("execution.multiplier: 合约乘数必须为正数，当前值: %f", c.Execution.Multiplier))
	}
	if c.Execution.InitialCapital <= 0 {
		errs = append(errs, fmt.Sprintf("execution.initial_capital: 初始资金必须为正数，当前值: %f", c.Execution.InitialCapital))
	}

	if c.Pipeline.RingCapacity <= 0 || c.Pipeline.RingCapacity&(c.Pipeline.RingCapacity-1) != 0 {
		errs = append(errs, fmt.Sprintf("pipeline.ring_capacity: 容量必须为 2 的幂，当前值: %d", c.Pipeline.RingCapacity))
	}

	if c.Output.Prefix == "" {
		errs = append(errs, "output.prefix: 结果文件前缀不能为空")
	}
	if c.Output.BufferSize <= 0 {
		errs = append(errs, fmt.Sprintf("output.buffer_size: 缓冲区大小必须为正数，当前值: %d", c.Output.BufferSize))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
