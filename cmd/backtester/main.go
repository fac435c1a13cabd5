// Package main 是均值回归回测器的入口点。
// 本回测器对单一期货合约的逐笔行情执行均值回归策略回放：
// 内存映射读取 → 滚动统计 → z-score 信号 → 含滑点/手续费的模拟成交，
// 输出绩效汇总、权益曲线与成交明细。
//
// 用法: backtester [data_file] [threshold]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mean-reversion-backtester/internal/config"
	"mean-reversion-backtester/internal/core/backtest"
	"mean-reversion-backtester/internal/core/model"
	"mean-reversion-backtester/internal/marketdata"
	"mean-reversion-backtester/internal/output/jsonl"
	"mean-reversion-backtester/internal/pipeline"
	"mean-reversion-backtester/internal/stats/latency"
	"mean-reversion-backtester/internal/stats/perf"
	"mean-reversion-backtester/internal/store"
	"mean-reversion-backtester/internal/util/fastparse"
	"mean-reversion-backtester/internal/util/timeutil"
)

// latencyWindowSize 处理延迟分位数的滚动窗口大小
const latencyWindowSize = 10000

// runSummary 运行摘要输出结构（JSONL）
type runSummary struct {
	// RunID 运行唯一标识
	RunID string `json:"run_id"`
	// DataFile 行情文件路径
	DataFile string `json:"data_file"`
	// Threshold 入场阈值
	Threshold float64 `json:"threshold"`
	// Window 滚动统计窗口大小
	Window int `json:"window"`
	// Metrics 绩效汇总
	Metrics perf.Metrics `json:"metrics"`
	// Latency 处理延迟统计
	Latency latency.LatencyStats `json:"latency"`
	// ProcessingTimeSec 墙钟耗时（秒）
	ProcessingTimeSec float64 `json:"processing_time_sec"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	flag.StringVar(&configPath, "config", "", "配置文件路径（留空使用默认配置）")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return 1
	}

	// 位置参数覆盖行情文件与入场阈值
	args := flag.Args()
	if len(args) > 0 {
		cfg.Data.File = args[0]
	}
	if len(args) > 1 {
		threshold, err := fastparse.ParseFloat(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "解析阈值失败: %v\n", err)
			return 1
		}
		cfg.Strategy.Threshold = threshold
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "配置验证失败: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.App.LogLevel, cfg.App.LogFile)
	defer logger.Sync()

	logger.Info("回测启动",
		zap.String("data_file", cfg.Data.File),
		zap.Float64("threshold", cfg.Strategy.Threshold),
		zap.Int("window", cfg.Strategy.Window))

	src, err := marketdata.Open(cfg.Data.File)
	if err != nil {
		logger.Error("打开行情数据失败", zap.Error(err))
		return 1
	}
	defer src.Close()

	engine := backtest.NewEngine(cfg.Execution, cfg.Strategy)
	engine.Preallocate(src.ApproximateTickCount())
	tracker := latency.NewTracker(latencyWindowSize)
	monitor := perf.NewMonitor()

	startedAtUs := timeutil.NowMicro()
	monitor.Start()
	_, err = pipeline.Run(src, cfg.Pipeline, func(tick model.Tick) {
		t0 := timeutil.NowNano()
		engine.OnTick(tick)
		tracker.Add(timeutil.NowNano() - t0)
		monitor.RecordTick()
	})
	if err != nil {
		logger.Error("流水线执行失败", zap.Error(err))
		return 1
	}
	engine.Finish()
	monitor.Stop()
	finishedAtUs := timeutil.NowMicro()

	metrics := engine.Metrics()

	if err := engine.WriteResults(cfg.Output.Prefix); err != nil {
		logger.Error("写入结果文件失败", zap.Error(err))
		return 1
	}

	printMetrics(metrics, monitor)

	latStats := tracker.Stats()
	logger.Info("回测完成",
		zap.Float64("sharpe", metrics.SharpeRatio),
		zap.Float64("max_drawdown", metrics.MaxDrawdown),
		zap.Float64("ticks_per_min", metrics.TicksPerSecond*60),
		zap.Float64("p50_us", latStats.P50Us),
		zap.Float64("p99_us", latStats.P99Us))

	runID := uuid.NewString()

	// 运行归档与摘要输出为可选项，失败降级为告警不影响退出码
	if cfg.Output.ResultsDB != "" {
		archiveRun(logger, cfg, runID, startedAtUs, finishedAtUs, metrics, engine)
	}
	if cfg.Output.SummaryJSONL != "" {
		writeSummary(logger, cfg, runSummary{
			RunID:             runID,
			DataFile:          cfg.Data.File,
			Threshold:         cfg.Strategy.Threshold,
			Window:            cfg.Strategy.Window,
			Metrics:           metrics,
			Latency:           latStats,
			ProcessingTimeSec: monitor.ElapsedSeconds(),
		})
	}

	return 0
}

// printMetrics 按固定标签将绩效汇总打印到标准输出
func printMetrics(m perf.Metrics, mon *perf.Monitor) {
	fmt.Printf("\n=== Backtest Results ===\n")
	fmt.Printf("Total Return: %.4f%%\n", m.TotalReturn*100)
	fmt.Printf("Volatility: %.4f%%\n", m.Volatility*100)
	fmt.Printf("Sharpe Ratio: %.4f\n", m.SharpeRatio)
	fmt.Printf("Max Drawdown: %.4f%%\n", m.MaxDrawdown*100)
	fmt.Printf("Win Rate: %.4f%%\n", m.WinRate*100)
	fmt.Printf("Avg Trade Length: %.4f seconds\n", m.AvgTradeLengthSec)
	fmt.Printf("Ticks Processed: %d\n", m.TotalTicks)
	fmt.Printf("Ticks/Second: %.4f\n", m.TicksPerSecond)
	fmt.Printf("Total Trades: %d\n", m.TotalTrades)
	fmt.Printf("Winning Trades: %d\n", m.WinningTrades)
	fmt.Printf("Processing Time: %.4f seconds\n", mon.ElapsedSeconds())
	fmt.Printf("Avg Latency: %.4f µs/tick\n", mon.AvgLatencyMicros())
}

// archiveRun 将本次运行写入 SQLite 归档
func archiveRun(
	logger *zap.Logger,
	cfg *config.Config,
	runID string,
	startedAtUs, finishedAtUs int64,
	metrics perf.Metrics,
	engine *backtest.Engine,
) {
	rs, err := store.Open(cfg.Output.ResultsDB)
	if err != nil {
		logger.Warn("打开运行归档失败", zap.Error(err))
		return
	}
	defer rs.Close()

	record := &store.RunRecord{
		ID:           runID,
		StartedAtUs:  startedAtUs,
		FinishedAtUs: finishedAtUs,
		DataFile:     cfg.Data.File,
		Threshold:    cfg.Strategy.Threshold,
		Window:       cfg.Strategy.Window,
		Metrics:      metrics,
	}
	if _, err := rs.SaveRun(context.Background(), record, engine.Trades()); err != nil {
		logger.Warn("写入运行归档失败", zap.Error(err))
		return
	}
	logger.Info("运行已归档", zap.String("run_id", runID), zap.String("db", cfg.Output.ResultsDB))
}

// writeSummary 追加一条运行摘要到 JSONL 文件
func writeSummary(logger *zap.Logger, cfg *config.Config, summary runSummary) {
	w, err := jsonl.NewWriter(cfg.Output.SummaryJSONL, cfg.Output.BufferSize)
	if err != nil {
		logger.Warn("创建摘要写入器失败", zap.Error(err))
		return
	}
	if err := w.Write(summary); err != nil {
		logger.Warn("写入运行摘要失败", zap.Error(err))
	}
	if err := w.Close(); err != nil {
		logger.Warn("关闭摘要写入器失败", zap.Error(err))
	}
}

// newLogger 创建 zap 日志器
// 日志同时输出到标准错误与日志文件，标准输出留给绩效报告
func newLogger(level, logFile string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	if logFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
