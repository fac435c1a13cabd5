// Package store 实现回测运行结果的 SQLite 归档。
// 每次运行写入一行 runs 记录与逐笔 trades 记录，便于参数扫描后
// 跨运行查询比较；归档为可选功能，路径留空时不启用。
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // 纯 Go SQLite 驱动

	"mean-reversion-backtester/internal/core/model"
	"mean-reversion-backtester/internal/stats/perf"
)

// RunRecord 一次回测运行的归档记录
type RunRecord struct {
	// ID 运行唯一标识（UUID）
	ID string
	// StartedAtUs 运行开始时间（Unix 微秒）
	StartedAtUs int64
	// FinishedAtUs 运行结束时间（Unix 微秒）
	FinishedAtUs int64
	// DataFile 行情文件路径
	DataFile string
	// Threshold 入场阈值
	Threshold float64
	// Window 滚动统计窗口大小
	Window int
	// Metrics 绩效汇总
	Metrics perf.Metrics
}

// ResultStore 运行归档存储
type ResultStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	started_at_us INTEGER NOT NULL,
	finished_at_us INTEGER NOT NULL,
	data_file     TEXT NOT NULL,
	threshold     REAL NOT NULL,
	window        INTEGER NOT NULL,
	total_return  REAL NOT NULL,
	volatility    REAL NOT NULL,
	sharpe_ratio  REAL NOT NULL,
	max_drawdown  REAL NOT NULL,
	win_rate      REAL NOT NULL,
	avg_trade_length_sec REAL NOT NULL,
	ticks_per_second REAL NOT NULL,
	total_trades  INTEGER NOT NULL,
	winning_trades INTEGER NOT NULL,
	total_ticks   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS trades (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	seq          INTEGER NOT NULL,
	entry_time_us INTEGER NOT NULL,
	exit_time_us INTEGER NOT NULL,
	entry_price  REAL NOT NULL,
	exit_price   REAL NOT NULL,
	direction    TEXT NOT NULL,
	pnl          REAL NOT NULL,
	duration_us  INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Open 打开（或创建）归档数据库并建表
// 参数 path: SQLite 数据库路径
func Open(path string) (*ResultStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开归档数据库失败: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化归档表失败: %w", err)
	}
	return &ResultStore{db: db}, nil
}

// Close 关闭数据库连接
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// SaveRun 归档一次运行及其全部成交
// 运行记录与成交记录在同一事务内写入；ID 为空时自动生成
// 返回: 写入的运行 ID
func (s *ResultStore) SaveRun(ctx context.Context, run *RunRecord, trades []model.Trade) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("开启归档事务失败: %w", err)
	}
	defer tx.Rollback()

	m := run.Metrics
	if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (
	id, started_at_us, finished_at_us, data_file, threshold, window,
	total_return, volatility, sharpe_ratio, max_drawdown, win_rate,
	avg_trade_length_sec, ticks_per_second, total_trades, winning_trades, total_ticks
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAtUs, run.FinishedAtUs, run.DataFile, run.Threshold, run.Window,
		m.TotalReturn, m.Volatility, m.SharpeRatio, m.MaxDrawdown, m.WinRate,
		m.AvgTradeLengthSec, m.TicksPerSecond, m.TotalTrades, m.WinningTrades, m.TotalTicks,
	); err != nil {
		return "", fmt.Errorf("写入运行记录失败: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO trades (
	run_id, seq, entry_time_us, exit_time_us, entry_price, exit_price, direction, pnl, duration_us
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("准备成交写入失败: %w", err)
	}
	defer stmt.Close()

	for i := range trades {
		t := &trades[i]
		if _, err := stmt.ExecContext(ctx,
			run.ID, i, t.EntryTimeUs, t.ExitTimeUs, t.EntryPx, t.ExitPx,
			t.Direction.String(), t.PnL, t.DurationUs,
		); err != nil {
			return "", fmt.Errorf("写入第 %d 笔成交失败: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("提交归档事务失败: %w", err)
	}
	return run.ID, nil
}

// GetRun 按 ID 读取运行记录
func (s *ResultStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, started_at_us, finished_at_us, data_file, threshold, window,
	total_return, volatility, sharpe_ratio, max_drawdown, win_rate,
	avg_trade_length_sec, ticks_per_second, total_trades, winning_trades, total_ticks
FROM runs WHERE id = ?`, id)

	var r RunRecord
	if err := row.Scan(
		&r.ID, &r.StartedAtUs, &r.FinishedAtUs, &r.DataFile, &r.Threshold, &r.Window,
		&r.Metrics.TotalReturn, &r.Metrics.Volatility, &r.Metrics.SharpeRatio,
		&r.Metrics.MaxDrawdown, &r.Metrics.WinRate, &r.Metrics.AvgTradeLengthSec,
		&r.Metrics.TicksPerSecond, &r.Metrics.TotalTrades, &r.Metrics.WinningTrades,
		&r.Metrics.TotalTicks,
	); err != nil {
		return nil, fmt.Errorf("读取运行记录失败: %w", err)
	}
	return &r, nil
}

// ListRuns 按开始时间倒序列出最近的运行
// 参数 limit: 最多返回条数
func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at_us, finished_at_us, data_file, threshold, window,
	total_return, volatility, sharpe_ratio, max_drawdown, win_rate,
	avg_trade_length_sec, ticks_per_second, total_trades, winning_trades, total_ticks
FROM runs ORDER BY started_at_us DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询运行列表失败: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.ID, &r.StartedAtUs, &r.FinishedAtUs, &r.DataFile, &r.Threshold, &r.Window,
			&r.Metrics.TotalReturn, &r.Metrics.Volatility, &r.Metrics.SharpeRatio,
			&r.Metrics.MaxDrawdown, &r.Metrics.WinRate, &r.Metrics.AvgTradeLengthSec,
			&r.Metrics.TicksPerSecond, &r.Metrics.TotalTrades, &r.Metrics.WinningTrades,
			&r.Metrics.TotalTicks,
		); err != nil {
			return nil, fmt.Errorf("扫描运行记录失败: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TradesForRun 读取指定运行的全部成交（按平仓顺序）
func (s *ResultStore) TradesForRun(ctx context.Context, runID string) ([]model.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT entry_time_us, exit_time_us, entry_price, exit_price, direction, pnl, duration_us
FROM trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("查询成交失败: %w", err)
	}
	defer rows.Close()

	var out []model.Trade
	for rows.Next() {
		var t model.Trade
		var direction string
		if err := rows.Scan(
			&t.EntryTimeUs, &t.ExitTimeUs, &t.EntryPx, &t.ExitPx,
			&direction, &t.PnL, &t.DurationUs,
		); err != nil {
			return nil, fmt.Errorf("扫描成交失败: %w", err)
		}
		if direction == "SHORT" {
			t.Direction = model.SignalShort
		} else {
			t.Direction = model.SignalLong
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
