// Package jobs 背景排程任務 (cron)
package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Counter 可回報目前筆數的元件
type Counter interface {
	Len() int
}

// StatsReporter 定期把帳本的規模寫到日誌
//
// 只讀取計數器，不會碰到任何使用者鎖
type StatsReporter struct {
	cron      *cron.Cron
	logger    zerolog.Logger
	locks     Counter
	balances  Counter
	histories Counter
}

func NewStatsReporter(locks, balances, histories Counter, logger zerolog.Logger) *StatsReporter {
	return &StatsReporter{
		cron:      cron.New(),
		logger:    logger,
		locks:     locks,
		balances:  balances,
		histories: histories,
	}
}

// Start 依 schedule 啟動排程
//
// 參數:
//
//	schedule: cron 表達式，例如 "@every 1m" 或 "*/5 * * * *"
func (r *StatsReporter) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.Report); err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	r.cron.Start()
	r.logger.Info().Str("schedule", schedule).Msg("stats reporter started")
	return nil
}

// Stop 停止排程並等待執行中的任務結束
func (r *StatsReporter) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info().Msg("stats reporter stopped")
}

// Report 立即輸出一次統計
func (r *StatsReporter) Report() {
	r.logger.Info().
		Int("users", r.balances.Len()).
		Int("locks", r.locks.Len()).
		Int("histories", r.histories.Len()).
		Msg("ledger stats")
}
