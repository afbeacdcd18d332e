// Package target 提供月度目标追踪与每日快照存档
//
// 原始数据（RawData）永远独立于任何派生数据持久化：快照一经创建
// 只写一次，分析结果只能补写到 AnalyzedData，绝不覆盖原始数字。
package target

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/yejiban/yejiban/pkg/errors"
	"github.com/yejiban/yejiban/pkg/logger"
	"github.com/yejiban/yejiban/pkg/model"
)

// HistoryStore 存档快照存取接口
type HistoryStore interface {
	GetRecord(ctx context.Context, archiveDate, source string) (*model.HistoryRecord, error)
	SaveRecord(ctx context.Context, rec *model.HistoryRecord) error
	DeleteRecord(ctx context.Context, archiveDate, source string) error
}

// DailyRecordStore 员工日记录存取接口
type DailyRecordStore interface {
	ReplaceDailyRecords(ctx context.Context, date, source string, records []*model.EmployeeDailyRecord) error
}

// TargetStore 月度目标存取接口
type TargetStore interface {
	GetTarget(ctx context.Context, yearMonth string) (*model.MonthlyTarget, error)
	SetTarget(ctx context.Context, target *model.MonthlyTarget) error
}

// Tracker 目标追踪服务
type Tracker struct {
	history HistoryStore
	daily   DailyRecordStore
	targets TargetStore
}

// NewTracker 创建目标追踪服务
func NewTracker(history HistoryStore, daily DailyRecordStore, targets TargetStore) *Tracker {
	return &Tracker{history: history, daily: daily, targets: targets}
}

// RecordDailySnapshot 创建（或显式覆盖）每日快照
//
// 每个 (存档日期, 数据来源) 只允许一条。同日已有存档且未带覆盖标记时
// 返回 RECORD_EXISTS——覆盖是破坏性操作，必须由调用方显式确认。
// 员工日记录随快照一起整段重写。
func (t *Tracker) RecordDailySnapshot(ctx context.Context, date, source string, rawData []*model.EmployeePerformance, overwrite bool) (*model.HistoryRecord, error) {
	if _, err := model.ParseDate(date); err != nil {
		return nil, err
	}

	existing, err := t.history.GetRecord(ctx, date, source)
	if err != nil {
		return nil, fmt.Errorf("查询存档失败: %w", err)
	}
	if existing != nil {
		if !overwrite {
			return nil, errors.ErrRecordExists.WithField("archive_date", date).WithField("data_source", source)
		}
		logger.Warn().
			Str("archive_date", date).
			Str("data_source", source).
			Msg("覆盖已有存档")
		if err := t.history.DeleteRecord(ctx, date, source); err != nil {
			return nil, fmt.Errorf("删除旧存档失败: %w", err)
		}
	}

	rec := model.NewHistoryRecord(date, source, rawData)
	if err := t.history.SaveRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("写入存档失败: %w", err)
	}

	dailyRecords := make([]*model.EmployeeDailyRecord, 0, len(rawData))
	now := time.Now()
	for _, row := range rawData {
		dailyRecords = append(dailyRecords, &model.EmployeeDailyRecord{
			ID:          model.DailyRecordID(row.EmpID, date, source),
			EmpID:       row.EmpID,
			Date:        date,
			DataSource:  source,
			Performance: row,
			CreatedAt:   now,
		})
	}
	if err := t.daily.ReplaceDailyRecords(ctx, date, source, dailyRecords); err != nil {
		return nil, fmt.Errorf("写入员工日记录失败: %w", err)
	}

	return rec, nil
}

// SaveAnalysis 把分析结果补写到已有快照（只写 AnalyzedData，不动 RawData）
func (t *Tracker) SaveAnalysis(ctx context.Context, date, source string, analyzed []*model.EmployeePerformance) error {
	rec, err := t.history.GetRecord(ctx, date, source)
	if err != nil {
		return fmt.Errorf("查询存档失败: %w", err)
	}
	if rec == nil {
		return errors.ErrNotFound.WithField("archive_date", date)
	}

	rec.AnalyzedData = analyzed
	rec.IsAnalyzed = true
	rec.UpdatedAt = time.Now()
	return t.history.SaveRecord(ctx, rec)
}

// SetMonthlyTarget 设置某月的营收目标
func (t *Tracker) SetMonthlyTarget(ctx context.Context, yearMonth string, amount int64) error {
	if _, err := time.Parse(model.MonthLayout, yearMonth); err != nil {
		return errors.New(errors.CodeInvalidInput, "月份格式无效").WithCause(err)
	}
	if amount < 0 {
		return errors.New(errors.CodeInvalidInput, "目标金额不能为负")
	}
	return t.targets.SetTarget(ctx, &model.MonthlyTarget{
		YearMonth: yearMonth,
		Amount:    amount,
		UpdatedAt: time.Now(),
	})
}

// MonthlyTarget 取某月目标，未设置时返回 0 目标
func (t *Tracker) MonthlyTarget(ctx context.Context, yearMonth string) (int64, error) {
	mt, err := t.targets.GetTarget(ctx, yearMonth)
	if err != nil {
		return 0, err
	}
	if mt == nil {
		return 0, nil
	}
	return mt.Amount, nil
}

// DailyRequired 今日所需营收 = max(目标 − 本月已完成, 0) ÷ 本月剩余天数
// 剩余天数为 0（当月最后一天）时返回全部缺口，不做除零
func DailyRequired(targetAmount, monthToDate int64, date time.Time) int64 {
	gap := targetAmount - monthToDate
	if gap <= 0 {
		return 0
	}

	remaining := daysInMonth(date) - date.Day()
	if remaining <= 0 {
		return gap
	}
	return int64(math.Round(float64(gap) / float64(remaining)))
}

// Forecast 月末预测 = 本月已完成 ÷ 已过天数 × 当月总天数（线性外推）
func Forecast(monthToDate int64, date time.Time) int64 {
	day := date.Day()
	if day == 0 {
		return 0
	}
	return int64(math.Round(float64(monthToDate) / float64(day) * float64(daysInMonth(date))))
}

// daysInMonth 当月总天数
func daysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, -1).Day()
}
