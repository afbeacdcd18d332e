// Package rollup 提供滚动窗口聚合
//
// 给定日期范围，把日统计（或存档快照）按员工折叠为单条多日汇总。
// 所有分子字段直接求和，派生指标从汇总值重算——绝不对已算好的比率
// 取平均（两天 0/10 与 10/20 的正确合并结果是 10/30≈0.33，而比率
// 平均会错得出 0.25）。
package rollup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yejiban/yejiban/pkg/model"
)

// Mode 聚合数据来源模式
type Mode string

const (
	// ModeIntegrated 整合模式：读取合并管线产出的日统计
	ModeIntegrated Mode = "integrated"
	// ModeLegacy 手工模式：读取存档快照（手工粘贴/OCR 数据）
	ModeLegacy Mode = "legacy"
)

// WindowDays 长周期滚动窗口天数
const WindowDays = 41

// StatSource 日统计读取接口
type StatSource interface {
	ListStatsInRange(ctx context.Context, start, end string) ([]*model.DailyStat, error)
}

// HistorySource 存档快照读取接口
type HistorySource interface {
	ListRecordsInRange(ctx context.Context, start, end, source string) ([]*model.HistoryRecord, error)
}

// CurrentSnapshot 当日（可能尚未存档的）内存快照
// 聚合时恰好计入一次：若同日已有存档则跳过，防止重复计数
type CurrentSnapshot struct {
	Date    string                       `json:"date"`
	Source  string                       `json:"source"`
	Records []*model.EmployeePerformance `json:"records"`
}

// Service 聚合服务
type Service struct {
	stats   StatSource
	history HistorySource
}

// NewService 创建聚合服务
func NewService(stats StatSource, history HistorySource) *Service {
	return &Service{stats: stats, history: history}
}

// Aggregate 聚合日期范围内的业绩为每员工一条汇总行
// current 仅手工模式使用，可为 nil
func (s *Service) Aggregate(ctx context.Context, start, end string, mode Mode, current *CurrentSnapshot) ([]*model.EmployeePerformance, error) {
	if err := model.ValidDateRange(start, end); err != nil {
		return nil, err
	}

	switch mode {
	case ModeIntegrated:
		return s.aggregateIntegrated(ctx, start, end)
	case ModeLegacy:
		return s.aggregateLegacy(ctx, start, end, current)
	default:
		return nil, fmt.Errorf("未知聚合模式: %q", mode)
	}
}

// aggregateIntegrated 整合模式：按员工ID折叠日统计
func (s *Service) aggregateIntegrated(ctx context.Context, start, end string) ([]*model.EmployeePerformance, error) {
	stats, err := s.stats.ListStatsInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("读取日统计失败: %w", err)
	}

	byEmp := make(map[string]*model.EmployeePerformance)
	for _, st := range stats {
		p, ok := byEmp[st.EmpID]
		if !ok {
			p = &model.EmployeePerformance{EmpID: st.EmpID, EmpName: st.EmpName}
			byEmp[st.EmpID] = p
		}
		p.Add(statToPerformance(st))
		if st.EmpName != "" {
			p.EmpName = st.EmpName
		}
	}

	return finalize(byEmp), nil
}

// aggregateLegacy 手工模式：按员工姓名折叠存档快照
func (s *Service) aggregateLegacy(ctx context.Context, start, end string, current *CurrentSnapshot) ([]*model.EmployeePerformance, error) {
	source := model.SourceManual
	if current != nil && current.Source != "" {
		source = current.Source
	}

	records, err := s.history.ListRecordsInRange(ctx, start, end, source)
	if err != nil {
		return nil, fmt.Errorf("读取存档快照失败: %w", err)
	}

	byName := make(map[string]*model.EmployeePerformance)
	archived := make(map[string]struct{}, len(records))
	for _, rec := range records {
		archived[rec.ArchiveDate] = struct{}{}
		for _, row := range rec.RawData {
			addPerformance(byName, row)
		}
	}

	// 当日快照恰好计入一次：同日已存档则跳过
	if current != nil && current.Date >= start && current.Date <= end {
		if _, done := archived[current.Date]; !done {
			for _, row := range current.Records {
				addPerformance(byName, row)
			}
		}
	}

	return finalize(byName), nil
}

// addPerformance 按姓名累加一行
func addPerformance(byName map[string]*model.EmployeePerformance, row *model.EmployeePerformance) {
	p, ok := byName[row.EmpName]
	if !ok {
		p = &model.EmployeePerformance{EmpID: row.EmpID, EmpName: row.EmpName}
		byName[row.EmpName] = p
	}
	p.Add(row)
}

// finalize 重算派生指标并按确定顺序输出
func finalize(m map[string]*model.EmployeePerformance) []*model.EmployeePerformance {
	out := make([]*model.EmployeePerformance, 0, len(m))
	for _, p := range m {
		p.DeriveRates()
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmpName != out[j].EmpName {
			return out[i].EmpName < out[j].EmpName
		}
		return out[i].EmpID < out[j].EmpID
	})
	return out
}

// statToPerformance 日统计转业绩行（逐字段搬运分子，不带派生指标）
func statToPerformance(st *model.DailyStat) *model.EmployeePerformance {
	return &model.EmployeePerformance{
		EmpID:             st.EmpID,
		EmpName:           st.EmpName,
		TotalDispatches:   st.TotalDispatches,
		TotalSales:        st.TotalSales,
		DispatchSales:     st.DispatchSales,
		FollowupSales:     st.FollowupSales,
		RenewalSales:      st.RenewalSales,
		UnclassifiedSales: st.UnclassifiedSales,
		GiftCount:         st.GiftCount,
		TotalRevenue:      st.TotalRevenue,
		FollowupRevenue:   st.FollowupRevenue,
		RenewalRevenue:    st.RenewalRevenue,
		ReturnRevenue:     st.ReturnRevenue,
		ChannelRevenue:    st.ChannelRevenue,
	}
}

// Window41 返回以 end 为终点的 41 天滚动窗口 [start, end]
func Window41(end string) (string, string, error) {
	e, err := model.ParseDate(end)
	if err != nil {
		return "", "", err
	}
	start := e.AddDate(0, 0, -(WindowDays - 1))
	return model.FormatDate(start), end, nil
}

// MonthRange 返回某月的 [月初, 月末]
func MonthRange(yearMonth string) (string, string, error) {
	t, err := time.Parse(model.MonthLayout, yearMonth)
	if err != nil {
		return "", "", fmt.Errorf("月份格式无效 %q: %w", yearMonth, err)
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return model.FormatDate(first), model.FormatDate(last), nil
}
