package rollup

import (
	"context"
	"math"
	"testing"

	"github.com/yejiban/yejiban/pkg/model"
)

type fakeSource struct {
	stats   []*model.DailyStat
	records []*model.HistoryRecord
}

func (f *fakeSource) ListStatsInRange(ctx context.Context, start, end string) ([]*model.DailyStat, error) {
	var out []*model.DailyStat
	for _, s := range f.stats {
		if s.Date >= start && s.Date <= end {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSource) ListRecordsInRange(ctx context.Context, start, end, source string) ([]*model.HistoryRecord, error) {
	var out []*model.HistoryRecord
	for _, r := range f.records {
		if r.ArchiveDate >= start && r.ArchiveDate <= end && r.DataSource == source {
			out = append(out, r)
		}
	}
	return out, nil
}

func dayStat(date, empID, name string, dispatches, dispatchSales int, revenue int64) *model.DailyStat {
	s := &model.DailyStat{
		ID:              model.StatID(date, empID),
		Date:            date,
		EmpID:           empID,
		EmpName:         name,
		TotalDispatches: dispatches,
		DispatchSales:   dispatchSales,
		TotalSales:      dispatchSales,
		TotalRevenue:    revenue,
	}
	s.DeriveRates()
	return s
}

// 汇率重算必须从汇总分子出发：0/10 与 10/20 合并应得 10/30≈0.333，
// 比率平均 (0+0.5)/2=0.25 是错的
func TestAggregate_SumThenDivide(t *testing.T) {
	f := &fakeSource{stats: []*model.DailyStat{
		dayStat("2024-05-01", "e1", "王小明", 10, 0, 0),
		dayStat("2024-05-02", "e1", "王小明", 20, 10, 5000),
	}}

	out, err := NewService(f, f).Aggregate(context.Background(), "2024-05-01", "2024-05-02", ModeIntegrated, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("期望 1 行, got %d", len(out))
	}

	p := out[0]
	if p.TotalDispatches != 30 || p.DispatchSales != 10 {
		t.Errorf("汇总分子错误: %d/%d", p.DispatchSales, p.TotalDispatches)
	}

	want := 10.0 / 30.0
	if math.Abs(p.ConversionRate-want) > 1e-9 {
		t.Errorf("ConversionRate = %v, want %v (不得对比率取平均)", p.ConversionRate, want)
	}
}

// 两行 (10,5) 与 (10,3) 合并为 (20,8), 转化率 0.4
func TestAggregate_Integrated(t *testing.T) {
	f := &fakeSource{stats: []*model.DailyStat{
		dayStat("2024-05-01", "e1", "王小明", 10, 5, 7000),
		dayStat("2024-05-02", "e1", "王小明", 10, 3, 3000),
		dayStat("2024-05-01", "e2", "李芳", 4, 2, 2000),
	}}

	out, err := NewService(f, f).Aggregate(context.Background(), "2024-05-01", "2024-05-02", ModeIntegrated, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("期望 2 行, got %d", len(out))
	}

	var wang *model.EmployeePerformance
	for _, p := range out {
		if p.EmpID == "e1" {
			wang = p
		}
	}
	if wang == nil {
		t.Fatal("未找到王小明的汇总行")
	}
	if wang.TotalDispatches != 20 || wang.DispatchSales != 8 {
		t.Errorf("汇总分子 = %d/%d, want 8/20", wang.DispatchSales, wang.TotalDispatches)
	}
	if wang.ConversionRate != 0.4 {
		t.Errorf("ConversionRate = %v, want 0.4", wang.ConversionRate)
	}
	if wang.TotalRevenue != 10000 {
		t.Errorf("TotalRevenue = %d, want 10000", wang.TotalRevenue)
	}
}

// 超卖日：汇总转化率展示层封顶 100%，原始计数不变
func TestAggregate_OversoldCappedAt100(t *testing.T) {
	f := &fakeSource{stats: []*model.DailyStat{
		dayStat("2024-05-01", "e1", "王小明", 2, 5, 5000),
	}}

	out, err := NewService(f, f).Aggregate(context.Background(), "2024-05-01", "2024-05-01", ModeIntegrated, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	p := out[0]
	if p.ConversionRate != 1 {
		t.Errorf("超卖转化率应封顶 1, got %v", p.ConversionRate)
	}
	if p.DispatchSales != 5 || p.TotalDispatches != 2 {
		t.Errorf("原始计数不得被修改: %d/%d", p.DispatchSales, p.TotalDispatches)
	}
}

// 零分母：恒为 0，不出现 NaN/Inf
func TestAggregate_ZeroDenominators(t *testing.T) {
	f := &fakeSource{stats: []*model.DailyStat{
		dayStat("2024-05-01", "e1", "王小明", 0, 0, 0),
	}}

	out, err := NewService(f, f).Aggregate(context.Background(), "2024-05-01", "2024-05-01", ModeIntegrated, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	p := out[0]
	if math.IsNaN(p.ConversionRate) || math.IsInf(p.ConversionRate, 0) {
		t.Errorf("ConversionRate = %v", p.ConversionRate)
	}
	if p.ConversionRate != 0 || p.AvgOrderValue != 0 {
		t.Errorf("零分母应得 0: rate=%v value=%d", p.ConversionRate, p.AvgOrderValue)
	}
}

func legacyRow(name string, dispatches, sales int, revenue int64) *model.EmployeePerformance {
	return &model.EmployeePerformance{
		EmpName:         name,
		TotalDispatches: dispatches,
		DispatchSales:   sales,
		TotalSales:      sales,
		TotalRevenue:    revenue,
	}
}

// 手工模式：存档快照按姓名折叠，当日快照计入一次
func TestAggregate_LegacyWithCurrentSnapshot(t *testing.T) {
	f := &fakeSource{records: []*model.HistoryRecord{
		model.NewHistoryRecord("2024-05-01", model.SourceManual,
			[]*model.EmployeePerformance{legacyRow("王小明", 10, 4, 4000)}),
	}}

	current := &CurrentSnapshot{
		Date:    "2024-05-02",
		Source:  model.SourceManual,
		Records: []*model.EmployeePerformance{legacyRow("王小明", 5, 2, 2000)},
	}

	out, err := NewService(f, f).Aggregate(context.Background(), "2024-05-01", "2024-05-02", ModeLegacy, current)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	p := out[0]
	if p.TotalDispatches != 15 || p.DispatchSales != 6 || p.TotalRevenue != 6000 {
		t.Errorf("汇总 = %d/%d/%d", p.DispatchSales, p.TotalDispatches, p.TotalRevenue)
	}
}

// 防重复计数：当日已存档时内存快照不再计入
func TestAggregate_LegacyNoDoubleCount(t *testing.T) {
	f := &fakeSource{records: []*model.HistoryRecord{
		model.NewHistoryRecord("2024-05-02", model.SourceManual,
			[]*model.EmployeePerformance{legacyRow("王小明", 5, 2, 2000)}),
	}}

	current := &CurrentSnapshot{
		Date:    "2024-05-02",
		Source:  model.SourceManual,
		Records: []*model.EmployeePerformance{legacyRow("王小明", 5, 2, 2000)},
	}

	out, err := NewService(f, f).Aggregate(context.Background(), "2024-05-01", "2024-05-02", ModeLegacy, current)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	p := out[0]
	if p.TotalDispatches != 5 || p.TotalRevenue != 2000 {
		t.Errorf("同日快照被重复计数: %d/%d", p.TotalDispatches, p.TotalRevenue)
	}
}

// 数据来源标签不匹配的存档不参与聚合
func TestAggregate_LegacyFiltersBySource(t *testing.T) {
	f := &fakeSource{records: []*model.HistoryRecord{
		model.NewHistoryRecord("2024-05-01", model.SourceManual,
			[]*model.EmployeePerformance{legacyRow("王小明", 10, 4, 4000)}),
		model.NewHistoryRecord("2024-05-01", model.SourceMerged,
			[]*model.EmployeePerformance{legacyRow("王小明", 99, 99, 99999)}),
	}}

	out, err := NewService(f, f).Aggregate(context.Background(), "2024-05-01", "2024-05-01", ModeLegacy, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if out[0].TotalRevenue != 4000 {
		t.Errorf("不同来源的存档混入聚合: %d", out[0].TotalRevenue)
	}
}

func TestWindow41(t *testing.T) {
	start, end, err := Window41("2024-05-31")
	if err != nil {
		t.Fatalf("Window41: %v", err)
	}
	if end != "2024-05-31" {
		t.Errorf("end = %q", end)
	}
	if start != "2024-04-21" {
		t.Errorf("start = %q, want 2024-04-21", start)
	}

	days, _ := model.DaysInRange(start, end)
	if len(days) != WindowDays {
		t.Errorf("窗口天数 = %d, want %d", len(days), WindowDays)
	}
}

func TestMonthRange(t *testing.T) {
	start, end, err := MonthRange("2024-02")
	if err != nil {
		t.Fatalf("MonthRange: %v", err)
	}
	if start != "2024-02-01" || end != "2024-02-29" {
		t.Errorf("2024-02 = [%s, %s]", start, end)
	}

	if _, _, err := MonthRange("bad"); err == nil {
		t.Error("非法月份应报错")
	}
}

func TestAggregate_UnknownMode(t *testing.T) {
	f := &fakeSource{}
	if _, err := NewService(f, f).Aggregate(context.Background(), "2024-05-01", "2024-05-01", "nope", nil); err == nil {
		t.Fatal("未知模式应报错")
	}
}
