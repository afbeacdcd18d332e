// Package scenario 提供场景测试
package scenario

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yejiban/yejiban/pkg/analysis"
	"github.com/yejiban/yejiban/pkg/merge"
	"github.com/yejiban/yejiban/pkg/model"
	"github.com/yejiban/yejiban/pkg/ranking"
	"github.com/yejiban/yejiban/pkg/rollup"
	"github.com/yejiban/yejiban/pkg/target"
)

// memStore 串起整条管线的内存存储
type memStore struct {
	employees  []*model.Employee
	orders     []*model.Order
	dispatches []*model.DispatchCount
	stats      map[string]*model.DailyStat
	records    map[string]*model.HistoryRecord // key: date|source
	daily      map[string][]*model.EmployeeDailyRecord
	targets    map[string]*model.MonthlyTarget
}

func newMemStore() *memStore {
	return &memStore{
		stats:   make(map[string]*model.DailyStat),
		records: make(map[string]*model.HistoryRecord),
		daily:   make(map[string][]*model.EmployeeDailyRecord),
		targets: make(map[string]*model.MonthlyTarget),
	}
}

func (m *memStore) ListEmployees(ctx context.Context) ([]*model.Employee, error) {
	return m.employees, nil
}

func (m *memStore) ListOrdersInRange(ctx context.Context, start, end string) ([]*model.Order, error) {
	var out []*model.Order
	for _, o := range m.orders {
		if o.Date >= start && o.Date <= end {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) ListDispatchesInRange(ctx context.Context, start, end string) ([]*model.DispatchCount, error) {
	var out []*model.DispatchCount
	for _, d := range m.dispatches {
		if d.Date >= start && d.Date <= end {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) DeleteStatsInRange(ctx context.Context, start, end string) error {
	for id, s := range m.stats {
		if s.Date >= start && s.Date <= end {
			delete(m.stats, id)
		}
	}
	return nil
}

func (m *memStore) InsertStats(ctx context.Context, stats []*model.DailyStat) error {
	for _, s := range stats {
		m.stats[s.ID] = s
	}
	return nil
}

func (m *memStore) ListStatsInRange(ctx context.Context, start, end string) ([]*model.DailyStat, error) {
	var out []*model.DailyStat
	for _, s := range m.stats {
		if s.Date >= start && s.Date <= end {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) GetRecord(ctx context.Context, date, source string) (*model.HistoryRecord, error) {
	return m.records[date+"|"+source], nil
}

func (m *memStore) SaveRecord(ctx context.Context, rec *model.HistoryRecord) error {
	m.records[rec.ArchiveDate+"|"+rec.DataSource] = rec
	return nil
}

func (m *memStore) DeleteRecord(ctx context.Context, date, source string) error {
	delete(m.records, date+"|"+source)
	return nil
}

func (m *memStore) ListRecordsInRange(ctx context.Context, start, end, source string) ([]*model.HistoryRecord, error) {
	var out []*model.HistoryRecord
	for _, rec := range m.records {
		if rec.ArchiveDate >= start && rec.ArchiveDate <= end && (source == "" || rec.DataSource == source) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) ReplaceDailyRecords(ctx context.Context, date, source string, records []*model.EmployeeDailyRecord) error {
	m.daily[date+"|"+source] = records
	return nil
}

func (m *memStore) GetTarget(ctx context.Context, ym string) (*model.MonthlyTarget, error) {
	return m.targets[ym], nil
}

func (m *memStore) SetTarget(ctx context.Context, t *model.MonthlyTarget) error {
	m.targets[t.YearMonth] = t
	return nil
}

// scriptedAdvisor 按脚本返回分类的假顾问
type scriptedAdvisor struct {
	results []analysis.AdviceResult
	fail    bool
}

func (a *scriptedAdvisor) Advise(ctx context.Context, reqs []analysis.AdviceRequest) ([]analysis.AdviceResult, error) {
	if a.fail {
		return nil, fmt.Errorf("顾问服务不可用")
	}
	return a.results, nil
}

// TestSalesBoardPipeline 三天销售数据走完整管线：
// 合并 -> 聚合 -> 排名 -> 快照存档 -> 分类 -> 目标追踪
func TestSalesBoardPipeline(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	wang := model.NewEmployee("王小明")
	li := model.NewEmployee("李芳")
	li.AddAlias("小李")
	store.employees = []*model.Employee{wang, li}

	store.orders = []*model.Order{
		{OrderID: "o1", Date: "2024-06-03", RawName: "王小明", Amount: 2000, OrderType: model.OrderDispatch, ProductChannel: model.ChannelYishin, Status: model.OrderStatusNormal},
		{OrderID: "o2", Date: "2024-06-03", RawName: "王小明", Amount: 1000, OrderType: model.OrderDispatch, ProductChannel: model.ChannelMinshi, Status: model.OrderStatusNormal},
		{OrderID: "o3", Date: "2024-06-03", RawName: "王小明", Amount: 500, OrderType: model.OrderFollowup, ProductChannel: model.ChannelCompany, Status: model.OrderStatusNormal},
		{OrderID: "o4", Date: "2024-06-03", RawName: "小李", Amount: 1500, OrderType: model.OrderDispatch, ProductChannel: model.ChannelYishin, Status: model.OrderStatusNormal},
		{OrderID: "o5", Date: "2024-06-04", RawName: "王小明", Amount: 800, OrderType: model.OrderRenewal, ProductChannel: model.ChannelCompany, Status: model.OrderStatusNormal},
		{OrderID: "o6", Date: "2024-06-04", RawName: "王小明", Amount: 200, OrderType: model.OrderReturn, ProductChannel: model.ChannelYishin, Status: model.OrderStatusNormal},
		{OrderID: "o7", Date: "2024-06-05", RawName: "小李", Amount: 300, OrderType: model.OrderDispatch, ProductChannel: model.ChannelGift, Status: model.OrderStatusNormal},
	}
	store.dispatches = []*model.DispatchCount{
		model.NewDispatchCount("2024-06-03", wang.ID, "王小明", 5),
		model.NewDispatchCount("2024-06-03", li.ID, "李芳", 10),
		model.NewDispatchCount("2024-06-04", wang.ID, "王小明", 4),
	}

	// 第一步：双轨合并
	engine := merge.NewEngine(store, store, store, store)
	res, err := engine.Merge(ctx, "2024-06-03", "2024-06-05")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("全部姓名应可解析, Warnings = %+v", res.Warnings)
	}

	// 第二步：整合口径聚合
	svc := rollup.NewService(store, store)
	records, err := svc.Aggregate(ctx, "2024-06-03", "2024-06-05", rollup.ModeIntegrated, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("期望 2 名员工, got %d", len(records))
	}

	var wangPerf, liPerf *model.EmployeePerformance
	for _, rec := range records {
		switch rec.EmpID {
		case wang.ID:
			wangPerf = rec
		case li.ID:
			liPerf = rec
		}
	}
	if wangPerf == nil || liPerf == nil {
		t.Fatalf("员工行缺失: %+v", records)
	}

	if wangPerf.TotalDispatches != 9 || wangPerf.DispatchSales != 2 {
		t.Errorf("王小明派单/成交 = %d/%d, want 9/2", wangPerf.TotalDispatches, wangPerf.DispatchSales)
	}
	if wangPerf.TotalRevenue != 4500 || wangPerf.ReturnRevenue != 200 {
		t.Errorf("王小明营收 = %d (退货 %d), want 4500 (200)", wangPerf.TotalRevenue, wangPerf.ReturnRevenue)
	}
	// 先求和再相除：2/9，而不是各日转化率的平均
	if want := float64(2) / float64(9); wangPerf.ConversionRate != want {
		t.Errorf("王小明转化率 = %v, want %v", wangPerf.ConversionRate, want)
	}
	if wangPerf.AvgOrderValue != 1600 {
		t.Errorf("王小明客单价 = %d, want 1600", wangPerf.AvgOrderValue)
	}

	if liPerf.TotalRevenue != 1800 || liPerf.GiftCount != 1 {
		t.Errorf("李芳营收/赠品 = %d/%d, want 1800/1", liPerf.TotalRevenue, liPerf.GiftCount)
	}
	if liPerf.ConversionRate != 0.1 {
		t.Errorf("李芳转化率 = %v, want 0.1", liPerf.ConversionRate)
	}

	// 第三步：三轴稳定排名
	ranking.Rank(records)
	if wangPerf.RevenueRank != 1 || liPerf.RevenueRank != 2 {
		t.Errorf("营收排名 = %d/%d, want 1/2", wangPerf.RevenueRank, liPerf.RevenueRank)
	}
	if wangPerf.FollowupRank != 1 {
		t.Errorf("追踪排名 = %d, want 1", wangPerf.FollowupRank)
	}
	if liPerf.ValueRank != 1 || wangPerf.ValueRank != 2 {
		t.Errorf("客单价排名 = %d/%d, want 1/2", liPerf.ValueRank, wangPerf.ValueRank)
	}

	// 第四步：快照存档 + 目标追踪
	tracker := target.NewTracker(store, store, store)
	rec, err := tracker.RecordDailySnapshot(ctx, "2024-06-05", model.SourceMerged, records, false)
	if err != nil {
		t.Fatalf("RecordDailySnapshot: %v", err)
	}
	if rec.TotalRevenue != 6300 {
		t.Errorf("快照总营收 = %d, want 6300", rec.TotalRevenue)
	}

	if err := tracker.SetMonthlyTarget(ctx, "2024-06", 100000); err != nil {
		t.Fatalf("SetMonthlyTarget: %v", err)
	}
	day := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	// 缺口 93700，剩余 25 天
	if got := target.DailyRequired(100000, 6300, day); got != 3748 {
		t.Errorf("DailyRequired = %d, want 3748", got)
	}
	// 6300/5*30
	if got := target.Forecast(6300, day); got != 37800 {
		t.Errorf("Forecast = %d, want 37800", got)
	}

	// 第五步：分类与建议
	advisor := &scriptedAdvisor{results: []analysis.AdviceResult{
		{ID: wang.ID, Category: "分类：冠军", Advice: "保持节奏"},
		{ID: li.ID, Category: "风险", Advice: "关注转化率"},
	}}
	orch := analysis.NewOrchestrator(advisor)

	classified := orch.Classify(ctx, records, nil)
	for _, rec := range classified {
		switch rec.EmpID {
		case wang.ID:
			if rec.Category != model.CategoryChampion {
				t.Errorf("王小明分类 = %q, want 冠军（模糊匹配）", rec.Category)
			}
		case li.ID:
			if rec.Category != model.CategoryRisk {
				t.Errorf("李芳分类 = %q, want 风险", rec.Category)
			}
		}
	}

	if err := tracker.SaveAnalysis(ctx, "2024-06-05", model.SourceMerged, classified); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	saved := store.records["2024-06-05|"+model.SourceMerged]
	if !saved.IsAnalyzed || len(saved.AnalyzedData) != 2 {
		t.Errorf("分析结果未写入快照: analyzed=%v rows=%d", saved.IsAnalyzed, len(saved.AnalyzedData))
	}

	// 顾问失败时优雅降级：已有分类不丢
	advisor.fail = true
	degraded := orch.Classify(ctx, classified, nil)
	for _, rec := range degraded {
		if rec.Category == "" {
			t.Errorf("降级后分类被清空: %s", rec.EmpName)
		}
	}
}

// TestAliasCorrectionReplay 别名后补登记后重跑合并追溯修正历史归属
func TestAliasCorrectionReplay(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	zhao := model.NewEmployee("赵倩")
	store.employees = []*model.Employee{zhao}
	store.orders = []*model.Order{
		{OrderID: "o1", Date: "2024-06-10", RawName: "倩倩", Amount: 2600, OrderType: model.OrderDispatch, ProductChannel: model.ChannelYishin, Status: model.OrderStatusNormal},
	}

	engine := merge.NewEngine(store, store, store, store)
	res, err := engine.Merge(ctx, "2024-06-10", "2024-06-10")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Stats[0].EmpID != model.UnknownEmpID || len(res.Warnings) != 1 {
		t.Fatalf("登记前应归入 unknown 并告警: %+v", res)
	}

	zhao.AddAlias("倩倩")
	res, err = engine.Merge(ctx, "2024-06-10", "2024-06-10")
	if err != nil {
		t.Fatalf("重跑 Merge: %v", err)
	}
	if res.Stats[0].EmpID != zhao.ID {
		t.Errorf("登记后应解析到赵倩, got %q", res.Stats[0].EmpID)
	}

	// 聚合中不应再出现 unknown 行
	svc := rollup.NewService(store, store)
	records, err := svc.Aggregate(ctx, "2024-06-10", "2024-06-10", rollup.ModeIntegrated, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(records) != 1 || records[0].EmpID != zhao.ID {
		t.Errorf("聚合结果 = %+v, want 仅赵倩一行", records)
	}
}
