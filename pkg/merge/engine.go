// Package merge 实现双轨数据合并引擎
//
// 订单流水与派单量是两条独立采集的数据轨：订单按单条成交记录存储，
// 派单量按 (日期, 员工) 存储转化率的分母。合并引擎对给定日期范围
// 读出两轨数据，按当前别名表重新解析身份，归并为每 (日期, 员工) 一条
// 日统计，并对该范围做整段替换写入（先删后写，不做增量修补）。
//
// 同输入重复合并产生完全相同的输出（幂等），因此批量写入中途失败
// 只需整体重试，不需要部分回滚。
package merge

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yejiban/yejiban/pkg/logger"
	"github.com/yejiban/yejiban/pkg/model"
	"github.com/yejiban/yejiban/pkg/resolver"
)

// DefaultBatchSize 默认批量写入上限（对齐底层存储的写批次限制）
const DefaultBatchSize = 500

// EmployeeSource 员工目录读取接口
type EmployeeSource interface {
	ListEmployees(ctx context.Context) ([]*model.Employee, error)
}

// OrderSource 订单读取接口
type OrderSource interface {
	// ListOrdersInRange 返回日期范围内的全部订单（含拒收/取消，由引擎过滤）
	ListOrdersInRange(ctx context.Context, start, end string) ([]*model.Order, error)
}

// DispatchSource 派单量读取接口
type DispatchSource interface {
	ListDispatchesInRange(ctx context.Context, start, end string) ([]*model.DispatchCount, error)
}

// StatStore 日统计写入接口
type StatStore interface {
	// DeleteStatsInRange 删除日期范围内的全部日统计
	DeleteStatsInRange(ctx context.Context, start, end string) error
	// InsertStats 批量写入日统计（单批原子）
	InsertStats(ctx context.Context, stats []*model.DailyStat) error
}

// Engine 合并引擎
type Engine struct {
	employees  EmployeeSource
	orders     OrderSource
	dispatches DispatchSource
	stats      StatStore
	batchSize  int
	log        *logger.MergeLogger
}

// NewEngine 创建合并引擎
func NewEngine(employees EmployeeSource, orders OrderSource, dispatches DispatchSource, stats StatStore) *Engine {
	return &Engine{
		employees:  employees,
		orders:     orders,
		dispatches: dispatches,
		stats:      stats,
		batchSize:  DefaultBatchSize,
		log:        logger.NewMergeLogger(),
	}
}

// WithBatchSize 设置批量写入上限
func (e *Engine) WithBatchSize(n int) *Engine {
	if n > 0 {
		e.batchSize = n
	}
	return e
}

// Merge 对日期范围执行双轨合并，返回写入的日统计与合并警告
//
// 员工目录每次重新读取（不缓存），保证后补登记的别名在本次合并即生效。
// 替换写入不跨整个范围做事务；中途失败时重跑即可，幂等保证结果一致。
func (e *Engine) Merge(ctx context.Context, start, end string) (*Result, error) {
	if err := model.ValidDateRange(start, end); err != nil {
		return nil, err
	}

	began := time.Now()

	employees, err := e.employees.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取员工目录失败: %w", err)
	}
	dir := resolver.NewDirectory(employees)

	orders, err := e.orders.ListOrdersInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("读取订单失败: %w", err)
	}

	dispatches, err := e.dispatches.ListDispatchesInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("读取派单量失败: %w", err)
	}

	e.log.StartMerge(start, end, len(orders), len(dispatches))

	result := Build(dir, orders, dispatches)
	for _, w := range result.Warnings {
		e.log.UnresolvedName(w.RawName, w.Date)
	}
	for _, u := range result.Unclassified {
		e.log.UnclassifiedOrder(u.OrderID, u.OrderType)
	}

	// 整段替换：先删后写
	if err := e.stats.DeleteStatsInRange(ctx, start, end); err != nil {
		return nil, fmt.Errorf("删除旧日统计失败: %w", err)
	}

	for i := 0; i < len(result.Stats); i += e.batchSize {
		j := i + e.batchSize
		if j > len(result.Stats) {
			j = len(result.Stats)
		}
		if err := e.stats.InsertStats(ctx, result.Stats[i:j]); err != nil {
			// 可能已部分替换；合并幂等，调用方整体重试即可
			return nil, fmt.Errorf("写入日统计失败 (批次 %d-%d): %w", i, j, err)
		}
	}

	e.log.MergeComplete(start, end, len(result.Stats), time.Since(began))
	return result, nil
}

// UnresolvedWarning 无法识别的姓名警告
type UnresolvedWarning struct {
	RawName string `json:"raw_name"`
	Date    string `json:"date"`
}

// UnclassifiedOrder 类型无法识别的订单
type UnclassifiedOrder struct {
	OrderID   string `json:"order_id"`
	OrderType string `json:"order_type"`
}

// Result 合并计算结果
type Result struct {
	Stats        []*model.DailyStat  `json:"stats"`
	Warnings     []UnresolvedWarning `json:"warnings,omitempty"`
	Unclassified []UnclassifiedOrder `json:"unclassified,omitempty"`
}

// statKey 日统计分组键
type statKey struct {
	date  string
	empID string
}

// Build 纯内存合并计算（无 I/O）
//
// 每个订单的 EmpID 按当前目录由 RawName 重新解析，不信任存储值。
// 输出按 (日期, 员工ID) 排序，保证同输入字节级一致。
func Build(dir *resolver.Directory, orders []*model.Order, dispatches []*model.DispatchCount) *Result {
	res := &Result{}
	mergedAt := time.Now()

	// 重新解析身份并按 (日期, 员工) 分组；拒收/取消的订单排除
	grouped := make(map[statKey][]*model.Order)
	warned := make(map[string]struct{})
	for _, o := range orders {
		if o.Excluded() {
			continue
		}
		empID := dir.Resolve(o.RawName)
		if empID == model.UnknownEmpID {
			wk := o.Date + "|" + o.RawName
			if _, ok := warned[wk]; !ok {
				warned[wk] = struct{}{}
				res.Warnings = append(res.Warnings, UnresolvedWarning{RawName: o.RawName, Date: o.Date})
			}
		}
		ro := *o
		ro.EmpID = empID
		k := statKey{o.Date, empID}
		grouped[k] = append(grouped[k], &ro)
	}

	// 派单量按 (日期, 员工) 索引
	dispatchIdx := make(map[statKey]*model.DispatchCount, len(dispatches))
	for _, d := range dispatches {
		dispatchIdx[statKey{d.Date, d.EmpID}] = d
	}

	// 两轨键的并集构成输出行集
	keys := make(map[statKey]struct{}, len(grouped)+len(dispatchIdx))
	for k := range grouped {
		keys[k] = struct{}{}
	}
	for k := range dispatchIdx {
		keys[k] = struct{}{}
	}

	for k := range keys {
		stat := buildStat(k, dir, grouped[k], dispatchIdx[k], mergedAt, res)
		if stat == nil {
			continue
		}
		res.Stats = append(res.Stats, stat)
	}

	sort.Slice(res.Stats, func(i, j int) bool {
		if res.Stats[i].Date != res.Stats[j].Date {
			return res.Stats[i].Date < res.Stats[j].Date
		}
		return res.Stats[i].EmpID < res.Stats[j].EmpID
	})
	sort.Slice(res.Warnings, func(i, j int) bool {
		if res.Warnings[i].Date != res.Warnings[j].Date {
			return res.Warnings[i].Date < res.Warnings[j].Date
		}
		return res.Warnings[i].RawName < res.Warnings[j].RawName
	})
	sort.Slice(res.Unclassified, func(i, j int) bool {
		return res.Unclassified[i].OrderID < res.Unclassified[j].OrderID
	})

	return res
}

// buildStat 归并单个 (日期, 员工) 键的订单与派单量
// 零派单、零营收且身份未知的键是空白/垃圾导入行，直接丢弃
func buildStat(k statKey, dir *resolver.Directory, orders []*model.Order, dispatch *model.DispatchCount, mergedAt time.Time, res *Result) *model.DailyStat {
	stat := &model.DailyStat{
		ID:               model.StatID(k.date, k.empID),
		Date:             k.date,
		EmpID:            k.empID,
		ProductBreakdown: make(map[string]int),
		MergedAt:         mergedAt,
	}

	if dispatch != nil {
		stat.TotalDispatches = dispatch.TotalDispatches
	}

	// 订单按ID排序，保证 OrderIDs 与 TotalRevenue 累加顺序确定
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderID < orders[j].OrderID })

	for _, o := range orders {
		stat.OrderIDs = append(stat.OrderIDs, o.OrderID)
		stat.TotalRevenue += o.Amount

		if o.Product != "" {
			stat.ProductBreakdown[o.Product]++
		} else {
			stat.ProductBreakdown[string(o.ProductChannel)]++
		}

		// 渠道分桶：赠品单独计数，不进任何类型营收
		switch model.NormalizeChannel(string(o.ProductChannel)) {
		case model.ChannelGift:
			stat.GiftCount++
			continue
		case model.ChannelYishin:
			stat.ChannelRevenue.Yishin += o.Amount
		case model.ChannelMinshi:
			stat.ChannelRevenue.Minshi += o.Amount
		case model.ChannelCompany:
			stat.ChannelRevenue.Company += o.Amount
		default:
			stat.ChannelRevenue.Other += o.Amount
		}

		// 类型分桶：退货不计成交单数；未识别类型显式计入未分类
		switch model.NormalizeOrderType(string(o.OrderType)) {
		case model.OrderDispatch:
			stat.DispatchSales++
			stat.TotalSales++
		case model.OrderFollowup:
			stat.FollowupSales++
			stat.FollowupRevenue += o.Amount
			stat.TotalSales++
		case model.OrderRenewal:
			stat.RenewalSales++
			stat.RenewalRevenue += o.Amount
			stat.TotalSales++
		case model.OrderReturn:
			stat.ReturnRevenue += o.Amount
		default:
			stat.UnclassifiedSales++
			stat.TotalSales++
			res.Unclassified = append(res.Unclassified, UnclassifiedOrder{
				OrderID:   o.OrderID,
				OrderType: string(o.OrderType),
			})
		}
	}

	// 空白导入行：无派单、无营收、身份未知
	if k.empID == model.UnknownEmpID && stat.TotalDispatches == 0 && stat.TotalRevenue == 0 {
		return nil
	}

	stat.DeriveRates()
	stat.EmpName = displayName(k.empID, dir, dispatch, orders)
	return stat
}

// displayName 展示名优先级：目录显示名 > 派单记录姓名 > 订单原始姓名 > 占位符
func displayName(empID string, dir *resolver.Directory, dispatch *model.DispatchCount, orders []*model.Order) string {
	if name := dir.DisplayName(empID); name != "" {
		return name
	}
	if dispatch != nil && dispatch.EmpName != "" {
		return dispatch.EmpName
	}
	for _, o := range orders {
		if o.RawName != "" {
			return o.RawName
		}
	}
	return model.UnknownName
}
