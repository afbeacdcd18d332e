// Package ranking 提供业绩排名计算
//
// 纯函数，无 I/O。三条独立排名轴：总营收、追踪营收、客单价，
// 均按降序取 1 起始名次。并列不去重：稳定排序下先出现者得较小名次。
// 排名永远跟随快照整体重算，从不独立持久化。
package ranking

import (
	"sort"

	"github.com/yejiban/yejiban/pkg/model"
)

// Rank 计算三轴排名，返回与输入同长同序的切片（排名字段已填充）
func Rank(records []*model.EmployeePerformance) []*model.EmployeePerformance {
	if len(records) == 0 {
		return records
	}

	assign(records, func(p *model.EmployeePerformance) int64 { return p.TotalRevenue },
		func(p *model.EmployeePerformance, r model.Rank) { p.RevenueRank = r })
	assign(records, func(p *model.EmployeePerformance) int64 { return p.FollowupRevenue },
		func(p *model.EmployeePerformance, r model.Rank) { p.FollowupRank = r })
	assign(records, func(p *model.EmployeePerformance) int64 { return p.AvgOrderValue },
		func(p *model.EmployeePerformance, r model.Rank) { p.ValueRank = r })

	return records
}

// assign 按单轴降序稳定排序后写入 1 起始名次
func assign(records []*model.EmployeePerformance, value func(*model.EmployeePerformance) int64, set func(*model.EmployeePerformance, model.Rank)) {
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}

	// 稳定排序：同值保持输入顺序
	sort.SliceStable(idx, func(a, b int) bool {
		return value(records[idx[a]]) > value(records[idx[b]])
	})

	for pos, i := range idx {
		set(records[i], model.Rank(pos+1))
	}
}
