package model

import "time"

// ChannelRevenue 渠道营收分桶
type ChannelRevenue struct {
	Yishin  int64 `json:"yishin"`
	Minshi  int64 `json:"minshi"`
	Company int64 `json:"company"`
	Other   int64 `json:"other"`
}

// Total 渠道营收合计
func (c ChannelRevenue) Total() int64 {
	return c.Yishin + c.Minshi + c.Company + c.Other
}

// DailyStat 日统计（合并输出的反规范化读模型）
// 每次合并对日期范围做整段替换（先删后写），从不增量修补，
// 保证别名修正或数据编辑后不会残留过期记录
type DailyStat struct {
	ID      string `json:"id" db:"id"` // {date}_{empID}
	Date    string `json:"date" db:"date"`
	EmpID   string `json:"emp_id" db:"emp_id"`
	EmpName string `json:"emp_name" db:"emp_name"`

	TotalDispatches int `json:"total_dispatches" db:"total_dispatches"`

	// 成交单数（按订单类型）
	TotalSales        int `json:"total_sales" db:"total_sales"`
	DispatchSales     int `json:"dispatch_sales" db:"dispatch_sales"`
	FollowupSales     int `json:"followup_sales" db:"followup_sales"`
	RenewalSales      int `json:"renewal_sales" db:"renewal_sales"`
	UnclassifiedSales int `json:"unclassified_sales" db:"unclassified_sales"` // 类型无法识别的成交单

	// 营收（按订单类型）
	FollowupRevenue int64 `json:"followup_revenue" db:"followup_revenue"`
	RenewalRevenue  int64 `json:"renewal_revenue" db:"renewal_revenue"`
	ReturnRevenue   int64 `json:"return_revenue" db:"return_revenue"`

	// 营收（按产品渠道）
	ChannelRevenue ChannelRevenue `json:"channel_revenue" db:"channel_revenue"`
	GiftCount      int            `json:"gift_count" db:"gift_count"`

	// 派生指标
	ConversionRate float64 `json:"conversion_rate" db:"conversion_rate"`
	TotalRevenue   int64   `json:"total_revenue" db:"total_revenue"`
	AvgOrderValue  int64   `json:"avg_order_value" db:"avg_order_value"`

	ProductBreakdown map[string]int `json:"product_breakdown" db:"product_breakdown"`
	OrderIDs         []string       `json:"order_ids" db:"order_ids"`
	MergedAt         time.Time      `json:"merged_at" db:"merged_at"`
}

// NetRevenue 扣除退货后的净营收
func (s *DailyStat) NetRevenue() int64 {
	return s.TotalRevenue - s.ReturnRevenue
}

// DeriveRates 按汇总值重算派生指标
// 分母为零时结果为零，任何情况下不产生 NaN/Inf
func (s *DailyStat) DeriveRates() {
	s.ConversionRate = 0
	if s.TotalDispatches > 0 {
		s.ConversionRate = float64(s.DispatchSales) / float64(s.TotalDispatches)
	}

	s.AvgOrderValue = 0
	if s.DispatchSales > 0 {
		net := s.TotalRevenue - s.FollowupRevenue - s.RenewalRevenue
		s.AvgOrderValue = roundDiv(net, int64(s.DispatchSales))
	}
}

// roundDiv 四舍五入的整数除法
func roundDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	if (a >= 0) == (b >= 0) {
		return (a + b/2) / b
	}
	return (a - b/2) / b
}
