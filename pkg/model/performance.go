package model

// Rank 排名
// 零值表示未排名（排名从 1 开始），排名永远跟随其所描述的快照整体重算
type Rank int

// Unranked 未排名
const Unranked Rank = 0

// IsRanked 检查是否已排名
func (r Rank) IsRanked() bool {
	return r > 0
}

// Category AI 分类标签
type Category string

const (
	CategoryChampion  Category = "冠军" // 头部：高转化高客单
	CategorySteady    Category = "稳定" // 稳定输出（缺省分类）
	CategoryPotential Category = "潜力" // 成长中，待本地规则细分
	CategoryRisk      Category = "风险" // 转化率过低，需关注
)

// Categories 全部标准分类（按匹配优先级排列）
var Categories = []Category{CategoryChampion, CategoryPotential, CategoryRisk, CategorySteady}

// EmployeePerformance 员工业绩行（排名与分类消费的记录）
// 每次聚合重新生成，排名与分类整体重算，从不增量更新
type EmployeePerformance struct {
	EmpID   string `json:"emp_id"`
	EmpName string `json:"emp_name"`

	TotalDispatches   int `json:"total_dispatches"`
	TotalSales        int `json:"total_sales"`
	DispatchSales     int `json:"dispatch_sales"`
	FollowupSales     int `json:"followup_sales"`
	RenewalSales      int `json:"renewal_sales"`
	UnclassifiedSales int `json:"unclassified_sales"`
	GiftCount         int `json:"gift_count"`

	TotalRevenue    int64          `json:"total_revenue"`
	FollowupRevenue int64          `json:"followup_revenue"`
	RenewalRevenue  int64          `json:"renewal_revenue"`
	ReturnRevenue   int64          `json:"return_revenue"`
	ChannelRevenue  ChannelRevenue `json:"channel_revenue"`

	ConversionRate float64 `json:"conversion_rate"`
	AvgOrderValue  int64   `json:"avg_order_value"`

	RevenueRank  Rank `json:"revenue_rank"`
	FollowupRank Rank `json:"followup_rank"`
	ValueRank    Rank `json:"value_rank"`

	Category Category `json:"category,omitempty"`
	Advice   string   `json:"advice,omitempty"`
}

// NetRevenue 扣除退货后的净营收
func (p *EmployeePerformance) NetRevenue() int64 {
	return p.TotalRevenue - p.ReturnRevenue
}

// DeriveRates 按汇总值重算派生指标
// 转化率展示层封顶 100%（超卖日原始值可能超过 1，原始计数不被修改）
func (p *EmployeePerformance) DeriveRates() {
	p.ConversionRate = 0
	if p.TotalDispatches > 0 {
		p.ConversionRate = float64(p.DispatchSales) / float64(p.TotalDispatches)
		if p.ConversionRate > 1 {
			p.ConversionRate = 1
		}
	}

	p.AvgOrderValue = 0
	if p.DispatchSales > 0 {
		net := p.TotalRevenue - p.FollowupRevenue - p.RenewalRevenue
		p.AvgOrderValue = roundDiv(net, int64(p.DispatchSales))
	}
}

// Add 累加另一条业绩行的各分子字段（派生指标需另行调用 DeriveRates）
func (p *EmployeePerformance) Add(o *EmployeePerformance) {
	p.TotalDispatches += o.TotalDispatches
	p.TotalSales += o.TotalSales
	p.DispatchSales += o.DispatchSales
	p.FollowupSales += o.FollowupSales
	p.RenewalSales += o.RenewalSales
	p.UnclassifiedSales += o.UnclassifiedSales
	p.GiftCount += o.GiftCount
	p.TotalRevenue += o.TotalRevenue
	p.FollowupRevenue += o.FollowupRevenue
	p.RenewalRevenue += o.RenewalRevenue
	p.ReturnRevenue += o.ReturnRevenue
	p.ChannelRevenue.Yishin += o.ChannelRevenue.Yishin
	p.ChannelRevenue.Minshi += o.ChannelRevenue.Minshi
	p.ChannelRevenue.Company += o.ChannelRevenue.Company
	p.ChannelRevenue.Other += o.ChannelRevenue.Other
}

// ViewKind 业绩视图类型
type ViewKind string

const (
	ViewRaw      ViewKind = "raw"      // 原始数据视图
	ViewAnalyzed ViewKind = "analyzed" // 分析后视图
)

// PerformanceView 业绩视图（显式标签变体，替代全局可变的当前视图状态）
type PerformanceView struct {
	Kind    ViewKind               `json:"kind"`
	Records []*EmployeePerformance `json:"records"`
}

// NewRawView 创建原始数据视图
func NewRawView(records []*EmployeePerformance) PerformanceView {
	return PerformanceView{Kind: ViewRaw, Records: records}
}

// NewAnalyzedView 创建分析后视图
func NewAnalyzedView(records []*EmployeePerformance) PerformanceView {
	return PerformanceView{Kind: ViewAnalyzed, Records: records}
}
