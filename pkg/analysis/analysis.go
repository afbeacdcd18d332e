// Package analysis 提供业绩分类编排
//
// 分类本身委托给外部 AI 顾问服务；本包负责构造精简请求载荷、
// 把返回的分类与建议合并回业绩行，并在外部调用完全失败时优雅降级
// （保留原有分类，绝不让整条管线报错）。
package analysis

import (
	"context"
	"strings"

	"github.com/yejiban/yejiban/pkg/logger"
	"github.com/yejiban/yejiban/pkg/model"
)

// 本地启发式规则阈值
const (
	championConversion = 0.30 // 转化率 ≥ 30% 进入冠军判定
	riskConversion     = 0.10 // 转化率 < 10% 判为风险
	valueFloor         = 2000 // 客单价下限（元）
)

// AdviceRequest 发给外部顾问的精简投影
type AdviceRequest struct {
	ID                       string  `json:"id"`
	Name                     string  `json:"name"`
	CurrentConversionRate    float64 `json:"currentConversionRate"`
	HistoricalConversionRate float64 `json:"historicalConversionRate"`
	ReturnAmount             int64   `json:"returnAmount"`
	NetRevenue               int64   `json:"netRevenue"`
}

// AdviceResult 外部顾问的返回
type AdviceResult struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Advice   string `json:"advice"`
}

// Advisor 外部分类/建议服务（黑盒协作方）
type Advisor interface {
	Advise(ctx context.Context, reqs []AdviceRequest) ([]AdviceResult, error)
}

// Orchestrator 分类编排器
type Orchestrator struct {
	advisor Advisor
}

// NewOrchestrator 创建分类编排器
func NewOrchestrator(advisor Advisor) *Orchestrator {
	return &Orchestrator{advisor: advisor}
}

// Classify 对业绩行做分类与建议合并
//
// current 为当期快照，historical 为对应员工的历史聚合（可为 nil，
// 按 EmpID 匹配取历史转化率，无 ID 时按姓名）。外部调用整体失败时原样返回输入，
// 已有分类不被清空（优雅降级）。
func (o *Orchestrator) Classify(ctx context.Context, current []*model.EmployeePerformance, historical []*model.EmployeePerformance) []*model.EmployeePerformance {
	if len(current) == 0 {
		return current
	}

	histRate := make(map[string]float64, len(historical))
	for _, h := range historical {
		histRate[adviceKey(h)] = h.ConversionRate
	}

	reqs := make([]AdviceRequest, 0, len(current))
	for _, p := range current {
		reqs = append(reqs, AdviceRequest{
			ID:                       adviceKey(p),
			Name:                     p.EmpName,
			CurrentConversionRate:    p.ConversionRate,
			HistoricalConversionRate: histRate[adviceKey(p)],
			ReturnAmount:             p.ReturnRevenue,
			NetRevenue:               p.NetRevenue(),
		})
	}

	results, err := o.advisor.Advise(ctx, reqs)
	if err != nil {
		logger.Warn().Err(err).Int("records", len(current)).Msg("AI 顾问调用失败，保留原有分类")
		return current
	}

	byID := make(map[string]AdviceResult, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}

	for _, p := range current {
		r, ok := byID[adviceKey(p)]
		if !ok {
			continue
		}
		p.Category = MatchCategory(r.Category)
		p.Advice = r.Advice

		// 潜力桶再按本地确定性规则细分
		if p.Category == model.CategoryPotential {
			p.Category = refinePotential(p)
		}
	}

	return current
}

// adviceKey 业绩行的请求标识
// 手工快照行没有员工 ID，退化用姓名对齐（与历史聚合按姓名归并一致）
func adviceKey(p *model.EmployeePerformance) string {
	if p.EmpID != "" {
		return p.EmpID
	}
	return p.EmpName
}

// MatchCategory 按子串包含模糊匹配分类枚举
// 外部返回的分类串可能带装饰前缀（如 "分类：冠军"），精确匹配不可靠；
// 无任何命中时缺省为稳定
func MatchCategory(s string) model.Category {
	for _, c := range model.Categories {
		if strings.Contains(s, string(c)) {
			return c
		}
	}
	return model.CategorySteady
}

// refinePotential 潜力桶的本地启发式细分（确定性规则，独立于外部调用）
//
//	转化率 ≥ 30% 且客单价 ≥ 2000 → 冠军
//	转化率 < 10%               → 风险
//	客单价 ≥ 2000              → 稳定
//	其余                        → 保持潜力
func refinePotential(p *model.EmployeePerformance) model.Category {
	switch {
	case p.ConversionRate >= championConversion && p.AvgOrderValue >= valueFloor:
		return model.CategoryChampion
	case p.ConversionRate < riskConversion:
		return model.CategoryRisk
	case p.AvgOrderValue >= valueFloor:
		return model.CategorySteady
	default:
		return model.CategoryPotential
	}
}
