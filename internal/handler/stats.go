// Package handler 提供API处理器
package handler

import (
	"net/http"
	"time"

	"github.com/yejiban/yejiban/internal/metrics"
	"github.com/yejiban/yejiban/internal/repository"
	"github.com/yejiban/yejiban/pkg/model"
	"github.com/yejiban/yejiban/pkg/ranking"
	"github.com/yejiban/yejiban/pkg/rollup"
)

// StatsHandler 统计API处理器
type StatsHandler struct {
	stats  *repository.StatRepository
	rollup *rollup.Service
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(stats *repository.StatRepository, svc *rollup.Service) *StatsHandler {
	return &StatsHandler{stats: stats, rollup: svc}
}

// ListDaily 查询日统计
// GET /api/v1/stats/daily?start_date=&end_date=
func (h *StatsHandler) ListDaily(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start_date")
	end := r.URL.Query().Get("end_date")
	if err := model.ValidDateRange(start, end); err != nil {
		sendError(w, err)
		return
	}

	stats, err := h.stats.ListStatsInRange(r.Context(), start, end)
	if err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, stats)
}

// AggregateRequest 聚合请求
type AggregateRequest struct {
	StartDate string                  `json:"start_date"`
	EndDate   string                  `json:"end_date"`
	YearMonth string                  `json:"year_month,omitempty"` // 设置后覆盖明确范围
	Window41  bool                    `json:"window_41,omitempty"`  // 按结束日取 41 天滚动窗口
	Mode      string                  `json:"mode"`                 // integrated/legacy
	Rank      bool                    `json:"rank,omitempty"`
	Current   *rollup.CurrentSnapshot `json:"current,omitempty"`
}

// Aggregate 聚合日统计为员工业绩（可选排名）
// POST /api/v1/stats/aggregate
func (h *StatsHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req AggregateRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}

	start, end := req.StartDate, req.EndDate
	var err error
	if req.YearMonth != "" {
		start, end, err = rollup.MonthRange(req.YearMonth)
	} else if req.Window41 {
		start, end, err = rollup.Window41(req.EndDate)
	}
	if err != nil {
		sendError(w, err)
		return
	}

	began := time.Now()
	records, err := h.rollup.Aggregate(r.Context(), start, end, rollup.Mode(req.Mode), req.Current)
	if err != nil {
		sendError(w, err)
		return
	}
	metrics.RecordRollup(time.Since(began))

	if req.Rank {
		records = ranking.Rank(records)
	}

	sendJSON(w, http.StatusOK, records)
}

// RankRequest 排名请求
type RankRequest struct {
	Records []*model.EmployeePerformance `json:"records"`
}

// Rank 对既有业绩行做稳定排名
// POST /api/v1/stats/rank
func (h *StatsHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}

	sendJSON(w, http.StatusOK, ranking.Rank(req.Records))
}
