// Package handler 提供API处理器
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/yejiban/yejiban/pkg/errors"
	"github.com/yejiban/yejiban/pkg/model"
	"github.com/yejiban/yejiban/pkg/rollup"
	"github.com/yejiban/yejiban/pkg/target"
)

// TargetHandler 目标追踪API处理器
type TargetHandler struct {
	tracker *target.Tracker
	rollup  *rollup.Service
}

// NewTargetHandler 创建目标处理器
func NewTargetHandler(tracker *target.Tracker, svc *rollup.Service) *TargetHandler {
	return &TargetHandler{tracker: tracker, rollup: svc}
}

// SnapshotRequest 每日快照请求
type SnapshotRequest struct {
	ArchiveDate string                       `json:"archive_date"`
	DataSource  string                       `json:"data_source,omitempty"`
	RawData     []*model.EmployeePerformance `json:"raw_data"`
	Overwrite   bool                         `json:"overwrite,omitempty"`
}

// Snapshot 创建（或显式覆盖）每日业绩快照
// POST /api/v1/history/snapshot
func (h *TargetHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}

	source := req.DataSource
	if source == "" {
		source = model.SourceManual
	}

	rec, err := h.tracker.RecordDailySnapshot(r.Context(), req.ArchiveDate, source, req.RawData, req.Overwrite)
	if err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, rec)
}

// TargetResponse 月度目标响应
type TargetResponse struct {
	YearMonth string `json:"year_month"`
	Amount    int64  `json:"amount"`
}

// GetTarget 取某月营收目标
// GET /api/v1/target/{ym}
func (h *TargetHandler) GetTarget(w http.ResponseWriter, r *http.Request) {
	ym := chi.URLParam(r, "ym")

	amount, err := h.tracker.MonthlyTarget(r.Context(), ym)
	if err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, TargetResponse{YearMonth: ym, Amount: amount})
}

// SetTargetRequest 设置目标请求
type SetTargetRequest struct {
	Amount int64 `json:"amount"`
}

// SetTarget 设置某月营收目标
// PUT /api/v1/target/{ym}
func (h *TargetHandler) SetTarget(w http.ResponseWriter, r *http.Request) {
	ym := chi.URLParam(r, "ym")

	var req SetTargetRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}

	if err := h.tracker.SetMonthlyTarget(r.Context(), ym, req.Amount); err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, TargetResponse{YearMonth: ym, Amount: req.Amount})
}

// RequiredResponse 达标进度响应
type RequiredResponse struct {
	YearMonth     string `json:"year_month"`
	Date          string `json:"date"`
	TargetAmount  int64  `json:"target_amount"`
	MonthToDate   int64  `json:"month_to_date"`
	DailyRequired int64  `json:"daily_required"`
	Forecast      int64  `json:"forecast"`
}

// Required 计算剩余日均所需与全月预测
// GET /api/v1/target/{ym}/required?date=YYYY-MM-DD
//
// 月初至今营收按整合口径从日统计聚合；date 缺省取今天
func (h *TargetHandler) Required(w http.ResponseWriter, r *http.Request) {
	ym := chi.URLParam(r, "ym")

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		dateStr = time.Now().Format(model.DateLayout)
	}
	date, err := model.ParseDate(dateStr)
	if err != nil {
		sendError(w, err)
		return
	}
	if date.Format(model.MonthLayout) != ym {
		sendError(w, apperrors.New(apperrors.CodeInvalidInput, "日期不在目标月份内"))
		return
	}

	amount, err := h.tracker.MonthlyTarget(r.Context(), ym)
	if err != nil {
		sendError(w, err)
		return
	}

	monthStart, _, err := rollup.MonthRange(ym)
	if err != nil {
		sendError(w, err)
		return
	}

	records, err := h.rollup.Aggregate(r.Context(), monthStart, dateStr, rollup.ModeIntegrated, nil)
	if err != nil {
		sendError(w, err)
		return
	}
	var monthToDate int64
	for _, rec := range records {
		monthToDate += rec.TotalRevenue
	}

	sendJSON(w, http.StatusOK, RequiredResponse{
		YearMonth:     ym,
		Date:          dateStr,
		TargetAmount:  amount,
		MonthToDate:   monthToDate,
		DailyRequired: target.DailyRequired(amount, monthToDate, date),
		Forecast:      target.Forecast(monthToDate, date),
	})
}
