// Package handler 提供API处理器
package handler

import (
	"net/http"

	"github.com/yejiban/yejiban/internal/repository"
	"github.com/yejiban/yejiban/pkg/analysis"
	apperrors "github.com/yejiban/yejiban/pkg/errors"
	"github.com/yejiban/yejiban/pkg/model"
	"github.com/yejiban/yejiban/pkg/rollup"
	"github.com/yejiban/yejiban/pkg/target"
)

// AnalysisHandler 分类分析API处理器
type AnalysisHandler struct {
	orchestrator *analysis.Orchestrator
	rollup       *rollup.Service
	tracker      *target.Tracker
	history      *repository.HistoryRepository
}

// NewAnalysisHandler 创建分析处理器
func NewAnalysisHandler(
	orchestrator *analysis.Orchestrator,
	svc *rollup.Service,
	tracker *target.Tracker,
	history *repository.HistoryRepository,
) *AnalysisHandler {
	return &AnalysisHandler{orchestrator: orchestrator, rollup: svc, tracker: tracker, history: history}
}

// ClassifyRequest 分类请求
// Current 为空时从对应快照的 RawData 取当期数据；
// Save 为真时把分析结果补写回快照（只写 AnalyzedData）
type ClassifyRequest struct {
	ArchiveDate string                       `json:"archive_date"`
	DataSource  string                       `json:"data_source,omitempty"`
	Current     []*model.EmployeePerformance `json:"current,omitempty"`
	Save        bool                         `json:"save,omitempty"`
}

// Classify 对当期业绩做分类与建议
// POST /api/v1/analysis/classify
//
// 历史口径取存档日期前的 41 天滚动窗口。外部顾问完全失败时
// 优雅降级：原样返回当期数据，已有分类不被清空。
func (h *AnalysisHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}
	if _, err := model.ParseDate(req.ArchiveDate); err != nil {
		sendError(w, err)
		return
	}

	source := req.DataSource
	if source == "" {
		source = model.SourceManual
	}

	current := req.Current
	if current == nil {
		rec, err := h.history.GetRecord(r.Context(), req.ArchiveDate, source)
		if err != nil {
			sendError(w, err)
			return
		}
		if rec == nil {
			sendError(w, apperrors.ErrNotFound.WithField("archive_date", req.ArchiveDate))
			return
		}
		current = rec.RawData
	}

	start, end, err := rollup.Window41(req.ArchiveDate)
	if err != nil {
		sendError(w, err)
		return
	}
	historical, err := h.rollup.Aggregate(r.Context(), start, end, rollup.ModeLegacy, &rollup.CurrentSnapshot{
		Date:    req.ArchiveDate,
		Source:  source,
		Records: current,
	})
	if err != nil {
		sendError(w, err)
		return
	}

	classified := h.orchestrator.Classify(r.Context(), current, historical)

	if req.Save {
		if err := h.tracker.SaveAnalysis(r.Context(), req.ArchiveDate, source, classified); err != nil {
			sendError(w, err)
			return
		}
	}

	sendJSON(w, http.StatusOK, model.NewAnalyzedView(classified))
}
