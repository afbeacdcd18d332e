// Package handler 提供API处理器
package handler

import (
	"net/http"
	"time"

	"github.com/yejiban/yejiban/internal/metrics"
	"github.com/yejiban/yejiban/pkg/merge"
)

// MergeHandler 合并API处理器
type MergeHandler struct {
	engine *merge.Engine
}

// NewMergeHandler 创建合并处理器
func NewMergeHandler(engine *merge.Engine) *MergeHandler {
	return &MergeHandler{engine: engine}
}

// MergeRequest 合并请求
type MergeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// MergeResult 合并结果摘要
type MergeResult struct {
	StartDate    string                    `json:"start_date"`
	EndDate      string                    `json:"end_date"`
	Rows         int                       `json:"rows"`
	Warnings     []merge.UnresolvedWarning `json:"warnings,omitempty"`
	Unclassified []merge.UnclassifiedOrder `json:"unclassified,omitempty"`
}

// Merge 对日期范围执行双轨合并
// POST /api/merge
func (h *MergeHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}

	began := time.Now()
	result, err := h.engine.Merge(r.Context(), req.StartDate, req.EndDate)
	if err != nil {
		sendError(w, err)
		return
	}

	metrics.RecordMerge(len(result.Stats), time.Since(began))
	for range result.Warnings {
		metrics.RecordUnresolvedName()
	}

	sendJSON(w, http.StatusOK, MergeResult{
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Rows:         len(result.Stats),
		Warnings:     result.Warnings,
		Unclassified: result.Unclassified,
	})
}
