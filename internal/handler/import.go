// Package handler 提供API处理器
package handler

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/yejiban/yejiban/internal/client"
	"github.com/yejiban/yejiban/internal/repository"
	"github.com/yejiban/yejiban/pkg/importer"
	"github.com/yejiban/yejiban/pkg/model"
	"github.com/yejiban/yejiban/pkg/resolver"
)

// ImportHandler 数据导入API处理器
type ImportHandler struct {
	employees  *repository.EmployeeRepository
	orders     *repository.OrderRepository
	dispatches *repository.DispatchRepository
	ocr        *client.OCRClient
}

// NewImportHandler 创建导入处理器
func NewImportHandler(
	employees *repository.EmployeeRepository,
	orders *repository.OrderRepository,
	dispatches *repository.DispatchRepository,
	ocr *client.OCRClient,
) *ImportHandler {
	return &ImportHandler{employees: employees, orders: orders, dispatches: dispatches, ocr: ocr}
}

// sortedNames 排序输出未识别姓名，保证响应确定性
func sortedNames(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// directory 按当前员工表构建别名目录
func (h *ImportHandler) directory(ctx context.Context) (*resolver.Directory, error) {
	employees, err := h.employees.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	return resolver.NewDirectory(employees), nil
}

// ValidateRequest 批量校验请求
type ValidateRequest struct {
	Rows []*importer.Row `json:"rows"`
}

// Validate 校验导入批次（不落库）
// POST /api/v1/import/validate
func (h *ImportHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}

	dir, err := h.directory(r.Context())
	if err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, importer.Validate(req.Rows, dir))
}

// OrderRow 订单导入行（字段为原始字符串，入库前归一化）
type OrderRow struct {
	OrderID        string `json:"order_id"`
	Date           string `json:"date"`
	Name           string `json:"name"`
	Amount         string `json:"amount"`
	OrderType      string `json:"order_type"`
	ProductChannel string `json:"product_channel"`
	Product        string `json:"product,omitempty"`
	Status         string `json:"status,omitempty"`
}

// ImportOrdersRequest 订单导入请求
type ImportOrdersRequest struct {
	Rows []*OrderRow `json:"rows"`
}

// ImportSummary 导入结果摘要
type ImportSummary struct {
	Imported   int      `json:"imported"`
	Unresolved []string `json:"unresolved,omitempty"` // 未识别的姓名（行保留，EmpID 暂记 unknown）
}

// ImportOrders 批量导入订单
// POST /api/v1/import/orders
//
// 姓名在此只做预解析写入 EmpID；合并时总是按当时的别名表重新解析，
// 所以未识别的姓名不阻断导入
func (h *ImportHandler) ImportOrders(w http.ResponseWriter, r *http.Request) {
	var req ImportOrdersRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}
	if len(req.Rows) == 0 {
		sendBadRequest(w, "导入批次为空")
		return
	}

	dir, err := h.directory(r.Context())
	if err != nil {
		sendError(w, err)
		return
	}

	now := time.Now()
	orders := make([]*model.Order, 0, len(req.Rows))
	unresolvedSet := make(map[string]struct{})

	for _, row := range req.Rows {
		if _, err := model.ParseDate(row.Date); err != nil {
			sendError(w, err)
			return
		}

		name := strings.TrimSpace(row.Name)
		empID := dir.Resolve(name)
		if empID == model.UnknownEmpID {
			unresolvedSet[name] = struct{}{}
		}

		status := row.Status
		if status == "" {
			status = model.OrderStatusNormal
		}

		orders = append(orders, &model.Order{
			OrderID:        row.OrderID,
			Date:           row.Date,
			EmpID:          empID,
			RawName:        name,
			Amount:         importer.SanitizeInt(row.Amount),
			OrderType:      model.NormalizeOrderType(row.OrderType),
			ProductChannel: model.NormalizeChannel(row.ProductChannel),
			Product:        row.Product,
			Status:         status,
			CreatedAt:      now,
		})
	}

	if err := h.orders.InsertOrders(r.Context(), orders); err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, ImportSummary{Imported: len(orders), Unresolved: sortedNames(unresolvedSet)})
}

// DispatchRow 派单量导入行
type DispatchRow struct {
	Date            string `json:"date"`
	Name            string `json:"name"`
	TotalDispatches string `json:"total_dispatches"`
}

// ImportDispatchesRequest 派单量导入请求
type ImportDispatchesRequest struct {
	Rows []*DispatchRow `json:"rows"`
}

// ImportDispatches 批量导入派单量（同日同人整条覆盖）
// POST /api/v1/import/dispatches
func (h *ImportHandler) ImportDispatches(w http.ResponseWriter, r *http.Request) {
	var req ImportDispatchesRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}
	if len(req.Rows) == 0 {
		sendBadRequest(w, "导入批次为空")
		return
	}

	dir, err := h.directory(r.Context())
	if err != nil {
		sendError(w, err)
		return
	}

	counts := make([]*model.DispatchCount, 0, len(req.Rows))
	unresolvedSet := make(map[string]struct{})

	for _, row := range req.Rows {
		if _, err := model.ParseDate(row.Date); err != nil {
			sendError(w, err)
			return
		}

		name := strings.TrimSpace(row.Name)
		empID := dir.Resolve(name)
		if empID == model.UnknownEmpID {
			unresolvedSet[name] = struct{}{}
		}

		total := int(importer.SanitizeInt(row.TotalDispatches))
		counts = append(counts, model.NewDispatchCount(row.Date, empID, name, total))
	}

	if err := h.dispatches.UpsertBatch(r.Context(), counts); err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, ImportSummary{Imported: len(counts), Unresolved: sortedNames(unresolvedSet)})
}

// RecognizeRequest 表格截图识别请求
type RecognizeRequest struct {
	Image string `json:"image"` // base64
}

// Recognize 识别表格截图，返回清洗后的行供前端校对
// POST /api/v1/import/recognize
func (h *ImportHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req RecognizeRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}
	if req.Image == "" {
		sendBadRequest(w, "图片为空")
		return
	}

	rows, err := h.ocr.Recognize(r.Context(), req.Image)
	if err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, rows)
}

// RedistributeRequest 超卖补救请求
type RedistributeRequest struct {
	Days []*importer.DayLoad `json:"days"`
}

// RedistributeResponse 超卖补救结果
type RedistributeResponse struct {
	Days     []*importer.DayLoad `json:"days"`
	Unplaced int                 `json:"unplaced"`
}

// Redistribute 把超卖日的溢出成交挪入邻近未饱和日
// POST /api/v1/import/redistribute
func (h *ImportHandler) Redistribute(w http.ResponseWriter, r *http.Request) {
	var req RedistributeRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}

	days, unplaced := importer.RedistributeOverflow(req.Days)
	sendJSON(w, http.StatusOK, RedistributeResponse{Days: days, Unplaced: unplaced})
}
