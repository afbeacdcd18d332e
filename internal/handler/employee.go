// Package handler 提供API处理器
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yejiban/yejiban/internal/repository"
	apperrors "github.com/yejiban/yejiban/pkg/errors"
	"github.com/yejiban/yejiban/pkg/model"
	"github.com/yejiban/yejiban/pkg/resolver"
)

// EmployeeHandler 员工目录API处理器
type EmployeeHandler struct {
	employees *repository.EmployeeRepository
}

// NewEmployeeHandler 创建员工处理器
func NewEmployeeHandler(employees *repository.EmployeeRepository) *EmployeeHandler {
	return &EmployeeHandler{employees: employees}
}

// ListResponse 员工列表响应
type ListResponse struct {
	Employees []*model.Employee `json:"employees"`
	Total     int               `json:"total"`
}

// List 查询员工列表
// GET /api/v1/employees?status=&search=&limit=&offset=
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.DefaultListFilter().
		WithStatus(r.URL.Query().Get("status"))
	filter.Search = r.URL.Query().Get("search")

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter = filter.WithLimit(n)
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter = filter.WithOffset(n)
		}
	}

	employees, total, err := h.employees.List(r.Context(), filter)
	if err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, ListResponse{Employees: employees, Total: total})
}

// CreateRequest 创建员工请求
type CreateRequest struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Create 创建员工
// POST /api/v1/employees
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		sendError(w, apperrors.New(apperrors.CodeBlankField, "姓名为空"))
		return
	}

	dir, err := h.directory(r)
	if err != nil {
		sendError(w, err)
		return
	}

	emp := model.NewEmployee(req.Name)
	emp.DisplayName = req.DisplayName
	for _, alias := range req.Aliases {
		emp.AddAlias(alias)
	}

	// 新员工的全部别名（含正式姓名）都不能与现有登记冲突
	for _, alias := range emp.Aliases {
		if id := dir.Resolve(alias); id != model.UnknownEmpID {
			sendError(w, apperrors.New(apperrors.CodeAliasConflict, "别名已登记到其他员工").
				WithField("alias", alias).WithField("emp_id", id))
			return
		}
	}

	if err := h.employees.Create(r.Context(), emp); err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, emp)
}

// Get 根据ID获取员工
// GET /api/v1/employees/{id}
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	emp, err := h.employees.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, err)
		return
	}
	if emp == nil {
		sendError(w, apperrors.ErrNotFound)
		return
	}

	sendJSON(w, http.StatusOK, emp)
}

// UpdateRequest 更新员工请求
type UpdateRequest struct {
	DisplayName   *string `json:"display_name,omitempty"`
	Status        *string `json:"status,omitempty"`
	AccountStatus *string `json:"account_status,omitempty"`
}

// Update 更新员工（展示名/在职状态/账号状态）
// PUT /api/v1/employees/{id}
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}

	emp, err := h.employees.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, err)
		return
	}
	if emp == nil {
		sendError(w, apperrors.ErrNotFound)
		return
	}

	if req.DisplayName != nil {
		emp.DisplayName = *req.DisplayName
	}
	if req.Status != nil {
		emp.Status = *req.Status
	}
	if req.AccountStatus != nil {
		emp.AccountStatus = *req.AccountStatus
	}

	if err := h.employees.Update(r.Context(), emp); err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, emp)
}

// Delete 软删除员工
// DELETE /api/v1/employees/{id}
//
// 历史日统计不受影响；此后合并中该员工的姓名归入 unknown
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.employees.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, nil)
}

// AliasRequest 别名登记请求
type AliasRequest struct {
	Alias string `json:"alias"`
}

// AddAlias 给员工登记新别名
// POST /api/v1/employees/{id}/aliases
//
// 别名全局唯一：已登记到其他员工时返回 ALIAS_CONFLICT。
// 登记后需对涉及日期重跑合并，历史数据才会追溯修正。
func (h *EmployeeHandler) AddAlias(w http.ResponseWriter, r *http.Request) {
	var req AliasRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, "请求体无效: "+err.Error())
		return
	}

	alias := strings.TrimSpace(req.Alias)
	if alias == "" {
		sendError(w, apperrors.New(apperrors.CodeBlankField, "别名为空"))
		return
	}

	emp, err := h.employees.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, err)
		return
	}
	if emp == nil {
		sendError(w, apperrors.ErrNotFound)
		return
	}

	dir, err := h.directory(r)
	if err != nil {
		sendError(w, err)
		return
	}
	if id := dir.Resolve(alias); id != model.UnknownEmpID && id != emp.ID {
		sendError(w, apperrors.New(apperrors.CodeAliasConflict, "别名已登记到其他员工").
			WithField("alias", alias).WithField("emp_id", id))
		return
	}

	emp.AddAlias(alias)
	if err := h.employees.Update(r.Context(), emp); err != nil {
		sendError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, emp)
}

// directory 按当前员工表构建别名目录（冲突检查用）
func (h *EmployeeHandler) directory(r *http.Request) (*resolver.Directory, error) {
	employees, err := h.employees.ListEmployees(r.Context())
	if err != nil {
		return nil, err
	}
	return resolver.NewDirectory(employees), nil
}
