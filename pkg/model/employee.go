package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UnknownEmpID 无法识别的员工标识
// 订单中的姓名无法匹配任何员工时使用该哨兵值，待别名登记后重跑合并即可修正
const UnknownEmpID = "unknown"

// UnknownName 未知员工的显示名占位符
const UnknownName = "未知"

// 员工状态
const (
	EmployeeActive   = "active"   // 在职
	EmployeeInactive = "inactive" // 离职
)

// 账号状态
const (
	AccountEnabled  = "enabled"  // 启用
	AccountDisabled = "disabled" // 停用
)

// Employee 员工档案
// 每个别名只能属于一个员工；正式姓名本身永远是自己的别名
type Employee struct {
	ID            string     `json:"id" db:"id"`
	CanonicalName string     `json:"canonical_name" db:"canonical_name"`
	DisplayName   string     `json:"display_name,omitempty" db:"display_name"`
	Aliases       []string   `json:"aliases" db:"aliases"`
	Status        string     `json:"status" db:"status"`
	AccountStatus string     `json:"account_status" db:"account_status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"-" db:"deleted_at"`
}

// NewEmployee 创建新员工，姓名自动登记为自己的别名
func NewEmployee(name string) *Employee {
	name = strings.TrimSpace(name)
	now := time.Now()
	return &Employee{
		ID:            uuid.New().String(),
		CanonicalName: name,
		Aliases:       []string{name},
		Status:        EmployeeActive,
		AccountStatus: AccountEnabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsActive 检查员工是否在职
func (e *Employee) IsActive() bool {
	return e.Status == EmployeeActive
}

// HasAlias 检查员工是否登记了某别名
func (e *Employee) HasAlias(name string) bool {
	name = strings.TrimSpace(name)
	if name == e.CanonicalName {
		return true
	}
	for _, a := range e.Aliases {
		if a == name {
			return true
		}
	}
	return false
}

// AddAlias 登记别名（幂等）
func (e *Employee) AddAlias(name string) {
	name = strings.TrimSpace(name)
	if name == "" || e.HasAlias(name) {
		return
	}
	e.Aliases = append(e.Aliases, name)
	e.UpdatedAt = time.Now()
}

// Label 返回用于展示的姓名（优先显示名）
func (e *Employee) Label() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.CanonicalName
}
