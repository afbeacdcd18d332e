// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yejiban/yejiban/pkg/model"
)

// EmployeeRepository 员工仓储
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create 创建员工
func (r *EmployeeRepository) Create(ctx context.Context, emp *model.Employee) error {
	if emp.ID == "" {
		emp.ID = uuid.New().String()
	}
	now := time.Now()
	emp.CreatedAt = now
	emp.UpdatedAt = now

	aliasesJSON, _ := json.Marshal(emp.Aliases)

	query := `
		INSERT INTO employees (
			id, canonical_name, display_name, aliases, status, account_status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		emp.ID, emp.CanonicalName, emp.DisplayName, aliasesJSON,
		emp.Status, emp.AccountStatus, emp.CreatedAt, emp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建员工失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取员工
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*model.Employee, error) {
	query := `
		SELECT id, canonical_name, display_name, aliases, status, account_status,
			created_at, updated_at
		FROM employees
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanEmployee(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新员工（姓名、别名、状态整体覆盖）
func (r *EmployeeRepository) Update(ctx context.Context, emp *model.Employee) error {
	emp.UpdatedAt = time.Now()

	aliasesJSON, _ := json.Marshal(emp.Aliases)

	query := `
		UPDATE employees SET
			canonical_name = $2, display_name = $3, aliases = $4,
			status = $5, account_status = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		emp.ID, emp.CanonicalName, emp.DisplayName, aliasesJSON,
		emp.Status, emp.AccountStatus, emp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新员工失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("员工不存在")
	}

	return nil
}

// Delete 软删除员工
// 历史统计中该员工的记录不受影响，仅从别名表中移除
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE employees SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除员工失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("员工不存在")
	}

	return nil
}

// List 查询员工列表
func (r *EmployeeRepository) List(ctx context.Context, filter ListFilter) ([]*model.Employee, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(canonical_name ILIKE $%d OR aliases::text ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	// 查询总数
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM employees WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "desc"
	}

	query := fmt.Sprintf(`
		SELECT id, canonical_name, display_name, aliases, status, account_status,
			created_at, updated_at
		FROM employees
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := r.scanEmployeeRow(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, emp)
	}

	return employees, total, nil
}

// ListEmployees 获取全部未删除员工（合并引擎重建别名表用）
// 停用员工也返回：其别名仍需能解析历史数据
func (r *EmployeeRepository) ListEmployees(ctx context.Context) ([]*model.Employee, error) {
	query := `
		SELECT id, canonical_name, display_name, aliases, status, account_status,
			created_at, updated_at
		FROM employees
		WHERE deleted_at IS NULL
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询员工失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := r.scanEmployeeRow(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}

	return employees, nil
}

// scanEmployee 扫描单行员工数据
func (r *EmployeeRepository) scanEmployee(row *sql.Row) (*model.Employee, error) {
	emp := &model.Employee{}
	var aliasesJSON []byte

	err := row.Scan(
		&emp.ID, &emp.CanonicalName, &emp.DisplayName, &aliasesJSON,
		&emp.Status, &emp.AccountStatus, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描员工数据失败: %w", err)
	}

	json.Unmarshal(aliasesJSON, &emp.Aliases)

	return emp, nil
}

// scanEmployeeRow 扫描Rows中的员工数据
func (r *EmployeeRepository) scanEmployeeRow(rows *sql.Rows) (*model.Employee, error) {
	emp := &model.Employee{}
	var aliasesJSON []byte

	err := rows.Scan(
		&emp.ID, &emp.CanonicalName, &emp.DisplayName, &aliasesJSON,
		&emp.Status, &emp.AccountStatus, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("扫描员工数据失败: %w", err)
	}

	json.Unmarshal(aliasesJSON, &emp.Aliases)

	return emp, nil
}
