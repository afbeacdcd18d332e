// Package repository 提供数据访问层
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/yejiban/yejiban/pkg/model"
)

// DispatchRepository 派单量仓储
type DispatchRepository struct {
	db DB
}

// NewDispatchRepository 创建派单量仓储
func NewDispatchRepository(db DB) *DispatchRepository {
	return &DispatchRepository{db: db}
}

// Upsert 写入派单量，同 (日期, 员工) 已存在时整条覆盖
func (r *DispatchRepository) Upsert(ctx context.Context, dc *model.DispatchCount) error {
	return r.UpsertBatch(ctx, []*model.DispatchCount{dc})
}

// UpsertBatch 批量写入派单量（last-write-wins）
func (r *DispatchRepository) UpsertBatch(ctx context.Context, counts []*model.DispatchCount) error {
	if len(counts) == 0 {
		return nil
	}

	const cols = 6
	placeholders := make([]string, 0, len(counts))
	args := make([]interface{}, 0, len(counts)*cols)

	for i, dc := range counts {
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
		))
		args = append(args, dc.ID, dc.Date, dc.EmpID, dc.EmpName, dc.TotalDispatches, dc.UpdatedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO dispatch_counts (id, date, emp_id, emp_name, total_dispatches, updated_at)
		VALUES %s
		ON CONFLICT (id) DO UPDATE SET
			emp_name = EXCLUDED.emp_name,
			total_dispatches = EXCLUDED.total_dispatches,
			updated_at = EXCLUDED.updated_at
	`, strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("写入派单量失败: %w", err)
	}

	return nil
}

// ListDispatchesInRange 查询日期范围内的派单量
func (r *DispatchRepository) ListDispatchesInRange(ctx context.Context, start, end string) ([]*model.DispatchCount, error) {
	query := `
		SELECT id, date, emp_id, emp_name, total_dispatches, updated_at
		FROM dispatch_counts
		WHERE date >= $1 AND date <= $2
		ORDER BY date, emp_id
	`

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("查询派单量失败: %w", err)
	}
	defer rows.Close()

	var counts []*model.DispatchCount
	for rows.Next() {
		dc := &model.DispatchCount{}
		err := rows.Scan(&dc.ID, &dc.Date, &dc.EmpID, &dc.EmpName, &dc.TotalDispatches, &dc.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("扫描派单量数据失败: %w", err)
		}
		counts = append(counts, dc)
	}

	return counts, nil
}
