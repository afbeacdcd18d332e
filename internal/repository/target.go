// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yejiban/yejiban/pkg/model"
)

// TargetRepository 月度目标仓储
type TargetRepository struct {
	db DB
}

// NewTargetRepository 创建月度目标仓储
func NewTargetRepository(db DB) *TargetRepository {
	return &TargetRepository{db: db}
}

// GetTarget 取某月目标，未设置时返回 nil
func (r *TargetRepository) GetTarget(ctx context.Context, yearMonth string) (*model.MonthlyTarget, error) {
	query := `SELECT year_month, amount, updated_at FROM monthly_targets WHERE year_month = $1`

	mt := &model.MonthlyTarget{}
	err := r.db.QueryRowContext(ctx, query, yearMonth).Scan(&mt.YearMonth, &mt.Amount, &mt.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询月度目标失败: %w", err)
	}

	return mt, nil
}

// SetTarget 设置某月目标，已存在时覆盖
func (r *TargetRepository) SetTarget(ctx context.Context, target *model.MonthlyTarget) error {
	query := `
		INSERT INTO monthly_targets (year_month, amount, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (year_month) DO UPDATE SET
			amount = EXCLUDED.amount,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, target.YearMonth, target.Amount, target.UpdatedAt); err != nil {
		return fmt.Errorf("写入月度目标失败: %w", err)
	}

	return nil
}
