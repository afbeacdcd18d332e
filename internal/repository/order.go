// Package repository 提供数据访问层
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yejiban/yejiban/pkg/model"
)

// OrderRepository 订单仓储
type OrderRepository struct {
	db DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// InsertOrders 批量写入订单
// 按 order_id 去重：重复导入同一批订单是安全的幂等操作
func (r *OrderRepository) InsertOrders(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	const cols = 10
	placeholders := make([]string, 0, len(orders))
	args := make([]interface{}, 0, len(orders)*cols)
	now := time.Now()

	for i, o := range orders {
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))
		args = append(args,
			o.OrderID, o.Date, o.EmpID, o.RawName, o.Amount,
			o.OrderType, o.ProductChannel, o.Product, o.Status, o.CreatedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO orders (
			order_id, date, emp_id, raw_name, amount,
			order_type, product_channel, product, status, created_at
		) VALUES %s
		ON CONFLICT (order_id) DO NOTHING
	`, strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("写入订单失败: %w", err)
	}

	return nil
}

// ListOrdersInRange 查询日期范围内的全部订单（含拒收/取消）
func (r *OrderRepository) ListOrdersInRange(ctx context.Context, start, end string) ([]*model.Order, error) {
	query := `
		SELECT order_id, date, emp_id, raw_name, amount,
			order_type, product_channel, product, status, created_at
		FROM orders
		WHERE date >= $1 AND date <= $2
		ORDER BY date, order_id
	`

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		o := &model.Order{}
		err := rows.Scan(
			&o.OrderID, &o.Date, &o.EmpID, &o.RawName, &o.Amount,
			&o.OrderType, &o.ProductChannel, &o.Product, &o.Status, &o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("扫描订单数据失败: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, nil
}

// UpdateStatus 修改订单状态（拒收/取消/恢复）
// 状态变更后需要对该日重新合并才会反映到统计
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	query := `UPDATE orders SET status = $2 WHERE order_id = $1`

	result, err := r.db.ExecContext(ctx, query, orderID, status)
	if err != nil {
		return fmt.Errorf("更新订单状态失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("订单不存在")
	}

	return nil
}

// CountInRange 统计日期范围内的订单数
func (r *OrderRepository) CountInRange(ctx context.Context, start, end string) (int, error) {
	query := `SELECT COUNT(*) FROM orders WHERE date >= $1 AND date <= $2`

	var count int
	if err := r.db.QueryRowContext(ctx, query, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("统计订单失败: %w", err)
	}

	return count, nil
}
