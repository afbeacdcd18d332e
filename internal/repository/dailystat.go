// Package repository 提供数据访问层
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yejiban/yejiban/pkg/model"
)

// StatRepository 日统计仓储
// 日统计是合并输出的反规范化读模型，只支持整段替换与范围查询，
// 不提供单条更新
type StatRepository struct {
	db DB
}

// NewStatRepository 创建日统计仓储
func NewStatRepository(db DB) *StatRepository {
	return &StatRepository{db: db}
}

// DeleteStatsInRange 删除日期范围内的全部日统计
func (r *StatRepository) DeleteStatsInRange(ctx context.Context, start, end string) error {
	query := `DELETE FROM daily_stats WHERE date >= $1 AND date <= $2`

	if _, err := r.db.ExecContext(ctx, query, start, end); err != nil {
		return fmt.Errorf("删除日统计失败: %w", err)
	}

	return nil
}

// InsertStats 批量写入日统计（单批原子）
func (r *StatRepository) InsertStats(ctx context.Context, stats []*model.DailyStat) error {
	if len(stats) == 0 {
		return nil
	}

	const cols = 21
	placeholders := make([]string, 0, len(stats))
	args := make([]interface{}, 0, len(stats)*cols)

	for i, s := range stats {
		channelJSON, _ := json.Marshal(s.ChannelRevenue)
		productJSON, _ := json.Marshal(s.ProductBreakdown)
		orderIDsJSON, _ := json.Marshal(s.OrderIDs)

		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", i*cols+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")

		args = append(args,
			s.ID, s.Date, s.EmpID, s.EmpName, s.TotalDispatches,
			s.TotalSales, s.DispatchSales, s.FollowupSales, s.RenewalSales, s.UnclassifiedSales,
			s.FollowupRevenue, s.RenewalRevenue, s.ReturnRevenue,
			channelJSON, s.GiftCount,
			s.ConversionRate, s.TotalRevenue, s.AvgOrderValue,
			productJSON, orderIDsJSON, s.MergedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO daily_stats (
			id, date, emp_id, emp_name, total_dispatches,
			total_sales, dispatch_sales, followup_sales, renewal_sales, unclassified_sales,
			followup_revenue, renewal_revenue, return_revenue,
			channel_revenue, gift_count,
			conversion_rate, total_revenue, avg_order_value,
			product_breakdown, order_ids, merged_at
		) VALUES %s
	`, strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("写入日统计失败: %w", err)
	}

	return nil
}

// ListStatsInRange 查询日期范围内的日统计
func (r *StatRepository) ListStatsInRange(ctx context.Context, start, end string) ([]*model.DailyStat, error) {
	query := `
		SELECT id, date, emp_id, emp_name, total_dispatches,
			total_sales, dispatch_sales, followup_sales, renewal_sales, unclassified_sales,
			followup_revenue, renewal_revenue, return_revenue,
			channel_revenue, gift_count,
			conversion_rate, total_revenue, avg_order_value,
			product_breakdown, order_ids, merged_at
		FROM daily_stats
		WHERE date >= $1 AND date <= $2
		ORDER BY date, emp_id
	`

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("查询日统计失败: %w", err)
	}
	defer rows.Close()

	var stats []*model.DailyStat
	for rows.Next() {
		s := &model.DailyStat{}
		var channelJSON, productJSON, orderIDsJSON []byte

		err := rows.Scan(
			&s.ID, &s.Date, &s.EmpID, &s.EmpName, &s.TotalDispatches,
			&s.TotalSales, &s.DispatchSales, &s.FollowupSales, &s.RenewalSales, &s.UnclassifiedSales,
			&s.FollowupRevenue, &s.RenewalRevenue, &s.ReturnRevenue,
			&channelJSON, &s.GiftCount,
			&s.ConversionRate, &s.TotalRevenue, &s.AvgOrderValue,
			&productJSON, &orderIDsJSON, &s.MergedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("扫描日统计数据失败: %w", err)
		}

		json.Unmarshal(channelJSON, &s.ChannelRevenue)
		json.Unmarshal(productJSON, &s.ProductBreakdown)
		json.Unmarshal(orderIDsJSON, &s.OrderIDs)

		stats = append(stats, s)
	}

	return stats, nil
}
