// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/yejiban/yejiban/pkg/model"
)

// HistoryRepository 每日快照存档仓储
type HistoryRepository struct {
	db DB
}

// NewHistoryRepository 创建存档仓储
func NewHistoryRepository(db DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// GetRecord 按 (存档日期, 数据来源) 获取快照，不存在时返回 nil
func (r *HistoryRepository) GetRecord(ctx context.Context, archiveDate, source string) (*model.HistoryRecord, error) {
	query := `
		SELECT id, title, archive_date, data_source, raw_data, analyzed_data,
			is_analyzed, total_revenue, created_at, updated_at
		FROM history_records
		WHERE archive_date = $1 AND data_source = $2
	`

	return r.scanRecord(r.db.QueryRowContext(ctx, query, archiveDate, source))
}

// SaveRecord 写入快照，同 ID 已存在时整条覆盖
func (r *HistoryRepository) SaveRecord(ctx context.Context, rec *model.HistoryRecord) error {
	rawJSON, _ := json.Marshal(rec.RawData)
	analyzedJSON, _ := json.Marshal(rec.AnalyzedData)

	query := `
		INSERT INTO history_records (
			id, title, archive_date, data_source, raw_data, analyzed_data,
			is_analyzed, total_revenue, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			raw_data = EXCLUDED.raw_data,
			analyzed_data = EXCLUDED.analyzed_data,
			is_analyzed = EXCLUDED.is_analyzed,
			total_revenue = EXCLUDED.total_revenue,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Title, rec.ArchiveDate, rec.DataSource, rawJSON, analyzedJSON,
		rec.IsAnalyzed, rec.TotalRevenue, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("写入存档失败: %w", err)
	}

	return nil
}

// DeleteRecord 删除快照
func (r *HistoryRepository) DeleteRecord(ctx context.Context, archiveDate, source string) error {
	query := `DELETE FROM history_records WHERE archive_date = $1 AND data_source = $2`

	if _, err := r.db.ExecContext(ctx, query, archiveDate, source); err != nil {
		return fmt.Errorf("删除存档失败: %w", err)
	}

	return nil
}

// ListRecordsInRange 查询日期范围内的快照
// source 为空时不按来源过滤
func (r *HistoryRepository) ListRecordsInRange(ctx context.Context, start, end, source string) ([]*model.HistoryRecord, error) {
	query := `
		SELECT id, title, archive_date, data_source, raw_data, analyzed_data,
			is_analyzed, total_revenue, created_at, updated_at
		FROM history_records
		WHERE archive_date >= $1 AND archive_date <= $2
	`
	args := []interface{}{start, end}

	if source != "" {
		query += ` AND data_source = $3`
		args = append(args, source)
	}
	query += ` ORDER BY archive_date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询存档失败: %w", err)
	}
	defer rows.Close()

	var records []*model.HistoryRecord
	for rows.Next() {
		rec, err := r.scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// scanRecord 扫描单行快照数据
func (r *HistoryRepository) scanRecord(row *sql.Row) (*model.HistoryRecord, error) {
	rec := &model.HistoryRecord{}
	var rawJSON, analyzedJSON []byte

	err := row.Scan(
		&rec.ID, &rec.Title, &rec.ArchiveDate, &rec.DataSource, &rawJSON, &analyzedJSON,
		&rec.IsAnalyzed, &rec.TotalRevenue, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描存档数据失败: %w", err)
	}

	json.Unmarshal(rawJSON, &rec.RawData)
	json.Unmarshal(analyzedJSON, &rec.AnalyzedData)

	return rec, nil
}

// scanRecordRow 扫描Rows中的快照数据
func (r *HistoryRepository) scanRecordRow(rows *sql.Rows) (*model.HistoryRecord, error) {
	rec := &model.HistoryRecord{}
	var rawJSON, analyzedJSON []byte

	err := rows.Scan(
		&rec.ID, &rec.Title, &rec.ArchiveDate, &rec.DataSource, &rawJSON, &analyzedJSON,
		&rec.IsAnalyzed, &rec.TotalRevenue, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("扫描存档数据失败: %w", err)
	}

	json.Unmarshal(rawJSON, &rec.RawData)
	json.Unmarshal(analyzedJSON, &rec.AnalyzedData)

	return rec, nil
}

// DailyRecordRepository 员工日记录仓储
type DailyRecordRepository struct {
	db DB
}

// NewDailyRecordRepository 创建员工日记录仓储
func NewDailyRecordRepository(db DB) *DailyRecordRepository {
	return &DailyRecordRepository{db: db}
}

// ReplaceDailyRecords 整段重写某 (日期, 来源) 的员工日记录
func (r *DailyRecordRepository) ReplaceDailyRecords(ctx context.Context, date, source string, records []*model.EmployeeDailyRecord) error {
	delQuery := `DELETE FROM employee_daily_records WHERE date = $1 AND data_source = $2`
	if _, err := r.db.ExecContext(ctx, delQuery, date, source); err != nil {
		return fmt.Errorf("删除员工日记录失败: %w", err)
	}

	for _, rec := range records {
		perfJSON, _ := json.Marshal(rec.Performance)

		query := `
			INSERT INTO employee_daily_records (id, emp_id, date, data_source, performance, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := r.db.ExecContext(ctx, query,
			rec.ID, rec.EmpID, rec.Date, rec.DataSource, perfJSON, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("写入员工日记录失败: %w", err)
		}
	}

	return nil
}

// ListByEmployee 查询单个员工在日期范围内的日记录（走势图用）
func (r *DailyRecordRepository) ListByEmployee(ctx context.Context, empID, start, end string) ([]*model.EmployeeDailyRecord, error) {
	query := `
		SELECT id, emp_id, date, data_source, performance, created_at
		FROM employee_daily_records
		WHERE emp_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query, empID, start, end)
	if err != nil {
		return nil, fmt.Errorf("查询员工日记录失败: %w", err)
	}
	defer rows.Close()

	var records []*model.EmployeeDailyRecord
	for rows.Next() {
		rec := &model.EmployeeDailyRecord{}
		var perfJSON []byte

		err := rows.Scan(&rec.ID, &rec.EmpID, &rec.Date, &rec.DataSource, &perfJSON, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("扫描员工日记录失败: %w", err)
		}

		json.Unmarshal(perfJSON, &rec.Performance)
		records = append(records, rec)
	}

	return records, nil
}
