package model

import (
	"time"

	"github.com/google/uuid"
)

// 数据来源
const (
	SourceManual = "manual" // 手工粘贴/OCR 录入
	SourceMerged = "merged" // 双轨合并管线
)

// HistoryRecord 每日快照存档
// 每个 (存档日期, 数据来源) 只有一条；RawData 创建后只写一次，
// AnalyzedData 仅由分析编排器写入，永远是派生数据而非原始数据的系统记录
type HistoryRecord struct {
	ID           string                 `json:"id" db:"id"`
	Title        string                 `json:"title" db:"title"`
	ArchiveDate  string                 `json:"archive_date" db:"archive_date"` // YYYY-MM-DD
	DataSource   string                 `json:"data_source" db:"data_source"`
	RawData      []*EmployeePerformance `json:"raw_data" db:"raw_data"`
	AnalyzedData []*EmployeePerformance `json:"analyzed_data,omitempty" db:"analyzed_data"`
	IsAnalyzed   bool                   `json:"is_analyzed" db:"is_analyzed"`
	TotalRevenue int64                  `json:"total_revenue" db:"total_revenue"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at" db:"updated_at"`
}

// NewHistoryRecord 创建每日快照
func NewHistoryRecord(archiveDate, source string, rawData []*EmployeePerformance) *HistoryRecord {
	var total int64
	for _, r := range rawData {
		total += r.TotalRevenue
	}
	now := time.Now()
	return &HistoryRecord{
		ID:           uuid.New().String(),
		Title:        archiveDate + " 业绩快照",
		ArchiveDate:  archiveDate,
		DataSource:   source,
		RawData:      rawData,
		TotalRevenue: total,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// EmployeeDailyRecord 员工日记录（按员工反规范化的快照行）
type EmployeeDailyRecord struct {
	ID          string               `json:"id" db:"id"` // {empID}-{date}-{source}
	EmpID       string               `json:"emp_id" db:"emp_id"`
	Date        string               `json:"date" db:"date"`
	DataSource  string               `json:"data_source" db:"data_source"`
	Performance *EmployeePerformance `json:"performance" db:"performance"`
	CreatedAt   time.Time            `json:"created_at" db:"created_at"`
}

// MonthlyTarget 月度营收目标
type MonthlyTarget struct {
	YearMonth string    `json:"year_month" db:"year_month"` // YYYY-MM
	Amount    int64     `json:"amount" db:"amount"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
