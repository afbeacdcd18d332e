// Package model 定义业绩看板的核心数据模型
package model

import (
	"fmt"
	"time"
)

// DateLayout 业务日期统一格式 (YYYY-MM-DD)
const DateLayout = "2006-01-02"

// MonthLayout 月份键格式 (YYYY-MM)
const MonthLayout = "2006-01"

// ParseDate 解析业务日期
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式无效 %q: %w", s, err)
	}
	return t, nil
}

// FormatDate 格式化业务日期
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidDateRange 检查日期范围是否有效 (start <= end)
func ValidDateRange(start, end string) error {
	s, err := ParseDate(start)
	if err != nil {
		return err
	}
	e, err := ParseDate(end)
	if err != nil {
		return err
	}
	if e.Before(s) {
		return fmt.Errorf("日期范围无效: %s > %s", start, end)
	}
	return nil
}

// DaysInRange 返回范围内的所有日期（含两端）
func DaysInRange(start, end string) ([]string, error) {
	if err := ValidDateRange(start, end); err != nil {
		return nil, err
	}
	s, _ := ParseDate(start)
	e, _ := ParseDate(end)

	var days []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		days = append(days, FormatDate(d))
	}
	return days, nil
}

// StatID 生成日统计记录的主键 {date}_{empID}
func StatID(date, empID string) string {
	return date + "_" + empID
}

// DailyRecordID 生成员工日记录的主键 {empID}-{date}-{source}
func DailyRecordID(empID, date, source string) string {
	return empID + "-" + date + "-" + source
}
