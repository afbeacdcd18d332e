// Package importer 提供批量导入数据的校验与修复
//
// 手工粘贴或 OCR 识别出的表格数据在进入模型前统一经过本包：
// 数值先做清洗（表格错误串归零），再做结构化校验。校验结果按
// 错误/警告/提示三级收集返回，由调用方决定阻断还是继续——
// 校验本身从不抛出。
package importer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yejiban/yejiban/pkg/model"
	"github.com/yejiban/yejiban/pkg/resolver"
)

// Severity 校验问题级别
type Severity string

const (
	SeverityError   Severity = "error"   // 阻断导入
	SeverityWarning Severity = "warning" // 允许强制导入
	SeverityInfo    Severity = "info"
)

// Issue 单条校验问题
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Row      int      `json:"row"`            // 1 起始行号，0 表示整批
	Name     string   `json:"name,omitempty"` // 相关员工姓名
}

// Result 校验结果（结构化收集，不抛出）
type Result struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Infos    []Issue `json:"infos"`
}

// Blocked 是否存在阻断性错误
func (r *Result) Blocked() bool {
	return len(r.Errors) > 0
}

func (r *Result) add(i Issue) {
	switch i.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, i)
	case SeverityWarning:
		r.Warnings = append(r.Warnings, i)
	default:
		r.Infos = append(r.Infos, i)
	}
}

// Row 导入的单行员工日数据
type Row struct {
	Name            string `json:"name"`
	Date            string `json:"date"`
	TotalDispatches int    `json:"total_dispatches"`
	DispatchSales   int    `json:"dispatch_sales"`
	FollowupSales   int    `json:"followup_sales"`
	RenewalSales    int    `json:"renewal_sales"`
	TotalRevenue    int64  `json:"total_revenue"`
}

// Validate 校验导入批次
//
// 空姓名与批内重名是阻断性错误；超卖（成交 > 派单）与无法识别的
// 姓名是警告，行保留存储，由调用方选择补救或强制导入。
// dir 可为 nil（跳过身份检查）。
func Validate(rows []*Row, dir *resolver.Directory) *Result {
	res := &Result{}

	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		rowNo := i + 1
		name := strings.TrimSpace(row.Name)

		if name == "" {
			res.add(Issue{
				Severity: SeverityError,
				Code:     "BLANK_FIELD",
				Message:  "姓名为空",
				Row:      rowNo,
			})
			continue
		}

		if first, dup := seen[name]; dup {
			res.add(Issue{
				Severity: SeverityError,
				Code:     "DUPLICATE_NAME",
				Message:  fmt.Sprintf("姓名 %q 在第 %d 行已出现", name, first),
				Row:      rowNo,
				Name:     name,
			})
		} else {
			seen[name] = rowNo
		}

		if row.DispatchSales > row.TotalDispatches {
			res.add(Issue{
				Severity: SeverityWarning,
				Code:     "OVERSOLD",
				Message: fmt.Sprintf("成交 %d 超过派单 %d，疑似录入或跨日归属问题",
					row.DispatchSales, row.TotalDispatches),
				Row:  rowNo,
				Name: name,
			})
		}

		if dir != nil && dir.Resolve(name) == model.UnknownEmpID {
			res.add(Issue{
				Severity: SeverityWarning,
				Code:     "UNKNOWN_EMPLOYEE",
				Message:  fmt.Sprintf("姓名 %q 无法匹配任何员工，待登记别名后修正", name),
				Row:      rowNo,
				Name:     name,
			})
		}
	}

	return res
}

// SanitizeInt 清洗表格数值串
// 表格错误串（#DIV/0! 等）、空白与无法解析的内容一律归零；
// 千分位逗号与百分号在解析前剥除
func SanitizeInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "#") {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// SanitizeFloat 清洗表格浮点串，规则同 SanitizeInt
func SanitizeFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "#") {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return 0
}

// DayLoad 单日的派单/成交负载（超卖补救的操作单元）
type DayLoad struct {
	Date            string `json:"date"`
	TotalDispatches int    `json:"total_dispatches"`
	DispatchSales   int    `json:"dispatch_sales"`
}

// overflow 超出派单量的成交数
func (d *DayLoad) overflow() int {
	if d.DispatchSales > d.TotalDispatches {
		return d.DispatchSales - d.TotalDispatches
	}
	return 0
}

// capacity 还能吸收的成交数
func (d *DayLoad) capacity() int {
	if d.TotalDispatches > d.DispatchSales {
		return d.TotalDispatches - d.DispatchSales
	}
	return 0
}

// RedistributeOverflow 把超卖日的溢出成交挪入邻近的未饱和日
//
// 确定性规则：按日期距离就近分配，距离相同时先挪向较早一天。
// 返回调整后的副本与剩余无法安置的溢出总数（调用方可据此决定
// 是否强制导入）。原切片不被修改。
func RedistributeOverflow(days []*DayLoad) ([]*DayLoad, int) {
	out := make([]*DayLoad, len(days))
	for i, d := range days {
		cp := *d
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	unplaced := 0
	for i, d := range out {
		over := d.overflow()
		if over == 0 {
			continue
		}
		d.DispatchSales -= over

		// 候选日按距离排序，等距优先较早
		type cand struct{ idx, dist int }
		var cands []cand
		for j := range out {
			if j == i {
				continue
			}
			dist := j - i
			if dist < 0 {
				dist = -dist
			}
			cands = append(cands, cand{j, dist})
		}
		sort.SliceStable(cands, func(a, b int) bool {
			if cands[a].dist != cands[b].dist {
				return cands[a].dist < cands[b].dist
			}
			return cands[a].idx < cands[b].idx
		})

		for _, c := range cands {
			if over == 0 {
				break
			}
			room := out[c.idx].capacity()
			if room == 0 {
				continue
			}
			take := over
			if take > room {
				take = room
			}
			out[c.idx].DispatchSales += take
			over -= take
		}

		// 放不下的留回原日（保持守恒），计入未安置
		if over > 0 {
			d.DispatchSales += over
			unplaced += over
		}
	}

	return out, unplaced
}
