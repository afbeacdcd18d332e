package importer

import (
	"testing"

	"github.com/yejiban/yejiban/pkg/model"
	"github.com/yejiban/yejiban/pkg/resolver"
)

// 测试空姓名与批内重名为阻断性错误
func TestValidateBlockingErrors(t *testing.T) {
	rows := []*Row{
		{Name: "王小明", Date: "2024-03-15", TotalDispatches: 5, DispatchSales: 2},
		{Name: "  ", Date: "2024-03-15"},
		{Name: "王小明", Date: "2024-03-15", TotalDispatches: 3},
	}

	res := Validate(rows, nil)
	if !res.Blocked() {
		t.Fatal("存在空姓名与重名时应阻断")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("Errors = %d, want 2", len(res.Errors))
	}

	if res.Errors[0].Code != "BLANK_FIELD" || res.Errors[0].Row != 2 {
		t.Errorf("第一条错误 = %+v, want BLANK_FIELD 行 2", res.Errors[0])
	}
	if res.Errors[1].Code != "DUPLICATE_NAME" || res.Errors[1].Row != 3 {
		t.Errorf("第二条错误 = %+v, want DUPLICATE_NAME 行 3", res.Errors[1])
	}
}

// 测试超卖只产生警告不阻断
func TestValidateOversoldWarning(t *testing.T) {
	rows := []*Row{
		{Name: "王小明", Date: "2024-03-15", TotalDispatches: 3, DispatchSales: 5},
	}

	res := Validate(rows, nil)
	if res.Blocked() {
		t.Fatal("超卖不应阻断导入")
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != "OVERSOLD" {
		t.Fatalf("Warnings = %+v, want 一条 OVERSOLD", res.Warnings)
	}
	if res.Warnings[0].Name != "王小明" {
		t.Errorf("警告 Name = %q", res.Warnings[0].Name)
	}
}

// 测试无法识别的姓名产生警告，已登记别名的不产生
func TestValidateUnknownEmployee(t *testing.T) {
	emp := model.NewEmployee("王小明")
	emp.AddAlias("小王")
	dir := resolver.NewDirectory([]*model.Employee{emp})

	rows := []*Row{
		{Name: "小王", Date: "2024-03-15", TotalDispatches: 5, DispatchSales: 2},
		{Name: "李不存", Date: "2024-03-15", TotalDispatches: 4, DispatchSales: 1},
	}

	res := Validate(rows, dir)
	if res.Blocked() {
		t.Fatal("未识别姓名不应阻断导入")
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("Warnings = %d, want 1", len(res.Warnings))
	}
	if res.Warnings[0].Code != "UNKNOWN_EMPLOYEE" || res.Warnings[0].Name != "李不存" {
		t.Errorf("警告 = %+v", res.Warnings[0])
	}
}

// 测试表格错误串统一归零
func TestSanitizeInt(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"#DIV/0!", 0},
		{"#VALUE!", 0},
		{"#REF!", 0},
		{"#N/A", 0},
		{"", 0},
		{"  ", 0},
		{"abc", 0},
		{"1500", 1500},
		{" 42 ", 42},
		{"1,500", 1500},
		{"12.7", 12},
		{"-300", -300},
	}
	for _, c := range cases {
		if got := SanitizeInt(c.in); got != c.want {
			t.Errorf("SanitizeInt(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestSanitizeFloat(t *testing.T) {
	if got := SanitizeFloat("#DIV/0!"); got != 0 {
		t.Errorf("错误串应归零, got %v", got)
	}
	if got := SanitizeFloat("40%"); got != 40 {
		t.Errorf("SanitizeFloat(40%%) = %v, want 40", got)
	}
	if got := SanitizeFloat("0.35"); got != 0.35 {
		t.Errorf("SanitizeFloat(0.35) = %v", got)
	}
}

// 测试溢出成交挪入最近的未饱和日，等距优先较早一天
func TestRedistributeOverflow(t *testing.T) {
	days := []*DayLoad{
		{Date: "2024-03-14", TotalDispatches: 5, DispatchSales: 3}, // 容量 2
		{Date: "2024-03-15", TotalDispatches: 4, DispatchSales: 7}, // 溢出 3
		{Date: "2024-03-16", TotalDispatches: 5, DispatchSales: 3}, // 容量 2
	}

	out, unplaced := RedistributeOverflow(days)
	if unplaced != 0 {
		t.Fatalf("unplaced = %d, want 0", unplaced)
	}

	// 等距两侧：先填较早的 14 日（+2），再填 16 日（+1）
	if out[0].DispatchSales != 5 {
		t.Errorf("14 日成交 = %d, want 5", out[0].DispatchSales)
	}
	if out[1].DispatchSales != 4 {
		t.Errorf("15 日成交 = %d, want 4", out[1].DispatchSales)
	}
	if out[2].DispatchSales != 4 {
		t.Errorf("16 日成交 = %d, want 4", out[2].DispatchSales)
	}

	// 成交总数守恒
	var before, after int
	for i := range days {
		before += days[i].DispatchSales
		after += out[i].DispatchSales
	}
	if before != after {
		t.Errorf("成交总数不守恒: %d -> %d", before, after)
	}

	// 原切片不被修改
	if days[1].DispatchSales != 7 {
		t.Error("原切片被修改")
	}
}

// 测试容量不足时溢出留回原日并计入未安置
func TestRedistributeOverflowUnplaced(t *testing.T) {
	days := []*DayLoad{
		{Date: "2024-03-15", TotalDispatches: 2, DispatchSales: 6},
		{Date: "2024-03-16", TotalDispatches: 3, DispatchSales: 2},
	}

	out, unplaced := RedistributeOverflow(days)
	if unplaced != 3 {
		t.Fatalf("unplaced = %d, want 3", unplaced)
	}
	if out[0].DispatchSales != 5 || out[1].DispatchSales != 3 {
		t.Errorf("调整后 = %d/%d, want 5/3", out[0].DispatchSales, out[1].DispatchSales)
	}
}

// 测试无超卖时原样返回
func TestRedistributeNoOverflow(t *testing.T) {
	days := []*DayLoad{
		{Date: "2024-03-15", TotalDispatches: 5, DispatchSales: 3},
	}
	out, unplaced := RedistributeOverflow(days)
	if unplaced != 0 || out[0].DispatchSales != 3 {
		t.Errorf("无超卖时不应有调整: %+v, unplaced %d", out[0], unplaced)
	}
}
