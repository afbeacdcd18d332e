// Package resolver 提供姓名到员工的身份解析
//
// 订单与派单数据以自由文本姓名为连接键（可能是错别字、昵称或别名）。
// 解析采用两层模型：原始记录永远保留导入时的姓名，别名表在合并/查询时
// 才被查询（晚绑定），因此后补登记的别名能追溯修正历史数据。
package resolver

import (
	"sort"
	"strings"

	"github.com/yejiban/yejiban/pkg/model"
)

// Directory 员工目录（别名 → 正式员工ID 的只读索引）
// 每次合并都重新构建，不跨调用缓存
type Directory struct {
	byAlias map[string]string // 别名 -> 员工ID
	byID    map[string]*model.Employee
}

// NewDirectory 从员工列表构建目录
// 正式姓名本身总是自己的别名；同一别名出现在多个员工下时先登记者优先
func NewDirectory(employees []*model.Employee) *Directory {
	d := &Directory{
		byAlias: make(map[string]string),
		byID:    make(map[string]*model.Employee, len(employees)),
	}
	for _, e := range employees {
		d.byID[e.ID] = e
		d.register(e.CanonicalName, e.ID)
		for _, a := range e.Aliases {
			d.register(a, e.ID)
		}
	}
	return d
}

func (d *Directory) register(name, id string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if _, ok := d.byAlias[name]; !ok {
		d.byAlias[name] = id
	}
}

// Resolve 解析自由文本姓名为员工ID
// 精确匹配（去除首尾空白），未命中返回 UnknownEmpID——调用方必须显式处置：
// 新建员工、登记为别名、或保持未知
func (d *Directory) Resolve(rawName string) string {
	name := strings.TrimSpace(rawName)
	if name == "" {
		return model.UnknownEmpID
	}
	if id, ok := d.byAlias[name]; ok {
		return id
	}
	return model.UnknownEmpID
}

// Employee 按ID取员工档案
func (d *Directory) Employee(id string) (*model.Employee, bool) {
	e, ok := d.byID[id]
	return e, ok
}

// DisplayName 返回员工展示名，未知ID返回空串
func (d *Directory) DisplayName(id string) string {
	if e, ok := d.byID[id]; ok {
		return e.Label()
	}
	return ""
}

// Size 目录中的员工数
func (d *Directory) Size() int {
	return len(d.byID)
}

// Unresolved 收集订单中无法解析的姓名（去重、排序，供调用方处置）
func (d *Directory) Unresolved(orders []*model.Order) []string {
	seen := make(map[string]struct{})
	for _, o := range orders {
		name := strings.TrimSpace(o.RawName)
		if name == "" {
			continue
		}
		if d.Resolve(name) == model.UnknownEmpID {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
