package model

import "time"

// OrderType 订单类型
type OrderType string

const (
	OrderDispatch OrderType = "dispatch" // 派单成交
	OrderFollowup OrderType = "followup" // 追踪成交
	OrderRenewal  OrderType = "renewal"  // 续购
	OrderReturn   OrderType = "return"   // 退货
	OrderOther    OrderType = "other"    // 其他/未分类
)

// ProductChannel 产品渠道
type ProductChannel string

const (
	ChannelYishin  ProductChannel = "yishin"  // 怡心渠道
	ChannelMinshi  ProductChannel = "minshi"  // 民市渠道
	ChannelCompany ProductChannel = "company" // 公司自营
	ChannelGift    ProductChannel = "gift"    // 赠品
	ChannelOther   ProductChannel = "other"   // 其他
)

// 订单状态
const (
	OrderStatusNormal    = "normal"    // 正常
	OrderStatusRejected  = "rejected"  // 拒收
	OrderStatusCancelled = "cancelled" // 取消
)

// Order 订单明细
// 导入后不可变，唯一例外是 EmpID：合并时总是按当前别名表重新解析 RawName，
// 不信任导入时写入的值（保证后补别名能追溯修正历史数据）
type Order struct {
	OrderID        string         `json:"order_id" db:"order_id"`
	Date           string         `json:"date" db:"date"` // YYYY-MM-DD
	EmpID          string         `json:"emp_id" db:"emp_id"`
	RawName        string         `json:"raw_name" db:"raw_name"` // 导入时的原始姓名
	Amount         int64          `json:"amount" db:"amount"`     // 金额（元）
	OrderType      OrderType      `json:"order_type" db:"order_type"`
	ProductChannel ProductChannel `json:"product_channel" db:"product_channel"`
	Product        string         `json:"product,omitempty" db:"product"` // 产品名称
	Status         string         `json:"status" db:"status"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// Excluded 检查订单是否应从所有统计中排除
// 拒收与取消的订单保留存储但不参与任何聚合
func (o *Order) Excluded() bool {
	return o.Status == OrderStatusRejected || o.Status == OrderStatusCancelled
}

// NormalizeOrderType 归一化订单类型字符串
// 未识别的类型归入 other，由调用方显式记为未分类（不再静默当作派单）
func NormalizeOrderType(s string) OrderType {
	switch OrderType(s) {
	case OrderDispatch, OrderFollowup, OrderRenewal, OrderReturn:
		return OrderType(s)
	default:
		return OrderOther
	}
}

// NormalizeChannel 归一化产品渠道字符串
func NormalizeChannel(s string) ProductChannel {
	switch ProductChannel(s) {
	case ChannelYishin, ChannelMinshi, ChannelCompany, ChannelGift:
		return ProductChannel(s)
	default:
		return ChannelOther
	}
}

// DispatchCount 每日派单量
// 按 (日期, 员工) 唯一，重复录入时整条覆盖（last-write-wins）
type DispatchCount struct {
	ID              string    `json:"id" db:"id"` // {date}_{empID}
	Date            string    `json:"date" db:"date"`
	EmpID           string    `json:"emp_id" db:"emp_id"`
	EmpName         string    `json:"emp_name" db:"emp_name"`
	TotalDispatches int       `json:"total_dispatches" db:"total_dispatches"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// NewDispatchCount 创建派单量记录
func NewDispatchCount(date, empID, empName string, total int) *DispatchCount {
	return &DispatchCount{
		ID:              StatID(date, empID),
		Date:            date,
		EmpID:           empID,
		EmpName:         empName,
		TotalDispatches: total,
		UpdatedAt:       time.Now(),
	}
}
