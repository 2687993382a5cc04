// internal/service/shop/domain/state.go
package domain

// OrderStatus 定义了订单的生命周期状态
type OrderStatus string

const (
	OrderPending     OrderStatus = "pending"     // 已预订，库存已锁定，等待买家进入支付
	OrderPaid        OrderStatus = "paid"        // 已支付（内部中间态，可选）
	OrderFailed      OrderStatus = "failed"      // 终态：取消 / 过期 / 支付失败
	OrderProvisioned OrderStatus = "provisioned" // 终态：支付成功且激活码已交付
)

// IsTerminal 判断状态是否为终态
func (s OrderStatus) IsTerminal() bool {
	return s == OrderFailed || s == OrderProvisioned
}

// InventoryStatus 定义了单张激活码的库存状态
type InventoryStatus string

const (
	UnitAvailable InventoryStatus = "available" // 可售
	UnitReserved  InventoryStatus = "reserved"  // 被某个 pending 订单独占
	UnitSold      InventoryStatus = "sold"      // 终态，不可再变更
)
