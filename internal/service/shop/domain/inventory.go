// internal/service/shop/domain/inventory.go
package domain

import "time"

// InventoryUnit 代表一张可售的 eSIM 激活码。
// 不变量：reserved 状态下恰好被一个非终态订单持有；sold 是终态。
// 库存行只会被 Inventory Ledger 变更，永不删除。
type InventoryUnit struct {
	ID         string
	EsimID     string
	ICCID      string // 激活码的全球唯一序列号
	Status     InventoryStatus
	OrderID    string // 持有该行的订单，reserved / sold 时非空
	ReservedAt *time.Time
	SoldAt     *time.Time
}
