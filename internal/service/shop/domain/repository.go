// internal/service/shop/domain/repository.go
package domain

import (
	"context"
	"time"
)

// InventoryRepository 是库存台账的持久化接口。
// 它位于领域层，但由基础设施层实现。
type InventoryRepository interface {
	// ClaimOneAvailable 原子地锁定一张可售激活码并关联到订单。
	// 候选行使用非阻塞独占锁（SKIP LOCKED 语义）：与并发竞争者撞行时
	// 跳到下一行而不是排队等待。无可售行时返回 ErrStockExhausted，
	// 调用方必须视为硬性售罄，不得内部重试。
	ClaimOneAvailable(ctx context.Context, esimID, orderID string) (*InventoryUnit, error)

	// Confirm 把订单锁定的行从 reserved 置为 sold。幂等：
	// 行已是 sold 或订单没有 reserved 行时记日志返回 nil。
	Confirm(ctx context.Context, orderID string) error

	// Release 把订单锁定的行放回 available 并清除关联。幂等，
	// cancel 与清扫竞态下重复调用是安全的。
	Release(ctx context.Context, orderID string) error

	// FindByOrderID 查询订单关联的库存行，不存在时返回 (nil, nil)
	FindByOrderID(ctx context.Context, orderID string) (*InventoryUnit, error)
}

// OrderRepository 是订单记录的持久化接口
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*Order, error)

	// UpdateStatus 只写 status 一列，last-write-wins
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error

	// AttachCheckout 写入买家邮箱与支付引用
	AttachCheckout(ctx context.Context, id, email, intentID string) error

	// Delete 物理删除订单。仅用于"创建成功但锁定库存失败"的窄窗口，
	// 一旦有库存行关联过订单就不允许再删除。
	Delete(ctx context.Context, id string) error

	// FindExpiredPending 找出 reservedUntil 已过、尚未进入支付的 pending 订单
	FindExpiredPending(ctx context.Context, now time.Time) ([]*Order, error)
}

// OfferRepository 提供只读的套餐视图（含生效折扣与可售数）
type OfferRepository interface {
	FindByID(ctx context.Context, id string) (*Offer, error)
	FindByEsimID(ctx context.Context, esimID string) ([]*Offer, error)
}

// EsimRepository 提供只读的目录视图
type EsimRepository interface {
	FindAll(ctx context.Context) ([]*Esim, error)
	FindByID(ctx context.Context, id string) (*Esim, error)
}
