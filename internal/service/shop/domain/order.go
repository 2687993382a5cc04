// internal/service/shop/domain/order.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order 是一次购买尝试的聚合根
type Order struct {
	ID         string
	OfferID    string
	FinalPrice float64
	DiscountID string
	// Email 在 checkout 之前为空：预订阶段不要求买家信息
	Email string
	// PaymentIntentID 是支付方的交易引用，checkout 成功后写入。
	// 它的存在与否决定了过期清扫是否可以回收该订单。
	PaymentIntentID string
	ReservedUntil   time.Time
	Status          OrderStatus
	CreatedAt       time.Time
}

// NewOrder 创建一笔 pending 订单。
// 价格与折扣在此刻从权威 Offer 上快照，之后即使折扣变动也不再影响本单。
func NewOrder(offer *Offer, window time.Duration) *Order {
	o := &Order{
		ID:            uuid.New().String(),
		OfferID:       offer.ID,
		FinalPrice:    offer.FinalPrice(),
		ReservedUntil: time.Now().Add(window),
		Status:        OrderPending,
		CreatedAt:     time.Now(),
	}
	if offer.ActiveDiscount != nil {
		o.DiscountID = offer.ActiveDiscount.ID
	}
	return o
}

// IsPending 判断订单是否仍可被 checkout / cancel 操作
func (o *Order) IsPending() bool {
	return o.Status == OrderPending
}

// ReachedCheckout 判断订单是否已进入支付流程。
// 已有支付引用的订单不允许被时间清扫抢占，必须由对账器收尾。
func (o *Order) ReachedCheckout() bool {
	return o.PaymentIntentID != ""
}

// OrderDetails 是 GET /orders/{id} 返回的完整视图
type OrderDetails struct {
	Order
	Offer *Offer
	// Unit 为订单关联的库存行，尚未锁定时为 nil
	Unit *InventoryUnit
}
