// internal/service/shop/application/dto.go
package application

import (
	"time"

	"ilotel/internal/service/shop/domain"
)

// ReserveRequest 是预订用例的输入
type ReserveRequest struct {
	OfferID string `json:"offerId"`
}

// ReserveResponse 告知客户端预订结果与过期时刻
type ReserveResponse struct {
	OrderID   string    `json:"orderId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CheckoutRequest 携带买家联系方式
type CheckoutRequest struct {
	Email string `json:"email"`
}

// CheckoutResponse 返回客户端完成支付所需的全部句柄。
// FinalPrice 以服务端留存的价格为准，仅用于展示。
type CheckoutResponse struct {
	OrderID      string  `json:"orderId"`
	CustomerID   string  `json:"customerId"`
	EphemeralKey string  `json:"ephemeralKey"`
	ClientSecret string  `json:"clientSecret"`
	FinalPrice   float64 `json:"finalPrice"`
}

// CancelResponse 是取消用例的输出
type CancelResponse struct {
	Success bool `json:"success"`
}

// OrderView 是订单详情的对外视图
type OrderView struct {
	OrderID       string             `json:"orderId"`
	Status        domain.OrderStatus `json:"status"`
	FinalPrice    float64            `json:"finalPrice"`
	Email         string             `json:"email,omitempty"`
	ReservedUntil time.Time          `json:"reservedUntil"`
	CreatedAt     time.Time          `json:"createdAt"`

	Offer *OfferView `json:"offer,omitempty"`
	// ICCID 只在激活码已售出（订单 provisioned）后可见
	ICCID string `json:"iccid,omitempty"`
}

// OfferView 是套餐的对外视图
type OfferView struct {
	OfferID        string  `json:"offerId"`
	EsimID         string  `json:"esimId"`
	DataGB         int     `json:"dataGb"`
	DurationDays   int     `json:"durationDays"`
	BasePrice      float64 `json:"basePrice"`
	FinalPrice     float64 `json:"finalPrice"`
	HasDiscount    bool    `json:"hasDiscount"`
	AvailableCount int64   `json:"availableCount"`
}

// NewOfferView 把领域 Offer 转换为对外视图
func NewOfferView(offer *domain.Offer) *OfferView {
	return &OfferView{
		OfferID:        offer.ID,
		EsimID:         offer.EsimID,
		DataGB:         offer.DataGB,
		DurationDays:   offer.DurationDays,
		BasePrice:      offer.BasePrice,
		FinalPrice:     offer.FinalPrice(),
		HasDiscount:    offer.ActiveDiscount != nil,
		AvailableCount: offer.AvailableCount,
	}
}
