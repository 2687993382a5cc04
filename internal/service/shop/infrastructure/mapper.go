// internal/service/shop/infrastructure/mapper.go
package infrastructure

import (
	"database/sql"
	"time"

	"ilotel/internal/service/shop/domain"
)

// 数据库模型与领域模型之间的转换。
// 领域层不感知 sql.Null* 这类存储细节。

func toDomainEsim(m *EsimModel) *domain.Esim {
	return &domain.Esim{
		ID:        m.ID,
		Name:      m.Name,
		Type:      m.Type,
		Flag:      m.Flag,
		CreatedAt: m.CreatedAt,
	}
}

func toDomainDiscount(m *DiscountModel) *domain.Discount {
	return &domain.Discount{
		ID:       m.ID,
		OfferID:  m.OfferID,
		Type:     domain.DiscountType(m.Type),
		Value:    m.Value,
		Active:   m.Active,
		StartsAt: nullTimePtr(m.StartsAt),
		EndsAt:   nullTimePtr(m.EndsAt),
		Rule:     m.Rule,
	}
}

func toDomainUnit(m *InventoryUnitModel) *domain.InventoryUnit {
	return &domain.InventoryUnit{
		ID:         m.ID,
		EsimID:     m.EsimID,
		ICCID:      m.ICCID,
		Status:     domain.InventoryStatus(m.Status),
		OrderID:    m.OrderID.String,
		ReservedAt: nullTimePtr(m.ReservedAt),
		SoldAt:     nullTimePtr(m.SoldAt),
	}
}

func toDomainOrder(m *OrderModel) *domain.Order {
	return &domain.Order{
		ID:              m.ID,
		OfferID:         m.OfferID,
		FinalPrice:      m.FinalPrice,
		DiscountID:      m.DiscountID.String,
		Email:           m.Email.String,
		PaymentIntentID: m.PaymentIntentID.String,
		ReservedUntil:   m.ReservedUntil,
		Status:          domain.OrderStatus(m.Status),
		CreatedAt:       m.CreatedAt,
	}
}

func toOrderModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		ID:              o.ID,
		OfferID:         o.OfferID,
		FinalPrice:      o.FinalPrice,
		DiscountID:      nullString(o.DiscountID),
		Email:           nullString(o.Email),
		PaymentIntentID: nullString(o.PaymentIntentID),
		ReservedUntil:   o.ReservedUntil,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
