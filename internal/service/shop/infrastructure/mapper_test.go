// internal/service/shop/infrastructure/mapper_test.go
package infrastructure

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ilotel/internal/service/shop/domain"
)

func TestOrderMapping(t *testing.T) {
	now := time.Now().Truncate(time.Second)

	t.Run("optional fields round-trip", func(t *testing.T) {
		order := &domain.Order{
			ID:              "order-1",
			OfferID:         "offer-1",
			FinalPrice:      14.99,
			DiscountID:      "disc-1",
			Email:           "buyer@example.com",
			PaymentIntentID: "pi_abc",
			ReservedUntil:   now.Add(5 * time.Minute),
			Status:          domain.OrderPending,
			CreatedAt:       now,
		}

		got := toDomainOrder(toOrderModel(order))
		assert.Equal(t, order, got)
	})

	t.Run("fresh reservation has no optional fields", func(t *testing.T) {
		order := &domain.Order{
			ID:            "order-2",
			OfferID:       "offer-1",
			FinalPrice:    19.99,
			ReservedUntil: now,
			Status:        domain.OrderPending,
			CreatedAt:     now,
		}

		model := toOrderModel(order)
		// 空引用必须落成 NULL，payment_intent_id 上有唯一索引，
		// 空字符串会让第二笔未 checkout 的订单插不进去
		assert.False(t, model.DiscountID.Valid)
		assert.False(t, model.Email.Valid)
		assert.False(t, model.PaymentIntentID.Valid)

		assert.Equal(t, order, toDomainOrder(model))
	})
}

func TestUnitMapping(t *testing.T) {
	reservedAt := time.Now().Truncate(time.Second)

	model := &InventoryUnitModel{
		ID:         "unit-1",
		EsimID:     "esim-1",
		ICCID:      "8933010000000001",
		Status:     string(domain.UnitReserved),
		OrderID:    sql.NullString{String: "order-1", Valid: true},
		ReservedAt: sql.NullTime{Time: reservedAt, Valid: true},
	}

	unit := toDomainUnit(model)
	assert.Equal(t, "order-1", unit.OrderID)
	assert.Equal(t, domain.UnitReserved, unit.Status)
	assert.Equal(t, reservedAt, *unit.ReservedAt)
	assert.Nil(t, unit.SoldAt)
}

func TestDiscountMapping(t *testing.T) {
	starts := time.Now().Truncate(time.Second)

	model := &DiscountModel{
		ID:       "disc-1",
		OfferID:  "offer-1",
		Type:     string(domain.DiscountPercentage),
		Value:    20,
		Active:   true,
		StartsAt: sql.NullTime{Time: starts, Valid: true},
		Rule:     "data_gb >= 10",
	}

	discount := toDomainDiscount(model)
	assert.Equal(t, domain.DiscountPercentage, discount.Type)
	assert.Equal(t, starts, *discount.StartsAt)
	assert.Nil(t, discount.EndsAt)
	assert.Equal(t, "data_gb >= 10", discount.Rule)
}
