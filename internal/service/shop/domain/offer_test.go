// internal/service/shop/domain/offer_test.go
package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOffer_FinalPrice(t *testing.T) {
	tests := []struct {
		name     string
		base     float64
		discount *Discount
		want     float64
	}{
		{"no discount", 19.99, nil, 19.99},
		{"percentage", 20.00, &Discount{Type: DiscountPercentage, Value: 20}, 16.00},
		{"percentage rounds to cents", 19.99, &Discount{Type: DiscountPercentage, Value: 15}, 16.99},
		{"fixed", 19.99, &Discount{Type: DiscountFixed, Value: 5}, 14.99},
		{"fixed never goes negative", 4.00, &Discount{Type: DiscountFixed, Value: 10}, 0},
		{"full percentage", 19.99, &Discount{Type: DiscountPercentage, Value: 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer := &Offer{BasePrice: tt.base, ActiveDiscount: tt.discount}
			assert.Equal(t, tt.want, offer.FinalPrice())
		})
	}
}

func TestOffer_Sellable(t *testing.T) {
	assert.True(t, (&Offer{StripePriceID: "price_1"}).Sellable())
	assert.False(t, (&Offer{}).Sellable())
}

func TestDiscount_InWindow(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		discount Discount
		want     bool
	}{
		{"inactive", Discount{Active: false}, false},
		{"active without window", Discount{Active: true}, true},
		{"inside window", Discount{Active: true, StartsAt: &past, EndsAt: &future}, true},
		{"not started yet", Discount{Active: true, StartsAt: &future}, false},
		{"already ended", Discount{Active: true, EndsAt: &past}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.discount.InWindow(now))
		})
	}
}

func TestNewOrder_SnapshotsPrice(t *testing.T) {
	offer := &Offer{
		ID:             "offer-1",
		EsimID:         "esim-1",
		BasePrice:      20.00,
		ActiveDiscount: &Discount{ID: "disc-1", Type: DiscountPercentage, Value: 50, Active: true},
	}

	order := NewOrder(offer, 5*time.Minute)
	assert.Equal(t, 10.00, order.FinalPrice)
	assert.Equal(t, "disc-1", order.DiscountID)
	assert.Equal(t, OrderPending, order.Status)
	assert.NotEmpty(t, order.ID)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), order.ReservedUntil, 2*time.Second)

	// 快照之后折扣变动不再影响已有订单
	offer.ActiveDiscount = nil
	assert.Equal(t, 10.00, order.FinalPrice)
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, OrderPending.IsTerminal())
	assert.False(t, OrderPaid.IsTerminal())
	assert.True(t, OrderFailed.IsTerminal())
	assert.True(t, OrderProvisioned.IsTerminal())
}
