// internal/service/shop/application/flow_test.go
package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ilotel/internal/service/shop/domain"
	"ilotel/internal/service/shop/domain/port"
)

// 完整走一遍售卖周期：预订抢光库存，付款，回调交付，
// 失败的支付释放库存让下一个买家接盘。
func TestFullLifecycle(t *testing.T) {
	ctx := context.Background()

	orders := newMemOrderRepo()
	inventory := newMemInventoryRepo(testEsimID, 1)
	payments := &stubPayments{}
	notifier := &stubNotifier{}
	verifier := &dynamicVerifier{}

	svc := NewShopService(
		orders,
		inventory,
		&memOfferRepo{offers: sellableOffer(1)},
		&memEsimRepo{esims: map[string]*domain.Esim{testEsimID: {ID: testEsimID, Name: "France"}}},
		payments,
		otel.Tracer("test"),
		5*time.Minute,
	)
	reconciler := NewPaymentReconciler(orders, inventory, verifier, notifier, otel.Tracer("test"))

	// 1. 第一位买家拿到唯一一张激活码
	reserved, err := svc.Reserve(ctx, &ReserveRequest{OfferID: "offer-1"})
	require.NoError(t, err)

	// 2. 售罄：第二位买家被拒
	_, err = svc.Reserve(ctx, &ReserveRequest{OfferID: "offer-1"})
	require.ErrorIs(t, err, domain.ErrStockExhausted)

	// 3. checkout 开启支付
	checkout, err := svc.Checkout(ctx, reserved.OrderID, &CheckoutRequest{Email: "first@example.com"})
	require.NoError(t, err)

	// 4. 支付失败回调：库存回到可售池
	verifier.event = &port.PaymentEvent{ID: "evt_1", Kind: port.EventPaymentFailed, IntentID: "pi_" + checkout.OrderID}
	require.NoError(t, reconciler.HandleWebhook(ctx, []byte("{}"), "sig"))
	assert.Equal(t, domain.OrderFailed, orders.get(reserved.OrderID).Status)

	// 5. 第二位买家现在能预订并完成支付
	second, err := svc.Reserve(ctx, &ReserveRequest{OfferID: "offer-1"})
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, second.OrderID, &CheckoutRequest{Email: "second@example.com"})
	require.NoError(t, err)

	verifier.event = &port.PaymentEvent{ID: "evt_2", Kind: port.EventPaymentSucceeded, IntentID: "pi_" + second.OrderID}
	require.NoError(t, reconciler.HandleWebhook(ctx, []byte("{}"), "sig"))

	// 6. 终态：订单 provisioned，激活码 sold，交付事件带着 ICCID 发出
	assert.Equal(t, domain.OrderProvisioned, orders.get(second.OrderID).Status)
	assert.Equal(t, 1, inventory.countByStatus(domain.UnitSold))
	assert.Equal(t, 0, inventory.countByStatus(domain.UnitAvailable))

	require.Len(t, notifier.events, 1)
	assert.Equal(t, second.OrderID, notifier.events[0].OrderID)
	assert.Equal(t, "second@example.com", notifier.events[0].Email)
	assert.NotEmpty(t, notifier.events[0].ICCID)
}

// dynamicVerifier 允许同一条对账链路先后投递不同事件
type dynamicVerifier struct {
	event *port.PaymentEvent
}

func (v *dynamicVerifier) VerifyAndDecode([]byte, string) (*port.PaymentEvent, error) {
	return v.event, nil
}
