// internal/service/shop/application/reconciler.go
package application

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ilotel/internal/pkg/logger"
	"ilotel/internal/service/shop/domain"
	"ilotel/internal/service/shop/domain/port"
)

// PaymentReconciler 把支付方的异步回调事件收敛到订单与库存的最终状态。
// 事件是 at-least-once 且可能乱序到达的，因此每一步落账都必须幂等。
type PaymentReconciler struct {
	orders    domain.OrderRepository
	inventory domain.InventoryRepository
	verifier  port.WebhookVerifier
	notifier  port.FulfillmentProducer // 可为 nil，表示未接入下游交付
	tracer    trace.Tracer
}

func NewPaymentReconciler(
	orders domain.OrderRepository,
	inventory domain.InventoryRepository,
	verifier port.WebhookVerifier,
	notifier port.FulfillmentProducer,
	tracer trace.Tracer,
) *PaymentReconciler {
	return &PaymentReconciler{
		orders:    orders,
		inventory: inventory,
		verifier:  verifier,
		notifier:  notifier,
		tracer:    tracer,
	}
}

// HandleWebhook 校验并应用一条原始回调。
// 签名不可信时返回 domain.ErrInvalidSignature，且保证没有任何状态被改动。
func (r *PaymentReconciler) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	ctx, span := r.tracer.Start(ctx, "reconciler.HandleWebhook", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	event, err := r.verifier.VerifyAndDecode(payload, signatureHeader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook signature verification failed")
		return err
	}

	span.SetAttributes(
		attribute.String("payment.event_kind", string(event.Kind)),
		attribute.String("payment.intent_id", event.IntentID),
	)

	switch event.Kind {
	case port.EventPaymentSucceeded:
		return r.applySuccess(ctx, event)
	case port.EventPaymentFailed:
		return r.applyFailure(ctx, event)
	default:
		// 未识别的事件种类静默忽略
		span.AddEvent("event kind ignored")
		return nil
	}
}

// applySuccess 处理支付成功：reserved → sold，订单 → provisioned。
// 两步都幂等，同一事件的重复投递是安全的 no-op。
func (r *PaymentReconciler) applySuccess(ctx context.Context, event *port.PaymentEvent) error {
	order, err := r.orders.FindByPaymentIntentID(ctx, event.IntentID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		// 找不到订单：记日志后丢弃。支付方不会为此重发，重试也无意义。
		logger.Ctx(ctx).Error().
			Str("intent_id", event.IntentID).
			Msg("no order for succeeded payment intent, dropping event")
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.inventory.Confirm(ctx, order.ID); err != nil {
		return err
	}
	if err := r.orders.UpdateStatus(ctx, order.ID, domain.OrderProvisioned); err != nil {
		return err
	}
	logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("order provisioned")

	r.publishFulfillment(ctx, order)
	return nil
}

// applyFailure 处理支付失败：释放库存，订单置为 failed
func (r *PaymentReconciler) applyFailure(ctx context.Context, event *port.PaymentEvent) error {
	order, err := r.orders.FindByPaymentIntentID(ctx, event.IntentID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		logger.Ctx(ctx).Warn().
			Str("intent_id", event.IntentID).
			Msg("no order for failed payment intent, dropping event")
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.inventory.Release(ctx, order.ID); err != nil {
		return err
	}
	if err := r.orders.UpdateStatus(ctx, order.ID, domain.OrderFailed); err != nil {
		return err
	}
	logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("order failed after payment failure")
	return nil
}

// publishFulfillment 把已交付订单推给下游。失败只记日志，
// 绝不让 webhook 返回非 200 触发支付方的重发风暴。
func (r *PaymentReconciler) publishFulfillment(ctx context.Context, order *domain.Order) {
	if r.notifier == nil {
		return
	}
	event := &port.FulfillmentEvent{OrderID: order.ID, Email: order.Email}
	if unit, err := r.inventory.FindByOrderID(ctx, order.ID); err == nil && unit != nil {
		event.ICCID = unit.ICCID
	}
	if err := r.notifier.PublishProvisioned(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", order.ID).
			Msg("failed to publish fulfillment event")
	}
}
