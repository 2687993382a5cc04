// internal/service/shop/application/service.go
package application

import (
	"context"
	"math"
	"net/mail"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ilotel/internal/pkg/logger"
	"ilotel/internal/service/shop/domain"
	"ilotel/internal/service/shop/domain/port"
)

// ShopService 编排预订 / 支付 / 取消的完整业务流程。
// 它只依赖领域接口与端口，不感知任何具体存储或支付方。
type ShopService struct {
	orders    domain.OrderRepository
	inventory domain.InventoryRepository
	offers    domain.OfferRepository
	esims     domain.EsimRepository
	payments  port.PaymentProvider
	tracer    trace.Tracer

	// reservationWindow 是 reserve 后留给买家的支付准备时间
	reservationWindow time.Duration
}

func NewShopService(
	orders domain.OrderRepository,
	inventory domain.InventoryRepository,
	offers domain.OfferRepository,
	esims domain.EsimRepository,
	payments port.PaymentProvider,
	tracer trace.Tracer,
	reservationWindow time.Duration,
) *ShopService {
	return &ShopService{
		orders:            orders,
		inventory:         inventory,
		offers:            offers,
		esims:             esims,
		payments:          payments,
		tracer:            tracer,
		reservationWindow: reservationWindow,
	}
}

// Reserve 为一个套餐锁定一张激活码并创建 pending 订单。
// 价格与折扣永远从权威 Offer 上重新读取，不接受调用方传入。
func (s *ShopService) Reserve(ctx context.Context, req *ReserveRequest) (*ReserveResponse, error) {
	ctx, span := s.tracer.Start(ctx, "shop.Reserve")
	defer span.End()
	span.SetAttributes(attribute.String("offer.id", req.OfferID))

	offer, err := s.offers.FindByID(ctx, req.OfferID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !offer.Sellable() {
		return nil, domain.ErrOfferNotSellable
	}
	// 计数只是售罄预检，真正的守卫是下面的原子锁定
	if offer.AvailableCount == 0 {
		return nil, domain.ErrStockExhausted
	}

	order := domain.NewOrder(offer, s.reservationWindow)
	if err := s.orders.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create order")
		return nil, err
	}

	unit, err := s.inventory.ClaimOneAvailable(ctx, offer.EsimID, order.ID)
	if err != nil {
		// 订单还没有关联过任何库存行，直接删掉，不留悬挂记录
		if delErr := s.orders.Delete(ctx, order.ID); delErr != nil {
			logger.Ctx(ctx).Error().Err(delErr).Str("order_id", order.ID).
				Msg("failed to delete order after claim failure")
		}
		span.RecordError(err)
		return nil, err
	}

	span.AddEvent("inventory unit claimed")
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("inventory.unit_id", unit.ID),
	)
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("offer_id", offer.ID).
		Time("expires_at", order.ReservedUntil).
		Msg("reservation created")

	return &ReserveResponse{OrderID: order.ID, ExpiresAt: order.ReservedUntil}, nil
}

// Checkout 把一笔预订升级为可支付交易。
// 只写买家信息与支付引用，不动库存也不动订单状态。
func (s *ShopService) Checkout(ctx context.Context, orderID string, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "shop.Checkout")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, domain.ErrInvalidContact
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !order.IsPending() {
		// 已过期 / 已取消 / 已完成
		return nil, domain.ErrOrderNotPending
	}

	amountCents := int64(math.Round(order.FinalPrice * 100))
	session, err := s.payments.CreateTransaction(ctx, req.Email, amountCents, order.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment provider rejected transaction")
		return nil, err
	}

	if err := s.orders.AttachCheckout(ctx, order.ID, req.Email, session.IntentID); err != nil {
		// 交易已开启但没有在订单上落库，尽力取消避免游离的支付单
		if cancelErr := s.payments.CancelTransaction(ctx, session.IntentID); cancelErr != nil {
			logger.Ctx(ctx).Error().Err(cancelErr).Str("intent_id", session.IntentID).
				Msg("failed to cancel orphaned payment transaction")
		}
		span.RecordError(err)
		return nil, err
	}

	span.AddEvent("payment transaction attached")
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("intent_id", session.IntentID).
		Msg("checkout started")

	return &CheckoutResponse{
		OrderID:      order.ID,
		CustomerID:   session.CustomerID,
		EphemeralKey: session.EphemeralKey,
		ClientSecret: session.ClientSecret,
		FinalPrice:   order.FinalPrice,
	}, nil
}

// Cancel 取消一笔 pending 预订并释放库存。
// 与对账器的成功回调竞态是被接受的行为：双方的落账操作都幂等，先到者生效。
func (s *ShopService) Cancel(ctx context.Context, orderID string) (*CancelResponse, error) {
	ctx, span := s.tracer.Start(ctx, "shop.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !order.IsPending() {
		return nil, domain.ErrOrderNotPending
	}

	if err := s.inventory.Release(ctx, order.ID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 对已开启的支付交易做尽力取消；已结算等失败不向上传播
	if order.ReachedCheckout() {
		if err := s.payments.CancelTransaction(ctx, order.PaymentIntentID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Str("order_id", order.ID).
				Str("intent_id", order.PaymentIntentID).
				Msg("best-effort payment cancel failed")
		}
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, domain.OrderFailed); err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("reservation cancelled")
	return &CancelResponse{Success: true}, nil
}

// GetOrder 返回订单详情视图
func (s *ShopService) GetOrder(ctx context.Context, orderID string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "shop.GetOrder")
	defer span.End()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	view := &OrderView{
		OrderID:       order.ID,
		Status:        order.Status,
		FinalPrice:    order.FinalPrice,
		Email:         order.Email,
		ReservedUntil: order.ReservedUntil,
		CreatedAt:     order.CreatedAt,
	}

	if offer, err := s.offers.FindByID(ctx, order.OfferID); err == nil {
		view.Offer = NewOfferView(offer)
	}

	unit, err := s.inventory.FindByOrderID(ctx, order.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	// 激活码只对已交付的订单可见
	if unit != nil && order.Status == domain.OrderProvisioned {
		view.ICCID = unit.ICCID
	}
	return view, nil
}

// ListEsims 返回目录中的全部目的地
func (s *ShopService) ListEsims(ctx context.Context) ([]*domain.Esim, error) {
	ctx, span := s.tracer.Start(ctx, "shop.ListEsims")
	defer span.End()
	return s.esims.FindAll(ctx)
}

// ListOffers 返回某个目的地下的套餐（含折后价与可售数）
func (s *ShopService) ListOffers(ctx context.Context, esimID string) ([]*OfferView, error) {
	ctx, span := s.tracer.Start(ctx, "shop.ListOffers")
	defer span.End()
	span.SetAttributes(attribute.String("esim.id", esimID))

	if _, err := s.esims.FindByID(ctx, esimID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	offers, err := s.offers.FindByEsimID(ctx, esimID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	views := make([]*OfferView, 0, len(offers))
	for _, offer := range offers {
		views = append(views, NewOfferView(offer))
	}
	return views, nil
}
