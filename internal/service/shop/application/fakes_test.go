// internal/service/shop/application/fakes_test.go
package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ilotel/internal/service/shop/domain"
	"ilotel/internal/service/shop/domain/port"
)

// memOrderRepo 是 OrderRepository 的进程内实现，供用例测试使用
type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order

	failCreate error
	failAttach error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (r *memOrderRepo) FindByPaymentIntentID(_ context.Context, intentID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.PaymentIntentID == intentID {
			cp := *order
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order, ok := r.orders[id]; ok {
		order.Status = status
	}
	return nil
}

func (r *memOrderRepo) AttachCheckout(_ context.Context, id, email, intentID string) error {
	if r.failAttach != nil {
		return r.failAttach
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if order, ok := r.orders[id]; ok {
		order.Email = email
		order.PaymentIntentID = intentID
	}
	return nil
}

func (r *memOrderRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
	return nil
}

func (r *memOrderRepo) FindExpiredPending(_ context.Context, now time.Time) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []*domain.Order
	for _, order := range r.orders {
		if order.Status == domain.OrderPending && order.PaymentIntentID == "" && order.ReservedUntil.Before(now) {
			cp := *order
			expired = append(expired, &cp)
		}
	}
	return expired, nil
}

func (r *memOrderRepo) get(id string) *domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id]
}

func (r *memOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// memInventoryRepo 复刻库存台账的幂等语义：
// Confirm / Release 只作用于 reserved 行，不命中时是 no-op。
type memInventoryRepo struct {
	mu    sync.Mutex
	units []*domain.InventoryUnit

	failClaim error
}

func newMemInventoryRepo(esimID string, available int) *memInventoryRepo {
	repo := &memInventoryRepo{}
	for i := 0; i < available; i++ {
		repo.units = append(repo.units, &domain.InventoryUnit{
			ID:     fmt.Sprintf("unit-%03d", i),
			EsimID: esimID,
			ICCID:  fmt.Sprintf("893301%08d", i),
			Status: domain.UnitAvailable,
		})
	}
	return repo
}

func (r *memInventoryRepo) ClaimOneAvailable(_ context.Context, esimID, orderID string) (*domain.InventoryUnit, error) {
	if r.failClaim != nil {
		return nil, r.failClaim
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, unit := range r.units {
		if unit.EsimID == esimID && unit.Status == domain.UnitAvailable {
			now := time.Now()
			unit.Status = domain.UnitReserved
			unit.OrderID = orderID
			unit.ReservedAt = &now
			cp := *unit
			return &cp, nil
		}
	}
	return nil, domain.ErrStockExhausted
}

func (r *memInventoryRepo) Confirm(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, unit := range r.units {
		if unit.OrderID == orderID && unit.Status == domain.UnitReserved {
			now := time.Now()
			unit.Status = domain.UnitSold
			unit.SoldAt = &now
		}
	}
	return nil
}

func (r *memInventoryRepo) Release(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, unit := range r.units {
		if unit.OrderID == orderID && unit.Status == domain.UnitReserved {
			unit.Status = domain.UnitAvailable
			unit.OrderID = ""
			unit.ReservedAt = nil
		}
	}
	return nil
}

func (r *memInventoryRepo) FindByOrderID(_ context.Context, orderID string) (*domain.InventoryUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, unit := range r.units {
		if unit.OrderID == orderID {
			cp := *unit
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memInventoryRepo) countByStatus(status domain.InventoryStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, unit := range r.units {
		if unit.Status == status {
			n++
		}
	}
	return n
}

type memOfferRepo struct {
	offers map[string]*domain.Offer
}

func (r *memOfferRepo) FindByID(_ context.Context, id string) (*domain.Offer, error) {
	offer, ok := r.offers[id]
	if !ok {
		return nil, domain.ErrOfferNotFound
	}
	return offer, nil
}

func (r *memOfferRepo) FindByEsimID(_ context.Context, esimID string) ([]*domain.Offer, error) {
	var out []*domain.Offer
	for _, offer := range r.offers {
		if offer.EsimID == esimID {
			out = append(out, offer)
		}
	}
	return out, nil
}

type memEsimRepo struct {
	esims map[string]*domain.Esim
}

func (r *memEsimRepo) FindAll(_ context.Context) ([]*domain.Esim, error) {
	var out []*domain.Esim
	for _, esim := range r.esims {
		out = append(out, esim)
	}
	return out, nil
}

func (r *memEsimRepo) FindByID(_ context.Context, id string) (*domain.Esim, error) {
	esim, ok := r.esims[id]
	if !ok {
		return nil, domain.ErrEsimNotFound
	}
	return esim, nil
}

// stubPayments 记录调用并返回可配置的结果
type stubPayments struct {
	mu         sync.Mutex
	created    []string // 传入的 orderID
	cancelled  []string // 传入的 intentID
	failCreate error
	failCancel error
}

func (p *stubPayments) CreateTransaction(_ context.Context, email string, amount int64, orderID string) (*port.PaymentSession, error) {
	if p.failCreate != nil {
		return nil, p.failCreate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, orderID)
	return &port.PaymentSession{
		IntentID:     "pi_" + orderID,
		CustomerID:   "cus_test",
		EphemeralKey: "ek_test",
		ClientSecret: "pi_secret_test",
	}, nil
}

func (p *stubPayments) CancelTransaction(_ context.Context, intentID string) error {
	p.mu.Lock()
	p.cancelled = append(p.cancelled, intentID)
	p.mu.Unlock()
	return p.failCancel
}

// stubVerifier 绕过真实签名，按 payload 内容直接返回事件
type stubVerifier struct {
	event *port.PaymentEvent
	err   error
}

func (v *stubVerifier) VerifyAndDecode(_ []byte, _ string) (*port.PaymentEvent, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.event, nil
}

type stubNotifier struct {
	mu     sync.Mutex
	events []*port.FulfillmentEvent
	err    error
}

func (n *stubNotifier) PublishProvisioned(_ context.Context, event *port.FulfillmentEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}
