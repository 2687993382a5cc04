// internal/service/shop/infrastructure/gorm_order_repository.go
package infrastructure

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"ilotel/internal/service/shop/domain"
)

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if err := r.db.WithContext(ctx).Create(toOrderModel(order)).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to create order")
	}
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to find order")
	}
	return toDomainOrder(&model), nil
}

func (r *GormOrderRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("payment_intent_id = ?", intentID).Take(&model).Error
	if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to find order by payment intent")
	}
	return toDomainOrder(&model), nil
}

// UpdateStatus 只写 status 一列。引擎、对账器与清扫器对同一订单的
// 写入是 last-write-wins，幂等的库存操作保证了竞态下不会丢库存。
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	err := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ?", id).
		Update("status", string(status)).Error
	return pkgerrors.Wrap(err, "failed to update order status")
}

// AttachCheckout 写入买家邮箱与支付引用
func (r *GormOrderRepository) AttachCheckout(ctx context.Context, id, email, intentID string) error {
	err := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email":             email,
			"payment_intent_id": intentID,
		}).Error
	return pkgerrors.Wrap(err, "failed to attach checkout info")
}

// Delete 物理删除订单。只允许用于创建后锁定库存失败的窄窗口，
// WHERE 子查询兜底拒绝删除任何已经关联过库存行的订单。
func (r *GormOrderRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND NOT EXISTS (SELECT 1 FROM esim_inventory WHERE esim_inventory.order_id = orders.id)", id).
		Delete(&OrderModel{}).Error
	return pkgerrors.Wrap(err, "failed to delete order")
}

// FindExpiredPending 找出可被清扫的订单：pending、窗口已过、未进入支付
func (r *GormOrderRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_intent_id IS NULL AND reserved_until < ?", string(domain.OrderPending), now).
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to query expired reservations")
	}
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, toDomainOrder(&models[i]))
	}
	return orders, nil
}
