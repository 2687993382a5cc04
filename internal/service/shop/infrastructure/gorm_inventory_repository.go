// internal/service/shop/infrastructure/gorm_inventory_repository.go
package infrastructure

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ilotel/internal/pkg/logger"
	"ilotel/internal/service/shop/domain"
)

// GormInventoryRepository 是 InventoryRepository 的 GORM 实现。
// 库存台账的全部状态迁移集中在这里。
type GormInventoryRepository struct {
	db *gorm.DB
}

func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// ClaimOneAvailable 在一个事务内完成"选行 + 锁定"。
// SELECT ... FOR UPDATE SKIP LOCKED 保证任意并发下同一行至多一个认领者：
// 撞上别人正在锁定的行时直接跳过它选下一行，没有锁队列。
// 扫不到行即售罄，返回 domain.ErrStockExhausted。
func (r *GormInventoryRepository) ClaimOneAvailable(ctx context.Context, esimID, orderID string) (*domain.InventoryUnit, error) {
	var model InventoryUnitModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("esim_id = ? AND status = ?", esimID, string(domain.UnitAvailable)).
			Order("id").
			Limit(1).
			Take(&model).Error; err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":      string(domain.UnitReserved),
			"order_id":    orderID,
			"reserved_at": now,
		}
		if err := tx.Model(&InventoryUnitModel{}).Where("id = ?", model.ID).Updates(updates).Error; err != nil {
			return err
		}

		model.Status = string(domain.UnitReserved)
		model.OrderID.String, model.OrderID.Valid = orderID, true
		model.ReservedAt.Time, model.ReservedAt.Valid = now, true
		return nil
	})
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStockExhausted
		}
		return nil, pkgerrors.Wrap(err, "claim transaction failed")
	}

	return toDomainUnit(&model), nil
}

// Confirm 把订单锁定的行置为 sold。
// WHERE 条件同时约束 order_id 与 reserved 状态，天然幂等：
// 已经 sold 或没有 reserved 行时影响行数为 0，记日志但不报错。
func (r *GormInventoryRepository) Confirm(ctx context.Context, orderID string) error {
	result := r.db.WithContext(ctx).
		Model(&InventoryUnitModel{}).
		Where("order_id = ? AND status = ?", orderID, string(domain.UnitReserved)).
		Updates(map[string]interface{}{
			"status":  string(domain.UnitSold),
			"sold_at": time.Now(),
		})
	if result.Error != nil {
		return pkgerrors.Wrap(result.Error, "failed to confirm inventory unit")
	}
	if result.RowsAffected == 0 {
		logger.Ctx(ctx).Info().Str("order_id", orderID).
			Msg("confirm was a no-op, unit already sold or never reserved")
	}
	return nil
}

// Release 把订单锁定的行放回可售池。与 Confirm 同样的幂等结构。
func (r *GormInventoryRepository) Release(ctx context.Context, orderID string) error {
	result := r.db.WithContext(ctx).
		Model(&InventoryUnitModel{}).
		Where("order_id = ? AND status = ?", orderID, string(domain.UnitReserved)).
		Updates(map[string]interface{}{
			"status":      string(domain.UnitAvailable),
			"order_id":    nil,
			"reserved_at": nil,
		})
	if result.Error != nil {
		return pkgerrors.Wrap(result.Error, "failed to release inventory unit")
	}
	if result.RowsAffected == 0 {
		logger.Ctx(ctx).Debug().Str("order_id", orderID).
			Msg("release was a no-op, unit not reserved for this order")
	}
	return nil
}

// FindByOrderID 查询订单关联的库存行
func (r *GormInventoryRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.InventoryUnit, error) {
	var model InventoryUnitModel
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Take(&model).Error
	if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to find inventory unit by order")
	}
	return toDomainUnit(&model), nil
}
