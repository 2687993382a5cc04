// internal/service/shop/infrastructure/gorm_offer_repository.go
package infrastructure

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"ilotel/internal/pkg/logger"
	"ilotel/internal/service/shop/domain"
)

// GormOfferRepository 提供套餐与目录的只读视图。
// 折扣的生效判定（时间窗口 + 可选 CEL 规则）也在这里完成，
// 领域层拿到的 Offer 已经带好 ActiveDiscount 与 AvailableCount。
type GormOfferRepository struct {
	db    *gorm.DB
	rules domain.RuleEngine
}

func NewGormOfferRepository(db *gorm.DB, rules domain.RuleEngine) *GormOfferRepository {
	return &GormOfferRepository{db: db, rules: rules}
}

func (r *GormOfferRepository) FindByID(ctx context.Context, id string) (*domain.Offer, error) {
	var model OfferModel
	err := r.db.WithContext(ctx).Preload("Discounts").Where("id = ?", id).Take(&model).Error
	if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOfferNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to find offer")
	}
	return r.assemble(ctx, &model)
}

func (r *GormOfferRepository) FindByEsimID(ctx context.Context, esimID string) ([]*domain.Offer, error) {
	var models []OfferModel
	err := r.db.WithContext(ctx).Preload("Discounts").
		Where("esim_id = ?", esimID).
		Order("base_price ASC").
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list offers")
	}
	offers := make([]*domain.Offer, 0, len(models))
	for i := range models {
		offer, err := r.assemble(ctx, &models[i])
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// assemble 组装领域 Offer：计算可售数并挑选生效折扣
func (r *GormOfferRepository) assemble(ctx context.Context, model *OfferModel) (*domain.Offer, error) {
	offer := &domain.Offer{
		ID:            model.ID,
		EsimID:        model.EsimID,
		DataGB:        model.DataGB,
		DurationDays:  model.DurationDays,
		BasePrice:     model.BasePrice,
		StripePriceID: model.StripePriceID.String,
		CreatedAt:     model.CreatedAt,
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&InventoryUnitModel{}).
		Where("esim_id = ? AND status = ?", model.EsimID, string(domain.UnitAvailable)).
		Count(&count).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to count available inventory")
	}
	offer.AvailableCount = count

	offer.ActiveDiscount = r.pickActiveDiscount(ctx, offer, model.Discounts)
	return offer, nil
}

// pickActiveDiscount 返回第一条通过全部生效条件的折扣
func (r *GormOfferRepository) pickActiveDiscount(ctx context.Context, offer *domain.Offer, discounts []DiscountModel) *domain.Discount {
	now := time.Now()
	for i := range discounts {
		d := toDomainDiscount(&discounts[i])
		if !d.InWindow(now) {
			continue
		}
		if d.Rule != "" && r.rules != nil {
			ok, err := r.rules.Evaluate(d.Rule, domain.DiscountFact{
				BasePrice:    offer.BasePrice,
				DataGB:       offer.DataGB,
				DurationDays: offer.DurationDays,
				Now:          now,
			})
			if err != nil {
				// 规则写错不应让套餐不可见，按无折扣处理
				logger.Ctx(ctx).Error().Err(err).Str("discount_id", d.ID).
					Msg("discount rule evaluation failed, skipping discount")
				continue
			}
			if !ok {
				continue
			}
		}
		return d
	}
	return nil
}

// GormEsimRepository 提供目录只读视图
type GormEsimRepository struct {
	db *gorm.DB
}

func NewGormEsimRepository(db *gorm.DB) *GormEsimRepository {
	return &GormEsimRepository{db: db}
}

func (r *GormEsimRepository) FindAll(ctx context.Context) ([]*domain.Esim, error) {
	var models []EsimModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list esims")
	}
	esims := make([]*domain.Esim, 0, len(models))
	for i := range models {
		esims = append(esims, toDomainEsim(&models[i]))
	}
	return esims, nil
}

func (r *GormEsimRepository) FindByID(ctx context.Context, id string) (*domain.Esim, error) {
	var model EsimModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEsimNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to find esim")
	}
	return toDomainEsim(&model), nil
}
