// internal/service/shop/domain/offer.go
package domain

import (
	"math"
	"time"
)

// Esim 代表一个目的地 / 产品（例如 "France"、"Europe 30 pays"）。
// 目录数据由运营侧录入，本服务只读。
type Esim struct {
	ID        string
	Name      string
	Type      string // country | region | global
	Flag      string
	CreatedAt time.Time
}

// DiscountType 区分百分比折扣与定额立减
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount 是挂在某个 Offer 上的一条折扣规则
type Discount struct {
	ID       string
	OfferID  string
	Type     DiscountType
	Value    float64
	Active   bool
	StartsAt *time.Time
	EndsAt   *time.Time
	// Rule 是可选的 CEL 表达式，对 offer 事实求值为 true 时折扣才生效
	Rule string
}

// InWindow 检查折扣在给定时间点是否处于生效窗口内
func (d *Discount) InWindow(now time.Time) bool {
	if !d.Active {
		return false
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return false
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return false
	}
	return true
}

// Offer 是某个目的地下的一个可购套餐。
// 价格以 Offer 为唯一权威来源，永远不信任客户端提交的价格。
type Offer struct {
	ID            string
	EsimID        string
	DataGB        int
	DurationDays  int
	BasePrice     float64
	StripePriceID string // 为空表示该套餐未上架支付，不可售
	CreatedAt     time.Time

	ActiveDiscount *Discount
	AvailableCount int64 // 可售库存数，仅作售罄预检的参考值
}

// Sellable 判断套餐是否可以进入下单流程
func (o *Offer) Sellable() bool {
	return o.StripePriceID != ""
}

// FinalPrice 计算折后价。
// percentage: value=20 表示八折；fixed: value=5 表示立减 5 欧，下限为 0。
// 结果四舍五入到分。
func (o *Offer) FinalPrice() float64 {
	d := o.ActiveDiscount
	if d == nil {
		return o.BasePrice
	}
	if d.Type == DiscountPercentage {
		return math.Round(o.BasePrice*(1-d.Value/100)*100) / 100
	}
	return math.Max(0, math.Round((o.BasePrice-d.Value)*100)/100)
}

// DiscountFact 是折扣规则求值时可引用的事实集合
type DiscountFact struct {
	BasePrice    float64   `json:"base_price"`
	DataGB       int       `json:"data_gb"`
	DurationDays int       `json:"duration_days"`
	Now          time.Time `json:"now"`
}

// RuleEngine 对折扣规则表达式求值。
// 位于领域层，由基础设施层实现（CEL 适配器）。
type RuleEngine interface {
	Evaluate(rule string, fact DiscountFact) (bool, error)
}
