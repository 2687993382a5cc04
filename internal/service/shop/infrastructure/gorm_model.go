// internal/service/shop/infrastructure/gorm_model.go
package infrastructure

import (
	"database/sql"
	"time"
)

// EsimModel 对应数据库中的 esims 表
type EsimModel struct {
	ID        string `gorm:"primaryKey;type:char(36)"`
	Name      string
	Type      string
	Flag      string
	CreatedAt time.Time
}

func (EsimModel) TableName() string { return "esims" }

// OfferModel 对应数据库中的 offers 表
type OfferModel struct {
	ID            string `gorm:"primaryKey;type:char(36)"`
	EsimID        string `gorm:"index"`
	DataGB        int    `gorm:"column:data_gb"`
	DurationDays  int
	BasePrice     float64 `gorm:"type:decimal(10,2)"`
	StripePriceID sql.NullString
	CreatedAt     time.Time

	Discounts []DiscountModel `gorm:"foreignKey:OfferID"`
}

func (OfferModel) TableName() string { return "offers" }

// DiscountModel 对应数据库中的 discounts 表
type DiscountModel struct {
	ID       string `gorm:"primaryKey;type:char(36)"`
	OfferID  string `gorm:"index"`
	Type     string
	Value    float64 `gorm:"type:decimal(10,2)"`
	Active   bool
	StartsAt sql.NullTime
	EndsAt   sql.NullTime
	Rule     string `gorm:"type:text"`
}

func (DiscountModel) TableName() string { return "discounts" }

// InventoryUnitModel 对应数据库中的 esim_inventory 表。
// status 列上有索引，claim 查询按 (esim_id, status) 命中。
type InventoryUnitModel struct {
	ID         string `gorm:"primaryKey;type:char(36)"`
	EsimID     string `gorm:"index:idx_esim_status"`
	ICCID      string `gorm:"column:iccid;uniqueIndex"`
	Status     string `gorm:"index:idx_esim_status"`
	OrderID    sql.NullString `gorm:"index"`
	ReservedAt sql.NullTime
	SoldAt     sql.NullTime
}

func (InventoryUnitModel) TableName() string { return "esim_inventory" }

// OrderModel 对应数据库中的 orders 表
type OrderModel struct {
	ID              string `gorm:"primaryKey;type:char(36)"`
	OfferID         string `gorm:"index"`
	FinalPrice      float64 `gorm:"type:decimal(10,2)"`
	DiscountID      sql.NullString
	Email           sql.NullString
	PaymentIntentID sql.NullString `gorm:"uniqueIndex"`
	ReservedUntil   time.Time      `gorm:"index"`
	Status          string         `gorm:"index"`
	CreatedAt       time.Time
}

func (OrderModel) TableName() string { return "orders" }
