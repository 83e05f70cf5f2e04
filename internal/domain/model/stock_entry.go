package model

import "time"

// (商品, サイズ)ごとの在庫行。
// Quantityは購入経路では条件付きUPDATEでしか減らないので負にならない。
type StockEntry struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"not null;index;uniqueIndex:idx_stock_product_size" json:"product_id"`
	SizeID    int64     `gorm:"not null;uniqueIndex:idx_stock_product_size" json:"size_id"`
	Quantity  int64     `gorm:"not null;default:0" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
