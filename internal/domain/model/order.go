package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCanceled  OrderStatus = "CANCELED"

	//決済が拒否された注文。物理削除はしない（監査のため残す）
	OrderStatusFailed OrderStatus = "FAILED"
)

// Ship*は注文作成時点の住所スナップショット。住所帳の行が後で変わっても注文は変わらない。
type Order struct {
	ID             int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64       `gorm:"not null;index;uniqueIndex:idx_orders_user_idem" json:"user_id"`
	Status         OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalPrice     int64       `gorm:"not null" json:"total_price"`
	//キーの一意性はユーザー単位。別ユーザーが同じキーを使っても衝突しない
	IdempotencyKey string `gorm:"type:varchar(255);not null;uniqueIndex:idx_orders_user_idem" json:"-"`

	ShipName       string `gorm:"type:varchar(255);not null" json:"ship_name"`
	ShipPhone      string `gorm:"type:varchar(30)" json:"ship_phone"`
	ShipLine1      string `gorm:"type:varchar(255);not null" json:"ship_line1"`
	ShipLine2      string `gorm:"type:varchar(255)" json:"ship_line2"`
	ShipCity       string `gorm:"type:varchar(255);not null" json:"ship_city"`
	ShipState      string `gorm:"type:varchar(100)" json:"ship_state"`
	ShipPostalCode string `gorm:"type:varchar(20)" json:"ship_postal_code"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
