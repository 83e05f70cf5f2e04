package model

import "time"

// 配送先住所（住所帳）
// 注文作成時にフィールドをOrder側へコピーする（スナップショット）
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	//宛名
	Name string `gorm:"type:varchar(255);not null" json:"name"`

	//電話番号
	Phone string `gorm:"type:varchar(30)" json:"phone"`

	//番地など
	Line1 string `gorm:"type:varchar(255);not null" json:"line1"`

	//建物名など
	Line2 string `gorm:"type:varchar(255)" json:"line2"`

	//市区町村
	City string `gorm:"type:varchar(255);not null" json:"city"`

	//州・県
	State string `gorm:"type:varchar(100)" json:"state"`

	//郵便番号
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
