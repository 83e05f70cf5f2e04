package model

import "time"

// サイズマスタ（S/M/Lなど）
type Size struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Label     string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"label"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
