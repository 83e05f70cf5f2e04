package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusApproved PaymentStatus = "APPROVED"
	PaymentStatusDeclined PaymentStatus = "DECLINED"
	PaymentStatusError    PaymentStatus = "ERROR"
)

// 決済試行の記録。
// リダイレクト型の決済では注文より先に作られることがあるのでOrderIDはnullable。
// ReferenceCodeは加盟店側で採番してゲートウェイと突き合わせるコード。
type PaymentRecord struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID *int64 `gorm:"index" json:"order_id"`

	Amount int64  `gorm:"not null" json:"amount"`
	Method string `gorm:"type:varchar(50);not null" json:"method"`

	ReferenceCode string `gorm:"type:varchar(100);not null;uniqueIndex" json:"reference_code"`

	//ゲートウェイ側の取引ID（webhookで埋まる場合あり）
	TransactionID string `gorm:"type:varchar(100);index" json:"transaction_id"`

	Status PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	//ゲートウェイの応答メッセージ（拒否理由など）
	ResponseMessage string `gorm:"type:varchar(255)" json:"response_message"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
