package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// ステータス更新で書き換えるフィールド。nilは変更なし。
type PaymentRecordUpdate struct {
	Status          *model.PaymentStatus
	TransactionID   *string
	ResponseMessage *string
}

// 決済試行の追記型ログ。行の置き換えはせず更新する。
type PaymentRecordRepository interface {
	Create(ctx context.Context, rec model.PaymentRecord) (model.PaymentRecord, error)
	FindByReferenceCode(ctx context.Context, referenceCode string) (model.PaymentRecord, error)
	FindByTransactionID(ctx context.Context, transactionID string) (model.PaymentRecord, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.PaymentRecord, error)
	UpdateByReferenceCode(ctx context.Context, referenceCode string, upd PaymentRecordUpdate) error
	//注文作成後にひも付ける
	AttachOrder(ctx context.Context, recordID int64, orderID int64) error
}
