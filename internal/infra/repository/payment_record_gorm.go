package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type PaymentRecordGormRepository struct {
	db *gorm.DB
}

func NewPaymentRecordGormRepository(db *gorm.DB) *PaymentRecordGormRepository {
	return &PaymentRecordGormRepository{db: db}
}

func (r *PaymentRecordGormRepository) Create(ctx context.Context, rec model.PaymentRecord) (model.PaymentRecord, error) {
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return model.PaymentRecord{}, err
	}
	return rec, nil
}

func (r *PaymentRecordGormRepository) FindByReferenceCode(ctx context.Context, referenceCode string) (model.PaymentRecord, error) {
	var rec model.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("reference_code = ?", referenceCode).
		First(&rec).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PaymentRecord{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PaymentRecord{}, err
	}
	return rec, nil
}

func (r *PaymentRecordGormRepository) FindByTransactionID(ctx context.Context, transactionID string) (model.PaymentRecord, error) {
	var rec model.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id desc").
		First(&rec).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PaymentRecord{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PaymentRecord{}, err
	}
	return rec, nil
}

func (r *PaymentRecordGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.PaymentRecord, error) {
	var recs []model.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&recs).Error
	if err != nil {
		return []model.PaymentRecord{}, err
	}
	return recs, nil
}

// 行の置き換えはせず、渡されたフィールドだけ更新する
func (r *PaymentRecordGormRepository) UpdateByReferenceCode(ctx context.Context, referenceCode string, upd repo.PaymentRecordUpdate) error {
	fields := map[string]interface{}{}
	if upd.Status != nil {
		fields["status"] = *upd.Status
	}
	if upd.TransactionID != nil {
		fields["transaction_id"] = *upd.TransactionID
	}
	if upd.ResponseMessage != nil {
		fields["response_message"] = *upd.ResponseMessage
	}
	if len(fields) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).
		Model(&model.PaymentRecord{}).
		Where("reference_code = ?", referenceCode).
		Updates(fields)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PaymentRecordGormRepository) AttachOrder(ctx context.Context, recordID int64, orderID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.PaymentRecord{}).
		Where("id = ?", recordID).
		Update("order_id", orderID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
