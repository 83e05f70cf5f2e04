package usecase

import (
	"context"
	"errors"
	"log"
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/gateway/payu"
	repo "storefront/internal/repository"
)

// PaymentUsecase はゲートウェイからの非同期通知(webhook)と決済記録の照会。
type PaymentUsecase struct {
	tx       repo.TransactionManager
	payments repo.PaymentRecordRepository
	orders   repo.OrderRepository
}

func NewPaymentUsecase(tx repo.TransactionManager, payments repo.PaymentRecordRepository, orders repo.OrderRepository) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, payments: payments, orders: orders}
}

type WebhookInput struct {
	ReferenceCode    string `json:"referenceCode"`
	TransactionState string `json:"transactionState"`
	TransactionID    string `json:"transactionId"`
	Message          string `json:"responseMessage"`
}

// HandleWebhook は通知を決済記録へ反映し、ひも付く注文の状態も進める。
// 同じ通知の再送は状態が既に一致していれば何もしない。
func (u *PaymentUsecase) HandleWebhook(ctx context.Context, in WebhookInput) error {
	if in.ReferenceCode == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid referenceCode")
	}

	var notified model.PaymentStatus
	switch payu.TransactionState(in.TransactionState) {
	case payu.StateApproved:
		notified = model.PaymentStatusApproved
	case payu.StateDeclined:
		notified = model.PaymentStatusDeclined
	case payu.StateError:
		notified = model.PaymentStatusError
	default:
		return NewHTTPError(http.StatusBadRequest, "unknown transactionState")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rec, err := r.Payments().FindByReferenceCode(ctx, in.ReferenceCode)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//再送。記録を上書きする必要もない
		if rec.Status == notified {
			return nil
		}

		upd := repo.PaymentRecordUpdate{Status: &notified}
		if in.TransactionID != "" {
			upd.TransactionID = &in.TransactionID
		}
		if in.Message != "" {
			upd.ResponseMessage = &in.Message
		}
		if err := r.Payments().UpdateByReferenceCode(ctx, in.ReferenceCode, upd); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//注文が未確定(PENDING)のときだけ進める
		if rec.OrderID == nil {
			return nil
		}
		order, err := r.Orders().FindByID(ctx, *rec.OrderID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				log.Printf("payment webhook: record %s points to missing order %d", in.ReferenceCode, *rec.OrderID)
				return nil
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if order.Status != model.OrderStatusPending {
			return nil
		}

		switch notified {
		case model.PaymentStatusApproved:
			if err := r.Orders().UpdateStatus(ctx, order.ID, model.OrderStatusPaid); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		case model.PaymentStatusDeclined, model.PaymentStatusError:
			//注文は消さずFAILEDへ。引き当て済み在庫は戻す
			if err := r.Orders().UpdateStatus(ctx, order.ID, model.OrderStatusFailed); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			items, err := r.OrderItems().ListByOrderID(ctx, order.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			for _, it := range items {
				if err := r.Stock().Restore(ctx, repo.StockItem{
					ProductID: it.ProductID,
					SizeID:    it.SizeID,
					Quantity:  it.Quantity,
				}); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
		}
		return nil
	})
}

type PaymentRecordOutput struct {
	ID              int64  `json:"id"`
	OrderID         *int64 `json:"order_id,omitempty"`
	Amount          int64  `json:"amount"`
	Method          string `json:"method"`
	ReferenceCode   string `json:"reference_code"`
	TransactionID   string `json:"transaction_id,omitempty"`
	Status          string `json:"status"`
	ResponseMessage string `json:"response_message,omitempty"`
}

// GetByReferenceCode は決済記録1件の照会(管理者向け)。
func (u *PaymentUsecase) GetByReferenceCode(ctx context.Context, referenceCode string) (PaymentRecordOutput, error) {
	rec, err := u.payments.FindByReferenceCode(ctx, referenceCode)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return PaymentRecordOutput{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return PaymentRecordOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toPaymentRecordOutput(rec), nil
}

// ListByOrder は注文にひも付く決済記録の一覧(管理者向け)。
func (u *PaymentUsecase) ListByOrder(ctx context.Context, orderID int64) ([]PaymentRecordOutput, error) {
	recs, err := u.payments.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	out := make([]PaymentRecordOutput, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toPaymentRecordOutput(rec))
	}
	return out, nil
}

func toPaymentRecordOutput(rec model.PaymentRecord) PaymentRecordOutput {
	return PaymentRecordOutput{
		ID:              rec.ID,
		OrderID:         rec.OrderID,
		Amount:          rec.Amount,
		Method:          rec.Method,
		ReferenceCode:   rec.ReferenceCode,
		TransactionID:   rec.TransactionID,
		Status:          string(rec.Status),
		ResponseMessage: rec.ResponseMessage,
	}
}
