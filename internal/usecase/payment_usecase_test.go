package usecase_test

import (
	"context"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type paymentFixture struct {
	tx       *TxManagerMock
	payments *PaymentRecordRepoMock
	orders   *OrderRepoMock
	items    *OrderItemRepoMock
	stock    *StockLedgerMock
	uc       *usecase.PaymentUsecase
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		tx:       new(TxManagerMock),
		payments: new(PaymentRecordRepoMock),
		orders:   new(OrderRepoMock),
		items:    new(OrderItemRepoMock),
		stock:    new(StockLedgerMock),
	}
	f.tx.Repos = &TxReposMock{
		orders:     f.orders,
		orderItems: f.items,
		stock:      f.stock,
		payments:   f.payments,
	}
	f.uc = usecase.NewPaymentUsecase(f.tx, f.payments, f.orders)
	return f
}

func TestWebhook_Approved_MovesPendingOrderToPaid(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	orderID := int64(50)
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.payments.On("FindByReferenceCode", mock.Anything, "ref-1").Return(model.PaymentRecord{
		ID: 99, OrderID: &orderID, ReferenceCode: "ref-1", Status: model.PaymentStatusPending,
	}, nil)
	f.payments.On("UpdateByReferenceCode", mock.Anything, "ref-1", mock.MatchedBy(func(upd repo.PaymentRecordUpdate) bool {
		return upd.Status != nil && *upd.Status == model.PaymentStatusApproved &&
			upd.TransactionID != nil && *upd.TransactionID == "tx-1"
	})).Return(nil)
	f.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{ID: orderID, Status: model.OrderStatusPending}, nil)
	f.orders.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusPaid).Return(nil)

	err := f.uc.HandleWebhook(ctx, usecase.WebhookInput{
		ReferenceCode:    "ref-1",
		TransactionState: "APPROVED",
		TransactionID:    "tx-1",
	})
	assert.NoError(t, err)
	f.orders.AssertExpectations(t)
	f.payments.AssertExpectations(t)
}

func TestWebhook_Declined_FailsOrderAndRestoresStock(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	orderID := int64(50)
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.payments.On("FindByReferenceCode", mock.Anything, "ref-1").Return(model.PaymentRecord{
		ID: 99, OrderID: &orderID, ReferenceCode: "ref-1", Status: model.PaymentStatusPending,
	}, nil)
	f.payments.On("UpdateByReferenceCode", mock.Anything, "ref-1", mock.MatchedBy(func(upd repo.PaymentRecordUpdate) bool {
		return upd.Status != nil && *upd.Status == model.PaymentStatusDeclined
	})).Return(nil)
	f.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{ID: orderID, Status: model.OrderStatusPending}, nil)
	//注文は消さずFAILEDにする
	f.orders.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusFailed).Return(nil)
	f.items.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{
		{OrderID: orderID, ProductID: 1, SizeID: 2, Quantity: 2},
		{OrderID: orderID, ProductID: 4, SizeID: 0, Quantity: 1},
	}, nil)
	f.stock.On("Restore", mock.Anything, repo.StockItem{ProductID: 1, SizeID: 2, Quantity: 2}).Return(nil)
	f.stock.On("Restore", mock.Anything, repo.StockItem{ProductID: 4, SizeID: 0, Quantity: 1}).Return(nil)

	err := f.uc.HandleWebhook(ctx, usecase.WebhookInput{
		ReferenceCode:    "ref-1",
		TransactionState: "DECLINED",
		TransactionID:    "tx-2",
		Message:          "INSUFFICIENT_FUNDS",
	})
	assert.NoError(t, err)
	f.stock.AssertExpectations(t)
	f.orders.AssertExpectations(t)
}

func TestWebhook_Replay_SameState_NoOp(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	orderID := int64(50)
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.payments.On("FindByReferenceCode", mock.Anything, "ref-1").Return(model.PaymentRecord{
		ID: 99, OrderID: &orderID, ReferenceCode: "ref-1", Status: model.PaymentStatusApproved,
	}, nil)

	err := f.uc.HandleWebhook(ctx, usecase.WebhookInput{
		ReferenceCode:    "ref-1",
		TransactionState: "APPROVED",
		TransactionID:    "tx-1",
	})
	assert.NoError(t, err)
	f.payments.AssertNotCalled(t, "UpdateByReferenceCode", mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_NonPendingOrder_RecordUpdatedOrderUntouched(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	orderID := int64(50)
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.payments.On("FindByReferenceCode", mock.Anything, "ref-1").Return(model.PaymentRecord{
		ID: 99, OrderID: &orderID, ReferenceCode: "ref-1", Status: model.PaymentStatusPending,
	}, nil)
	f.payments.On("UpdateByReferenceCode", mock.Anything, "ref-1", mock.Anything).Return(nil)
	//既にSHIPPEDまで進んだ注文はwebhookで動かさない
	f.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{ID: orderID, Status: model.OrderStatusShipped}, nil)

	err := f.uc.HandleWebhook(ctx, usecase.WebhookInput{
		ReferenceCode:    "ref-1",
		TransactionState: "DECLINED",
	})
	assert.NoError(t, err)
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	f.stock.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything)
}

func TestWebhook_UnknownReference_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.payments.On("FindByReferenceCode", mock.Anything, "nope").Return(model.PaymentRecord{}, repo.ErrNotFound)

	err := f.uc.HandleWebhook(ctx, usecase.WebhookInput{
		ReferenceCode:    "nope",
		TransactionState: "APPROVED",
	})
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

func TestWebhook_UnknownState_BadRequest(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	err := f.uc.HandleWebhook(ctx, usecase.WebhookInput{
		ReferenceCode:    "ref-1",
		TransactionState: "MAYBE",
	})
	assertErrContains(t, err, "unknown transactionState")
}
