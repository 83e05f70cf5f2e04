package usecase_test

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type adminOrderFixture struct {
	tx     *TxManagerMock
	orders *OrderRepoMock
	items  *OrderItemRepoMock
	stock  *StockLedgerMock
	audits *AuditRepoMock
	uc     *usecase.AdminOrderUsecase
}

func newAdminOrderFixture() *adminOrderFixture {
	f := &adminOrderFixture{
		tx:     new(TxManagerMock),
		orders: new(OrderRepoMock),
		items:  new(OrderItemRepoMock),
		stock:  new(StockLedgerMock),
		audits: new(AuditRepoMock),
	}
	f.tx.Repos = &TxReposMock{
		orders:     f.orders,
		orderItems: f.items,
		stock:      f.stock,
	}
	f.uc = usecase.NewAdminOrderUsecase(f.tx, f.orders, f.items, f.audits)
	return f
}

func TestAdminOrder_List_InvalidStatusRejected(t *testing.T) {
	f := newAdminOrderFixture()

	_, err := f.uc.List(context.Background(), repo.AdminOrderListFilter{Status: "NOT_A_STATUS"})
	assertErrContains(t, err, "invalid status")
	f.orders.AssertNotCalled(t, "ListAdmin", mock.Anything, mock.Anything)
}

func TestAdminOrder_List_DefaultsPageAndLimit(t *testing.T) {
	f := newAdminOrderFixture()

	f.orders.On("ListAdmin", mock.Anything, mock.MatchedBy(func(in repo.AdminOrderListFilter) bool {
		return in.Page == 1 && in.Limit == 50
	})).Return([]model.Order{{ID: 10, Status: model.OrderStatusPaid}}, int64(1), nil)

	out, err := f.uc.List(context.Background(), repo.AdminOrderListFilter{})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	assert.Len(t, out.Items, 1)
	f.orders.AssertExpectations(t)
}

func TestAdminOrder_UpdateStatus_PaidToShipped(t *testing.T) {
	f := newAdminOrderFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByID", mock.Anything, int64(50)).Return(model.Order{ID: 50, Status: model.OrderStatusPaid}, nil)
	f.orders.On("UpdateStatus", mock.Anything, int64(50), model.OrderStatusShipped).Return(nil)
	f.items.On("ListByOrderID", mock.Anything, int64(50)).Return([]model.OrderItem{}, nil)
	f.audits.On("Create", mock.Anything, mock.MatchedBy(func(a model.AuditLog) bool {
		return a.Action == model.AuditActionUpdateOrderStatus && a.ResourceID == 50 && a.ActorUserID == 9
	})).Return(nil)

	out, err := f.uc.UpdateStatus(context.Background(), 9, 50, model.OrderStatusShipped)
	assert.NoError(t, err)
	assert.Equal(t, "SHIPPED", out.Status)
	f.audits.AssertExpectations(t)
}

func TestAdminOrder_UpdateStatus_CancelRestoresStock(t *testing.T) {
	f := newAdminOrderFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByID", mock.Anything, int64(50)).Return(model.Order{ID: 50, Status: model.OrderStatusPaid}, nil)
	f.orders.On("UpdateStatus", mock.Anything, int64(50), model.OrderStatusCanceled).Return(nil)
	f.items.On("ListByOrderID", mock.Anything, int64(50)).Return([]model.OrderItem{
		{OrderID: 50, ProductID: 1, SizeID: 2, Quantity: 2},
	}, nil)
	f.stock.On("Restore", mock.Anything, repo.StockItem{ProductID: 1, SizeID: 2, Quantity: 2}).Return(nil)
	f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.uc.UpdateStatus(context.Background(), 9, 50, model.OrderStatusCanceled)
	assert.NoError(t, err)
	f.stock.AssertExpectations(t)
}

func TestAdminOrder_UpdateStatus_TerminalStateRejected(t *testing.T) {
	f := newAdminOrderFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByID", mock.Anything, int64(50)).Return(model.Order{ID: 50, Status: model.OrderStatusDelivered}, nil)

	_, err := f.uc.UpdateStatus(context.Background(), 9, 50, model.OrderStatusCanceled)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 409, he.Status)
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminOrder_UpdateStatus_SameStatusIsIdempotent(t *testing.T) {
	f := newAdminOrderFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByID", mock.Anything, int64(50)).Return(model.Order{ID: 50, Status: model.OrderStatusShipped}, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(50)).Return([]model.OrderItem{}, nil)

	out, err := f.uc.UpdateStatus(context.Background(), 9, 50, model.OrderStatusShipped)
	assert.NoError(t, err)
	assert.Equal(t, "SHIPPED", out.Status)
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	f.audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminOrder_SalesStats_SumsPaidAndLater(t *testing.T) {
	f := newAdminOrderFixture()

	f.orders.On("SalesStats", mock.Anything, (*time.Time)(nil), (*time.Time)(nil)).Return([]repo.SalesStatRow{
		{Status: "PENDING", Count: 3, Revenue: 900},
		{Status: "PAID", Count: 2, Revenue: 2000},
		{Status: "SHIPPED", Count: 1, Revenue: 700},
		{Status: "DELIVERED", Count: 1, Revenue: 300},
		{Status: "FAILED", Count: 1, Revenue: 500},
	}, nil)

	out, err := f.uc.SalesStats(context.Background(), nil, nil)
	assert.NoError(t, err)
	assert.Len(t, out.Rows, 5)
	//PENDINGとFAILEDは売上に数えない
	assert.Equal(t, int64(3000), out.TotalRevenue)
}

func TestAdminOrder_SalesStats_InvalidRange(t *testing.T) {
	f := newAdminOrderFixture()

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-24 * time.Hour)
	_, err := f.uc.SalesStats(context.Background(), &from, &to)
	assertErrContains(t, err, "invalid range")
}
