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

type orderFixture struct {
	tx        *TxManagerMock
	addresses *AddressRepoMock
	orders    *OrderRepoMock
	items     *OrderItemRepoMock
	carts     *CartRepoMock
	cartItems *CartItemRepoMock
	stock     *StockLedgerMock
	products  *ProductRepoMock
	sizes     *SizeRepoMock
	payments  *PaymentRecordRepoMock
	uc        *usecase.OrderUsecase
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		tx:        new(TxManagerMock),
		addresses: new(AddressRepoMock),
		orders:    new(OrderRepoMock),
		items:     new(OrderItemRepoMock),
		carts:     new(CartRepoMock),
		cartItems: new(CartItemRepoMock),
		stock:     new(StockLedgerMock),
		products:  new(ProductRepoMock),
		sizes:     new(SizeRepoMock),
		payments:  new(PaymentRecordRepoMock),
	}
	f.tx.Repos = &TxReposMock{
		orders:     f.orders,
		orderItems: f.items,
		carts:      f.carts,
		cartItems:  f.cartItems,
		stock:      f.stock,
		products:   f.products,
		sizes:      f.sizes,
		payments:   f.payments,
	}
	f.uc = usecase.NewOrderUsecase(f.tx, f.addresses)
	return f
}

func TestPlaceOrder_CreatesPendingOrderWithPaymentRecord(t *testing.T) {
	f := newOrderFixture()

	f.addresses.On("FindByID", mock.Anything, int64(7)).Return(model.Address{ID: 7, UserID: 1, Name: "Taro", City: "Osaka"}, nil)
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil)
	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1, Status: model.CartStatusActive}, nil)
	f.cartItems.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 30, CartID: 3, ProductID: 1, SizeID: 2, Quantity: 2, UnitPriceSnapshot: 500},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Name: "Shirt", Price: 500, IsActive: true}, nil)
	f.stock.On("Decrement", mock.Anything, repo.StockItem{ProductID: 1, SizeID: 2, Quantity: 2}).Return(true, nil)
	f.sizes.On("FindByID", mock.Anything, int64(2)).Return(model.Size{ID: 2, Label: "M"}, nil)
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Status == model.OrderStatusPending && o.TotalPrice == 1000 && o.IdempotencyKey == "key-1"
	})).Return(int64(50), nil)
	f.items.On("CreateBulk", mock.Anything, int64(50), mock.Anything).Return(nil)
	f.carts.On("UpdateStatus", mock.Anything, int64(3), model.CartStatusCheckedOut).Return(nil)
	f.carts.On("Clear", mock.Anything, int64(3)).Return(nil)
	f.payments.On("Create", mock.Anything, mock.MatchedBy(func(rec model.PaymentRecord) bool {
		return rec.OrderID != nil && *rec.OrderID == 50 &&
			rec.Amount == 1000 && rec.Status == model.PaymentStatusPending && rec.ReferenceCode != ""
	})).Return(model.PaymentRecord{ID: 99}, nil)

	out, err := f.uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{
		AddressID:      7,
		IdempotencyKey: "key-1",
		Method:         "BANK_TRANSFER",
	})
	assert.NoError(t, err)
	assert.Equal(t, "PENDING", out.Order.Status)
	assert.Equal(t, int64(1000), out.Order.TotalPrice)
	assert.NotEmpty(t, out.ReferenceCode)
	f.payments.AssertExpectations(t)
}

func TestPlaceOrder_SameKeyReturnsExistingOrder(t *testing.T) {
	f := newOrderFixture()

	f.addresses.On("FindByID", mock.Anything, int64(7)).Return(model.Address{ID: 7, UserID: 1}, nil)
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").
		Return(model.Order{ID: 50, UserID: 1, Status: model.OrderStatusPending, TotalPrice: 1000}, true, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(50)).Return([]model.OrderItem{}, nil)
	f.payments.On("ListByOrderID", mock.Anything, int64(50)).Return([]model.PaymentRecord{
		{ID: 99, ReferenceCode: "ref-1", Status: model.PaymentStatusPending},
	}, nil)

	out, err := f.uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{
		AddressID:      7,
		IdempotencyKey: "key-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(50), out.Order.ID)
	assert.Equal(t, "ref-1", out.ReferenceCode)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.stock.AssertNotCalled(t, "Decrement", mock.Anything, mock.Anything)
}

// 注文INSERTが一意制約で負けたら、勝った側の注文を引き直して返す
func TestPlaceOrder_CreateRace_ReturnsExistingOrder(t *testing.T) {
	f := newOrderFixture()

	f.addresses.On("FindByID", mock.Anything, int64(7)).Return(model.Address{ID: 7, UserID: 1}, nil)
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").
		Return(model.Order{}, false, nil).Once()
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").
		Return(model.Order{ID: 50, UserID: 1, Status: model.OrderStatusPending, TotalPrice: 1000}, true, nil).Once()

	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	f.cartItems.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 30, CartID: 3, ProductID: 1, SizeID: 2, Quantity: 2, UnitPriceSnapshot: 500},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Price: 500, IsActive: true}, nil)
	f.sizes.On("FindByID", mock.Anything, int64(2)).Return(model.Size{ID: 2, Label: "M"}, nil)
	f.stock.On("Decrement", mock.Anything, mock.Anything).Return(true, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(int64(0), repo.ErrConflict)

	f.items.On("ListByOrderID", mock.Anything, int64(50)).Return([]model.OrderItem{}, nil)
	f.payments.On("ListByOrderID", mock.Anything, int64(50)).Return([]model.PaymentRecord{
		{ID: 99, ReferenceCode: "ref-1", Status: model.PaymentStatusPending},
	}, nil)

	out, err := f.uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{
		AddressID:      7,
		IdempotencyKey: "key-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(50), out.Order.ID)
	assert.Equal(t, "ref-1", out.ReferenceCode)

	f.orders.AssertNumberOfCalls(t, "FindByIdempotencyKey", 2)
	//負けた側は決済記録を作らない
	f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_OutOfStockRejected(t *testing.T) {
	f := newOrderFixture()

	f.addresses.On("FindByID", mock.Anything, int64(7)).Return(model.Address{ID: 7, UserID: 1}, nil)
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil)
	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	f.cartItems.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 30, CartID: 3, ProductID: 1, SizeID: 2, Quantity: 5, UnitPriceSnapshot: 500},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Price: 500, IsActive: true}, nil)
	f.sizes.On("FindByID", mock.Anything, int64(2)).Return(model.Size{ID: 2, Label: "M"}, nil)
	f.stock.On("Decrement", mock.Anything, mock.Anything).Return(false, nil)

	_, err := f.uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{
		AddressID:      7,
		IdempotencyKey: "key-1",
	})
	assertErrContains(t, err, "out of stock")
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_MissingKeyRejected(t *testing.T) {
	f := newOrderFixture()

	_, err := f.uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{AddressID: 7})
	assertErrContains(t, err, "idempotency_key")
}

func TestGetMyOrderDetail_OtherUsersOrder_NotFound(t *testing.T) {
	f := newOrderFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByID", mock.Anything, int64(50)).Return(model.Order{ID: 50, UserID: 2}, nil)

	_, err := f.uc.GetMyOrderDetail(context.Background(), 1, 50)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}
