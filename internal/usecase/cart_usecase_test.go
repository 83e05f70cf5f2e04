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

type cartFixture struct {
	carts    *CartRepoMock
	items    *CartItemRepoMock
	products *ProductRepoMock
	sizes    *SizeRepoMock
	stock    *StockLedgerMock
	uc       *usecase.CartUsecase
}

func newCartFixture() *cartFixture {
	f := &cartFixture{
		carts:    new(CartRepoMock),
		items:    new(CartItemRepoMock),
		products: new(ProductRepoMock),
		sizes:    new(SizeRepoMock),
		stock:    new(StockLedgerMock),
	}
	f.uc = usecase.NewCartUsecase(f.carts, f.items, f.products, f.sizes, f.stock)
	return f
}

func activeShirt() model.Product {
	return model.Product{ID: 1, Name: "Tシャツ", Price: 500, Stock: 5, IsActive: true}
}

func TestCart_AddToCart_MergesSameProductAndSize(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	cart := model.Cart{ID: 3, UserID: 1, Status: model.CartStatusActive}
	f.carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(cart, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).Return(activeShirt(), nil)
	f.sizes.On("FindByID", mock.Anything, int64(2)).Return(model.Size{ID: 2, Label: "M"}, nil)

	//既に1個入っている。追加1個で合計2個の在庫チェックになる
	existing := []model.CartItem{
		{ID: 30, CartID: 3, ProductID: 1, SizeID: 2, Quantity: 1, UnitPriceSnapshot: 500},
	}
	merged := []model.CartItem{
		{ID: 30, CartID: 3, ProductID: 1, SizeID: 2, Quantity: 2, UnitPriceSnapshot: 500},
	}
	f.items.On("ListByCartID", mock.Anything, int64(3)).Return(existing, nil).Once()

	f.stock.On("CheckAvailability", mock.Anything, []repo.StockItem{
		{ProductID: 1, SizeID: 2, Quantity: 2},
	}).Return([]repo.StockIssue{}, nil)

	f.items.On("UpsertByCartProductSize", mock.Anything, int64(3), int64(1), int64(2), int64(1), int64(500)).Return(nil)
	f.items.On("ListByCartID", mock.Anything, int64(3)).Return(merged, nil).Once()

	out, err := f.uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: 1, SizeID: 2, Quantity: 1})
	assert.NoError(t, err)
	if assert.Len(t, out.Items, 1) {
		assert.Equal(t, int64(2), out.Items[0].Quantity)
		assert.Equal(t, "M", out.Items[0].SizeLabel)
	}
	assert.Equal(t, int64(1000), out.Total)

	f.items.AssertExpectations(t)
	f.stock.AssertExpectations(t)
}

func TestCart_AddToCart_RejectsWhenStockExceeded(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	f.carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).Return(activeShirt(), nil)
	f.items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{}, nil)

	f.stock.On("CheckAvailability", mock.Anything, mock.Anything).Return([]repo.StockIssue{
		{ProductID: 1, SizeID: 0, Requested: 10, Available: 5},
	}, nil)

	_, err := f.uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: 1, Quantity: 10})
	assertErrContains(t, err, "stock exceeded")
	f.items.AssertNotCalled(t, "UpsertByCartProductSize",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCart_UpdateCartItem_ZeroQuantityRemovesLine(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	f.items.On("IsOwnedByUser", mock.Anything, int64(30), int64(1)).Return(true, nil)
	f.items.On("DeleteByID", mock.Anything, int64(30)).Return(nil)
	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{}, nil)

	out, err := f.uc.UpdateCartItem(ctx, 1, 30, usecase.UpdateCartItemInput{Quantity: 0})
	assert.NoError(t, err)
	assert.Len(t, out.Items, 0)
	assert.Equal(t, int64(0), out.Total)

	f.items.AssertCalled(t, "DeleteByID", mock.Anything, int64(30))
	f.items.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func TestCart_UpdateCartItem_ChangesQuantity(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	item := model.CartItem{ID: 30, CartID: 3, ProductID: 1, SizeID: 0, Quantity: 1, UnitPriceSnapshot: 500}

	f.items.On("IsOwnedByUser", mock.Anything, int64(30), int64(1)).Return(true, nil)
	f.items.On("FindByID", mock.Anything, int64(30)).Return(item, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).Return(activeShirt(), nil)
	f.stock.On("CheckAvailability", mock.Anything, []repo.StockItem{
		{ProductID: 1, SizeID: 0, Quantity: 3},
	}).Return([]repo.StockIssue{}, nil)
	f.items.On("UpdateQuantity", mock.Anything, int64(30), int64(3)).Return(nil)
	f.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)

	updated := item
	updated.Quantity = 3
	f.items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{updated}, nil)

	out, err := f.uc.UpdateCartItem(ctx, 1, 30, usecase.UpdateCartItemInput{Quantity: 3})
	assert.NoError(t, err)
	if assert.Len(t, out.Items, 1) {
		assert.Equal(t, int64(3), out.Items[0].Quantity)
	}
	assert.Equal(t, int64(1500), out.Total)
}

func TestCart_DeleteCartItem_OtherUsersLine_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	f.items.On("IsOwnedByUser", mock.Anything, int64(30), int64(1)).Return(false, nil)

	_, err := f.uc.DeleteCartItem(ctx, 1, 30)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
	f.items.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}

// 追加後に価格が変わったら、表示も合計も今のカタログ価格に追従する
func TestCart_GetCart_ReflectsLivePrice(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	f.carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 30, CartID: 3, ProductID: 1, Quantity: 2, UnitPriceSnapshot: 500},
	}, nil)
	//追加時は500円、いまは800円
	p := activeShirt()
	p.Price = 800
	f.products.On("FindByID", mock.Anything, int64(1)).Return(p, nil)

	out, err := f.uc.GetCart(ctx, 1)
	assert.NoError(t, err)
	if assert.Len(t, out.Items, 1) {
		assert.Equal(t, int64(800), out.Items[0].Price)
	}
	assert.Equal(t, int64(1600), out.Total)
}

func TestCart_GetCart_SkipsInactiveProducts(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	f.carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 30, CartID: 3, ProductID: 1, Quantity: 1, UnitPriceSnapshot: 500},
		{ID: 31, CartID: 3, ProductID: 2, Quantity: 1, UnitPriceSnapshot: 900},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).Return(activeShirt(), nil)
	//販売停止した商品は表示にも合計にも入れない
	f.products.On("FindByID", mock.Anything, int64(2)).Return(model.Product{ID: 2, Name: "旧商品", IsActive: false}, nil)

	out, err := f.uc.GetCart(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, int64(500), out.Total)
}
