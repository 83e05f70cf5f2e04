package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一意制約違反（同じidempotency keyの同時投入など）
var ErrConflict = errors.New("conflict")

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error
}

// サイズマスタの保存・取得。
type SizeRepository interface {
	List(ctx context.Context) ([]model.Size, error)
	FindByID(ctx context.Context, id int64) (model.Size, error)
	Create(ctx context.Context, s model.Size) (model.Size, error)
	Delete(ctx context.Context, id int64) error
}
