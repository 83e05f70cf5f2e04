package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type ProductUsecase struct {
	products repo.ProductRepository
	sizes    repo.SizeRepository
	stock    repo.StockLedger
	audits   repo.AuditLogRepository
}

func NewProductUsecase(products repo.ProductRepository, sizes repo.SizeRepository, stock repo.StockLedger, audits repo.AuditLogRepository) *ProductUsecase {
	return &ProductUsecase{products: products, sizes: sizes, stock: stock, audits: audits}
}

type ProductResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int64  `json:"stock"`
	IsActive    bool   `json:"is_active"`
}

type ProductSizeStock struct {
	SizeID   int64  `json:"size_id"`
	Label    string `json:"label"`
	Quantity int64  `json:"quantity"`
}

type ProductDetailResponse struct {
	ProductResponse
	Sizes []ProductSizeStock `json:"sizes,omitempty"`
}

type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// List は公開商品の検索つき一覧。非公開・削除済みは出さない。
func (u *ProductUsecase) List(ctx context.Context, q repo.ProductListQuery) (ProductListResponse, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	products, total, err := u.products.ListPublic(ctx, q)
	if err != nil {
		return ProductListResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toProductResponse(p))
	}
	return ProductListResponse{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// GetDetail は商品詳細。サイズ展開している商品はサイズ別在庫も返す。
func (u *ProductUsecase) GetDetail(ctx context.Context, id int64) (ProductDetailResponse, error) {
	p, err := u.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ProductDetailResponse{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return ProductDetailResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return ProductDetailResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return u.buildDetail(ctx, p)
}

// GetDetailAdmin は非公開商品も見える管理者向け詳細。
func (u *ProductUsecase) GetDetailAdmin(ctx context.Context, id int64) (ProductDetailResponse, error) {
	p, err := u.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ProductDetailResponse{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return ProductDetailResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.buildDetail(ctx, p)
}

func (u *ProductUsecase) buildDetail(ctx context.Context, p model.Product) (ProductDetailResponse, error) {
	out := ProductDetailResponse{ProductResponse: toProductResponse(p)}

	entries, err := u.stock.ListEntries(ctx, p.ID)
	if err != nil {
		return ProductDetailResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(entries) == 0 {
		return out, nil
	}

	sizes, err := u.sizes.List(ctx)
	if err != nil {
		return ProductDetailResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	labels := make(map[int64]string, len(sizes))
	for _, s := range sizes {
		labels[s.ID] = s.Label
	}

	for _, e := range entries {
		out.Sizes = append(out.Sizes, ProductSizeStock{
			SizeID:   e.SizeID,
			Label:    labels[e.SizeID],
			Quantity: e.Quantity,
		})
	}
	return out, nil
}

type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int64  `json:"stock"`
	IsActive    bool   `json:"is_active"`
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || len(in.Name) > 255 {
		return NewHTTPError(http.StatusBadRequest, "invalid name")
	}
	if in.Price < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid price")
	}
	if in.Stock < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid stock")
	}
	return nil
}

// Create は商品登録（管理者）。
func (u *ProductUsecase) Create(ctx context.Context, in ProductInput) (ProductResponse, error) {
	if err := in.validate(); err != nil {
		return ProductResponse{}, err
	}

	p, err := u.products.Create(ctx, model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		IsActive:    in.IsActive,
	})
	if err != nil {
		return ProductResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toProductResponse(p), nil
}

// Update は商品更新（管理者）。在庫はここでは触らない。
func (u *ProductUsecase) Update(ctx context.Context, id int64, in ProductInput) (ProductResponse, error) {
	if err := in.validate(); err != nil {
		return ProductResponse{}, err
	}

	p, err := u.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ProductResponse{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return ProductResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.IsActive = in.IsActive

	if err := u.products.Update(ctx, p); err != nil {
		return ProductResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toProductResponse(p), nil
}

// Delete は論理削除（管理者）。既存の注文明細はスナップショットなので影響しない。
func (u *ProductUsecase) Delete(ctx context.Context, id int64) error {
	if err := u.products.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

type SetStockInput struct {
	SizeID   int64  `json:"size_id"`
	NewStock int64  `json:"new_stock"`
	Reason   string `json:"reason"`
}

// SetStock は管理者の在庫設定。調整履歴と監査ログを必ず残す。
func (u *ProductUsecase) SetStock(ctx context.Context, adminUserID int64, productID int64, in SetStockInput) error {
	if in.NewStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid new_stock")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid reason")
	}

	if _, err := u.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if in.SizeID > 0 {
		if _, err := u.sizes.FindByID(ctx, in.SizeID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, "invalid size_id")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	before, err := u.stock.CurrentStock(ctx, productID, in.SizeID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.stock.SetStock(ctx, productID, in.SizeID, in.NewStock); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.stock.CreateAdjustment(ctx, model.InventoryAdjustment{
		ProductID:   productID,
		SizeID:      in.SizeID,
		AdminUserID: adminUserID,
		Delta:       in.NewStock - before,
		Reason:      strings.TrimSpace(in.Reason),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	beforeJSON, _ := json.Marshal(map[string]int64{"size_id": in.SizeID, "stock": before})
	afterJSON, _ := json.Marshal(map[string]int64{"size_id": in.SizeID, "stock": in.NewStock})
	if err := u.audits.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

type SizeInput struct {
	Label     string `json:"label"`
	SortOrder int    `json:"sort_order"`
}

// ListSizes はサイズマスタの一覧。
func (u *ProductUsecase) ListSizes(ctx context.Context) ([]model.Size, error) {
	sizes, err := u.sizes.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return sizes, nil
}

// CreateSize はサイズマスタ登録（管理者）。
func (u *ProductUsecase) CreateSize(ctx context.Context, in SizeInput) (model.Size, error) {
	label := strings.TrimSpace(in.Label)
	if label == "" || len(label) > 50 {
		return model.Size{}, NewHTTPError(http.StatusBadRequest, "invalid label")
	}
	s, err := u.sizes.Create(ctx, model.Size{Label: label, SortOrder: in.SortOrder})
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return model.Size{}, NewHTTPError(http.StatusConflict, "label already exists")
		}
		return model.Size{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return s, nil
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		IsActive:    p.IsActive,
	}
}
