package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type StockGormLedger struct {
	db *gorm.DB
}

func NewStockGormLedger(db *gorm.DB) *StockGormLedger {
	return &StockGormLedger{db: db}
}

// その瞬間の在庫で不足分を列挙する。行が無い＝在庫0扱い（エラーにしない）。
func (r *StockGormLedger) CheckAvailability(ctx context.Context, items []repo.StockItem) ([]repo.StockIssue, error) {
	issues := make([]repo.StockIssue, 0)

	for _, it := range items {
		available, err := r.available(ctx, it.ProductID, it.SizeID)
		if err != nil {
			return nil, err
		}
		if available < it.Quantity {
			issues = append(issues, repo.StockIssue{
				ProductID: it.ProductID,
				SizeID:    it.SizeID,
				Requested: it.Quantity,
				Available: available,
			})
		}
	}

	return issues, nil
}

func (r *StockGormLedger) available(ctx context.Context, productID int64, sizeID int64) (int64, error) {
	if sizeID > 0 {
		var entry model.StockEntry
		err := r.db.WithContext(ctx).
			Where("product_id = ? AND size_id = ?", productID, sizeID).
			First(&entry).Error
		if err == nil {
			return entry.Quantity, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		//サイズ行が無ければ商品集計へフォールバック
	}

	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ?", productID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// 在庫の現在値（行が無ければ0）
func (r *StockGormLedger) CurrentStock(ctx context.Context, productID int64, sizeID int64) (int64, error) {
	return r.available(ctx, productID, sizeID)
}

// 商品のサイズ別在庫行一覧
func (r *StockGormLedger) ListEntries(ctx context.Context, productID int64) ([]model.StockEntry, error) {
	var entries []model.StockEntry
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("size_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// 在庫が足りるときだけ減らす。条件付きUPDATEなので負にはならない。
func (r *StockGormLedger) Decrement(ctx context.Context, item repo.StockItem) (bool, error) {
	if item.SizeID > 0 {
		res := r.db.WithContext(ctx).
			Model(&model.StockEntry{}).
			Where("product_id = ? AND size_id = ? AND quantity >= ?", item.ProductID, item.SizeID, item.Quantity).
			Update("quantity", gorm.Expr("quantity - ?", item.Quantity))

		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected > 0 {
			return true, nil
		}

		//行が在って足りないのか、行自体が無いのかを区別する
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&model.StockEntry{}).
			Where("product_id = ? AND size_id = ?", item.ProductID, item.SizeID).
			Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return false, nil
		}
		//サイズ行が無ければ商品集計を減らす
	}

	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
		Update("stock", gorm.Expr("stock - ?", item.Quantity))

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 在庫戻し（キャンセル・決済拒否の補償）
func (r *StockGormLedger) Restore(ctx context.Context, item repo.StockItem) error {
	if item.SizeID > 0 {
		res := r.db.WithContext(ctx).
			Model(&model.StockEntry{}).
			Where("product_id = ? AND size_id = ?", item.ProductID, item.SizeID).
			Update("quantity", gorm.Expr("quantity + ?", item.Quantity))

		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
	}

	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", item.ProductID).
		Update("stock", gorm.Expr("stock + ?", item.Quantity))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫の現在値を設定（管理者用）。サイズ行は無ければ作る。
func (r *StockGormLedger) SetStock(ctx context.Context, productID int64, sizeID int64, newStock int64) error {
	if sizeID > 0 {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&model.StockEntry{}).
				Where("product_id = ? AND size_id = ?", productID, sizeID).
				Update("quantity", newStock)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				return nil
			}

			entry := model.StockEntry{
				ProductID: productID,
				SizeID:    sizeID,
				Quantity:  newStock,
			}
			return tx.Create(&entry).Error
		})
	}

	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Update("stock", newStock)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 調整履歴作成
func (r *StockGormLedger) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return err
	}
	return nil
}
