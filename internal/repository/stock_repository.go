package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 購入・戻しの対象1件分
type StockItem struct {
	ProductID int64
	SizeID    int64 // 0はサイズ展開しない商品
	Quantity  int64
}

// 在庫不足1件分。Availableは行が無い場合0。
type StockIssue struct {
	ProductID int64 `json:"product_id"`
	SizeID    int64 `json:"size_id"`
	Requested int64 `json:"requested"`
	Available int64 `json:"available"`
}

// 在庫の唯一の窓口。
// 在庫の増減はここ以外（トリガ等）からは行わない。
type StockLedger interface {
	// 時点チェック。空スライスなら全件購入可能。
	CheckAvailability(ctx context.Context, items []StockItem) ([]StockIssue, error)

	// 在庫が足りるときだけ減算（条件付きUPDATE）。
	// サイズ行が無い商品は商品側の集計在庫を減らす。
	// 足りなければfalse。
	Decrement(ctx context.Context, item StockItem) (bool, error)

	// 在庫戻し（キャンセル・決済拒否の補償）
	Restore(ctx context.Context, item StockItem) error

	// 在庫の現在値（行が無ければ0）
	CurrentStock(ctx context.Context, productID int64, sizeID int64) (int64, error)

	// 商品のサイズ別在庫行一覧
	ListEntries(ctx context.Context, productID int64) ([]model.StockEntry, error)

	// 在庫の現在値を設定（管理者用）
	SetStock(ctx context.Context, productID int64, sizeID int64, newStock int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
