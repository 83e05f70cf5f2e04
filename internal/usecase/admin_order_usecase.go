package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// AdminOrderUsecase は管理者の注文一覧・ステータス更新・売上統計。
type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	items  repo.OrderItemRepository
	audits repo.AuditLogRepository
}

func NewAdminOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository, items repo.OrderItemRepository, audits repo.AuditLogRepository) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, orders: orders, items: items, audits: audits}
}

type AdminOrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// List は全ユーザー横断の注文一覧（ステータス・ユーザー・期間で絞り込み）。
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Status != "" && !isKnownOrderStatus(model.OrderStatus(f.Status)) {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderOutput(o, nil))
	}
	return AdminOrderListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// GetDetail は管理者向けの注文詳細（所有者チェックなし）。
func (u *AdminOrderUsecase) GetDetail(ctx context.Context, orderID int64) (OrderOutput, error) {
	order, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	orderItems, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toOrderOutput(order, orderItems), nil
}

// 許可する遷移。終端（DELIVERED / CANCELED / FAILED）からは動かせない。
var orderTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending: {model.OrderStatusPaid, model.OrderStatusCanceled, model.OrderStatusFailed},
	model.OrderStatusPaid:    {model.OrderStatusShipped, model.OrderStatusCanceled},
	model.OrderStatusShipped: {model.OrderStatusDelivered},
}

func canTransition(from model.OrderStatus, to model.OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func isKnownOrderStatus(s model.OrderStatus) bool {
	switch s {
	case model.OrderStatusPending, model.OrderStatusPaid, model.OrderStatusShipped,
		model.OrderStatusDelivered, model.OrderStatusCanceled, model.OrderStatusFailed:
		return true
	}
	return false
}

// UpdateStatus は管理者の注文ステータス更新。
// キャンセル時は明細分の在庫を戻し、必ず監査ログを残す。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, adminUserID int64, orderID int64, newStatus model.OrderStatus) (OrderOutput, error) {
	if !isKnownOrderStatus(newStatus) {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if order.Status == newStatus {
			//再送。そのまま返す
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = toOrderOutput(order, items)
			return nil
		}
		if !canTransition(order.Status, newStatus) {
			return NewHTTPError(http.StatusConflict, "invalid status transition")
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//キャンセルは引き当て済み在庫の戻しを伴う
		if newStatus == model.OrderStatusCanceled {
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

		beforeJSON, _ := json.Marshal(map[string]string{"status": string(order.Status)})
		afterJSON, _ := json.Marshal(map[string]string{"status": string(newStatus)})
		if err := u.audits.Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.Status = newStatus
		out = toOrderOutput(order, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

type SalesStatsOutput struct {
	Rows []repo.SalesStatRow `json:"rows"`
	//PAID以降（SHIPPED/DELIVERED含む）の売上合計
	TotalRevenue int64 `json:"total_revenue"`
}

// SalesStats はステータス別の件数・売上。FromとToは任意。
func (u *AdminOrderUsecase) SalesStats(ctx context.Context, from *time.Time, to *time.Time) (SalesStatsOutput, error) {
	if from != nil && to != nil && to.Before(*from) {
		return SalesStatsOutput{}, NewHTTPError(http.StatusBadRequest, "invalid range")
	}

	rows, err := u.orders.SalesStats(ctx, from, to)
	if err != nil {
		return SalesStatsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := SalesStatsOutput{Rows: rows}
	for _, row := range rows {
		switch model.OrderStatus(row.Status) {
		case model.OrderStatusPaid, model.OrderStatusShipped, model.OrderStatusDelivered:
			out.TotalRevenue += row.Revenue
		}
	}
	return out, nil
}
