package usecase

import (
	"context"
	"net/http"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// AuditUsecase は管理者操作ログの照会。
type AuditUsecase struct {
	audits repo.AuditLogRepository
}

func NewAuditUsecase(audits repo.AuditLogRepository) *AuditUsecase {
	return &AuditUsecase{audits: audits}
}

// List は監査ログの一覧（新しい順）。
func (u *AuditUsecase) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	logs, err := u.audits.List(ctx, f)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}
