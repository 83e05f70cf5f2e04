package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ゲートウェイからの非同期通知を受ける
type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

// DI
func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

// webhookは認証なしの公開エンドポイント。
// 照合はreferenceCode（推測不能なUUID）で行う。
func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/payments/notification", h.notification)
}

func (h *PaymentHandler) notification(c echo.Context) error {
	var req usecase.WebhookInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.HandleWebhook(c.Request().Context(), req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
}
