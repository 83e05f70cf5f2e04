package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /checkoutのHTTP（同期決済つきの購入）
type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

// DI
func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type CheckoutRequest struct {
	AddressID int64 `json:"address_id"`
	//ヘッダにX-Idempotency-Keyがあればそちらを優先
	IdempotencyKey string `json:"idempotency_key"`
	Method         string `json:"method"`
	CardToken      string `json:"card_token"`
	Email          string `json:"email"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/checkout")
	g.Use(middleware.AuthJWT(cfg, userRepo))

	g.POST("", h.checkout)
}

func (h *CheckoutHandler) checkout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	key := c.Request().Header.Get("X-Idempotency-Key")
	if key == "" {
		key = req.IdempotencyKey
	}

	out, err := h.uc.Checkout(c.Request().Context(), userID, usecase.CheckoutInput{
		AddressID:      req.AddressID,
		IdempotencyKey: key,
		Method:         req.Method,
		CardToken:      req.CardToken,
		BuyerEmail:     req.Email,
	})
	if err != nil {
		middleware.RecordCheckout("failure")
		return writeError(c, err)
	}

	middleware.RecordCheckout("success")
	return c.JSON(http.StatusCreated, out)
}
