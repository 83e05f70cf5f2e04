package handler

import (
	"net/http"

	"storefront/internal/middleware"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// 在庫不足は不足明細も返す
type StockConflictResponse struct {
	Error  string            `json:"error"`
	Issues []repo.StockIssue `json:"issues"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if sc, ok := usecase.AsStockConflict(err); ok {
		return c.JSON(http.StatusBadRequest, StockConflictResponse{
			Error:  "insufficient stock",
			Issues: sc.Issues,
		})
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// AuthJWTが載せたuser_idを取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	raw := c.Get(middleware.CtxUserIDKey)
	userID, ok := raw.(int64)
	if !ok || userID <= 0 {
		return 0, false
	}
	return userID, true
}
