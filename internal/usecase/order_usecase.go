package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

// 在庫不足の明細付きエラー。handlerで400+issuesに変換する。
type StockConflictError struct {
	Issues []repo.StockIssue
}

func (e *StockConflictError) Error() string {
	return "insufficient stock"
}

func AsStockConflict(err error) (*StockConflictError, bool) {
	var se *StockConflictError
	ok := errors.As(err, &se)
	return se, ok
}

// 同時に同じidempotencyキーで注文が入った。txを巻き戻した上で
// 呼び出し側が既存注文を引き直す合図。
var errIdempotencyRace = errors.New("idempotency key race")

type OrderUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
}

func NewOrderUsecase(tx repo.TransactionManager, addresses repo.AddressRepository) *OrderUsecase {
	return &OrderUsecase{tx: tx, addresses: addresses}
}

type PlaceOrderInput struct {
	AddressID      int64
	IdempotencyKey string
	//銀行振込・代引きなど、ゲートウェイを通さない決済方法
	Method string
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	SizeID    int64  `json:"size_id,omitempty"`
	SizeLabel string `json:"size_label,omitempty"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID         int64             `json:"id"`
	UserID     int64             `json:"user_id"`
	Status     string            `json:"status"`
	TotalPrice int64             `json:"total_price"`
	ShipName   string            `json:"ship_name"`
	ShipCity   string            `json:"ship_city"`
	CreatedAt  time.Time         `json:"created_at"`
	Items      []OrderItemOutput `json:"items"`
}

type PlaceOrderOutput struct {
	Order OrderOutput `json:"order"`
	//後続の決済（リダイレクト/webhook）で突き合わせるコード
	ReferenceCode string `json:"reference_code"`
}

// ゲートウェイを通さない注文作成。PENDINGで作り、決済はwebhookで解決する。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (PlaceOrderOutput, error) {
	if userID <= 0 {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.AddressID <= 0 {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address_id")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}
	method := strings.TrimSpace(in.Method)
	if method == "" {
		method = "MANUAL"
	}

	//address_idの存在確認＋所有チェック
	addr, err := u.addresses.FindByID(ctx, in.AddressID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return PlaceOrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return PlaceOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	//所有チェック（他人の住所なら403）
	if addr.UserID != userID {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	var out PlaceOrderOutput

	//注文処理はトランザクション
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			//既存注文を返す
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out.Order = toOrderOutput(existing, items)
			out.ReferenceCode = referenceCodeForOrder(ctx, r, existing.ID)
			return nil
		}

		orderID, orderItems, total, txErr := createOrderFromCart(ctx, r, userID, addr, key, model.OrderStatusPending)
		if txErr != nil {
			return txErr
		}

		//決済記録をPENDINGで作成（webhookで更新される）
		refCode := uuid.NewString()
		rec := model.PaymentRecord{
			OrderID:       &orderID,
			Amount:        total,
			Method:        method,
			ReferenceCode: refCode,
			Status:        model.PaymentStatusPending,
		}
		if _, err := r.Payments().Create(ctx, rec); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		created := model.Order{
			ID:         orderID,
			UserID:     userID,
			Status:     model.OrderStatusPending,
			TotalPrice: total,
			ShipName:   addr.Name,
			ShipCity:   addr.City,
			CreatedAt:  time.Now(),
		}
		out.Order = toOrderOutput(created, orderItems)
		out.ReferenceCode = refCode
		return nil
	})

	if err != nil {
		//同時に同じキーで作られていた。もう一回検索して同じ結果を返す
		if errors.Is(err, errIdempotencyRace) {
			return u.resolveExistingOrder(ctx, userID, key)
		}
		return PlaceOrderOutput{}, err
	}
	return out, nil
}

// 別リクエストが先に同じキーで注文を作っていたとき、その注文を引き直して返す。
func (u *OrderUsecase) resolveExistingOrder(ctx context.Context, userID int64, key string) (PlaceOrderOutput, error) {
	var out PlaceOrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !found {
			return NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out.Order = toOrderOutput(existing, items)
		out.ReferenceCode = referenceCodeForOrder(ctx, r, existing.ID)
		return nil
	})
	if err != nil {
		return PlaceOrderOutput{}, err
	}
	return out, nil
}

// カート明細を現在のカタログ価格で値付けして注文明細の形にする。
// カート追加時の価格は参考値で、請求はあくまで今の価格。
func priceCartLines(
	ctx context.Context,
	products repo.ProductRepository,
	sizes repo.SizeRepository,
	cartItems []model.CartItem,
) ([]model.OrderItem, int64, error) {
	orderItems := make([]model.OrderItem, 0, len(cartItems))
	var total int64 = 0

	for _, ci := range cartItems {
		p, err := products.FindByID(ctx, ci.ProductID)
		if err == repo.ErrNotFound {
			return nil, 0, NewHTTPError(http.StatusBadRequest, "invalid")
		}
		if err != nil {
			return nil, 0, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsActive {
			return nil, 0, NewHTTPError(http.StatusBadRequest, "invalid")
		}

		var sizeLabel string
		if ci.SizeID > 0 {
			if s, err := sizes.FindByID(ctx, ci.SizeID); err == nil {
				sizeLabel = s.Label
			}
		}

		now := time.Now()
		orderItems = append(orderItems, model.OrderItem{
			ProductID:           ci.ProductID,
			SizeID:              ci.SizeID,
			ProductNameSnapshot: p.Name,
			SizeLabelSnapshot:   sizeLabel,
			UnitPriceSnapshot:   p.Price,
			Quantity:            ci.Quantity,
			CreatedAt:           now,
		})

		total += p.Price * ci.Quantity
	}

	return orderItems, total, nil
}

// 値付け済みの明細から注文ヘッダ＋明細を作り、在庫を減算してカートを閉じる。
// 失敗するとトランザクションごと巻き戻るので、孤児注文は残らない。
func persistOrderFromCart(
	ctx context.Context,
	r repo.TxRepos,
	userID int64,
	addr model.Address,
	key string,
	status model.OrderStatus,
	cartID int64,
	orderItems []model.OrderItem,
	total int64,
) (int64, error) {
	//在庫を確定時に再チェックして減らす（足りないなら false）
	for _, it := range orderItems {
		ok, err := r.Stock().Decrement(ctx, repo.StockItem{
			ProductID: it.ProductID,
			SizeID:    it.SizeID,
			Quantity:  it.Quantity,
		})
		if err != nil {
			return 0, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !ok {
			return 0, NewHTTPError(http.StatusBadRequest, "out of stock")
		}
	}

	// 注文作成（住所はスナップショット）
	now := time.Now()
	orderID, err := r.Orders().Create(ctx, model.Order{
		UserID:         userID,
		Status:         status,
		TotalPrice:     total,
		IdempotencyKey: key,
		ShipName:       addr.Name,
		ShipPhone:      addr.Phone,
		ShipLine1:      addr.Line1,
		ShipLine2:      addr.Line2,
		ShipCity:       addr.City,
		ShipState:      addr.State,
		ShipPostalCode: addr.PostalCode,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			//一意制約に負けた。txを巻き戻して呼び出し側で既存注文を引く
			return 0, errIdempotencyRace
		}
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//注文明細一括作成
	if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//カートをCHECKED_OUTにして、明細をクリア（再注文防止）
	if err := r.Carts().UpdateStatus(ctx, cartID, model.CartStatusCheckedOut); err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if err := r.Carts().Clear(ctx, cartID); err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return orderID, nil
}

// カートから注文を作る（値付けと永続化をまとめたもの）。
func createOrderFromCart(
	ctx context.Context,
	r repo.TxRepos,
	userID int64,
	addr model.Address,
	key string,
	status model.OrderStatus,
) (int64, []model.OrderItem, int64, error) {
	//ACTIVEカート取得
	cart, err := r.Carts().FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return 0, nil, 0, NewHTTPError(http.StatusBadRequest, "cart empty")
	}
	if err != nil {
		return 0, nil, 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//カート明細取得
	cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return 0, nil, 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(cartItems) == 0 {
		return 0, nil, 0, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	orderItems, total, err := priceCartLines(ctx, r.Products(), r.Sizes(), cartItems)
	if err != nil {
		return 0, nil, 0, err
	}

	orderID, err := persistOrderFromCart(ctx, r, userID, addr, key, status, cart.ID, orderItems, total)
	if err != nil {
		return 0, nil, 0, err
	}

	return orderID, orderItems, total, nil
}

func referenceCodeForOrder(ctx context.Context, r repo.TxRepos, orderID int64) string {
	recs, err := r.Payments().ListByOrderID(ctx, orderID)
	if err != nil || len(recs) == 0 {
		return ""
	}
	return recs[len(recs)-1].ReferenceCode
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//ページングはまずは固定で取る
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			SizeID:    it.SizeID,
			SizeLabel: it.SizeLabelSnapshot,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:         o.ID,
		UserID:     o.UserID,
		Status:     string(o.Status),
		TotalPrice: o.TotalPrice,
		ShipName:   o.ShipName,
		ShipCity:   o.ShipCity,
		CreatedAt:  o.CreatedAt,
		Items:      outItems,
	}
}
