package usecase

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/gateway/payu"
	"storefront/internal/invoice"
	"storefront/internal/mail"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

// CheckoutUsecase は即時決済つきの購入フロー。
//
// 順序は固定:
//  1. 入力検証（副作用なしで失敗する）
//  2. idempotencyキーで既存注文を検索
//  3. カートを現在のカタログ価格で値付け（請求額はここで確定）
//  4. 在庫の事前チェック（不足一覧を返して終了）
//  5. 決済記録をPENDINGで作成し、ゲートウェイへ同期リクエスト
//  6. 拒否なら記録だけ更新して終了。注文・在庫・カートは一切触らない
//  7. 承認なら1トランザクションで 在庫減算→注文→明細→カート→記録更新
//  8. 請求書・確認メールはベストエフォート（失敗してもレスポンスは成功）
type CheckoutUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	sizes     repo.SizeRepository
	stock     repo.StockLedger
	payments  repo.PaymentRecordRepository
	orders    repo.OrderRepository
	charger   payu.Charger
	invoices  invoice.Generator
	mailer    mail.Mailer
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	addresses repo.AddressRepository,
	carts repo.CartRepository,
	cartItems repo.CartItemRepository,
	products repo.ProductRepository,
	sizes repo.SizeRepository,
	stock repo.StockLedger,
	payments repo.PaymentRecordRepository,
	orders repo.OrderRepository,
	charger payu.Charger,
	invoices invoice.Generator,
	mailer mail.Mailer,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:        tx,
		addresses: addresses,
		carts:     carts,
		cartItems: cartItems,
		products:  products,
		sizes:     sizes,
		stock:     stock,
		payments:  payments,
		orders:    orders,
		charger:   charger,
		invoices:  invoices,
		mailer:    mailer,
	}
}

type CheckoutInput struct {
	AddressID      int64
	IdempotencyKey string
	Method         string
	CardToken      string
	BuyerEmail     string
}

type CheckoutOutput struct {
	Order         OrderOutput `json:"order"`
	PaymentStatus string      `json:"payment_status"`
	ReferenceCode string      `json:"reference_code"`
	InvoiceURL    string      `json:"invoice_url,omitempty"`
}

func (u *CheckoutUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (CheckoutOutput, error) {
	if userID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.AddressID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address_id")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}
	method := strings.TrimSpace(in.Method)
	if method == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid method")
	}
	if strings.TrimSpace(in.BuyerEmail) == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}

	//address_idの存在確認＋所有チェック
	addr, err := u.addresses.FindByID(ctx, in.AddressID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CheckoutOutput{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if addr.UserID != userID {
		return CheckoutOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	// 同じキーの再送は既存注文を返す（二重課金しない）
	if existing, found, err := u.orders.FindByIdempotencyKey(ctx, userID, key); err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	} else if found {
		return u.existingOutput(ctx, existing)
	}

	//カートを読む（ここまで副作用なし）
	cart, err := u.carts.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	cartItems, err := u.cartItems.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(cartItems) == 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	//現在のカタログ価格で値付けする。課金額と注文合計はこの結果で揃える
	pricedItems, total, err := priceCartLines(ctx, u.products, u.sizes, cartItems)
	if err != nil {
		return CheckoutOutput{}, err
	}

	//在庫の事前チェック。不足は明細ごと返す
	stockItems := make([]repo.StockItem, 0, len(cartItems))
	for _, ci := range cartItems {
		stockItems = append(stockItems, repo.StockItem{
			ProductID: ci.ProductID,
			SizeID:    ci.SizeID,
			Quantity:  ci.Quantity,
		})
	}

	issues, err := u.stock.CheckAvailability(ctx, stockItems)
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(issues) > 0 {
		return CheckoutOutput{}, &StockConflictError{Issues: issues}
	}

	//決済記録をPENDINGで作成。注文より先なのでOrderIDは空
	refCode := uuid.NewString()
	if _, err := u.payments.Create(ctx, model.PaymentRecord{
		Amount:        total,
		Method:        method,
		ReferenceCode: refCode,
		Status:        model.PaymentStatusPending,
	}); err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//同期課金。タイムアウトは固定で、超えたら注文は作らない
	chargeResp, err := u.charger.Charge(ctx, payu.ChargeRequest{
		ReferenceCode: refCode,
		Amount:        total,
		Currency:      "COP",
		Method:        method,
		CardToken:     in.CardToken,
		BuyerEmail:    in.BuyerEmail,
	})
	if err != nil {
		u.updateRecord(ctx, refCode, model.PaymentStatusError, "", err.Error())
		return CheckoutOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway error")
	}

	if chargeResp.State != payu.StateApproved {
		//拒否。注文・在庫・カートは一切変更しない
		u.updateRecord(ctx, refCode, model.PaymentStatusDeclined, chargeResp.TransactionID, chargeResp.Message)

		msg := chargeResp.Message
		if msg == "" {
			msg = "payment declined"
		}
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, msg)
	}

	//承認。ここから先は1トランザクション
	var out CheckoutOutput
	var createdOrder model.Order
	var createdItems []model.OrderItem

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//課金した額と注文のTotalPriceがずれないよう、値付け済み明細をそのまま使う
		orderID, txErr := persistOrderFromCart(ctx, r, userID, addr, key, model.OrderStatusPaid, cart.ID, pricedItems, total)
		if txErr != nil {
			return txErr
		}

		//決済記録を注文にひも付けてAPPROVEDへ
		if err := r.Payments().AttachOrder(ctx, recordIDByReference(ctx, r, refCode), orderID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		st := model.PaymentStatusApproved
		if err := r.Payments().UpdateByReferenceCode(ctx, refCode, repo.PaymentRecordUpdate{
			Status:        &st,
			TransactionID: &chargeResp.TransactionID,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		createdOrder = model.Order{
			ID:         orderID,
			UserID:     userID,
			Status:     model.OrderStatusPaid,
			TotalPrice: total,
			ShipName:   addr.Name,
			ShipPhone:  addr.Phone,
			ShipLine1:  addr.Line1,
			ShipLine2:  addr.Line2,
			ShipCity:   addr.City,
		}
		createdItems = pricedItems

		out = CheckoutOutput{
			Order:         toOrderOutput(createdOrder, pricedItems),
			PaymentStatus: string(model.PaymentStatusApproved),
			ReferenceCode: refCode,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errIdempotencyRace) {
			//同時に同じキーで注文が入った。課金記録は残した上で既存注文を引き直す
			u.updateRecord(ctx, refCode, model.PaymentStatusApproved, chargeResp.TransactionID, "")
			log.Printf("checkout: idempotency race on charge %s, resolving existing order", refCode)
			existing, found, lerr := u.orders.FindByIdempotencyKey(ctx, userID, key)
			if lerr == nil && found {
				return u.existingOutput(ctx, existing)
			}
			return CheckoutOutput{}, NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		// 課金済みなのに注文が作れなかった。記録は残っているので突き合わせで追える
		log.Printf("checkout: approved charge %s but order tx failed: %v", refCode, err)
		return CheckoutOutput{}, err
	}

	//ここから先はベストエフォート。失敗はログだけ残して握りつぶす
	if u.invoices != nil {
		url, err := u.invoices.Generate(createdOrder, createdItems)
		if err != nil {
			log.Printf("checkout: invoice generation failed for order %d: %v", createdOrder.ID, err)
		} else {
			out.InvoiceURL = url
		}
	}
	if u.mailer != nil {
		if err := u.mailer.Send(in.BuyerEmail, "Order confirmation", confirmationBody(out.Order)); err != nil {
			log.Printf("checkout: confirmation mail failed for order %d: %v", createdOrder.ID, err)
		}
	}

	return out, nil
}

// 既存注文（同じidempotencyキー）をCheckoutOutputに組み立てる
func (u *CheckoutUsecase) existingOutput(ctx context.Context, existing model.Order) (CheckoutOutput, error) {
	var out CheckoutOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = CheckoutOutput{
			Order: toOrderOutput(existing, items),
		}
		recs, err := r.Payments().ListByOrderID(ctx, existing.ID)
		if err == nil && len(recs) > 0 {
			last := recs[len(recs)-1]
			out.PaymentStatus = string(last.Status)
			out.ReferenceCode = last.ReferenceCode
		}
		return nil
	})
	if err != nil {
		return CheckoutOutput{}, err
	}
	return out, nil
}

func (u *CheckoutUsecase) updateRecord(ctx context.Context, refCode string, status model.PaymentStatus, transactionID string, message string) {
	upd := repo.PaymentRecordUpdate{Status: &status}
	if transactionID != "" {
		upd.TransactionID = &transactionID
	}
	if message != "" {
		upd.ResponseMessage = &message
	}
	if err := u.payments.UpdateByReferenceCode(ctx, refCode, upd); err != nil {
		log.Printf("checkout: payment record update failed for %s: %v", refCode, err)
	}
}

func recordIDByReference(ctx context.Context, r repo.TxRepos, refCode string) int64 {
	rec, err := r.Payments().FindByReferenceCode(ctx, refCode)
	if err != nil {
		return 0
	}
	return rec.ID
}

func confirmationBody(o OrderOutput) string {
	var b strings.Builder
	b.WriteString("Thank you for your purchase.\n\n")
	for _, it := range o.Items {
		name := it.Name
		if it.SizeLabel != "" {
			name += " (" + it.SizeLabel + ")"
		}
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString("\nOrder ID: " + strconv.FormatInt(o.ID, 10) + "\n")
	b.WriteString("Total: " + strconv.FormatInt(o.TotalPrice, 10) + "\n")
	return b.String()
}
