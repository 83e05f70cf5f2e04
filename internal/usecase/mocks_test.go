package usecase_test

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/gateway/payu"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	carts      repo.CartRepository
	cartItems  repo.CartItemRepository
	stock      repo.StockLedger
	products   repo.ProductRepository
	sizes      repo.SizeRepository
	payments   repo.PaymentRecordRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository           { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository   { return r.orderItems }
func (r *TxReposMock) Carts() repo.CartRepository             { return r.carts }
func (r *TxReposMock) CartItems() repo.CartItemRepository     { return r.cartItems }
func (r *TxReposMock) Stock() repo.StockLedger                { return r.stock }
func (r *TxReposMock) Products() repo.ProductRepository       { return r.products }
func (r *TxReposMock) Sizes() repo.SizeRepository             { return r.sizes }
func (r *TxReposMock) Payments() repo.PaymentRecordRepository { return r.payments }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) SalesStats(ctx context.Context, from *time.Time, to *time.Time) ([]repo.SalesStatRow, error) {
	args := m.Called(ctx, from, to)
	rows, _ := args.Get(0).([]repo.SalesStatRow)
	return rows, args.Error(1)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	cart, _ := args.Get(0).(model.Cart)
	return cart, args.Error(1)
}

func (m *CartRepoMock) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	cart, _ := args.Get(0).(model.Cart)
	return cart, args.Error(1)
}

func (m *CartRepoMock) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	args := m.Called(ctx, cartID, status)
	return args.Error(0)
}

func (m *CartRepoMock) Clear(ctx context.Context, cartID int64) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) UpsertByCartProductSize(ctx context.Context, cartID int64, productID int64, sizeID int64, addQty int64, unitPriceSnapshot int64) error {
	args := m.Called(ctx, cartID, productID, sizeID, addQty, unitPriceSnapshot)
	return args.Error(0)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	args := m.Called(ctx, cartItemID, qty)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	args := m.Called(ctx, cartItemID)
	return args.Error(0)
}

func (m *CartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID)
	item, _ := args.Get(0).(model.CartItem)
	return item, args.Error(1)
}

func (m *CartItemRepoMock) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	args := m.Called(ctx, cartItemID, userID)
	return args.Bool(0), args.Error(1)
}

type StockLedgerMock struct{ mock.Mock }

func (m *StockLedgerMock) CheckAvailability(ctx context.Context, items []repo.StockItem) ([]repo.StockIssue, error) {
	args := m.Called(ctx, items)
	issues, _ := args.Get(0).([]repo.StockIssue)
	return issues, args.Error(1)
}

func (m *StockLedgerMock) Decrement(ctx context.Context, item repo.StockItem) (bool, error) {
	args := m.Called(ctx, item)
	return args.Bool(0), args.Error(1)
}

func (m *StockLedgerMock) Restore(ctx context.Context, item repo.StockItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *StockLedgerMock) CurrentStock(ctx context.Context, productID int64, sizeID int64) (int64, error) {
	args := m.Called(ctx, productID, sizeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StockLedgerMock) ListEntries(ctx context.Context, productID int64) ([]model.StockEntry, error) {
	args := m.Called(ctx, productID)
	entries, _ := args.Get(0).([]model.StockEntry)
	return entries, args.Error(1)
}

func (m *StockLedgerMock) SetStock(ctx context.Context, productID int64, sizeID int64, newStock int64) error {
	args := m.Called(ctx, productID, sizeID, newStock)
	return args.Error(0)
}

func (m *StockLedgerMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	products, _ := args.Get(0).([]model.Product)
	return products, args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type SizeRepoMock struct{ mock.Mock }

func (m *SizeRepoMock) List(ctx context.Context) ([]model.Size, error) {
	args := m.Called(ctx)
	sizes, _ := args.Get(0).([]model.Size)
	return sizes, args.Error(1)
}

func (m *SizeRepoMock) FindByID(ctx context.Context, id int64) (model.Size, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(model.Size)
	return s, args.Error(1)
}

func (m *SizeRepoMock) Create(ctx context.Context, s model.Size) (model.Size, error) {
	args := m.Called(ctx, s)
	created, _ := args.Get(0).(model.Size)
	return created, args.Error(1)
}

func (m *SizeRepoMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type PaymentRecordRepoMock struct{ mock.Mock }

func (m *PaymentRecordRepoMock) Create(ctx context.Context, rec model.PaymentRecord) (model.PaymentRecord, error) {
	args := m.Called(ctx, rec)
	created, _ := args.Get(0).(model.PaymentRecord)
	return created, args.Error(1)
}

func (m *PaymentRecordRepoMock) FindByReferenceCode(ctx context.Context, referenceCode string) (model.PaymentRecord, error) {
	args := m.Called(ctx, referenceCode)
	rec, _ := args.Get(0).(model.PaymentRecord)
	return rec, args.Error(1)
}

func (m *PaymentRecordRepoMock) FindByTransactionID(ctx context.Context, transactionID string) (model.PaymentRecord, error) {
	args := m.Called(ctx, transactionID)
	rec, _ := args.Get(0).(model.PaymentRecord)
	return rec, args.Error(1)
}

func (m *PaymentRecordRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.PaymentRecord, error) {
	args := m.Called(ctx, orderID)
	recs, _ := args.Get(0).([]model.PaymentRecord)
	return recs, args.Error(1)
}

func (m *PaymentRecordRepoMock) UpdateByReferenceCode(ctx context.Context, referenceCode string, upd repo.PaymentRecordUpdate) error {
	args := m.Called(ctx, referenceCode, upd)
	return args.Error(0)
}

func (m *PaymentRecordRepoMock) AttachOrder(ctx context.Context, recordID int64, orderID int64) error {
	args := m.Called(ctx, recordID, orderID)
	return args.Error(0)
}

type AddressRepoMock struct{ mock.Mock }

func (m *AddressRepoMock) Create(ctx context.Context, address model.Address) (model.Address, error) {
	args := m.Called(ctx, address)
	created, _ := args.Get(0).(model.Address)
	return created, args.Error(1)
}

func (m *AddressRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]model.Address)
	return list, args.Error(1)
}

func (m *AddressRepoMock) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	args := m.Called(ctx, addressID)
	addr, _ := args.Get(0).(model.Address)
	return addr, args.Error(1)
}

func (m *AddressRepoMock) Update(ctx context.Context, address model.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *AddressRepoMock) Delete(ctx context.Context, addressID int64) error {
	args := m.Called(ctx, addressID)
	return args.Error(0)
}

func (m *AddressRepoMock) IsOwnedByUser(ctx context.Context, addressID, userID int64) (bool, error) {
	args := m.Called(ctx, addressID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *AddressRepoMock) SetDefault(ctx context.Context, userID, addressID int64) error {
	args := m.Called(ctx, userID, addressID)
	return args.Error(0)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type CodeStoreMock struct{ mock.Mock }

func (m *CodeStoreMock) Set(ctx context.Context, kind repo.CodeKind, email string, code string, ttl time.Duration) error {
	args := m.Called(ctx, kind, email, code, ttl)
	return args.Error(0)
}

func (m *CodeStoreMock) Get(ctx context.Context, kind repo.CodeKind, email string) (string, error) {
	args := m.Called(ctx, kind, email)
	return args.String(0), args.Error(1)
}

func (m *CodeStoreMock) Delete(ctx context.Context, kind repo.CodeKind, email string) error {
	args := m.Called(ctx, kind, email)
	return args.Error(0)
}

// =====================
// Collaborator mocks
// =====================

type ChargerMock struct{ mock.Mock }

func (m *ChargerMock) Charge(ctx context.Context, req payu.ChargeRequest) (payu.ChargeResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(payu.ChargeResponse)
	return resp, args.Error(1)
}

type InvoiceGeneratorMock struct{ mock.Mock }

func (m *InvoiceGeneratorMock) Generate(order model.Order, items []model.OrderItem) (string, error) {
	args := m.Called(order, items)
	return args.String(0), args.Error(1)
}

type MailerMock struct{ mock.Mock }

func (m *MailerMock) Send(to string, subject string, body string) error {
	args := m.Called(to, subject, body)
	return args.Error(0)
}

type AuthValidatorMock struct{ mock.Mock }

func (m *AuthValidatorMock) ValidateRegister(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *AuthValidatorMock) ValidateLogin(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *AuthValidatorMock) ValidateCode(ctx context.Context, email string, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

func (m *AuthValidatorMock) ValidatePasswordReset(ctx context.Context, email string, code string, newPassword string) error {
	args := m.Called(ctx, email, code, newPassword)
	return args.Error(0)
}

type PasswordHasherMock struct{ mock.Mock }

func (m *PasswordHasherMock) Hash(plain string) (string, error) {
	args := m.Called(plain)
	return args.String(0), args.Error(1)
}

type PasswordVerifierMock struct{ mock.Mock }

func (m *PasswordVerifierMock) Verify(plain string, hashed string) bool {
	args := m.Called(plain, hashed)
	return args.Bool(0)
}

type TokenIssuerMock struct{ mock.Mock }

func (m *TokenIssuerMock) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	args := m.Called(userID, role, now)
	exp, _ := args.Get(1).(time.Time)
	return args.String(0), exp, args.Error(2)
}
