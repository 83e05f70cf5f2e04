package main

import (
	"log"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/gateway/payu"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/infra/redisx"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/invoice"
	"storefront/internal/mail"
	"storefront/internal/server"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/joho/godotenv"
)

func main() {
	//.envは無ければ環境変数だけで動く
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Address{},
		&model.Product{},
		&model.Size{},
		&model.StockEntry{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.PaymentRecord{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	sizeRepo := infraRepo.NewSizeGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	paymentRepo := infraRepo.NewPaymentRecordGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	stockLedger := infraRepo.NewStockGormLedger(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//ワンタイムコード置き場（Redis）
	rdb := redisx.New(cfg.RedisAddr)
	codeStore := redisx.NewCodeStore(rdb)

	//外部コラボレータ
	gatewayClient := payu.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.GatewayMerchantID, cfg.GatewayTimeout)
	invoiceGen := invoice.NewFileGenerator(cfg.InvoiceDir, "/invoices")
	mailer := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := usecase.NewBcryptPasswordHasher(12)
	verifier := usecase.NewBcryptPasswordVerifier()
	issuer := usecase.NewJWTIssuer(cfg.JWTSecret)
	authValidator := validator.NewAuthValidator(userRepo)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, codeStore, authValidator, hasher, verifier, issuer, mailer)
	productUC := usecase.NewProductUsecase(productRepo, sizeRepo, stockLedger, auditRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo, sizeRepo, stockLedger)
	orderUC := usecase.NewOrderUsecase(txManager, addressRepo)
	checkoutUC := usecase.NewCheckoutUsecase(
		txManager, addressRepo, cartRepo, cartRepo, productRepo, sizeRepo,
		stockLedger, paymentRepo, orderRepo, gatewayClient, invoiceGen, mailer,
	)
	paymentUC := usecase.NewPaymentUsecase(txManager, paymentRepo, orderRepo)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, orderRepo, orderItemRepo, auditRepo)
	addressUC := usecase.NewAddressUsecase(addressRepo)
	auditUC := usecase.NewAuditUsecase(auditRepo)

	//Handler生成
	handlers := server.Handlers{
		Auth:         handler.NewAuthHandler(authUC, cfg),
		Product:      handler.NewProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Checkout:     handler.NewCheckoutHandler(checkoutUC),
		Order:        handler.NewOrderHandler(orderUC),
		Payment:      handler.NewPaymentHandler(paymentUC),
		Address:      handler.NewAddressHandler(addressUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC, paymentUC, auditUC),
	}

	e := server.New(cfg, userRepo, handlers)

	addr := ":8080"
	if cfg.Port != "" {
		if cfg.Port[0] != ':' {
			addr = ":" + cfg.Port
		} else {
			addr = cfg.Port
		}
	}
	if err := e.Start(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
