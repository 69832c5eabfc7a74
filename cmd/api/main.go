package main

import (
	"log"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/messaging"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/joho/godotenv"
)

func main() {
	// .envは無くてもよい（本番は実環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	//セッションストア（Redis）
	sessions, err := cache.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, usecase.SessionTTL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	//注文確定イベント（broker未設定ならnoop）
	var publisher usecase.OrderEventPublisher = messaging.NoopOrderPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = messaging.NewKafkaOrderPublisher(cfg.KafkaBrokers, cfg.OrderTopic)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, sessions, validator.NewAuthValidator(userRepo))
	productUC := usecase.NewProductUsecase(productRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, productRepo)
	checkoutUC := usecase.NewCheckoutUsecase(cfg, txManager, cartRepo, cartItemRepo, userRepo, publisher)
	orderUC := usecase.NewOrderUsecase(txManager)

	//Handler生成
	h := server.Handlers{
		Auth:     handler.NewAuthHandler(authUC),
		Product:  handler.NewProductHandler(productUC),
		Cart:     handler.NewCartHandler(cartUC),
		Checkout: handler.NewCheckoutHandler(checkoutUC),
		Order:    handler.NewOrderHandler(orderUC),
	}

	//Server起動
	if err := server.Start(cfg, sessions, h); err != nil {
		log.Fatalf("server: %v", err)
	}
}
