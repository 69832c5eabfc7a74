package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）

	JWTSecret string // JWT署名シークレット

	RedisAddr     string // セッションストア（localhost:6379）
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string // 空なら注文イベント発行は無効
	OrderTopic   string   // 注文確定イベントのトピック

	GoEnv string // dev/prod

	// ストア毎に変わる販売設定（最小通貨単位）
	FreeShippingThreshold int64         // これを超えたら送料無料（strict >）
	FlatShippingFee       int64         // 固定送料
	PromoRateBP           int64         // プロモ割引率（basis points、1000 = 10%）
	PromoCode             string        // 有効なプロモコード（大文字小文字無視）
	OrderNumberPrefix     string        // 注文番号のプレフィックス
	CheckoutTimeout       time.Duration // 注文確定処理のタイムアウト
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       0,

		OrderTopic: getenv("ORDER_TOPIC", "orders.placed"),

		GoEnv: os.Getenv("GO_ENV"),

		FreeShippingThreshold: envInt64("FREE_SHIPPING_THRESHOLD", 5000),
		FlatShippingFee:       envInt64("FLAT_SHIPPING_FEE", 499),
		PromoRateBP:           envInt64("PROMO_RATE_BP", 1000),
		PromoCode:             getenv("PROMO_CODE", "BLOOM10"),
		OrderNumberPrefix:     getenv("ORDER_NUMBER_PREFIX", "EH"),
		CheckoutTimeout:       10 * time.Second,
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("REDIS_DB must be number: %w", err)
		}
		cfg.RedisDB = n
	}

	// KAFKA_BROKERSは任意（未設定ならイベント発行なし）
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if v := os.Getenv("CHECKOUT_TIMEOUT_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("CHECKOUT_TIMEOUT_SEC must be positive number")
		}
		cfg.CheckoutTimeout = time.Duration(n) * time.Second
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if cfg.FreeShippingThreshold < 0 || cfg.FlatShippingFee < 0 {
		return Config{}, fmt.Errorf("shipping config must not be negative")
	}
	if cfg.PromoRateBP < 0 || cfg.PromoRateBP > 10000 {
		return Config{}, fmt.Errorf("PROMO_RATE_BP must be in [0,10000]")
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
