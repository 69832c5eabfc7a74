package server

import (
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Handlers はルート登録に必要なハンドラ一式。
type Handlers struct {
	Auth     *handler.AuthHandler
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Order    *handler.OrderHandler
}

// Start はechoを組み立てて待ち受ける。
func Start(cfg config.Config, sessions repository.SessionStore, h Handlers) error {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	RegisterRoutes(e, cfg, sessions, h)

	return e.Start(":" + cfg.Port)
}
