package server

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, cfg config.Config, sessions repository.SessionStore, h Handlers) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Auth.RegisterRoutes(e, cfg, sessions)
	h.Product.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, cfg, sessions)
	h.Checkout.RegisterRoutes(e, cfg, sessions)
	h.Order.RegisterRoutes(e, cfg, sessions)
}
