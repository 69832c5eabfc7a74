package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /authのHTTP
type AuthHandler struct {
	uc *usecase.AuthUsecase
}

// DI
func NewAuthHandler(uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// /auth/register のリクエストボディ。
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// /auth/login のリクエストボディ。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// register/loginは公開、logout/meはbearer必須
func (h *AuthHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, sessions repository.SessionStore) {
	e.POST("/auth/register", h.register)
	e.POST("/auth/login", h.login)

	g := e.Group("/auth")
	g.Use(middleware.AuthJWT(cfg, sessions))
	g.POST("/logout", h.logout)
	g.GET("/me", h.me)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Register(c.Request().Context(), usecase.AuthRegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) logout(c echo.Context) error {
	token, ok := getSessionTokenFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.Logout(c.Request().Context(), token); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) me(c echo.Context) error {
	token, ok := getSessionTokenFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.Me(c.Request().Context(), token)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// middlewareが入れた生トークンを取り出す
func getSessionTokenFromContext(c echo.Context) (string, bool) {
	v := c.Get(middleware.CtxSessionTokenKey)
	if v == nil {
		return "", false
	}

	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}

	return s, true
}
