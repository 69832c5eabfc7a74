package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type fakeSessionStore struct {
	sessions map[string]model.User
}

func (f *fakeSessionStore) Save(ctx context.Context, token string, user model.User) error {
	f.sessions[token] = user
	return nil
}

func (f *fakeSessionStore) Find(ctx context.Context, token string) (model.User, error) {
	u, ok := f.sessions[token]
	if !ok {
		return model.User{}, repository.ErrSessionNotFound
	}
	return u, nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func signToken(t *testing.T, secret string, userID int64, role string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	assert.NoError(t, err)
	return signed
}

func doRequest(cfg config.Config, store repository.SessionStore, authz string) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured echo.Context
	handler := AuthJWT(cfg, store)(func(c echo.Context) error {
		captured = c
		return c.NoContent(http.StatusOK)
	})
	_ = handler(c)

	if captured != nil {
		return rec, captured
	}
	return rec, c
}

func TestAuthJWT(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}
	store := &fakeSessionStore{sessions: map[string]model.User{}}

	token := signToken(t, cfg.JWTSecret, 1, "USER")
	_ = store.Save(context.Background(), token, model.User{ID: 1})

	// 正常：user_idとroleがcontextに入る
	rec, c := doRequest(cfg, store, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), c.Get(CtxUserIDKey))
	assert.Equal(t, "USER", c.Get(CtxUserRoleKey))
	assert.Equal(t, token, c.Get(CtxSessionTokenKey))

	// ヘッダなし
	rec, _ = doRequest(cfg, store, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Bearer形式でない
	rec, _ = doRequest(cfg, store, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 署名が違う
	bad := signToken(t, "other-secret", 1, "USER")
	rec, _ = doRequest(cfg, store, "Bearer "+bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_LoggedOutTokenRejected(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}
	store := &fakeSessionStore{sessions: map[string]model.User{}}

	// 署名は有効だがセッションが無い（logout済み相当）
	token := signToken(t, cfg.JWTSecret, 1, "USER")

	rec, _ := doRequest(cfg, store, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
