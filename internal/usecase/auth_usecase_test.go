package usecase

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/config"
	"storefront/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

func newAuthUsecaseForTest() (*AuthUsecase, *MockUserRepository, *fakeSessionStore, *MockAuthValidator) {
	users := new(MockUserRepository)
	sessions := newFakeSessionStore()
	v := new(MockAuthValidator)
	cfg := config.Config{JWTSecret: "test-secret"}
	return NewAuthUsecase(cfg, users, sessions, v), users, sessions, v
}

func hashed(t *testing.T, password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return string(h)
}

func TestRegister_Success(t *testing.T) {
	uc, users, sessions, v := newAuthUsecaseForTest()
	ctx := context.Background()

	v.On("ValidateRegister", mock.Anything, "hana@example.com", "password123").Return(nil)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		// 平文は保存しない
		return u.Email == "hana@example.com" &&
			u.PasswordHash != "password123" &&
			u.Role == model.RoleUser &&
			u.IsActive
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 1
	})

	out, err := uc.Register(ctx, AuthRegisterInput{
		Email: "hana@example.com", Password: "password123", FirstName: "Hana", LastName: "Sato",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, "hana@example.com", out.User.Email)

	// 登録した時点でセッションが張られている
	saved, err := sessions.Find(ctx, out.Token)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), saved.ID)
}

func TestRegister_ValidationMessagePropagates(t *testing.T) {
	uc, _, _, v := newAuthUsecaseForTest()

	v.On("ValidateRegister", mock.Anything, "x", "short").Return(errors.New("invalid input"))

	_, err := uc.Register(context.Background(), AuthRegisterInput{Email: "x", Password: "short"})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "invalid input", he.Message)
}

func TestLogin_WrongPassword(t *testing.T) {
	uc, users, _, v := newAuthUsecaseForTest()

	v.On("ValidateLogin", mock.Anything, "hana@example.com", "wrongpass").Return(nil)
	users.On("FindByEmail", mock.Anything, "hana@example.com").Return(&model.User{
		ID: 1, Email: "hana@example.com", PasswordHash: hashed(t, "password123"), IsActive: true,
	}, nil)

	_, err := uc.Login(context.Background(), "hana@example.com", "wrongpass")

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 401, he.Status)
}

func TestLogin_InactiveUser(t *testing.T) {
	uc, users, _, v := newAuthUsecaseForTest()

	v.On("ValidateLogin", mock.Anything, "hana@example.com", "password123").Return(nil)
	users.On("FindByEmail", mock.Anything, "hana@example.com").Return(&model.User{
		ID: 1, Email: "hana@example.com", PasswordHash: hashed(t, "password123"), IsActive: false,
	}, nil)

	_, err := uc.Login(context.Background(), "hana@example.com", "password123")

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 403, he.Status)
}

func TestLoginMe_IsAdminFlags(t *testing.T) {
	uc, users, _, v := newAuthUsecaseForTest()
	ctx := context.Background()

	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	users.On("Update", mock.Anything, mock.Anything).Return(nil)

	users.On("FindByEmail", mock.Anything, "admin@example.com").Return(&model.User{
		ID: 2, Email: "admin@example.com", PasswordHash: hashed(t, "password123"),
		Role: model.RoleAdmin, IsActive: true,
	}, nil)

	out, err := uc.Login(ctx, "admin@example.com", "password123")
	assert.NoError(t, err)

	me, err := uc.Me(ctx, out.Token)
	assert.NoError(t, err)
	assert.True(t, me.IsAuthenticated)
	assert.True(t, me.IsAdmin)
	assert.Equal(t, "admin@example.com", me.User.Email)
}

func TestLogout_ThenMeUnauthorized(t *testing.T) {
	uc, users, _, v := newAuthUsecaseForTest()
	ctx := context.Background()

	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	users.On("Update", mock.Anything, mock.Anything).Return(nil)
	users.On("FindByEmail", mock.Anything, "hana@example.com").Return(&model.User{
		ID: 1, Email: "hana@example.com", PasswordHash: hashed(t, "password123"), IsActive: true,
	}, nil)

	out, err := uc.Login(ctx, "hana@example.com", "password123")
	assert.NoError(t, err)

	// ログイン中はMeが通る
	me, err := uc.Me(ctx, out.Token)
	assert.NoError(t, err)
	assert.True(t, me.IsAuthenticated)

	// ログアウトでセッション破棄
	assert.NoError(t, uc.Logout(ctx, out.Token))

	_, err = uc.Me(ctx, out.Token)
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 401, he.Status)
}

func TestMe_EmptyToken(t *testing.T) {
	uc, _, _, _ := newAuthUsecaseForTest()

	_, err := uc.Me(context.Background(), "  ")

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 401, he.Status)
}
