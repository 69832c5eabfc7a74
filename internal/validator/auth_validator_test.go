package validator

import (
	"context"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func TestValidateRegister(t *testing.T) {
	users := new(MockUserRepository)
	v := NewAuthValidator(users)
	ctx := context.Background()

	users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, repository.ErrNotFound)
	users.On("FindByEmail", mock.Anything, "used@example.com").Return(&model.User{ID: 1}, nil)

	// 正常
	assert.NoError(t, v.ValidateRegister(ctx, "new@example.com", "password123"))

	// 必須
	assert.ErrorIs(t, v.ValidateRegister(ctx, "", "password123"), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateRegister(ctx, "new@example.com", ""), ErrInvalidInput)

	// 形式
	assert.ErrorIs(t, v.ValidateRegister(ctx, "not-an-email", "password123"), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateRegister(ctx, "a@b", "password123"), ErrInvalidInput)

	// 8文字未満
	assert.ErrorIs(t, v.ValidateRegister(ctx, "new@example.com", "short"), ErrInvalidInput)

	// 重複
	assert.ErrorIs(t, v.ValidateRegister(ctx, "used@example.com", "password123"), ErrEmailAlreadyUsed)
}

func TestValidateLogin(t *testing.T) {
	v := NewAuthValidator(new(MockUserRepository))
	ctx := context.Background()

	assert.NoError(t, v.ValidateLogin(ctx, "hana@example.com", "password123"))
	assert.ErrorIs(t, v.ValidateLogin(ctx, "", "password123"), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateLogin(ctx, "hana@example.com", ""), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateLogin(ctx, "nope", "password123"), ErrInvalidInput)
}
