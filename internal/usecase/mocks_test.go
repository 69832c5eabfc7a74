package usecase

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// Mock: CartRepository
// =====================

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *MockCartRepository) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *MockCartRepository) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	args := m.Called(ctx, cartID, status)
	return args.Error(0)
}

func (m *MockCartRepository) Clear(ctx context.Context, cartID int64) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

// =====================
// Mock: CartItemRepository
// =====================

type MockCartItemRepository struct {
	mock.Mock
}

func (m *MockCartItemRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *MockCartItemRepository) FindByCartAndProduct(ctx context.Context, cartID int64, productID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartID, productID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *MockCartItemRepository) Insert(ctx context.Context, item model.CartItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockCartItemRepository) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64, stockSnapshot *int64) error {
	args := m.Called(ctx, cartItemID, qty, stockSnapshot)
	return args.Error(0)
}

func (m *MockCartItemRepository) DeleteByCartAndProduct(ctx context.Context, cartID int64, productID int64) error {
	args := m.Called(ctx, cartID, productID)
	return args.Error(0)
}

// =====================
// Mock: ProductRepository
// =====================

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

// =====================
// Mock: UserRepository
// =====================

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

// =====================
// Mock: OrderRepository
// =====================

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	os, _ := args.Get(0).([]model.Order)
	return os, args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

// =====================
// Mock: OrderItemRepository
// =====================

type MockOrderItemRepository struct {
	mock.Mock
}

func (m *MockOrderItemRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *MockOrderItemRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

// =====================
// Mock: InventoryRepository
// =====================

type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

// =====================
// Stub: TransactionManager
// （実DBのTxは張らず、そのままfnを呼ぶ）
// =====================

type stubTxRepos struct {
	orders     *MockOrderRepository
	orderItems *MockOrderItemRepository
	carts      *MockCartRepository
	cartItems  *MockCartItemRepository
	inventory  *MockInventoryRepository
	products   *MockProductRepository
}

func (s stubTxRepos) Orders() repo.OrderRepository         { return s.orders }
func (s stubTxRepos) OrderItems() repo.OrderItemRepository { return s.orderItems }
func (s stubTxRepos) Carts() repo.CartRepository           { return s.carts }
func (s stubTxRepos) CartItems() repo.CartItemRepository   { return s.cartItems }
func (s stubTxRepos) Inventory() repo.InventoryRepository  { return s.inventory }
func (s stubTxRepos) Products() repo.ProductRepository     { return s.products }

type stubTxManager struct {
	repos stubTxRepos
}

func (s *stubTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(s.repos)
}

// =====================
// Fake: SessionStore（mapで十分）
// =====================

type fakeSessionStore struct {
	sessions map[string]model.User
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]model.User{}}
}

func (f *fakeSessionStore) Save(ctx context.Context, token string, user model.User) error {
	f.sessions[token] = user
	return nil
}

func (f *fakeSessionStore) Find(ctx context.Context, token string) (model.User, error) {
	u, ok := f.sessions[token]
	if !ok {
		return model.User{}, repo.ErrSessionNotFound
	}
	return u, nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

// =====================
// Mock: AuthValidator
// =====================

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

// =====================
// Fake: OrderEventPublisher
// =====================

type fakePublisher struct {
	published int
	failWith  error
}

func (f *fakePublisher) PublishOrderPlaced(ctx context.Context, orderID int64, orderNumber string, userID int64, totalPrice int64) error {
	f.published++
	return f.failWith
}
