package usecase

import (
	"context"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newOrderUsecaseForTest() (*OrderUsecase, stubTxRepos) {
	tx := stubTxRepos{
		orders:     new(MockOrderRepository),
		orderItems: new(MockOrderItemRepository),
		carts:      new(MockCartRepository),
		cartItems:  new(MockCartItemRepository),
		inventory:  new(MockInventoryRepository),
		products:   new(MockProductRepository),
	}
	return NewOrderUsecase(&stubTxManager{repos: tx}), tx
}

func TestListMyOrders(t *testing.T) {
	uc, tx := newOrderUsecaseForTest()

	tx.orders.On("ListByUserID", mock.Anything, int64(1), 1, 50).Return([]model.Order{
		{ID: 5, UserID: 1, OrderNumber: "EH-000001", Status: model.OrderStatusPending, Subtotal: 2400, ShippingFee: 500, TotalPrice: 2900},
	}, int64(1), nil)
	tx.orderItems.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{
		{ProductID: 100, ProductNameSnapshot: "Lavender Soap", UnitPriceSnapshot: 1200, Quantity: 2},
	}, nil)

	out, err := uc.ListMyOrders(context.Background(), 1)

	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "EH-000001", out[0].OrderNumber)
	assert.Equal(t, int64(2900), out[0].TotalPrice)
	assert.Len(t, out[0].Items, 1)
}

func TestGetMyOrderDetail_OtherUsersOrderIsNotFound(t *testing.T) {
	uc, tx := newOrderUsecaseForTest()

	// 他人の注文は404で返す（403にしない）
	tx.orders.On("FindByID", mock.Anything, int64(5)).Return(model.Order{ID: 5, UserID: 99}, nil)

	_, err := uc.GetMyOrderDetail(context.Background(), 1, 5)

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

func TestGetMyOrderDetail_NotFound(t *testing.T) {
	uc, tx := newOrderUsecaseForTest()

	tx.orders.On("FindByID", mock.Anything, int64(5)).Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.GetMyOrderDetail(context.Background(), 1, 5)

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}
