package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// カート明細はproduct_idをキーに操作する（1カートに同一商品は1行）。
type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindByCartAndProduct(ctx context.Context, cartID int64, productID int64) (model.CartItem, error)

	//新規行のスナップショットごと挿入
	Insert(ctx context.Context, item model.CartItem) error

	//数量とスナップショット在庫上限を更新
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64, stockSnapshot *int64) error

	//無ければエラーにしない（冪等）
	DeleteByCartAndProduct(ctx context.Context, cartID int64, productID int64) error
}
