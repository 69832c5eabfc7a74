package usecase

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
// 明細はproduct_idをキーに操作し、超過注文はエラーにせず黙ってclampする。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// priceは追加時点のスナップショットを返す（生きた商品情報は再取得しない）。
type CartItemResponse struct {
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Image       string `json:"image"`
	Quantity    int64  `json:"quantity"`
	MaxQuantity *int64 `json:"max_quantity,omitempty"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	//数量の合計（毎回再計算、キャッシュしない）
	ItemCount int64 `json:"item_count"`
	//unit_price_snapshot * quantity の合計
	TotalAmount int64 `json:"total_amount"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

// GetCart はカート取得（無ければACTIVEを作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// AddToCart はカートに追加（同一商品は数量加算、行は作らない）。
// 既存行のclamp上限は「既存スナップショットと現在在庫の大きい方」。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	// ACTIVEカート取得（無ければ作成）
	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid")
	}

	item, err := u.cartItemRepo.FindByCartAndProduct(ctx, cart.ID, in.ProductID)
	if err != nil && err != repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err == nil {
		//既存行：数量加算してからclamp
		ceiling := p.Stock
		if item.StockSnapshot != nil && *item.StockSnapshot > ceiling {
			ceiling = *item.StockSnapshot
		}
		newQty := ClampQuantity(item.Quantity+in.Quantity, &ceiling)

		if err := u.cartItemRepo.UpdateQuantity(ctx, item.ID, newQty, &ceiling); err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return u.buildCartResponse(ctx, cart.ID)
	}

	//新規行：追加時点のスナップショットごと保存
	stock := p.Stock
	now := time.Now()
	newItem := model.CartItem{
		CartID:            cart.ID,
		ProductID:         p.ID,
		Quantity:          ClampQuantity(in.Quantity, &stock),
		NameSnapshot:      p.Name,
		UnitPriceSnapshot: p.Price,
		ImageSnapshot:     p.ImageURL,
		StockSnapshot:     &stock,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := u.cartItemRepo.Insert(ctx, newItem); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// 数量変更。0以下なら削除として扱う。無い商品はno-op（エラーにしない）。
func (u *CartUsecase) UpdateQuantity(ctx context.Context, userID int64, productID int64, qty int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	if qty <= 0 {
		return u.RemoveFromCart(ctx, userID, productID)
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	item, err := u.cartItemRepo.FindByCartAndProduct(ctx, cart.ID, productID)
	if err == repo.ErrNotFound {
		//無い商品の更新はno-op
		return u.buildCartResponse(ctx, cart.ID)
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//スナップショット上限でclamp（在庫の再取得はしない）
	clamped := ClampQuantity(qty, item.StockSnapshot)
	if err := u.cartItemRepo.UpdateQuantity(ctx, item.ID, clamped, item.StockSnapshot); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// 明細削除（無くてもエラーにしない、冪等）
func (u *CartUsecase) RemoveFromCart(ctx context.Context, userID int64, productID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartItemRepo.DeleteByCartAndProduct(ctx, cart.ID, productID); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// カートを空にする
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		//カートが無ければ空を返すだけ
		return CartResponse{Items: []CartItemResponse{}}, nil
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartRepo.Clear(ctx, cart.ID); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return CartResponse{Items: []CartItemResponse{}}, nil
}

// 読み取り専用アクセサ。無ければfalse/0。
func (u *CartUsecase) IsInCart(ctx context.Context, userID int64, productID int64) (bool, error) {
	qty, err := u.GetItemQuantity(ctx, userID, productID)
	if err != nil {
		return false, err
	}
	return qty > 0, nil
}

func (u *CartUsecase) GetItemQuantity(ctx context.Context, userID int64, productID int64) (int64, error) {
	if userID <= 0 {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	item, err := u.cartItemRepo.FindByCartAndProduct(ctx, cart.ID, productID)
	if err == repo.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return item.Quantity, nil
}

// cartIDの明細をまとめてCartResponseを作る。
// 合計と件数は都度再計算する（保存しない）。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	respItems := make([]CartItemResponse, 0, len(items))
	var count int64 = 0
	var total int64 = 0

	for _, it := range items {
		respItems = append(respItems, CartItemResponse{
			ProductID:   it.ProductID,
			Name:        it.NameSnapshot,
			Price:       it.UnitPriceSnapshot,
			Image:       it.ImageSnapshot,
			Quantity:    it.Quantity,
			MaxQuantity: it.StockSnapshot,
		})

		count += it.Quantity
		total += it.UnitPriceSnapshot * it.Quantity
	}

	return CartResponse{Items: respItems, ItemCount: count, TotalAmount: total}, nil
}
