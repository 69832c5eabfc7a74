package usecase

import "storefront/internal/config"

// ClampQuantityは数量を [1, max] に収める。
// maxがnilなら上限不明（無制限扱い）。常に有効な数量を返す。
func ClampQuantity(requested int64, max *int64) int64 {
	q := requested
	if max != nil && q > *max {
		q = *max
	}
	if q < 1 {
		q = 1
	}
	return q
}

// 注文金額の内訳（最小通貨単位）
type Quote struct {
	Subtotal    int64 `json:"subtotal"`
	Discount    int64 `json:"discount"`
	ShippingFee int64 `json:"shipping_fee"`
	Total       int64 `json:"total"`
}

// 小計から送料・割引・合計を確定する。
// 送料無料はしきい値を「超えたら」（strict >）。
// 割引はプロモ適用時のみ subtotal * rate。
func ComputeQuote(subtotal int64, promoApplied bool, cfg config.Config) Quote {
	var shipping int64
	if subtotal > cfg.FreeShippingThreshold {
		shipping = 0
	} else {
		shipping = cfg.FlatShippingFee
	}

	var discount int64
	if promoApplied {
		discount = subtotal * cfg.PromoRateBP / 10000
	}

	return Quote{
		Subtotal:    subtotal,
		Discount:    discount,
		ShippingFee: shipping,
		Total:       subtotal - discount + shipping,
	}
}
