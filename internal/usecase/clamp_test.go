package usecase

import (
	"testing"

	"storefront/internal/config"

	"github.com/stretchr/testify/assert"
)

func testSalesConfig() config.Config {
	return config.Config{
		FreeShippingThreshold: 5000,
		FlatShippingFee:       500,
		PromoRateBP:           1000, // 10%
		PromoCode:             "BLOOM10",
	}
}

func TestClampQuantity(t *testing.T) {
	five := int64(5)

	// 範囲内はそのまま
	assert.Equal(t, int64(3), ClampQuantity(3, &five))

	// 上限超過は上限に丸める
	assert.Equal(t, int64(5), ClampQuantity(10, &five))

	// 0や負は1に引き上げる
	assert.Equal(t, int64(1), ClampQuantity(0, &five))
	assert.Equal(t, int64(1), ClampQuantity(-7, &five))

	// 上限がnilなら無制限
	assert.Equal(t, int64(9999), ClampQuantity(9999, nil))

	// 上限が異常（0以下）でも最低1は返す
	zero := int64(0)
	assert.Equal(t, int64(1), ClampQuantity(3, &zero))
}

func TestComputeQuote_ShippingBoundary(t *testing.T) {
	cfg := testSalesConfig()

	// しきい値ちょうどは送料がかかる（strict >）
	q := ComputeQuote(5000, false, cfg)
	assert.Equal(t, int64(500), q.ShippingFee)
	assert.Equal(t, int64(5500), q.Total)

	// 1単位でも超えたら送料無料
	q = ComputeQuote(5001, false, cfg)
	assert.Equal(t, int64(0), q.ShippingFee)
	assert.Equal(t, int64(5001), q.Total)
}

func TestComputeQuote_KnownBreakdown(t *testing.T) {
	cfg := testSalesConfig()

	// 1000円x2 + 2000円x1 = 4000円、しきい値未満なので送料500円
	q := ComputeQuote(2*1000+1*2000, false, cfg)
	assert.Equal(t, int64(4000), q.Subtotal)
	assert.Equal(t, int64(0), q.Discount)
	assert.Equal(t, int64(500), q.ShippingFee)
	assert.Equal(t, int64(4500), q.Total)
}

func TestComputeQuote_Promo(t *testing.T) {
	cfg := testSalesConfig()

	// 10%引き。送料判定は割引前の小計で行う。
	q := ComputeQuote(6000, true, cfg)
	assert.Equal(t, int64(600), q.Discount)
	assert.Equal(t, int64(0), q.ShippingFee)
	assert.Equal(t, int64(5400), q.Total)

	// 割引後がしきい値以下になっても送料は無料のまま
	q = ComputeQuote(5500, true, cfg)
	assert.Equal(t, int64(550), q.Discount)
	assert.Equal(t, int64(0), q.ShippingFee)
	assert.Equal(t, int64(4950), q.Total)
}

func TestComputeQuote_ZeroSubtotal(t *testing.T) {
	cfg := testSalesConfig()

	q := ComputeQuote(0, false, cfg)
	assert.Equal(t, int64(500), q.ShippingFee)
	assert.Equal(t, int64(500), q.Total)
}
