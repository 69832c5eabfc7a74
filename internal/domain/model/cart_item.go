package model

import "time"

// カートの明細
// 追加時点の商品情報（名前・価格・画像・在庫）を必ずスナップショットで保存。
// StockSnapshotは追加時点の在庫上限。以後のカート操作では再取得しない。
type CartItem struct {
	ID                int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID            int64  `gorm:"not null;index:idx_cart_product,unique" json:"cart_id"`
	ProductID         int64  `gorm:"not null;index:idx_cart_product,unique" json:"product_id"`
	Quantity          int64  `gorm:"not null" json:"quantity"`
	NameSnapshot      string `gorm:"type:varchar(255);not null" json:"name_snapshot"`
	UnitPriceSnapshot int64  `gorm:"not null;column:unit_price_snapshot" json:"unit_price_snapshot"`
	ImageSnapshot     string `gorm:"type:varchar(512)" json:"image_snapshot"`

	//nilなら在庫上限不明（無制限扱い）
	StockSnapshot *int64 `gorm:"column:stock_snapshot" json:"stock_snapshot"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
