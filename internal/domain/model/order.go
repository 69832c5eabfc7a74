package model

import "time"

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusShipped  OrderStatus = "SHIPPED"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

type PaymentMethod string

const (
	//代金引換（カード情報不要）
	PaymentMethodCOD PaymentMethod = "cod"
	//クレジットカード
	PaymentMethodCard PaymentMethod = "card"
)

type Order struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64       `gorm:"not null;index" json:"user_id"`
	//時刻由来の表示用コード（一意保証はidempotency_key側）
	OrderNumber string `gorm:"type:varchar(50);not null;index" json:"order_number"`
	Status      OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	//金額内訳（最小通貨単位）
	Subtotal    int64 `gorm:"not null" json:"subtotal"`
	Discount    int64 `gorm:"not null" json:"discount"`
	ShippingFee int64 `gorm:"not null" json:"shipping_fee"`
	TotalPrice  int64 `gorm:"not null" json:"total_price"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`

	//配送先は注文時点のスナップショットとして保存
	ShippingFirstName  string `gorm:"type:varchar(100);not null" json:"shipping_first_name"`
	ShippingLastName   string `gorm:"type:varchar(100);not null" json:"shipping_last_name"`
	ShippingEmail      string `gorm:"type:varchar(255);not null" json:"shipping_email"`
	ShippingPhone      string `gorm:"type:varchar(30);not null" json:"shipping_phone"`
	ShippingAddress    string `gorm:"type:varchar(255);not null" json:"shipping_address"`
	ShippingCity       string `gorm:"type:varchar(100);not null" json:"shipping_city"`
	ShippingState      string `gorm:"type:varchar(100);not null" json:"shipping_state"`
	ShippingPostalCode string `gorm:"type:varchar(20);not null" json:"shipping_postal_code"`
	ShippingCountry    string `gorm:"type:varchar(100)" json:"shipping_country"`

	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
