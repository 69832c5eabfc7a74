package messaging

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// 注文確定イベント（下流の出荷/通知向け）
type orderPlacedEvent struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      int64  `json:"user_id"`
	TotalPrice  int64  `json:"total_price"`
	PlacedAt    string `json:"placed_at"`
}

type KafkaOrderPublisher struct {
	writer *kafka.Writer
}

func NewKafkaOrderPublisher(brokers []string, topic string) *KafkaOrderPublisher {
	return &KafkaOrderPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// キーはorder_id（同一注文は同一パーティション）
func (p *KafkaOrderPublisher) PublishOrderPlaced(ctx context.Context, orderID int64, orderNumber string, userID int64, totalPrice int64) error {
	value, err := json.Marshal(orderPlacedEvent{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		UserID:      userID,
		TotalPrice:  totalPrice,
		PlacedAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(orderID, 10)),
		Value: value,
	})
}

func (p *KafkaOrderPublisher) Close() error {
	return p.writer.Close()
}

// ブローカー未設定のとき使う何もしない実装。
type NoopOrderPublisher struct{}

func (NoopOrderPublisher) PublishOrderPlaced(ctx context.Context, orderID int64, orderNumber string, userID int64, totalPrice int64) error {
	return nil
}
