// internal/service/shop/infrastructure/adapter/fulfillment_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ilotel/internal/pkg/mq"
	"ilotel/internal/service/shop/domain/port"
)

// FulfillmentKafkaAdapter 实现了 port.FulfillmentProducer 接口。
// 订单到达 provisioned 后向交付主题发一条消息，
// 发码邮件等后续动作由下游消费方完成。
type FulfillmentKafkaAdapter struct {
	writer *kafka.Writer
}

func NewFulfillmentKafkaAdapter(writer *kafka.Writer) *FulfillmentKafkaAdapter {
	return &FulfillmentKafkaAdapter{writer: writer}
}

// PublishProvisioned 发布交付事件，消息 key 取订单 id 保证同单有序
func (a *FulfillmentKafkaAdapter) PublishProvisioned(ctx context.Context, event *port.FulfillmentEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal fulfillment event: %w", err)
	}
	// mq.ProduceMessage 会自动注入追踪上下文
	return mq.ProduceMessage(ctx, a.writer, []byte(event.OrderID), eventBytes)
}

// Close 关闭底层的 Kafka writer
func (a *FulfillmentKafkaAdapter) Close() error {
	return a.writer.Close()
}
