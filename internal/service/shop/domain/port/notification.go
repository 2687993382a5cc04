// internal/service/shop/domain/port/notification.go
package port

import "context"

// FulfillmentEvent 在订单到达 provisioned 后发往下游交付链路
// （发码邮件、客服系统等，均在本服务范围之外）。
type FulfillmentEvent struct {
	OrderID string `json:"order_id"`
	Email   string `json:"email"`
	ICCID   string `json:"iccid"`
}

// FulfillmentProducer 发布交付事件。
// 发布失败只记日志，绝不影响 webhook 的处理结果。
type FulfillmentProducer interface {
	PublishProvisioned(ctx context.Context, event *FulfillmentEvent) error
}
