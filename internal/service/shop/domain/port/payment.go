// internal/service/shop/domain/port/payment.go
package port

import "context"

// PaymentSession 是支付方为一笔订单开出的交易句柄集合，
// 客户端用它们完成支付，服务端只保留 IntentID 作为对账引用。
type PaymentSession struct {
	IntentID     string
	CustomerID   string
	EphemeralKey string
	ClientSecret string
}

// PaymentProvider 是对外部支付方能力的抽象。
// 本服务只消费这组能力，不重新实现支付方自己的 API。
type PaymentProvider interface {
	// CreateTransaction 为订单开启一笔金额为 amount 的支付交易。
	// amount 单位为分。
	CreateTransaction(ctx context.Context, email string, amount int64, orderID string) (*PaymentSession, error)

	// CancelTransaction 取消一笔未完成的交易。
	// 交易已结算等导致的失败由调用方决定是否吞掉。
	CancelTransaction(ctx context.Context, intentID string) error
}

// EventKind 是支付回调事件的种类
type EventKind string

const (
	EventPaymentSucceeded EventKind = "payment_intent.succeeded"
	EventPaymentFailed    EventKind = "payment_intent.payment_failed"
)

// PaymentEvent 是一条已通过签名校验的支付回调事件
type PaymentEvent struct {
	ID       string
	Kind     EventKind
	IntentID string
}

// WebhookVerifier 校验回调的真实性并解出事件。
// 签名不可信时必须返回 domain.ErrInvalidSignature，不做任何部分处理。
type WebhookVerifier interface {
	VerifyAndDecode(payload []byte, signatureHeader string) (*PaymentEvent, error)
}
