// internal/service/shop/infrastructure/adapter/stripe_webhook_verifier.go
package adapter

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"ilotel/internal/service/shop/domain"
	"ilotel/internal/service/shop/domain/port"
)

// signatureTolerance 是事件时间戳允许的最大偏移，超出视为重放
const signatureTolerance = 5 * time.Minute

// StripeWebhookVerifier 实现 port.WebhookVerifier。
// Stripe-Signature 头的格式为 "t=<unix>,v1=<hex hmac>,..."，
// 签名对象是 "<t>.<原始 body>" 的 HMAC-SHA256。
// 校验必须针对未解析的原始 body 进行。
type StripeWebhookVerifier struct {
	secret []byte
	// now 可在测试中替换
	now func() time.Time
}

func NewStripeWebhookVerifier(secret string) *StripeWebhookVerifier {
	return &StripeWebhookVerifier{secret: []byte(secret), now: time.Now}
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyAndDecode 校验签名并解出事件。
// 任何校验失败都返回 domain.ErrInvalidSignature，调用方不得做部分处理。
func (v *StripeWebhookVerifier) VerifyAndDecode(payload []byte, signatureHeader string) (*port.PaymentEvent, error) {
	timestamp, signatures := parseSignatureHeader(signatureHeader)
	if timestamp == 0 || len(signatures) == 0 {
		return nil, domain.ErrInvalidSignature
	}

	eventTime := time.Unix(timestamp, 0)
	if d := v.now().Sub(eventTime); d > signatureTolerance || d < -signatureTolerance {
		return nil, domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, domain.ErrInvalidSignature
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidSignature
	}

	return &port.PaymentEvent{
		ID:       event.ID,
		Kind:     port.EventKind(event.Type),
		IntentID: event.Data.Object.ID,
	}, nil
}

// parseSignatureHeader 解析 "t=...,v1=...,v1=..." 形式的签名头
func parseSignatureHeader(header string) (int64, []string) {
	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, value)
		}
	}
	return timestamp, signatures
}
