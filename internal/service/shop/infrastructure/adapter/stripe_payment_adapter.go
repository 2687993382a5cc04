// internal/service/shop/infrastructure/adapter/stripe_payment_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ilotel/internal/service/shop/domain/port"
)

// stripeAPIVersion 固定 ephemeral key 的 API 版本，移动端 SDK 依赖它
const stripeAPIVersion = "2025-01-27.acacia"

// StripePaymentAdapter 是 port.PaymentProvider 的 Stripe 实现。
// 走 Stripe 的 REST API（form 编码），每次外呼都挂在独立的 client span 上。
type StripePaymentAdapter struct {
	apiKey     string
	baseURL    string
	tracer     trace.Tracer
	httpClient *http.Client
}

func NewStripePaymentAdapter(apiKey, baseURL string, tracer trace.Tracer) *StripePaymentAdapter {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &StripePaymentAdapter{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
		// 不设置全局 Timeout，外呼时长完全受控于每次请求传入的 context
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
	}
}

type stripeCustomer struct {
	ID string `json:"id"`
}

type stripeCustomerList struct {
	Data []stripeCustomer `json:"data"`
}

type stripeEphemeralKey struct {
	Secret string `json:"secret"`
}

type stripePaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// CreateTransaction 为订单开启一笔支付：
// 复用或创建 customer，签发 ephemeral key，创建金额锁定的 payment intent。
func (a *StripePaymentAdapter) CreateTransaction(ctx context.Context, email string, amount int64, orderID string) (*port.PaymentSession, error) {
	customerID, err := a.findOrCreateCustomer(ctx, email)
	if err != nil {
		return nil, err
	}

	var key stripeEphemeralKey
	err = a.call(ctx, "POST", "/v1/ephemeral_keys", url.Values{
		"customer": {customerID},
	}, map[string]string{"Stripe-Version": stripeAPIVersion}, &key)
	if err != nil {
		return nil, err
	}

	var intent stripePaymentIntent
	err = a.call(ctx, "POST", "/v1/payment_intents", url.Values{
		"amount":                             {strconv.FormatInt(amount, 10)},
		"currency":                           {"eur"},
		"customer":                           {customerID},
		"automatic_payment_methods[enabled]": {"true"},
		"metadata[orderId]":                  {orderID},
		"metadata[email]":                    {email},
	}, nil, &intent)
	if err != nil {
		return nil, err
	}

	return &port.PaymentSession{
		IntentID:     intent.ID,
		CustomerID:   customerID,
		EphemeralKey: key.Secret,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// CancelTransaction 取消一笔未完成的 payment intent
func (a *StripePaymentAdapter) CancelTransaction(ctx context.Context, intentID string) error {
	path := fmt.Sprintf("/v1/payment_intents/%s/cancel", url.PathEscape(intentID))
	return a.call(ctx, "POST", path, nil, nil, &stripePaymentIntent{})
}

// findOrCreateCustomer 按邮箱复用已有 customer，避免同一买家重复建档
func (a *StripePaymentAdapter) findOrCreateCustomer(ctx context.Context, email string) (string, error) {
	var list stripeCustomerList
	query := url.Values{"email": {email}, "limit": {"1"}}
	if err := a.call(ctx, "GET", "/v1/customers?"+query.Encode(), nil, nil, &list); err != nil {
		return "", err
	}
	if len(list.Data) > 0 {
		return list.Data[0].ID, nil
	}

	var customer stripeCustomer
	if err := a.call(ctx, "POST", "/v1/customers", url.Values{"email": {email}}, nil, &customer); err != nil {
		return "", err
	}
	return customer.ID, nil
}

// call 发起一次带链路追踪的 Stripe API 调用
func (a *StripePaymentAdapter) call(ctx context.Context, method, path string, form url.Values, headers map[string]string, out interface{}) error {
	spanName := "stripe." + strings.SplitN(strings.TrimPrefix(path, "/v1/"), "?", 2)[0]
	ctx, span := a.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		span.RecordError(err)
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", a.baseURL+path),
	)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("stripe returned %s: %s", resp.Status, string(data))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to decode stripe response: %w", err)
	}
	return nil
}
