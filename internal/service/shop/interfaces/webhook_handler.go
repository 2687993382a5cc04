// internal/service/shop/interfaces/webhook_handler.go
package interfaces

import (
	"errors"
	"io"
	"net/http"

	"ilotel/internal/pkg/logger"
	"ilotel/internal/service/shop/application"
	"ilotel/internal/service/shop/domain"
)

// maxWebhookBody 防止恶意的超大回调体占满内存
const maxWebhookBody = 1 << 20

// WebhookHandler 接收支付网关的异步回调。
// 回调是订单状态的最终裁决来源，处理必须幂等：网关会重发。
type WebhookHandler struct {
	reconciler *application.PaymentReconciler
}

func NewWebhookHandler(reconciler *application.PaymentReconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.stripeWebhookHandler)
}

func (h *WebhookHandler) stripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "api.StripeWebhook")
	defer span.End()

	// 签名校验针对原始字节，任何解析之前必须先完整读出
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		webhookEventsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	err = h.reconciler.HandleWebhook(ctx, payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			webhookEventsTotal.WithLabelValues("invalid_signature").Inc()
			logger.Ctx(ctx).Warn().Msg("⚠️ rejected webhook with invalid signature")
			writeError(w, http.StatusBadRequest, "invalid signature")
			return
		}
		// 处理失败返回 5xx，让网关按退避策略重投
		webhookEventsTotal.WithLabelValues("error").Inc()
		logger.Ctx(ctx).Error().Err(err).Msg("webhook processing failed")
		writeError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}

	webhookEventsTotal.WithLabelValues("applied").Inc()
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
