// internal/service/shop/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"ilotel/internal/pkg/logger"
	"ilotel/internal/service/shop/application"
	"ilotel/internal/service/shop/domain"
)

const serviceName = "shop-service"

// ShopHandler 封装了 shop 服务的 HTTP 处理器
type ShopHandler struct {
	service *application.ShopService
}

// NewShopHandler 创建一个新的 HTTP 处理器实例
func NewShopHandler(service *application.ShopService) *ShopHandler {
	return &ShopHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *ShopHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /orders/reserve", h.reserveHandler)
	mux.HandleFunc("POST /orders/{id}/checkout", h.checkoutHandler)
	mux.HandleFunc("POST /orders/{id}/cancel", h.cancelHandler)
	mux.HandleFunc("GET /orders/{id}", h.getOrderHandler)
	mux.HandleFunc("GET /esims", h.listEsimsHandler)
	mux.HandleFunc("GET /esims/{id}/offers", h.listOffersHandler)
}

func (h *ShopHandler) reserveHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "api.Reserve")
	defer span.End()

	var req application.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OfferID == "" {
		writeError(w, http.StatusBadRequest, "offerId is required")
		return
	}
	span.SetAttributes(attribute.String("offer.id", req.OfferID))

	resp, err := h.service.Reserve(ctx, &req)
	if err != nil {
		if errors.Is(err, domain.ErrStockExhausted) {
			reservationsTotal.WithLabelValues("sold_out").Inc()
		} else {
			reservationsTotal.WithLabelValues("error").Inc()
		}
		writeDomainError(ctx, w, err)
		return
	}

	reservationsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ShopHandler) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "api.Checkout")
	defer span.End()

	orderID := r.PathValue("id")
	span.SetAttributes(attribute.String("order.id", orderID))

	var req application.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Checkout(ctx, orderID, &req)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ShopHandler) cancelHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "api.Cancel")
	defer span.End()

	orderID := r.PathValue("id")
	span.SetAttributes(attribute.String("order.id", orderID))

	resp, err := h.service.Cancel(ctx, orderID)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ShopHandler) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "api.GetOrder")
	defer span.End()

	view, err := h.service.GetOrder(ctx, r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ShopHandler) listEsimsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "api.ListEsims")
	defer span.End()

	esims, err := h.service.ListEsims(ctx)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, esims)
}

func (h *ShopHandler) listOffersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "api.ListOffers")
	defer span.End()

	offers, err := h.service.ListOffers(ctx, r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

// startSpan 提取上游的追踪上下文并开启 API 层 span
func startSpan(r *http.Request, name string) (context.Context, trace.Span) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return otel.Tracer(serviceName).Start(ctx, name)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError 把领域错误翻译成 HTTP 状态码
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrOfferNotFound),
		errors.Is(err, domain.ErrEsimNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrStockExhausted),
		errors.Is(err, domain.ErrOrderNotPending):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrOfferNotSellable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidContact):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Ctx(ctx).Error().Err(err).Msg("unhandled error in http handler")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
