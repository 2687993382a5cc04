// internal/service/shop/interfaces/metrics.go
package interfaces

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_reservations_total",
		Help: "预订请求数，按结果分类",
	}, []string{"result"}) // success | sold_out | error

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_webhook_events_total",
		Help: "收到的支付回调事件数，按结果分类",
	}, []string{"result"}) // applied | invalid_signature | error

	sweptOrdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_swept_orders_total",
		Help: "被过期清扫回收的订单数",
	})
)
