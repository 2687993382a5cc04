// cmd/shop-service/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"ilotel/internal/pkg/bootstrap"
	"ilotel/internal/pkg/logger"
	"ilotel/internal/pkg/mq"
	"ilotel/internal/pkg/redis"
	"ilotel/internal/pkg/zookeeper"
	"ilotel/internal/service/shop/application"
	"ilotel/internal/service/shop/domain/port"
	"ilotel/internal/service/shop/infrastructure"
	"ilotel/internal/service/shop/infrastructure/adapter"
	"ilotel/internal/service/shop/infrastructure/rule"
	"ilotel/internal/service/shop/interfaces"
	"ilotel/internal/service/shop/interfaces/middleware"
)

const (
	serviceName = "shop-service"
	servicePort = 8080
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	tracer := otel.Tracer(serviceName)

	// 1. 存储层
	db, err := infrastructure.NewDB(cfg.Infra.Mysql.DSN)
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}

	ruleEngine, err := rule.NewCelRuleEngine()
	if err != nil {
		log.Fatalf("failed to initialize rule engine: %v", err)
	}

	orderRepo := infrastructure.NewGormOrderRepository(db)
	inventoryRepo := infrastructure.NewGormInventoryRepository(db)
	offerRepo := infrastructure.NewGormOfferRepository(db, ruleEngine)
	esimRepo := infrastructure.NewGormEsimRepository(db)

	// 2. 支付网关适配器
	payments := adapter.NewStripePaymentAdapter(cfg.Infra.Stripe.APIKey, cfg.Infra.Stripe.BaseURL, tracer)
	verifier := adapter.NewStripeWebhookVerifier(cfg.Infra.Stripe.WebhookSecret)

	// 3. 可选组件：不配置地址就退化为单机形态
	var notifier port.FulfillmentProducer
	if cfg.Infra.Kafka.Brokers != "" {
		kafkaWriter := mq.NewKafkaWriter(strings.Split(cfg.Infra.Kafka.Brokers, ","), cfg.Infra.Kafka.FulfillmentTopic)
		fulfillment := adapter.NewFulfillmentKafkaAdapter(kafkaWriter)
		defer fulfillment.Close()
		notifier = fulfillment
		log.Printf("✅ fulfillment events enabled on topic %s", cfg.Infra.Kafka.FulfillmentTopic)
	}

	var counterStore middleware.CounterStore = middleware.NewLocalCounterStore()
	if cfg.App.RateLimit.Store == "redis" {
		redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
		if err != nil {
			log.Fatalf("failed to initialize redis client: %v", err)
		}
		defer redisClient.Close()
		counterStore, err = adapter.NewRedisCounterAdapter(redisClient)
		if err != nil {
			log.Fatalf("failed to initialize redis counter: %v", err)
		}
		log.Println("✅ rate limiting backed by redis (shared across instances)")
	}

	var sweepLock application.SweepLock
	if cfg.Infra.Zookeeper.Servers != "" {
		zkConn, err := zookeeper.Connect(strings.Split(cfg.Infra.Zookeeper.Servers, ","))
		if err != nil {
			log.Fatalf("failed to connect to zookeeper: %v", err)
		}
		defer zkConn.Close()
		sweepLock = zookeeper.NewMutex(zkConn, "expiry-sweep")
		log.Println("✅ sweep coordinated via zookeeper lock")
	}

	// 4. 应用服务
	reservationWindow := time.Duration(cfg.App.ReservationWindowMinutes) * time.Minute
	shopService := application.NewShopService(orderRepo, inventoryRepo, offerRepo, esimRepo, payments, tracer, reservationWindow)
	reconciler := application.NewPaymentReconciler(orderRepo, inventoryRepo, verifier, notifier, tracer)
	sweeper := application.NewExpirySweeper(orderRepo, inventoryRepo, tracer, sweepLock)

	// 后台定时清扫，与 /cron 手动触发并存
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx, time.Duration(cfg.App.SweepIntervalMinutes)*time.Minute)

	rateLimiter := middleware.NewRateLimiter(counterStore, cfg.App.RateLimit)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			apiMux := http.NewServeMux()
			interfaces.NewShopHandler(shopService).RegisterRoutes(apiMux)
			interfaces.NewWebhookHandler(reconciler).RegisterRoutes(apiMux)
			interfaces.NewCronHandler(sweeper, cfg.App.CronSecret).RegisterRoutes(apiMux)
			appCtx.Mux.Handle("/", rateLimiter.Wrap(apiMux))
		},
		OnShutdown: func(ctx context.Context) {
			cancelSweep()
			sweeper.Stop()
		},
	})
}
