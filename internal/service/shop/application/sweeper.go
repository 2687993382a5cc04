// internal/service/shop/application/sweeper.go
package application

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ilotel/internal/pkg/logger"
	"ilotel/internal/service/shop/domain"
)

// SweepLock 让多副本部署下每个周期只有一个实例执行清扫。
// 锁被占用时返回 zookeeper.ErrLockHeld，本轮直接跳过。
type SweepLock interface {
	TryLock() error
	Unlock() error
}

// ExpirySweeper 周期性回收过期且未进入支付的预订。
// 超时完全由 reservedUntil 数据驱动，进程重启不会丢失回收任务。
type ExpirySweeper struct {
	orders    domain.OrderRepository
	inventory domain.InventoryRepository
	tracer    trace.Tracer
	lock      SweepLock // 可为 nil（单实例部署）

	mu      sync.Mutex // 兜底：同进程内 ticker 与 cron 触发不重叠
	stopped chan struct{}
}

func NewExpirySweeper(
	orders domain.OrderRepository,
	inventory domain.InventoryRepository,
	tracer trace.Tracer,
	lock SweepLock,
) *ExpirySweeper {
	return &ExpirySweeper{
		orders:    orders,
		inventory: inventory,
		tracer:    tracer,
		lock:      lock,
		stopped:   make(chan struct{}),
	}
}

// Sweep 执行一轮回收，返回被回收的订单 id 列表。
// 空结果不是错误。已有支付引用的订单被刻意排除：
// 进行中的支付必须由对账器收尾，不能被时间抢占。
func (s *ExpirySweeper) Sweep(ctx context.Context) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "sweeper.Sweep")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock != nil {
		if err := s.lock.TryLock(); err != nil {
			logger.Ctx(ctx).Debug().Err(err).Msg("sweep skipped, another instance holds the lock")
			return nil, nil
		}
		defer func() {
			if err := s.lock.Unlock(); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	expired, err := s.orders.FindExpiredPending(ctx, time.Now())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	// 单个订单回收失败不阻塞其余订单，失败的留给下一轮
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	swept := make([]string, 0, len(expired))
	var sweptMu sync.Mutex

	for _, order := range expired {
		g.Go(func() error {
			if err := s.orders.UpdateStatus(gctx, order.ID, domain.OrderFailed); err != nil {
				logger.Ctx(gctx).Error().Err(err).Str("order_id", order.ID).
					Msg("sweep: failed to mark order failed")
				return nil
			}
			if err := s.inventory.Release(gctx, order.ID); err != nil {
				logger.Ctx(gctx).Error().Err(err).Str("order_id", order.ID).
					Msg("sweep: failed to release inventory unit")
				return nil
			}
			sweptMu.Lock()
			swept = append(swept, order.ID)
			sweptMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(attribute.Int("sweep.released", len(swept)))
	logger.Ctx(ctx).Info().Int("released", len(swept)).Msg("expired reservations released")
	return swept, nil
}

// Run 以固定间隔执行清扫，直到 ctx 或 Stop 终止它
func (s *ExpirySweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Ctx(ctx).Info().Dur("interval", interval).Msg("expiry sweeper started")
	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("scheduled sweep failed")
			}
		case <-ctx.Done():
			return
		case <-s.stopped:
			return
		}
	}
}

// Stop 终止后台循环
func (s *ExpirySweeper) Stop() {
	close(s.stopped)
}
