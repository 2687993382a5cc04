// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger 是全局的基础 logger，所有服务共享同一份输出配置
var Logger zerolog.Logger

func init() {
	// 默认输出到 stderr，生产环境由采集端负责落盘
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// Init 在服务启动时设置服务名等固定字段
func Init(serviceName string) {
	Logger = Logger.With().Str("service", serviceName).Logger()
}

// Ctx 返回一个绑定了当前链路信息的 logger。
// 如果 ctx 中存在有效的 Span，会自动附带 trace_id / span_id，
// 方便在日志平台中与 Jaeger 链路互相跳转。
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &Logger
	}
	l := Logger.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &l
}
