// internal/service/shop/interfaces/cron_handler.go
package interfaces

import (
	"crypto/subtle"
	"net/http"

	"ilotel/internal/pkg/logger"
	"ilotel/internal/service/shop/application"
)

// CronHandler 暴露供外部调度器触发的维护任务。
// 服务自身也带定时清扫，这个入口让平台级 cron 可以按需补触发。
type CronHandler struct {
	sweeper *application.ExpirySweeper
	secret  string
}

func NewCronHandler(sweeper *application.ExpirySweeper, secret string) *CronHandler {
	return &CronHandler{sweeper: sweeper, secret: secret}
}

func (h *CronHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /cron/release-expired", h.releaseExpiredHandler)
}

func (h *CronHandler) releaseExpiredHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "api.ReleaseExpired")
	defer span.End()

	if h.secret == "" || subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Cron-Secret")), []byte(h.secret)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	released, err := h.sweeper.Sweep(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("manual sweep failed")
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	sweptOrdersTotal.Add(float64(len(released)))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"released": len(released),
		"orderIds": released,
	})
}
