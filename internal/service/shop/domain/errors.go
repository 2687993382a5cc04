// internal/service/shop/domain/errors.go
package domain

import "errors"

// 领域哨兵错误。接口层通过 errors.Is 把它们翻译成 HTTP 状态码。
var (
	ErrEsimNotFound     = errors.New("esim not found")
	ErrOfferNotFound    = errors.New("offer not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNotPending  = errors.New("order is not pending")
	ErrOfferNotSellable = errors.New("offer is not sellable")
	// ErrStockExhausted 是"售罄"这一预期业务结果，与一般冲突区分开，
	// 客户端据此展示明确的售罄文案而不是通用错误。
	ErrStockExhausted = errors.New("stock exhausted for this offer")
	// ErrInvalidSignature 表示 webhook 签名校验失败，任何状态都不得变更
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidContact   = errors.New("invalid buyer contact")
)
