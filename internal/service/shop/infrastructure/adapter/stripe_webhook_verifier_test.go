// internal/service/shop/infrastructure/adapter/stripe_webhook_verifier_test.go
package adapter

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilotel/internal/service/shop/domain"
	"ilotel/internal/service/shop/domain/port"
)

const testSecret = "whsec_test_secret"

// signPayload 按 Stripe 的约定构造签名头
func signPayload(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func newVerifierAt(now time.Time) *StripeWebhookVerifier {
	v := NewStripeWebhookVerifier(testSecret)
	v.now = func() time.Time { return now }
	return v
}

func TestVerifyAndDecode(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	t.Run("valid signature", func(t *testing.T) {
		v := newVerifierAt(now)
		event, err := v.VerifyAndDecode(payload, signPayload(testSecret, now.Unix(), payload))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, port.EventPaymentSucceeded, event.Kind)
		assert.Equal(t, "pi_123", event.IntentID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		v := newVerifierAt(now)
		_, err := v.VerifyAndDecode(payload, signPayload("whsec_other", now.Unix(), payload))
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		v := newVerifierAt(now)
		header := signPayload(testSecret, now.Unix(), payload)
		tampered := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_999"}}}`)
		_, err := v.VerifyAndDecode(tampered, header)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("stale timestamp is a replay", func(t *testing.T) {
		v := newVerifierAt(now)
		stale := now.Add(-6 * time.Minute).Unix()
		_, err := v.VerifyAndDecode(payload, signPayload(testSecret, stale, payload))
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("slight clock skew is tolerated", func(t *testing.T) {
		v := newVerifierAt(now)
		skewed := now.Add(2 * time.Minute).Unix()
		_, err := v.VerifyAndDecode(payload, signPayload(testSecret, skewed, payload))
		assert.NoError(t, err)
	})

	t.Run("garbage header", func(t *testing.T) {
		v := newVerifierAt(now)
		for _, header := range []string{"", "t=abc,v1=00", "v1=00", "t=1700000000"} {
			_, err := v.VerifyAndDecode(payload, header)
			assert.ErrorIs(t, err, domain.ErrInvalidSignature, "header %q", header)
		}
	})

	t.Run("multiple v1 entries, one valid", func(t *testing.T) {
		v := newVerifierAt(now)
		mac := hmac.New(sha256.New, []byte(testSecret))
		fmt.Fprintf(mac, "%d.%s", now.Unix(), payload)
		header := fmt.Sprintf("t=%d,v1=deadbeef,v1=%s", now.Unix(), hex.EncodeToString(mac.Sum(nil)))
		_, err := v.VerifyAndDecode(payload, header)
		assert.NoError(t, err)
	})
}
