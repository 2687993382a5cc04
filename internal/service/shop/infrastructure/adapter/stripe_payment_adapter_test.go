// internal/service/shop/infrastructure/adapter/stripe_payment_adapter_test.go
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

// fakeStripe 模拟 Stripe REST API 的最小子集
type fakeStripe struct {
	mux *http.ServeMux

	existingCustomerEmail string // 该邮箱的查询返回已有 customer
	createdCustomers      int
	cancelledIntents      []string
	intentRequests        []map[string]string
}

func newFakeStripe() *fakeStripe {
	f := &fakeStripe{mux: http.NewServeMux()}

	f.mux.HandleFunc("GET /v1/customers", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") == f.existingCustomerEmail {
			fmt.Fprint(w, `{"data":[{"id":"cus_existing"}]}`)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	})
	f.mux.HandleFunc("POST /v1/customers", func(w http.ResponseWriter, r *http.Request) {
		f.createdCustomers++
		fmt.Fprint(w, `{"id":"cus_new"}`)
	})
	f.mux.HandleFunc("POST /v1/ephemeral_keys", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Stripe-Version") == "" {
			http.Error(w, `{"error":"missing Stripe-Version"}`, http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"secret":"ek_secret"}`)
	})
	f.mux.HandleFunc("POST /v1/payment_intents", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		f.intentRequests = append(f.intentRequests, form)
		fmt.Fprint(w, `{"id":"pi_123","client_secret":"pi_123_secret"}`)
	})
	f.mux.HandleFunc("POST /v1/payment_intents/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		f.cancelledIntents = append(f.cancelledIntents, r.PathValue("id"))
		fmt.Fprint(w, `{"id":"`+r.PathValue("id")+`","client_secret":""}`)
	})

	return f
}

func newTestAdapter(t *testing.T) (*StripePaymentAdapter, *fakeStripe) {
	t.Helper()
	fake := newFakeStripe()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk_test_key" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		fake.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return NewStripePaymentAdapter("sk_test_key", server.URL, otel.Tracer("test")), fake
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("creates customer, key and intent", func(t *testing.T) {
		adapter, fake := newTestAdapter(t)

		session, err := adapter.CreateTransaction(ctx, "buyer@example.com", 1999, "order-1")
		require.NoError(t, err)
		assert.Equal(t, "pi_123", session.IntentID)
		assert.Equal(t, "cus_new", session.CustomerID)
		assert.Equal(t, "ek_secret", session.EphemeralKey)
		assert.Equal(t, "pi_123_secret", session.ClientSecret)

		assert.Equal(t, 1, fake.createdCustomers)
		require.Len(t, fake.intentRequests, 1)
		form := fake.intentRequests[0]
		assert.Equal(t, "1999", form["amount"])
		assert.Equal(t, "eur", form["currency"])
		assert.Equal(t, "order-1", form["metadata[orderId]"])
	})

	t.Run("reuses existing customer", func(t *testing.T) {
		adapter, fake := newTestAdapter(t)
		fake.existingCustomerEmail = "regular@example.com"

		session, err := adapter.CreateTransaction(ctx, "regular@example.com", 500, "order-2")
		require.NoError(t, err)
		assert.Equal(t, "cus_existing", session.CustomerID)
		assert.Equal(t, 0, fake.createdCustomers)
	})

	t.Run("wrong api key surfaces the stripe error", func(t *testing.T) {
		adapter, _ := newTestAdapter(t)
		adapter.apiKey = "sk_wrong"
		_, err := adapter.CreateTransaction(ctx, "buyer@example.com", 100, "order-3")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

func TestCancelTransaction(t *testing.T) {
	adapter, fake := newTestAdapter(t)
	require.NoError(t, adapter.CancelTransaction(context.Background(), "pi_123"))
	assert.Equal(t, []string{"pi_123"}, fake.cancelledIntents)
}
