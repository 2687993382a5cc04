// internal/service/shop/infrastructure/rule/cel_rule_engine_test.go
package rule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilotel/internal/service/shop/domain"
)

func TestCelRuleEngine_Evaluate(t *testing.T) {
	engine, err := NewCelRuleEngine()
	require.NoError(t, err)

	fact := domain.DiscountFact{
		BasePrice:    19.99,
		DataGB:       10,
		DurationDays: 30,
		Now:          time.Now(),
	}

	tests := []struct {
		rule string
		want bool
	}{
		{"data_gb >= 10", true},
		{"data_gb > 10", false},
		{"base_price > 15.0 && duration_days == 30", true},
		{"base_price < 5.0 || data_gb >= 50", false},
	}
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			got, err := engine.Evaluate(tt.rule, fact)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid expression", func(t *testing.T) {
		_, err := engine.Evaluate("data_gb >=", fact)
		assert.Error(t, err)
	})

	t.Run("undeclared variable", func(t *testing.T) {
		_, err := engine.Evaluate("user_segment == 'vip'", fact)
		assert.Error(t, err)
	})

	t.Run("non-bool result", func(t *testing.T) {
		_, err := engine.Evaluate("base_price + 1.0", fact)
		assert.Error(t, err)
	})
}

// 同一表达式的重复求值要命中编译缓存，并发下也必须安全
func TestCelRuleEngine_ConcurrentEvaluate(t *testing.T) {
	engine, err := NewCelRuleEngine()
	require.NoError(t, err)

	fact := domain.DiscountFact{BasePrice: 10, DataGB: 5, DurationDays: 7, Now: time.Now()}

	done := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		go func() {
			got, err := engine.Evaluate("duration_days < 10", fact)
			done <- err == nil && got
		}()
	}
	for i := 0; i < 20; i++ {
		assert.True(t, <-done)
	}
}
