// internal/service/shop/infrastructure/rule/cel_rule_engine.go
package rule

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"ilotel/internal/service/shop/domain"
)

// CelRuleEngine 是 domain.RuleEngine 的 CEL 实现。
// 折扣上的规则表达式（如 "data_gb >= 10 && base_price > 15.0"）
// 在这里编译并对 offer 事实求值。典型的适配器：把第三方表达式引擎
// 适配到我们自己的领域接口上。
type CelRuleEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program // 按表达式缓存编译产物
}

// NewCelRuleEngine 创建规则引擎，声明规则可引用的全部变量
func NewCelRuleEngine() (*CelRuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("base_price", cel.DoubleType),
		cel.Variable("data_gb", cel.IntType),
		cel.Variable("duration_days", cel.IntType),
		cel.Variable("now", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CelRuleEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate 实现 domain.RuleEngine
func (e *CelRuleEngine) Evaluate(ruleExpr string, fact domain.DiscountFact) (bool, error) {
	prg, err := e.compile(ruleExpr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"base_price":    fact.BasePrice,
		"data_gb":       fact.DataGB,
		"duration_days": fact.DurationDays,
		"now":           fact.Now,
	})
	if err != nil {
		return false, fmt.Errorf("rule evaluation failed: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule must evaluate to bool, got %T", out.Value())
	}
	return result, nil
}

func (e *CelRuleEngine) compile(ruleExpr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[ruleExpr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(ruleExpr)
	if iss.Err() != nil {
		return nil, fmt.Errorf("invalid rule expression: %w", iss.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule program: %w", err)
	}

	e.mu.Lock()
	e.programs[ruleExpr] = prg
	e.mu.Unlock()
	return prg, nil
}
