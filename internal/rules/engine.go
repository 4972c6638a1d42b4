// Package rules provides the CEL-Go based input validation engine.
//
// Rules screen prediction requests before they reach the model, replacing
// ad-hoc per-field range checks with configurable expressions that persist in
// the repository and hot-reload without a restart.
package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine is the CEL-based validation engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.RuleConfig
	Program cel.Program
}

// NewEngine creates a new validation engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// CEL environment exposing the feature vector both as a map and as
	// flattened variables for concise expressions.
	env, err := cel.NewEnv(
		cel.Variable("f", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("age", cel.DoubleType),
		cel.Variable("annual_income", cel.DoubleType),
		cel.Variable("monthly_salary", cel.DoubleType),
		cel.Variable("bank_accounts", cel.IntType),
		cel.Variable("credit_cards", cel.IntType),
		cel.Variable("interest_rate", cel.DoubleType),
		cel.Variable("num_loans", cel.IntType),
		cel.Variable("delay_days", cel.IntType),
		cel.Variable("delayed_payments", cel.IntType),
		cel.Variable("utilization", cel.DoubleType),
		cel.Variable("history_months", cel.IntType),
		cel.Variable("outstanding_debt", cel.DoubleType),
		cel.Variable("total_emi", cel.DoubleType),
		cel.Variable("invested_monthly", cel.DoubleType),
		cel.Variable("monthly_balance", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.RuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(configs []*domain.RuleConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// EvaluateAll evaluates all loaded rules against a feature vector in
// parallel and returns one result per rule.
func (e *Engine) EvaluateAll(ctx context.Context, features *domain.FeatureVector) ([]domain.RuleResult, error) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil, nil
	}

	activation := activationFor(features)

	results := make([]domain.RuleResult, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			results[idx] = e.evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	return results, nil
}

// activationFor builds the CEL variable bindings for a feature vector.
func activationFor(f *domain.FeatureVector) map[string]any {
	return map[string]any{
		"f": map[string]any{
			"Age":                      f.Age,
			"Occupation":               f.Occupation,
			"Annual_Income":            f.AnnualIncome,
			"Monthly_Inhand_Salary":    f.MonthlyInhandSalary,
			"Num_Bank_Accounts":        f.NumBankAccounts,
			"Num_Credit_Card":          f.NumCreditCard,
			"Interest_Rate":            f.InterestRate,
			"Num_of_Loan":              f.NumOfLoan,
			"Delay_from_due_date":      f.DelayFromDueDate,
			"Num_of_Delayed_Payment":   f.NumOfDelayedPayment,
			"Credit_Utilization_Ratio": f.CreditUtilizationRatio,
			"Credit_History_Age":       f.CreditHistoryAge,
			"Outstanding_Debt":         f.OutstandingDebt,
			"Total_EMI_per_month":      f.TotalEMIPerMonth,
			"Amount_invested_monthly":  f.AmountInvestedMonthly,
			"Monthly_Balance":          f.MonthlyBalance,
			"Credit_Mix":               f.CreditMix,
			"Payment_of_Min_Amount":    f.PaymentOfMinAmount,
			"Payment_Behaviour":        f.PaymentBehaviour,
		},
		"age":              f.Age,
		"annual_income":    f.AnnualIncome,
		"monthly_salary":   f.MonthlyInhandSalary,
		"bank_accounts":    f.NumBankAccounts,
		"credit_cards":     f.NumCreditCard,
		"interest_rate":    f.InterestRate,
		"num_loans":        f.NumOfLoan,
		"delay_days":       f.DelayFromDueDate,
		"delayed_payments": f.NumOfDelayedPayment,
		"utilization":      f.CreditUtilizationRatio,
		"history_months":   f.CreditHistoryAge,
		"outstanding_debt": f.OutstandingDebt,
		"total_emi":        f.TotalEMIPerMonth,
		"invested_monthly": f.AmountInvestedMonthly,
		"monthly_balance":  f.MonthlyBalance,
	}
}

// evaluateRule evaluates a single rule and returns the result.
func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any) domain.RuleResult {
	start := time.Now()

	result := domain.RuleResult{
		RuleID: rule.Config.ID,
	}

	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		result.SubRuleRef = domain.RuleOutcomeError
		result.Reason = fmt.Sprintf("evaluation error: %v", err)
		result.ProcessMs = time.Since(start).Milliseconds()
		return result
	}

	score := toScore(out)
	result.Score = score

	result.SubRuleRef, result.Reason = matchBand(score, rule.Config.Bands)
	result.ProcessMs = time.Since(start).Milliseconds()

	return result
}

// toScore converts a CEL value to a numeric score.
func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1.0
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}

// matchBand finds the matching band for a score.
// Bands are evaluated in order, lower inclusive, upper exclusive; a nil
// upper limit means infinity.
func matchBand(score float64, bands []domain.RuleBand) (string, string) {
	for _, band := range bands {
		lower := 0.0
		hasUpper := band.UpperLimit != nil
		upper := float64(1e9)

		if band.LowerLimit != nil {
			lower = *band.LowerLimit
		}
		if hasUpper {
			upper = *band.UpperLimit
		}

		if score >= lower && (!hasUpper || score < upper) {
			return band.SubRuleRef, band.Reason
		}
	}

	// Default to pass if no band matches
	return domain.RuleOutcomePass, "no matching band"
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(configs []*domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.RuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.RuleConfig, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.RuleConfig) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
