package rules

import (
	"context"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func validFeatures() *domain.FeatureVector {
	return &domain.FeatureVector{
		Age:                    30,
		AnnualIncome:           50000,
		MonthlyInhandSalary:    4000,
		NumBankAccounts:        2,
		NumCreditCard:          3,
		InterestRate:           12.5,
		NumOfLoan:              1,
		DelayFromDueDate:       5,
		NumOfDelayedPayment:    2,
		CreditUtilizationRatio: 30.5,
		CreditHistoryAge:       120,
		OutstandingDebt:        15000,
		MonthlyBalance:         1200,
	}
}

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine(5)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close()

	if engine.RulesCount() != 0 {
		t.Errorf("expected 0 rules, got %d", engine.RulesCount())
	}
}

func TestLoadRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.RuleConfig{
		ID:         "test-rule-001",
		Name:       "Test Rule",
		Expression: "age > 100.0",
		Bands:      []domain.RuleBand{},
		Enabled:    true,
	}

	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule, got %d", engine.RulesCount())
	}
}

func TestLoadInvalidRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.RuleConfig{
		ID:         "invalid-rule",
		Name:       "Invalid Rule",
		Expression: "this is not valid CEL !!!",
		Enabled:    true,
	}

	if err := engine.LoadRule(rule); err == nil {
		t.Error("expected error for invalid CEL expression")
	}
}

func TestEvaluateRangeRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRule(rangeRule("age-check", "Age Check",
		"age < 18.0 || age > 100.0", "age out of range"))

	ctx := context.Background()

	// In-range age passes
	features := validFeatures()
	results, err := engine.EvaluateAll(ctx, features)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].SubRuleRef != domain.RuleOutcomePass {
		t.Errorf("expected pass for age 30, got %s (%s)", results[0].SubRuleRef, results[0].Reason)
	}

	// Out-of-range age fails
	features.Age = 150
	results, _ = engine.EvaluateAll(ctx, features)
	if results[0].SubRuleRef != domain.RuleOutcomeFail {
		t.Errorf("expected fail for age 150, got %s", results[0].SubRuleRef)
	}
	if results[0].Reason != "age out of range" {
		t.Errorf("unexpected reason: %s", results[0].Reason)
	}
}

func TestEvaluateFeatureMapAccess(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRule(rangeRule("mix-check", "Credit Mix Known",
		`!(f["Credit_Mix"] in ["Good", "Standard", "Bad"])`,
		"unknown credit mix"))

	features := validFeatures()
	features.CreditMix = "Good"

	results, err := engine.EvaluateAll(context.Background(), features)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if results[0].SubRuleRef != domain.RuleOutcomePass {
		t.Errorf("expected pass, got %s (%s)", results[0].SubRuleRef, results[0].Reason)
	}

	features.CreditMix = "Mystery"
	results, _ = engine.EvaluateAll(context.Background(), features)
	if results[0].SubRuleRef != domain.RuleOutcomeFail {
		t.Errorf("expected fail for unknown mix, got %s", results[0].SubRuleRef)
	}
}

func TestDefaultRuleConfigs(t *testing.T) {
	engine, err := NewEngine(5)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close()

	defaults := DefaultRuleConfigs()
	if len(defaults) == 0 {
		t.Fatal("expected non-empty default rules")
	}

	// Every default rule must compile against the engine environment.
	if err := engine.LoadRules(defaults); err != nil {
		t.Fatalf("failed to load default rules: %v", err)
	}
	if engine.RulesCount() != len(defaults) {
		t.Errorf("expected %d rules loaded, got %d", len(defaults), engine.RulesCount())
	}

	t.Run("ValidInputPassesAll", func(t *testing.T) {
		results, err := engine.EvaluateAll(context.Background(), validFeatures())
		if err != nil {
			t.Fatalf("evaluation failed: %v", err)
		}
		for _, r := range results {
			if r.SubRuleRef != domain.RuleOutcomePass {
				t.Errorf("rule %s: expected pass, got %s (%s)", r.RuleID, r.SubRuleRef, r.Reason)
			}
		}
	})

	t.Run("InvalidInputFails", func(t *testing.T) {
		features := validFeatures()
		features.Age = 12
		features.CreditUtilizationRatio = 140

		results, _ := engine.EvaluateAll(context.Background(), features)

		failed := map[string]bool{}
		for _, r := range results {
			if r.SubRuleRef == domain.RuleOutcomeFail {
				failed[r.RuleID] = true
			}
		}
		if !failed["validate-age"] {
			t.Error("expected validate-age to fail for age 12")
		}
		if !failed["validate-utilization"] {
			t.Error("expected validate-utilization to fail for 140%")
		}
		if len(failed) != 2 {
			t.Errorf("expected exactly 2 failures, got %v", failed)
		}
	})
}

func TestReloadRules(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRules(DefaultRuleConfigs())
	before := engine.RulesCount()

	replacement := []*domain.RuleConfig{
		rangeRule("only-rule", "Only Rule", "age < 0.0", "impossible"),
	}
	if err := engine.ReloadRules(replacement); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule after reload (was %d), got %d", before, engine.RulesCount())
	}
}

func TestReloadSkipsDisabled(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	disabled := rangeRule("off-rule", "Disabled", "age < 0.0", "impossible")
	disabled.Enabled = false

	if err := engine.ReloadRules([]*domain.RuleConfig{disabled}); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if engine.RulesCount() != 0 {
		t.Errorf("expected 0 rules, got %d", engine.RulesCount())
	}
}

func TestMatchBandDefaultsToPass(t *testing.T) {
	ref, _ := matchBand(0.5, nil)
	if ref != domain.RuleOutcomePass {
		t.Errorf("expected default pass, got %s", ref)
	}
}
