package rules

import "github.com/opensource-finance/kestrel/internal/domain"

// rangeBands maps the boolean violation score to outcomes: 0 passes, 1 fails.
func rangeBands(reason string) []domain.RuleBand {
	zero := 0.0
	one := 1.0
	return []domain.RuleBand{
		{LowerLimit: &zero, UpperLimit: &one, SubRuleRef: domain.RuleOutcomePass, Reason: "within range"},
		{LowerLimit: &one, SubRuleRef: domain.RuleOutcomeFail, Reason: reason},
	}
}

func rangeRule(id, name, expression, reason string) *domain.RuleConfig {
	return &domain.RuleConfig{
		ID:         id,
		Name:       name,
		Version:    "1.0.0",
		Expression: expression,
		Bands:      rangeBands(reason),
		Enabled:    true,
	}
}

// DefaultRuleConfigs returns the stock input validation rules, seeded into
// the repository on first start. Each expression scores 1.0 when the field
// is outside its accepted range.
func DefaultRuleConfigs() []*domain.RuleConfig {
	return []*domain.RuleConfig{
		rangeRule("validate-age", "Age Range",
			"age < 18.0 || age > 100.0",
			"age must be between 18 and 100"),
		rangeRule("validate-annual-income", "Annual Income Range",
			"annual_income < 0.0 || annual_income > 10000000.0",
			"annual income must be between 0 and 10,000,000"),
		rangeRule("validate-monthly-salary", "Monthly Salary Range",
			"monthly_salary < 0.0 || monthly_salary > 1000000.0",
			"monthly in-hand salary must be between 0 and 1,000,000"),
		rangeRule("validate-bank-accounts", "Bank Account Count",
			"bank_accounts < 0 || bank_accounts > 20",
			"number of bank accounts must be between 0 and 20"),
		rangeRule("validate-credit-cards", "Credit Card Count",
			"credit_cards < 0 || credit_cards > 20",
			"number of credit cards must be between 0 and 20"),
		rangeRule("validate-interest-rate", "Interest Rate Range",
			"interest_rate < 0.0 || interest_rate > 50.0",
			"interest rate must be between 0 and 50 percent"),
		rangeRule("validate-num-loans", "Loan Count",
			"num_loans < 0 || num_loans > 20",
			"number of loans must be between 0 and 20"),
		rangeRule("validate-delay-days", "Payment Delay Range",
			"delay_days < 0 || delay_days > 365",
			"delay from due date must be between 0 and 365 days"),
		rangeRule("validate-delayed-payments", "Delayed Payment Count",
			"delayed_payments < 0 || delayed_payments > 50",
			"number of delayed payments must be between 0 and 50"),
		rangeRule("validate-utilization", "Credit Utilization Range",
			"utilization < 0.0 || utilization > 100.0",
			"credit utilization ratio must be between 0 and 100"),
		rangeRule("validate-history-age", "Credit History Range",
			"history_months < 0 || history_months > 600",
			"credit history age must be between 0 and 600 months"),
		rangeRule("validate-monthly-balance", "Monthly Balance Range",
			"monthly_balance < -100000.0 || monthly_balance > 100000.0",
			"monthly balance must be between -100,000 and 100,000"),
	}
}
