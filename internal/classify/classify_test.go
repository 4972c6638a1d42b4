package classify

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestProcess(t *testing.T) {
	p := NewProcessor()

	output := &domain.ModelOutput{
		Label: domain.ClassGood,
		Score: 82.5,
		Probabilities: map[string]float64{
			domain.ClassPoor:     0.05,
			domain.ClassStandard: 0.2,
			domain.ClassGood:     0.75,
		},
	}

	input := &Input{
		Features: &domain.FeatureVector{Age: 35},
		RuleResults: []domain.RuleResult{
			{RuleID: "validate-age", SubRuleRef: domain.RuleOutcomePass},
		},
		Output:       output,
		TraceID:      "trace-123",
		ModelVersion: "scorecard-1.0",
		RulesMs:      3,
		PredictMs:    1,
		StartTime:    time.Now().Add(-10 * time.Millisecond),
	}

	pred := p.Process(context.Background(), input)

	if pred.ID == "" {
		t.Error("expected non-empty prediction ID")
	}
	if pred.Label != domain.ClassGood {
		t.Errorf("expected Good, got %s", pred.Label)
	}
	if pred.Score != 82.5 {
		t.Errorf("expected score 82.5, got %f", pred.Score)
	}
	if pred.Metadata.TraceID != "trace-123" {
		t.Errorf("expected trace-123, got %s", pred.Metadata.TraceID)
	}
	if pred.Metadata.RulesChecked != 1 {
		t.Errorf("expected 1 rule checked, got %d", pred.Metadata.RulesChecked)
	}
	if pred.Metadata.ModelVersion != "scorecard-1.0" {
		t.Errorf("unexpected model version %s", pred.Metadata.ModelVersion)
	}
	if pred.Metadata.TotalMs < 10 {
		t.Errorf("expected total >= 10ms, got %d", pred.Metadata.TotalMs)
	}
	if pred.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestProcessUniqueIDs(t *testing.T) {
	p := NewProcessor()
	input := &Input{
		Features:  &domain.FeatureVector{},
		StartTime: time.Now(),
	}

	a := p.Process(context.Background(), input)
	b := p.Process(context.Background(), input)
	if a.ID == b.ID {
		t.Errorf("expected unique IDs, got %s twice", a.ID)
	}
}

func TestValidationFailed(t *testing.T) {
	tests := []struct {
		name    string
		results []domain.RuleResult
		want    bool
	}{
		{"NoResults", nil, false},
		{"AllPass", []domain.RuleResult{
			{SubRuleRef: domain.RuleOutcomePass},
			{SubRuleRef: domain.RuleOutcomePass},
		}, false},
		{"OneFail", []domain.RuleResult{
			{SubRuleRef: domain.RuleOutcomePass},
			{SubRuleRef: domain.RuleOutcomeFail},
		}, true},
		{"ErrorOnly", []domain.RuleResult{
			{SubRuleRef: domain.RuleOutcomeError},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidationFailed(tt.results); got != tt.want {
				t.Errorf("ValidationFailed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailureReasons(t *testing.T) {
	results := []domain.RuleResult{
		{SubRuleRef: domain.RuleOutcomePass, Reason: "within range"},
		{SubRuleRef: domain.RuleOutcomeFail, Reason: "age must be between 18 and 100"},
		{SubRuleRef: domain.RuleOutcomeFail, Reason: ""},
	}

	reasons := FailureReasons(results)
	if len(reasons) != 1 {
		t.Fatalf("expected 1 reason, got %v", reasons)
	}
	if reasons[0] != "age must be between 18 and 100" {
		t.Errorf("unexpected reason: %s", reasons[0])
	}
}
