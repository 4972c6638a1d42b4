// Package classify assembles validation results and model output into a
// final prediction record.
package classify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Processor turns a scored request into a persisted-ready prediction.
type Processor struct {
	// RejectOnValidationFailure controls whether a failed validation rule
	// blocks the model output from being returned as a prediction.
	RejectOnValidationFailure bool
}

// NewProcessor creates a processor with default settings.
func NewProcessor() *Processor {
	return &Processor{
		RejectOnValidationFailure: true,
	}
}

// Input contains all data needed to assemble a prediction.
type Input struct {
	Features     *domain.FeatureVector
	RuleResults  []domain.RuleResult
	Output       *domain.ModelOutput
	TraceID      string
	ModelVersion string
	RulesMs      int64
	PredictMs    int64
	StartTime    time.Time
}

// Process assembles the final prediction from validation and model results.
func (p *Processor) Process(ctx context.Context, input *Input) *domain.Prediction {
	pred := &domain.Prediction{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		Features:    input.Features,
		RuleResults: input.RuleResults,
	}

	if input.Output != nil {
		pred.Label = input.Output.Label
		pred.Score = input.Output.Score
		pred.Probabilities = input.Output.Probabilities
		pred.Warnings = input.Output.Warnings
	}

	pred.Metadata = domain.PredictionMetadata{
		TraceID:      input.TraceID,
		RulesChecked: len(input.RuleResults),
		RulesMs:      input.RulesMs,
		PredictMs:    input.PredictMs,
		TotalMs:      time.Since(input.StartTime).Milliseconds(),
		ModelVersion: input.ModelVersion,
	}

	return pred
}

// ValidationFailed reports whether any rule result blocks the request.
func ValidationFailed(results []domain.RuleResult) bool {
	for _, r := range results {
		if r.SubRuleRef == domain.RuleOutcomeFail {
			return true
		}
	}
	return false
}

// FailureReasons extracts human-readable reasons from failed rule results.
func FailureReasons(results []domain.RuleResult) []string {
	var reasons []string
	for _, r := range results {
		if r.SubRuleRef == domain.RuleOutcomeFail && r.Reason != "" {
			reasons = append(reasons, r.Reason)
		}
	}
	return reasons
}
