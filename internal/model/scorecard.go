package model

import (
	"context"
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Scorecard implements domain.Predictor with a weighted linear scorecard.
// Immutable after construction and safe for concurrent use.
type Scorecard struct {
	artifact   *Artifact
	loadedFrom string
}

// NewScorecard creates a predictor from a loaded artifact.
func NewScorecard(art *Artifact) *Scorecard {
	return &Scorecard{artifact: art}
}

// Load reads the artifact at path and wraps it in a Scorecard.
func Load(path string) (*Scorecard, error) {
	art, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return &Scorecard{artifact: art, loadedFrom: path}, nil
}

// Predict scores a feature vector and maps it to a class with per-class
// pseudo-probabilities. The label is authoritative from the thresholds; the
// probabilities are confidence estimates derived from score distance.
func (s *Scorecard) Predict(ctx context.Context, f *domain.FeatureVector) (*domain.ModelOutput, error) {
	_, warnings := EncodeCategoricals(f)

	score := s.score(f)
	label := s.classify(score)

	return &domain.ModelOutput{
		Label:         label,
		Score:         score,
		Probabilities: s.probabilities(score),
		Warnings:      warnings,
	}, nil
}

// Info describes the loaded artifact.
func (s *Scorecard) Info() *domain.ModelInfo {
	return &domain.ModelInfo{
		Version:       s.artifact.Version,
		TargetClasses: s.artifact.TargetClasses,
		Features:      s.artifact.Features,
		Metrics:       s.artifact.Metrics,
		LoadedFrom:    s.loadedFrom,
	}
}

// score computes the weighted sub-score combination on a 0-100 scale.
// Ratio terms short-circuit to 0 when their denominator is zero.
func (s *Scorecard) score(f *domain.FeatureVector) float64 {
	w := s.artifact.Weights

	total := float64(f.CreditHistoryAge)/300*w.HistoryLength +
		(1-float64(f.DelayFromDueDate)/60)*w.Timeliness

	if f.AnnualIncome > 0 {
		total += (1 - f.OutstandingDebt/f.AnnualIncome) * w.DebtRatio
	}
	if f.MonthlyInhandSalary > 0 {
		total += f.MonthlyBalance / f.MonthlyInhandSalary * w.BalanceRatio
	}

	total += (1 - float64(f.NumOfDelayedPayment)/10) * w.DelinquencyRate

	return total * 100
}

func (s *Scorecard) classify(score float64) string {
	switch {
	case score >= s.artifact.Thresholds.Good:
		return domain.ClassGood
	case score >= s.artifact.Thresholds.Standard:
		return domain.ClassStandard
	default:
		return domain.ClassPoor
	}
}

// probabilityTemperature controls how sharply confidence decays with score
// distance from each class center.
const probabilityTemperature = 15.0

// probabilities produces a softmax over negative score distance to the class
// centers. Centers sit symmetric around the thresholds so confidence peaks
// mid-band and splits evenly at a boundary.
func (s *Scorecard) probabilities(score float64) map[string]float64 {
	th := s.artifact.Thresholds
	standardCenter := (th.Good + th.Standard) / 2           // mid Standard band
	poorCenter := 2*th.Standard - standardCenter            // mirrored below
	goodCenter := 2*th.Good - standardCenter                // mirrored above

	centers := map[string]float64{
		domain.ClassPoor:     poorCenter,
		domain.ClassStandard: standardCenter,
		domain.ClassGood:     goodCenter,
	}

	probs := make(map[string]float64, len(centers))
	var sum float64
	for class, center := range centers {
		p := math.Exp(-math.Abs(score-center) / probabilityTemperature)
		probs[class] = p
		sum += p
	}
	for class := range probs {
		probs[class] /= sum
	}
	return probs
}
