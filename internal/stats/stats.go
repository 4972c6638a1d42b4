// Package stats computes prediction volume and label distribution metrics.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Service aggregates prediction statistics over a time window.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new stats service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// Summary describes prediction activity within a window.
type Summary struct {
	WindowSecs  int                `json:"windowSecs"`
	Total       int                `json:"total"`
	LabelCounts map[string]int     `json:"labelCounts"`
	LabelShares map[string]float64 `json:"labelShares"`
	MeanScore   float64            `json:"meanScore"`
}

// Summarize returns the label distribution of predictions made within the
// last windowSecs seconds.
func (s *Service) Summarize(ctx context.Context, windowSecs int) (*Summary, error) {
	if windowSecs <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", windowSecs)
	}

	since := time.Now().Add(-time.Duration(windowSecs) * time.Second)

	preds, err := s.repo.ListPredictionsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}

	summary := &Summary{
		WindowSecs:  windowSecs,
		Total:       len(preds),
		LabelCounts: make(map[string]int, len(domain.Classes)),
		LabelShares: make(map[string]float64, len(domain.Classes)),
	}
	for _, class := range domain.Classes {
		summary.LabelCounts[class] = 0
	}

	var scoreSum float64
	for _, p := range preds {
		summary.LabelCounts[p.Label]++
		scoreSum += p.Score
	}

	if summary.Total > 0 {
		summary.MeanScore = scoreSum / float64(summary.Total)
		for class, count := range summary.LabelCounts {
			summary.LabelShares[class] = float64(count) / float64(summary.Total)
		}
	}

	return summary, nil
}

// RecordPrediction bumps the windowed counter for a label. Counter failures
// are reported but never block the prediction path.
func (s *Service) RecordPrediction(ctx context.Context, label string, windowSecs int) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}

	key := fmt.Sprintf("count:label:%s", label)
	count, err := s.cache.IncrementCounter(ctx, key, time.Duration(windowSecs)*time.Second)
	if err != nil {
		return 0, fmt.Errorf("failed to increment label counter: %w", err)
	}
	return count, nil
}
