package stats

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
)

func TestStatsService(t *testing.T) {
	// Create temp database
	tmpFile, err := os.CreateTemp("", "stats-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	lruCache := cache.NewLRUCache(100)
	defer lruCache.Close()

	svc := NewService(repo, lruCache)
	ctx := context.Background()

	t.Run("EmptyDatabase", func(t *testing.T) {
		summary, err := svc.Summarize(ctx, 3600)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Total != 0 {
			t.Errorf("expected 0 predictions for empty database, got %d", summary.Total)
		}
		if summary.LabelCounts[domain.ClassGood] != 0 {
			t.Errorf("expected zero Good count, got %d", summary.LabelCounts[domain.ClassGood])
		}
	})

	t.Run("WithPredictions", func(t *testing.T) {
		labels := []string{
			domain.ClassPoor,
			domain.ClassStandard,
			domain.ClassStandard,
			domain.ClassGood,
		}
		scores := []float64{30, 50, 60, 80}

		for i, label := range labels {
			pred := &domain.Prediction{
				ID:        fmt.Sprintf("pred-%d", i),
				Label:     label,
				Score:     scores[i],
				Timestamp: time.Now().UTC(),
			}
			if err := repo.SavePrediction(ctx, pred); err != nil {
				t.Fatalf("failed to save prediction: %v", err)
			}
		}

		summary, err := svc.Summarize(ctx, 3600)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if summary.Total != 4 {
			t.Errorf("expected 4 predictions, got %d", summary.Total)
		}
		if summary.LabelCounts[domain.ClassStandard] != 2 {
			t.Errorf("expected 2 Standard, got %d", summary.LabelCounts[domain.ClassStandard])
		}
		if summary.LabelShares[domain.ClassStandard] != 0.5 {
			t.Errorf("expected Standard share 0.5, got %f", summary.LabelShares[domain.ClassStandard])
		}
		if summary.MeanScore != 55 {
			t.Errorf("expected mean score 55, got %f", summary.MeanScore)
		}
	})

	t.Run("WindowExcludesOld", func(t *testing.T) {
		old := &domain.Prediction{
			ID:        "pred-old",
			Label:     domain.ClassPoor,
			Score:     10,
			Timestamp: time.Now().UTC().Add(-2 * time.Hour),
		}
		if err := repo.SavePrediction(ctx, old); err != nil {
			t.Fatalf("failed to save prediction: %v", err)
		}

		summary, err := svc.Summarize(ctx, 3600)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Total != 4 {
			t.Errorf("expected old prediction excluded, got total %d", summary.Total)
		}
	})

	t.Run("RequiresPositiveWindow", func(t *testing.T) {
		_, err := svc.Summarize(ctx, 0)
		if err == nil {
			t.Error("expected error for zero window")
		}
	})

	t.Run("RecordPrediction", func(t *testing.T) {
		count, err := svc.RecordPrediction(ctx, domain.ClassGood, 3600)
		if err != nil {
			t.Fatalf("RecordPrediction failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected count 1, got %d", count)
		}

		count, _ = svc.RecordPrediction(ctx, domain.ClassGood, 3600)
		if count != 2 {
			t.Errorf("expected count 2, got %d", count)
		}
	})
}

func TestRecordPredictionNoCache(t *testing.T) {
	svc := NewService(nil, nil)

	count, err := svc.RecordPrediction(context.Background(), domain.ClassPoor, 60)
	if err != nil {
		t.Fatalf("unexpected error without cache: %v", err)
	}
	if count != 0 {
		t.Errorf("expected count 0 without cache, got %d", count)
	}
}
