// Package worker runs dataset generation jobs from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/kestrel/internal/dataset"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/synth"
)

// Worker processes dataset generation requests asynchronously.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the dataset request topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicDatasetRequested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("dataset worker started",
		"topic", domain.TopicDatasetRequested,
	)
	return nil
}

// DatasetMessage is the payload for a dataset generation request.
type DatasetMessage struct {
	RunID     string  `json:"runId"`
	Rows      int     `json:"rows"`
	Seed      int64   `json:"seed"`
	Path      string  `json:"path"`
	NoiseRate float64 `json:"noiseRate"`
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	// Stop waits for in-flight runs before returning.
	w.wg.Add(1)
	defer w.wg.Done()

	var req DatasetMessage
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse dataset message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// A run that has started must record its outcome even if shutdown
	// cancels the subscription context mid-run.
	return w.processRun(context.WithoutCancel(ctx), &req)
}

// processRun generates the dataset and records the outcome.
func (w *Worker) processRun(ctx context.Context, req *DatasetMessage) error {
	start := time.Now()

	slog.Debug("processing dataset run",
		"run_id", req.RunID,
		"rows", req.Rows,
		"seed", req.Seed,
	)

	cfg := synth.DefaultConfig()
	cfg.Seed = req.Seed
	if req.NoiseRate > 0 {
		cfg.LabelNoiseRate = req.NoiseRate
	}

	records := dataset.New(cfg).Assemble(req.Rows)
	summary := dataset.Summarize(records)

	run := &domain.DatasetRun{
		ID:        req.RunID,
		Rows:      req.Rows,
		Seed:      req.Seed,
		Path:      req.Path,
		CreatedAt: time.Now().UTC(),
	}

	writeErr := dataset.WriteCSV(req.Path, records)

	done := time.Now().UTC()
	run.CompletedAt = &done

	if writeErr != nil {
		run.Status = domain.RunFailed
		run.Error = writeErr.Error()
		slog.Error("dataset run failed",
			"run_id", req.RunID,
			"error", writeErr,
		)
	} else {
		run.Status = domain.RunCompleted
		run.LabelCounts = summary.LabelCounts
	}

	if w.repo != nil {
		if err := w.repo.SaveDatasetRun(ctx, run); err != nil {
			slog.Error("failed to save dataset run",
				"run_id", req.RunID,
				"error", err,
			)
		}
	}

	resultPayload, _ := json.Marshal(run)
	if err := w.bus.Publish(ctx, domain.TopicDatasetCompleted, resultPayload); err != nil {
		slog.Error("failed to publish dataset completion",
			"run_id", req.RunID,
			"error", err,
		)
	}

	slog.Info("dataset run processed",
		"run_id", req.RunID,
		"status", run.Status,
		"rows", req.Rows,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return writeErr
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("dataset worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
