package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Prediction results
	SavePrediction(ctx context.Context, pred *Prediction) error
	GetPrediction(ctx context.Context, predID string) (*Prediction, error)
	ListPredictionsSince(ctx context.Context, since time.Time) ([]*Prediction, error)

	// Validation rule configuration
	SaveRuleConfig(ctx context.Context, rule *RuleConfig) error
	GetRuleConfig(ctx context.Context, ruleID string) (*RuleConfig, error)
	ListRuleConfigs(ctx context.Context) ([]*RuleConfig, error)

	// Dataset generation runs
	SaveDatasetRun(ctx context.Context, run *DatasetRun) error
	GetDatasetRun(ctx context.Context, runID string) (*DatasetRun, error)
	ListDatasetRuns(ctx context.Context) ([]*DatasetRun, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// DatasetRun records one synthetic dataset generation job.
type DatasetRun struct {
	ID          string         `json:"id"`
	Rows        int            `json:"rows"`
	Seed        int64          `json:"seed"`
	Path        string         `json:"path"`
	Status      string         `json:"status"` // "pending", "completed", "failed"
	LabelCounts map[string]int `json:"labelCounts,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// Dataset run statuses.
const (
	RunPending   = "pending"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
