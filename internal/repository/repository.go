// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SavePrediction stores a prediction result.
func (r *SQLRepository) SavePrediction(ctx context.Context, pred *domain.Prediction) error {
	if pred == nil || pred.ID == "" {
		return fmt.Errorf("%w: prediction with ID is required", ErrInvalidInput)
	}

	probabilities, _ := json.Marshal(pred.Probabilities)
	features, _ := json.Marshal(pred.Features)
	warnings, _ := json.Marshal(pred.Warnings)
	ruleResults, _ := json.Marshal(pred.RuleResults)
	metadata, _ := json.Marshal(pred.Metadata)

	query := `
		INSERT INTO predictions (
			id, label, score, probabilities, features,
			warnings, rule_results, timestamp, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		pred.ID, pred.Label, pred.Score,
		string(probabilities), string(features),
		string(warnings), string(ruleResults),
		pred.Timestamp, string(metadata),
	)
	return err
}

// GetPrediction retrieves a prediction by ID.
func (r *SQLRepository) GetPrediction(ctx context.Context, predID string) (*domain.Prediction, error) {
	if predID == "" {
		return nil, fmt.Errorf("%w: prediction ID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, label, score, probabilities, features,
			   warnings, rule_results, timestamp, metadata
		FROM predictions
		WHERE id = ?
	`

	var pred domain.Prediction
	var probabilities, features, warnings, ruleResults, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), predID).Scan(
		&pred.ID, &pred.Label, &pred.Score,
		&probabilities, &features,
		&warnings, &ruleResults,
		&pred.Timestamp, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(probabilities), &pred.Probabilities)
	json.Unmarshal([]byte(features), &pred.Features)
	json.Unmarshal([]byte(warnings), &pred.Warnings)
	json.Unmarshal([]byte(ruleResults), &pred.RuleResults)
	json.Unmarshal([]byte(metadata), &pred.Metadata)

	return &pred, nil
}

// ListPredictionsSince retrieves predictions made at or after the given time.
func (r *SQLRepository) ListPredictionsSince(ctx context.Context, since time.Time) ([]*domain.Prediction, error) {
	query := `
		SELECT id, label, score, probabilities, features,
			   warnings, rule_results, timestamp, metadata
		FROM predictions
		WHERE timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []*domain.Prediction
	for rows.Next() {
		var pred domain.Prediction
		var probabilities, features, warnings, ruleResults, metadata string

		if err := rows.Scan(
			&pred.ID, &pred.Label, &pred.Score,
			&probabilities, &features,
			&warnings, &ruleResults,
			&pred.Timestamp, &metadata,
		); err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(probabilities), &pred.Probabilities)
		json.Unmarshal([]byte(features), &pred.Features)
		json.Unmarshal([]byte(warnings), &pred.Warnings)
		json.Unmarshal([]byte(ruleResults), &pred.RuleResults)
		json.Unmarshal([]byte(metadata), &pred.Metadata)

		preds = append(preds, &pred)
	}

	return preds, rows.Err()
}

// SaveRuleConfig stores a validation rule configuration.
func (r *SQLRepository) SaveRuleConfig(ctx context.Context, rule *domain.RuleConfig) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule with ID is required", ErrInvalidInput)
	}

	bands, _ := json.Marshal(rule.Bands)

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO rule_configs (
			id, name, description, version, expression, bands, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			bands = excluded.bands,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description,
		rule.Version, rule.Expression, string(bands), enabled,
		now, now,
	)
	return err
}

// GetRuleConfig retrieves the latest enabled version of a rule.
func (r *SQLRepository) GetRuleConfig(ctx context.Context, ruleID string) (*domain.RuleConfig, error) {
	if ruleID == "" {
		return nil, fmt.Errorf("%w: rule ID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, name, description, version, expression, bands, enabled
		FROM rule_configs
		WHERE id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var cfg domain.RuleConfig
	var bands string
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), ruleID).Scan(
		&cfg.ID, &cfg.Name, &cfg.Description,
		&cfg.Version, &cfg.Expression, &bands, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg.Enabled = enabled == 1
	json.Unmarshal([]byte(bands), &cfg.Bands)

	return &cfg, nil
}

// ListRuleConfigs retrieves all active rule configurations.
func (r *SQLRepository) ListRuleConfigs(ctx context.Context) ([]*domain.RuleConfig, error) {
	query := `
		SELECT id, name, description, version, expression, bands, enabled
		FROM rule_configs
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.RuleConfig
	for rows.Next() {
		var cfg domain.RuleConfig
		var bands string
		var enabled int

		if err := rows.Scan(
			&cfg.ID, &cfg.Name, &cfg.Description,
			&cfg.Version, &cfg.Expression, &bands, &enabled,
		); err != nil {
			return nil, err
		}

		cfg.Enabled = enabled == 1
		json.Unmarshal([]byte(bands), &cfg.Bands)
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// SaveDatasetRun stores or updates a dataset generation run.
func (r *SQLRepository) SaveDatasetRun(ctx context.Context, run *domain.DatasetRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: run with ID is required", ErrInvalidInput)
	}

	labelCounts, _ := json.Marshal(run.LabelCounts)

	query := `
		INSERT INTO dataset_runs (
			id, rows_requested, seed, path, status, label_counts, error, created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			label_counts = excluded.label_counts,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		run.ID, run.Rows, run.Seed, run.Path, run.Status,
		string(labelCounts), run.Error, run.CreatedAt, run.CompletedAt,
	)
	return err
}

// GetDatasetRun retrieves a dataset run by ID.
func (r *SQLRepository) GetDatasetRun(ctx context.Context, runID string) (*domain.DatasetRun, error) {
	if runID == "" {
		return nil, fmt.Errorf("%w: run ID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, rows_requested, seed, path, status, label_counts, error, created_at, completed_at
		FROM dataset_runs
		WHERE id = ?
	`

	run, err := scanDatasetRun(r.db.QueryRowContext(ctx, r.rebind(query), runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// ListDatasetRuns retrieves all dataset runs, newest first.
func (r *SQLRepository) ListDatasetRuns(ctx context.Context) ([]*domain.DatasetRun, error) {
	query := `
		SELECT id, rows_requested, seed, path, status, label_counts, error, created_at, completed_at
		FROM dataset_runs
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.DatasetRun
	for rows.Next() {
		run, err := scanDatasetRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDatasetRun(row rowScanner) (*domain.DatasetRun, error) {
	var run domain.DatasetRun
	var labelCounts sql.NullString
	var errMsg sql.NullString
	var completedAt sql.NullTime

	if err := row.Scan(
		&run.ID, &run.Rows, &run.Seed, &run.Path, &run.Status,
		&labelCounts, &errMsg, &run.CreatedAt, &completedAt,
	); err != nil {
		return nil, err
	}

	if labelCounts.Valid && labelCounts.String != "" {
		json.Unmarshal([]byte(labelCounts.String), &run.LabelCounts)
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}

	return &run, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
