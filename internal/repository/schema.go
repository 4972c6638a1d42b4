package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaPredictions = `
CREATE TABLE IF NOT EXISTS predictions (
    id TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    score REAL NOT NULL,
    probabilities TEXT NOT NULL,
    features TEXT NOT NULL,
    warnings TEXT,
    rule_results TEXT,
    timestamp TIMESTAMP NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predictions_label ON predictions(label);
CREATE INDEX IF NOT EXISTS idx_predictions_timestamp ON predictions(timestamp);
`

const schemaRuleConfigs = `
CREATE TABLE IF NOT EXISTS rule_configs (
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    bands TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, version)
);

CREATE INDEX IF NOT EXISTS idx_rule_configs_enabled ON rule_configs(enabled);
`

const schemaDatasetRuns = `
CREATE TABLE IF NOT EXISTS dataset_runs (
    id TEXT PRIMARY KEY,
    rows_requested INTEGER NOT NULL,
    seed INTEGER NOT NULL,
    path TEXT NOT NULL,
    status TEXT NOT NULL,
    label_counts TEXT,
    error TEXT,
    created_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_dataset_runs_status ON dataset_runs(status);
CREATE INDEX IF NOT EXISTS idx_dataset_runs_created ON dataset_runs(created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaPredictions,
		schemaRuleConfigs,
		schemaDatasetRuns,
	}
}
