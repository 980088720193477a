package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lnup/eventscout/internal/models"
)

const defaultInferenceLogLimit = 100

// InferenceLogRepository persists language-model call records.
type InferenceLogRepository struct {
	db *sql.DB
}

func NewInferenceLogRepository(db *sql.DB) *InferenceLogRepository {
	return &InferenceLogRepository{db: db}
}

// Create inserts one inference log row.
func (r *InferenceLogRepository) Create(ctx context.Context, log models.InferenceLog) error {
	query := `
		INSERT INTO inference_logs (
			provider, model, operation, tokens_used, input_tokens, output_tokens,
			cost_usd, latency_ms, attempts, status, error_message, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var metadata interface{}
	if log.Metadata != "" {
		metadata = log.Metadata
	}
	attempts := log.Attempts
	if attempts < 1 {
		attempts = 1
	}

	_, err := r.db.ExecContext(ctx, query,
		log.Provider,
		log.Model,
		log.Operation,
		log.TokensUsed,
		log.InputTokens,
		log.OutputTokens,
		log.CostUSD,
		log.LatencyMs,
		attempts,
		log.Status,
		log.ErrorMessage,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert inference log: %w", err)
	}
	return nil
}

// List returns the most recent logs matching the query, newest first.
func (r *InferenceLogRepository) List(ctx context.Context, query models.InferenceLogQuery) ([]models.InferenceLog, error) {
	sqlQuery := `
		SELECT id, provider, model, operation, tokens_used, input_tokens, output_tokens,
		       cost_usd, latency_ms, attempts, status, error_message,
		       COALESCE(metadata::text, ''), created_at
		FROM inference_logs
		WHERE 1=1
	`
	args := []interface{}{}
	argPos := 1

	for _, filter := range []struct{ column, value string }{
		{"provider", query.Provider},
		{"operation", query.Operation},
		{"status", query.Status},
	} {
		if filter.value == "" {
			continue
		}
		sqlQuery += fmt.Sprintf(" AND %s = $%d", filter.column, argPos)
		args = append(args, filter.value)
		argPos++
	}

	limit := query.Limit
	if limit <= 0 || limit > 1000 {
		limit = defaultInferenceLogLimit
	}
	sqlQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inference logs: %w", err)
	}
	defer rows.Close()

	logs := []models.InferenceLog{}
	for rows.Next() {
		var log models.InferenceLog
		if err := rows.Scan(
			&log.ID,
			&log.Provider,
			&log.Model,
			&log.Operation,
			&log.TokensUsed,
			&log.InputTokens,
			&log.OutputTokens,
			&log.CostUSD,
			&log.LatencyMs,
			&log.Attempts,
			&log.Status,
			&log.ErrorMessage,
			&log.Metadata,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inference log: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
