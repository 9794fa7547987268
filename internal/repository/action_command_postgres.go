package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/localboost/localboost/internal/domain"
)

// ActionCommandRepository implements domain.ActionCommandRepository using PostgreSQL
type ActionCommandRepository struct {
	db *sql.DB
}

// NewActionCommandRepository creates a new ActionCommandRepository
func NewActionCommandRepository(db *sql.DB) domain.ActionCommandRepository {
	return &ActionCommandRepository{db: db}
}

func (r *ActionCommandRepository) CreateCommand(ctx context.Context, cmd *domain.ActionCommand) error {
	if cmd.ID == "" {
		cmd.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	cmd.CreatedAt = now
	cmd.UpdatedAt = now
	if cmd.Status == "" {
		cmd.Status = domain.ActionCommandPending
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO action_commands (id, tenant_id, command_type, payload, status, attempts, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		cmd.ID, cmd.TenantID, cmd.Type, cmd.Payload, cmd.Status, cmd.Attempts, cmd.ErrorMessage, cmd.CreatedAt, cmd.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create action command: %w", err)
	}
	return nil
}

// ClaimPending moves the oldest pending rows to processing and bumps their
// attempt counter.
func (r *ActionCommandRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.ActionCommand, error) {
	query := `
		UPDATE action_commands
		SET status = 'processing', attempts = attempts + 1, updated_at = $1
		WHERE id IN (
			SELECT id FROM action_commands
			WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, tenant_id, command_type, payload, status, attempts, error_message, created_at, updated_at, processed_at
	`
	rows, err := r.db.QueryContext(ctx, query, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim action commands: %w", err)
	}
	defer rows.Close()

	commands := make([]*domain.ActionCommand, 0)
	for rows.Next() {
		var cmd domain.ActionCommand
		var processedAt sql.NullTime
		if err := rows.Scan(
			&cmd.ID, &cmd.TenantID, &cmd.Type, &cmd.Payload, &cmd.Status, &cmd.Attempts,
			&cmd.ErrorMessage, &cmd.CreatedAt, &cmd.UpdatedAt, &processedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan action command: %w", err)
		}
		if processedAt.Valid {
			t := processedAt.Time.UTC()
			cmd.ProcessedAt = &t
		}
		commands = append(commands, &cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action commands: %w", err)
	}
	return commands, nil
}

func (r *ActionCommandRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE action_commands SET status = 'completed', error_message = '', processed_at = $2, updated_at = $2 WHERE id = $1`,
		id, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete action command: %w", err)
	}
	return requireOneRow(result, "action command", id)
}

func (r *ActionCommandRepository) MarkFailed(ctx context.Context, id string, message string, retry bool, at time.Time) error {
	status := domain.ActionCommandFailed
	if retry {
		status = domain.ActionCommandPending
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE action_commands SET status = $2, error_message = $3, processed_at = $4, updated_at = $4 WHERE id = $1`,
		id, status, message, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to fail action command: %w", err)
	}
	return requireOneRow(result, "action command", id)
}
