package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/localboost/localboost/internal/database"
	"github.com/localboost/localboost/internal/domain"
)

var (
	sequenceColumns = []string{"id", "tenant_id", "name", "trigger_type", "active", "execution_count", "created_at", "updated_at"}
	stepColumns     = []string{"id", "sequence_id", "step_order", "action", "subject", "body", "wait_days"}
	progressColumns = []string{
		"id", "tenant_id", "contact_id", "sequence_id", "current_step_id", "next_step_at",
		"completed_at", "completion_reason", "created_at", "updated_at",
	}
)

// AutomationRepository implements domain.AutomationRepository using PostgreSQL
type AutomationRepository struct {
	db *sql.DB
}

// NewAutomationRepository creates a new AutomationRepository
func NewAutomationRepository(db *sql.DB) domain.AutomationRepository {
	return &AutomationRepository{db: db}
}

// Sequence CRUD

func (r *AutomationRepository) CreateSequence(ctx context.Context, sequence *domain.AutomationSequence) error {
	if sequence.ID == "" {
		sequence.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	sequence.CreatedAt = now
	sequence.UpdatedAt = now

	return database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO automation_sequences (id, tenant_id, name, trigger_type, active, execution_count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			sequence.ID, sequence.TenantID, sequence.Name, sequence.Trigger, sequence.Active,
			sequence.ExecutionCount, sequence.CreatedAt, sequence.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create automation sequence: %w", err)
		}
		return insertSteps(ctx, tx, sequence)
	})
}

func (r *AutomationRepository) ReplaceSequence(ctx context.Context, sequence *domain.AutomationSequence) error {
	sequence.UpdatedAt = time.Now().UTC()

	return database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE automation_sequences
			SET name = $3, trigger_type = $4, active = $5, updated_at = $6
			WHERE tenant_id = $1 AND id = $2`,
			sequence.TenantID, sequence.ID, sequence.Name, sequence.Trigger, sequence.Active, sequence.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update automation sequence: %w", err)
		}
		if err := requireOneRow(result, "automation sequence", sequence.ID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM automation_steps WHERE sequence_id = $1`, sequence.ID); err != nil {
			return fmt.Errorf("failed to delete automation steps: %w", err)
		}
		return insertSteps(ctx, tx, sequence)
	})
}

// insertSteps writes the steps of a sequence. Steps that already carry an id
// keep it so in-flight progress rows still resolve.
func insertSteps(ctx context.Context, tx *sql.Tx, sequence *domain.AutomationSequence) error {
	if len(sequence.Steps) == 0 {
		return nil
	}

	builder := psql.Insert("automation_steps").Columns(stepColumns...)
	for i := range sequence.Steps {
		step := &sequence.Steps[i]
		if step.ID == "" {
			step.ID = uuid.New().String()
		}
		step.SequenceID = sequence.ID
		step.Order = i
		builder = builder.Values(step.ID, step.SequenceID, step.Order, step.Action, step.Subject, step.Body, step.WaitDays)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert automation steps: %w", err)
	}
	return nil
}

func (r *AutomationRepository) GetSequence(ctx context.Context, tenantID, id string) (*domain.AutomationSequence, error) {
	query, args, err := psql.Select(sequenceColumns...).
		From("automation_sequences").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	sequence, err := scanSequence(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Entity: "automation sequence", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get automation sequence: %w", err)
	}

	if err := r.attachSteps(ctx, []*domain.AutomationSequence{sequence}); err != nil {
		return nil, err
	}
	return sequence, nil
}

func (r *AutomationRepository) ListSequences(ctx context.Context, tenantID string) ([]*domain.AutomationSequence, error) {
	return r.listSequences(ctx, sq.Eq{"tenant_id": tenantID})
}

func (r *AutomationRepository) ListActiveSequencesByTrigger(ctx context.Context, tenantID string, trigger domain.TriggerType) ([]*domain.AutomationSequence, error) {
	return r.listSequences(ctx, sq.Eq{"tenant_id": tenantID, "trigger_type": trigger, "active": true})
}

func (r *AutomationRepository) listSequences(ctx context.Context, where sq.Eq) ([]*domain.AutomationSequence, error) {
	query, args, err := psql.Select(sequenceColumns...).
		From("automation_sequences").
		Where(where).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list automation sequences: %w", err)
	}
	defer rows.Close()

	sequences := make([]*domain.AutomationSequence, 0)
	for rows.Next() {
		sequence, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation sequence: %w", err)
		}
		sequences = append(sequences, sequence)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating automation sequences: %w", err)
	}

	if err := r.attachSteps(ctx, sequences); err != nil {
		return nil, err
	}
	return sequences, nil
}

// attachSteps loads the steps of all sequences in one query
func (r *AutomationRepository) attachSteps(ctx context.Context, sequences []*domain.AutomationSequence) error {
	if len(sequences) == 0 {
		return nil
	}

	ids := make([]string, len(sequences))
	byID := make(map[string]*domain.AutomationSequence, len(sequences))
	for i, s := range sequences {
		ids[i] = s.ID
		byID[s.ID] = s
		s.Steps = []domain.AutomationStep{}
	}

	query, args, err := psql.Select(stepColumns...).
		From("automation_steps").
		Where("sequence_id = ANY(?)", pq.Array(ids)).
		OrderBy("sequence_id", "step_order ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load automation steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step domain.AutomationStep
		if err := rows.Scan(&step.ID, &step.SequenceID, &step.Order, &step.Action, &step.Subject, &step.Body, &step.WaitDays); err != nil {
			return fmt.Errorf("failed to scan automation step: %w", err)
		}
		if s, ok := byID[step.SequenceID]; ok {
			s.Steps = append(s.Steps, step)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating automation steps: %w", err)
	}
	return nil
}

func (r *AutomationRepository) SetSequenceActive(ctx context.Context, tenantID, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE automation_sequences SET active = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, active, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update automation sequence: %w", err)
	}
	return requireOneRow(result, "automation sequence", id)
}

func (r *AutomationRepository) IncrementExecutionCount(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE automation_sequences SET execution_count = execution_count + 1 WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment execution count: %w", err)
	}
	return requireOneRow(result, "automation sequence", id)
}

// Progress

func (r *AutomationRepository) EnrollContact(ctx context.Context, progress *domain.AutomationContactProgress) (bool, error) {
	if progress.ID == "" {
		progress.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	progress.CreatedAt = now
	progress.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO automation_contact_progress (
			id, tenant_id, contact_id, sequence_id, current_step_id, next_step_at,
			completed_at, completion_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULL, '', $7, $8)
		ON CONFLICT (contact_id, sequence_id) WHERE completed_at IS NULL DO NOTHING`,
		progress.ID, progress.TenantID, progress.ContactID, progress.SequenceID,
		progress.CurrentStepID, progress.NextStepAt.UTC(), progress.CreatedAt, progress.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to enroll contact: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected == 1, nil
}

// ClaimDueProgress leases due rows with SKIP LOCKED so concurrent engines
// never pick the same row.
func (r *AutomationRepository) ClaimDueProgress(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*domain.AutomationContactProgress, error) {
	query := `
		UPDATE automation_contact_progress
		SET next_step_at = $2, updated_at = $1
		WHERE id IN (
			SELECT id FROM automation_contact_progress
			WHERE completed_at IS NULL AND next_step_at <= $1
			ORDER BY next_step_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + strings.Join(progressColumns, ", ")

	rows, err := r.db.QueryContext(ctx, query, now.UTC(), now.Add(lease).UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due progress: %w", err)
	}
	defer rows.Close()

	claimed := make([]*domain.AutomationContactProgress, 0)
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		claimed = append(claimed, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress: %w", err)
	}
	return claimed, nil
}

func (r *AutomationRepository) UpdateProgress(ctx context.Context, progress *domain.AutomationContactProgress) error {
	progress.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE automation_contact_progress
		SET current_step_id = $2, next_step_at = $3, completed_at = $4, completion_reason = $5, updated_at = $6
		WHERE id = $1`,
		progress.ID, progress.CurrentStepID, progress.NextStepAt.UTC(), progress.CompletedAt,
		progress.CompletionReason, progress.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return requireOneRow(result, "automation progress", progress.ID)
}

func (r *AutomationRepository) ListContactProgress(ctx context.Context, tenantID, contactID string) ([]*domain.AutomationContactProgress, error) {
	query, args, err := psql.Select(progressColumns...).
		From("automation_contact_progress").
		Where(sq.Eq{"tenant_id": tenantID, "contact_id": contactID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	list := make([]*domain.AutomationContactProgress, 0)
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress: %w", err)
	}
	return list, nil
}

func scanSequence(row rowScanner) (*domain.AutomationSequence, error) {
	var s domain.AutomationSequence
	if err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Trigger, &s.Active, &s.ExecutionCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanProgress(row rowScanner) (*domain.AutomationContactProgress, error) {
	var p domain.AutomationContactProgress
	var currentStepID sql.NullString
	var completedAt sql.NullTime
	if err := row.Scan(
		&p.ID, &p.TenantID, &p.ContactID, &p.SequenceID, &currentStepID, &p.NextStepAt,
		&completedAt, &p.CompletionReason, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if currentStepID.Valid {
		id := currentStepID.String
		p.CurrentStepID = &id
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		p.CompletedAt = &t
	}
	return &p, nil
}
