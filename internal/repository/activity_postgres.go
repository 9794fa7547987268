package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/localboost/localboost/internal/domain"
)

// ActivityRepository implements domain.ActivityRepository using PostgreSQL
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *sql.DB) domain.ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) CreateActivity(ctx context.Context, event *domain.ActivityEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_events (id, tenant_id, contact_id, type, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.TenantID, event.ContactID, event.Type, event.Description, event.Metadata, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity event: %w", err)
	}
	return nil
}

func (r *ActivityRepository) ListContactActivity(ctx context.Context, tenantID, contactID string, limit int) ([]*domain.ActivityEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, contact_id, type, description, metadata, created_at
		FROM activity_events
		WHERE tenant_id = $1 AND contact_id = $2
		ORDER BY created_at DESC
		LIMIT $3`,
		tenantID, contactID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.ActivityEvent, 0)
	for rows.Next() {
		var e domain.ActivityEvent
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ContactID, &e.Type, &e.Description, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity events: %w", err)
	}
	return events, nil
}
