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

var broadcastColumns = []string{
	"id", "tenant_id", "name", "channel", "audience_tags", "content", "ab_test", "status",
	"scheduled_at", "sent_at", "total_recipients", "sent_count", "failed_count",
	"open_count", "click_count", "error_message", "created_at", "updated_at",
}

// BroadcastRepository implements domain.BroadcastRepository using PostgreSQL
type BroadcastRepository struct {
	db *sql.DB
}

// NewBroadcastRepository creates a new BroadcastRepository
func NewBroadcastRepository(db *sql.DB) domain.BroadcastRepository {
	return &BroadcastRepository{db: db}
}

func (r *BroadcastRepository) CreateBroadcast(ctx context.Context, b *domain.Broadcast) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = domain.BroadcastStatusDraft
	}

	query := `
		INSERT INTO broadcasts (
			id, tenant_id, name, channel, audience_tags, content, ab_test, status,
			scheduled_at, sent_at, total_recipients, sent_count, failed_count,
			open_count, click_count, error_message, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.TenantID, b.Name, b.Channel, pq.Array(b.AudienceTags), b.Content, b.AbTest, b.Status,
		b.ScheduledAt, b.SentAt, b.TotalRecipients, b.SentCount, b.FailedCount,
		b.OpenCount, b.ClickCount, b.ErrorMessage, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create broadcast: %w", err)
	}
	return nil
}

func (r *BroadcastRepository) GetBroadcast(ctx context.Context, tenantID, id string) (*domain.Broadcast, error) {
	query, args, err := psql.Select(broadcastColumns...).
		From("broadcasts").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	b, err := scanBroadcast(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Entity: "broadcast", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get broadcast: %w", err)
	}
	return b, nil
}

func (r *BroadcastRepository) ListBroadcasts(ctx context.Context, filter domain.ListBroadcastsFilter) ([]*domain.Broadcast, int, error) {
	where := sq.Eq{"tenant_id": filter.TenantID}
	if filter.Status != "" {
		where["status"] = filter.Status
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("broadcasts").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count broadcasts: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	builder := psql.Select(broadcastColumns...).
		From("broadcasts").
		Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	broadcasts, err := r.queryBroadcasts(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return broadcasts, total, nil
}

func (r *BroadcastRepository) UpdateBroadcast(ctx context.Context, b *domain.Broadcast) error {
	b.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE broadcasts
		SET name = $3, channel = $4, audience_tags = $5, content = $6, ab_test = $7,
			scheduled_at = $8, updated_at = $9
		WHERE tenant_id = $1 AND id = $2 AND status = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		b.TenantID, b.ID, b.Name, b.Channel, pq.Array(b.AudienceTags), b.Content, b.AbTest,
		b.ScheduledAt, b.UpdatedAt, b.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to update broadcast: %w", err)
	}
	return requireOneRow(result, "broadcast", b.ID)
}

func (r *BroadcastRepository) ListDueBroadcasts(ctx context.Context, now time.Time, limit int) ([]*domain.Broadcast, error) {
	query, args, err := psql.Select(broadcastColumns...).
		From("broadcasts").
		Where(sq.Eq{"status": domain.BroadcastStatusScheduled}).
		Where(sq.LtOrEq{"scheduled_at": now.UTC()}).
		OrderBy("scheduled_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.queryBroadcasts(ctx, query, args...)
}

func (r *BroadcastRepository) ListDueWinnerChecks(ctx context.Context, now time.Time, limit int) ([]*domain.Broadcast, error) {
	query, args, err := psql.Select(broadcastColumns...).
		From("broadcasts").
		Where(sq.Eq{"status": domain.BroadcastStatusTesting}).
		Where("(ab_test->>'winner_check_at')::timestamptz <= ?", now.UTC()).
		OrderBy("updated_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.queryBroadcasts(ctx, query, args...)
}

func (r *BroadcastRepository) TransitionStatus(ctx context.Context, tenantID, id string, from, to domain.BroadcastStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, &domain.ErrInvalidTransition{Entity: "broadcast", ID: id, From: string(from), To: string(to)}
	}

	query := `UPDATE broadcasts SET status = $4, updated_at = $5 WHERE tenant_id = $1 AND id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, tenantID, id, from, to, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to transition broadcast: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected == 1, nil
}

func (r *BroadcastRepository) SaveDeliveryState(ctx context.Context, b *domain.Broadcast, expected domain.BroadcastStatus) (bool, error) {
	b.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE broadcasts
		SET status = $4, ab_test = $5, sent_at = $6, total_recipients = $7,
			sent_count = $8, failed_count = $9, error_message = $10, updated_at = $11
		WHERE tenant_id = $1 AND id = $2 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query,
		b.TenantID, b.ID, expected, b.Status, b.AbTest, b.SentAt, b.TotalRecipients,
		b.SentCount, b.FailedCount, b.ErrorMessage, b.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save broadcast delivery state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected == 1, nil
}

// RecordRecipients inserts the ledger rows in one statement; rows for a
// contact that already has one are skipped.
func (r *BroadcastRepository) RecordRecipients(ctx context.Context, recipients []*domain.BroadcastRecipient) error {
	if len(recipients) == 0 {
		return nil
	}

	now := time.Now().UTC()
	builder := psql.Insert("broadcast_recipients").
		Columns("id", "broadcast_id", "tenant_id", "contact_id", "variant", "phase", "status", "provider_id", "error", "created_at")
	for _, rc := range recipients {
		if rc.ID == "" {
			rc.ID = uuid.New().String()
		}
		if rc.CreatedAt.IsZero() {
			rc.CreatedAt = now
		}
		builder = builder.Values(rc.ID, rc.BroadcastID, rc.TenantID, rc.ContactID, rc.Variant, rc.Phase, rc.Status, rc.ProviderID, rc.Error, rc.CreatedAt)
	}
	query, args, err := builder.Suffix("ON CONFLICT (broadcast_id, contact_id) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	return database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to record broadcast recipients: %w", err)
		}
		return nil
	})
}

func (r *BroadcastRepository) ListRecipientContactIDs(ctx context.Context, broadcastID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT contact_id FROM broadcast_recipients WHERE broadcast_id = $1`, broadcastID)
	if err != nil {
		return nil, fmt.Errorf("failed to list broadcast recipients: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}
	return ids, nil
}

func (r *BroadcastRepository) GetVariantStats(ctx context.Context, broadcastID string) (map[domain.Variant]domain.VariantStats, error) {
	query := `
		SELECT variant,
			COUNT(*) FILTER (WHERE status = 'sent') AS sent,
			COUNT(opened_at) AS opened
		FROM broadcast_recipients
		WHERE broadcast_id = $1 AND phase = 'test'
		GROUP BY variant
	`
	rows, err := r.db.QueryContext(ctx, query, broadcastID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[domain.Variant]domain.VariantStats)
	for rows.Next() {
		var s domain.VariantStats
		if err := rows.Scan(&s.Variant, &s.Sent, &s.Opened); err != nil {
			return nil, fmt.Errorf("failed to scan variant stats: %w", err)
		}
		stats[s.Variant] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variant stats: %w", err)
	}
	return stats, nil
}

func (r *BroadcastRepository) RecordOpen(ctx context.Context, recipientID string, at time.Time) (bool, error) {
	recorded := false
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		var broadcastID string
		err := tx.QueryRowContext(ctx,
			`UPDATE broadcast_recipients SET opened_at = $2 WHERE id = $1 AND opened_at IS NULL AND status = 'sent' RETURNING broadcast_id`,
			recipientID, at.UTC(),
		).Scan(&broadcastID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to mark recipient opened: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE broadcasts SET open_count = open_count + 1 WHERE id = $1`, broadcastID,
		); err != nil {
			return fmt.Errorf("failed to increment open count: %w", err)
		}
		recorded = true
		return nil
	})
	return recorded, err
}

func (r *BroadcastRepository) queryBroadcasts(ctx context.Context, query string, args ...interface{}) ([]*domain.Broadcast, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query broadcasts: %w", err)
	}
	defer rows.Close()

	broadcasts := make([]*domain.Broadcast, 0)
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan broadcast: %w", err)
		}
		broadcasts = append(broadcasts, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating broadcasts: %w", err)
	}
	return broadcasts, nil
}

func scanBroadcast(row rowScanner) (*domain.Broadcast, error) {
	var b domain.Broadcast
	var tags []string
	var abTest nullAbTest
	var scheduledAt, sentAt sql.NullTime

	if err := row.Scan(
		&b.ID, &b.TenantID, &b.Name, &b.Channel, pq.Array(&tags), &b.Content, &abTest, &b.Status,
		&scheduledAt, &sentAt, &b.TotalRecipients, &b.SentCount, &b.FailedCount,
		&b.OpenCount, &b.ClickCount, &b.ErrorMessage, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	b.AudienceTags = tags
	if b.AudienceTags == nil {
		b.AudienceTags = []string{}
	}
	b.AbTest = abTest.config
	if scheduledAt.Valid {
		t := scheduledAt.Time.UTC()
		b.ScheduledAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time.UTC()
		b.SentAt = &t
	}
	return &b, nil
}

// nullAbTest scans a nullable ab_test column
type nullAbTest struct {
	config *domain.AbTestConfig
}

func (n *nullAbTest) Scan(value interface{}) error {
	if value == nil {
		n.config = nil
		return nil
	}
	if s, ok := value.(string); ok {
		if strings.TrimSpace(s) == "null" {
			return nil
		}
		value = []byte(s)
	}
	if b, ok := value.([]byte); ok && strings.TrimSpace(string(b)) == "null" {
		return nil
	}
	cfg := &domain.AbTestConfig{}
	if err := cfg.Scan(value); err != nil {
		return err
	}
	n.config = cfg
	return nil
}
